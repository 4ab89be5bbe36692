package types

import "time"

// Family identifies a document family. Each family has its own header
// schema and path-resolution rule.
type Family string

const (
	FamilyDomain      Family = "domain"
	FamilyOverview    Family = "overview"
	FamilyLifePlan    Family = "life-plan"
	FamilyCheckIn     Family = "check-in"
	FamilySageContext Family = "sage-context"
	FamilyPatterns    Family = "patterns"
	FamilyDailyLog    Family = "daily-log"
	FamilyDayPlan     Family = "day-plan"
	FamilyCapture     Family = "capture"
)

// KnownFamily reports whether f is one of the fixed document families.
func KnownFamily(f Family) bool {
	switch f {
	case FamilyDomain, FamilyOverview, FamilyLifePlan, FamilyCheckIn,
		FamilySageContext, FamilyPatterns, FamilyDailyLog, FamilyDayPlan,
		FamilyCapture:
		return true
	}
	return false
}

// DomainStatus is the health status attached to a domain document.
type DomainStatus string

const (
	DomainThriving       DomainStatus = "thriving"
	DomainStable         DomainStatus = "stable"
	DomainNeedsAttention DomainStatus = "needs_attention"
	DomainInCrisis       DomainStatus = "in_crisis"
)

// Header is a document's metadata header. Unknown keys round-trip through
// Rest so documents written by newer schema versions stay readable.
type Header struct {
	Type          Family         `yaml:"type" json:"type"`
	Version       int            `yaml:"version" json:"version"`
	SchemaVersion int            `yaml:"schema_version" json:"schema_version"`
	LastUpdated   time.Time      `yaml:"last_updated" json:"last_updated"`
	Domain        string         `yaml:"domain,omitempty" json:"domain,omitempty"`
	Status        string         `yaml:"status,omitempty" json:"status,omitempty"`
	Rating        *float64       `yaml:"rating,omitempty" json:"rating,omitempty"`
	Tags          []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Rest          map[string]any `yaml:",inline" json:"rest,omitempty"`
}

// Document is a path-addressed, versioned document owned by one user.
type Document struct {
	User   string `json:"user"`
	Path   string `json:"path"`
	Header Header `json:"header"`
	Body   string `json:"body"`
}

// IndexEntry is the denormalized projection of a document header kept in
// the relational catalog for listing and filtering. Best-effort: losing it
// never corrupts the source document.
type IndexEntry struct {
	User        string    `json:"user"`
	Path        string    `json:"path"`
	Type        Family    `json:"type"`
	Domain      string    `json:"domain,omitempty"`
	Status      string    `json:"status,omitempty"`
	Version     int       `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	HeaderJSON  string    `json:"header_json"`
}
