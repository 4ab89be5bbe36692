// Package document provides the per-user, path-addressed, versioned
// document store: a YAML metadata header plus free-form body, kept in a
// durable blob backend with a best-effort queryable index.
package document

import (
	"fmt"
	"regexp"
	"strings"
)

// pathPattern is the path-safety grammar: lowercase alphanumeric, hyphen
// and underscore segments, at most three directory levels, .md suffix.
var pathPattern = regexp.MustCompile(`^[a-z0-9\-_]+(?:/[a-z0-9\-_]+){0,2}\.md$`)

// Path prefixes documents may live under. Everything else is rejected
// before touching storage.
const (
	PrefixLifeMap     = "life-map/"
	PrefixLifePlan    = "life-plan/"
	PrefixCheckIns    = "check-ins/"
	PrefixSageContext = "sage-context/"
	PrefixDailyLogs   = "daily-logs/"
	PrefixDayPlans    = "day-plans/"
	PrefixCaptures    = "captures/"
)

// AllowedPrefixes is the fixed set of top-level prefixes.
var AllowedPrefixes = []string{
	PrefixLifeMap,
	PrefixLifePlan,
	PrefixCheckIns,
	PrefixSageContext,
	PrefixDailyLogs,
	PrefixDayPlans,
	PrefixCaptures,
}

// PathError reports a path that failed validation. It is returned
// synchronously, before any storage access.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid document path %q: %s", e.Path, e.Reason)
}

// ValidatePath checks a path against the safety grammar and the allowed
// prefix set.
func ValidatePath(path string) error {
	if !pathPattern.MatchString(path) {
		return &PathError{Path: path, Reason: "does not match path grammar"}
	}
	for _, prefix := range AllowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return nil
		}
	}
	return &PathError{Path: path, Reason: "not under an allowed prefix"}
}

// Slugify converts a human label like "Health / Body" into a path segment
// like "health-body".
func Slugify(label string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
