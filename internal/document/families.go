package document

import (
	"fmt"

	"github.com/sagelabs/sage/pkg/types"
)

// familyInfo carries the per-family header defaults and path rule.
type familyInfo struct {
	schemaVersion int
	needsName     bool
}

var families = map[types.Family]familyInfo{
	types.FamilyDomain:      {schemaVersion: 2, needsName: true},
	types.FamilyOverview:    {schemaVersion: 2},
	types.FamilyLifePlan:    {schemaVersion: 1},
	types.FamilyCheckIn:     {schemaVersion: 1},
	types.FamilySageContext: {schemaVersion: 1},
	types.FamilyPatterns:    {schemaVersion: 1},
	types.FamilyDailyLog:    {schemaVersion: 1},
	types.FamilyDayPlan:     {schemaVersion: 1},
	types.FamilyCapture:     {schemaVersion: 1, needsName: true},
}

// SchemaVersion returns the current header schema version for a family.
func SchemaVersion(f types.Family) int {
	return families[f].schemaVersion
}

// ResolvePath maps a semantic (family, name) pair to a concrete document
// path. Date-based families default their name to today when it is empty;
// today is the caller's local date in YYYY-MM-DD form.
func ResolvePath(family types.Family, name, today string) (string, error) {
	info, ok := families[family]
	if !ok {
		return "", fmt.Errorf("unknown document family %q", family)
	}

	slug := Slugify(name)
	if slug == "" && info.needsName {
		return "", fmt.Errorf("document family %q requires a name", family)
	}

	var path string
	switch family {
	case types.FamilyDomain:
		path = PrefixLifeMap + "domains/" + slug + ".md"
	case types.FamilyOverview:
		path = PrefixLifeMap + "overview.md"
	case types.FamilyLifePlan:
		if slug == "" {
			slug = "plan"
		}
		path = PrefixLifePlan + slug + ".md"
	case types.FamilyCheckIn:
		if slug == "" {
			slug = today
		}
		path = PrefixCheckIns + slug + ".md"
	case types.FamilySageContext:
		if slug == "" {
			slug = "core"
		}
		path = PrefixSageContext + slug + ".md"
	case types.FamilyPatterns:
		path = PrefixSageContext + "patterns.md"
	case types.FamilyDailyLog:
		if slug == "" {
			slug = today
		}
		path = PrefixDailyLogs + slug + ".md"
	case types.FamilyDayPlan:
		if slug == "" {
			slug = today
		}
		path = PrefixDayPlans + slug + ".md"
	case types.FamilyCapture:
		path = PrefixCaptures + slug + ".md"
	}

	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}
