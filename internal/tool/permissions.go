package tool

import (
	"strings"

	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/pkg/types"
)

// writePrefixes is the static permission table mapping a session type to
// the document path prefixes it may write. This table is the security
// boundary for model-driven writes and must stay exhaustive: a session
// type with no entry fails closed.
var writePrefixes = map[types.SessionType][]string{
	types.SessionMapping: {
		document.PrefixLifeMap,
		document.PrefixLifePlan,
		document.PrefixSageContext,
	},
	types.SessionWeeklyCheckin: {
		document.PrefixCheckIns,
		document.PrefixLifePlan,
		document.PrefixLifeMap,
		document.PrefixSageContext,
	},
	types.SessionConversation: {
		document.PrefixLifeMap,
		document.PrefixLifePlan,
		document.PrefixCheckIns,
		document.PrefixSageContext,
		document.PrefixDailyLogs,
		document.PrefixDayPlans,
		document.PrefixCaptures,
	},
	types.SessionCloseDay: {
		document.PrefixDailyLogs,
		document.PrefixSageContext,
		document.PrefixCaptures,
	},
	types.SessionOpenDay: {
		document.PrefixDayPlans,
		document.PrefixSageContext,
	},
	types.SessionQuickCapture: {
		document.PrefixCaptures,
	},
}

// AllowedPath reports whether the effective session type may write the
// resolved path. Unknown session types are denied.
func AllowedPath(effective types.SessionType, path string) bool {
	prefixes, ok := writePrefixes[effective]
	if !ok {
		return false
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AllowedPrefixes returns the writable prefixes for a session type, for
// inclusion in error messages.
func AllowedPrefixes(effective types.SessionType) []string {
	return writePrefixes[effective]
}
