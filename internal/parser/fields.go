package parser

import (
	"strconv"
	"strings"
)

// Domain status values accepted by the Status field. Anything else falls
// back to "stable".
const (
	statusDefault = "stable"
)

var knownStatuses = map[string]string{
	"thriving":        "thriving",
	"stable":          "stable",
	"needs_attention": "needs_attention",
	"in_crisis":       "in_crisis",
}

// fields is a parsed block body: normalized key to raw value.
type fields map[string]string

// parseFields parses a line-oriented "Key: value" block body. A line
// without a colon continues the previous value. Later occurrences of a
// key overwrite earlier ones.
func parseFields(body string) fields {
	f := make(fields)
	var lastKey string

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			lastKey = ""
			continue
		}

		idx := strings.Index(line, ":")
		if idx <= 0 {
			// Continuation of the previous field.
			if lastKey != "" {
				f[lastKey] = strings.TrimSpace(f[lastKey] + " " + line)
			}
			continue
		}

		key := normalizeKey(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		f[key] = value
		lastKey = key
	}

	return f
}

// normalizeKey lowercases a key and collapses interior whitespace so
// "What's  Working" and "what's working" match.
func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(key))), " ")
}

// get returns the raw value for a key, or "" when absent.
func (f fields) get(key string) string {
	return f[normalizeKey(key)]
}

// list splits a comma-separated value into trimmed items. Empty items are
// dropped; an absent key yields an empty slice.
func (f fields) list(key string) []string {
	raw := f.get(key)
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if item := strings.TrimSpace(p); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// number parses a numeric field leniently: invalid or absent values yield
// nil rather than an error.
func (f fields) number(key string) *float64 {
	raw := f.get(key)
	if raw == "" {
		return nil
	}

	// Tolerate trailing annotations like "7 / 10" or "7 out of 10".
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, " /"); i > 0 {
		raw = raw[:i]
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// status returns the value of an enumerated status field, falling back to
// "stable" when the value is not one of the known statuses. The compare is
// case-insensitive.
func (f fields) status(key string) string {
	raw := strings.ToLower(strings.TrimSpace(f.get(key)))
	if canonical, ok := knownStatuses[raw]; ok {
		return canonical
	}
	return statusDefault
}
