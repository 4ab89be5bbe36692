package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sagelabs/sage/pkg/types"
)

const headerDelimiter = "---"

// Encode serializes a header and body into delimited document form. The
// body is sanitized first so model output cannot smuggle a header
// delimiter into the stored document.
func Encode(header types.Header, body string) ([]byte, error) {
	meta, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(headerDelimiter)
	sb.WriteString("\n")
	sb.Write(meta)
	sb.WriteString(headerDelimiter)
	sb.WriteString("\n")
	sb.WriteString(SanitizeBody(body))
	return []byte(sb.String()), nil
}

// Decode splits a stored document into header and body. A document with
// no header yields a zero header and the full content as body. A header
// that fails YAML parsing degrades the same way rather than failing the
// read, so documents written by older schema versions remain readable;
// DecodeRaw recovers whatever structure is present.
func Decode(data []byte) (types.Header, string) {
	meta, body, ok := splitHeader(string(data))
	if !ok {
		return types.Header{}, string(data)
	}

	var header types.Header
	if err := yaml.Unmarshal([]byte(meta), &header); err != nil {
		return types.Header{}, string(data)
	}
	return header, body
}

// DecodeRaw returns the header as an untyped map, for callers that must
// survive schema drift.
func DecodeRaw(data []byte) (map[string]any, string) {
	meta, body, ok := splitHeader(string(data))
	if !ok {
		return nil, string(data)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal([]byte(meta), &raw); err != nil {
		return nil, string(data)
	}
	return raw, body
}

func splitHeader(content string) (meta, body string, ok bool) {
	if !strings.HasPrefix(content, headerDelimiter+"\n") {
		return "", "", false
	}
	rest := content[len(headerDelimiter)+1:]
	idx := strings.Index(rest, "\n"+headerDelimiter+"\n")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx+1], rest[idx+len(headerDelimiter)+2:], true
}

// SanitizeBody strips any line that consists of a literal header
// delimiter, which would otherwise terminate the header block early on
// the next read.
func SanitizeBody(body string) string {
	if !strings.Contains(body, headerDelimiter) {
		return body
	}

	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == headerDelimiter {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
