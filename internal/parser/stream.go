package parser

import "strings"

// CompletedBlock is a block that has fully closed in the stream, together
// with the byte offset just past its close tag. A block completes exactly
// once, at the position its close tag ends; callers diff End against the
// last offset they dispatched to deliver each block once.
type CompletedBlock struct {
	Block Block
	End   int
}

// StreamResult is the outcome of parsing an accumulated stream buffer.
type StreamResult struct {
	// Display is the longest prefix of prose that is safe to show. Tag
	// markers and block bodies are excluded, as is any trailing text that
	// could still turn out to be the start of an open tag.
	Display string

	// Pending reports that a block is currently open but not yet closed.
	Pending bool

	// PendingType is the type of the open block when Pending is true.
	PendingType BlockType

	// PendingStart is the raw byte offset of the pending block's open
	// tag in the buffer, valid only when Pending is true. At end of
	// stream the tail from here degrades to plain text.
	PendingStart int

	// Blocks holds every block completed so far, in close-tag order.
	Blocks []CompletedBlock
}

// ParseStream parses the full accumulated text of a response so far. It is
// a pure function: callers re-invoke it on every chunk with the grown
// buffer. A simple rescan per chunk is a performance cost, not a
// correctness one.
func ParseStream(buffer string) StreamResult {
	var res StreamResult
	var display strings.Builder

	rest := buffer
	offset := 0

	for {
		def, start := nextOpenTag(rest)
		if start < 0 {
			display.WriteString(holdPartialTag(rest))
			break
		}

		display.WriteString(rest[:start])

		bodyStart := start + len(def.open)
		closeIdx := strings.Index(rest[bodyStart:], def.close)
		if closeIdx < 0 {
			// Block is still streaming in.
			res.Pending = true
			res.PendingType = def.typ
			res.PendingStart = offset + start
			break
		}

		body := rest[bodyStart : bodyStart+closeIdx]
		end := offset + bodyStart + closeIdx + len(def.close)
		res.Blocks = append(res.Blocks, CompletedBlock{
			Block: decodeBlock(def.typ, parseFields(body)),
			End:   end,
		})

		rest = rest[bodyStart+closeIdx+len(def.close):]
		offset = end
	}

	res.Display = display.String()
	return res
}

// holdPartialTag returns s with any trailing run that could still become a
// known open tag withheld. "Some prose [DOMA" must not display the "[DOMA"
// until the next chunk decides whether it is a tag.
func holdPartialTag(s string) string {
	idx := strings.LastIndexByte(s, '[')
	if idx < 0 {
		return s
	}

	tail := s[idx:]
	for _, def := range tagDefs {
		if strings.HasPrefix(def.open, tail) || strings.HasPrefix(def.close, tail) {
			return s[:idx]
		}
	}
	return s
}
