package parser

import "strings"

// SegmentKind discriminates the two segment flavors.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentBlock SegmentKind = "block"
)

// Segment is one ordered slice of a parsed message: either display prose
// or a structured block.
type Segment struct {
	Kind  SegmentKind
	Text  string
	Block Block
}

// ParseMessage parses a complete message into an ordered list of text and
// block segments. Text segments preserve their original position relative
// to interleaved blocks.
//
// Edge case: if any recognized open tag has no matching close tag, the
// entire input degrades to a single text segment and no blocks are
// emitted. An unterminated block is a malformed message, not a crash.
func ParseMessage(text string) []Segment {
	var segments []Segment
	rest := text

	for {
		def, start := nextOpenTag(rest)
		if start < 0 {
			if rest != "" {
				segments = append(segments, Segment{Kind: SegmentText, Text: rest})
			}
			break
		}

		bodyStart := start + len(def.open)
		closeIdx := strings.Index(rest[bodyStart:], def.close)
		if closeIdx < 0 {
			// Unterminated block: degrade the whole input to plain text.
			return []Segment{{Kind: SegmentText, Text: text}}
		}

		if before := rest[:start]; before != "" {
			segments = append(segments, Segment{Kind: SegmentText, Text: before})
		}

		body := rest[bodyStart : bodyStart+closeIdx]
		block := decodeBlock(def.typ, parseFields(body))
		segments = append(segments, Segment{Kind: SegmentBlock, Block: block})

		rest = rest[bodyStart+closeIdx+len(def.close):]
	}

	return segments
}

// Blocks returns just the structured blocks of a message, in order.
func Blocks(text string) []Block {
	var blocks []Block
	for _, seg := range ParseMessage(text) {
		if seg.Kind == SegmentBlock {
			blocks = append(blocks, seg.Block)
		}
	}
	return blocks
}

// ContainsBlock reports whether the message contains a completed block of
// the given type. Used by the post-stream terminal-signal scan.
func ContainsBlock(text string, typ BlockType) bool {
	for _, b := range Blocks(text) {
		if b.BlockType() == typ {
			return true
		}
	}
	return false
}

// nextOpenTag finds the earliest open tag of any known type in s. Returns
// the tag definition and its byte offset, or -1 when none is present.
func nextOpenTag(s string) (tagDef, int) {
	best := -1
	var bestDef tagDef
	for _, def := range tagDefs {
		if idx := strings.Index(s, def.open); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestDef = def
		}
	}
	return bestDef, best
}
