package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStream_PlainText(t *testing.T) {
	res := ParseStream("hello there")
	assert.Equal(t, "hello there", res.Display)
	assert.False(t, res.Pending)
	assert.Empty(t, res.Blocks)
}

func TestParseStream_PendingBlock(t *testing.T) {
	res := ParseStream("Some thoughts first.\n[DOMAIN_SUMMARY]\nDomain: Career")
	assert.Equal(t, "Some thoughts first.\n", res.Display)
	assert.True(t, res.Pending)
	assert.Equal(t, BlockDomainSummary, res.PendingType)
	assert.Empty(t, res.Blocks)
}

func TestParseStream_CompletedBlock(t *testing.T) {
	buffer := "before " + domainSummaryText + " after"
	res := ParseStream(buffer)

	assert.Equal(t, "before  after", res.Display)
	assert.False(t, res.Pending)
	require.Len(t, res.Blocks, 1)

	ds := res.Blocks[0].Block.(*DomainSummary)
	assert.Equal(t, "Health / Body", ds.Domain)

	// End points just past the close tag.
	wantEnd := len("before ") + len(domainSummaryText)
	assert.Equal(t, wantEnd, res.Blocks[0].End)
}

func TestParseStream_HoldsPartialOpenTag(t *testing.T) {
	res := ParseStream("prose then [DOMA")
	assert.Equal(t, "prose then ", res.Display)
	assert.False(t, res.Pending)

	// A bracket that cannot become a tag is displayed.
	res = ParseStream("scores were [7/10] overall")
	assert.Equal(t, "scores were [7/10] overall", res.Display)
}

func TestParseStream_PrefixConsistency(t *testing.T) {
	// Blocks complete at most once, at the position their close tag ends:
	// for growing prefixes of a message, the set of completed end offsets
	// only ever grows, and an offset never appears before the close tag
	// fits inside the prefix.
	message := "intro\n" + domainSummaryText + "\nmiddle\n" +
		"[SUGGESTED_REPLIES]\nReplies: a, b\n[/SUGGESTED_REPLIES]\ntail"

	var prevEnds []int
	for i := 0; i <= len(message); i++ {
		res := ParseStream(message[:i])

		var ends []int
		for _, cb := range res.Blocks {
			assert.LessOrEqual(t, cb.End, i)
			ends = append(ends, cb.End)
		}

		// Every previously completed block stays completed at the same
		// offset.
		require.GreaterOrEqual(t, len(ends), len(prevEnds), "prefix %d", i)
		for j, e := range prevEnds {
			assert.Equal(t, e, ends[j], "prefix %d", i)
		}
		prevEnds = ends
	}

	require.Len(t, prevEnds, 2)
}

func TestParseStream_DisplayGrowsMonotonically(t *testing.T) {
	message := "hello [DOMAIN_SUMMARY]\nDomain: X\n[/DOMAIN_SUMMARY] world"

	prev := ""
	for i := 0; i <= len(message); i++ {
		res := ParseStream(message[:i])
		assert.True(t, len(res.Display) >= len(prev) || res.Display == prev,
			"display shrank at prefix %d: %q -> %q", i, prev, res.Display)
		prev = res.Display
	}
}

func TestParseStream_InterleavedPendingAfterCompleted(t *testing.T) {
	buffer := domainSummaryText + "\nnow thinking...\n[SESSION_SUMMARY]\nDate: 2026"
	res := ParseStream(buffer)

	require.Len(t, res.Blocks, 1)
	assert.True(t, res.Pending)
	assert.Equal(t, BlockSessionSummary, res.PendingType)
	assert.Equal(t, "\nnow thinking...\n", res.Display)
}

func TestParseStream_PendingStart(t *testing.T) {
	res := ParseStream("intro [DOMAIN_SUMMARY]\nDomain: Health")
	require.True(t, res.Pending)
	assert.Equal(t, len("intro "), res.PendingStart)

	// After a completed block, PendingStart is still the absolute offset
	// of the second block's open tag.
	buffer := domainSummaryText + "\nmiddle\n[SESSION_SUMMARY]\nDate: 2026"
	res = ParseStream(buffer)
	require.True(t, res.Pending)
	want := len(domainSummaryText) + len("\nmiddle\n")
	assert.Equal(t, want, res.PendingStart)
	assert.Equal(t, "[SESSION_SUMMARY]", buffer[res.PendingStart:res.PendingStart+len("[SESSION_SUMMARY]")])
}
