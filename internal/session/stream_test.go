package session

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/parser"
	"github.com/sagelabs/sage/internal/provider"
)

func runConsume(t *testing.T, chunks ...string) ([]event.Event, *roundResult) {
	t.Helper()

	msgs := make([]*schema.Message, len(chunks))
	for i, c := range chunks {
		msgs[i] = &schema.Message{Role: schema.Assistant, Content: c}
	}
	stream := provider.NewCompletionStream(schema.StreamReaderFromArray(msgs))

	var events []event.Event
	p := NewProcessor(nil, nil, nil, nil)
	result, err := p.consumeStream(context.Background(), "s1", stream, func(ev event.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	return events, result
}

func joinedText(events []event.Event) string {
	out := ""
	for _, ev := range events {
		if ev.Type == event.Text {
			out += ev.Data.(event.TextData).Delta
		}
	}
	return out
}

func TestConsumeStream_PlainText(t *testing.T) {
	events, result := runConsume(t, "hello ", "there")

	assert.Equal(t, "hello there", joinedText(events))
	assert.Equal(t, "hello there", result.content)
	assert.Empty(t, result.blocks)
}

func TestConsumeStream_CompletedBlock(t *testing.T) {
	events, result := runConsume(t,
		"before [DOMAIN_SUMMARY]\nDomain: Health\n",
		"[/DOMAIN_SUMMARY] after")

	assert.Equal(t, "before  after", joinedText(events))
	require.Len(t, result.blocks, 1)
	ds := result.blocks[0].Block.(*parser.DomainSummary)
	assert.Equal(t, "Health", ds.Domain)
}

func TestConsumeStream_UnterminatedBlockDegrades(t *testing.T) {
	events, _ := runConsume(t, "some prose [SESSION_SUMMARY]\nDate: 2026-09-01")

	// The open tag never closes, so its raw text is delivered at end of
	// stream without repeating the prose already sent.
	assert.Equal(t, "some prose [SESSION_SUMMARY]\nDate: 2026-09-01", joinedText(events))
}

func TestConsumeStream_CompletedThenUnterminated(t *testing.T) {
	events, result := runConsume(t,
		"intro [DOMAIN_SUMMARY]\nDomain: Health\n",
		"[/DOMAIN_SUMMARY] middle [SESSION_SUMMARY]\nDate: 2026-09-01")

	// The completed block stays a block. Only the unterminated tail
	// degrades to raw text, and no earlier delta is emitted twice.
	assert.Equal(t, "intro  middle [SESSION_SUMMARY]\nDate: 2026-09-01", joinedText(events))
	require.Len(t, result.blocks, 1)
	_, ok := result.blocks[0].Block.(*parser.DomainSummary)
	assert.True(t, ok)
}
