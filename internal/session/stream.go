package session

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/parser"
	"github.com/sagelabs/sage/internal/provider"
)

// roundResult is what one model round produced.
type roundResult struct {
	content      string
	toolCalls    []schema.ToolCall
	blocks       []parser.CompletedBlock
	finishReason string
}

// consumeStream reads one completion stream to the end, forwarding
// display-safe text deltas in strict arrival order and collecting tool
// calls and completed structured blocks.
func (p *Processor) consumeStream(ctx context.Context, sessionID string, stream *provider.CompletionStream, emit EmitFunc) (*roundResult, error) {
	var buf strings.Builder
	displayed := 0
	pendingReported := parser.BlockType("")

	var callOrder []string
	calls := make(map[string]*schema.ToolCall)
	lastCallID := ""

	var finishReason string

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if msg.Content != "" {
			buf.WriteString(msg.Content)
			res := parser.ParseStream(buf.String())

			if len(res.Display) > displayed {
				delta := res.Display[displayed:]
				displayed = len(res.Display)
				emit(event.Event{
					Type: event.Text,
					Data: event.TextData{SessionID: sessionID, Delta: delta},
				})
			}

			if res.Pending && res.PendingType != pendingReported {
				pendingReported = res.PendingType
				emit(event.Event{
					Type: event.BlockPending,
					Data: event.BlockPendingData{SessionID: sessionID, BlockType: string(res.PendingType)},
				})
			}
			if !res.Pending {
				pendingReported = ""
			}
		}

		for _, tc := range msg.ToolCalls {
			id := tc.ID
			if id == "" {
				id = lastCallID
			}
			if id == "" {
				continue
			}

			call, ok := calls[id]
			if !ok {
				copied := tc
				copied.ID = id
				calls[id] = &copied
				callOrder = append(callOrder, id)
			} else {
				if tc.Function.Name != "" {
					call.Function.Name = tc.Function.Name
				}
				call.Function.Arguments += tc.Function.Arguments
			}
			lastCallID = id
		}

		if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason != "" {
			finishReason = msg.ResponseMeta.FinishReason
		}
	}

	content := buf.String()
	final := parser.ParseStream(content)

	// At end of stream nothing held back can become a tag anymore. An
	// unterminated block degrades to plain text from its open tag on;
	// prose already streamed is not re-emitted.
	finalDisplay := fullDisplay(content)
	if final.Pending {
		finalDisplay = final.Display + content[final.PendingStart:]
	}
	if len(finalDisplay) > displayed {
		emit(event.Event{
			Type: event.Text,
			Data: event.TextData{SessionID: sessionID, Delta: finalDisplay[displayed:]},
		})
	}

	result := &roundResult{
		content:      content,
		blocks:       final.Blocks,
		finishReason: finishReason,
	}
	for _, id := range callOrder {
		result.toolCalls = append(result.toolCalls, *calls[id])
	}
	return result, nil
}

// fullDisplay is the prose of a finished message: the concatenated text
// segments, with an unterminated block degraded to its raw text.
func fullDisplay(content string) string {
	var b strings.Builder
	for _, seg := range parser.ParseMessage(content) {
		if seg.Kind == parser.SegmentText {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
