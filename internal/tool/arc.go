package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/pkg/types"
)

const enterArcDescription = `Enter a structured arc inside the current open-ended conversation.

Usage:
- arc_type must be one of close_day, open_day, quick_capture, weekly_checkin
- only one arc can be active at a time; complete it before entering another`

// EnterArcTool activates a structured arc within a conversation session.
type EnterArcTool struct {
	lifecycle Lifecycle
}

// EnterArcInput is the input for enter_structured_arc.
type EnterArcInput struct {
	ArcType string `json:"arc_type"`
}

// NewEnterArcTool creates the enter_structured_arc tool.
func NewEnterArcTool(lifecycle Lifecycle) *EnterArcTool {
	return &EnterArcTool{lifecycle: lifecycle}
}

func (t *EnterArcTool) Name() string        { return NameEnterArc }
func (t *EnterArcTool) Description() string { return enterArcDescription }

func (t *EnterArcTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"arc_type": {
				"type": "string",
				"description": "Arc to enter: close_day, open_day, quick_capture, or weekly_checkin"
			}
		},
		"required": ["arc_type"]
	}`)
}

func (t *EnterArcTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params EnterArcInput
	if err := json.Unmarshal(input, &params); err != nil {
		return Fail(CodeInvalidInput, "malformed enter_structured_arc input: %v", err), nil
	}

	arc := types.ArcType(strings.ToLower(strings.TrimSpace(params.ArcType)))
	if !types.KnownArcType(arc) {
		return Fail(CodeInvalidInput, "unknown arc_type %q", params.ArcType), nil
	}

	err := t.lifecycle.EnterArc(ctx, toolCtx.SessionID, arc)

	var terminal *TerminalStatusError
	switch {
	case errors.As(err, &terminal):
		return Fail(CodeAlreadyTerminal, "session already %s", terminal.Status), nil
	case errors.Is(err, ErrNotConversation):
		return Fail(CodeInvalidInput, "structured arcs can only be entered from an open-ended conversation (base type %q)", toolCtx.BaseType), nil
	case errors.Is(err, ErrArcAlreadyActive):
		return Fail(CodeInvalidInput, "a structured arc is already active; complete it first"), nil
	case err != nil:
		return nil, err
	}

	event.Publish(event.Event{
		Type: event.ModeChange,
		Data: event.ModeChangeData{SessionID: toolCtx.SessionID, Mode: arc},
	})

	return &Result{
		Success: true,
		Message: "entered " + string(arc) + " arc",
		Data:    map[string]any{"mode": string(arc)},
		Signal:  SignalArcEntered,
	}, nil
}
