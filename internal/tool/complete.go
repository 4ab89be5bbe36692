package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sagelabs/sage/internal/event"
)

const completeDescription = `Mark the current session or the active structured arc as complete.

Usage:
- type must be "session" or "arc"
- completing a session is final; completing an arc returns to the surrounding conversation`

// CompleteSessionTool finalizes a session or closes its active arc.
type CompleteSessionTool struct {
	lifecycle Lifecycle
}

// CompleteInput is the input for complete_session.
type CompleteInput struct {
	Type string `json:"type"`
}

// NewCompleteSessionTool creates the complete_session tool.
func NewCompleteSessionTool(lifecycle Lifecycle) *CompleteSessionTool {
	return &CompleteSessionTool{lifecycle: lifecycle}
}

func (t *CompleteSessionTool) Name() string        { return NameCompleteSession }
func (t *CompleteSessionTool) Description() string { return completeDescription }

func (t *CompleteSessionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"type": {
				"type": "string",
				"description": "What to complete: \"session\" or \"arc\""
			}
		},
		"required": ["type"]
	}`)
}

func (t *CompleteSessionTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params CompleteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return Fail(CodeInvalidInput, "malformed complete_session input: %v", err), nil
	}

	switch strings.ToLower(strings.TrimSpace(params.Type)) {
	case "session":
		return t.completeSession(ctx, toolCtx)
	case "arc":
		return t.completeArc(ctx, toolCtx)
	default:
		return Fail(CodeInvalidInput, `type must be "session" or "arc", got %q`, params.Type), nil
	}
}

func (t *CompleteSessionTool) completeSession(ctx context.Context, toolCtx *Context) (*Result, error) {
	nextCheckIn, err := t.lifecycle.CompleteSession(ctx, toolCtx.SessionID)

	var terminal *TerminalStatusError
	if errors.As(err, &terminal) {
		// Idempotent retry: name the current status so the caller can
		// tell this from a real failure.
		return Fail(CodeAlreadyTerminal, "session already %s", terminal.Status), nil
	}
	if err != nil {
		return nil, err
	}

	event.Publish(event.Event{
		Type: event.SessionCompleted,
		Data: event.SessionCompletedData{
			SessionID:   toolCtx.SessionID,
			NextCheckIn: nextCheckIn.Format(time.RFC3339),
		},
	})

	return &Result{
		Success: true,
		Message: "session completed",
		Data: map[string]any{
			"next_check_in": nextCheckIn.Format(time.RFC3339),
		},
		Signal: SignalSessionCompleted,
	}, nil
}

func (t *CompleteSessionTool) completeArc(ctx context.Context, toolCtx *Context) (*Result, error) {
	mode, err := t.lifecycle.CompleteArc(ctx, toolCtx.SessionID)

	var terminal *TerminalStatusError
	switch {
	case errors.As(err, &terminal):
		return Fail(CodeAlreadyTerminal, "session already %s", terminal.Status), nil
	case errors.Is(err, ErrNoActiveArc):
		return Fail(CodeInvalidInput, "no structured arc is active"), nil
	case err != nil:
		return nil, err
	}

	event.Publish(event.Event{
		Type: event.ArcCompleted,
		Data: event.ArcCompletedData{SessionID: toolCtx.SessionID, Mode: mode},
	})

	return &Result{
		Success: true,
		Message: "completed " + string(mode) + " arc",
		Data:    map[string]any{"mode": string(mode)},
		Signal:  SignalArcCompleted,
	}, nil
}
