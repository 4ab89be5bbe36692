package tool

import (
	"context"
	"encoding/json"

	"github.com/sagelabs/sage/internal/logging"
)

// MaxCallsPerRequest bounds the number of tool calls one request may
// make, so a runaway agentic loop cannot spin forever inside one HTTP
// request.
const MaxCallsPerRequest = 15

// Executor dispatches tool calls for one request. It is request-scoped:
// the call counter lives on the executor, not in process-global state, so
// concurrent requests cannot interfere.
type Executor struct {
	tools map[string]Tool
	limit int
	calls int
}

// NewExecutor builds a request-scoped executor over the given tools.
func NewExecutor(tools ...Tool) *Executor {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name()] = t
	}
	return &Executor{tools: m, limit: MaxCallsPerRequest}
}

// WithLimit overrides the call budget (tests only).
func (e *Executor) WithLimit(n int) *Executor {
	e.limit = n
	return e
}

// Calls returns the number of calls made so far.
func (e *Executor) Calls() int { return e.calls }

// Execute validates and runs one tool call. Malformed input, permission
// denials and budget exhaustion come back as failure Results the model
// can react to; only storage errors that survived the store's retry
// budget are returned as errors.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage, toolCtx *Context) (*Result, error) {
	e.calls++
	if e.calls > e.limit {
		return Fail(CodeRateLimited, "tool call limit of %d per request exceeded", e.limit), nil
	}

	t, ok := e.tools[name]
	if !ok {
		return Fail(CodeUnknownTool, "unknown tool %q", name), nil
	}

	result, err := t.Execute(ctx, input, toolCtx)
	if err != nil {
		logging.Error().Err(err).Str("tool", name).Str("session", toolCtx.SessionID).Msg("tool execution failed")
		return nil, err
	}

	if !result.Success {
		logging.Debug().
			Str("tool", name).
			Str("code", result.Code).
			Str("session", toolCtx.SessionID).
			Msg(result.Message)
	}
	return result, nil
}

// Tools returns the registered tools, in no particular order; used to
// build model tool bindings.
func (e *Executor) Tools() []Tool {
	out := make([]Tool, 0, len(e.tools))
	for _, t := range e.tools {
		out = append(out, t)
	}
	return out
}
