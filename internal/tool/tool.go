// Package tool provides the tool execution sandbox: the five actions the
// model may request mid-stream, validated and executed under the
// session-type write-permission table and a per-request call budget.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/sagelabs/sage/pkg/types"
)

// Tool names recognized by the sandbox.
const (
	NamePersistDocument = "persist_document"
	NameCompleteSession = "complete_session"
	NameEnterArc        = "enter_structured_arc"
	NameRequestPulseUI  = "request_pulse_ui"
	NameRequestOptionUI = "request_option_ui"
)

// Error codes returned to the model in failure results. They are stable
// machine-readable strings so a caller can distinguish an idempotent
// retry from a real failure.
const (
	CodeInvalidInput     = "invalid_input"
	CodePermissionDenied = "permission_denied"
	CodeRateLimited      = "rate_limited"
	CodeAlreadyTerminal  = "already_terminal"
	CodeUnknownTool      = "unknown_tool"
)

// Signal tells the orchestration loop about a state change the tool
// produced. Split-conversation signals terminate the current round.
type Signal string

const (
	SignalNone             Signal = ""
	SignalSessionCompleted Signal = "session_completed"
	SignalArcEntered       Signal = "arc_entered"
	SignalArcCompleted     Signal = "arc_completed"
	SignalShowPulse        Signal = "show_pulse"
	SignalShowOptions      Signal = "show_options"
)

// SplitsConversation reports whether the signal ends the current
// generation turn for a human-driven UI interaction.
func (s Signal) SplitsConversation() bool {
	return s == SignalShowPulse || s == SignalShowOptions
}

// Result is the structured outcome of a tool execution. Failures are
// values the model can see and recover from, never panics.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Data    map[string]any `json:"data,omitempty"`

	Signal Signal `json:"-"`
}

// Output renders the result as the tool-result text returned to the model.
func (r *Result) Output() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"code":"internal"}`
	}
	return string(data)
}

// Fail builds a failure result.
func Fail(code, format string, args ...any) *Result {
	return &Result{Success: false, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Context carries the acting user and session state into a tool
// execution. It is built per request from the session row.
type Context struct {
	User      string
	SessionID string
	BaseType  types.SessionType
	ActiveArc *types.ArcType
	Meta      types.SessionMeta
}

// EffectiveType is the active arc if one is set, else the base type.
func (c *Context) EffectiveType() types.SessionType {
	if c.ActiveArc != nil {
		return types.SessionType(*c.ActiveArc)
	}
	return c.BaseType
}

// Tool is one sandbox action.
type Tool interface {
	// Name returns the tool identifier.
	Name() string

	// Description returns the tool description shown to the model.
	Description() string

	// Parameters returns the JSON Schema for tool parameters.
	Parameters() json.RawMessage

	// Execute runs the tool. Malformed input yields a failure Result;
	// only unrecoverable storage errors are returned as errors.
	Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)
}

// ToolInfos converts the sandbox tools into eino tool definitions for
// binding to the chat model.
func ToolInfos(tools []Tool) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, &schema.ToolInfo{
			Name:        t.Name(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(parseJSONSchemaToParams(t.Parameters())),
		})
	}
	return infos
}

// parseJSONSchemaToParams converts JSON Schema to eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
