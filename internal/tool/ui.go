package tool

import (
	"context"
	"encoding/json"
	"strings"
)

// The two split-conversation tools. The sandbox acknowledges them
// structurally and performs no storage mutation; the orchestration loop
// ends the current generation round, the client renders the control, and
// the user's selection comes back as the next turn.

const pulseDescription = `Ask the user for a quick 1-10 pulse rating before continuing.

The conversation pauses until the user responds.`

// RequestPulseUITool asks the client to render a pulse-check control.
type RequestPulseUITool struct{}

// PulseInput is the input for request_pulse_ui.
type PulseInput struct {
	Prompt string `json:"prompt"`
}

// NewRequestPulseUITool creates the request_pulse_ui tool.
func NewRequestPulseUITool() *RequestPulseUITool { return &RequestPulseUITool{} }

func (t *RequestPulseUITool) Name() string        { return NameRequestPulseUI }
func (t *RequestPulseUITool) Description() string { return pulseDescription }

func (t *RequestPulseUITool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {
				"type": "string",
				"description": "The question to show above the rating control"
			}
		},
		"required": ["prompt"]
	}`)
}

func (t *RequestPulseUITool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params PulseInput
	if err := json.Unmarshal(input, &params); err != nil {
		return Fail(CodeInvalidInput, "malformed request_pulse_ui input: %v", err), nil
	}
	if strings.TrimSpace(params.Prompt) == "" {
		return Fail(CodeInvalidInput, "prompt must not be empty"), nil
	}

	return &Result{
		Success: true,
		Message: "pulse check requested",
		Data:    map[string]any{"prompt": params.Prompt},
		Signal:  SignalShowPulse,
	}, nil
}

const optionsDescription = `Offer the user a set of options to choose from before continuing.

The conversation pauses until the user picks one.`

// RequestOptionUITool asks the client to render an option picker.
type RequestOptionUITool struct{}

// OptionInput is the input for request_option_ui.
type OptionInput struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// NewRequestOptionUITool creates the request_option_ui tool.
func NewRequestOptionUITool() *RequestOptionUITool { return &RequestOptionUITool{} }

func (t *RequestOptionUITool) Name() string        { return NameRequestOptionUI }
func (t *RequestOptionUITool) Description() string { return optionsDescription }

func (t *RequestOptionUITool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {
				"type": "string",
				"description": "The question to show above the options"
			},
			"options": {
				"type": "array",
				"description": "Between two and six short option labels"
			}
		},
		"required": ["prompt", "options"]
	}`)
}

func (t *RequestOptionUITool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params OptionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return Fail(CodeInvalidInput, "malformed request_option_ui input: %v", err), nil
	}
	if strings.TrimSpace(params.Prompt) == "" {
		return Fail(CodeInvalidInput, "prompt must not be empty"), nil
	}
	if len(params.Options) < 2 || len(params.Options) > 6 {
		return Fail(CodeInvalidInput, "options must contain between 2 and 6 entries, got %d", len(params.Options)), nil
	}

	return &Result{
		Success: true,
		Message: "options requested",
		Data: map[string]any{
			"prompt":  params.Prompt,
			"options": params.Options,
		},
		Signal: SignalShowOptions,
	}, nil
}
