package event

import "github.com/sagelabs/sage/pkg/types"

// TextData is the data for text delta events.
type TextData struct {
	SessionID string `json:"sessionID"`
	Delta     string `json:"delta"`
}

// ToolCallData is the data for tool_call events.
type ToolCallData struct {
	SessionID string `json:"sessionID"`
	CallID    string `json:"callID"`
	Tool      string `json:"tool"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// RoundBoundaryData marks the end of one model round within a request.
type RoundBoundaryData struct {
	SessionID string `json:"sessionID"`
	Round     int    `json:"round"`
}

// SessionCompletedData is the data for session_completed events.
type SessionCompletedData struct {
	SessionID   string `json:"sessionID"`
	NextCheckIn string `json:"nextCheckIn,omitempty"`
}

// ModeChangeData is the data for mode_change events (a structured arc was
// entered).
type ModeChangeData struct {
	SessionID string        `json:"sessionID"`
	Mode      types.ArcType `json:"mode"`
}

// ArcCompletedData is the data for arc_completed events.
type ArcCompletedData struct {
	SessionID string        `json:"sessionID"`
	Mode      types.ArcType `json:"mode"`
}

// DomainUpdateData is the data for domain_update events (a domain document
// was written).
type DomainUpdateData struct {
	SessionID string `json:"sessionID"`
	Domain    string `json:"domain"`
	Path      string `json:"path"`
	Status    string `json:"status,omitempty"`
}

// ShowPulseCheckData asks the client to render a pulse-check control and
// resume with the user's rating.
type ShowPulseCheckData struct {
	SessionID string `json:"sessionID"`
	Prompt    string `json:"prompt"`
}

// ShowOptionsData asks the client to render an option picker and resume
// with the user's selection.
type ShowOptionsData struct {
	SessionID string   `json:"sessionID"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
}

// BlockPendingData reports that a structured block is open but not yet
// closed in the stream, so the client can show a provisional indicator.
type BlockPendingData struct {
	SessionID string `json:"sessionID"`
	BlockType string `json:"blockType"`
}

// DocumentSavedData is the data for document_saved events.
type DocumentSavedData struct {
	SessionID string `json:"sessionID"`
	Path      string `json:"path"`
	Version   int    `json:"version"`
}
