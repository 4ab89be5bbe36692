// Package types provides the core data types for the sage engine.
package types

import "time"

// SessionType identifies the flavor of a conversational session.
type SessionType string

const (
	SessionMapping       SessionType = "mapping"
	SessionWeeklyCheckin SessionType = "weekly_checkin"
	SessionConversation  SessionType = "conversation"
	SessionCloseDay      SessionType = "close_day"
	SessionOpenDay       SessionType = "open_day"
	SessionQuickCapture  SessionType = "quick_capture"
)

// KnownSessionType reports whether t is one of the fixed session types.
func KnownSessionType(t SessionType) bool {
	switch t {
	case SessionMapping, SessionWeeklyCheckin, SessionConversation,
		SessionCloseDay, SessionOpenDay, SessionQuickCapture:
		return true
	}
	return false
}

// ArcType identifies a structured arc nested inside an open-ended
// conversation. Arc types are the session types that also exist as
// standalone flows, minus the two that only make sense as base sessions.
type ArcType string

const (
	ArcCloseDay      ArcType = "close_day"
	ArcOpenDay       ArcType = "open_day"
	ArcQuickCapture  ArcType = "quick_capture"
	ArcWeeklyCheckin ArcType = "weekly_checkin"
)

// KnownArcType reports whether t is one of the four enterable arcs.
func KnownArcType(t ArcType) bool {
	switch t {
	case ArcCloseDay, ArcOpenDay, ArcQuickCapture, ArcWeeklyCheckin:
		return true
	}
	return false
}

// SessionStatus is the lifecycle state of a session. Transitions are
// one-directional: active moves to exactly one terminal state.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
	StatusExpired   SessionStatus = "expired"
)

// Terminal reports whether s is a terminal status.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned || s == StatusExpired
}

// CompletedArc records one structured arc that ran to completion inside a
// conversation session.
type CompletedArc struct {
	Mode        ArcType   `json:"mode"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionMeta is the free-form metadata carried by a session. ActiveMode and
// PendingCompletion are owned by the lifecycle controller; Extra passes
// through untouched.
type SessionMeta struct {
	ActiveMode        *ArcType       `json:"active_mode,omitempty"`
	CompletedArcs     []CompletedArc `json:"completed_arcs,omitempty"`
	PendingCompletion bool           `json:"pending_completion,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// Session represents one continuous conversational unit.
type Session struct {
	ID          string        `json:"id"`
	User        string        `json:"user"`
	Type        SessionType   `json:"type"`
	Status      SessionStatus `json:"status"`
	Meta        SessionMeta   `json:"meta"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// EffectiveType resolves the type used for permission lookups: the active
// structured arc if one is set, else the base session type.
func (s *Session) EffectiveType() SessionType {
	if s.Meta.ActiveMode != nil {
		return SessionType(*s.Meta.ActiveMode)
	}
	return s.Type
}
