package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sagelabs/sage/pkg/types"
)

// Lifecycle is the session lifecycle controller surface the sandbox
// needs. Implemented by the session service.
type Lifecycle interface {
	// CompleteSession marks the session completed and returns the next
	// check-in time. Completing an already-terminal session returns a
	// TerminalStatusError.
	CompleteSession(ctx context.Context, sessionID string) (time.Time, error)

	// CompleteArc closes the active structured arc and returns its type.
	CompleteArc(ctx context.Context, sessionID string) (types.ArcType, error)

	// EnterArc activates a structured arc inside a conversation session.
	EnterArc(ctx context.Context, sessionID string, arc types.ArcType) error
}

// Lifecycle failure modes the sandbox translates into structured results.
var (
	ErrNoActiveArc      = errors.New("no active structured arc")
	ErrArcAlreadyActive = errors.New("a structured arc is already active")
	ErrNotConversation  = errors.New("structured arcs can only be entered from an open-ended conversation")
)

// TerminalStatusError reports a completion attempt on a session that has
// already reached a terminal status. Callers treat it as an idempotent
// no-op, not a failure.
type TerminalStatusError struct {
	Status types.SessionStatus
}

func (e *TerminalStatusError) Error() string {
	return fmt.Sprintf("session already %s", e.Status)
}

func newCaptureID() string {
	return strings.ToLower(ulid.Make().String())
}
