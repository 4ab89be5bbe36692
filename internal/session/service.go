// Package session provides the session lifecycle controller and the
// orchestration loop that drives one request through the model stream,
// the block parser and the tool sandbox.
package session

import (
	"context"
	"time"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/internal/tool"
	"github.com/sagelabs/sage/pkg/types"
)

// NextCheckInCadence is the default interval suggested to the user after
// completing a session.
const NextCheckInCadence = 7 * 24 * time.Hour

// Service is the session lifecycle controller. It owns all status and
// arc transitions; everything else reads session rows through it.
type Service struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewService creates a session service over the catalog.
func NewService(cat *catalog.Catalog) *Service {
	return &Service{catalog: cat, now: time.Now}
}

// Create starts a new active session.
func (s *Service) Create(ctx context.Context, user string, typ types.SessionType) (*types.Session, error) {
	return s.catalog.CreateSession(ctx, user, typ)
}

// Get retrieves a session by id.
func (s *Service) Get(ctx context.Context, id string) (*types.Session, error) {
	return s.catalog.GetSession(ctx, id)
}

// List returns a user's sessions, newest first.
func (s *Service) List(ctx context.Context, user string) ([]*types.Session, error) {
	return s.catalog.ListSessions(ctx, user)
}

// CompleteSession marks the session completed and returns the suggested
// next check-in time. Completing an already-terminal session returns a
// TerminalStatusError so callers can treat the retry as a no-op.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (time.Time, error) {
	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}
	if session.Status.Terminal() {
		return time.Time{}, &tool.TerminalStatusError{Status: session.Status}
	}

	now := s.now()
	session.Status = types.StatusCompleted
	session.CompletedAt = &now
	session.Meta.PendingCompletion = false

	if err := s.catalog.UpdateSession(ctx, session); err != nil {
		return time.Time{}, err
	}

	logging.Info().Str("session", sessionID).Msg("session completed")
	return now.Add(NextCheckInCadence), nil
}

// CompleteArc closes the active structured arc, records it in
// completed_arcs and returns control to the base conversation.
func (s *Service) CompleteArc(ctx context.Context, sessionID string) (types.ArcType, error) {
	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Status.Terminal() {
		return "", &tool.TerminalStatusError{Status: session.Status}
	}
	if session.Meta.ActiveMode == nil {
		return "", tool.ErrNoActiveArc
	}

	mode := *session.Meta.ActiveMode
	session.Meta.ActiveMode = nil
	session.Meta.PendingCompletion = false
	session.Meta.CompletedArcs = append(session.Meta.CompletedArcs, types.CompletedArc{
		Mode:        mode,
		CompletedAt: s.now(),
	})

	if err := s.catalog.UpdateSession(ctx, session); err != nil {
		return "", err
	}

	logging.Info().Str("session", sessionID).Str("mode", string(mode)).Msg("arc completed")
	return mode, nil
}

// EnterArc activates a structured arc. Only legal from an open-ended
// conversation with no arc already active.
func (s *Service) EnterArc(ctx context.Context, sessionID string, arc types.ArcType) error {
	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return &tool.TerminalStatusError{Status: session.Status}
	}
	if session.Type != types.SessionConversation {
		return tool.ErrNotConversation
	}
	if session.Meta.ActiveMode != nil {
		return tool.ErrArcAlreadyActive
	}

	session.Meta.ActiveMode = &arc
	if err := s.catalog.UpdateSession(ctx, session); err != nil {
		return err
	}

	logging.Info().Str("session", sessionID).Str("mode", string(arc)).Msg("arc entered")
	return nil
}

// Abandon moves an active session to the abandoned terminal state.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	return s.terminate(ctx, sessionID, types.StatusAbandoned)
}

// Expire moves an active session to the expired terminal state.
func (s *Service) Expire(ctx context.Context, sessionID string) error {
	return s.terminate(ctx, sessionID, types.StatusExpired)
}

func (s *Service) terminate(ctx context.Context, sessionID string, status types.SessionStatus) error {
	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return &tool.TerminalStatusError{Status: session.Status}
	}

	now := s.now()
	session.Status = status
	session.CompletedAt = &now
	session.Meta.PendingCompletion = false

	return s.catalog.UpdateSession(ctx, session)
}

var _ tool.Lifecycle = (*Service)(nil)
