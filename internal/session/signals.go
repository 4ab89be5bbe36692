package session

import (
	"context"
	"strings"
	"time"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/parser"
	"github.com/sagelabs/sage/pkg/types"
)

// TerminalSignal is the outcome of the post-stream heuristic scan.
type TerminalSignal string

const (
	TerminalNone    TerminalSignal = "none"
	TerminalDone    TerminalSignal = "complete"
	TerminalPending TerminalSignal = "pending_completion"
)

// RoundObservation is what the orchestration loop saw in one round:
// structured blocks in the model output, document families persisted
// through the sandbox, and whether the model offered follow-up options.
type RoundObservation struct {
	Blocks         []parser.Block
	SavedFamilies  []types.Family
	OptionsOffered bool
}

func (o RoundObservation) hasBlock(typ parser.BlockType) bool {
	for _, b := range o.Blocks {
		if b.BlockType() == typ {
			return true
		}
	}
	return false
}

func (o RoundObservation) saved(family types.Family) bool {
	for _, f := range o.SavedFamilies {
		if f == family {
			return true
		}
	}
	return false
}

// DetectTerminalSignal scans what a round produced for the completion
// marker appropriate to the session's effective type. Close-day flows use
// the two-phase marker: their artifact yields pending_completion, and the
// following quiet turn completes the session.
func DetectTerminalSignal(effective types.SessionType, obs RoundObservation) TerminalSignal {
	switch effective {
	case types.SessionMapping:
		if obs.hasBlock(parser.BlockLifeMapSynthesis) {
			return TerminalDone
		}
	case types.SessionWeeklyCheckin:
		if obs.saved(types.FamilyCheckIn) || obs.saved(types.FamilyOverview) {
			return TerminalDone
		}
	case types.SessionOpenDay:
		if obs.saved(types.FamilyDayPlan) {
			return TerminalDone
		}
	case types.SessionQuickCapture:
		if obs.saved(types.FamilyCapture) {
			return TerminalDone
		}
	case types.SessionCloseDay:
		if obs.saved(types.FamilyDailyLog) {
			return TerminalPending
		}
	}
	return TerminalNone
}

// FamilyForPath maps a persisted document path back to its family for
// round observation.
func FamilyForPath(path string) types.Family {
	switch {
	case path == "life-map/overview.md":
		return types.FamilyOverview
	case strings.HasPrefix(path, "life-map/domains/"):
		return types.FamilyDomain
	case strings.HasPrefix(path, "life-plan/"):
		return types.FamilyLifePlan
	case strings.HasPrefix(path, "check-ins/"):
		return types.FamilyCheckIn
	case path == "sage-context/patterns.md":
		return types.FamilyPatterns
	case strings.HasPrefix(path, "sage-context/"):
		return types.FamilySageContext
	case strings.HasPrefix(path, "daily-logs/"):
		return types.FamilyDailyLog
	case strings.HasPrefix(path, "day-plans/"):
		return types.FamilyDayPlan
	case strings.HasPrefix(path, "captures/"):
		return types.FamilyCapture
	}
	return ""
}

// ObserveRound advances session state from one round's terminal signal.
// It is idempotent against sessions the model already completed through
// complete_session. Returns whether the session reached a terminal state
// this round.
//
// Two-phase completion: a pending signal sets the pending_completion
// marker; a later quiet round (no artifact, no options offered) with the
// marker set completes the session. Offering options keeps the marker and
// the session alive for another turn.
func (s *Service) ObserveRound(ctx context.Context, sessionID string, signal TerminalSignal, optionsOffered bool) (bool, error) {
	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session.Status.Terminal() {
		return true, nil
	}

	// Inside an arc the heuristic closes the arc, not the session.
	if session.Meta.ActiveMode != nil {
		return false, s.observeArcRound(ctx, session, signal, optionsOffered)
	}

	switch signal {
	case TerminalDone:
		next, err := s.CompleteSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		event.Publish(event.Event{
			Type: event.SessionCompleted,
			Data: event.SessionCompletedData{
				SessionID:   sessionID,
				NextCheckIn: next.Format(time.RFC3339),
			},
		})
		return true, nil

	case TerminalPending:
		if !session.Meta.PendingCompletion {
			session.Meta.PendingCompletion = true
			if err := s.catalog.UpdateSession(ctx, session); err != nil {
				return false, err
			}
		}
		return false, nil

	default:
		if session.Meta.PendingCompletion && !optionsOffered {
			next, err := s.CompleteSession(ctx, sessionID)
			if err != nil {
				return false, err
			}
			event.Publish(event.Event{
				Type: event.SessionCompleted,
				Data: event.SessionCompletedData{
					SessionID:   sessionID,
					NextCheckIn: next.Format(time.RFC3339),
				},
			})
			return true, nil
		}
		return false, nil
	}
}

// observeArcRound applies the terminal heuristic to the active arc.
func (s *Service) observeArcRound(ctx context.Context, session *types.Session, signal TerminalSignal, optionsOffered bool) error {
	switch signal {
	case TerminalDone:
		mode, err := s.CompleteArc(ctx, session.ID)
		if err != nil {
			return err
		}
		event.Publish(event.Event{
			Type: event.ArcCompleted,
			Data: event.ArcCompletedData{SessionID: session.ID, Mode: mode},
		})
		return nil

	case TerminalPending:
		if !session.Meta.PendingCompletion {
			session.Meta.PendingCompletion = true
			return s.catalog.UpdateSession(ctx, session)
		}
		return nil

	default:
		if session.Meta.PendingCompletion && !optionsOffered {
			mode, err := s.CompleteArc(ctx, session.ID)
			if err != nil {
				return err
			}
			event.Publish(event.Event{
				Type: event.ArcCompleted,
				Data: event.ArcCompletedData{SessionID: session.ID, Mode: mode},
			})
		}
		return nil
	}
}
