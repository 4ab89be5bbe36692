package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/parser"
	"github.com/sagelabs/sage/pkg/types"
)

func TestDetectTerminalSignal(t *testing.T) {
	tests := []struct {
		name      string
		effective types.SessionType
		obs       RoundObservation
		want      TerminalSignal
	}{
		{
			"mapping completes on synthesis block",
			types.SessionMapping,
			RoundObservation{Blocks: []parser.Block{&parser.LifeMapSynthesis{Narrative: "done"}}},
			TerminalDone,
		},
		{
			"mapping keeps going on domain summaries alone",
			types.SessionMapping,
			RoundObservation{Blocks: []parser.Block{&parser.DomainSummary{Domain: "Health"}}},
			TerminalNone,
		},
		{
			"weekly check-in completes on check-in document",
			types.SessionWeeklyCheckin,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyCheckIn}},
			TerminalDone,
		},
		{
			"weekly check-in completes on overview document",
			types.SessionWeeklyCheckin,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyOverview}},
			TerminalDone,
		},
		{
			"open day completes on day plan",
			types.SessionOpenDay,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyDayPlan}},
			TerminalDone,
		},
		{
			"quick capture completes on capture",
			types.SessionQuickCapture,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyCapture}},
			TerminalDone,
		},
		{
			"close day goes pending on daily log",
			types.SessionCloseDay,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyDailyLog}},
			TerminalPending,
		},
		{
			"close day stays open without artifact",
			types.SessionCloseDay,
			RoundObservation{},
			TerminalNone,
		},
		{
			"conversation never auto-completes",
			types.SessionConversation,
			RoundObservation{SavedFamilies: []types.Family{types.FamilyDailyLog, types.FamilyDayPlan}},
			TerminalNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTerminalSignal(tt.effective, tt.obs))
		})
	}
}

func TestObserveRound_TwoPhaseCompletion(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionCloseDay)
	require.NoError(t, err)

	// Round one: the daily log lands, the session goes pending.
	completed, err := svc.ObserveRound(ctx, session.ID, TerminalPending, false)
	require.NoError(t, err)
	assert.False(t, completed)

	stored, err := cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Meta.PendingCompletion)
	assert.Equal(t, types.StatusActive, stored.Status)

	// Round two: quiet turn, no artifact and no options. Completes.
	completed, err = svc.ObserveRound(ctx, session.ID, TerminalNone, false)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err = cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, stored.Status)
	assert.False(t, stored.Meta.PendingCompletion)
}

func TestObserveRound_OptionsKeepPendingSessionAlive(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionCloseDay)
	require.NoError(t, err)

	_, err = svc.ObserveRound(ctx, session.ID, TerminalPending, false)
	require.NoError(t, err)

	// The model offered more options; the marker stays, the session lives.
	completed, err := svc.ObserveRound(ctx, session.ID, TerminalNone, true)
	require.NoError(t, err)
	assert.False(t, completed)

	stored, err := cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, stored.Status)
	assert.True(t, stored.Meta.PendingCompletion)

	// Artifact reappearing also keeps it alive.
	completed, err = svc.ObserveRound(ctx, session.ID, TerminalPending, false)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestObserveRound_CompleteSignal(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionMapping)
	require.NoError(t, err)

	completed, err := svc.ObserveRound(ctx, session.ID, TerminalDone, false)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err := cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, stored.Status)
}

func TestObserveRound_CompleteSignalPublishesEvent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	event.Reset()
	t.Cleanup(event.Reset)

	session, err := svc.Create(ctx, "u1", types.SessionMapping)
	require.NoError(t, err)

	received := make(chan event.Event, 1)
	unsub := event.Subscribe(event.SessionCompleted, func(e event.Event) {
		received <- e
	})
	defer unsub()

	completed, err := svc.ObserveRound(ctx, session.ID, TerminalDone, false)
	require.NoError(t, err)
	require.True(t, completed)

	select {
	case e := <-received:
		data := e.Data.(event.SessionCompletedData)
		assert.Equal(t, session.ID, data.SessionID)
		assert.NotEmpty(t, data.NextCheckIn)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session_completed")
	}
}

func TestObserveRound_ArcCompleteSignalPublishesEvent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	event.Reset()
	t.Cleanup(event.Reset)

	session, err := svc.Create(ctx, "u1", types.SessionConversation)
	require.NoError(t, err)
	require.NoError(t, svc.EnterArc(ctx, session.ID, types.ArcOpenDay))

	received := make(chan event.Event, 1)
	unsub := event.Subscribe(event.ArcCompleted, func(e event.Event) {
		received <- e
	})
	defer unsub()

	_, err = svc.ObserveRound(ctx, session.ID, TerminalDone, false)
	require.NoError(t, err)

	select {
	case e := <-received:
		data := e.Data.(event.ArcCompletedData)
		assert.Equal(t, session.ID, data.SessionID)
		assert.Equal(t, types.ArcOpenDay, data.Mode)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for arc_completed")
	}
}

func TestObserveRound_IdempotentOnTerminalSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionMapping)
	require.NoError(t, err)
	_, err = svc.CompleteSession(ctx, session.ID)
	require.NoError(t, err)

	// The scan after a model-driven complete_session observes the
	// terminal state and does nothing.
	completed, err := svc.ObserveRound(ctx, session.ID, TerminalDone, false)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestObserveRound_ArcCompletesInsteadOfSession(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionConversation)
	require.NoError(t, err)
	require.NoError(t, svc.EnterArc(ctx, session.ID, types.ArcOpenDay))

	completed, err := svc.ObserveRound(ctx, session.ID, TerminalDone, false)
	require.NoError(t, err)
	assert.False(t, completed)

	stored, err := cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, stored.Status)
	assert.Nil(t, stored.Meta.ActiveMode)
	require.Len(t, stored.Meta.CompletedArcs, 1)
	assert.Equal(t, types.ArcOpenDay, stored.Meta.CompletedArcs[0].Mode)
}

func TestObserveRound_ArcTwoPhase(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u1", types.SessionConversation)
	require.NoError(t, err)
	require.NoError(t, svc.EnterArc(ctx, session.ID, types.ArcCloseDay))

	_, err = svc.ObserveRound(ctx, session.ID, TerminalPending, false)
	require.NoError(t, err)

	stored, err := cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Meta.PendingCompletion)
	require.NotNil(t, stored.Meta.ActiveMode)

	_, err = svc.ObserveRound(ctx, session.ID, TerminalNone, false)
	require.NoError(t, err)

	stored, err = cat.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Meta.ActiveMode)
	assert.False(t, stored.Meta.PendingCompletion)
	assert.Equal(t, types.StatusActive, stored.Status)
	require.Len(t, stored.Meta.CompletedArcs, 1)
}

func TestFamilyForPath(t *testing.T) {
	tests := []struct {
		path string
		want types.Family
	}{
		{"life-map/overview.md", types.FamilyOverview},
		{"life-map/domains/health.md", types.FamilyDomain},
		{"life-plan/plan.md", types.FamilyLifePlan},
		{"check-ins/2026-09-01.md", types.FamilyCheckIn},
		{"sage-context/core.md", types.FamilySageContext},
		{"sage-context/patterns.md", types.FamilyPatterns},
		{"daily-logs/2026-09-01.md", types.FamilyDailyLog},
		{"day-plans/2026-09-01.md", types.FamilyDayPlan},
		{"captures/2026-09-01-idea.md", types.FamilyCapture},
		{"elsewhere/file.md", types.Family("")},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FamilyForPath(tt.path), tt.path)
	}
}
