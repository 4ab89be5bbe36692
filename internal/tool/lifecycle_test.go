package tool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelabs/sage/pkg/types"
)

// fakeLifecycle scripts the session service's responses.
type fakeLifecycle struct {
	nextCheckIn time.Time
	completeErr error

	completedArc   types.ArcType
	completeArcErr error
	enteredArc     types.ArcType
	enterArcErr    error
	completeCalls  int
	arcCalls       int
	enterCalls     int
}

func (f *fakeLifecycle) CompleteSession(ctx context.Context, sessionID string) (time.Time, error) {
	f.completeCalls++
	return f.nextCheckIn, f.completeErr
}

func (f *fakeLifecycle) CompleteArc(ctx context.Context, sessionID string) (types.ArcType, error) {
	f.arcCalls++
	return f.completedArc, f.completeArcErr
}

func (f *fakeLifecycle) EnterArc(ctx context.Context, sessionID string, arc types.ArcType) error {
	f.enterCalls++
	f.enteredArc = arc
	return f.enterArcErr
}

func TestCompleteSession_Session(t *testing.T) {
	next := time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)
	lc := &fakeLifecycle{nextCheckIn: next}
	tl := NewCompleteSessionTool(lc)

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"type":"session"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SignalSessionCompleted, res.Signal)
	assert.Equal(t, next.Format(time.RFC3339), res.Data["next_check_in"])
	assert.Equal(t, 1, lc.completeCalls)
}

func TestCompleteSession_AlreadyTerminalIsIdempotent(t *testing.T) {
	lc := &fakeLifecycle{completeErr: &TerminalStatusError{Status: types.StatusCompleted}}
	tl := NewCompleteSessionTool(lc)

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"type":"session"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeAlreadyTerminal, res.Code)
	assert.Contains(t, res.Message, "completed")
	assert.Equal(t, SignalNone, res.Signal)
}

func TestCompleteSession_Arc(t *testing.T) {
	lc := &fakeLifecycle{completedArc: types.ArcCloseDay}
	tl := NewCompleteSessionTool(lc)

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"type":"arc"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SignalArcCompleted, res.Signal)
	assert.Equal(t, "close_day", res.Data["mode"])
}

func TestCompleteSession_ArcWithoutActiveArc(t *testing.T) {
	lc := &fakeLifecycle{completeArcErr: ErrNoActiveArc}
	tl := NewCompleteSessionTool(lc)

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"type":"arc"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidInput, res.Code)
}

func TestCompleteSession_BadType(t *testing.T) {
	tl := NewCompleteSessionTool(&fakeLifecycle{})

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"type":"everything"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidInput, res.Code)
}

func TestEnterArc(t *testing.T) {
	lc := &fakeLifecycle{}
	tl := NewEnterArcTool(lc)

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"arc_type":"open_day"}`), &Context{SessionID: "s1", BaseType: types.SessionConversation})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SignalArcEntered, res.Signal)
	assert.Equal(t, types.ArcOpenDay, lc.enteredArc)
}

func TestEnterArc_Failures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		err      error
		wantCode string
	}{
		{"unknown arc", `{"arc_type":"nap_time"}`, nil, CodeInvalidInput},
		{"not a conversation", `{"arc_type":"close_day"}`, ErrNotConversation, CodeInvalidInput},
		{"arc already active", `{"arc_type":"close_day"}`, ErrArcAlreadyActive, CodeInvalidInput},
		{"terminal session", `{"arc_type":"close_day"}`, &TerminalStatusError{Status: types.StatusAbandoned}, CodeAlreadyTerminal},
	}

	for _, tt := range tests {
		lc := &fakeLifecycle{enterArcErr: tt.err}
		tl := NewEnterArcTool(lc)

		res, err := tl.Execute(context.Background(), json.RawMessage(tt.input), &Context{SessionID: "s1", BaseType: types.SessionMapping})
		require.NoError(t, err, tt.name)
		assert.False(t, res.Success, tt.name)
		assert.Equal(t, tt.wantCode, res.Code, tt.name)
	}
}

func TestPulseUI(t *testing.T) {
	tl := NewRequestPulseUITool()

	res, err := tl.Execute(context.Background(), json.RawMessage(`{"prompt":"How's your energy?"}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SignalShowPulse, res.Signal)
	assert.True(t, res.Signal.SplitsConversation())

	res, err = tl.Execute(context.Background(), json.RawMessage(`{"prompt":"  "}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidInput, res.Code)
}

func TestOptionUI(t *testing.T) {
	tl := NewRequestOptionUITool()
	ctx := context.Background()

	res, err := tl.Execute(ctx, json.RawMessage(`{"prompt":"Pick a focus","options":["rest","work","play"]}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SignalShowOptions, res.Signal)
	assert.True(t, res.Signal.SplitsConversation())

	tooFew, err := tl.Execute(ctx, json.RawMessage(`{"prompt":"p","options":["only"]}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidInput, tooFew.Code)

	tooMany, err := tl.Execute(ctx, json.RawMessage(`{"prompt":"p","options":["1","2","3","4","5","6","7"]}`), &Context{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidInput, tooMany.Code)
}

func TestLifecycleSignalsSplitTable(t *testing.T) {
	assert.False(t, SignalNone.SplitsConversation())
	assert.False(t, SignalSessionCompleted.SplitsConversation())
	assert.False(t, SignalArcEntered.SplitsConversation())
	assert.False(t, SignalArcCompleted.SplitsConversation())
}
