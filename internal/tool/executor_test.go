package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool records executions and returns a canned outcome.
type stubTool struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return s.name }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }

func (s *stubTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestExecutor_DispatchesByName(t *testing.T) {
	a := &stubTool{name: "a", result: &Result{Success: true, Message: "a ran"}}
	b := &stubTool{name: "b", result: &Result{Success: true, Message: "b ran"}}
	exec := NewExecutor(a, b)

	res, err := exec.Execute(context.Background(), "b", nil, &Context{SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, "b ran", res.Message)
	assert.Zero(t, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, exec.Calls())
}

func TestExecutor_UnknownTool(t *testing.T) {
	exec := NewExecutor()

	res, err := exec.Execute(context.Background(), "launch_rockets", nil, &Context{SessionID: "s"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeUnknownTool, res.Code)
}

func TestExecutor_CallBudget(t *testing.T) {
	stub := &stubTool{name: "a", result: &Result{Success: true}}
	exec := NewExecutor(stub).WithLimit(3)
	ctx := context.Background()
	toolCtx := &Context{SessionID: "s"}

	for i := 0; i < 3; i++ {
		res, err := exec.Execute(ctx, "a", nil, toolCtx)
		require.NoError(t, err)
		assert.True(t, res.Success, "call %d", i)
	}

	res, err := exec.Execute(ctx, "a", nil, toolCtx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeRateLimited, res.Code)
	assert.Equal(t, 3, stub.calls)

	// Budget failures still count as calls so the limit cannot be
	// probed indefinitely.
	assert.Equal(t, 4, exec.Calls())
}

func TestExecutor_BudgetIsRequestScoped(t *testing.T) {
	stub := &stubTool{name: "a", result: &Result{Success: true}}
	first := NewExecutor(stub).WithLimit(1)

	_, err := first.Execute(context.Background(), "a", nil, &Context{SessionID: "s"})
	require.NoError(t, err)
	res, err := first.Execute(context.Background(), "a", nil, &Context{SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, CodeRateLimited, res.Code)

	second := NewExecutor(stub).WithLimit(1)
	res, err = second.Execute(context.Background(), "a", nil, &Context{SessionID: "s"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestExecutor_PropagatesStorageErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	exec := NewExecutor(&stubTool{name: "a", err: boom})

	_, err := exec.Execute(context.Background(), "a", nil, &Context{SessionID: "s"})
	assert.ErrorIs(t, err, boom)
}

func TestResult_Output(t *testing.T) {
	res := Fail(CodePermissionDenied, "no")
	out := res.Output()

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, CodePermissionDenied, decoded["code"])
	assert.NotContains(t, out, "signal")
}

func TestToolInfos(t *testing.T) {
	tools := []Tool{
		NewRequestPulseUITool(),
		NewRequestOptionUITool(),
	}

	infos := ToolInfos(tools)
	require.Len(t, infos, 2)
	for i, info := range infos {
		assert.Equal(t, tools[i].Name(), info.Name, fmt.Sprintf("info %d", i))
		assert.NotEmpty(t, info.Desc)
	}
}
