package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/internal/provider"
	"github.com/sagelabs/sage/internal/tool"
	"github.com/sagelabs/sage/pkg/types"
)

const (
	// MaxRounds bounds the number of model rounds one request may run.
	// The tool sandbox additionally budgets individual calls.
	MaxRounds = 8
	// MaxRetries is the maximum number of retries for provider errors.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
)

// newRetryBackoff creates a jittered exponential backoff for transient
// provider errors, cancelable through the request context.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// runLoop executes the agentic loop for one request.
func (p *Processor) runLoop(ctx context.Context, req *ProcessRequest, emit EmitFunc) error {
	session, err := p.catalog.GetSession(ctx, req.SessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	if session.Status.Terminal() {
		return fmt.Errorf("session %s is already %s", session.ID, session.Status)
	}

	if err := p.catalog.RecordRequest(ctx, req.User, req.SessionID, time.Now()); err != nil {
		logging.Warn().Err(err).Str("session", req.SessionID).Msg("request log write failed")
	}

	prov, model, err := p.resolveModel(req)
	if err != nil {
		return err
	}

	exec := tool.NewExecutor(p.tools...)
	toolInfos := tool.ToolInfos(exec.Tools())

	messages := make([]*schema.Message, 0, len(req.Messages)+1)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: BuildSystemPrompt(session),
	})
	messages = append(messages, req.Messages...)

	maxTokens := model.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	var obs RoundObservation
	retryBackoff := newRetryBackoff(ctx)
	round := 0
	roundDone := false

	for !roundDone {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if round >= MaxRounds {
			return fmt.Errorf("max rounds exceeded for session %s", req.SessionID)
		}

		stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
			Model:     model.ID,
			Messages:  messages,
			Tools:     toolInfos,
			MaxTokens: maxTokens,
		})
		if err != nil {
			if !p.sleepRetry(ctx, retryBackoff) {
				return fmt.Errorf("provider error: %w", err)
			}
			continue
		}

		res, err := p.consumeStream(ctx, req.SessionID, stream, emit)
		stream.Close()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !p.sleepRetry(ctx, retryBackoff) {
				return fmt.Errorf("stream error: %w", err)
			}
			continue
		}
		retryBackoff.Reset()

		for _, cb := range res.blocks {
			obs.Blocks = append(obs.Blocks, cb.Block)
		}

		if len(res.toolCalls) == 0 {
			roundDone = true
		} else {
			messages = append(messages, &schema.Message{
				Role:      schema.Assistant,
				Content:   res.content,
				ToolCalls: res.toolCalls,
			})

			split, err := p.dispatchToolCalls(ctx, req, exec, res.toolCalls, &messages, &obs, emit)
			if err != nil {
				return err
			}
			if split {
				roundDone = true
			}
		}

		round++
		emit(event.Event{
			Type: event.RoundBoundary,
			Data: event.RoundBoundaryData{SessionID: req.SessionID, Round: round},
		})
	}

	return p.finishRequest(ctx, req, obs, emit)
}

// dispatchToolCalls runs the round's tool calls synchronously, in arrival
// order. Returns whether a split-conversation tool ended the round.
// Already-dispatched calls run to completion even after cancellation; no
// new calls are issued once cancellation is observed.
func (p *Processor) dispatchToolCalls(
	ctx context.Context,
	req *ProcessRequest,
	exec *tool.Executor,
	toolCalls []schema.ToolCall,
	messages *[]*schema.Message,
	obs *RoundObservation,
	emit EmitFunc,
) (bool, error) {
	split := false
	execCtx := context.WithoutCancel(ctx)

	for _, tc := range toolCalls {
		if ctx.Err() != nil {
			return split, ctx.Err()
		}

		toolCtx, err := p.toolContext(execCtx, req)
		if err != nil {
			return split, err
		}

		result, err := exec.Execute(execCtx, tc.Function.Name, []byte(tc.Function.Arguments), toolCtx)
		if err != nil {
			return split, err
		}

		emit(event.Event{
			Type: event.ToolCall,
			Data: event.ToolCallData{
				SessionID: req.SessionID,
				CallID:    tc.ID,
				Tool:      tc.Function.Name,
				Success:   result.Success,
				Message:   result.Message,
			},
		})
		p.emitSignalEvent(req.SessionID, result, emit)

		if result.Success && tc.Function.Name == tool.NamePersistDocument {
			if path, ok := result.Data["path"].(string); ok {
				if family := FamilyForPath(path); family != "" {
					obs.SavedFamilies = append(obs.SavedFamilies, family)
				}
			}
		}
		if result.Signal == tool.SignalShowOptions {
			obs.OptionsOffered = true
		}
		if result.Signal.SplitsConversation() {
			split = true
		}

		*messages = append(*messages, &schema.Message{
			Role:       schema.Tool,
			ToolCallID: tc.ID,
			Content:    result.Output(),
		})
	}

	return split, nil
}

// emitSignalEvent forwards a tool's lifecycle signal to the stream as the
// corresponding structured event.
func (p *Processor) emitSignalEvent(sessionID string, result *tool.Result, emit EmitFunc) {
	switch result.Signal {
	case tool.SignalSessionCompleted:
		next, _ := result.Data["next_check_in"].(string)
		emit(event.Event{
			Type: event.SessionCompleted,
			Data: event.SessionCompletedData{SessionID: sessionID, NextCheckIn: next},
		})
	case tool.SignalArcEntered:
		mode, _ := result.Data["mode"].(string)
		emit(event.Event{
			Type: event.ModeChange,
			Data: event.ModeChangeData{SessionID: sessionID, Mode: types.ArcType(mode)},
		})
	case tool.SignalArcCompleted:
		mode, _ := result.Data["mode"].(string)
		emit(event.Event{
			Type: event.ArcCompleted,
			Data: event.ArcCompletedData{SessionID: sessionID, Mode: types.ArcType(mode)},
		})
	case tool.SignalShowPulse:
		prompt, _ := result.Data["prompt"].(string)
		emit(event.Event{
			Type: event.ShowPulseCheck,
			Data: event.ShowPulseCheckData{SessionID: sessionID, Prompt: prompt},
		})
	case tool.SignalShowOptions:
		prompt, _ := result.Data["prompt"].(string)
		options, _ := result.Data["options"].([]string)
		emit(event.Event{
			Type: event.ShowOptions,
			Data: event.ShowOptionsData{SessionID: sessionID, Prompt: prompt, Options: options},
		})
	}
}

// finishRequest runs the post-stream terminal-signal scan and advances
// session state.
func (p *Processor) finishRequest(ctx context.Context, req *ProcessRequest, obs RoundObservation, emit EmitFunc) error {
	session, err := p.catalog.GetSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return nil
	}

	signal := DetectTerminalSignal(session.EffectiveType(), obs)
	completed, err := p.service.ObserveRound(ctx, req.SessionID, signal, obs.OptionsOffered)
	if err != nil {
		return fmt.Errorf("terminal scan: %w", err)
	}

	if completed {
		logging.Info().Str("session", req.SessionID).Str("signal", string(signal)).Msg("session finalized by post-stream scan")

		data := event.SessionCompletedData{SessionID: req.SessionID}
		if finished, err := p.catalog.GetSession(ctx, req.SessionID); err == nil && finished.CompletedAt != nil {
			data.NextCheckIn = finished.CompletedAt.Add(NextCheckInCadence).Format(time.RFC3339)
		}
		emit(event.Event{Type: event.SessionCompleted, Data: data})
	}
	return nil
}

// toolContext builds the sandbox context from the current session row.
func (p *Processor) toolContext(ctx context.Context, req *ProcessRequest) (*tool.Context, error) {
	session, err := p.catalog.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	return &tool.Context{
		User:      req.User,
		SessionID: session.ID,
		BaseType:  session.Type,
		ActiveArc: session.Meta.ActiveMode,
		Meta:      session.Meta,
	}, nil
}

// resolveModel picks the provider and model for a request.
func (p *Processor) resolveModel(req *ProcessRequest) (provider.Provider, *types.Model, error) {
	if req.Model != nil {
		prov, err := p.providerRegistry.Get(req.Model.ProviderID)
		if err != nil {
			return nil, nil, err
		}
		model, err := p.providerRegistry.GetModel(req.Model.ProviderID, req.Model.ModelID)
		if err != nil {
			return nil, nil, err
		}
		return prov, model, nil
	}

	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return nil, nil, err
	}
	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	return prov, model, nil
}

// sleepRetry waits out the next backoff interval. Returns false when the
// retry budget is exhausted or the request context is canceled.
func (p *Processor) sleepRetry(ctx context.Context, b backoff.BackOff) bool {
	next := b.NextBackOff()
	if next == backoff.Stop {
		return false
	}
	timer := time.NewTimer(next)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
