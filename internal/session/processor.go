package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/provider"
	"github.com/sagelabs/sage/internal/tool"
	"github.com/sagelabs/sage/pkg/types"
)

// Processor drives one request through the model stream, the parser and
// the tool sandbox. One session is processed by at most one in-flight
// request at a time; a second request for the same session queues.
type Processor struct {
	mu sync.Mutex

	providerRegistry *provider.Registry
	catalog          *catalog.Catalog
	service          *Service
	tools            []tool.Tool

	// Active sessions being processed.
	active map[string]*requestState
}

// requestState tracks one in-flight request.
type requestState struct {
	cancel  context.CancelFunc
	waiters []chan error
}

// ProcessRequest is one user turn to run through the engine.
type ProcessRequest struct {
	SessionID string
	User      string

	// Messages is the conversation so far, ending with the new user turn.
	Messages []*schema.Message

	// Model optionally overrides the default provider/model.
	Model *types.ModelRef
}

// EmitFunc receives stream events in arrival order. It is called from the
// processing goroutine; implementations forward to SSE or collect.
type EmitFunc func(ev event.Event)

// NewProcessor creates a processor.
func NewProcessor(registry *provider.Registry, cat *catalog.Catalog, svc *Service, tools []tool.Tool) *Processor {
	return &Processor{
		providerRegistry: registry,
		catalog:          cat,
		service:          svc,
		tools:            tools,
		active:           make(map[string]*requestState),
	}
}

// Process runs one request to completion. Concurrent requests for the
// same session wait for the current one to finish, then run.
func (p *Processor) Process(ctx context.Context, req *ProcessRequest, emit EmitFunc) error {
	p.mu.Lock()

	if state, ok := p.active[req.SessionID]; ok {
		waiter := make(chan error, 1)
		state.waiters = append(state.waiters, waiter)
		p.mu.Unlock()

		select {
		case <-waiter:
			return p.Process(ctx, req, emit)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	state := &requestState{cancel: cancel}
	p.active[req.SessionID] = state
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.active, req.SessionID)
		for _, waiter := range state.waiters {
			waiter <- nil
		}
		p.mu.Unlock()
	}()

	return p.runLoop(loopCtx, req, emit)
}

// Abort cancels processing for a session. Tool calls already dispatched
// run to completion; no new ones are issued.
func (p *Processor) Abort(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.active[sessionID]
	if !ok {
		return fmt.Errorf("session not processing: %s", sessionID)
	}

	state.cancel()
	return nil
}

// IsProcessing returns whether a session is currently processing.
func (p *Processor) IsProcessing(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[sessionID]
	return ok
}
