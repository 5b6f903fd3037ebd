// Package signal turns SIGINT and SIGTERM into a two-stage shutdown for
// long-running docgen commands.
//
// The first signal closes Interrupted so the command can stop gracefully,
// for example by cancelling the running job or by letting workers finish
// their current job. A second signal cancels Context and aborts.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler listens for interrupt signals until Stop is called.
type Handler struct {
	ctx         context.Context //nolint:containedctx // the handler owns this context's lifecycle
	cancel      context.CancelFunc
	interrupted chan struct{}
	done        chan struct{}
	sigChan     chan os.Signal

	mu       sync.Mutex
	received int
	stopOnce sync.Once
}

// NewHandler starts listening for SIGINT and SIGTERM.
//
//	h := signal.NewHandler(ctx)
//	defer h.Stop()
//	go func() {
//	    <-h.Interrupted()
//	    worker.Drain()
//	}()
//	err := worker.Run(h.Context())
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		sigChan:     make(chan os.Signal, 2),
	}
	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()
	return h
}

// Context is canceled by the second signal or by Stop.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted is closed by the first signal.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Stop stops listening and cancels Context.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal advances the shutdown by one stage.
func (h *Handler) handleSignal() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.received++
	switch h.received {
	case 1:
		close(h.interrupted)
	case 2:
		h.cancel()
	}
}

func (h *Handler) listen() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.done:
			return
		case <-h.sigChan:
			h.handleSignal()
		}
	}
}
