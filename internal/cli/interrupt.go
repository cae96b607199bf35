package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// InterruptHandler cancels a run on SIGINT or SIGTERM and prints a notice once.
type InterruptHandler struct {
	out         io.Writer
	cancel      context.CancelFunc
	once        sync.Once
	interrupted atomic.Bool
	resumable   bool
}

// NewInterruptHandler writes notices to out, or stdout when out is nil.
func NewInterruptHandler(out io.Writer) *InterruptHandler {
	if out == nil {
		out = os.Stdout
	}
	return &InterruptHandler{out: out}
}

// HandleInterrupts returns a context canceled by the first signal. When
// resumable is set the notice says completed batches survive in the cache.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, resumable bool) context.Context {
	ctx, h.cancel = context.WithCancel(ctx)
	h.resumable = resumable

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			h.interrupt()
		case <-ctx.Done():
		}
	}()
	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.once.Do(func() {
		h.interrupted.Store(true)
		h.notify()
	})
	h.cancel()
}

func (h *InterruptHandler) notify() {
	lines := "\n\n" + FormatWarning("Matching interrupted!") + "\n"
	if h.resumable {
		lines += FormatInfo("Completed batches are cached. Rerun the same bundle to resume.") + "\n"
	}
	if _, err := fmt.Fprint(h.out, lines); err != nil {
		slog.Warn("Failed to write interrupt notice", "error", err)
	}
}

// WasInterrupted reports whether a signal canceled the run.
func (h *InterruptHandler) WasInterrupted() bool {
	return h.interrupted.Load()
}
