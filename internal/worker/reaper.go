// Package worker holds the background loops that run next to the HTTP
// server: the hold reaper and the outbox relay.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Reaper is the allocator's view used by HoldReaper.
type Reaper interface {
	ReapExpiredHolds(ctx context.Context) (int64, error)
}

// HoldReaper periodically marks expired holds as REMOVED.  Expired holds are
// already inert for every placement rule; the reaper keeps the stack map
// tidy and the placements table small.
type HoldReaper struct {
	reaper   Reaper
	interval time.Duration
	logger   *log.Logger
	onReap   func(ctx context.Context, reaped int64)
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewHoldReaper creates a reaper running every interval (default 1m).
func NewHoldReaper(r Reaper, interval time.Duration, logger *log.Logger) *HoldReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HoldReaper{
		reaper:   r,
		interval: interval,
		logger:   logger.With("component", "hold_reaper"),
	}
}

// OnReap registers fn to run after every cycle that reaped at least one
// hold.  It must be called before Start.
func (h *HoldReaper) OnReap(fn func(ctx context.Context, reaped int64)) {
	h.onReap = fn
}

// Start begins the reaper goroutine.
func (h *HoldReaper) Start() {
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.wg.Add(1)
	go h.run()
	h.logger.Info("hold reaper started", "interval", h.interval)
}

// Stop cancels the loop and waits for the running cycle to finish.
func (h *HoldReaper) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.logger.Info("hold reaper stopped")
}

func (h *HoldReaper) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.runCycle()
		}
	}
}

func (h *HoldReaper) runCycle() {
	ctx, cancel := context.WithTimeout(h.ctx, h.interval)
	defer cancel()

	n, err := h.reaper.ReapExpiredHolds(ctx)
	if err != nil {
		h.logger.Error("reap failed", "err", err)
		return
	}
	if n > 0 {
		h.logger.Info("expired holds reaped", "count", n)
		if h.onReap != nil {
			h.onReap(ctx, n)
		}
	}
}
