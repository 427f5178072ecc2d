package timer

import (
	"context"
	"time"
)

// scheduleLocked replaces any running recompute loop with a new one bound to
// a fresh generation.
func (e *Engine) scheduleLocked() {
	e.cancelLoopLocked()
	if e.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelLoop = cancel
	go e.runLoop(ctx, e.generation.Load(), e.interval)
}

func (e *Engine) cancelLoopLocked() {
	e.generation.Inc()
	if e.cancelLoop != nil {
		e.cancelLoop()
		e.cancelLoop = nil
	}
}

func (e *Engine) runLoop(ctx context.Context, gen uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.generation.Load() != gen {
				return
			}
			e.tick(e.ctx, gen)
		}
	}
}
