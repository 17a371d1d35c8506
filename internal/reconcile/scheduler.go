package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the pass period when none is configured.
const DefaultInterval = 10 * time.Minute

// Scheduler drives one engine on a fixed period with a single worker:
// one pass at startup, then one per tick. Passes never overlap for the
// same repository.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger

	wg sync.WaitGroup
}

func NewScheduler(engine *Engine, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{engine: engine, interval: interval, log: log}
}

// Start launches the worker goroutine. It runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the worker has stopped after cancellation.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.engine.Run(ctx); err != nil {
		s.log.Error().Err(err).Msg("reconcile:pass_failed")
	}
}
