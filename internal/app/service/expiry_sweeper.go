package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically removes expired links and their analytics.
type ExpirySweeper struct {
	logger   *zap.Logger
	links    LinkService
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper that runs every interval.
func NewExpirySweeper(logger *zap.Logger, links LinkService, interval time.Duration) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		logger:   logger,
		links:    links,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins sweeping in a new goroutine until ctx is done or Stop is called.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.started.Swap(true) {
		return
	}
	go s.run(ctx)
}

// Stop stops the sweeper and waits for an in-progress sweep to finish.
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	removed, err := s.links.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("removed", removed), zap.Error(err))
	}
}
