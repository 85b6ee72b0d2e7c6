package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slotmarket/quota-api/internal/clock"
)

type SweeperRepository interface {
	// DeleteExpiredCartHolds removes reserved cart holds whose expiry lies
	// before the cutoff and returns how many rows went away.
	DeleteExpiredCartHolds(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically deletes long-expired cart holds to bound table growth.
// Availability math already ignores expired holds, so the sweep's timing has
// no effect on correctness; it is storage hygiene only.
type Sweeper struct {
	repo      SweeperRepository
	clock     clock.Clock
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
}

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepRetention = 24 * time.Hour
)

func NewSweeper(repo SweeperRepository, clk clock.Clock, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:      repo,
		clock:     clk,
		logger:    logger,
		interval:  defaultSweepInterval,
		retention: defaultSweepRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepRetention sets how long after expiry a cart hold is kept around.
func WithSweepRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("hold sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce deletes cart holds expired for longer than the retention window.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.retention)
	deleted, err := s.repo.DeleteExpiredCartHolds(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("swept expired cart holds",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
