package pipeline

import (
	"context"
	"time"

	"github.com/swap-notifier/internal/logging"
)

// SwapPruner deletes processed swaps older than a cutoff.
type SwapPruner interface {
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper permanently removes processed swaps past the retention horizon.
// Unprocessed swaps are never touched regardless of age.
type Sweeper struct {
	swaps     SwapPruner
	retention time.Duration
	logger    *logging.Logger
}

func NewSweeper(swaps SwapPruner, retention time.Duration, logger *logging.Logger) *Sweeper {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Sweeper{
		swaps:     swaps,
		retention: retention,
		logger:    logger.WithField("component", "sweeper"),
	}
}

// Run executes one cleanup pass.
func (s *Sweeper) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.swaps.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("Removed expired swaps")
	}
	return nil
}
