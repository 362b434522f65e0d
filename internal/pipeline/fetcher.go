// Package pipeline contains the notification core: fetching swaps from the
// indexer, matching them against subscriptions, formatting messages, and
// driving delivery through the queue.
package pipeline

import (
	"context"
	"time"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
	"github.com/swap-notifier/internal/storage"
)

// SwapSource fetches recent swaps from the external indexer.
type SwapSource interface {
	RecentSwaps(ctx context.Context, tokenAddress, chain string) ([]models.RawSwap, error)
}

// PairLister yields the distinct (token, chain) pairs under active tracking.
type PairLister interface {
	ListActivePairs(ctx context.Context) ([]models.TokenPair, error)
}

// SwapInserter stores swaps with insert-only-if-absent semantics.
type SwapInserter interface {
	InsertMissing(ctx context.Context, swaps []*models.SwapRecord) (int, error)
}

// Fetcher polls the indexer for every tracked pair and persists new swaps.
// An existing record for a transaction hash is never overwritten by a later
// fetch.
type Fetcher struct {
	source SwapSource
	pairs  PairLister
	swaps  SwapInserter
	logger *logging.Logger
}

func NewFetcher(source SwapSource, pairs PairLister, swaps SwapInserter, logger *logging.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		pairs:  pairs,
		swaps:  swaps,
		logger: logger.WithField("component", "fetcher"),
	}
}

// Run executes one fetch cycle. A failure for one pair is logged and skipped;
// remaining pairs are still fetched.
func (f *Fetcher) Run(ctx context.Context) error {
	pairs, err := f.pairs.ListActivePairs(ctx)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}

	for _, pair := range pairs {
		if err := f.fetchPair(ctx, pair); err != nil {
			f.logger.WithFields(map[string]interface{}{
				"token": pair.TokenAddress,
				"chain": pair.Chain,
			}).WithError(err).Error("Fetch failed for pair")
		}
	}

	return nil
}

func (f *Fetcher) fetchPair(ctx context.Context, pair models.TokenPair) error {
	raw, err := f.source.RecentSwaps(ctx, pair.TokenAddress, pair.Chain)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]*models.SwapRecord, 0, len(raw))
	for i := range raw {
		records = append(records, &models.SwapRecord{
			TransactionHash: raw[i].TransactionHash,
			TokenAddress:    storage.NormalizeAddress(pair.TokenAddress),
			Chain:           pair.Chain,
			BlockTimestamp:  raw[i].BlockTimestamp,
			Swap:            raw[i],
			CreatedAt:       now,
		})
	}

	inserted, err := f.swaps.InsertMissing(ctx, records)
	if err != nil {
		return err
	}
	if inserted > 0 {
		f.logger.WithFields(map[string]interface{}{
			"token":    pair.TokenAddress,
			"chain":    pair.Chain,
			"fetched":  len(records),
			"inserted": inserted,
		}).Info("Stored new swaps")
	}

	return nil
}
