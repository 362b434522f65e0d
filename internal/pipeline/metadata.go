package pipeline

import (
	"context"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
)

// MetadataSource fetches token metadata from the external indexer.
type MetadataSource interface {
	TokenMetadata(ctx context.Context, tokenAddress, chain string) (*models.TokenMetadata, error)
}

// MetadataStore persists token metadata.
type MetadataStore interface {
	Upsert(ctx context.Context, meta *models.TokenMetadata) error
}

// CacheInvalidator drops a cached metadata entry after a refresh.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tokenAddress, chain string)
}

// MetadataRefresher keeps metadata for actively tracked tokens current.
type MetadataRefresher struct {
	pairs  PairLister
	source MetadataSource
	store  MetadataStore
	cache  CacheInvalidator
	logger *logging.Logger
}

// NewMetadataRefresher creates the refresh job. cache may be nil when no
// read-through cache is in front of the store.
func NewMetadataRefresher(pairs PairLister, source MetadataSource, store MetadataStore, cache CacheInvalidator, logger *logging.Logger) *MetadataRefresher {
	return &MetadataRefresher{
		pairs:  pairs,
		source: source,
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "metadata"),
	}
}

// Run refreshes metadata for every tracked pair. Failures are per-pair.
func (m *MetadataRefresher) Run(ctx context.Context) error {
	pairs, err := m.pairs.ListActivePairs(ctx)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		meta, err := m.source.TokenMetadata(ctx, pair.TokenAddress, pair.Chain)
		if err != nil {
			m.logger.WithFields(map[string]interface{}{
				"token": pair.TokenAddress,
				"chain": pair.Chain,
			}).WithError(err).Error("Metadata refresh failed")
			continue
		}

		if err := m.store.Upsert(ctx, meta); err != nil {
			m.logger.WithFields(map[string]interface{}{
				"token": pair.TokenAddress,
				"chain": pair.Chain,
			}).WithError(err).Error("Metadata upsert failed")
			continue
		}

		if m.cache != nil {
			m.cache.Invalidate(ctx, pair.TokenAddress, pair.Chain)
		}
	}

	return nil
}
