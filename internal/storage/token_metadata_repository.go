package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/swap-notifier/internal/models"
)

// TokenMetadataRepository persists per-token reference data refreshed by the
// metadata job.
type TokenMetadataRepository struct {
	db *PostgresDB
}

// NewTokenMetadataRepository creates a new token metadata repository
func NewTokenMetadataRepository(db *PostgresDB) *TokenMetadataRepository {
	return &TokenMetadataRepository{db: db}
}

// Upsert inserts or refreshes metadata for a token/chain pair.
func (r *TokenMetadataRepository) Upsert(ctx context.Context, meta *models.TokenMetadata) error {
	if err := ValidateTokenAddress(meta.TokenAddress); err != nil {
		return err
	}
	meta.TokenAddress = NormalizeAddress(meta.TokenAddress)

	query := `
		INSERT INTO token_metadata (
			token_address, chain, name, symbol, decimals, logo,
			fully_diluted_valuation, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (token_address, chain) DO UPDATE
		SET name = EXCLUDED.name,
		    symbol = EXCLUDED.symbol,
		    decimals = EXCLUDED.decimals,
		    logo = EXCLUDED.logo,
		    fully_diluted_valuation = EXCLUDED.fully_diluted_valuation,
		    last_updated = NOW()
	`

	_, err := r.db.Pool().Exec(ctx, query,
		meta.TokenAddress,
		meta.Chain,
		meta.Name,
		meta.Symbol,
		meta.Decimals,
		meta.Logo,
		meta.FullyDilutedValuation,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert token metadata: %w", err)
	}

	return nil
}

// Get retrieves metadata for a token/chain pair.
func (r *TokenMetadataRepository) Get(ctx context.Context, tokenAddress, chain string) (*models.TokenMetadata, error) {
	query := `
		SELECT token_address, chain, name, symbol, decimals, logo,
		       fully_diluted_valuation, last_updated
		FROM token_metadata
		WHERE token_address = $1 AND chain = $2
	`

	var meta models.TokenMetadata
	err := r.db.Pool().QueryRow(ctx, query, NormalizeAddress(tokenAddress), chain).Scan(
		&meta.TokenAddress,
		&meta.Chain,
		&meta.Name,
		&meta.Symbol,
		&meta.Decimals,
		&meta.Logo,
		&meta.FullyDilutedValuation,
		&meta.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("token metadata not found for %s on %s", tokenAddress, chain)
		}
		return nil, fmt.Errorf("failed to get token metadata: %w", err)
	}

	return &meta, nil
}
