package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/swap-notifier/internal/models"
)

// ChainRepository reads the static per-chain reference data seeded by
// migrations.
type ChainRepository struct {
	db *PostgresDB
}

// NewChainRepository creates a new chain repository
func NewChainRepository(db *PostgresDB) *ChainRepository {
	return &ChainRepository{db: db}
}

// ErrChainNotFound is returned when no reference data exists for a chain.
// Callers treat this as a skip condition, not a failure.
var ErrChainNotFound = errors.New("chain not found")

// Get retrieves chain info by chain name.
func (r *ChainRepository) Get(ctx context.Context, chainName string) (*models.ChainInfo, error) {
	query := `
		SELECT chain_name, explorer_url, chart_url_base, swap_url_base, chain_id
		FROM chains
		WHERE chain_name = $1
	`

	var info models.ChainInfo
	err := r.db.Pool().QueryRow(ctx, query, chainName).Scan(
		&info.ChainName,
		&info.ExplorerURL,
		&info.ChartURLBase,
		&info.SwapURLBase,
		&info.ChainID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChainNotFound
		}
		return nil, fmt.Errorf("failed to get chain %s: %w", chainName, err)
	}

	return &info, nil
}

// List returns all configured chains.
func (r *ChainRepository) List(ctx context.Context) ([]*models.ChainInfo, error) {
	query := `
		SELECT chain_name, explorer_url, chart_url_base, swap_url_base, chain_id
		FROM chains
		ORDER BY chain_name
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()

	var chains []*models.ChainInfo
	for rows.Next() {
		var info models.ChainInfo
		if err := rows.Scan(
			&info.ChainName,
			&info.ExplorerURL,
			&info.ChartURLBase,
			&info.SwapURLBase,
			&info.ChainID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chain row: %w", err)
		}
		chains = append(chains, &info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chain rows: %w", err)
	}

	return chains, nil
}
