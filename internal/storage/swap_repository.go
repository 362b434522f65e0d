package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/swap-notifier/internal/models"
)

// ErrSwapNotFound is returned when no record exists for a transaction hash.
var ErrSwapNotFound = errors.New("swap not found")

// SwapRepository handles swap record persistence in Postgres.
//
// All writes are idempotent: inserts are conditional on the transaction hash
// being absent, delivery attempts and the processed flag can only be applied
// to unprocessed records. Overlapping fetch/process passes therefore cannot
// corrupt a record.
type SwapRepository struct {
	db *PostgresDB
}

// NewSwapRepository creates a new swap repository
func NewSwapRepository(db *PostgresDB) *SwapRepository {
	return &SwapRepository{db: db}
}

// InsertMissing stores swaps that are not yet present, keyed by transaction
// hash. Existing rows are left untouched, even if the incoming payload
// differs. Returns the number of newly inserted rows.
func (r *SwapRepository) InsertMissing(ctx context.Context, swaps []*models.SwapRecord) (int, error) {
	if len(swaps) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO swaps (transaction_hash, token_address, chain, block_timestamp, swap_data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_hash) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, swap := range swaps {
		swapJSON, err := json.Marshal(swap.Swap)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal swap %s: %w", swap.TransactionHash, err)
		}

		batch.Queue(query,
			swap.TransactionHash,
			NormalizeAddress(swap.TokenAddress),
			swap.Chain,
			swap.BlockTimestamp,
			swapJSON,
		)
	}

	results := r.db.Pool().SendBatch(ctx, batch)
	defer func() {
		_ = results.Close() // nolint:errcheck // cleanup in defer
	}()

	inserted := 0
	for range swaps {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert swaps: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// ListUnprocessed returns up to limit unprocessed swaps for a token/chain
// pair, oldest block timestamp first. Processing order matters: older events
// must not be starved by newer ones.
func (r *SwapRepository) ListUnprocessed(ctx context.Context, tokenAddress, chain string, limit int) ([]*models.SwapRecord, error) {
	query := `
		SELECT transaction_hash, token_address, chain, block_timestamp,
		       swap_data, processed, processed_at, notifications, created_at
		FROM swaps
		WHERE token_address = $1 AND chain = $2 AND processed = FALSE
		ORDER BY block_timestamp ASC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, NormalizeAddress(tokenAddress), chain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed swaps: %w", err)
	}
	defer rows.Close()

	return scanSwapRows(rows)
}

// GetByHash retrieves a single swap record with its delivery audit trail.
func (r *SwapRepository) GetByHash(ctx context.Context, hash string) (*models.SwapRecord, error) {
	query := `
		SELECT transaction_hash, token_address, chain, block_timestamp,
		       swap_data, processed, processed_at, notifications, created_at
		FROM swaps
		WHERE transaction_hash = $1
	`

	row := r.db.Pool().QueryRow(ctx, query, hash)
	record, err := scanSwapRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSwapNotFound, hash)
		}
		return nil, fmt.Errorf("failed to get swap: %w", err)
	}

	return record, nil
}

// List returns swaps filtered by optional token, chain and processed state,
// newest block timestamp first. Used by the admin audit API.
func (r *SwapRepository) List(ctx context.Context, tokenAddress, chain string, processed *bool, limit int) ([]*models.SwapRecord, error) {
	query := `
		SELECT transaction_hash, token_address, chain, block_timestamp,
		       swap_data, processed, processed_at, notifications, created_at
		FROM swaps
		WHERE ($1 = '' OR token_address = $1)
		  AND ($2 = '' OR chain = $2)
		  AND ($3::boolean IS NULL OR processed = $3)
		ORDER BY block_timestamp DESC
		LIMIT $4
	`

	rows, err := r.db.Pool().Query(ctx, query, NormalizeAddress(tokenAddress), chain, processed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list swaps: %w", err)
	}
	defer rows.Close()

	return scanSwapRows(rows)
}

// AppendDeliveryAttempt records one delivery outcome in the swap's audit
// trail. Attempts can only be appended while the swap is unprocessed, so a
// record that has been marked processed never grows new attempts.
func (r *SwapRepository) AppendDeliveryAttempt(ctx context.Context, hash string, attempt models.DeliveryAttempt) error {
	attemptJSON, err := json.Marshal([]models.DeliveryAttempt{attempt})
	if err != nil {
		return fmt.Errorf("failed to marshal delivery attempt: %w", err)
	}

	query := `
		UPDATE swaps
		SET notifications = notifications || $2::jsonb
		WHERE transaction_hash = $1 AND processed = FALSE
	`

	if _, err := r.db.Pool().Exec(ctx, query, hash, attemptJSON); err != nil {
		return fmt.Errorf("failed to append delivery attempt: %w", err)
	}

	return nil
}

// MarkProcessed flips the processed flag exactly once. Returns true when this
// call performed the transition, false when the swap was already processed.
func (r *SwapRepository) MarkProcessed(ctx context.Context, hash string) (bool, error) {
	query := `
		UPDATE swaps
		SET processed = TRUE, processed_at = NOW()
		WHERE transaction_hash = $1 AND processed = FALSE
	`

	tag, err := r.db.Pool().Exec(ctx, query, hash)
	if err != nil {
		return false, fmt.Errorf("failed to mark swap processed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteProcessedBefore removes processed swaps whose processed timestamp is
// older than the cutoff. Unprocessed swaps are never deleted regardless of
// age. Returns the number of deleted rows.
func (r *SwapRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM swaps
		WHERE processed = TRUE AND processed_at < $1
	`

	tag, err := r.db.Pool().Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old swaps: %w", err)
	}

	return tag.RowsAffected(), nil
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSwapRow(row rowScanner) (*models.SwapRecord, error) {
	var (
		record            models.SwapRecord
		swapJSON          []byte
		notificationsJSON []byte
	)

	err := row.Scan(
		&record.TransactionHash,
		&record.TokenAddress,
		&record.Chain,
		&record.BlockTimestamp,
		&swapJSON,
		&record.Processed,
		&record.ProcessedAt,
		&notificationsJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(swapJSON, &record.Swap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal swap data for %s: %w", record.TransactionHash, err)
	}
	if err := json.Unmarshal(notificationsJSON, &record.Notifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notifications for %s: %w", record.TransactionHash, err)
	}

	return &record, nil
}

func scanSwapRows(rows pgx.Rows) ([]*models.SwapRecord, error) {
	var records []*models.SwapRecord
	for rows.Next() {
		record, err := scanSwapRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swap rows: %w", err)
	}

	return records, nil
}
