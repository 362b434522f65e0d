package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/swap-notifier/internal/models"
)

// SubscriptionRepository handles subscription persistence. Records are
// created and edited by the bot's conversation flow; the notification core
// only reads them and touches last_active after successful deliveries.
type SubscriptionRepository struct {
	db *PostgresDB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *PostgresDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, chat_id, chat_type, name, admin_id, is_public, username,
	active, token_address, chain, min_value, transaction_type, start_time,
	emoji, last_active, created_at, updated_at
`

// Create inserts a new subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.TokenAddress != "" {
		if err := ValidateTokenAddress(sub.TokenAddress); err != nil {
			return err
		}
		sub.TokenAddress = NormalizeAddress(sub.TokenAddress)
	}

	query := `
		INSERT INTO subscriptions (
			id, chat_id, chat_type, name, admin_id, is_public, username,
			active, token_address, chain, min_value, transaction_type, start_time, emoji
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		        NULLIF($9, ''), NULLIF($10, ''), $11, NULLIF($12, ''), $13, $14)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		sub.ID,
		sub.ChatID,
		string(sub.ChatType),
		sub.Name,
		sub.AdminID,
		sub.IsPublic,
		sub.Username,
		sub.Active,
		sub.TokenAddress,
		sub.Chain,
		sub.MinValue,
		string(sub.TransactionType),
		sub.StartTime,
		sub.Emoji,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetByID retrieves a subscription by its id.
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	row := r.db.Pool().QueryRow(ctx, query, id)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscription not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// ListByChatID retrieves subscriptions owned by a chat.
func (r *SubscriptionRepository) ListByChatID(ctx context.Context, chatID string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE chat_id = $1 ORDER BY created_at`

	rows, err := r.db.Pool().Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListActivePairs returns the distinct (token address, chain) pairs across
// all active subscriptions with both token fields populated. This drives the
// fetch, process and metadata-refresh passes.
func (r *SubscriptionRepository) ListActivePairs(ctx context.Context) ([]models.TokenPair, error) {
	query := `
		SELECT DISTINCT token_address, chain
		FROM subscriptions
		WHERE active = TRUE AND token_address IS NOT NULL AND chain IS NOT NULL
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active token pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.TokenPair
	for rows.Next() {
		var pair models.TokenPair
		if err := rows.Scan(&pair.TokenAddress, &pair.Chain); err != nil {
			return nil, fmt.Errorf("failed to scan token pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token pairs: %w", err)
	}

	return pairs, nil
}

// ListActiveByPair returns the active subscriptions tracking a token/chain
// pair.
func (r *SubscriptionRepository) ListActiveByPair(ctx context.Context, tokenAddress, chain string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE active = TRUE AND token_address = $1 AND chain = $2
	`

	rows, err := r.db.Pool().Query(ctx, query, NormalizeAddress(tokenAddress), chain)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for pair: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// TouchLastActive updates the last-active timestamp after a successful
// delivery.
func (r *SubscriptionRepository) TouchLastActive(ctx context.Context, id string) error {
	query := `UPDATE subscriptions SET last_active = NOW(), updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Pool().Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to touch last active for subscription %s: %w", id, err)
	}

	return nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub          models.Subscription
		chatType     string
		username     *string
		tokenAddress *string
		chain        *string
		txType       *string
	)

	err := row.Scan(
		&sub.ID,
		&sub.ChatID,
		&chatType,
		&sub.Name,
		&sub.AdminID,
		&sub.IsPublic,
		&username,
		&sub.Active,
		&tokenAddress,
		&chain,
		&sub.MinValue,
		&txType,
		&sub.StartTime,
		&sub.Emoji,
		&sub.LastActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.ChatType = models.ChatType(chatType)
	if username != nil {
		sub.Username = *username
	}
	if tokenAddress != nil {
		sub.TokenAddress = *tokenAddress
	}
	if chain != nil {
		sub.Chain = *chain
	}
	if txType != nil {
		sub.TransactionType = models.TransactionType(*txType)
	}

	return &sub, nil
}

func scanSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subs, nil
}
