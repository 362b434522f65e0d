package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
	"github.com/swap-notifier/internal/storage"
)

// SubscriptionStore is the subscription access the processor needs.
type SubscriptionStore interface {
	ListActivePairs(ctx context.Context) ([]models.TokenPair, error)
	ListActiveByPair(ctx context.Context, tokenAddress, chain string) ([]*models.Subscription, error)
	TouchLastActive(ctx context.Context, id string) error
}

// SwapStore is the swap access the processor needs.
type SwapStore interface {
	ListUnprocessed(ctx context.Context, tokenAddress, chain string, limit int) ([]*models.SwapRecord, error)
	AppendDeliveryAttempt(ctx context.Context, hash string, attempt models.DeliveryAttempt) error
	MarkProcessed(ctx context.Context, hash string) (bool, error)
}

// ChainStore resolves static chain reference data.
type ChainStore interface {
	Get(ctx context.Context, chainName string) (*models.ChainInfo, error)
}

// Deliverer hands a rendered message to the delivery queue and blocks until
// the delivery settles.
type Deliverer interface {
	Enqueue(ctx context.Context, destination, text string) error
}

// Processor walks unprocessed swaps oldest-first per tracked pair, matches
// them against subscriptions, fans deliveries out per destination, records
// each outcome, and marks every swap processed exactly once.
type Processor struct {
	subs      SubscriptionStore
	swaps     SwapStore
	chains    ChainStore
	queue     Deliverer
	batchSize int
	logger    *logging.Logger
}

func NewProcessor(subs SubscriptionStore, swaps SwapStore, chains ChainStore, queue Deliverer, batchSize int, logger *logging.Logger) *Processor {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Processor{
		subs:      subs,
		swaps:     swaps,
		chains:    chains,
		queue:     queue,
		batchSize: batchSize,
		logger:    logger.WithField("component", "processor"),
	}
}

// Run executes one processing cycle over every tracked pair.
func (p *Processor) Run(ctx context.Context) error {
	pairs, err := p.subs.ListActivePairs(ctx)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		if err := p.processPair(ctx, pair); err != nil {
			p.logger.WithFields(map[string]interface{}{
				"token": pair.TokenAddress,
				"chain": pair.Chain,
			}).WithError(err).Error("Processing failed for pair")
		}
	}

	return nil
}

func (p *Processor) processPair(ctx context.Context, pair models.TokenPair) error {
	records, err := p.swaps.ListUnprocessed(ctx, pair.TokenAddress, pair.Chain, p.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	chainInfo, err := p.chains.Get(ctx, pair.Chain)
	if err != nil {
		if errors.Is(err, storage.ErrChainNotFound) {
			p.logger.WithField("chain", pair.Chain).Warn("No chain info, skipping pair")
			return nil
		}
		return err
	}

	subs, err := p.subs.ListActiveByPair(ctx, pair.TokenAddress, pair.Chain)
	if err != nil {
		return err
	}

	for _, rec := range records {
		p.processSwap(ctx, rec, subs, chainInfo)
	}

	return nil
}

// processSwap delivers one swap to every matched subscription and then marks
// it processed, whether or not any delivery succeeded.
func (p *Processor) processSwap(ctx context.Context, rec *models.SwapRecord, subs []*models.Subscription, chainInfo *models.ChainInfo) {
	matched := MatchAll(subs, rec)
	if len(matched) > 0 {
		msg := BuildMessage(rec, chainInfo)

		var wg sync.WaitGroup
		for _, sub := range matched {
			wg.Add(1)
			go func(sub *models.Subscription) {
				defer wg.Done()
				p.deliver(ctx, rec, sub, msg)
			}(sub)
		}
		wg.Wait()
	}

	flipped, err := p.swaps.MarkProcessed(ctx, rec.TransactionHash)
	if err != nil {
		p.logger.WithField("hash", rec.TransactionHash).WithError(err).Error("Failed to mark swap processed")
		return
	}
	if flipped && len(matched) > 0 {
		p.logger.WithFields(map[string]interface{}{
			"hash":     rec.TransactionHash,
			"notified": len(matched),
		}).Info("Swap processed")
	}
}

// deliver sends one notification and records its outcome in the audit trail.
// A failure here is isolated to its destination.
func (p *Processor) deliver(ctx context.Context, rec *models.SwapRecord, sub *models.Subscription, msg *Message) {
	sendErr := p.queue.Enqueue(ctx, sub.Destination(), msg.Render(sub.Emoji))

	attempt := models.DeliveryAttempt{
		ChatID:  sub.ChatID,
		SentAt:  time.Now().UTC(),
		Success: sendErr == nil,
	}
	if sendErr != nil {
		attempt.Error = sendErr.Error()
		p.logger.WithFields(map[string]interface{}{
			"hash":   rec.TransactionHash,
			"chatId": sub.ChatID,
		}).WithError(sendErr).Error("Notification delivery failed")
	}

	if err := p.swaps.AppendDeliveryAttempt(ctx, rec.TransactionHash, attempt); err != nil {
		p.logger.WithField("hash", rec.TransactionHash).WithError(err).Error("Failed to record delivery attempt")
	}

	if sendErr == nil {
		if err := p.subs.TouchLastActive(ctx, sub.ID); err != nil {
			p.logger.WithField("subscription", sub.ID).WithError(err).Warn("Failed to update last active")
		}
	}
}
