package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
	"github.com/swap-notifier/internal/storage"
)

type fakeSubscriptionStore struct {
	mu      sync.Mutex
	subs    []*models.Subscription
	touched []string
}

func (f *fakeSubscriptionStore) ListActivePairs(_ context.Context) ([]models.TokenPair, error) {
	seen := make(map[models.TokenPair]bool)
	var pairs []models.TokenPair
	for _, sub := range f.subs {
		pair := models.TokenPair{TokenAddress: sub.TokenAddress, Chain: sub.Chain}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

func (f *fakeSubscriptionStore) ListActiveByPair(_ context.Context, tokenAddress, chain string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, sub := range f.subs {
		if sub.TokenAddress == tokenAddress && sub.Chain == chain {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionStore) TouchLastActive(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

type fakeSwapStore struct {
	mu       sync.Mutex
	records  []*models.SwapRecord
	attempts map[string][]models.DeliveryAttempt
	marked   []string
}

func newFakeSwapStore(records ...*models.SwapRecord) *fakeSwapStore {
	return &fakeSwapStore{records: records, attempts: make(map[string][]models.DeliveryAttempt)}
}

func (f *fakeSwapStore) ListUnprocessed(_ context.Context, tokenAddress, chain string, limit int) ([]*models.SwapRecord, error) {
	var out []*models.SwapRecord
	for _, rec := range f.records {
		if rec.TokenAddress == tokenAddress && rec.Chain == chain && !rec.Processed {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSwapStore) AppendDeliveryAttempt(_ context.Context, hash string, attempt models.DeliveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[hash] = append(f.attempts[hash], attempt)
	return nil
}

func (f *fakeSwapStore) MarkProcessed(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.TransactionHash == hash && !rec.Processed {
			rec.Processed = true
			f.marked = append(f.marked, hash)
			return true, nil
		}
	}
	return false, nil
}

type fakeChainStore struct {
	chains map[string]*models.ChainInfo
}

func (f *fakeChainStore) Get(_ context.Context, chainName string) (*models.ChainInfo, error) {
	info, ok := f.chains[chainName]
	if !ok {
		return nil, storage.ErrChainNotFound
	}
	return info, nil
}

type delivery struct {
	destination string
	text        string
}

type fakeDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
	failFor    map[string]error
}

func (f *fakeDeliverer) Enqueue(_ context.Context, destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{destination: destination, text: text})
	if f.failFor != nil {
		if err, ok := f.failFor[destination]; ok {
			return err
		}
	}
	return nil
}

func testProcessor(subs *fakeSubscriptionStore, swaps *fakeSwapStore, chains *fakeChainStore, queue *fakeDeliverer) *Processor {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return NewProcessor(subs, swaps, chains, queue, 50, logger)
}

func ethChains() *fakeChainStore {
	return &fakeChainStore{chains: map[string]*models.ChainInfo{"eth": testChainInfo()}}
}

func TestProcessorDeliversAndMarksProcessed(t *testing.T) {
	sub := testSubscription(100, models.TransactionBoth)
	subs := &fakeSubscriptionStore{subs: []*models.Subscription{sub}}
	swaps := newFakeSwapStore(testRecord(time.Now(), models.TransactionBuy, 500))
	queue := &fakeDeliverer{}

	err := testProcessor(subs, swaps, ethChains(), queue).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, queue.deliveries, 1)
	assert.Equal(t, sub.Destination(), queue.deliveries[0].destination)
	assert.Contains(t, queue.deliveries[0].text, "🟢 Buy")

	require.Len(t, swaps.attempts["0xabc"], 1)
	assert.True(t, swaps.attempts["0xabc"][0].Success)
	assert.Equal(t, []string{sub.ID}, subs.touched)
	assert.Equal(t, []string{"0xabc"}, swaps.marked)
}

func TestProcessorMarksProcessedWithoutMatches(t *testing.T) {
	subs := &fakeSubscriptionStore{subs: []*models.Subscription{testSubscription(1000, models.TransactionBoth)}}
	swaps := newFakeSwapStore(testRecord(time.Now(), models.TransactionBuy, 100))
	queue := &fakeDeliverer{}

	err := testProcessor(subs, swaps, ethChains(), queue).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, queue.deliveries)
	assert.Equal(t, []string{"0xabc"}, swaps.marked)
}

func TestProcessorIsolatesDestinationFailures(t *testing.T) {
	good := testSubscription(100, models.TransactionBoth)
	bad := testSubscription(100, models.TransactionBoth)
	bad.ID = "sub-2"
	bad.ChatID = "456"
	subs := &fakeSubscriptionStore{subs: []*models.Subscription{good, bad}}
	swaps := newFakeSwapStore(testRecord(time.Now(), models.TransactionBuy, 500))
	queue := &fakeDeliverer{failFor: map[string]error{"456": errors.New("chat not found")}}

	err := testProcessor(subs, swaps, ethChains(), queue).Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, queue.deliveries, 2)

	attempts := swaps.attempts["0xabc"]
	require.Len(t, attempts, 2)
	byChat := make(map[string]models.DeliveryAttempt)
	for _, a := range attempts {
		byChat[a.ChatID] = a
	}
	assert.True(t, byChat["123"].Success)
	assert.False(t, byChat["456"].Success)
	assert.Equal(t, "chat not found", byChat["456"].Error)

	// Last active is only touched for the destination that succeeded, and
	// the swap is processed despite the partial failure.
	assert.Equal(t, []string{good.ID}, subs.touched)
	assert.Equal(t, []string{"0xabc"}, swaps.marked)
}

func TestProcessorMarksProcessedWhenAllDeliveriesFail(t *testing.T) {
	sub := testSubscription(100, models.TransactionBoth)
	subs := &fakeSubscriptionStore{subs: []*models.Subscription{sub}}
	swaps := newFakeSwapStore(testRecord(time.Now(), models.TransactionBuy, 500))
	queue := &fakeDeliverer{failFor: map[string]error{sub.Destination(): errors.New("forbidden")}}

	err := testProcessor(subs, swaps, ethChains(), queue).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, subs.touched)
	assert.Equal(t, []string{"0xabc"}, swaps.marked)
	require.Len(t, swaps.attempts["0xabc"], 1)
	assert.False(t, swaps.attempts["0xabc"][0].Success)
}

func TestProcessorHandlesOldestFirst(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	older := testRecord(base, models.TransactionBuy, 500)
	newer := testRecord(base.Add(time.Minute), models.TransactionBuy, 500)
	newer.TransactionHash = "0xdef"
	newer.Swap.TransactionHash = "0xdef"

	subs := &fakeSubscriptionStore{subs: []*models.Subscription{testSubscription(100, models.TransactionBoth)}}
	swaps := newFakeSwapStore(older, newer)
	queue := &fakeDeliverer{}

	err := testProcessor(subs, swaps, ethChains(), queue).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, swaps.marked)
}

func TestProcessorSkipsPairWithoutChainInfo(t *testing.T) {
	subs := &fakeSubscriptionStore{subs: []*models.Subscription{testSubscription(100, models.TransactionBoth)}}
	swaps := newFakeSwapStore(testRecord(time.Now(), models.TransactionBuy, 500))
	queue := &fakeDeliverer{}
	chains := &fakeChainStore{chains: map[string]*models.ChainInfo{}}

	err := testProcessor(subs, swaps, chains, queue).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, queue.deliveries)
	assert.Empty(t, swaps.marked)
}
