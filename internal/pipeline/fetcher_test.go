package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
)

type fakeSwapSource struct {
	swaps map[string][]models.RawSwap
	errs  map[string]error
	calls []string
}

func (f *fakeSwapSource) RecentSwaps(_ context.Context, tokenAddress, chain string) ([]models.RawSwap, error) {
	key := tokenAddress + "/" + chain
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.swaps[key], nil
}

type fakeInserter struct {
	inserted []*models.SwapRecord
	seen     map[string]bool
}

func newFakeInserter() *fakeInserter {
	return &fakeInserter{seen: make(map[string]bool)}
}

func (f *fakeInserter) InsertMissing(_ context.Context, swaps []*models.SwapRecord) (int, error) {
	count := 0
	for _, rec := range swaps {
		if f.seen[rec.TransactionHash] {
			continue
		}
		f.seen[rec.TransactionHash] = true
		f.inserted = append(f.inserted, rec)
		count++
	}
	return count, nil
}

func testFetcher(source *fakeSwapSource, pairs PairLister, store *fakeInserter) *Fetcher {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return NewFetcher(source, pairs, store, logger)
}

func TestFetcherStoresNewSwaps(t *testing.T) {
	sub := testSubscription(100, models.TransactionBoth)
	pairs := &fakeSubscriptionStore{subs: []*models.Subscription{sub}}
	raw := testRecord(time.Now(), models.TransactionBuy, 500).Swap
	source := &fakeSwapSource{swaps: map[string][]models.RawSwap{testToken + "/eth": {raw}}}
	store := newFakeInserter()

	err := testFetcher(source, pairs, store).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	rec := store.inserted[0]
	assert.Equal(t, raw.TransactionHash, rec.TransactionHash)
	assert.Equal(t, testToken, rec.TokenAddress)
	assert.Equal(t, "eth", rec.Chain)
	assert.Equal(t, raw.BlockTimestamp, rec.BlockTimestamp)
	assert.Equal(t, raw, rec.Swap)
}

func TestFetcherRefetchIsIdempotent(t *testing.T) {
	sub := testSubscription(100, models.TransactionBoth)
	pairs := &fakeSubscriptionStore{subs: []*models.Subscription{sub}}
	raw := testRecord(time.Now(), models.TransactionBuy, 500).Swap
	source := &fakeSwapSource{swaps: map[string][]models.RawSwap{testToken + "/eth": {raw}}}
	store := newFakeInserter()
	fetcher := testFetcher(source, pairs, store)

	require.NoError(t, fetcher.Run(context.Background()))
	require.NoError(t, fetcher.Run(context.Background()))

	assert.Len(t, store.inserted, 1)
}

func TestFetcherFailedPairDoesNotAbortOthers(t *testing.T) {
	first := testSubscription(100, models.TransactionBoth)
	second := testSubscription(100, models.TransactionBoth)
	second.TokenAddress = testCounter
	second.Chain = "base"
	pairs := &fakeSubscriptionStore{subs: []*models.Subscription{first, second}}

	raw := testRecord(time.Now(), models.TransactionBuy, 500).Swap
	source := &fakeSwapSource{
		swaps: map[string][]models.RawSwap{testCounter + "/base": {raw}},
		errs:  map[string]error{testToken + "/eth": errors.New("indexer unavailable")},
	}
	store := newFakeInserter()

	err := testFetcher(source, pairs, store).Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, source.calls, 2)
	assert.Len(t, store.inserted, 1)
}

func TestFetcherNoResultsNoWrites(t *testing.T) {
	sub := testSubscription(100, models.TransactionBoth)
	pairs := &fakeSubscriptionStore{subs: []*models.Subscription{sub}}
	source := &fakeSwapSource{}
	store := newFakeInserter()

	err := testFetcher(source, pairs, store).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, store.inserted)
}
