package pipeline

import (
	"github.com/swap-notifier/internal/models"
)

// Match reports whether a stored swap satisfies one subscription's
// notification criteria. Incomplete subscriptions never match; they are
// skipped, not errors.
func Match(sub *models.Subscription, rec *models.SwapRecord) bool {
	if !sub.IsConfigured() {
		return false
	}

	if sub.StartTime != nil && rec.BlockTimestamp.Before(*sub.StartTime) {
		return false
	}

	// Equality with the minimum still matches.
	if rec.Swap.USDValue(rec.TokenAddress) < *sub.MinValue {
		return false
	}

	if sub.TransactionType != models.TransactionBoth &&
		sub.TransactionType != rec.Swap.TransactionType {
		return false
	}

	return true
}

// MatchAll filters subscriptions down to those a swap should notify.
func MatchAll(subs []*models.Subscription, rec *models.SwapRecord) []*models.Subscription {
	var matched []*models.Subscription
	for _, sub := range subs {
		if Match(sub, rec) {
			matched = append(matched, sub)
		}
	}
	return matched
}
