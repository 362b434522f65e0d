package models

import (
	"math"
	"strings"
	"time"
)

// TransactionType tags a swap as a buy or sell of the tracked token.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
	// TransactionBoth is only valid as a subscription filter, never on a swap.
	TransactionBoth TransactionType = "both"
)

// SwapLeg is one side of a swap as reported by the indexer.
type SwapLeg struct {
	Address   string  `json:"address"`
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	USDAmount float64 `json:"usd_amount"`
	USDPrice  float64 `json:"usd_price"`
}

// RawSwap is the swap payload exactly as returned by the indexer.
// It is persisted verbatim in the swap record.
type RawSwap struct {
	TransactionHash string          `json:"transaction_hash"`
	BlockTimestamp  time.Time       `json:"block_timestamp"`
	Token0          SwapLeg         `json:"token0"`
	Token1          SwapLeg         `json:"token1"`
	TransactionType TransactionType `json:"transaction_type"`
	PairLabel       string          `json:"pair_label"`
	WalletAddress   string          `json:"wallet_address"`
	TokenSold       string          `json:"token_sold"`   // "token0" or "token1"
	TokenBought     string          `json:"token_bought"` // "token0" or "token1"
}

// TrackedLeg returns the leg whose address matches the tracked token,
// falling back to token0 when neither matches.
func (s *RawSwap) TrackedLeg(trackedToken string) *SwapLeg {
	if strings.EqualFold(s.Token1.Address, trackedToken) {
		return &s.Token1
	}
	return &s.Token0
}

// CounterLeg returns the leg opposite the tracked token.
func (s *RawSwap) CounterLeg(trackedToken string) *SwapLeg {
	if s.TrackedLeg(trackedToken) == &s.Token0 {
		return &s.Token1
	}
	return &s.Token0
}

// SoldLeg returns the leg that was spent in the swap.
func (s *RawSwap) SoldLeg() *SwapLeg {
	if s.TokenSold == "token1" {
		return &s.Token1
	}
	return &s.Token0
}

// BoughtLeg returns the leg that was received in the swap.
func (s *RawSwap) BoughtLeg() *SwapLeg {
	if s.TokenBought == "token0" {
		return &s.Token0
	}
	return &s.Token1
}

// USDValue computes the swap's USD amount for filter matching. A buy is
// measured by the counter-token leg (the amount spent), a sell by the
// tracked-token leg. Always non-negative; indexer amounts can carry sign.
func (s *RawSwap) USDValue(trackedToken string) float64 {
	var amount float64
	if s.TransactionType == TransactionBuy {
		amount = s.CounterLeg(trackedToken).USDAmount
	} else {
		amount = s.TrackedLeg(trackedToken).USDAmount
	}
	return math.Abs(amount)
}

// DeliveryAttempt is one entry in a swap's notification audit trail.
type DeliveryAttempt struct {
	ChatID  string    `json:"chatId"`
	SentAt  time.Time `json:"sentAt"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// SwapRecord is a stored swap keyed uniquely by transaction hash.
// The fetcher creates it, the processor appends delivery attempts and flips
// Processed exactly once, the sweeper eventually deletes it.
type SwapRecord struct {
	TransactionHash string            `json:"transactionHash"`
	TokenAddress    string            `json:"tokenAddress"`
	Chain           string            `json:"chain"`
	BlockTimestamp  time.Time         `json:"blockTimestamp"`
	Swap            RawSwap           `json:"swapData"`
	Processed       bool              `json:"processed"`
	ProcessedAt     *time.Time        `json:"processedAt,omitempty"`
	Notifications   []DeliveryAttempt `json:"notifications"`
	CreatedAt       time.Time         `json:"createdAt"`
}
