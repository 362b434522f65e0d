package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	trackedToken = "0x6982508145454ce325ddbe47a25d4ec3d2311933"
	counterToken = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func buySwap(spentUSD, receivedUSD float64) RawSwap {
	return RawSwap{
		TransactionHash: "0xabc",
		BlockTimestamp:  time.Now(),
		Token0:          SwapLeg{Address: counterToken, Symbol: "WETH", Amount: 1.5, USDAmount: spentUSD, USDPrice: 3000},
		Token1:          SwapLeg{Address: trackedToken, Symbol: "PEPE", Amount: -250000, USDAmount: receivedUSD, USDPrice: 0.02},
		TransactionType: TransactionBuy,
		TokenSold:       "token0",
		TokenBought:     "token1",
	}
}

func TestUSDValueBuyUsesCounterLeg(t *testing.T) {
	swap := buySwap(4500, -4480)

	assert.Equal(t, 4500.0, swap.USDValue(trackedToken))
}

func TestUSDValueSellUsesTrackedLeg(t *testing.T) {
	swap := buySwap(4500, -4480)
	swap.TransactionType = TransactionSell
	swap.TokenSold = "token1"
	swap.TokenBought = "token0"

	assert.Equal(t, 4480.0, swap.USDValue(trackedToken))
}

func TestUSDValueAlwaysNonNegative(t *testing.T) {
	swap := buySwap(-4500, 4480)

	assert.Equal(t, 4500.0, swap.USDValue(trackedToken))
}

func TestTrackedLegMatchesCaseInsensitively(t *testing.T) {
	swap := buySwap(100, 100)

	leg := swap.TrackedLeg("0x6982508145454CE325DDBE47A25D4EC3D2311933")
	assert.Equal(t, "PEPE", leg.Symbol)
}

func TestSoldAndBoughtLegs(t *testing.T) {
	swap := buySwap(100, 100)

	assert.Equal(t, "WETH", swap.SoldLeg().Symbol)
	assert.Equal(t, "PEPE", swap.BoughtLeg().Symbol)
}
