package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/swap-notifier/internal/models"
)

func testChainInfo() *models.ChainInfo {
	return &models.ChainInfo{
		ChainName:    "eth",
		ExplorerURL:  "https://etherscan.io",
		ChartURLBase: "https://dexscreener.com/ethereum/",
		SwapURLBase:  "https://app.1inch.io/#/1/simple/swap/",
		ChainID:      1,
	}
}

func TestBuildMessageBuy(t *testing.T) {
	rec := testRecord(time.Now(), models.TransactionBuy, 250)
	rec.Swap.Token0.Amount = 0.08
	rec.Swap.Token1.Amount = 12500

	msg := BuildMessage(rec, testChainInfo())

	assert.Equal(t, "🟢 Buy", msg.Direction)
	assert.Equal(t, "PEPE/WETH", msg.Exchange)
	assert.Equal(t, 250.0, msg.SpentUSD)
	assert.Equal(t, 0.08, msg.SpentAmount)
	assert.Equal(t, "WETH", msg.SpentSymbol)
	assert.Equal(t, 12500.0, msg.ReceivedAmount)
	assert.Equal(t, "PEPE", msg.ReceivedSymbol)
	assert.Equal(t, 0.02, msg.Price)
	assert.Equal(t, "https://etherscan.io/tx/0xabc", msg.TxURL)
	assert.Equal(t, "https://etherscan.io/address/0x1111111111111111111111111111111111111111", msg.WalletURL)
	assert.Equal(t, "https://dexscreener.com/ethereum/"+testToken, msg.ChartURL)
	assert.Equal(t, "https://app.1inch.io/#/1/simple/swap/"+testToken, msg.TradeURL)
}

func TestBuildMessageSell(t *testing.T) {
	rec := testRecord(time.Now(), models.TransactionSell, 250)

	msg := BuildMessage(rec, testChainInfo())

	assert.Equal(t, "🔴 Sell", msg.Direction)
	assert.Equal(t, "PEPE", msg.SpentSymbol)
	assert.Equal(t, "WETH", msg.ReceivedSymbol)
}

func TestBuildMessageNegativeAmountsNormalized(t *testing.T) {
	rec := testRecord(time.Now(), models.TransactionBuy, 250)
	rec.Swap.Token0.USDAmount = -250
	rec.Swap.Token0.Amount = -0.08

	msg := BuildMessage(rec, testChainInfo())

	assert.Equal(t, 250.0, msg.SpentUSD)
	assert.Equal(t, 0.08, msg.SpentAmount)
}

func TestBuildMessageUnknownExchange(t *testing.T) {
	rec := testRecord(time.Now(), models.TransactionBuy, 250)
	rec.Swap.PairLabel = ""

	msg := BuildMessage(rec, testChainInfo())

	assert.Equal(t, "Unknown Exchange", msg.Exchange)
}

func TestRenderContents(t *testing.T) {
	rec := testRecord(time.Now(), models.TransactionBuy, 250)
	rec.Swap.Token0.Amount = 0.08
	rec.Swap.Token1.Amount = 12500
	msg := BuildMessage(rec, testChainInfo())

	text := msg.Render("")

	assert.Contains(t, text, "🟢 Buy on PEPE/WETH!")
	assert.Contains(t, text, "💲 Spent: $250.00 (0.0800 WETH)")
	assert.Contains(t, text, "💱 Got: 12500.0000 PEPE Tokens")
	assert.Contains(t, text, `<a href="https://etherscan.io/address/0x1111111111111111111111111111111111111111">0x1111...1111</a>`)
	assert.Contains(t, text, "💵 Price: $0.02")
	assert.Contains(t, text, `<a href="https://etherscan.io/tx/0xabc">TX</a>`)
	assert.Contains(t, text, ">Chart</a>")
	assert.Contains(t, text, ">Trade</a>")
}

func TestRenderOmitsTradeLinkWithoutSwapURL(t *testing.T) {
	chain := testChainInfo()
	chain.SwapURLBase = ""
	msg := BuildMessage(testRecord(time.Now(), models.TransactionBuy, 250), chain)

	assert.NotContains(t, msg.Render(""), "Trade")
}

func TestRenderEmojiScaling(t *testing.T) {
	tests := []struct {
		name  string
		usd   float64
		emoji string
		want  string
		count int
	}{
		{"small buy gets one emoji", 10, "🔥", "🔥", 1},
		{"just under one step", 99, "🔥", "🔥", 1},
		{"scales per fifty dollars", 250, "🔥", "🔥", 5},
		{"capped at seventeen", 100000, "🔥", "🔥", 17},
		{"default emoji when unset", 100, "", defaultEmoji, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := BuildMessage(testRecord(time.Now(), models.TransactionBuy, tt.usd), testChainInfo())
			text := msg.Render(tt.emoji)
			assert.Contains(t, text, strings.Repeat(tt.want, tt.count))
			assert.NotContains(t, text, strings.Repeat(tt.want, tt.count+1))
		})
	}
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1111...abcd", shortAddress("0x11112222333344445555666677778888abcd"))
	assert.Equal(t, "0xshort", shortAddress("0xshort"))
}
