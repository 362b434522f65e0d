package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/swap-notifier/internal/models"
)

const (
	defaultEmoji  = "⚡️"
	maxEmojiCount = 17
	usdPerEmoji   = 50.0
)

// Message is the destination-agnostic notification payload built from a swap.
// Rendering into chat text happens separately so one swap is formatted once
// and customized per destination.
type Message struct {
	Direction string
	Exchange  string

	SpentUSD       float64
	SpentAmount    float64
	SpentSymbol    string
	ReceivedAmount float64
	ReceivedSymbol string
	Price          float64

	Wallet    string
	WalletURL string
	TxURL     string
	ChartURL  string
	TradeURL  string
}

// BuildMessage derives the notification payload for a swap. Pure function of
// its inputs; no I/O.
func BuildMessage(rec *models.SwapRecord, chain *models.ChainInfo) *Message {
	swap := &rec.Swap

	direction := "🔴 Sell"
	if swap.TransactionType == models.TransactionBuy {
		direction = "🟢 Buy"
	}

	exchange := swap.PairLabel
	if exchange == "" {
		exchange = "Unknown Exchange"
	}

	spent := swap.SoldLeg()
	received := swap.BoughtLeg()
	tracked := swap.TrackedLeg(rec.TokenAddress)

	msg := &Message{
		Direction:      direction,
		Exchange:       exchange,
		SpentUSD:       math.Abs(spent.USDAmount),
		SpentAmount:    math.Abs(spent.Amount),
		SpentSymbol:    spent.Symbol,
		ReceivedAmount: math.Abs(received.Amount),
		ReceivedSymbol: received.Symbol,
		Price:          tracked.USDPrice,
		Wallet:         swap.WalletAddress,
		WalletURL:      fmt.Sprintf("%s/address/%s", chain.ExplorerURL, swap.WalletAddress),
		TxURL:          fmt.Sprintf("%s/tx/%s", chain.ExplorerURL, swap.TransactionHash),
		ChartURL:       chain.ChartURLBase + rec.TokenAddress,
	}
	if chain.SwapURLBase != "" {
		msg.TradeURL = chain.SwapURLBase + rec.TokenAddress
	}

	return msg
}

// Render produces the HTML chat text for one destination. The emoji row
// scales with the spent amount, one symbol per $50, capped at 17.
func (m *Message) Render(emoji string) string {
	if emoji == "" {
		emoji = defaultEmoji
	}
	count := int(m.SpentUSD / usdPerEmoji)
	if count < 1 {
		count = 1
	}
	if count > maxEmojiCount {
		count = maxEmojiCount
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s!\n\n", m.Direction, m.Exchange)
	b.WriteString(strings.Repeat(emoji, count))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💲 Spent: $%.2f (%.4f %s)\n", m.SpentUSD, m.SpentAmount, m.SpentSymbol)
	fmt.Fprintf(&b, "💱 Got: %.4f %s Tokens\n", m.ReceivedAmount, m.ReceivedSymbol)
	fmt.Fprintf(&b, "🤵‍♂️ Wallet: <a href=\"%s\">%s</a>\n", m.WalletURL, shortAddress(m.Wallet))
	fmt.Fprintf(&b, "💵 Price: $%.2f\n\n", m.Price)
	fmt.Fprintf(&b, "<a href=\"%s\">TX</a> | <a href=\"%s\">Chart</a>", m.TxURL, m.ChartURL)
	if m.TradeURL != "" {
		fmt.Fprintf(&b, " | <a href=\"%s\">Trade</a>", m.TradeURL)
	}

	return b.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
