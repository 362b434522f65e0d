package models

import (
	"strings"
	"time"
	"unicode"
)

// ChatType distinguishes Telegram groups from channels; channels need
// special destination formatting.
type ChatType string

const (
	ChatGroup   ChatType = "group"
	ChatChannel ChatType = "channel"
)

// Subscription is one chat's configured tracking rule. It is created and
// edited by the bot's conversation flow; the notification core only reads it
// and touches LastActive after a successful delivery.
type Subscription struct {
	ID       string   `json:"id"`
	ChatID   string   `json:"chatId"`
	ChatType ChatType `json:"chatType"`
	Name     string   `json:"name"`
	AdminID  string   `json:"adminId"`
	IsPublic bool     `json:"isPublic"`
	Username string   `json:"username,omitempty"`

	Active          bool            `json:"active"`
	TokenAddress    string          `json:"tokenAddress,omitempty"`
	Chain           string          `json:"chain,omitempty"`
	MinValue        *float64        `json:"minValue,omitempty"`
	TransactionType TransactionType `json:"transactionType,omitempty"`
	StartTime       *time.Time      `json:"startTime,omitempty"`

	Emoji      string     `json:"emoji"`
	LastActive *time.Time `json:"lastActive,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IsConfigured reports whether the tracking block is complete enough for the
// notification core to evaluate. Incomplete subscriptions are skipped, never
// treated as errors.
func (s *Subscription) IsConfigured() bool {
	return s.Active &&
		s.TokenAddress != "" &&
		s.Chain != "" &&
		s.MinValue != nil &&
		(s.TransactionType == TransactionBuy ||
			s.TransactionType == TransactionSell ||
			s.TransactionType == TransactionBoth)
}

// Destination returns the transport address for this subscription. Groups
// are addressed by raw chat id. Public channels go by @username; private
// channels by the -100-prefixed numeric id Telegram expects.
func (s *Subscription) Destination() string {
	if s.ChatID == "" || s.ChatType != ChatChannel {
		return s.ChatID
	}

	if s.IsPublic {
		if s.Username != "" {
			return atPrefixed(s.Username)
		}
		if !isNumeric(s.ChatID) {
			return atPrefixed(s.ChatID)
		}
	}

	return "-100" + digitsOnly(s.ChatID)
}

func atPrefixed(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	return "@" + name
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
