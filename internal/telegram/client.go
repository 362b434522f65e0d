// Package telegram implements the messaging transport on top of the
// Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

// ThrottledError signals that Telegram rejected a send with a
// "too many requests" response. RetryAfter is zero when the response did not
// advertise a duration; callers substitute their default cool-down.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("telegram throttled, retry after %s", e.RetryAfter)
}

var retryAfterPattern = regexp.MustCompile(`retry after (\d+)`)

// ParseRetryAfter inspects a transport error message for a throttling
// condition. The second return value reports whether the message was a
// throttling response at all.
func ParseRetryAfter(message string) (time.Duration, bool) {
	if !strings.Contains(message, "Too Many Requests") {
		return 0, false
	}

	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, true
	}

	seconds, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, true
	}

	return time.Duration(seconds) * time.Second, true
}

// Client sends notification messages through a Telegram bot.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient connects to the Telegram Bot API with the given token.
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram.NewBotAPI")
	}

	return &Client{api: api}, nil
}

// Send delivers an HTML-formatted message to a destination. Destinations are
// either numeric chat ids or @-prefixed channel usernames. Link previews are
// suppressed so notification links stay compact.
//
// The underlying Bot API client has no context support; ctx is accepted for
// interface compatibility and checked before the call.
func (c *Client) Send(ctx context.Context, destination, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(destination, "@") {
		msg = tgbotapi.NewMessageToChannel(destination, text)
	} else {
		chatID, err := strconv.ParseInt(destination, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid destination %q", destination)
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.api.Send(msg); err != nil {
		if retryAfter, throttled := ParseRetryAfter(err.Error()); throttled {
			return &ThrottledError{RetryAfter: retryAfter}
		}
		return errors.Wrap(err, "telegram.Send")
	}

	return nil
}
