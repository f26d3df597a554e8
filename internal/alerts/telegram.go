package alerts

import (
	"context"
	"fmt"
	"strconv"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// sender is the slice of the bot API we use, kept narrow for tests.
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram delivers alerts to a single chat. Send-only: no polling,
// no command handling.
type Telegram struct {
	bot    sender
	chatID int64
	logger *logger.Logger
}

// NewTelegram creates a telegram channel. The token is verified
// against the Bot API during construction.
func NewTelegram(cfg strategyconfig.Telegram, log *logger.Logger) (*Telegram, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat_id: %w", err)
	}

	bot, err := tb.NewBot(tb.Settings{Token: cfg.BotToken})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatID, logger: log}, nil
}

// Name identifies the channel in delivery logs.
func (t *Telegram) Name() string { return "telegram" }

// Notify sends the alert body to the configured chat.
func (t *Telegram) Notify(ctx context.Context, subject, body string) error {
	_, err := t.bot.Send(&tb.Chat{ID: t.chatID}, body)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
