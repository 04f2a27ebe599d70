// Package channel connects the pipeline to the chat platform.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lotbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramPollTimeout = 30 // seconds

// Handler consumes one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg domain.IncomingMessage) error
}

// Telegram long-polls the Bot API and feeds messages from the configured
// group chat to the handler, one at a time in delivery order.
type Telegram struct {
	token  string
	chatID int64
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID int64
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	return &Telegram{
		token:  cfg.Token,
		chatID: cfg.ChatID,
		logger: cfg.Logger,
	}
}

// Start connects to Telegram and polls until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, handler Handler) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "chat_id", t.chatID)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update, handler Handler) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return
	}
	if m.Chat.ID != t.chatID {
		t.logger.Info("skip message from unknown chat", "chat_id", m.Chat.ID)
		return
	}

	msg, ok := MapMessage(m)
	if !ok {
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		// No retry here; the delivery layer owns redelivery policy.
		t.logger.Error("message handling failed",
			"message_id", m.MessageID,
			"err", err,
		)
	}
}

// MapMessage converts a Telegram message into the domain shape. False means
// the message carries nothing to process (service messages, stickers).
// This client library predates forum topics, so the topic id is recovered
// from the topic root message that Telegram attaches as the reply target.
func MapMessage(m *tgbotapi.Message) (domain.IncomingMessage, bool) {
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	hasPhoto := len(m.Photo) > 0
	if text == "" && !hasPhoto {
		return domain.IncomingMessage{}, false
	}

	var topicID int64
	hasTopic := false
	if m.ReplyToMessage != nil {
		topicID = int64(m.ReplyToMessage.MessageID)
		hasTopic = true
	}

	return domain.IncomingMessage{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		TopicID:   topicID,
		HasTopic:  hasTopic,
		Text:      text,
		Date:      time.Unix(int64(m.Date), 0).UTC(),
		HasPhoto:  hasPhoto,
	}, true
}
