package telegram_bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// CrisisAlert describes a crisis turn for on-call staff. It never carries
// the user's message text.
type CrisisAlert struct {
	UserID    int64
	Username  string
	Severity  string
	MessageID int64
	At        time.Time
}

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot posts crisis alerts to an on-call Telegram chat.
type Bot struct {
	api    telegramAPI
	chatID int64
	logger *zap.Logger
}

// NewBot creates a new Telegram bot instance. It returns nil when alerts are
// disabled.
func NewBot(enabled bool, token string, chatID int64, logger *zap.Logger) (*Bot, error) {
	if !enabled || token == "" {
		logger.Info("Telegram crisis alerts are disabled")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{api: botAPI, chatID: chatID, logger: logger}, nil
}

// NotifyCrisis sends an alert to the on-call chat.
func (b *Bot) NotifyCrisis(_ context.Context, alert CrisisAlert) error {
	if b == nil {
		return nil
	}

	text := fmt.Sprintf(
		"🚨 Crisis language detected\n\n"+
			"User: %s (id %d)\n"+
			"Severity: %s\n"+
			"Message id: %d\n"+
			"Time: %s\n\n"+
			"The user was shown the helpline message.",
		alert.Username, alert.UserID, alert.Severity, alert.MessageID, alert.At.UTC().Format(time.RFC3339),
	)

	if _, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		return fmt.Errorf("failed to send crisis alert: %w", err)
	}
	b.logger.Info("Crisis alert sent", zap.Int64("user_id", alert.UserID), zap.Int64("chat_id", b.chatID))
	return nil
}

// Start answers /start and /help so staff can look up the chat id to
// configure.
func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	var reply string
	switch message.Command() {
	case "start":
		reply = fmt.Sprintf("Hello, %s! This chat's id is %d. Set alerts.chat_id to it to receive crisis alerts here.",
			message.From.FirstName, message.Chat.ID)
	case "help":
		reply = "I post an alert whenever a companion user writes crisis language. /start shows this chat's id."
	default:
		reply = "Unknown command. Use /help."
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(message.Chat.ID, reply)); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
	}
}
