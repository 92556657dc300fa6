// Package notify delivers human-readable session updates. Delivery is best
// effort: nothing here ever returns an error to the trading loop.
package notify

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arbitrum-trade-bot-go/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends a message and never fails.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Nop drops every message. It is used when no credentials are configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// sender is the subset of *tgbotapi.BotAPI used by TelegramNotifier.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts messages to a single chat.
type TelegramNotifier struct {
	bot     sender
	chat    chatTarget
	timeout time.Duration
	logger  *zap.Logger
}

// chatTarget is either a numeric chat id or an @channel username.
type chatTarget struct {
	id       int64
	username string
}

func parseChatTarget(raw string) (chatTarget, bool) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id != 0 {
		return chatTarget{id: id}, true
	}
	if len(raw) > 1 && strings.HasPrefix(raw, "@") {
		return chatTarget{username: raw}, true
	}
	return chatTarget{}, false
}

func (c chatTarget) message(text string) tgbotapi.MessageConfig {
	if c.username != "" {
		return tgbotapi.NewMessageToChannel(c.username, text)
	}
	return tgbotapi.NewMessage(c.id, text)
}

// New returns a TelegramNotifier when both credentials are present and the bot
// can be reached, and Nop otherwise. Failure to reach Telegram at startup is
// logged, not returned.
func New(cfg config.Telegram, logger *zap.Logger) Notifier {
	return newWithEndpoint(cfg, tgbotapi.APIEndpoint, logger)
}

func newWithEndpoint(cfg config.Telegram, endpoint string, logger *zap.Logger) Notifier {
	logger = logger.Named("notify")
	if cfg.BotToken == "" || strings.TrimSpace(cfg.ChatID) == "" {
		logger.Info("Telegram credentials not configured, notifications disabled")
		return Nop{}
	}
	chat, ok := parseChatTarget(cfg.ChatID)
	if !ok {
		logger.Warn("Telegram chat id is neither a number nor an @channel, notifications disabled",
			zap.String("chat_id", cfg.ChatID))
		return Nop{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		logger.Warn("Telegram bot unavailable, notifications disabled", zap.Error(err))
		return Nop{}
	}
	logger.Info("Telegram notifications enabled", zap.String("bot", bot.Self.UserName))

	return &TelegramNotifier{
		bot:     bot,
		chat:    chat,
		timeout: timeout,
		logger:  logger,
	}
}

// Notify sends message. Errors are logged and dropped. The send is bounded by
// the configured timeout rather than ctx so that a cancelled session can still
// report its final state.
func (n *TelegramNotifier) Notify(_ context.Context, message string) {
	done := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(n.chat.message(message))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			n.logger.Warn("Failed to deliver notification", zap.Error(err))
		}
	case <-time.After(n.timeout):
		n.logger.Warn("Notification delivery timed out", zap.Duration("timeout", n.timeout))
	}
}
