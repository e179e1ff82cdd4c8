// Package telegram delivers customer notifications through a Telegram bot and lets
// customers link their chat with "/start <customer id>".
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the sender uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatDirectory resolves the chat of a customer.
type ChatDirectory interface {
	ChatID(ctx context.Context, customerID kernel.UUID) (int64, bool, error)
}

// Sender implements ports.NotificationSender. Customers without a linked chat are
// reported to the operations chat when one is configured and skipped otherwise.
type Sender struct {
	bot            BotAPI
	chats          ChatDirectory
	fallbackChatID int64
	logger         *slog.Logger
}

func NewSender(bot BotAPI, chats ChatDirectory, fallbackChatID int64, logger *slog.Logger) *Sender {
	return &Sender{
		bot:            bot,
		chats:          chats,
		fallbackChatID: fallbackChatID,
		logger:         logger.With("component", "telegram_sender"),
	}
}

func (s *Sender) Send(ctx context.Context, customerID kernel.UUID, eventType event.Type, payload event.Snapshot) error {
	chatID, ok, err := s.chats.ChatID(ctx, customerID)
	if err != nil {
		return err
	}
	text := Render(eventType, payload)
	if !ok {
		if s.fallbackChatID == 0 {
			s.logger.DebugContext(ctx, "customer has no linked chat", "customer_id", customerID.String())
			return nil
		}
		chatID = s.fallbackChatID
		text = fmt.Sprintf("[customer %s]\n%s", customerID, text)
	}

	if _, err = s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
	}
	return nil
}

// Render builds the message text for a lifecycle event.
func Render(eventType event.Type, s event.Snapshot) string {
	var headline string
	switch eventType {
	case event.OrderPlaced:
		headline = "We received your order %s."
	case event.OrderAccepted:
		headline = "The restaurant accepted order %s."
	case event.OrderRejected:
		headline = "Sorry, the restaurant could not take order %s."
	case event.OrderPreparing:
		headline = "Order %s is being prepared."
	case event.OrderReady:
		headline = "Order %s is ready."
	case event.OrderCourierAssigned:
		headline = "A courier is on the way to pick up order %s."
	case event.OrderOnDelivery:
		headline = "Order %s is out for delivery."
	case event.OrderDelivered:
		headline = "Order %s was delivered. Enjoy your meal!"
	case event.OrderCompleted:
		headline = "Order %s is complete. Thank you!"
	case event.OrderCancelled:
		headline = "Order %s was cancelled."
	default:
		headline = "Order %s was updated."
	}

	var b strings.Builder
	fmt.Fprintf(&b, headline, s.OrderNumber)
	if s.Note != "" && (eventType == event.OrderCancelled || eventType == event.OrderRejected) {
		fmt.Fprintf(&b, "\nReason: %s", s.Note)
	}
	fmt.Fprintf(&b, "\nTotal: %s", s.Total)
	return b.String()
}

// LogSender stands in for Telegram when no bot token is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "log_sender")}
}

func (s *LogSender) Send(ctx context.Context, customerID kernel.UUID, eventType event.Type, payload event.Snapshot) error {
	s.logger.InfoContext(ctx, "customer notification",
		"customer_id", customerID.String(),
		"event_type", eventType.String(),
		"text", Render(eventType, payload))
	return nil
}

var (
	_ ports.NotificationSender = (*Sender)(nil)
	_ ports.NotificationSender = (*LogSender)(nil)
)
