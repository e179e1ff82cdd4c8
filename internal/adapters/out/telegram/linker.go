package telegram

import (
	"context"
	"log/slog"
	"strings"

	"orderflow/internal/core/domain/model/kernel"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdatesAPI is the part of *tgbotapi.BotAPI the linker uses.
type UpdatesAPI interface {
	BotAPI
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChatLinker stores the chat a customer wrote from.
type ChatLinker interface {
	Link(ctx context.Context, customerID kernel.UUID, chatID int64) error
}

// Linker answers "/start <customer id>" by linking the chat to the customer, so
// later notifications reach them.
type Linker struct {
	bot    UpdatesAPI
	chats  ChatLinker
	logger *slog.Logger
}

func NewLinker(bot UpdatesAPI, chats ChatLinker, logger *slog.Logger) *Linker {
	return &Linker{bot: bot, chats: chats, logger: logger.With("component", "telegram_linker")}
}

// Run polls updates until ctx is done.
func (l *Linker) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := l.bot.GetUpdatesChan(u)
	defer l.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			l.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update; anything but /start is ignored.
func (l *Linker) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() || msg.Command() != "start" {
		return
	}

	customerID, err := kernel.UUIDFromString(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		l.reply(msg.Chat.ID, "Open the link from the order page to receive updates here.")
		return
	}
	if err = l.chats.Link(ctx, customerID, msg.Chat.ID); err != nil {
		l.logger.ErrorContext(ctx, "failed to link chat", "customer_id", customerID.String(), "error", err)
		l.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	l.reply(msg.Chat.ID, "Done! Order updates will arrive in this chat.")
}

func (l *Linker) reply(chatID int64, text string) {
	if _, err := l.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		l.logger.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}
