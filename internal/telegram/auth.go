package telegram

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly rejects updates from anyone except the configured admin
// user.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			userID, chatID := senderOf(update)
			if userID == 0 {
				next(ctx, b, update)
				return
			}
			if userID != deps.Cfg.Telegram.AdminUserID {
				deps.Logger.WarnContext(ctx, "unauthorized access attempt",
					"user_id", userID, "chat_id", chatID)
				if chatID != 0 {
					_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
						ChatID: chatID,
						Text:   "Not authorized.",
					})
				}
				return
			}
			next(ctx, b, update)
		}
	}
}

func senderOf(update *models.Update) (userID, chatID int64) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		userID = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message.Message != nil {
			chatID = update.CallbackQuery.Message.Message.Chat.ID
		}
		return userID, chatID
	}
	return 0, 0
}
