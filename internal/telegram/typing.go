package telegram

import (
	"context"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// typingRefresh is how often the chat action is re-sent; Telegram drops
// the indicator after about five seconds.
const typingRefresh = 4 * time.Second

// keepTyping shows the typing indicator in chatID until the returned
// stop function is called. Used by the slow tooling commands.
func keepTyping(ctx context.Context, b *tgbot.Bot, deps HandlerDeps, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	send := func() {
		_, err := b.SendChatAction(ctx, &tgbot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		if err != nil && ctx.Err() == nil {
			deps.Logger.DebugContext(ctx, "typing action failed", "error", err, "chat_id", chatID)
		}
	}

	send()
	go func() {
		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()
	return cancel
}
