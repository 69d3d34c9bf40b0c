package telegram

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/msaud/wolfherd/internal/manager"
)

// sender is the part of the Telegram client the pump needs.
type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// Pump forwards manager events and notifications to the admin chat.
type Pump struct {
	deps HandlerDeps
	bot  sender
}

// NewPump creates the event pump.
func NewPump(deps HandlerDeps, bot sender) *Pump {
	return &Pump{deps: deps, bot: bot}
}

// Run forwards until the context is cancelled.
func (p *Pump) Run(ctx context.Context) {
	chatID := p.deps.Cfg.Telegram.AdminUserID
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.deps.Manager.Events():
			p.send(ctx, chatID, formatEvent(ev))
		case n := <-p.deps.Manager.Notifications():
			p.send(ctx, chatID, fmt.Sprintf("%s\n(%d bots running)", n.Message, n.RunningCount))
		}
	}
}

func (p *Pump) send(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := p.bot.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		p.deps.Logger.ErrorContext(ctx, "event forward failed", "error", err)
	}
}

func formatEvent(ev manager.LifecycleEvent) string {
	switch ev.Type {
	case manager.EventStarting:
		// Start attempts are noisy; the outcome event is enough.
		return ""
	case manager.EventStarted:
		return fmt.Sprintf("Bot %s started.", ev.BotID)
	case manager.EventStopped:
		return fmt.Sprintf("Bot %s stopped.", ev.BotID)
	case manager.EventError:
		return fmt.Sprintf("Bot %s failed: %v", ev.BotID, ev.Err)
	}
	return ""
}
