package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/msaud/wolfherd/internal/joiner"
)

func formatReport(verb string, r joiner.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s done: %d ok, %d failed.", verb, r.Succeeded, r.Failed)
	for _, e := range r.Errors {
		sb.WriteString("\n")
		sb.WriteString(e)
	}
	return sb.String()
}

func newActivateHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) != 2 {
			sendText(ctx, b, deps, chatID, "Usage: /activate <email> <password>")
			return
		}
		stop := keepTyping(ctx, b, deps, chatID)
		err := deps.Manager.RunActivation(ctx, a[0], a[1])
		stop()
		if err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Activation failed: %v", err))
			return
		}
		sendText(ctx, b, deps, chatID, "Activation complete.")
	}
}

func newJoinGroupsHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) < 3 {
			sendText(ctx, b, deps, chatID, "Usage: /joingroups <email> <password> <group> [group...]")
			return
		}
		stop := keepTyping(ctx, b, deps, chatID)
		report, err := deps.Manager.BulkJoin(ctx, a[0], a[1], a[2:])
		stop()
		if err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Join failed: %v", err))
			return
		}
		sendText(ctx, b, deps, chatID, formatReport("Join", report))
	}
}

func newLeaveGroupsHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) < 2 {
			sendText(ctx, b, deps, chatID, "Usage: /leavegroups <email> <password> [keep...]")
			return
		}
		stop := keepTyping(ctx, b, deps, chatID)
		report, err := deps.Manager.BulkLeave(ctx, a[0], a[1], a[2:])
		stop()
		if err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Leave failed: %v", err))
			return
		}
		sendText(ctx, b, deps, chatID, formatReport("Leave", report))
	}
}
