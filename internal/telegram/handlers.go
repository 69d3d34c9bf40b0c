package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = `Commands:
/newbot - start a new bot (guided)
/bots - list your running bots
/stop <id> - stop one bot
/stopall - stop all your bots
/race <id> <rounds> [train] - start race mode
/stoprace <id> - stop race mode
/autodelete <id> <group> <delay_s> <user> [user...] - auto-delete filter
/stopautodelete <id> - remove the filter
/setgroup <group> - set your default group
/activate <email> <password> - run pet activation for an account
/joingroups <email> <password> <group>... - bulk-join groups
/leavegroups <email> <password> [keep...] - leave all joined groups
/accounts - list saved accounts
/cancel - abort the current dialog`

func sendText(ctx context.Context, b *tgbot.Bot, deps HandlerDeps, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		deps.Logger.ErrorContext(ctx, "send failed", "error", err, "chat_id", chatID)
	}
}

func ownerOf(update *models.Update) (ownerID string, chatID int64, ok bool) {
	if update.Message == nil || update.Message.From == nil {
		return "", 0, false
	}
	return strconv.FormatInt(update.Message.From.ID, 10), update.Message.Chat.ID, true
}

// args returns the whitespace-separated arguments after the command.
func args(update *models.Update) []string {
	fields := strings.Fields(update.Message.Text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

func newStartHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		sendText(ctx, b, deps, update.Message.Chat.ID, "Wolfherd bot controller.\n\n"+helpText)
	}
}

func newNewBotHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		ownerID, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		d := deps.Sessions.begin(chatID)
		d.req.OwnerID = ownerID

		kb := &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Calculator", CallbackData: "kind:calculator"},
				{Text: "Writer", CallbackData: "kind:writer"},
			},
			{
				{Text: "Reverser", CallbackData: "kind:reverser"},
				{Text: "Time", CallbackData: "kind:time"},
			},
			{
				{Text: "Monitor", CallbackData: "kind:monitor"},
				{Text: "Racer", CallbackData: "kind:racer"},
			},
		}}
		if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:      chatID,
			Text:        "Pick the bot kind:",
			ReplyMarkup: kb,
		}); err != nil {
			deps.Logger.ErrorContext(ctx, "send failed", "error", err, "chat_id", chatID)
		}
	}
}

func newKindCallbackHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		cb := update.CallbackQuery
		if cb == nil || cb.Message.Message == nil {
			return
		}
		chatID := cb.Message.Message.Chat.ID

		_, _ = b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

		d := deps.Sessions.get(chatID)
		if d == nil || d.step != stepKind {
			return
		}
		d.req.Kind = strings.TrimPrefix(cb.Data, "kind:")
		d.step = stepEmail
		sendText(ctx, b, deps, chatID, "Account email?")
	}
}

// newDialogHandler consumes plain text while a new-bot dialog is active.
func newDialogHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		chatID := update.Message.Chat.ID
		if update.Message.From.ID != deps.Cfg.Telegram.AdminUserID {
			return
		}
		d := deps.Sessions.get(chatID)
		if d == nil {
			return
		}
		text := strings.TrimSpace(update.Message.Text)

		switch d.step {
		case stepKind:
			sendText(ctx, b, deps, chatID, "Use the buttons to pick a kind, or /cancel.")

		case stepEmail:
			d.req.Email = text
			d.step = stepPassword
			sendText(ctx, b, deps, chatID, "Account password?")

		case stepPassword:
			d.req.Password = text
			d.step = stepGroup
			sendText(ctx, b, deps, chatID, "Group id? Send - for your default group.")

		case stepGroup:
			if text != "-" {
				d.req.GroupID = text
			}
			req := d.req
			deps.Sessions.clear(chatID)
			if req.Kind == "racer" {
				req.RaceRounds = 1
			}

			result, err := deps.Manager.StartBot(ctx, req)
			if err != nil {
				sendText(ctx, b, deps, chatID, fmt.Sprintf("Start failed: %v", err))
				return
			}
			sendText(ctx, b, deps, chatID, fmt.Sprintf("%s started.\nid: %s", result.Name, result.ID))
		}
	}
}

func newCancelHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		if deps.Sessions.clear(chatID) {
			sendText(ctx, b, deps, chatID, "Dialog cancelled.")
		} else {
			sendText(ctx, b, deps, chatID, "Nothing to cancel.")
		}
	}
}

func newListBotsHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		ownerID, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		statuses := deps.Manager.GetUserBots(ownerID)
		if len(statuses) == 0 {
			sendText(ctx, b, deps, chatID, "No running bots.")
			return
		}

		var sb strings.Builder
		for _, st := range statuses {
			state := "stopped"
			if st.Running {
				state = "running"
			}
			fmt.Fprintf(&sb, "%s\n  %s | group %s | %s | %d plays",
				st.ID, st.Kind.DisplayName(), st.GroupID, state, st.PlayCount)
			if st.RaceActive {
				sb.WriteString(" | racing")
			}
			sb.WriteString("\n")
		}
		sendText(ctx, b, deps, chatID, sb.String())
	}
}

func newStopHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) != 1 {
			sendText(ctx, b, deps, chatID, "Usage: /stop <id>")
			return
		}
		if err := deps.Manager.StopBot(ctx, a[0]); err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Stop failed: %v", err))
			return
		}
		sendText(ctx, b, deps, chatID, "Bot stopped.")
	}
}

func newStopAllHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		ownerID, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		stopped := deps.Manager.StopAllBots(ctx, ownerID)
		sendText(ctx, b, deps, chatID, fmt.Sprintf("Stopped %d bots.", stopped))
	}
}

func newRaceHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) < 2 {
			sendText(ctx, b, deps, chatID, "Usage: /race <id> <rounds> [train]")
			return
		}
		rounds, err := strconv.Atoi(a[1])
		if err != nil || rounds <= 0 {
			sendText(ctx, b, deps, chatID, "Rounds must be a positive number.")
			return
		}
		training := len(a) > 2 && a[2] == "train"

		if !deps.Manager.StartRaceMode(a[0], rounds, training, "") {
			sendText(ctx, b, deps, chatID, "Race could not be started.")
			return
		}
		sendText(ctx, b, deps, chatID, fmt.Sprintf("Race started: %d rounds, training %v.", rounds, training))
	}
}

func newStopRaceHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) != 1 {
			sendText(ctx, b, deps, chatID, "Usage: /stoprace <id>")
			return
		}
		if deps.Manager.StopRaceMode(a[0]) {
			sendText(ctx, b, deps, chatID, "Race stopped.")
		} else {
			sendText(ctx, b, deps, chatID, "No active race session.")
		}
	}
}

func newAutoDeleteHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) < 4 {
			sendText(ctx, b, deps, chatID, "Usage: /autodelete <id> <group> <delay_s> <user> [user...]")
			return
		}
		delay, err := strconv.Atoi(a[2])
		if err != nil || delay <= 0 {
			sendText(ctx, b, deps, chatID, "Delay must be a positive number of seconds.")
			return
		}
		outcome := deps.Manager.StartAutoDelete(ctx, a[0], a[1], a[3:], time.Duration(delay)*time.Second)
		sendText(ctx, b, deps, chatID, outcome)
	}
}

func newStopAutoDeleteHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		_, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		a := args(update)
		if len(a) != 1 {
			sendText(ctx, b, deps, chatID, "Usage: /stopautodelete <id>")
			return
		}
		sendText(ctx, b, deps, chatID, deps.Manager.StopAutoDelete(a[0]))
	}
}

func newSetGroupHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		ownerID, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		if deps.Store == nil {
			sendText(ctx, b, deps, chatID, "Persistence is disabled.")
			return
		}
		a := args(update)
		if len(a) != 1 {
			sendText(ctx, b, deps, chatID, "Usage: /setgroup <group>")
			return
		}
		if err := deps.Store.SetDefaultGroupID(ctx, ownerID, a[0]); err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Could not save: %v", err))
			return
		}
		sendText(ctx, b, deps, chatID, fmt.Sprintf("Default group set to %s.", a[0]))
	}
}

func newAccountsHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		ownerID, chatID, ok := ownerOf(update)
		if !ok {
			return
		}
		if deps.Store == nil {
			sendText(ctx, b, deps, chatID, "Persistence is disabled.")
			return
		}
		accounts, err := deps.Store.GetAccounts(ctx, ownerID)
		if err != nil {
			sendText(ctx, b, deps, chatID, fmt.Sprintf("Could not list accounts: %v", err))
			return
		}
		if len(accounts) == 0 {
			sendText(ctx, b, deps, chatID, "No saved accounts.")
			return
		}
		var sb strings.Builder
		for _, acc := range accounts {
			fmt.Fprintf(&sb, "%d: %s", acc.ID, acc.Email)
			if acc.Label != "" {
				fmt.Fprintf(&sb, " (%s)", acc.Label)
			}
			sb.WriteString("\n")
		}
		sendText(ctx, b, deps, chatID, sb.String())
	}
}
