// Package telegram implements the conversational control surface: the
// dialog that collects credentials and bot settings from the operator
// and the pump that pushes manager events back as chat messages.
package telegram

import (
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/logger"
	"github.com/msaud/wolfherd/internal/manager"
	"github.com/msaud/wolfherd/internal/store"
)

// HandlerDeps bundles the collaborators every handler can reach.
type HandlerDeps struct {
	Logger   *slog.Logger
	Cfg      *config.Config
	Manager  *manager.Manager
	Store    store.Store
	Sessions *Sessions
}

// New builds the Telegram bot with all commands registered.
func New(cfg *config.Config, mgr *manager.Manager, st store.Store, log *slog.Logger) (*tgbot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	deps := HandlerDeps{
		Logger:   log.With("component", "telegram"),
		Cfg:      cfg,
		Manager:  mgr,
		Store:    st,
		Sessions: NewSessions(),
	}

	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(newDialogHandler(deps)),
		tgbot.WithMiddlewares(logger.Middleware(deps.Logger)),
	}

	b, err := tgbot.New(cfg.Telegram.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	admin := []tgbot.Middleware{AdminOnly(deps)}

	register := func(pattern string, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) {
		b.RegisterHandler(tgbot.HandlerTypeMessageText, pattern, tgbot.MatchTypeCommandStartOnly, handler, mw...)
	}

	register("start", newStartHandler(deps))
	register("help", newStartHandler(deps))
	register("newbot", newNewBotHandler(deps), admin...)
	register("bots", newListBotsHandler(deps), admin...)
	register("stop", newStopHandler(deps), admin...)
	register("stopall", newStopAllHandler(deps), admin...)
	register("race", newRaceHandler(deps), admin...)
	register("stoprace", newStopRaceHandler(deps), admin...)
	register("autodelete", newAutoDeleteHandler(deps), admin...)
	register("stopautodelete", newStopAutoDeleteHandler(deps), admin...)
	register("setgroup", newSetGroupHandler(deps), admin...)
	register("activate", newActivateHandler(deps), admin...)
	register("joingroups", newJoinGroupsHandler(deps), admin...)
	register("leavegroups", newLeaveGroupsHandler(deps), admin...)
	register("accounts", newAccountsHandler(deps), admin...)
	register("cancel", newCancelHandler(deps), admin...)

	b.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "kind:", tgbot.MatchTypePrefix,
		newKindCallbackHandler(deps), admin...)

	return b, nil
}
