// Package logger builds the process-wide slog logger and the Telegram
// update-logging middleware.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/msaud/wolfherd/internal/config"
)

// New creates the logger described by the log settings and installs it
// as the slog default.
func New(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// Middleware logs one line per handled Telegram update. Message text is
// never logged; the /newbot dialog carries account credentials.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)
			attrs := updateAttrs(update)
			attrs = append(attrs, "duration", time.Since(start))
			log.InfoContext(ctx, "update handled", attrs...)
		}
	}
}

func updateAttrs(update *models.Update) []any {
	attrs := []any{"update_id", update.ID}
	switch {
	case update.Message != nil:
		attrs = append(attrs, "update_type", "message", "chat_id", update.Message.Chat.ID)
		if update.Message.From != nil {
			attrs = append(attrs, "user_id", update.Message.From.ID)
		}
	case update.CallbackQuery != nil:
		// Callback data is only the kind-keyboard selection.
		attrs = append(attrs,
			"update_type", "callback_query",
			"user_id", update.CallbackQuery.From.ID,
			"data", update.CallbackQuery.Data)
	default:
		attrs = append(attrs, "update_type", "other")
	}
	return attrs
}
