// Package api exposes the bot manager and account store over a small
// JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/msaud/wolfherd/internal/bots"
	"github.com/msaud/wolfherd/internal/manager"
	"github.com/msaud/wolfherd/internal/store"
)

// BotService is the slice of the manager the API consumes.
type BotService interface {
	StartBot(ctx context.Context, req manager.StartRequest) (manager.StartResult, error)
	StopBot(ctx context.Context, id string) error
	GetBotStatus(id string) (bots.Status, error)
	GetUserBots(ownerID string) []bots.Status
	StartRaceMode(id string, rounds int, training bool, groupID string) bool
	StopRaceMode(id string) bool
	StartAutoDelete(ctx context.Context, id, groupID string, targetUserIDs []string, delay time.Duration) string
	StopAutoDelete(id string) string
}

// Server wires the routes onto a chi router.
type Server struct {
	bots   BotService
	store  store.Store
	logger *slog.Logger
	router chi.Router
}

// New builds the HTTP server surface. store may be nil when persistence
// is disabled; account routes then return 503.
func New(botService BotService, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bots:   botService,
		store:  st,
		logger: logger.With("component", "http_api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/accounts", s.handleListAccounts)

		r.Route("/bots", func(r chi.Router) {
			r.Post("/", s.handleStartBot)
			r.Get("/", s.handleListBots)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBot)
				r.Delete("/", s.handleStopBot)
				r.Post("/race", s.handleStartRace)
				r.Delete("/race", s.handleStopRace)
				r.Post("/autodelete", s.handleStartAutoDelete)
				r.Delete("/autodelete", s.handleStopAutoDelete)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
