package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msaud/wolfherd/internal/bots"
	"github.com/msaud/wolfherd/internal/manager"
	"github.com/msaud/wolfherd/internal/store"
)

type loginRequest struct {
	OwnerID  string `json:"owner_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Label    string `json:"label"`
}

type startBotRequest struct {
	OwnerID      string `json:"owner_id"`
	Kind         string `json:"kind"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	GroupID      string `json:"group_id"`
	TargetUserID string `json:"target_user_id"`
	RaceRounds   int    `json:"race_rounds"`
	RaceTraining bool   `json:"race_training"`
}

type raceRequest struct {
	Rounds   int    `json:"rounds"`
	Training bool   `json:"training"`
	GroupID  string `json:"group_id"`
}

type autoDeleteRequest struct {
	GroupID       string   `json:"group_id"`
	TargetUserIDs []string `json:"target_user_ids"`
	DelaySeconds  int      `json:"delay_seconds"`
}

type botResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	GroupID    string    `json:"group_id"`
	Running    bool      `json:"running"`
	Connected  bool      `json:"connected"`
	PlayCount  int64     `json:"play_count"`
	QueueLen   int       `json:"queue_len"`
	RaceActive bool      `json:"race_active"`
	StartedAt  time.Time `json:"started_at"`
}

func toBotResponse(st bots.Status) botResponse {
	return botResponse{
		ID:         st.ID,
		OwnerID:    st.Owner,
		Kind:       st.Kind.String(),
		Name:       st.Kind.DisplayName(),
		GroupID:    st.GroupID,
		Running:    st.Running,
		Connected:  st.Connected,
		PlayCount:  st.PlayCount,
		QueueLen:   st.QueueLen,
		RaceActive: st.RaceActive,
		StartedAt:  st.StartedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "owner_id, email, and password are required")
		return
	}

	account := &store.Account{
		OwnerID:  req.OwnerID,
		Email:    req.Email,
		Password: req.Password,
		Label:    req.Label,
	}
	if err := s.store.SaveAccount(r.Context(), account); err != nil {
		s.logger.Error("account save failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not save account")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		respondError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	accounts, err := s.store.GetAccounts(r.Context(), ownerID)
	if err != nil {
		s.logger.Error("account list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list accounts")
		return
	}

	type accountResponse struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Label string `json:"label"`
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{ID: a.ID, Email: a.Email, Label: a.Label})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartBot(w http.ResponseWriter, r *http.Request) {
	var req startBotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.Kind == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "owner_id, kind, email, and password are required")
		return
	}

	result, err := s.bots.StartBot(r.Context(), manager.StartRequest{
		Kind:         req.Kind,
		Email:        req.Email,
		Password:     req.Password,
		OwnerID:      req.OwnerID,
		GroupID:      req.GroupID,
		TargetUserID: req.TargetUserID,
		RaceRounds:   req.RaceRounds,
		RaceTraining: req.RaceTraining,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, bots.ErrUnknownKind) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": result.ID, "name": result.Name})
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		respondError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	statuses := s.bots.GetUserBots(ownerID)
	out := make([]botResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toBotResponse(st))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.bots.GetBotStatus(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toBotResponse(st))
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.bots.StopBot(r.Context(), id); err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleStartRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req raceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rounds <= 0 {
		respondError(w, http.StatusBadRequest, "rounds must be positive")
		return
	}

	if !s.bots.StartRaceMode(id, req.Rounds, req.Training, req.GroupID) {
		respondError(w, http.StatusConflict, "race could not be started")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "racing"})
}

func (s *Server) handleStopRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.bots.StopRaceMode(id) {
		respondError(w, http.StatusConflict, "no active race session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "race stopped"})
}

func (s *Server) handleStartAutoDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req autoDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || len(req.TargetUserIDs) == 0 || req.DelaySeconds <= 0 {
		respondError(w, http.StatusBadRequest, "group_id, target_user_ids, and delay_seconds are required")
		return
	}

	outcome := s.bots.StartAutoDelete(r.Context(), id, req.GroupID, req.TargetUserIDs,
		time.Duration(req.DelaySeconds)*time.Second)
	respondJSON(w, http.StatusOK, map[string]string{"outcome": outcome})
}

func (s *Server) handleStopAutoDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	respondJSON(w, http.StatusOK, map[string]string{"outcome": s.bots.StopAutoDelete(id)})
}
