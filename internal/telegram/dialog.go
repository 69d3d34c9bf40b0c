package telegram

import (
	"sync"

	"github.com/msaud/wolfherd/internal/manager"
)

// step is the dialog's position inside the new-bot flow.
type step int

const (
	stepIdle step = iota
	stepKind
	stepEmail
	stepPassword
	stepGroup
)

// dialog is one operator's in-progress new-bot conversation.
type dialog struct {
	step step
	req  manager.StartRequest
}

// Sessions tracks per-chat dialog state.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*dialog
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*dialog)}
}

// begin starts a fresh dialog for the chat, discarding any previous one.
func (s *Sessions) begin(chatID int64) *dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &dialog{step: stepKind}
	s.m[chatID] = d
	return d
}

// get returns the chat's active dialog, or nil.
func (s *Sessions) get(chatID int64) *dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[chatID]
}

// clear drops the chat's dialog. Reports whether one existed.
func (s *Sessions) clear(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[chatID]
	delete(s.m, chatID)
	return ok
}
