// Package queue implements the per-bot-instance action queue: a FIFO of
// tagged outbound actions drained by a single consumer with a configurable
// inter-action delay.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Kind tags the action payload placed on the queue.
type Kind int

const (
	// KindSendGroup sends Text into GroupID.
	KindSendGroup Kind = iota
	// KindSendPrivate sends Text to UserID.
	KindSendPrivate
	// KindJoinAndSend joins GroupID, pauses briefly, then sends Text
	// into it.
	KindJoinAndSend
)

// Action is one deferred outbound operation, tagged with the id of the
// sender whose message originated it. Actions are plain data; the
// executor interprets them, which keeps the queue inspectable.
type Action struct {
	SenderID string
	Kind     Kind
	GroupID  string
	UserID   string
	Text     string

	// Wait is an optional pause observed before the action executes,
	// used for deliberately deferred sends (e.g. race retries).
	Wait time.Duration

	// CountOnSuccess marks the action as a scored play; the executor
	// bumps the owning instance's play count when it succeeds.
	CountOnSuccess bool
}

// Executor performs one action. An error marks the action failed; it is
// logged and the queue moves on.
type Executor func(ctx context.Context, a Action) error

const (
	// emptyPoll is how often an idle consumer re-checks the queue.
	emptyPoll = 100 * time.Millisecond
	// raceDelay replaces the configured inter-action delay while race
	// mode is active, to sustain round-trip timing.
	raceDelay = 100 * time.Millisecond
)

// Queue is a strictly-FIFO action queue with exactly one consumer loop.
type Queue struct {
	mu    sync.Mutex
	items []Action

	delay    time.Duration
	raceMode atomic.Bool

	exec   Executor
	logger *slog.Logger
}

// New creates a queue. delay is the pause after each executed action
// outside race mode.
func New(delay time.Duration, exec Executor, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		delay:  delay,
		exec:   exec,
		logger: logger.With("component", "action_queue"),
	}
}

// Enqueue appends an action. Safe for concurrent use.
func (q *Queue) Enqueue(a Action) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all pending actions.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// SetRaceMode toggles the minimal inter-action delay used during an
// active race session.
func (q *Queue) SetRaceMode(on bool) {
	q.raceMode.Store(on)
}

func (q *Queue) pop() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Action{}, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}

// Run drains the queue until ctx is canceled. It is the single consumer:
// callers must start exactly one Run per queue. A failing action is
// logged and skipped; the loop never stops on action errors.
func (q *Queue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		a, ok := q.pop()
		if !ok {
			if !sleep(ctx, emptyPoll) {
				return
			}
			continue
		}

		if a.Wait > 0 && !sleep(ctx, a.Wait) {
			return
		}

		if err := q.exec(ctx, a); err != nil {
			q.logger.Warn("queued action failed",
				"kind", int(a.Kind),
				"sender_id", a.SenderID,
				"error", err)
		}

		delay := q.delay
		if q.raceMode.Load() {
			delay = raceDelay
		}
		if !sleep(ctx, delay) {
			return
		}
	}
}

// sleep waits d or until ctx is done, reporting whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
