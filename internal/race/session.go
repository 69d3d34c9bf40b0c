// Package race implements the per-instance race session: a small state
// machine driving a multi-round exchange with the race counterpart bot.
// A session owns no transport; it enqueues actions through a callback and
// is fed the messages its owning instance decides are race-related.
package race

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/msaud/wolfherd/internal/queue"
)

// State is the session's position in the round progression.
type State int

const (
	// StateAlertCheck awaits the counterpart's alert-status reply.
	StateAlertCheck State = iota
	// StateEnergyCheck awaits a full-energy report.
	StateEnergyCheck
	// StateRoundInProgress awaits the race-ended announcement.
	StateRoundInProgress
	// StateRoundsComplete is the terminal state once all rounds ran and
	// training (if any) was requested. Without training there is no
	// message that re-triggers the loop; the session idles by design of
	// the game flow.
	StateRoundsComplete
)

const (
	// energyDelay spaces the energy query behind an alerts-enabled reply.
	energyDelay = 2 * time.Second
	// alertRetryDelay paces the enable-alerts poll.
	alertRetryDelay = 10 * time.Second
	// grindRetryDelay spaces grind re-sends after a race-ended notice.
	grindRetryDelay = 2 * time.Second
)

// Config carries the phrases and markers the session speaks and listens
// for, plus the ids it is bound to.
type Config struct {
	CounterpartID string
	GroupID       string

	AlertCmd  string
	EnergyCmd string
	GrindCmd  string
	TrainCmd  string

	AlertsOnMarker     string
	AlertsOffMarker    string
	FullEnergyMarker   string
	TrainingDoneMarker string
	RaceBusyMarker     string
	RaceEndedMarker    string
}

// Session is one isolated race run. All methods are safe for concurrent
// use; replacing or dropping the session discards its pending logic
// atomically because abandoned sessions simply stop receiving messages.
type Session struct {
	cfg     Config
	enqueue func(queue.Action)
	logger  *slog.Logger

	// onRound fires once per counted completed round.
	onRound func()

	mu                sync.Mutex
	state             State
	totalRounds       int
	completedRounds   int
	trainingEnabled   bool
	waitingForRaceEnd bool
}

// New constructs a session. enqueue places actions on the owning
// instance's queue; onRound (optional) is invoked for every counted
// round.
func New(cfg Config, rounds int, training bool, enqueue func(queue.Action), onRound func(), logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:             cfg,
		enqueue:         enqueue,
		onRound:         onRound,
		logger:          logger.With("component", "race_session"),
		totalRounds:     rounds,
		trainingEnabled: training,
	}
}

// GroupID returns the group the session races in.
func (s *Session) GroupID() string {
	return s.cfg.GroupID
}

// State returns the current progression state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rounds returns completed and total round counts.
func (s *Session) Rounds() (completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedRounds, s.totalRounds
}

// WaitingForRaceEnd reports whether a busy notice put the session into
// retry-on-next-race-end mode.
func (s *Session) WaitingForRaceEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingForRaceEnd
}

// Start opens the protocol by querying the counterpart's alert status.
func (s *Session) Start() {
	s.mu.Lock()
	s.state = StateAlertCheck
	s.mu.Unlock()

	s.logger.Info("race session starting",
		"rounds", s.totalRounds,
		"training", s.trainingEnabled,
		"group_id", s.cfg.GroupID)

	s.enqueue(queue.Action{
		SenderID: s.cfg.CounterpartID,
		Kind:     queue.KindSendPrivate,
		UserID:   s.cfg.CounterpartID,
		Text:     s.cfg.AlertCmd,
	})
}

// HandlePrivate advances the session on a private reply from the
// counterpart.
func (s *Session) HandlePrivate(content string) {
	switch {
	case strings.Contains(content, s.cfg.TrainingDoneMarker):
		s.mu.Lock()
		s.completedRounds = 0
		s.mu.Unlock()
		s.logger.Info("training complete, starting new cycle")
		s.startRound()

	case strings.Contains(content, s.cfg.FullEnergyMarker):
		s.logger.Info("energy full, starting round")
		s.startRound()

	case strings.Contains(content, s.cfg.AlertsOffMarker):
		// Poll until the counterpart reports alerts enabled.
		s.mu.Lock()
		s.state = StateAlertCheck
		s.mu.Unlock()
		s.enqueue(queue.Action{
			SenderID: s.cfg.CounterpartID,
			Kind:     queue.KindSendPrivate,
			UserID:   s.cfg.CounterpartID,
			Text:     s.cfg.AlertCmd,
			Wait:     alertRetryDelay,
		})

	case strings.Contains(content, s.cfg.AlertsOnMarker):
		s.mu.Lock()
		s.state = StateEnergyCheck
		s.mu.Unlock()
		s.enqueue(queue.Action{
			SenderID: s.cfg.CounterpartID,
			Kind:     queue.KindSendPrivate,
			UserID:   s.cfg.CounterpartID,
			Text:     s.cfg.EnergyCmd,
			Wait:     energyDelay,
		})
	}
}

// HandleGroup advances the session on a message in the race group.
func (s *Session) HandleGroup(groupID, content string) {
	if groupID != s.cfg.GroupID {
		return
	}

	if strings.Contains(content, s.cfg.RaceBusyMarker) {
		s.mu.Lock()
		s.waitingForRaceEnd = true
		s.mu.Unlock()
		s.logger.Info("race already running, waiting for it to end")
		return
	}

	if !strings.Contains(content, s.cfg.RaceEndedMarker) {
		return
	}

	s.mu.Lock()
	if s.state == StateRoundsComplete {
		s.mu.Unlock()
		return
	}
	if s.waitingForRaceEnd {
		// The ended race was someone else's; retry our grind command
		// without counting a round.
		s.waitingForRaceEnd = false
		s.mu.Unlock()
		s.logger.Info("retrying race start after busy wait")
		s.sendGrind(grindRetryDelay)
		return
	}

	s.completedRounds++
	completed := s.completedRounds
	total := s.totalRounds
	training := s.trainingEnabled
	if completed < total {
		s.mu.Unlock()
	} else {
		s.state = StateRoundsComplete
		s.mu.Unlock()
	}

	if s.onRound != nil {
		s.onRound()
	}

	if completed < total {
		s.logger.Info("round complete, repeating", "completed", completed, "total", total)
		s.sendGrind(grindRetryDelay)
		return
	}

	if training && total < 5 {
		percentageNeeded := 100 - total*20
		s.logger.Info("all rounds complete, requesting training", "percentage", percentageNeeded)
		s.enqueue(queue.Action{
			SenderID: s.cfg.CounterpartID,
			Kind:     queue.KindSendPrivate,
			UserID:   s.cfg.CounterpartID,
			Text:     fmt.Sprintf("%s %d", s.cfg.TrainCmd, percentageNeeded),
		})
		return
	}

	// No training: nothing will arrive to re-trigger the loop. The
	// session stays in StateRoundsComplete until replaced.
	s.logger.Info("all rounds complete, idling", "total", total)
}

func (s *Session) startRound() {
	s.mu.Lock()
	s.state = StateRoundInProgress
	s.mu.Unlock()
	s.sendGrind(0)
}

func (s *Session) sendGrind(wait time.Duration) {
	s.enqueue(queue.Action{
		SenderID: s.cfg.CounterpartID,
		Kind:     queue.KindJoinAndSend,
		GroupID:  s.cfg.GroupID,
		Text:     s.cfg.GrindCmd,
		Wait:     wait,
	})
}
