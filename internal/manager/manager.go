// Package manager owns the collection of running bot instances. It is
// the single entry point callers use to start, stop, and query bots, and
// it broadcasts lifecycle events and notifications for the front-ends.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/msaud/wolfherd/internal/bots"
	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/wolf"
)

// ErrNotFound is returned for operations on an unregistered bot id.
var ErrNotFound = errors.New("bot not found")

const (
	// monitorInterval paces the per-instance progress monitor.
	monitorInterval = 10 * time.Second
	// milestoneStep is the play-count boundary that triggers a
	// milestone notification.
	milestoneStep = 100
	// eventBuffer bounds the broadcast channels; a slow consumer drops
	// events rather than blocking lifecycle operations.
	eventBuffer = 64
)

// Store is the persistence surface the manager consumes. A nil Store
// disables settings lookup and run logging.
type Store interface {
	// DefaultGroupID returns the persisted operating group for the
	// owner, or "" when none is stored.
	DefaultGroupID(ctx context.Context, ownerID string) (string, error)

	// RecordBotStart and RecordBotStop append to the bot run log.
	RecordBotStart(ctx context.Context, botID, ownerID, kind, groupID string) error
	RecordBotStop(ctx context.Context, botID string, playCount int64) error
}

// StartRequest carries everything needed to start one bot.
type StartRequest struct {
	Kind     string
	Email    string
	Password string
	OwnerID  string

	// GroupID overrides the stored and fallback operating groups when
	// non-empty.
	GroupID string

	// TargetUserID overrides the variant's configured counterpart when
	// non-empty.
	TargetUserID string

	// Race settings, used only when Kind is "racer".
	RaceRounds   int
	RaceTraining bool
}

// StartResult reports a successful start.
type StartResult struct {
	ID   string
	Name string
}

// Stats is the registry projection for one bot.
type Stats struct {
	bots.Status
	LastUpdate time.Time
	Uptime     time.Duration
}

type registryEntry struct {
	botID      string
	ownerID    string
	kind       bots.Kind
	email      string
	password   string
	startedAt  time.Time
	lastUpdate time.Time
	cachedPlay int64

	// lastMilestone is the highest multiple-of-100 boundary already
	// reported for this bot.
	lastMilestone int64

	jobID uuid.UUID
}

// Manager supervises bot instances, their monitors, and the event
// streams.
type Manager struct {
	cfg    *config.Config
	dial   wolf.Dialer
	store  Store
	logger *slog.Logger
	sched  gocron.Scheduler

	mu        sync.RWMutex
	instances map[string]*bots.Instance
	registry  map[string]*registryEntry

	events        chan LifecycleEvent
	notifications chan Notification
}

// New creates a manager. The scheduler is started immediately; Close
// shuts it down together with all bots.
func New(cfg *config.Config, dial wolf.Dialer, store Store, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	m := &Manager{
		cfg:           cfg,
		dial:          dial,
		store:         store,
		logger:        logger.With("component", "bot_manager"),
		sched:         sched,
		instances:     make(map[string]*bots.Instance),
		registry:      make(map[string]*registryEntry),
		events:        make(chan LifecycleEvent, eventBuffer),
		notifications: make(chan Notification, eventBuffer),
	}
	sched.Start()
	return m, nil
}

// Events is the lifecycle broadcast stream.
func (m *Manager) Events() <-chan LifecycleEvent { return m.events }

// Notifications is the free-form user-facing stream.
func (m *Manager) Notifications() <-chan Notification { return m.notifications }

// StartBot constructs, authenticates, and registers a new bot instance.
// Nothing is registered on failure; the error is also broadcast as a
// lifecycle event.
func (m *Manager) StartBot(ctx context.Context, req StartRequest) (StartResult, error) {
	kind, err := bots.ParseKind(req.Kind)
	if err != nil {
		return StartResult{}, err
	}

	groupID := m.resolveGroup(ctx, req)
	id := bots.NewID(req.OwnerID, kind)
	m.emit(LifecycleEvent{Type: EventStarting, BotID: id, OwnerID: req.OwnerID})

	tr, err := m.dial(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", bots.ErrConnectivity, err)
		m.emit(LifecycleEvent{Type: EventError, BotID: id, OwnerID: req.OwnerID, Err: err})
		return StartResult{}, err
	}

	inst, err := bots.New(bots.Params{
		ID:         id,
		Owner:      req.OwnerID,
		Kind:       kind,
		Email:      req.Email,
		Password:   req.Password,
		GroupID:    groupID,
		Transport:  tr,
		Bots:       m.botsConfigFor(kind, req.TargetUserID),
		Race:       m.cfg.Race,
		AutoDelete: m.cfg.AutoDelete,
		Logger:     m.logger,
	})
	if err != nil {
		_ = tr.Close(ctx)
		m.emit(LifecycleEvent{Type: EventError, BotID: id, OwnerID: req.OwnerID, Err: err})
		return StartResult{}, err
	}

	if err := inst.Start(ctx); err != nil {
		_ = tr.Close(ctx)
		m.emit(LifecycleEvent{Type: EventError, BotID: id, OwnerID: req.OwnerID, Err: err})
		return StartResult{}, err
	}

	entry := &registryEntry{
		botID:     id,
		ownerID:   req.OwnerID,
		kind:      kind,
		email:     req.Email,
		password:  req.Password,
		startedAt: time.Now(),
	}
	if job, err := m.sched.NewJob(
		gocron.DurationJob(monitorInterval),
		gocron.NewTask(func() { m.monitorTick(id) }),
	); err == nil {
		entry.jobID = job.ID()
	} else {
		m.logger.Warn("progress monitor not scheduled", "bot_id", id, "error", err)
	}

	m.mu.Lock()
	m.instances[id] = inst
	m.registry[id] = entry
	m.mu.Unlock()

	if kind == bots.KindRacer {
		rounds := req.RaceRounds
		if rounds <= 0 {
			rounds = 1
		}
		inst.StartRace(rounds, req.RaceTraining, groupID)
	}

	if m.store != nil {
		if err := m.store.RecordBotStart(ctx, id, req.OwnerID, kind.String(), groupID); err != nil {
			m.logger.Warn("run log write failed", "bot_id", id, "error", err)
		}
	}

	m.emit(LifecycleEvent{Type: EventStarted, BotID: id, OwnerID: req.OwnerID})
	m.notify(req.OwnerID, id, fmt.Sprintf("%s started in group %s", kind.DisplayName(), groupID))
	m.logger.Info("bot started", "bot_id", id, "owner_id", req.OwnerID, "group_id", groupID)

	return StartResult{ID: id, Name: kind.DisplayName()}, nil
}

// StopBot stops and removes one bot. Unknown ids return ErrNotFound and
// leave the registry untouched.
func (m *Manager) StopBot(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entry := m.registry[id]
	delete(m.instances, id)
	delete(m.registry, id)
	m.mu.Unlock()

	if entry != nil && entry.jobID != uuid.Nil {
		if err := m.sched.RemoveJob(entry.jobID); err != nil {
			m.logger.Debug("monitor job removal failed", "bot_id", id, "error", err)
		}
	}

	inst.StopAutoDelete()
	inst.Stop(ctx)

	if m.store != nil {
		if err := m.store.RecordBotStop(ctx, id, inst.PlayCount()); err != nil {
			m.logger.Warn("run log write failed", "bot_id", id, "error", err)
		}
	}

	owner := ""
	if entry != nil {
		owner = entry.ownerID
	}
	m.emit(LifecycleEvent{Type: EventStopped, BotID: id, OwnerID: owner})
	m.notify(owner, id, fmt.Sprintf("%s stopped after %d plays", inst.Kind().DisplayName(), inst.PlayCount()))
	return nil
}

// StopAllBots stops every bot owned by ownerID, tolerating individual
// failures. It returns the number of bots stopped.
func (m *Manager) StopAllBots(ctx context.Context, ownerID string) int {
	m.mu.RLock()
	var ids []string
	for id, e := range m.registry {
		if e.ownerID == ownerID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	stopped := 0
	for _, id := range ids {
		if err := m.StopBot(ctx, id); err != nil {
			m.logger.Warn("stop failed", "bot_id", id, "error", err)
			continue
		}
		stopped++
	}
	return stopped
}

// GetBotStatus returns the live status of one bot.
func (m *Manager) GetBotStatus(id string) (bots.Status, error) {
	m.mu.RLock()
	inst, ok := m.instances[id]
	m.mu.RUnlock()
	if !ok {
		return bots.Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return inst.Status(), nil
}

// GetBotStats returns the registry projection including uptime.
func (m *Manager) GetBotStats(id string) (Stats, error) {
	m.mu.RLock()
	inst, ok := m.instances[id]
	entry := m.registry[id]
	m.mu.RUnlock()
	if !ok {
		return Stats{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	st := Stats{Status: inst.Status()}
	if entry != nil {
		st.LastUpdate = entry.lastUpdate
		st.Uptime = time.Since(entry.startedAt)
	}
	return st, nil
}

// GetUserBots returns live statuses for every bot the owner runs.
func (m *Manager) GetUserBots(ownerID string) []bots.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []bots.Status
	for id, e := range m.registry {
		if e.ownerID != ownerID {
			continue
		}
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst.Status())
		}
	}
	return out
}

// GetUserBotCount returns the number of registered bots for the owner.
func (m *Manager) GetUserBotCount(ownerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.registry {
		if e.ownerID == ownerID {
			n++
		}
	}
	return n
}

// StartRaceMode delegates to the instance. Unknown ids and variants
// without race support report false, never an error.
func (m *Manager) StartRaceMode(id string, rounds int, training bool, groupID string) bool {
	m.mu.RLock()
	inst, ok := m.instances[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return inst.StartRace(rounds, training, groupID)
}

// StopRaceMode clears any active race session on the instance.
func (m *Manager) StopRaceMode(id string) bool {
	m.mu.RLock()
	inst, ok := m.instances[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return inst.StopRace()
}

// StartAutoDelete installs the auto-delete filter and returns a
// human-readable outcome.
func (m *Manager) StartAutoDelete(ctx context.Context, id, groupID string, targetUserIDs []string, delay time.Duration) string {
	m.mu.RLock()
	inst, ok := m.instances[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("bot %s not found", id)
	}
	if err := inst.StartAutoDelete(ctx, groupID, targetUserIDs, delay); err != nil {
		return fmt.Sprintf("auto-delete failed: %v", err)
	}
	return fmt.Sprintf("auto-delete active in group %s for %d users", groupID, len(targetUserIDs))
}

// StopAutoDelete removes the filter if present.
func (m *Manager) StopAutoDelete(id string) string {
	m.mu.RLock()
	inst, ok := m.instances[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("bot %s not found", id)
	}
	if !inst.StopAutoDelete() {
		return "no auto-delete filter was active"
	}
	return "auto-delete stopped"
}

// Close stops the scheduler and every running bot.
func (m *Manager) Close(ctx context.Context) {
	if err := m.sched.Shutdown(); err != nil {
		m.logger.Warn("scheduler shutdown failed", "error", err)
	}

	m.mu.Lock()
	instances := m.instances
	m.instances = make(map[string]*bots.Instance)
	m.registry = make(map[string]*registryEntry)
	m.mu.Unlock()

	for id, inst := range instances {
		inst.Stop(ctx)
		m.logger.Info("bot stopped on shutdown", "bot_id", id)
	}
}

// monitorTick refreshes the registry entry and fires a milestone
// notification when the play count crosses a new multiple-of-100
// boundary.
func (m *Manager) monitorTick(id string) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	entry := m.registry[id]
	if !ok || entry == nil || !inst.Running() {
		m.mu.Unlock()
		return
	}

	count := inst.PlayCount()
	entry.cachedPlay = count
	entry.lastUpdate = time.Now()

	threshold := (count / milestoneStep) * milestoneStep
	fire := threshold > entry.lastMilestone
	if fire {
		entry.lastMilestone = threshold
	}
	owner := entry.ownerID
	kind := entry.kind
	m.mu.Unlock()

	if fire {
		m.notify(owner, id, fmt.Sprintf("%s passed %d plays", kind.DisplayName(), threshold))
	}
}

// resolveGroup picks the operating group: request parameter, then the
// owner's stored default, then the configured fallback.
func (m *Manager) resolveGroup(ctx context.Context, req StartRequest) string {
	if req.GroupID != "" {
		return req.GroupID
	}
	if m.store != nil {
		if id, err := m.store.DefaultGroupID(ctx, req.OwnerID); err == nil && id != "" {
			return id
		}
	}
	return m.cfg.Bots.FallbackGroupID
}

// botsConfigFor applies the per-request counterpart override onto a copy
// of the shared bot settings.
func (m *Manager) botsConfigFor(kind bots.Kind, targetUserID string) config.BotsConfig {
	cfg := m.cfg.Bots
	if targetUserID == "" {
		return cfg
	}
	switch kind {
	case bots.KindCalculator:
		cfg.CalculatorTargetID = targetUserID
	case bots.KindWriter:
		cfg.WriterTargetID = targetUserID
	case bots.KindReverser:
		cfg.ReverserTargetID = targetUserID
	case bots.KindTime:
		cfg.TimeTargetID = targetUserID
	}
	return cfg
}

func (m *Manager) emit(ev LifecycleEvent) {
	select {
	case m.events <- ev:
	default:
		m.logger.Debug("lifecycle event dropped", "type", ev.Type.String(), "bot_id", ev.BotID)
	}
}

func (m *Manager) notify(ownerID, botID, message string) {
	n := Notification{
		OwnerID:      ownerID,
		BotID:        botID,
		Message:      message,
		RunningCount: m.GetUserBotCount(ownerID),
	}
	select {
	case m.notifications <- n:
	default:
		m.logger.Debug("notification dropped", "bot_id", botID)
	}
}
