package bots

import (
	"hash/fnv"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/queue"
	"github.com/msaud/wolfherd/internal/race"
	"github.com/msaud/wolfherd/internal/wolf"
)

// signalPattern matches "[channel name] (groupId)" announcements sent
// privately by the counterpart signal bots.
var signalPattern = regexp.MustCompile(`\[(.*?)\]\s*\((\d+)\)`)

// dedupCap bounds the seen-message set. Exceeding it clears the whole
// set, trading exactness for constant memory.
const dedupCap = 10000

type dedupKey struct {
	senderID string
	ticks    int64
	hash     uint32
}

// monitor follows group announcements from known signal bots: join the
// announced group and fire the counterpart's command phrase. With a race
// session installed, the signal router is bypassed entirely and all
// matched traffic feeds the session instead.
type monitor struct {
	in           *Instance
	counterparts map[string]string
	excluded     map[string]struct{}
	raceCfg      config.RaceConfig

	session atomic.Pointer[race.Session]

	mu   sync.Mutex
	seen map[dedupKey]struct{}
}

func newMonitor(in *Instance, cfg config.BotsConfig, raceCfg config.RaceConfig) *monitor {
	excluded := make(map[string]struct{}, len(cfg.ExcludedGroupIDs))
	for _, id := range cfg.ExcludedGroupIDs {
		excluded[id] = struct{}{}
	}
	return &monitor{
		in:           in,
		counterparts: cfg.Counterparts,
		excluded:     excluded,
		raceCfg:      raceCfg,
		seen:         make(map[dedupKey]struct{}),
	}
}

func (m *monitor) opener() string { return "" }

func (m *monitor) onPrivate(msg wolf.Message) {
	if s := m.session.Load(); s != nil {
		if msg.UserID == m.raceCfg.CounterpartID {
			s.HandlePrivate(msg.Content)
		}
		return
	}

	phrase, known := m.counterparts[msg.UserID]
	if !known || m.duplicate(msg) {
		return
	}
	match := signalPattern.FindStringSubmatch(msg.Content)
	if match == nil {
		return
	}

	groupID := match[2]
	if _, skip := m.excluded[groupID]; skip {
		m.in.logger.Debug("signal for excluded group ignored", "group_id", groupID)
		return
	}

	m.in.logger.Info("following signal",
		"channel", match[1], "group_id", groupID, "sender_id", msg.UserID)
	m.in.queue.Enqueue(queue.Action{
		SenderID:       msg.UserID,
		Kind:           queue.KindJoinAndSend,
		GroupID:        groupID,
		Text:           phrase,
		CountOnSuccess: true,
	})
}

func (m *monitor) onGroup(msg wolf.Message) {
	if s := m.session.Load(); s != nil {
		s.HandleGroup(msg.GroupID, msg.Content)
	}
}

// duplicate records the message key and reports whether it was already
// seen. The check-then-insert is a single critical section.
func (m *monitor) duplicate(msg wolf.Message) bool {
	h := fnv.New32a()
	h.Write([]byte(msg.Content))
	key := dedupKey{
		senderID: msg.UserID,
		ticks:    msg.Arrival.UnixNano(),
		hash:     h.Sum32(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return true
	}
	if len(m.seen) >= dedupCap {
		m.seen = make(map[dedupKey]struct{})
	}
	m.seen[key] = struct{}{}
	return false
}

func (m *monitor) startRace(rounds int, training bool, groupID string) bool {
	if rounds <= 0 {
		return false
	}
	if groupID == "" {
		groupID = m.in.groupID
	}

	sess := race.New(race.Config{
		CounterpartID:      m.raceCfg.CounterpartID,
		GroupID:            groupID,
		AlertCmd:           m.raceCfg.AlertCmd,
		EnergyCmd:          m.raceCfg.EnergyCmd,
		GrindCmd:           m.raceCfg.GrindCmd,
		TrainCmd:           m.raceCfg.TrainCmd,
		AlertsOnMarker:     m.raceCfg.AlertsOnMarker,
		AlertsOffMarker:    m.raceCfg.AlertsOffMarker,
		FullEnergyMarker:   m.raceCfg.FullEnergyMarker,
		TrainingDoneMarker: m.raceCfg.TrainingDoneMarker,
		RaceBusyMarker:     m.raceCfg.RaceBusyMarker,
		RaceEndedMarker:    m.raceCfg.RaceEndedMarker,
	}, rounds, training, m.in.queue.Enqueue, func() {
		m.in.playCount.Add(1)
	}, m.in.logger)

	// Replacing a running session discards its pending logic; the old
	// session simply stops receiving messages.
	m.session.Store(sess)
	m.in.queue.SetRaceMode(true)
	sess.Start()
	return true
}

func (m *monitor) stopRace() bool {
	had := m.session.Swap(nil) != nil
	if had {
		m.in.queue.SetRaceMode(false)
		m.in.queue.Clear()
	}
	return had
}

func (m *monitor) raceActive() bool {
	return m.session.Load() != nil
}
