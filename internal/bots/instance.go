package bots

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/queue"
	"github.com/msaud/wolfherd/internal/wolf"
)

// Startup failure categories. The manager maps these onto user-visible
// outcomes without inspecting messages.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrConnectivity   = errors.New("connectivity check failed")
	ErrGroupJoin      = errors.New("group join failed")
)

// NewID generates an instance id of the form {owner}_{kind}_{random8hex}.
func NewID(owner string, kind Kind) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s_%s_%s", owner, kind, hex.EncodeToString(buf))
}

// Params collects everything an Instance needs at construction time.
type Params struct {
	ID       string
	Owner    string
	Kind     Kind
	Email    string
	Password string
	GroupID  string

	Transport  wolf.Transport
	Bots       config.BotsConfig
	Race       config.RaceConfig
	AutoDelete config.AutoDeleteConfig
	Logger     *slog.Logger
}

// behavior is the per-variant message logic plugged into an Instance.
type behavior interface {
	// opener returns an initiating phrase to send into the group right
	// after start, or "" for variants that open silently.
	opener() string
	onGroup(msg wolf.Message)
	onPrivate(msg wolf.Message)
}

// raceController is implemented by behaviors that can run a race session.
type raceController interface {
	startRace(rounds int, training bool, groupID string) bool
	stopRace() bool
	raceActive() bool
}

// Status is a point-in-time projection of an instance.
type Status struct {
	ID         string
	Owner      string
	Kind       Kind
	GroupID    string
	Running    bool
	Connected  bool
	StartedAt  time.Time
	PlayCount  int64
	QueueLen   int
	RaceActive bool
}

// Instance is one running persona bound to one transport session. All
// exported methods are safe for concurrent use.
type Instance struct {
	id       string
	owner    string
	kind     Kind
	email    string
	password string
	groupID  string

	tr     wolf.Transport
	queue  *queue.Queue
	logger *slog.Logger
	adCfg  config.AutoDeleteConfig

	behavior behavior

	running   atomic.Bool
	startedAt time.Time
	playCount atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	unsub  []func()
	wg     sync.WaitGroup

	autodel atomic.Pointer[autoDeleteFilter]
}

// New builds an instance of the requested kind. The transport must be
// freshly dialed and not yet authenticated.
func New(p Params) (*Instance, error) {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	in := &Instance{
		id:       p.ID,
		owner:    p.Owner,
		kind:     p.Kind,
		email:    p.Email,
		password: p.Password,
		groupID:  p.GroupID,
		tr:       p.Transport,
		adCfg:    p.AutoDelete,
		logger:   p.Logger.With("bot_id", p.ID, "kind", p.Kind.String()),
	}
	in.queue = queue.New(p.Bots.ActionDelay, in.execute, in.logger)

	switch p.Kind {
	case KindCalculator:
		in.behavior = newCalculator(in, p.Bots)
	case KindWriter:
		in.behavior = newWriter(in, p.Bots)
	case KindReverser:
		in.behavior = newReverser(in, p.Bots)
	case KindTime:
		in.behavior = newTimeResponder(in, p.Bots)
	case KindMonitor, KindRacer:
		in.behavior = newMonitor(in, p.Bots, p.Race)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(p.Kind))
	}
	return in, nil
}

func (in *Instance) ID() string      { return in.id }
func (in *Instance) Owner() string   { return in.owner }
func (in *Instance) Kind() Kind      { return in.kind }
func (in *Instance) GroupID() string { return in.groupID }

// PlayCount returns the monotonic success counter.
func (in *Instance) PlayCount() int64 { return in.playCount.Load() }

// Running reports whether the instance accepts inbound events.
func (in *Instance) Running() bool { return in.running.Load() }

// IsConnected probes the underlying transport.
func (in *Instance) IsConnected() bool { return in.running.Load() && in.tr.IsConnected() }

// Start authenticates, verifies connectivity, joins the operating group,
// subscribes to inbound messages, and starts the queue consumer. On any
// failure nothing is left running and a categorized error is returned.
func (in *Instance) Start(ctx context.Context) error {
	if err := in.tr.Login(ctx, in.email, in.password); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if !in.tr.IsConnected() {
		return ErrConnectivity
	}
	if err := in.tr.JoinGroup(ctx, in.groupID); err != nil {
		return fmt.Errorf("%w: group %s: %v", ErrGroupJoin, in.groupID, err)
	}

	// The consumer loop outlives the start request.
	runCtx, cancel := context.WithCancel(context.Background())

	in.mu.Lock()
	in.cancel = cancel
	in.startedAt = time.Now()
	in.unsub = []func(){
		in.tr.OnGroupMessage(in.handleGroup),
		in.tr.OnPrivateMessage(in.handlePrivate),
	}
	in.mu.Unlock()
	in.running.Store(true)

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		in.queue.Run(runCtx)
	}()

	if text := in.behavior.opener(); text != "" {
		in.queue.Enqueue(queue.Action{
			Kind:    queue.KindSendGroup,
			GroupID: in.groupID,
			Text:    text,
		})
	}

	in.logger.Info("bot instance started", "group_id", in.groupID)
	return nil
}

// Stop unsubscribes, drains nothing (pending actions are discarded),
// closes the transport best-effort, and is a no-op when already stopped.
func (in *Instance) Stop(ctx context.Context) {
	if !in.running.CompareAndSwap(true, false) {
		return
	}
	in.StopAutoDelete()
	if rc, ok := in.behavior.(raceController); ok {
		rc.stopRace()
	}

	in.mu.Lock()
	for _, u := range in.unsub {
		u()
	}
	in.unsub = nil
	cancel := in.cancel
	in.cancel = nil
	in.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	in.queue.Clear()
	in.wg.Wait()

	if err := in.tr.Close(ctx); err != nil {
		in.logger.Warn("transport close failed", "error", err)
	}
	in.logger.Info("bot instance stopped", "play_count", in.playCount.Load())
}

// StartRace delegates to the behavior. Variants without race support
// return false.
func (in *Instance) StartRace(rounds int, training bool, groupID string) bool {
	rc, ok := in.behavior.(raceController)
	if !ok || !in.running.Load() {
		return false
	}
	return rc.startRace(rounds, training, groupID)
}

// StopRace clears any active race session.
func (in *Instance) StopRace() bool {
	rc, ok := in.behavior.(raceController)
	if !ok {
		return false
	}
	return rc.stopRace()
}

// SimulateMessage feeds a synthetic inbound message through the normal
// handler path, as if the counterpart had sent it.
func (in *Instance) SimulateMessage(senderID, content string, isGroup bool) {
	msg := wolf.Message{
		GroupID: in.groupID,
		UserID:  senderID,
		Content: content,
		IsGroup: isGroup,
		Arrival: time.Now(),
	}
	if isGroup {
		in.handleGroup(msg)
	} else {
		in.handlePrivate(msg)
	}
}

// Status returns a live projection, never a cached snapshot.
func (in *Instance) Status() Status {
	st := Status{
		ID:        in.id,
		Owner:     in.owner,
		Kind:      in.kind,
		GroupID:   in.groupID,
		Running:   in.running.Load(),
		Connected: in.tr.IsConnected(),
		StartedAt: in.startedAt,
		PlayCount: in.playCount.Load(),
		QueueLen:  in.queue.Len(),
	}
	if rc, ok := in.behavior.(raceController); ok {
		st.RaceActive = rc.raceActive()
	}
	return st
}

func (in *Instance) handleGroup(msg wolf.Message) {
	if !in.running.Load() {
		return
	}
	defer in.recoverHandler("group")
	if f := in.autodel.Load(); f != nil {
		f.observe(msg)
	}
	in.behavior.onGroup(msg)
}

func (in *Instance) handlePrivate(msg wolf.Message) {
	if !in.running.Load() {
		return
	}
	defer in.recoverHandler("private")
	in.behavior.onPrivate(msg)
}

// A handler failure must never kill the subscription.
func (in *Instance) recoverHandler(stream string) {
	if r := recover(); r != nil {
		in.logger.Error("message handler panicked", "stream", stream, "panic", r)
	}
}

// execute interprets one queued action against the transport.
func (in *Instance) execute(ctx context.Context, a queue.Action) error {
	var err error
	switch a.Kind {
	case queue.KindSendGroup:
		err = in.tr.SendGroupMessage(ctx, a.GroupID, a.Text)
	case queue.KindSendPrivate:
		err = in.tr.SendPrivateMessage(ctx, a.UserID, a.Text)
	case queue.KindJoinAndSend:
		if err = in.tr.JoinGroup(ctx, a.GroupID); err == nil {
			err = in.tr.SendGroupMessage(ctx, a.GroupID, a.Text)
		}
	default:
		err = fmt.Errorf("unhandled action kind %d", int(a.Kind))
	}
	if err == nil && a.CountOnSuccess {
		in.playCount.Add(1)
	}
	return err
}
