package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msaud/wolfherd/internal/bots"
	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/wolf"
)

type fakeTransport struct {
	mu        sync.Mutex
	loginErr  error
	connected bool
	joined    []string
	sends     int

	groupHandlers   []wolf.MessageHandler
	privateHandlers []wolf.MessageHandler

	// autoReply, when set, synthesizes a private reply to each outbound
	// private message.
	autoReply func(userID, text string) *wolf.Message
}

func (f *fakeTransport) Login(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) CurrentUserID() string { return "555" }

func (f *fakeTransport) JoinGroup(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, groupID)
	return nil
}

func (f *fakeTransport) LeaveGroup(context.Context, string) error { return nil }

func (f *fakeTransport) SendGroupMessage(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return nil
}

func (f *fakeTransport) SendPrivateMessage(_ context.Context, userID, text string) error {
	f.mu.Lock()
	reply := f.autoReply
	f.mu.Unlock()
	if reply != nil {
		if msg := reply(userID, text); msg != nil {
			go f.deliverPrivate(*msg)
		}
	}
	return nil
}
func (f *fakeTransport) DeleteMessage(context.Context, wolf.MessageRef) error     { return nil }

func (f *fakeTransport) ListJoinedGroups(context.Context) ([]wolf.Group, error) { return nil, nil }

func (f *fakeTransport) GroupMember(_ context.Context, groupID, userID string) (*wolf.GroupMember, error) {
	return &wolf.GroupMember{GroupID: groupID, UserID: userID}, nil
}

func (f *fakeTransport) OnGroupMessage(fn wolf.MessageHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupHandlers = append(f.groupHandlers, fn)
	return func() {}
}

func (f *fakeTransport) OnPrivateMessage(fn wolf.MessageHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.privateHandlers = append(f.privateHandlers, fn)
	return func() {}
}

func (f *fakeTransport) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

// deliverPrivate pushes a message through the registered handlers.
func (f *fakeTransport) deliverPrivate(msg wolf.Message) {
	f.mu.Lock()
	handlers := append([]wolf.MessageHandler(nil), f.privateHandlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Bots: config.BotsConfig{
			ActionDelay:        time.Millisecond,
			FallbackGroupID:    "18822804",
			ExcludedGroupIDs:   []string{"9677"},
			Counterparts:       map[string]string{"76305584": "!انضم"},
			CalculatorTargetID: "36828201",
			WriterTargetID:     "24062011",
			ReverserTargetID:   "75423789",
			TimeTargetID:       "24062011",
		},
		Race: config.RaceConfig{
			CounterpartID:      "80277459",
			AlertCmd:           "!تنبيه",
			EnergyCmd:          "!طاقة",
			GrindCmd:           "!سباق",
			TrainCmd:           "!تدريب",
			AlertsOnMarker:     "التنبيهات مفعلة",
			AlertsOffMarker:    "التنبيهات معطلة",
			FullEnergyMarker:   "الطاقة مكتملة",
			TrainingDoneMarker: "انتهى التدريب",
			RaceBusyMarker:     "هناك سباق جاري",
			RaceEndedMarker:    "انتهى السباق",
		},
		AutoDelete: config.AutoDeleteConfig{
			AnnounceInterval:  time.Minute,
			PromotionInterval: time.Second,
			PromotionBudget:   time.Hour,
		},
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	dial := func(context.Context) (wolf.Transport, error) { return tr, nil }
	m, err := New(testConfig(), dial, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, tr
}

func startRequest(kind string) StartRequest {
	return StartRequest{
		Kind:     kind,
		Email:    "a@b.c",
		Password: "pw",
		OwnerID:  "900",
	}
}

func TestStartBotAllocatesDistinctIDs(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.StartBot(context.Background(), startRequest("writer"))
	if err != nil {
		t.Fatalf("first StartBot: %v", err)
	}
	second, err := m.StartBot(context.Background(), startRequest("writer"))
	if err != nil {
		t.Fatalf("second StartBot: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("both starts produced id %s", first.ID)
	}
	for _, id := range []string{first.ID, second.ID} {
		parts := strings.Split(id, "_")
		if len(parts) != 3 || parts[0] != "900" || parts[1] != "writer" || len(parts[2]) != 8 {
			t.Errorf("id %q does not match {owner}_{kind}_{8hex}", id)
		}
	}

	if got := m.GetUserBotCount("900"); got != 2 {
		t.Errorf("GetUserBotCount = %d, want 2", got)
	}
	if got := len(m.GetUserBots("900")); got != 2 {
		t.Errorf("GetUserBots returned %d entries, want 2", got)
	}
}

func TestStartBotUnknownKind(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.StartBot(context.Background(), startRequest("juggler"))
	if !errors.Is(err, bots.ErrUnknownKind) {
		t.Errorf("got %v, want ErrUnknownKind", err)
	}
	if m.GetUserBotCount("900") != 0 {
		t.Error("failed start must not register anything")
	}
}

func TestStartBotLoginFailureRegistersNothing(t *testing.T) {
	tr := &fakeTransport{loginErr: errors.New("denied")}
	dial := func(context.Context) (wolf.Transport, error) { return tr, nil }
	m, err := New(testConfig(), dial, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close(context.Background())

	_, err = m.StartBot(context.Background(), startRequest("monitor"))
	if !errors.Is(err, bots.ErrAuthentication) {
		t.Errorf("got %v, want ErrAuthentication", err)
	}
	if m.GetUserBotCount("900") != 0 {
		t.Error("failed start must not register anything")
	}

	// The failure is also broadcast as an error event (after starting).
	sawError := false
	for i := 0; i < 2; i++ {
		select {
		case ev := <-m.Events():
			if ev.Type == EventError {
				sawError = true
			}
		default:
		}
	}
	if !sawError {
		t.Error("expected an error lifecycle event")
	}
}

func TestStopBotIdempotence(t *testing.T) {
	m, _ := newTestManager(t)

	res, err := m.StartBot(context.Background(), startRequest("monitor"))
	if err != nil {
		t.Fatalf("StartBot: %v", err)
	}

	if err := m.StopBot(context.Background(), res.ID); err != nil {
		t.Fatalf("first StopBot: %v", err)
	}
	if err := m.StopBot(context.Background(), res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second StopBot: got %v, want ErrNotFound", err)
	}
	if err := m.StopBot(context.Background(), "900_monitor_deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
	if m.GetUserBotCount("900") != 0 {
		t.Error("registry not empty after stop")
	}
}

func TestStopAllBotsFiltersByOwner(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.StartBot(context.Background(), startRequest("writer")); err != nil {
		t.Fatalf("StartBot: %v", err)
	}
	other := startRequest("writer")
	other.OwnerID = "901"
	if _, err := m.StartBot(context.Background(), other); err != nil {
		t.Fatalf("StartBot: %v", err)
	}

	if stopped := m.StopAllBots(context.Background(), "900"); stopped != 1 {
		t.Errorf("StopAllBots stopped %d, want 1", stopped)
	}
	if m.GetUserBotCount("901") != 1 {
		t.Error("other owner's bot must survive")
	}
}

func TestStartRaceModeUnknownID(t *testing.T) {
	m, _ := newTestManager(t)
	if m.StartRaceMode("nope", 3, false, "") {
		t.Error("unknown id must report false")
	}
}

func TestMilestoneNotificationFiresOncePerBand(t *testing.T) {
	m, tr := newTestManager(t)

	res, err := m.StartBot(context.Background(), startRequest("monitor"))
	if err != nil {
		t.Fatalf("StartBot: %v", err)
	}
	drainNotifications(m)

	// Drive the play count past the 100 boundary via followed signals.
	for i := 0; i < 103; i++ {
		tr.deliverPrivate(wolf.Message{
			UserID:  "76305584",
			Content: fmt.Sprintf("[قناة] (%d)", 5000+i),
			Arrival: time.Now(),
		})
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st, err := m.GetBotStatus(res.ID); err == nil && st.PlayCount >= 103 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.monitorTick(res.ID)
	n, ok := takeNotification(m)
	if !ok || !strings.Contains(n.Message, "100") {
		t.Fatalf("expected a 100-milestone notification, got %+v (ok=%v)", n, ok)
	}

	// Staying inside the same band must not re-fire.
	m.monitorTick(res.ID)
	if n, ok := takeNotification(m); ok {
		t.Errorf("unexpected second notification: %+v", n)
	}
}

func drainNotifications(m *Manager) {
	for {
		select {
		case <-m.Notifications():
		default:
			return
		}
	}
}

func takeNotification(m *Manager) (Notification, bool) {
	select {
	case n := <-m.Notifications():
		return n, true
	default:
		return Notification{}, false
	}
}
