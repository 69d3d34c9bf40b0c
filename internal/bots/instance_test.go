package bots

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/msaud/wolfherd/internal/config"
)

func testBotsConfig() config.BotsConfig {
	return config.BotsConfig{
		ActionDelay:        time.Millisecond,
		FallbackGroupID:    "18822804",
		ExcludedGroupIDs:   []string{"9677"},
		Counterparts:       map[string]string{"76305584": "!انضم"},
		CalculatorTargetID: "36828201",
		WriterTargetID:     "24062011",
		ReverserTargetID:   "75423789",
		TimeTargetID:       "24062011",
		CalculatorOpener:   "!حسبة",
	}
}

func testRaceConfig() config.RaceConfig {
	return config.RaceConfig{
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
	}
}

func newTestInstance(t *testing.T, kind Kind, tr *fakeTransport) *Instance {
	t.Helper()
	in, err := New(Params{
		ID:        NewID("900", kind),
		Owner:     "900",
		Kind:      kind,
		Email:     "a@b.c",
		Password:  "pw",
		GroupID:   "1234",
		Transport: tr,
		Bots:      testBotsConfig(),
		Race:      testRaceConfig(),
		AutoDelete: config.AutoDeleteConfig{
			Announcement:      "تنظيف تلقائي",
			ThankYouMessage:   "شكرا",
			AnnounceInterval:  10 * time.Millisecond,
			PromotionInterval: 5 * time.Millisecond,
			PromotionBudget:   time.Minute,
		},
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

func startTestInstance(t *testing.T, kind Kind, tr *fakeTransport) *Instance {
	t.Helper()
	in := newTestInstance(t, kind, tr)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { in.Stop(context.Background()) })
	return in
}

func TestNewIDShape(t *testing.T) {
	id := NewID("42", KindCalculator)
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "42" || parts[1] != "calculator" || len(parts[2]) != 8 {
		t.Errorf("NewID produced %q, want 42_calculator_{8hex}", id)
	}
	if id == NewID("42", KindCalculator) {
		t.Error("two ids for the same owner/kind must differ")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("monitor")
	if err != nil || k != KindMonitor {
		t.Errorf("ParseKind(monitor) = %v, %v", k, err)
	}
	if _, err := ParseKind("juggler"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestStartFailureCategories(t *testing.T) {
	tr := newFakeTransport()
	tr.loginErr = errors.New("bad credentials")
	in := newTestInstance(t, KindWriter, tr)
	if err := in.Start(context.Background()); !errors.Is(err, ErrAuthentication) {
		t.Errorf("login failure: got %v, want ErrAuthentication", err)
	}

	tr = newFakeTransport()
	tr.joinErr = errors.New("group is locked")
	in = newTestInstance(t, KindWriter, tr)
	if err := in.Start(context.Background()); !errors.Is(err, ErrGroupJoin) {
		t.Errorf("join failure: got %v, want ErrGroupJoin", err)
	}
}

func TestStartSendsOpener(t *testing.T) {
	tr := newFakeTransport()
	startTestInstance(t, KindCalculator, tr)

	if !waitFor(time.Second, func() bool { return len(tr.groupTexts()) == 1 }) {
		t.Fatal("expected opener to be sent")
	}
	if s := tr.groupTexts()[0]; s.to != "1234" || s.text != "!حسبة" {
		t.Errorf("opener = %+v", s)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tr := newFakeTransport()
	in := newTestInstance(t, KindMonitor, tr)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	in.Stop(context.Background())
	in.Stop(context.Background())

	if in.Running() {
		t.Error("instance still running after Stop")
	}
	if !tr.closed {
		t.Error("transport not closed")
	}
}

func TestStoppedInstanceIgnoresMessages(t *testing.T) {
	tr := newFakeTransport()
	in := newTestInstance(t, KindMonitor, tr)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	in.Stop(context.Background())

	in.SimulateMessage("76305584", "[قناة] (4321)", false)
	time.Sleep(20 * time.Millisecond)

	if got := in.Status().QueueLen; got != 0 {
		t.Errorf("stopped instance queued %d actions", got)
	}
}

func TestAutoDeleteFilterDeletesTargetMessages(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindMonitor, tr)

	err := in.StartAutoDelete(context.Background(), "1234", []string{"777"}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("StartAutoDelete: %v", err)
	}

	in.SimulateMessage("777", "spam", true)
	if !waitFor(time.Second, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.deleted) == 1
	}) {
		t.Fatal("expected the target's message to be deleted")
	}

	// Non-target senders are left alone.
	in.SimulateMessage("888", "hello", true)
	time.Sleep(30 * time.Millisecond)
	tr.mu.Lock()
	n := len(tr.deleted)
	tr.mu.Unlock()
	if n != 1 {
		t.Errorf("deleted %d messages, want 1", n)
	}

	if !in.StopAutoDelete() {
		t.Error("StopAutoDelete should report a removed filter")
	}
	if in.StopAutoDelete() {
		t.Error("second StopAutoDelete should be a no-op")
	}
}
