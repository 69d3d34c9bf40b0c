package race

import (
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/msaud/wolfherd/internal/queue"
)

func testConfig() Config {
	return Config{
		CounterpartID:      "80277459",
		GroupID:            "1234",
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

type actionRecorder struct {
	mu      sync.Mutex
	actions []queue.Action
}

func (r *actionRecorder) enqueue(a queue.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *actionRecorder) all() []queue.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Action, len(r.actions))
	copy(out, r.actions)
	return out
}

func (r *actionRecorder) last() (queue.Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return queue.Action{}, false
	}
	return r.actions[len(r.actions)-1], true
}

func newTestSession(t *testing.T, rounds int, training bool) (*Session, *actionRecorder) {
	t.Helper()
	rec := &actionRecorder{}
	s := New(testConfig(), rounds, training, rec.enqueue, nil, slog.Default())
	return s, rec
}

func TestStartQueriesAlertStatus(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()

	a, ok := rec.last()
	if !ok {
		t.Fatal("expected an enqueued action")
	}
	if a.Kind != queue.KindSendPrivate || a.Text != "!تنبيه" {
		t.Errorf("unexpected opening action: %+v", a)
	}
	if got := s.State(); got != StateAlertCheck {
		t.Errorf("State() = %v, want StateAlertCheck", got)
	}
}

func TestAlertsOffReQueriesWithDelay(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()

	s.HandlePrivate("عذرا، التنبيهات معطلة حاليا")

	a, _ := rec.last()
	if a.Text != "!تنبيه" {
		t.Errorf("expected alert re-query, got %q", a.Text)
	}
	if a.Wait == 0 {
		t.Error("alert re-query should be deferred")
	}
}

func TestAlertsOnAdvancesToEnergyCheck(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()

	s.HandlePrivate("التنبيهات مفعلة لديك")

	if got := s.State(); got != StateEnergyCheck {
		t.Errorf("State() = %v, want StateEnergyCheck", got)
	}
	a, _ := rec.last()
	if a.Text != "!طاقة" {
		t.Errorf("expected energy query, got %q", a.Text)
	}
}

func TestFullEnergyStartsRound(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة الآن")

	if got := s.State(); got != StateRoundInProgress {
		t.Errorf("State() = %v, want StateRoundInProgress", got)
	}
	a, _ := rec.last()
	if a.Kind != queue.KindJoinAndSend || a.Text != "!سباق" || a.GroupID != "1234" {
		t.Errorf("unexpected grind action: %+v", a)
	}
}

func TestRaceEndedCountsRoundAndRepeats(t *testing.T) {
	var rounds int
	rec := &actionRecorder{}
	s := New(testConfig(), 3, false, rec.enqueue, func() { rounds++ }, slog.Default())
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")

	s.HandleGroup("1234", "انتهى السباق! الفائز هو فلان")

	completed, total := s.Rounds()
	if completed != 1 || total != 3 {
		t.Errorf("Rounds() = %d/%d, want 1/3", completed, total)
	}
	if rounds != 1 {
		t.Errorf("round hook fired %d times, want 1", rounds)
	}
	a, _ := rec.last()
	if a.Kind != queue.KindJoinAndSend || a.Text != "!سباق" {
		t.Errorf("expected grind repeat, got %+v", a)
	}
}

func TestBusyThenEndedRetriesWithoutCounting(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")

	s.HandleGroup("1234", "هناك سباق جاري بالفعل")
	if !s.WaitingForRaceEnd() {
		t.Fatal("expected WaitingForRaceEnd after busy notice")
	}

	before := len(rec.all())
	s.HandleGroup("1234", "انتهى السباق")

	completed, _ := s.Rounds()
	if completed != 0 {
		t.Errorf("completed = %d, want 0 (foreign race must not count)", completed)
	}
	if s.WaitingForRaceEnd() {
		t.Error("WaitingForRaceEnd should clear after the foreign race ends")
	}
	actions := rec.all()
	if len(actions) != before+1 {
		t.Fatalf("expected exactly one retry action, got %d new", len(actions)-before)
	}
	retry := actions[len(actions)-1]
	if retry.Kind != queue.KindJoinAndSend || retry.Text != "!سباق" {
		t.Errorf("unexpected retry action: %+v", retry)
	}
}

func TestTrainingRequestedAfterFinalRound(t *testing.T) {
	s, rec := newTestSession(t, 3, true)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")

	for range 3 {
		s.HandleGroup("1234", "انتهى السباق")
	}

	if got := s.State(); got != StateRoundsComplete {
		t.Errorf("State() = %v, want StateRoundsComplete", got)
	}
	a, _ := rec.last()
	if a.Kind != queue.KindSendPrivate {
		t.Fatalf("expected private training command, got %+v", a)
	}
	// 3 rounds leave 100 - 3*20 = 40 percent to train.
	if !strings.HasPrefix(a.Text, "!تدريب ") || !strings.HasSuffix(a.Text, "40") {
		t.Errorf("training command = %q, want %q", a.Text, "!تدريب 40")
	}
}

func TestTrainingDoneResetsCycle(t *testing.T) {
	s, rec := newTestSession(t, 2, true)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")
	s.HandleGroup("1234", "انتهى السباق")
	s.HandleGroup("1234", "انتهى السباق")

	s.HandlePrivate("انتهى التدريب بنجاح")

	completed, _ := s.Rounds()
	if completed != 0 {
		t.Errorf("completed = %d, want 0 after training reset", completed)
	}
	if got := s.State(); got != StateRoundInProgress {
		t.Errorf("State() = %v, want StateRoundInProgress", got)
	}
	a, _ := rec.last()
	if a.Kind != queue.KindJoinAndSend || a.Text != "!سباق" {
		t.Errorf("expected fresh grind, got %+v", a)
	}
}

func TestRoundsWithoutTrainingIdle(t *testing.T) {
	s, rec := newTestSession(t, 2, false)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")
	s.HandleGroup("1234", "انتهى السباق")
	s.HandleGroup("1234", "انتهى السباق")

	before := len(rec.all())
	if got := s.State(); got != StateRoundsComplete {
		t.Errorf("State() = %v, want StateRoundsComplete", got)
	}
	// A further race-ended message must not restart anything.
	s.HandleGroup("1234", "انتهى السباق")
	if len(rec.all()) != before {
		t.Error("completed session must not enqueue further actions")
	}
}

func TestForeignGroupIgnored(t *testing.T) {
	s, rec := newTestSession(t, 3, false)
	s.Start()
	s.HandlePrivate("الطاقة مكتملة")
	before := len(rec.all())

	s.HandleGroup("9999", "انتهى السباق")

	completed, _ := s.Rounds()
	if completed != 0 || len(rec.all()) != before {
		t.Error("messages from other groups must be ignored")
	}
}
