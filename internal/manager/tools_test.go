package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/msaud/wolfherd/internal/wolf"
)

func TestBulkJoinJoinsEveryGroup(t *testing.T) {
	m, tr := newTestManager(t)

	report, err := m.BulkJoin(context.Background(), "a@b.c", "pw", []string{"100", "200", "300"})
	if err != nil {
		t.Fatalf("BulkJoin: %v", err)
	}
	if report.Succeeded != 3 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 3 succeeded", report)
	}
	tr.mu.Lock()
	joined := len(tr.joined)
	connected := tr.connected
	tr.mu.Unlock()
	if joined != 3 {
		t.Fatalf("joined %d groups, want 3", joined)
	}
	if connected {
		t.Fatal("tooling session left open after BulkJoin")
	}
}

func TestBulkJoinLoginFailure(t *testing.T) {
	m, tr := newTestManager(t)
	tr.loginErr = errors.New("bad credentials")

	if _, err := m.BulkJoin(context.Background(), "a@b.c", "nope", []string{"100"}); err == nil {
		t.Fatal("BulkJoin should fail when login fails")
	}
	tr.mu.Lock()
	joined := len(tr.joined)
	tr.mu.Unlock()
	if joined != 0 {
		t.Fatalf("joined %d groups after failed login, want 0", joined)
	}
}

func TestRunActivationUsesFreshSession(t *testing.T) {
	m, tr := newTestManager(t)
	tr.autoReply = func(userID, text string) *wolf.Message {
		switch text {
		case "!مهر":
			return &wolf.Message{UserID: userID, Content: "مرحبا بك"}
		case "!مهر تفعيل":
			return &wolf.Message{UserID: userID, Content: "رمز التفعيل جاهز"}
		case "!مهر تاكيد":
			return &wolf.Message{UserID: userID, Content: "تم التفعيل"}
		case "!مهر حالة":
			return &wolf.Message{UserID: userID, Content: "الحساب مفعل"}
		}
		return nil
	}

	if err := m.RunActivation(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("RunActivation: %v", err)
	}
	tr.mu.Lock()
	connected := tr.connected
	tr.mu.Unlock()
	if connected {
		t.Fatal("tooling session left open after RunActivation")
	}
}
