package joiner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/msaud/wolfherd/internal/wolf"
)

type fakeMembership struct {
	wolf.Transport

	mu       sync.Mutex
	active   int
	peak     int
	joined   []string
	left     []string
	failFor  map[string]error
	joinedIn []wolf.Group
}

func (f *fakeMembership) enter() {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
}

func (f *fakeMembership) leave() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeMembership) JoinGroup(_ context.Context, groupID string) error {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[groupID]; err != nil {
		return err
	}
	f.joined = append(f.joined, groupID)
	return nil
}

func (f *fakeMembership) LeaveGroup(_ context.Context, groupID string) error {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, groupID)
	return nil
}

func (f *fakeMembership) ListJoinedGroups(context.Context) ([]wolf.Group, error) {
	return f.joinedIn, nil
}

func TestJoinAllCollectsFailures(t *testing.T) {
	f := &fakeMembership{failFor: map[string]error{"2": errors.New("locked")}}
	j := New(f, nil)

	report := j.JoinAll(context.Background(), []string{"1", "2", "3", "4"})

	if report.Succeeded != 3 || report.Failed != 1 {
		t.Errorf("report = %+v, want 3 succeeded / 1 failed", report)
	}
	if len(report.Errors) != 1 {
		t.Errorf("errors = %v", report.Errors)
	}
	if f.peak > parallelism {
		t.Errorf("peak concurrency %d exceeds limit %d", f.peak, parallelism)
	}
}

func TestLeaveJoinedKeepsListedGroups(t *testing.T) {
	f := &fakeMembership{joinedIn: []wolf.Group{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	j := New(f, nil)

	report, err := j.LeaveJoined(context.Background(), []string{"2"})
	if err != nil {
		t.Fatalf("LeaveJoined: %v", err)
	}
	if report.Succeeded != 2 {
		t.Errorf("left %d groups, want 2", report.Succeeded)
	}
	for _, id := range f.left {
		if id == "2" {
			t.Error("kept group was left")
		}
	}
}
