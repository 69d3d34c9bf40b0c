package bots

import (
	"context"
	"sync"
	"time"

	"github.com/msaud/wolfherd/internal/wolf"
)

type fakeSend struct {
	to   string
	text string
}

// fakeTransport satisfies wolf.Transport for handler and lifecycle tests.
type fakeTransport struct {
	mu sync.Mutex

	loginErr  error
	joinErr   error
	connected bool
	userID    string

	joined       []string
	left         []string
	groupSends   []fakeSend
	privateSends []fakeSend
	deleted      []wolf.MessageRef
	members      map[string]*wolf.GroupMember
	closed       bool

	groupHandlers   []wolf.MessageHandler
	privateHandlers []wolf.MessageHandler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		userID:  "555",
		members: map[string]*wolf.GroupMember{},
	}
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

func (f *fakeTransport) CurrentUserID() string { return f.userID }

func (f *fakeTransport) JoinGroup(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = append(f.joined, groupID)
	return nil
}

func (f *fakeTransport) LeaveGroup(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, groupID)
	return nil
}

func (f *fakeTransport) SendGroupMessage(_ context.Context, groupID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupSends = append(f.groupSends, fakeSend{to: groupID, text: text})
	return nil
}

func (f *fakeTransport) SendPrivateMessage(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.privateSends = append(f.privateSends, fakeSend{to: userID, text: text})
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref wolf.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeTransport) ListJoinedGroups(context.Context) ([]wolf.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	groups := make([]wolf.Group, 0, len(f.joined))
	for _, id := range f.joined {
		groups = append(groups, wolf.Group{ID: id})
	}
	return groups, nil
}

func (f *fakeTransport) GroupMember(_ context.Context, groupID, userID string) (*wolf.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[groupID+"/"+userID]; ok {
		return m, nil
	}
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
	f.closed = true
	return nil
}

func (f *fakeTransport) groupTexts() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeSend, len(f.groupSends))
	copy(out, f.groupSends)
	return out
}

func (f *fakeTransport) joinedGroups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.joined))
	copy(out, f.joined)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
