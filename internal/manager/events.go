package manager

// EventType tags a lifecycle event.
type EventType int

const (
	EventStarting EventType = iota
	EventStarted
	EventStopped
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStarting:
		return "starting"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	}
	return "unknown"
}

// LifecycleEvent is broadcast on every bot state transition.
type LifecycleEvent struct {
	Type    EventType
	BotID   string
	OwnerID string
	Message string
	Err     error
}

// Notification is a free-form user-facing message, tagged with the
// owner's current running-bot count.
type Notification struct {
	OwnerID      string
	BotID        string
	Message      string
	RunningCount int
}
