package wolf

import "context"

// Transport is the capability surface a bot instance needs from the chat
// service. Exactly one bot instance owns a given Transport.
type Transport interface {
	// Login authenticates the session. It must be called once before any
	// other operation.
	Login(ctx context.Context, email, password string) error

	// IsConnected reports whether the underlying connection is alive.
	IsConnected() bool

	// CurrentUserID returns the id of the logged-in subscriber, or ""
	// before login.
	CurrentUserID() string

	JoinGroup(ctx context.Context, groupID string) error
	LeaveGroup(ctx context.Context, groupID string) error
	SendGroupMessage(ctx context.Context, groupID, text string) error
	SendPrivateMessage(ctx context.Context, userID, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	ListJoinedGroups(ctx context.Context) ([]Group, error)
	GroupMember(ctx context.Context, groupID, userID string) (*GroupMember, error)

	// OnGroupMessage and OnPrivateMessage register inbound handlers and
	// return a function that removes the registration.
	OnGroupMessage(fn MessageHandler) func()
	OnPrivateMessage(fn MessageHandler) func()

	// Close sends a best-effort logout and tears down the connection.
	// Safe to call more than once.
	Close(ctx context.Context) error
}

// Dialer creates a fresh, not-yet-authenticated Transport. The manager
// uses one Dialer for all bot instances; each call owns its connection.
type Dialer func(ctx context.Context) (Transport, error)
