package store

import (
	"database/sql"
	"time"
)

// Account is a stored game-service credential pair owned by a controller
// user.
type Account struct {
	ID        int64     `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}

// OwnerSettings is the per-owner persisted configuration.
type OwnerSettings struct {
	OwnerID        string    `db:"owner_id"`
	DefaultGroupID string    `db:"default_group_id"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// BotRun is one bot lifecycle entry in the run log.
type BotRun struct {
	ID        int64        `db:"id"`
	BotID     string       `db:"bot_id"`
	OwnerID   string       `db:"owner_id"`
	Kind      string       `db:"kind"`
	GroupID   string       `db:"group_id"`
	PlayCount int64        `db:"play_count"`
	StartedAt time.Time    `db:"started_at"`
	StoppedAt sql.NullTime `db:"stopped_at"`
}
