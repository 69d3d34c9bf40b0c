package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveAccount inserts or updates a credential pair for the owner.
	SaveAccount(ctx context.Context, account *Account) error

	// GetAccounts retrieves all accounts stored for the owner.
	GetAccounts(ctx context.Context, ownerID string) ([]Account, error)

	// GetAccount retrieves one account by id. Returns nil, nil when not
	// found.
	GetAccount(ctx context.Context, id int64) (*Account, error)

	// DeleteAccount removes one stored account.
	DeleteAccount(ctx context.Context, id int64) error

	// DefaultGroupID returns the owner's stored operating group, or ""
	// when none is set.
	DefaultGroupID(ctx context.Context, ownerID string) (string, error)

	// SetDefaultGroupID stores the owner's operating group.
	SetDefaultGroupID(ctx context.Context, ownerID, groupID string) error

	// RecordBotStart appends a run-log entry for a started bot.
	RecordBotStart(ctx context.Context, botID, ownerID, kind, groupID string) error

	// RecordBotStop closes the newest open run-log entry for the bot.
	RecordBotStop(ctx context.Context, botID string, playCount int64) error

	// GetBotRuns retrieves the owner's most recent run-log entries.
	GetBotRuns(ctx context.Context, ownerID string, limit int) ([]BotRun, error)
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *sqlxStore) SaveAccount(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (owner_id, email, password, label)
		VALUES (:owner_id, :email, :password, :label)
		ON CONFLICT (owner_id, email) DO UPDATE SET
			password = excluded.password,
			label    = excluded.label`
	if _, err := s.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *sqlxStore) GetAccounts(ctx context.Context, ownerID string) ([]Account, error) {
	var accounts []Account
	query := `SELECT * FROM accounts WHERE owner_id = ? ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &accounts, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

func (s *sqlxStore) GetAccount(ctx context.Context, id int64) (*Account, error) {
	var account Account
	query := `SELECT * FROM accounts WHERE id = ?`
	if err := s.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return &account, nil
}

func (s *sqlxStore) DeleteAccount(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) DefaultGroupID(ctx context.Context, ownerID string) (string, error) {
	var groupID string
	query := `SELECT default_group_id FROM owner_settings WHERE owner_id = ?`
	if err := s.db.GetContext(ctx, &groupID, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get default group: %w", err)
	}
	return groupID, nil
}

func (s *sqlxStore) SetDefaultGroupID(ctx context.Context, ownerID, groupID string) error {
	query := `
		INSERT INTO owner_settings (owner_id, default_group_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (owner_id) DO UPDATE SET
			default_group_id = excluded.default_group_id,
			updated_at       = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, ownerID, groupID); err != nil {
		return fmt.Errorf("failed to set default group: %w", err)
	}
	return nil
}

func (s *sqlxStore) RecordBotStart(ctx context.Context, botID, ownerID, kind, groupID string) error {
	query := `INSERT INTO bot_runs (bot_id, owner_id, kind, group_id) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, botID, ownerID, kind, groupID); err != nil {
		return fmt.Errorf("failed to record bot start: %w", err)
	}
	return nil
}

func (s *sqlxStore) RecordBotStop(ctx context.Context, botID string, playCount int64) error {
	query := `
		UPDATE bot_runs
		SET play_count = ?, stopped_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM bot_runs
			WHERE bot_id = ? AND stopped_at IS NULL
			ORDER BY started_at DESC LIMIT 1
		)`
	if _, err := s.db.ExecContext(ctx, query, playCount, botID); err != nil {
		return fmt.Errorf("failed to record bot stop: %w", err)
	}
	return nil
}

func (s *sqlxStore) GetBotRuns(ctx context.Context, ownerID string, limit int) ([]BotRun, error) {
	var runs []BotRun
	query := `SELECT * FROM bot_runs WHERE owner_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &runs, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("failed to get bot runs: %w", err)
	}
	return runs, nil
}
