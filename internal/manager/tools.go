package manager

import (
	"context"
	"fmt"

	"github.com/msaud/wolfherd/internal/activator"
	"github.com/msaud/wolfherd/internal/joiner"
	"github.com/msaud/wolfherd/internal/wolf"
)

// withSession dials and authenticates a throwaway session, runs fn, and
// closes the connection afterwards. Tooling sessions never enter the
// instance registry.
func (m *Manager) withSession(ctx context.Context, email, password string, fn func(wolf.Transport) error) error {
	tr, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer tr.Close(context.Background())

	if err := tr.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login %s: %w", email, err)
	}
	return fn(tr)
}

// RunActivation walks the pet activation protocol against the race
// counterpart using a fresh session for the given account.
func (m *Manager) RunActivation(ctx context.Context, email, password string) error {
	return m.withSession(ctx, email, password, func(tr wolf.Transport) error {
		act := activator.New(tr, m.logger)
		return act.Run(ctx, m.cfg.Race.CounterpartID, nil)
	})
}

// BulkJoin joins every listed group with a fresh session for the given
// account and reports per-group outcomes.
func (m *Manager) BulkJoin(ctx context.Context, email, password string, groupIDs []string) (joiner.Report, error) {
	var report joiner.Report
	err := m.withSession(ctx, email, password, func(tr wolf.Transport) error {
		report = joiner.New(tr, m.logger).JoinAll(ctx, groupIDs)
		return nil
	})
	return report, err
}

// BulkLeave leaves every currently joined group except those listed in
// keep, using a fresh session for the given account.
func (m *Manager) BulkLeave(ctx context.Context, email, password string, keep []string) (joiner.Report, error) {
	var report joiner.Report
	err := m.withSession(ctx, email, password, func(tr wolf.Transport) error {
		r, err := joiner.New(tr, m.logger).LeaveJoined(ctx, keep)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	return report, err
}
