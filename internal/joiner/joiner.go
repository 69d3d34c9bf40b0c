// Package joiner performs bulk group membership changes for one
// transport session, bounded to a small parallelism so the service does
// not throttle the account.
package joiner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/msaud/wolfherd/internal/wolf"
)

// parallelism caps concurrent membership calls per session.
const parallelism = 2

// Report summarizes a bulk operation.
type Report struct {
	Succeeded int
	Failed    int
	Errors    []string
}

// Joiner runs bulk joins and leaves over one transport.
type Joiner struct {
	tr     wolf.Transport
	logger *slog.Logger
}

// New creates a joiner for the given transport.
func New(tr wolf.Transport, logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{tr: tr, logger: logger.With("component", "joiner")}
}

// JoinAll joins every listed group, two at a time. Individual failures
// are collected, never fatal.
func (j *Joiner) JoinAll(ctx context.Context, groupIDs []string) Report {
	return j.run(ctx, groupIDs, "join", j.tr.JoinGroup)
}

// LeaveAll leaves every listed group, two at a time.
func (j *Joiner) LeaveAll(ctx context.Context, groupIDs []string) Report {
	return j.run(ctx, groupIDs, "leave", j.tr.LeaveGroup)
}

// LeaveJoined leaves every group the session currently belongs to,
// except those listed in keep.
func (j *Joiner) LeaveJoined(ctx context.Context, keep []string) (Report, error) {
	groups, err := j.tr.ListJoinedGroups(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list joined groups: %w", err)
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var ids []string
	for _, g := range groups {
		if _, skip := keepSet[g.ID]; !skip {
			ids = append(ids, g.ID)
		}
	}
	return j.LeaveAll(ctx, ids), nil
}

func (j *Joiner) run(ctx context.Context, groupIDs []string, verb string, op func(context.Context, string) error) Report {
	var (
		mu     sync.Mutex
		report Report
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, groupID := range groupIDs {
		g.Go(func() error {
			err := op(ctx, groupID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", verb, groupID, err))
				return nil
			}
			report.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	j.logger.Info("bulk membership change finished",
		"verb", verb, "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}
