// Package activator runs the pet activation exchange: a short private
// protocol with the game's pet bot where each command must be answered
// with an expected confirmation before the next one is sent.
package activator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/msaud/wolfherd/internal/wolf"
)

// stepTimeout bounds how long one confirmation may take.
const stepTimeout = 15 * time.Second

// ErrStepTimeout reports a confirmation that never arrived.
var ErrStepTimeout = errors.New("activation step timed out")

// Step is one command/confirmation pair.
type Step struct {
	Send   string
	Expect string
}

// DefaultSteps is the stock four-step activation sequence.
func DefaultSteps() []Step {
	return []Step{
		{Send: "!مهر", Expect: "مرحبا"},
		{Send: "!مهر تفعيل", Expect: "رمز"},
		{Send: "!مهر تاكيد", Expect: "تم"},
		{Send: "!مهر حالة", Expect: "مفعل"},
	}
}

// Activator drives the protocol over one transport session.
type Activator struct {
	tr     wolf.Transport
	logger *slog.Logger
}

// New creates an activator for the given transport.
func New(tr wolf.Transport, logger *slog.Logger) *Activator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activator{tr: tr, logger: logger.With("component", "activator")}
}

// Run walks the steps against targetID. It stops at the first failed or
// timed-out step.
func (a *Activator) Run(ctx context.Context, targetID string, steps []Step) error {
	if len(steps) == 0 {
		steps = DefaultSteps()
	}

	replies := make(chan string, 16)
	unsub := a.tr.OnPrivateMessage(func(msg wolf.Message) {
		if msg.UserID != targetID {
			return
		}
		select {
		case replies <- msg.Content:
		default:
		}
	})
	defer unsub()

	for i, step := range steps {
		if err := a.tr.SendPrivateMessage(ctx, targetID, step.Send); err != nil {
			return fmt.Errorf("activation step %d send: %w", i+1, err)
		}
		a.logger.Info("activation step sent", "step", i+1, "command", step.Send)

		if err := a.awaitReply(ctx, replies, step.Expect); err != nil {
			return fmt.Errorf("activation step %d: %w", i+1, err)
		}
	}

	a.logger.Info("activation complete", "target_id", targetID)
	return nil
}

func (a *Activator) awaitReply(ctx context.Context, replies <-chan string, expect string) error {
	timer := time.NewTimer(stepTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: waiting for %q", ErrStepTimeout, expect)
		case reply := <-replies:
			if strings.Contains(reply, expect) {
				return nil
			}
			// Unrelated chatter from the target; keep waiting.
		}
	}
}
