package bots

import (
	"strings"
	"sync/atomic"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/mathexpr"
	"github.com/msaud/wolfherd/internal/queue"
	"github.com/msaud/wolfherd/internal/wolf"
)

// Markers the calculator counterpart uses around a round. A round is
// over only when the winner line and the new-game line arrive together.
const (
	calcPromptMarker   = "أوجد الناتج"
	calcWinMarker      = "الفائز:"
	calcNewRoundMarker = "استعد، اللعبة الجديدة ستبدأ!"
)

// calculator answers arithmetic prompts posted by its counterpart and
// then stays quiet until the round is announced over.
type calculator struct {
	in     *Instance
	target string
	open   string

	waitingForRoundEnd atomic.Bool
}

func newCalculator(in *Instance, cfg config.BotsConfig) *calculator {
	return &calculator{
		in:     in,
		target: cfg.CalculatorTargetID,
		open:   cfg.CalculatorOpener,
	}
}

func (c *calculator) opener() string { return c.open }

func (c *calculator) onGroup(msg wolf.Message) {
	if msg.GroupID != c.in.groupID || msg.UserID != c.target {
		return
	}

	if strings.Contains(msg.Content, calcWinMarker) &&
		strings.Contains(msg.Content, calcNewRoundMarker) {
		c.waitingForRoundEnd.Store(false)
		return
	}
	if c.waitingForRoundEnd.Load() {
		return
	}

	if !strings.Contains(msg.Content, calcPromptMarker) {
		return
	}
	answer := mathexpr.Solve(msg.Content)
	if answer == "" {
		return
	}

	c.waitingForRoundEnd.Store(true)
	c.in.queue.Enqueue(queue.Action{
		SenderID:       msg.UserID,
		Kind:           queue.KindSendGroup,
		GroupID:        c.in.groupID,
		Text:           answer,
		CountOnSuccess: true,
	})
}

func (c *calculator) onPrivate(wolf.Message) {}
