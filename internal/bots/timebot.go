package bots

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/wolf"
)

// Prompt shapes, braces around the word to type:
//   "اكتب {الان} بعد مرور 5 ثانية للفوز"
//   "Type {now} 9 seconds from now to win!"
var (
	timeArabicPattern  = regexp.MustCompile(`اكتب\s*\{(.*?)\}\s*بعد مرور\s*(\d+)\s*ثانية للفوز`)
	timeEnglishPattern = regexp.MustCompile(`(?i)type\s*\{(.*?)\}\s*(\d+)\s*seconds from now to win`)
)

const (
	// timeSendBuffer lands the reply slightly before the deadline.
	timeSendBuffer = 150 * time.Millisecond
	// timeSpinWindow is the final stretch covered by busy-waiting
	// instead of the coarse sleep.
	timeSpinWindow = 200 * time.Millisecond
)

// timeResponder replies with a requested word timed to arrive just
// before an announced deadline. The deadline is computed from local
// arrival time, never the server timestamp.
type timeResponder struct {
	in     *Instance
	target string
	open   string
}

func newTimeResponder(in *Instance, cfg config.BotsConfig) *timeResponder {
	return &timeResponder{
		in:     in,
		target: cfg.TimeTargetID,
		open:   cfg.TimeOpener,
	}
}

func (t *timeResponder) opener() string { return t.open }

func (t *timeResponder) onGroup(msg wolf.Message) {
	if msg.GroupID != t.in.groupID || msg.UserID != t.target {
		return
	}
	word, seconds, ok := ParseTimePrompt(msg.Content)
	if !ok {
		return
	}

	deadline := SendDeadline(msg.Arrival, seconds)
	go t.fire(word, deadline)
}

func (t *timeResponder) onPrivate(wolf.Message) {}

// fire sleeps coarsely, then spins through the final window so the send
// lands within milliseconds of the deadline. The spin is deliberate;
// a sleep of the full duration overshoots by a scheduler quantum.
func (t *timeResponder) fire(word string, deadline time.Time) {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining > timeSpinWindow {
			time.Sleep(remaining - timeSpinWindow)
			continue
		}
		for time.Now().Before(deadline) {
		}
		break
	}

	if !t.in.running.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.in.tr.SendGroupMessage(ctx, t.in.groupID, word); err != nil {
		t.in.logger.Warn("timed send failed", "error", err)
		return
	}
	t.in.playCount.Add(1)
}

// ParseTimePrompt extracts the word to type and the announced number of
// seconds from a prompt in either supported locale.
func ParseTimePrompt(content string) (word string, seconds int, ok bool) {
	m := timeArabicPattern.FindStringSubmatch(content)
	if m == nil {
		m = timeEnglishPattern.FindStringSubmatch(content)
	}
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return m[1], n, true
}

// SendDeadline is the instant the reply should hit the wire: the
// announced deadline minus a fixed safety buffer, measured from the
// message's local arrival.
func SendDeadline(arrival time.Time, seconds int) time.Time {
	return arrival.Add(time.Duration(seconds)*time.Second - timeSendBuffer)
}
