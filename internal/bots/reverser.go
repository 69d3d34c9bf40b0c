package bots

import (
	"strings"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/queue"
	"github.com/msaud/wolfherd/internal/wolf"
)

// Win and score announcements, in either locale, the reverser must not
// echo back.
var reverserSkipMarkers = []string{
	"مُبارك",
	"أجبت خلال",
	"نقطة",
	"Congrats",
	"figured out",
	"gained",
}

// reverser mirrors its counterpart's prompt with every token reversed.
type reverser struct {
	in     *Instance
	target string
	open   string
}

func newReverser(in *Instance, cfg config.BotsConfig) *reverser {
	return &reverser{
		in:     in,
		target: cfg.ReverserTargetID,
		open:   cfg.ReverserOpener,
	}
}

func (r *reverser) opener() string { return r.open }

func (r *reverser) onGroup(msg wolf.Message) {
	if msg.GroupID != r.in.groupID || msg.UserID != r.target {
		return
	}
	for _, marker := range reverserSkipMarkers {
		if strings.Contains(msg.Content, marker) {
			return
		}
	}

	reply := ReverseTokens(msg.Content)
	if reply == "" {
		return
	}

	r.in.queue.Enqueue(queue.Action{
		SenderID:       msg.UserID,
		Kind:           queue.KindSendGroup,
		GroupID:        r.in.groupID,
		Text:           reply,
		CountOnSuccess: true,
	})
}

func (r *reverser) onPrivate(wolf.Message) {}

// ReverseTokens strips the counterpart's framing characters and reverses
// each whitespace-delimited token independently, preserving token order.
func ReverseTokens(text string) string {
	cleaned := strings.Map(func(ch rune) rune {
		switch ch {
		case '|', '>', '<', '-':
			return -1
		}
		return ch
	}, text)

	fields := strings.Fields(cleaned)
	for i, f := range fields {
		runes := []rune(f)
		for l, r := 0, len(runes)-1; l < r; l, r = l+1, r-1 {
			runes[l], runes[r] = runes[r], runes[l]
		}
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
