package bots

import (
	"regexp"
	"strings"

	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/queue"
	"github.com/msaud/wolfherd/internal/wolf"
)

// The counterpart frames the word to copy either between arrow brackets
// or inside the braces of "Type {word} 8 seconds from now to win!".
var (
	writerBracketPattern = regexp.MustCompile(`\|-->\s*(.*?)\s*<--\|`)
	writerEnglishPattern = regexp.MustCompile(`Type \{(.*?)\} 8 seconds from now to win!`)
)

// Win and score announcements the writer must not treat as prompts.
var writerSkipMarkers = []string{"مُبارك", "أجبت خلال"}

// writer echoes back the literal text its counterpart asks to be typed.
type writer struct {
	in     *Instance
	target string
	open   string
}

func newWriter(in *Instance, cfg config.BotsConfig) *writer {
	return &writer{
		in:     in,
		target: cfg.WriterTargetID,
		open:   cfg.WriterOpener,
	}
}

func (w *writer) opener() string { return w.open }

func (w *writer) onGroup(msg wolf.Message) {
	if msg.GroupID != w.in.groupID || msg.UserID != w.target {
		return
	}

	for _, marker := range writerSkipMarkers {
		if strings.Contains(msg.Content, marker) {
			return
		}
	}

	text := ""
	if m := writerBracketPattern.FindStringSubmatch(msg.Content); m != nil {
		text = strings.TrimSpace(m[1])
	} else if m := writerEnglishPattern.FindStringSubmatch(msg.Content); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return
	}

	w.in.queue.Enqueue(queue.Action{
		SenderID:       msg.UserID,
		Kind:           queue.KindSendGroup,
		GroupID:        w.in.groupID,
		Text:           text,
		CountOnSuccess: true,
	})
}

func (w *writer) onPrivate(wolf.Message) {}
