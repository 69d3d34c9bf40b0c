// Package bots implements the five bot personas that run against the game
// service: calculator, writer, reverser, time responder, and the
// monitor/racer. Each persona is an Instance wrapping one transport
// connection, one action queue, and one behavior.
package bots

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a start request names a behavior that
// does not exist.
var ErrUnknownKind = errors.New("unknown bot kind")

// Kind selects the persona behavior of an instance.
type Kind int

const (
	KindCalculator Kind = iota
	KindWriter
	KindReverser
	KindTime
	KindMonitor
	// KindRacer is a monitor that starts with a race session already
	// running. It shares the monitor behavior entirely.
	KindRacer
)

var kindNames = map[Kind]string{
	KindCalculator: "calculator",
	KindWriter:     "writer",
	KindReverser:   "reverser",
	KindTime:       "time",
	KindMonitor:    "monitor",
	KindRacer:      "racer",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DisplayName is the user-facing persona name.
func (k Kind) DisplayName() string {
	switch k {
	case KindCalculator:
		return "Calculator Bot"
	case KindWriter:
		return "Writer Bot"
	case KindReverser:
		return "Reverser Bot"
	case KindTime:
		return "Time Bot"
	case KindMonitor:
		return "Monitor Bot"
	case KindRacer:
		return "Racer Bot"
	}
	return "Unknown Bot"
}

// ParseKind maps a user-supplied kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
