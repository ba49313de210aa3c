package catalogd

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of an Engine.
type State int32

// Engine states. Failed and Stopped are terminal.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateStopped
	StateFailed
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateInitializing:  "initializing",
	StateReady:         "ready",
	StateStopped:       "stopped",
	StateFailed:        "failed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown engine state %q", text)
}
