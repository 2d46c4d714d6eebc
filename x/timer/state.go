package timer

import (
	"fmt"
	"strings"
)

// Mode is the phase of a countdown.
type Mode int

const (
	ModeStopped Mode = iota
	ModeRunning
	ModePaused
	ModeExpired
)

var modeNames = map[Mode]string{
	ModeStopped: "stopped",
	ModeRunning: "running",
	ModePaused:  "paused",
	ModeExpired: "expired",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	name, ok := modeNames[m]
	if !ok {
		return nil, fmt.Errorf("timer: unknown mode %d", int(m))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for mode, name := range modeNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("timer: unknown mode %q", s)
}

// State is an immutable snapshot of one timer. A new State replaces the old one on every change.
type State struct {
	StartSeconds     int  `json:"start_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Mode             Mode `json:"mode"`
}

// Fraction is the share of the countdown still remaining; 1 when no duration is set.
func (s State) Fraction() float64 {
	if s.StartSeconds == 0 {
		return 1
	}
	return float64(s.RemainingSeconds) / float64(s.StartSeconds)
}

// IsActive reports whether the timer is counting or has expired and awaits a reset.
func (s State) IsActive() bool {
	return s.Mode == ModeRunning || s.Mode == ModeExpired
}

func (s State) String() string {
	return fmt.Sprintf("%s %s/%s", s.Mode, FormatSeconds(s.RemainingSeconds), FormatSeconds(s.StartSeconds))
}

// FormatSeconds renders n as HH:MM:SS. Negative values (overtime) get a leading minus.
func FormatSeconds(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, n/3600, n%3600/60, n%60)
}
