package sensor

import (
	"slices"
	"strings"
	"time"

	"github.com/gwillem/vexbot/pkg/robot"
)

// Snapshot is every measurement taken on one control tick.
type Snapshot struct {
	values map[robot.Role]Measurement

	// Elapsed is the time since the current primitive started.
	Elapsed time.Duration
}

// NewSnapshot builds a snapshot from measurements. Later entries win.
func NewSnapshot(ms ...Measurement) Snapshot {
	s := Snapshot{values: make(map[robot.Role]Measurement, len(ms))}
	for _, m := range ms {
		s.values[m.Role] = m
	}
	return s
}

// Get returns the measurement for role.
func (s Snapshot) Get(role robot.Role) (Measurement, bool) {
	m, ok := s.values[role]
	return m, ok
}

// Value returns the numeric value for role, or 0 when it was not sampled.
func (s Snapshot) Value(role robot.Role) int {
	return s.values[role].Value
}

// On returns the digital state for role, or false when it was not sampled.
func (s Snapshot) On(role robot.Role) bool {
	return s.values[role].On
}

// Len returns the number of measurements.
func (s Snapshot) Len() int {
	return len(s.values)
}

func (s Snapshot) String() string {
	parts := make([]string, 0, len(s.values))
	for _, m := range s.values {
		parts = append(parts, m.String())
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

// At returns a copy of s with Elapsed set.
func (s Snapshot) At(elapsed time.Duration) Snapshot {
	s.Elapsed = elapsed
	return s
}

// Analog is shorthand for an analog measurement, used when building
// snapshots by hand.
func Analog(role robot.Role, v int) Measurement {
	return Measurement{Role: role, Kind: robot.Analog, Value: v}
}

// Ticks is shorthand for an encoder measurement.
func Ticks(role robot.Role, v int) Measurement {
	return Measurement{Role: role, Kind: robot.Encoder, Value: v}
}

// Switch is shorthand for a digital measurement.
func Switch(role robot.Role, on bool) Measurement {
	return Measurement{Role: role, Kind: robot.Digital, On: on}
}
