// Package sensor reads typed measurements from the HAL using the robot's
// wiring, applying unit and polarity conventions in one place.
package sensor

import (
	"errors"
	"fmt"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/robot"
)

// ErrSensorFault is wrapped by every failed read.
var ErrSensorFault = errors.New("sensor fault")

// Measurement is one reading of one sensor.
type Measurement struct {
	Role  robot.Role
	Kind  robot.SensorKind
	Value int  // analog 0-4095 or signed encoder ticks
	On    bool // digital: true when the switch is pressed

	ticksPerRotation float64
}

// Rotations converts an encoder measurement to wheel rotations.
func (m Measurement) Rotations() float64 {
	if m.ticksPerRotation == 0 {
		return 0
	}
	return float64(m.Value) / m.ticksPerRotation
}

func (m Measurement) String() string {
	if m.Kind == robot.Digital {
		return fmt.Sprintf("%s=%t", m.Role, m.On)
	}
	return fmt.Sprintf("%s=%d", m.Role, m.Value)
}

// Reader reads sensors by role. It never caches.
type Reader struct {
	hal hal.Sensors
	cfg *robot.Config
}

// NewReader creates a reader over the given HAL and wiring.
func NewReader(h hal.Sensors, cfg *robot.Config) *Reader {
	return &Reader{hal: h, cfg: cfg}
}

// Read samples one sensor.
func (r *Reader) Read(role robot.Role) (Measurement, error) {
	sc, ok := r.cfg.Sensor(role)
	if !ok {
		return Measurement{}, fmt.Errorf("read %s: %w: not wired", role, ErrSensorFault)
	}

	m := Measurement{Role: role, Kind: sc.Kind}
	switch sc.Kind {
	case robot.Analog:
		v, err := r.hal.AnalogRead(sc.Channel)
		if err != nil {
			return Measurement{}, fault(role, err)
		}
		if v < hal.AnalogMin || v > hal.AnalogMax {
			return Measurement{}, fmt.Errorf("read %s: %w: analog value %d out of range", role, ErrSensorFault, v)
		}
		m.Value = v

	case robot.Digital:
		level, err := r.hal.DigitalRead(sc.Channel)
		if err != nil {
			return Measurement{}, fault(role, err)
		}
		m.On = level != sc.Invert

	case robot.Encoder:
		v, err := r.hal.IMEGet(sc.Channel)
		if err != nil {
			return Measurement{}, fault(role, err)
		}
		if sc.Invert {
			v = -v
		}
		m.Value = v
		m.ticksPerRotation = r.cfg.Control.TicksPerRotation
	}

	return m, nil
}

// ResetEncoder zeroes the encoder wired to role.
func (r *Reader) ResetEncoder(role robot.Role) error {
	sc, ok := r.cfg.Sensor(role)
	if !ok || sc.Kind != robot.Encoder {
		return fmt.Errorf("reset %s: %w: no encoder wired", role, ErrSensorFault)
	}
	if err := r.hal.IMEReset(sc.Channel); err != nil {
		return fault(role, err)
	}
	return nil
}

// ReadAll samples each role once, in order.
func (r *Reader) ReadAll(roles ...robot.Role) (Snapshot, error) {
	snap := Snapshot{values: make(map[robot.Role]Measurement, len(roles))}
	for _, role := range roles {
		m, err := r.Read(role)
		if err != nil {
			return Snapshot{}, err
		}
		snap.values[role] = m
	}
	return snap, nil
}

func fault(role robot.Role, err error) error {
	if errors.Is(err, ErrSensorFault) {
		return fmt.Errorf("read %s: %w", role, err)
	}
	return fmt.Errorf("read %s: %w: %w", role, ErrSensorFault, err)
}
