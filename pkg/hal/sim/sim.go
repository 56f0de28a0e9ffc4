// Package sim is an in-memory HAL with a virtual clock. Sensor values can be
// scripted per read, linked to motor output through a simple plant model, or
// set directly. Every write is recorded for inspection.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
)

var _ hal.HAL = (*HAL)(nil)

// EventKind identifies a recorded HAL call.
type EventKind int

const (
	MotorSet EventKind = iota
	MotorStop
	DigitalWrite
	IMEReset
	Delay
)

func (k EventKind) String() string {
	switch k {
	case MotorSet:
		return "motorSet"
	case MotorStop:
		return "motorStop"
	case DigitalWrite:
		return "digitalWrite"
	case IMEReset:
		return "imeReset"
	case Delay:
		return "delay"
	}
	return "unknown"
}

// Event is one recorded HAL call.
type Event struct {
	At      time.Duration
	Kind    EventKind
	Channel int
	Power   int
	Level   bool
	Dur     time.Duration
}

func (e Event) String() string {
	switch e.Kind {
	case MotorSet:
		return fmt.Sprintf("%v %s(%d, %d)", e.At, e.Kind, e.Channel, e.Power)
	case DigitalWrite:
		return fmt.Sprintf("%v %s(%d, %t)", e.At, e.Kind, e.Channel, e.Level)
	case Delay:
		return fmt.Sprintf("%v %s(%v)", e.At, e.Kind, e.Dur)
	}
	return fmt.Sprintf("%v %s(%d)", e.At, e.Kind, e.Channel)
}

// link integrates a motor channel's power into a sensor value.
type link struct {
	motor int
	rate  float64 // units per second at power 1
	value float64
	min   float64
	max   float64
}

type joyKey struct{ port, group, button int }

// HAL is a simulated robot.
type HAL struct {
	mu       sync.Mutex
	start    time.Time
	now      time.Duration
	realtime bool

	motors   map[int]int
	outputs  map[int]bool
	analog   map[int][]int
	digital  map[int][]bool
	encoders map[int][]int
	faults   map[string]error

	analogLinks  map[int]*link
	encoderLinks map[int]*link

	axes    map[[2]int]int
	buttons map[joyKey]bool

	events     []Event
	afterDelay func(now time.Duration)
}

// Option configures a simulated HAL.
type Option func(*HAL)

// RealTime makes Delay sleep on the wall clock as well as advancing virtual time.
func RealTime() Option {
	return func(h *HAL) { h.realtime = true }
}

// New creates a simulated HAL with all inputs idle: analog channels read
// mid-scale 2048 unless set, digital inputs read high (switches released).
func New(opts ...Option) *HAL {
	h := &HAL{
		start:        time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		motors:       make(map[int]int),
		outputs:      make(map[int]bool),
		analog:       make(map[int][]int),
		digital:      make(map[int][]bool),
		encoders:     make(map[int][]int),
		faults:       make(map[string]error),
		analogLinks:  make(map[int]*link),
		encoderLinks: make(map[int]*link),
		axes:         make(map[[2]int]int),
		buttons:      make(map[joyKey]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MotorSet implements hal.Motors.
func (h *HAL) MotorSet(channel, power int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.motors[channel] = power
	h.record(Event{Kind: MotorSet, Channel: channel, Power: power})
}

// MotorStop implements hal.Motors.
func (h *HAL) MotorStop(channel int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.motors[channel] = 0
	h.record(Event{Kind: MotorStop, Channel: channel})
}

// AnalogRead implements hal.Sensors.
func (h *HAL) AnalogRead(channel int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.faults[faultKey("analog", channel)]; err != nil {
		return 0, err
	}
	if v, ok := pop(h.analog, channel); ok {
		return v, nil
	}
	if l, ok := h.analogLinks[channel]; ok {
		return int(l.value), nil
	}
	return 2048, nil
}

// DigitalRead implements hal.Sensors.
func (h *HAL) DigitalRead(channel int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.faults[faultKey("digital", channel)]; err != nil {
		return false, err
	}
	if v, ok := pop(h.digital, channel); ok {
		return v, nil
	}
	return true, nil
}

// DigitalWrite implements hal.Sensors.
func (h *HAL) DigitalWrite(channel int, level bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs[channel] = level
	h.record(Event{Kind: DigitalWrite, Channel: channel, Level: level})
}

// IMEReset implements hal.Sensors. Scripted encoder values are left alone.
func (h *HAL) IMEReset(channel int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.faults[faultKey("encoder", channel)]; err != nil {
		return err
	}
	if l, ok := h.encoderLinks[channel]; ok {
		l.value = 0
	}
	h.record(Event{Kind: IMEReset, Channel: channel})
	return nil
}

// IMEGet implements hal.Sensors.
func (h *HAL) IMEGet(channel int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.faults[faultKey("encoder", channel)]; err != nil {
		return 0, err
	}
	if v, ok := pop(h.encoders, channel); ok {
		return v, nil
	}
	if l, ok := h.encoderLinks[channel]; ok {
		return int(l.value), nil
	}
	return 0, nil
}

// JoystickAnalog implements hal.Joystick.
func (h *HAL) JoystickAnalog(port, axis int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.axes[[2]int{port, axis}], nil
}

// JoystickDigital implements hal.Joystick.
func (h *HAL) JoystickDigital(port, group int, button hal.Button) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buttons[joyKey{port, group, int(button)}], nil
}

// Delay implements hal.Clock. It advances virtual time and the plant model.
func (h *HAL) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.realtime {
		if err := hal.Sleep(ctx, d); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.now += d
	h.step(d)
	h.record(Event{Kind: Delay, Dur: d})
	hook := h.afterDelay
	now := h.now
	h.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}

// Now implements hal.Clock.
func (h *HAL) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.start.Add(h.now)
}

func (h *HAL) step(d time.Duration) {
	for _, l := range h.analogLinks {
		l.advance(h.motors[l.motor], d)
	}
	for _, l := range h.encoderLinks {
		l.advance(h.motors[l.motor], d)
	}
}

func (l *link) advance(power int, d time.Duration) {
	l.value += float64(power) * l.rate * d.Seconds()
	if l.max > l.min {
		if l.value > l.max {
			l.value = l.max
		}
		if l.value < l.min {
			l.value = l.min
		}
	}
}

func (h *HAL) record(e Event) {
	e.At = h.now
	h.events = append(h.events, e)
}

func pop[T any](m map[int][]T, channel int) (T, bool) {
	vals, ok := m[channel]
	if !ok || len(vals) == 0 {
		var zero T
		return zero, false
	}
	v := vals[0]
	if len(vals) > 1 {
		m[channel] = vals[1:]
	}
	return v, true
}

func faultKey(kind string, channel int) string {
	return fmt.Sprintf("%s/%d", kind, channel)
}
