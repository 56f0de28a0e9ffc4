// Package servobus implements the HAL on a bench rig of Feetech STS servos.
//
// Each robot port is mapped to a servo: motors step their servo's goal
// position by power times gain on every write, analog channels and encoders
// read servo positions, and limit switches read low while a servo is outside
// its configured range. A second, passive servo arm moved by hand stands in
// for the joystick.
package servobus

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
)

// DefaultBaudRate of STS servos.
const DefaultBaudRate = 1_000_000

// Servo positions are 12-bit, one revolution per 4096 steps.
const (
	positionMin = 0
	positionMax = 4095
	revolution  = 4096
)

// HAL drives robot ports through a servo bus.
type HAL struct {
	cfg     robot.BusConfig
	log     log.Logger
	timeout time.Duration

	bus    *feetech.Bus
	group  *feetech.ServoGroup
	leader *feetech.ServoGroup
	// leaderBus is nil when the leader shares the follower bus.
	leaderBus *feetech.Bus

	mu       sync.Mutex
	encoders map[int]*turnCounter
	outputs  map[int]bool
}

// Open connects to the follower bus and, if configured, the leader arm.
// Follower torque is enabled; the leader is left passive.
func Open(ctx context.Context, cfg robot.BusConfig, logger log.Logger) (*HAL, error) {
	h := &HAL{
		cfg:      cfg,
		log:      logger.WithField("port", cfg.Port),
		timeout:  100 * time.Millisecond,
		encoders: make(map[int]*turnCounter),
		outputs:  make(map[int]bool),
	}

	bus, err := openBus(cfg.Port, cfg.BaudRate, h.timeout)
	if err != nil {
		return nil, err
	}
	h.bus = bus
	h.group = feetech.NewServoGroupByIDs(bus, followerIDs(cfg)...)

	if err := h.group.EnableAll(ctx); err != nil {
		h.log.Warnf("enable follower torque: %v", err)
	}

	if cfg.Leader.Port != "" {
		lbus := bus
		if cfg.Leader.Port != cfg.Port {
			if lbus, err = openBus(cfg.Leader.Port, cfg.BaudRate, h.timeout); err != nil {
				bus.Close()
				return nil, fmt.Errorf("leader: %w", err)
			}
			h.leaderBus = lbus
		}
		h.leader = feetech.NewServoGroupByIDs(lbus, cfg.Leader.ServoIDs()...)
		if err := h.leader.DisableAll(ctx); err != nil {
			h.log.Warnf("disable leader torque: %v", err)
		}
	}

	// Prime encoders so the first IMEGet counts from the current position.
	for _, e := range cfg.Encoders {
		if err := h.IMEReset(e.Channel); err != nil {
			h.Close()
			return nil, err
		}
	}

	h.log.Infof("servo bus open, %d follower servos", len(followerIDs(cfg)))
	return h, nil
}

func openBus(port string, baud int, timeout time.Duration) (*feetech.Bus, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return bus, nil
}

// followerIDs returns every servo ID wired to a robot port, sorted.
func followerIDs(cfg robot.BusConfig) []int {
	var ids []int
	add := func(id int) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for _, list := range [][]robot.ServoChannel{cfg.Motors, cfg.Analog, cfg.Encoders} {
		for _, s := range list {
			add(s.ServoID)
		}
	}
	for _, l := range cfg.Limits {
		add(l.ServoID)
	}
	slices.Sort(ids)
	return ids
}

// Close releases follower torque and closes the buses.
func (h *HAL) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.group.DisableAll(ctx); err != nil {
		h.log.Warnf("disable follower torque: %v", err)
	}
	if h.leaderBus != nil {
		if err := h.leaderBus.Close(); err != nil {
			h.log.Warnf("close leader bus: %v", err)
		}
	}
	return h.bus.Close()
}

func (h *HAL) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func (h *HAL) position(group *feetech.ServoGroup, id int) (int, error) {
	ctx, cancel := h.call()
	defer cancel()
	positions, err := group.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read servo %d: %w: %w", id, hal.ErrFault, err)
	}
	pos, ok := positions[id]
	if !ok {
		return 0, fmt.Errorf("read servo %d: %w: no response", id, hal.ErrFault)
	}
	return int(pos), nil
}

func find(list []robot.ServoChannel, channel int) (robot.ServoChannel, bool) {
	for _, s := range list {
		if s.Channel == channel {
			return s, true
		}
	}
	return robot.ServoChannel{}, false
}

func notMapped(kind string, channel int) error {
	return fmt.Errorf("%s channel %d: %w: not mapped to a servo", kind, channel, hal.ErrFault)
}

// MotorSet implements hal.Motors. Write failures are logged; the next tick
// writes again.
func (h *HAL) MotorSet(channel, power int) {
	m, ok := find(h.cfg.Motors, channel)
	if !ok {
		return
	}
	cur, err := h.position(h.group, m.ServoID)
	if err != nil {
		h.log.Warnf("motor %d: %v", channel, err)
		return
	}
	h.write(channel, m.ServoID, goal(cur, hal.Clamp(power), m.Gain))
}

// MotorStop implements hal.Motors by holding the servo where it is.
func (h *HAL) MotorStop(channel int) {
	m, ok := find(h.cfg.Motors, channel)
	if !ok {
		return
	}
	cur, err := h.position(h.group, m.ServoID)
	if err != nil {
		h.log.Warnf("motor %d stop: %v", channel, err)
		return
	}
	h.write(channel, m.ServoID, cur)
}

func (h *HAL) write(channel, id, pos int) {
	ctx, cancel := h.call()
	defer cancel()
	if err := h.group.SetPositions(ctx, feetech.PositionMap{id: pos}); err != nil {
		h.log.Warnf("motor %d: write servo %d: %v", channel, id, err)
	}
}

// AnalogRead implements hal.Sensors with the raw servo position.
func (h *HAL) AnalogRead(channel int) (int, error) {
	a, ok := find(h.cfg.Analog, channel)
	if !ok {
		return 0, notMapped("analog", channel)
	}
	return h.position(h.group, a.ServoID)
}

// DigitalRead implements hal.Sensors for emulated limit switches.
func (h *HAL) DigitalRead(channel int) (bool, error) {
	for _, l := range h.cfg.Limits {
		if l.Channel != channel {
			continue
		}
		pos, err := h.position(h.group, l.ServoID)
		if err != nil {
			return false, err
		}
		return limitLevel(l, pos), nil
	}
	return false, notMapped("digital", channel)
}

// DigitalWrite implements hal.Sensors. The rig has no outputs, so levels are
// only recorded.
func (h *HAL) DigitalWrite(channel int, level bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.outputs[channel]; ok && prev == level {
		return
	}
	h.outputs[channel] = level
	h.log.Debugf("output %d = %t", channel, level)
}

// IMEReset implements hal.Sensors.
func (h *HAL) IMEReset(channel int) error {
	e, ok := find(h.cfg.Encoders, channel)
	if !ok {
		return notMapped("encoder", channel)
	}
	pos, err := h.position(h.group, e.ServoID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.encoders[channel] = &turnCounter{last: pos}
	return nil
}

// IMEGet implements hal.Sensors, counting across revolutions.
func (h *HAL) IMEGet(channel int) (int, error) {
	e, ok := find(h.cfg.Encoders, channel)
	if !ok {
		return 0, notMapped("encoder", channel)
	}
	pos, err := h.position(h.group, e.ServoID)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	tc, ok := h.encoders[channel]
	if !ok {
		tc = &turnCounter{last: pos}
		h.encoders[channel] = tc
	}
	return tc.update(pos), nil
}

// JoystickAnalog implements hal.Joystick from the leader arm. Unmapped axes
// rest at zero.
func (h *HAL) JoystickAnalog(port, axis int) (int, error) {
	if h.leader == nil {
		return 0, nil
	}
	cal, ok := h.cfg.Leader.ByAxis(axis)
	if !ok {
		return 0, nil
	}
	pos, err := h.position(h.leader, cal.ID)
	if err != nil {
		return 0, err
	}
	return cal.Normalize(pos), nil
}

// JoystickDigital implements hal.Joystick from the leader arm.
func (h *HAL) JoystickDigital(port, group int, button hal.Button) (bool, error) {
	if h.leader == nil {
		return false, nil
	}
	for _, b := range h.cfg.Leader.Buttons {
		if b.Group != group {
			continue
		}
		pos, err := h.position(h.leader, b.ServoID)
		if err != nil {
			return false, err
		}
		return pressed(b, button, pos), nil
	}
	return false, nil
}

// Delay implements hal.Clock on the wall clock.
func (h *HAL) Delay(ctx context.Context, d time.Duration) error {
	return hal.Sleep(ctx, d)
}

// Now implements hal.Clock.
func (h *HAL) Now() time.Time {
	return time.Now()
}

// goal moves a servo position by power times gain, within the servo range.
func goal(cur, power int, gain float64) int {
	g := cur + int(float64(power)*gain)
	return min(max(g, positionMin), positionMax)
}

// limitLevel is high while the servo is in range, like a released
// active-low switch.
func limitLevel(l robot.ServoLimit, pos int) bool {
	return pos >= l.Min && pos <= l.Max
}

// pressed reports whether a leader position holds down a trigger button.
func pressed(b robot.LeaderButton, button hal.Button, pos int) bool {
	switch button {
	case hal.ButtonUp:
		return pos >= b.Up
	case hal.ButtonDown:
		return pos <= b.Down
	}
	return false
}

// turnCounter accumulates servo steps across the 4095 to 0 wrap.
type turnCounter struct {
	last  int
	total int
}

func (t *turnCounter) update(pos int) int {
	delta := pos - t.last
	switch {
	case delta > revolution/2:
		delta -= revolution
	case delta < -revolution/2:
		delta += revolution
	}
	t.total += delta
	t.last = pos
	return t.total
}

var _ hal.HAL = (*HAL)(nil)
