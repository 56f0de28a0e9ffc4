// Package teleop maps joystick input to robot motion during operator control.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/motion"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/sensor"
)

// Status is published after every tick.
type Status struct {
	Input State
	Frame Frame
	// Tripped is the limit that stopped the arm right after it was commanded.
	Tripped   robot.Role
	Timestamp time.Time
	Error     error
}

// Controller runs the operator control loop.
type Controller struct {
	hal    hal.HAL
	cfg    *robot.Config
	reader *sensor.Reader
	driver *motion.Driver
	logger log.Logger
	tick   time.Duration

	mu      sync.Mutex
	running bool
	pressed map[robot.Role]bool
	stateCh chan Status
	logCh   chan string
}

// NewController creates a controller for the robot described by cfg.
func NewController(h hal.HAL, cfg *robot.Config, logger log.Logger) *Controller {
	return &Controller{
		hal:     h,
		cfg:     cfg,
		reader:  sensor.NewReader(h, cfg),
		driver:  motion.NewDriver(h, cfg),
		logger:  logger.WithField("mode", "teleop"),
		tick:    cfg.Control.TeleopTick,
		pressed: map[robot.Role]bool{},
		stateCh: make(chan Status, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives the latest status.
func (c *Controller) States() <-chan Status {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Tick returns the loop interval.
func (c *Controller) Tick() time.Duration {
	return c.tick
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Infof("%s", msg)
	select {
	case c.logCh <- fmt.Sprintf("[%s] %s", c.hal.Now().Format("15:04:05"), msg):
	default:
	}
}

// Start runs the control loop until ctx is cancelled. It never returns
// otherwise.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Operator control started, tick %v", c.tick)

	for {
		c.sendState(c.step())
		if err := c.hal.Delay(ctx, c.tick); err != nil {
			c.shutdown()
			return err
		}
	}
}

func (c *Controller) step() Status {
	now := c.hal.Now()
	in, err := c.sample()
	if err != nil {
		c.driver.StopAll()
		c.log("Input error, motors stopped: %v", err)
		return Status{Timestamp: now, Error: err}
	}
	c.edges(in)

	f := Map(in)
	c.driver.Issue(f.Command)
	for _, role := range []robot.Role{robot.Arm, robot.Intake} {
		if _, ok := f.Command[role]; !ok {
			c.driver.Stop(role)
		}
	}

	st := Status{Input: in, Frame: f, Timestamp: now}
	if f.Limit != "" {
		hit, err := c.limit(f.Limit)
		if err != nil {
			c.driver.StopAll()
			c.log("Limit recheck failed, motors stopped: %v", err)
			st.Error = err
			return st
		}
		if hit {
			c.driver.Stop(robot.Arm)
			st.Tripped = f.Limit
			if f.Limit == robot.LimitTop {
				in.TopPressed = true
			} else {
				in.BottomPressed = true
			}
			f.LEDs = LEDs(in)
			st.Frame.LEDs = f.LEDs
			c.edges(in)
		}
	}

	c.lights(f.LEDs)
	c.logger.Debugf("arm pot %d", in.ArmPot)
	return st
}

func (c *Controller) sample() (State, error) {
	j := c.cfg.Joystick
	var s State
	var err error

	if s.Left, err = c.hal.JoystickAnalog(j.Port, j.LeftAxis); err != nil {
		return s, fmt.Errorf("read left axis: %w", err)
	}
	if s.Right, err = c.hal.JoystickAnalog(j.Port, j.RightAxis); err != nil {
		return s, fmt.Errorf("read right axis: %w", err)
	}
	buttons := []struct {
		dst    *bool
		group  int
		button hal.Button
	}{
		{&s.ArmUp, j.ArmGroup, hal.ButtonUp},
		{&s.ArmDown, j.ArmGroup, hal.ButtonDown},
		{&s.IntakeIn, j.IntakeGroup, hal.ButtonUp},
		{&s.IntakeOut, j.IntakeGroup, hal.ButtonDown},
	}
	for _, b := range buttons {
		if *b.dst, err = c.hal.JoystickDigital(j.Port, b.group, b.button); err != nil {
			return s, fmt.Errorf("read button %d %s: %w", b.group, b.button, err)
		}
	}

	if s.TopPressed, err = c.limit(robot.LimitTop); err != nil {
		return s, err
	}
	if s.BottomPressed, err = c.limit(robot.LimitBottom); err != nil {
		return s, err
	}
	if _, ok := c.cfg.Sensor(robot.ArmPot); ok {
		m, err := c.reader.Read(robot.ArmPot)
		if err != nil {
			return s, err
		}
		s.ArmPot = m.Value
	}
	return s, nil
}

// limit reads a limit switch. A robot without that switch is never at it.
func (c *Controller) limit(role robot.Role) (bool, error) {
	if _, ok := c.cfg.Sensor(role); !ok {
		return false, nil
	}
	m, err := c.reader.Read(role)
	if err != nil {
		return false, err
	}
	return m.On, nil
}

// edges logs limit switches that changed since the last tick.
func (c *Controller) edges(s State) {
	for role, on := range map[robot.Role]bool{robot.LimitTop: s.TopPressed, robot.LimitBottom: s.BottomPressed} {
		if c.pressed[role] == on {
			continue
		}
		c.pressed[role] = on
		if on {
			c.log("Arm reached %s", role)
		} else {
			c.log("Arm left %s", role)
		}
	}
}

func (c *Controller) lights(levels map[robot.Role]bool) {
	for role, level := range levels {
		if led, ok := c.cfg.LED(role); ok {
			c.hal.DigitalWrite(led.Channel, level)
		}
	}
}

func (c *Controller) sendState(s Status) {
	select {
	case c.stateCh <- s:
	default:
		// Replace the unread status with the new one.
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.driver.StopAll()
	c.log("Operator control stopped")
}
