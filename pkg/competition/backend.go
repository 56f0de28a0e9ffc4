package competition

import (
	"context"
	"fmt"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/hal/servobus"
	"github.com/gwillem/vexbot/pkg/hal/sim"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
)

// Plant rates for the simulated robot, per unit of motor power per second.
const (
	simEncoderRate = 20
	simPotRate     = 2
	simConcrete    = 2000
)

// OpenHAL opens the backend selected in cfg. The returned close function
// must be called when done.
func OpenHAL(ctx context.Context, cfg *robot.Config, logger log.Logger) (hal.HAL, func() error, error) {
	switch cfg.Backend.Kind {
	case "", robot.BackendSim:
		return Simulate(cfg, sim.RealTime()), func() error { return nil }, nil
	case robot.BackendServoBus:
		h, err := servobus.Open(ctx, cfg.Backend.Bus, logger)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", robot.ErrConfig, cfg.Backend.Kind)
}

// Simulate returns a simulator with a simple plant for cfg: the drive
// encoder follows the left drive, the arm potentiometer follows the arm and
// line sensors see bare floor.
func Simulate(cfg *robot.Config, opts ...sim.Option) *sim.HAL {
	h := sim.New(opts...)

	if s, ok := cfg.Sensor(robot.DriveEncoder); ok {
		if m := cfg.MotorsFor(robot.DriveLeft); len(m) > 0 {
			// Forward counts down.
			h.LinkEncoder(s.Channel, m[0].Channel, -simEncoderRate*float64(m[0].Sign))
		}
	}
	if s, ok := cfg.Sensor(robot.ArmPot); ok {
		if m := cfg.MotorsFor(robot.Arm); len(m) > 0 {
			h.LinkAnalog(s.Channel, m[0].Channel, (hal.AnalogMin+hal.AnalogMax)/4, simPotRate*float64(m[0].Sign))
		}
	}
	for _, role := range robot.LineSensors() {
		if s, ok := cfg.Sensor(role); ok {
			h.SetAnalog(s.Channel, simConcrete)
		}
	}
	return h
}
