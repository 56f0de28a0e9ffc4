package routine

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/motion"
	"github.com/gwillem/vexbot/pkg/robot"
)

// ErrUnknownRoutine is returned by Lookup for names not in the registry.
var ErrUnknownRoutine = errors.New("unknown routine")

// Builder creates a routine's steps for a robot.
type Builder func(cfg *robot.Config) []motion.Primitive

var registry = map[string]Builder{
	"tossup":     TossUp,
	"linecourse": LineCourse,
}

// Names returns the registered routine names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup builds the named routine for cfg.
func Lookup(name string, cfg *robot.Config) ([]motion.Primitive, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownRoutine, name, Names())
	}
	return b(cfg), nil
}

// Encoder counts for the toss-up drive. One wheel rotation is about 620 ticks
// and a quarter turn in place about 640.
const (
	quarterTurn = 640
	driveSpeed  = 50
)

// forward drives forward to a negative encoder target, running the intake at
// twice the drive speed.
func forward(target, speed int) motion.DriveDistance {
	return motion.DriveDistance{
		Target:      target,
		Speed:       speed,
		Direction:   motion.Forward,
		IntakePower: 2 * speed,
	}
}

func backward(target, speed int) motion.DriveDistance {
	return motion.DriveDistance{Target: target, Speed: speed, Direction: motion.Backward}
}

// TossUp is the toss-up autonomous: collect from the starting tile, back off,
// then square up around the field and push to the goal zone.
func TossUp(*robot.Config) []motion.Primitive {
	cw := motion.RotateInPlace{Target: -quarterTurn, Speed: driveSpeed, Turn: motion.Clockwise}
	ccw := motion.RotateInPlace{Target: quarterTurn, Speed: driveSpeed, Turn: motion.CounterClockwise}

	return []motion.Primitive{
		forward(-920, driveSpeed),
		backward(620, driveSpeed),
		cw,
		forward(-700, driveSpeed),
		cw,
		forward(-700, driveSpeed),
		backward(700, driveSpeed),
		ccw,
		forward(-1500, 60),
	}
}

// Potentiometer setpoints for the line bot arm.
const (
	armOpen   = 1000
	armClosed = 600
)

// LineCourse raises the arm, drives to the line, pivots onto it, follows it
// and lowers the arm at the far end.
func LineCourse(cfg *robot.Config) []motion.Primitive {
	c := cfg.Control
	return []motion.Primitive{
		motion.ArmTo(armOpen, hal.MaxPower, c.SetpointTolerance),
		motion.DriveUntil{Sensor: robot.LineRight, Threshold: 500, Below: true, Power: hal.MaxPower},
		motion.TimedTurn{Power: 80, Turn: motion.Clockwise, For: 500 * time.Millisecond},
		motion.AcquireLine{Threshold: c.LineThreshold, Left: 80, Right: 50},
		motion.FollowLine{
			Threshold: c.LineThreshold,
			Center:    hal.MaxPower,
			Outer:     80,
			Inner:     50,
			Straight:  50,
			For:       6 * time.Second,
		},
		motion.Wait{For: time.Second},
		motion.ArmTo(armClosed, hal.MaxPower, c.SetpointTolerance),
		motion.Wait{For: 20 * time.Second},
	}
}
