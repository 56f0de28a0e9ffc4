package teleop

import (
	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/motion"
	"github.com/gwillem/vexbot/pkg/robot"
)

// State is one tick's operator input and limit switch readings.
type State struct {
	Left, Right int // joystick axes, -127..127

	ArmUp, ArmDown      bool
	IntakeIn, IntakeOut bool

	TopPressed    bool
	BottomPressed bool

	ArmPot int
}

// Frame is what the robot should do for one tick.
type Frame struct {
	// Command holds the drive and, when moving, the arm and intake.
	// Roles left out are stopped.
	Command motion.Command
	// Limit is the switch that ends the current arm move, if any.
	Limit robot.Role
	// LEDs maps indicator roles to output levels.
	LEDs map[robot.Role]bool
}

// Map turns operator input into motor and indicator outputs. Up wins over
// down, and the arm never drives into a pressed limit.
func Map(s State) Frame {
	f := Frame{
		Command: motion.Tank(s.Left, s.Right),
		LEDs:    LEDs(s),
	}

	switch {
	case s.ArmUp && !s.TopPressed:
		f.Command[robot.Arm] = hal.MaxPower
		f.Limit = robot.LimitTop
	case s.ArmDown && !s.BottomPressed:
		f.Command[robot.Arm] = hal.MinPower
		f.Limit = robot.LimitBottom
	}

	switch {
	case s.IntakeIn:
		f.Command[robot.Intake] = hal.MaxPower
	case s.IntakeOut:
		f.Command[robot.Intake] = hal.MinPower
	}
	return f
}

// LEDs drives each indicator low while its limit switch is pressed.
func LEDs(s State) map[robot.Role]bool {
	return map[robot.Role]bool{
		robot.LEDTop:    !s.TopPressed,
		robot.LEDBottom: !s.BottomPressed,
	}
}
