// Package motion implements threshold-gated motion primitives and the
// executor that runs them.
//
// A primitive is a pure description of one bounded action: which sensors it
// watches, what it commands on each tick, and when it is finished. The
// Executor owns the loop, the brake and the timeout, so no primitive repeats
// that logic.
package motion

import (
	"fmt"
	"time"

	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/sensor"
)

// Primitive is one closed-loop or timed motor action.
type Primitive interface {
	Name() string
	// Inputs lists the sensors sampled on every tick.
	Inputs() []robot.Role
	// Output computes the command for the current tick.
	Output(s sensor.Snapshot) Command
	// Done reports whether the primitive has reached its terminal condition.
	Done(s sensor.Snapshot) bool
}

// Resetter is implemented by primitives that zero encoders before starting.
type Resetter interface {
	Resets() []robot.Role
}

// Limited is implemented by primitives that carry their own timeout.
type Limited interface {
	Timeout() time.Duration
}

// Direction of travel.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Turn direction, seen from above.
type Turn int

const (
	Clockwise        Turn = 1
	CounterClockwise Turn = -1
)

func (t Turn) String() string {
	if t == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

// Reached reports whether an encoder count has crossed target. A negative
// target is approached counting down, a positive one counting up, and a zero
// target is reached immediately.
func Reached(count, target int) bool {
	switch {
	case target < 0:
		return count <= target
	case target > 0:
		return count >= target
	}
	return true
}

// DriveDistance drives both sides at constant speed until the drive encoder
// crosses Target. IntakePower, when set, runs the intake for the whole drive.
type DriveDistance struct {
	Target      int
	Speed       int
	Direction   Direction
	IntakePower int
}

func (p DriveDistance) Name() string {
	return fmt.Sprintf("drive %s %d@%d", p.Direction, p.Target, abs(p.Speed))
}

func (p DriveDistance) Inputs() []robot.Role { return []robot.Role{robot.DriveEncoder} }
func (p DriveDistance) Resets() []robot.Role { return []robot.Role{robot.DriveEncoder} }

func (p DriveDistance) Output(sensor.Snapshot) Command {
	cmd := Straight(abs(p.Speed) * int(p.Direction))
	if p.IntakePower != 0 {
		cmd[robot.Intake] = p.IntakePower
	}
	return cmd
}

func (p DriveDistance) Done(s sensor.Snapshot) bool {
	return Reached(s.Value(robot.DriveEncoder), p.Target)
}

// RotateInPlace pivots until the drive encoder crosses Target.
type RotateInPlace struct {
	Target int
	Speed  int
	Turn   Turn
}

func (p RotateInPlace) Name() string {
	return fmt.Sprintf("rotate %s %d@%d", p.Turn, p.Target, abs(p.Speed))
}

func (p RotateInPlace) Inputs() []robot.Role { return []robot.Role{robot.DriveEncoder} }
func (p RotateInPlace) Resets() []robot.Role { return []robot.Role{robot.DriveEncoder} }

func (p RotateInPlace) Output(sensor.Snapshot) Command {
	return Pivot(abs(p.Speed), p.Turn)
}

func (p RotateInPlace) Done(s sensor.Snapshot) bool {
	return Reached(s.Value(robot.DriveEncoder), p.Target)
}

// ActuatorToSetpoint drives an actuator toward a potentiometer setpoint,
// reversing whenever it passes it, until within Tolerance.
type ActuatorToSetpoint struct {
	Actuator  robot.Role
	Sensor    robot.Role
	Setpoint  int
	Power     int
	Tolerance int
}

// ArmTo moves the arm to a potentiometer setpoint.
func ArmTo(setpoint, power, tolerance int) ActuatorToSetpoint {
	return ActuatorToSetpoint{
		Actuator:  robot.Arm,
		Sensor:    robot.ArmPot,
		Setpoint:  setpoint,
		Power:     power,
		Tolerance: tolerance,
	}
}

func (p ActuatorToSetpoint) Name() string {
	return fmt.Sprintf("%s to %d", p.Actuator, p.Setpoint)
}

func (p ActuatorToSetpoint) Inputs() []robot.Role { return []robot.Role{p.Sensor} }

func (p ActuatorToSetpoint) Output(s sensor.Snapshot) Command {
	return Command{p.Actuator: sign(p.Setpoint-s.Value(p.Sensor)) * abs(p.Power)}
}

func (p ActuatorToSetpoint) Done(s sensor.Snapshot) bool {
	return abs(p.Setpoint-s.Value(p.Sensor)) <= p.Tolerance
}

// Steer is the line follower's choice for one tick.
type Steer int

const (
	SteerStraight Steer = iota
	SteerCenter
	SteerLeft
	SteerRight
)

func (s Steer) String() string {
	switch s {
	case SteerCenter:
		return "center"
	case SteerLeft:
		return "left"
	case SteerRight:
		return "right"
	}
	return "straight"
}

// ChooseSteer picks the steering rule from which sensors see the line. The
// center sensor wins over the sides, left over right.
func ChooseSteer(left, center, right bool) Steer {
	switch {
	case center:
		return SteerCenter
	case left:
		return SteerLeft
	case right:
		return SteerRight
	}
	return SteerStraight
}

// FollowLine steers along a dark line using three reflectance sensors. A
// sensor sees the line when it reads below Threshold. With For unset it never
// finishes on its own; with For set it completes once that long has elapsed.
type FollowLine struct {
	Threshold int
	Center    int // both sides when the center sensor is on the line
	Outer     int // outside wheel when a side sensor is on the line
	Inner     int // inside wheel when a side sensor is on the line
	Straight  int // both sides when no sensor sees the line
	For       time.Duration
}

func (p FollowLine) Name() string { return "follow line" }

func (p FollowLine) Inputs() []robot.Role { return robot.LineSensors() }

func (p FollowLine) Output(s sensor.Snapshot) Command {
	steer := ChooseSteer(
		s.Value(robot.LineLeft) < p.Threshold,
		s.Value(robot.LineCenter) < p.Threshold,
		s.Value(robot.LineRight) < p.Threshold,
	)
	switch steer {
	case SteerCenter:
		return Straight(p.Center)
	case SteerLeft:
		return Tank(p.Inner, p.Outer)
	case SteerRight:
		return Tank(p.Outer, p.Inner)
	}
	return Straight(p.Straight)
}

func (p FollowLine) Done(s sensor.Snapshot) bool {
	return p.For > 0 && s.Elapsed >= p.For
}

func (p FollowLine) Timeout() time.Duration {
	if p.For > 0 {
		return p.For + time.Second
	}
	return 0
}

// AcquireLine arcs with a fixed side-power split until any line sensor reads
// below Threshold. Each sensor is compared on its own.
type AcquireLine struct {
	Threshold int
	Left      int
	Right     int
}

func (p AcquireLine) Name() string { return "acquire line" }

func (p AcquireLine) Inputs() []robot.Role { return robot.LineSensors() }

func (p AcquireLine) Output(sensor.Snapshot) Command { return Tank(p.Left, p.Right) }

func (p AcquireLine) Done(s sensor.Snapshot) bool {
	for _, role := range robot.LineSensors() {
		if s.Value(role) < p.Threshold {
			return true
		}
	}
	return false
}

// DriveUntil drives straight until an analog sensor reaches Threshold, from
// above when Below is set, from beneath otherwise.
type DriveUntil struct {
	Sensor    robot.Role
	Threshold int
	Below     bool
	Power     int
}

func (p DriveUntil) Name() string {
	op := ">="
	if p.Below {
		op = "<="
	}
	return fmt.Sprintf("drive until %s %s %d", p.Sensor, op, p.Threshold)
}

func (p DriveUntil) Inputs() []robot.Role { return []robot.Role{p.Sensor} }

func (p DriveUntil) Output(sensor.Snapshot) Command { return Straight(p.Power) }

func (p DriveUntil) Done(s sensor.Snapshot) bool {
	if p.Below {
		return s.Value(p.Sensor) <= p.Threshold
	}
	return s.Value(p.Sensor) >= p.Threshold
}

// TimedTurn pivots for a fixed time.
type TimedTurn struct {
	Power int
	Turn  Turn
	For   time.Duration
}

func (p TimedTurn) Name() string { return fmt.Sprintf("pivot %s %v", p.Turn, p.For) }

func (p TimedTurn) Inputs() []robot.Role { return nil }

func (p TimedTurn) Output(sensor.Snapshot) Command { return Pivot(abs(p.Power), p.Turn) }

func (p TimedTurn) Done(s sensor.Snapshot) bool { return s.Elapsed >= p.For }

func (p TimedTurn) Timeout() time.Duration { return p.For + time.Second }

// Wait holds all motors stopped for a fixed time.
type Wait struct {
	For time.Duration
}

func (p Wait) Name() string { return fmt.Sprintf("wait %v", p.For) }

func (p Wait) Inputs() []robot.Role { return nil }

func (p Wait) Output(sensor.Snapshot) Command { return Command{} }

func (p Wait) Done(s sensor.Snapshot) bool { return s.Elapsed >= p.For }

func (p Wait) Timeout() time.Duration { return p.For + time.Second }

// WithTimeout overrides the executor's default timeout for p.
func WithTimeout(p Primitive, d time.Duration) Primitive {
	return limited{Primitive: p, timeout: d}
}

type limited struct {
	Primitive
	timeout time.Duration
}

func (l limited) Timeout() time.Duration { return l.timeout }

func (l limited) Resets() []robot.Role {
	if r, ok := l.Primitive.(Resetter); ok {
		return r.Resets()
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
