// Package robot describes how a robot is wired: which HAL channel drives or
// senses what, and which way is "forward" for each of them.
package robot

// Role identifies what a motor or sensor does on the robot.
type Role string

// Motor roles. Logical power is positive for forward, up and intake.
const (
	DriveLeft  Role = "drive_left"
	DriveRight Role = "drive_right"
	Arm        Role = "arm"
	Intake     Role = "intake"
)

// Sensor roles.
const (
	DriveEncoder Role = "drive_encoder"
	ArmPot       Role = "arm_pot"
	LineLeft     Role = "line_left"
	LineCenter   Role = "line_center"
	LineRight    Role = "line_right"
	LimitTop     Role = "limit_top"
	LimitBottom  Role = "limit_bottom"
)

// Indicator roles.
const (
	LEDTop    Role = "led_top"
	LEDBottom Role = "led_bottom"
)

// MotorRoles returns all motor roles in issue order.
func MotorRoles() []Role {
	return []Role{DriveLeft, DriveRight, Arm, Intake}
}

// LineSensors returns the line sensor roles, left to right.
func LineSensors() []Role {
	return []Role{LineLeft, LineCenter, LineRight}
}
