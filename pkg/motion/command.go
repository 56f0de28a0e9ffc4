package motion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/robot"
)

// Command is a set of logical motor powers keyed by role. Positive power is
// forward, up or intake regardless of how each motor is mounted.
type Command map[robot.Role]int

// Tank returns a drive command with independent side powers.
func Tank(left, right int) Command {
	return Command{robot.DriveLeft: left, robot.DriveRight: right}
}

// Straight returns a drive command with equal side powers.
func Straight(power int) Command {
	return Tank(power, power)
}

// Pivot returns an in-place turn: the left side runs forward for a clockwise turn.
func Pivot(power int, turn Turn) Command {
	return Tank(power*int(turn), -power*int(turn))
}

func (c Command) String() string {
	parts := make([]string, 0, len(c))
	for role, p := range c {
		parts = append(parts, fmt.Sprintf("%s:%d", role, p))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, " ") + "}"
}

// Driver turns logical commands into per-channel motor writes.
type Driver struct {
	motors hal.Motors
	cfg    *robot.Config
}

// NewDriver creates a driver for the given wiring.
func NewDriver(m hal.Motors, cfg *robot.Config) *Driver {
	return &Driver{motors: m, cfg: cfg}
}

// Issue writes every role in cmd to its motors, sign-corrected and clamped.
// Roles are written in a fixed order so each tick issues identically.
func (d *Driver) Issue(cmd Command) {
	for _, role := range robot.MotorRoles() {
		p, ok := cmd[role]
		if !ok {
			continue
		}
		d.Set(role, p)
	}
}

// Set writes one role's logical power.
func (d *Driver) Set(role robot.Role, power int) {
	for _, m := range d.cfg.MotorsFor(role) {
		d.motors.MotorSet(m.Channel, hal.Clamp(hal.Clamp(power)*m.Sign))
	}
}

// Stop stops the motors of the given roles.
func (d *Driver) Stop(roles ...robot.Role) {
	for _, role := range roles {
		for _, m := range d.cfg.MotorsFor(role) {
			d.motors.MotorStop(m.Channel)
		}
	}
}

// StopAll stops every wired motor.
func (d *Driver) StopAll() {
	for _, m := range d.cfg.Motors {
		d.motors.MotorStop(m.Channel)
	}
}
