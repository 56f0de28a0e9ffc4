// Package vexbot runs VEX competition robots: a scripted autonomous routine
// built from threshold-gated motion primitives, and joystick operator control.
//
// # Installation
//
//	go install github.com/gwillem/vexbot/cmd/vexbot@latest
//
// # Usage
//
// Pick a robot and a backend, which writes vexbot.yaml:
//
//	vexbot setup
//
// Run the autonomous routine, or drive the robot:
//
//	vexbot auto
//	vexbot teleop
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/vexbot: CLI with auto, teleop, setup and ports commands
//   - pkg/hal: Hardware abstraction layer, with sim and servobus backends
//   - pkg/robot: Robot wiring, presets and configuration file
//   - pkg/sensor: Typed sensor reads
//   - pkg/motion: Motion primitives and the executor that runs them
//   - pkg/routine: Sequencer and autonomous routines
//   - pkg/teleop: Operator control loop
//   - pkg/competition: Autonomous and operator control entry points
//   - pkg/log: Logging
package vexbot
