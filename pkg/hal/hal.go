// Package hal defines the hardware abstraction layer the control code runs on.
//
// The calls mirror the vendor runtime: motor power is written fire-and-forget,
// sensors are read on demand, and Delay is the cooperative yield point.
package hal

import (
	"context"
	"errors"
	"time"
)

// Motor power limits accepted by MotorSet.
const (
	MaxPower = 127
	MinPower = -127
)

// Analog readings are 12-bit.
const (
	AnalogMin = 0
	AnalogMax = 4095
)

// ErrFault is wrapped by backends when a read fails at the hardware level.
var ErrFault = errors.New("hardware fault")

// Button identifies one half of a joystick trigger button group.
type Button int

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonLeft
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonUp:
		return "up"
	case ButtonDown:
		return "down"
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	}
	return "unknown"
}

// Motors is the write side of the HAL.
type Motors interface {
	MotorSet(channel, power int)
	MotorStop(channel int)
}

// Sensors is the read side of the HAL.
type Sensors interface {
	AnalogRead(channel int) (int, error)
	DigitalRead(channel int) (bool, error)
	DigitalWrite(channel int, level bool)
	IMEReset(channel int) error
	IMEGet(channel int) (int, error)
}

// Joystick reads the operator controller.
type Joystick interface {
	JoystickAnalog(port, axis int) (int, error)
	JoystickDigital(port, group int, button Button) (bool, error)
}

// Clock is the scheduler side of the HAL.
type Clock interface {
	// Delay blocks for d, yielding to other tasks. It returns ctx.Err()
	// if the task is terminated while waiting.
	Delay(ctx context.Context, d time.Duration) error
	Now() time.Time
}

// HAL is the full hardware surface.
type HAL interface {
	Motors
	Sensors
	Joystick
	Clock
}

// Clamp limits power to the range accepted by MotorSet.
func Clamp(power int) int {
	if power > MaxPower {
		return MaxPower
	}
	if power < MinPower {
		return MinPower
	}
	return power
}

// Sleep is a Clock.Delay for backends running on the wall clock.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
