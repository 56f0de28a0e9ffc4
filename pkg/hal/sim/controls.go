package sim

import (
	"fmt"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
)

// SetAnalog makes an analog channel read v until changed.
func (h *HAL) SetAnalog(channel, v int) {
	h.ScriptAnalog(channel, v)
}

// ScriptAnalog queues values returned by successive reads. The last value
// repeats once the script runs out.
func (h *HAL) ScriptAnalog(channel int, vals ...int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.analog[channel] = append([]int(nil), vals...)
}

// SetDigital makes a digital channel read level until changed.
func (h *HAL) SetDigital(channel int, level bool) {
	h.ScriptDigital(channel, level)
}

// ScriptDigital queues levels returned by successive reads.
func (h *HAL) ScriptDigital(channel int, levels ...bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.digital[channel] = append([]bool(nil), levels...)
}

// ScriptEncoder queues counts returned by successive reads.
func (h *HAL) ScriptEncoder(channel int, counts ...int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.encoders[channel] = append([]int(nil), counts...)
}

// LinkEncoder makes an encoder count integrate a motor channel's power:
// rate ticks per second at power 1. Use a negative rate for encoders that
// count down when the motor runs forward.
func (h *HAL) LinkEncoder(channel, motor int, rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.encoderLinks[channel] = &link{motor: motor, rate: rate}
}

// LinkAnalog makes an analog channel integrate a motor channel's power,
// starting at start and staying within the 12-bit range.
func (h *HAL) LinkAnalog(channel, motor, start int, rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.analog, channel)
	h.analogLinks[channel] = &link{
		motor: motor,
		rate:  rate,
		value: float64(start),
		min:   hal.AnalogMin,
		max:   hal.AnalogMax,
	}
}

// FailAnalog makes reads of an analog channel fail.
func (h *HAL) FailAnalog(channel int) { h.fail("analog", channel) }

// FailDigital makes reads of a digital channel fail.
func (h *HAL) FailDigital(channel int) { h.fail("digital", channel) }

// FailEncoder makes reads and resets of an encoder fail.
func (h *HAL) FailEncoder(channel int) { h.fail("encoder", channel) }

func (h *HAL) fail(kind string, channel int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults[faultKey(kind, channel)] = fmt.Errorf("%s channel %d: %w", kind, channel, hal.ErrFault)
}

// SetAxis sets a joystick axis value.
func (h *HAL) SetAxis(port, axis, v int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.axes[[2]int{port, axis}] = v
}

// SetButton presses or releases a joystick button.
func (h *HAL) SetButton(port, group int, button hal.Button, pressed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buttons[joyKey{port, group, int(button)}] = pressed
}

// AfterDelay registers fn to run after every Delay with the new virtual time.
func (h *HAL) AfterDelay(fn func(now time.Duration)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterDelay = fn
}

// Motor returns the last power written to a channel.
func (h *HAL) Motor(channel int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.motors[channel]
}

// Output returns the last level written to a digital output.
func (h *HAL) Output(channel int) (level, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	level, ok = h.outputs[channel]
	return level, ok
}

// Elapsed returns the virtual time since start.
func (h *HAL) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Events returns a copy of every recorded call.
func (h *HAL) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// MotorEvents returns the recorded motor set/stop calls.
func (h *HAL) MotorEvents() []Event {
	var out []Event
	for _, e := range h.Events() {
		if e.Kind == MotorSet || e.Kind == MotorStop {
			out = append(out, e)
		}
	}
	return out
}

// ResetEvents clears the recorded calls.
func (h *HAL) ResetEvents() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
