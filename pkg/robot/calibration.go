package robot

// Backend kinds.
const (
	BackendSim      = "sim"
	BackendServoBus = "servobus"
)

// BackendConfig selects and configures the HAL implementation.
type BackendConfig struct {
	Kind string    `yaml:"kind"`
	Bus  BusConfig `yaml:"bus,omitempty"`
}

// BusConfig wires a Feetech servo bench rig in place of the robot's ports.
// Servo positions stand in for potentiometers and encoders; a second
// hand-moved arm on Leader.Port stands in for the joystick.
type BusConfig struct {
	Port     string         `yaml:"port"`
	BaudRate int            `yaml:"baud_rate,omitempty"`
	Motors   []ServoChannel `yaml:"motors,omitempty"`
	Analog   []ServoChannel `yaml:"analog,omitempty"`
	Encoders []ServoChannel `yaml:"encoders,omitempty"`
	Limits   []ServoLimit   `yaml:"limits,omitempty"`
	Leader   LeaderConfig   `yaml:"leader,omitempty"`
}

// ServoChannel maps a HAL channel to a servo. For motors, Gain is the number
// of position steps moved per unit of power on each write.
type ServoChannel struct {
	Channel int     `yaml:"channel"`
	ServoID int     `yaml:"servo_id"`
	Gain    float64 `yaml:"gain,omitempty"`
}

// ServoLimit emulates an active-low limit switch: the channel reads low while
// the servo is outside [Min, Max].
type ServoLimit struct {
	Channel int `yaml:"channel"`
	ServoID int `yaml:"servo_id"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// LeaderConfig maps a passive servo arm onto joystick axes and buttons.
type LeaderConfig struct {
	Port    string         `yaml:"port,omitempty"`
	Axes    []LeaderAxis   `yaml:"axes,omitempty"`
	Buttons []LeaderButton `yaml:"buttons,omitempty"`
}

// LeaderAxis maps one leader servo to a joystick axis.
type LeaderAxis struct {
	Axis        int             `yaml:"axis"`
	Calibration AxisCalibration `yaml:"calibration"`
}

// LeaderButton maps one leader servo to a trigger group: the up button is
// pressed at or above Up, the down button at or below Down.
type LeaderButton struct {
	Group   int `yaml:"group"`
	ServoID int `yaml:"servo_id"`
	Up      int `yaml:"up"`
	Down    int `yaml:"down"`
}

// AxisCalibration holds the recorded range of one leader servo.
type AxisCalibration struct {
	ID        int `yaml:"id"`
	DriveMode int `yaml:"drive_mode"`
	RangeMin  int `yaml:"range_min"`
	RangeMax  int `yaml:"range_max"`
}

// Normalize converts a raw servo position to a joystick value in [-127, 127].
// DriveMode 1 reverses the axis.
func (c AxisCalibration) Normalize(raw int) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	v := (float64(raw-c.RangeMin)/rangeSize)*254 - 127
	if c.DriveMode == 1 {
		v = -v
	}
	switch {
	case v > 127:
		v = 127
	case v < -127:
		v = -127
	}
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// AxisIDs returns the servo IDs of all leader axes in configuration order.
func (l LeaderConfig) AxisIDs() []int {
	ids := make([]int, 0, len(l.Axes))
	for _, a := range l.Axes {
		ids = append(ids, a.Calibration.ID)
	}
	return ids
}

// ServoIDs returns every leader servo ID, axes first, without duplicates.
func (l LeaderConfig) ServoIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, id := range l.AxisIDs() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, b := range l.Buttons {
		if !seen[b.ServoID] {
			seen[b.ServoID] = true
			ids = append(ids, b.ServoID)
		}
	}
	return ids
}

// ByAxis returns the calibration for a joystick axis.
func (l LeaderConfig) ByAxis(axis int) (AxisCalibration, bool) {
	for _, a := range l.Axes {
		if a.Axis == axis {
			return a.Calibration, true
		}
	}
	return AxisCalibration{}, false
}
