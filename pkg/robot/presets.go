package robot

import "sort"

var presets = map[string]func() *Config{
	"tossup":  TossUp,
	"linebot": LineBot,
}

// Preset returns a fresh copy of a named wiring preset.
func Preset(name string) (*Config, bool) {
	fn, ok := presets[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// PresetNames lists the available presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the toss-up robot.
func Default() *Config {
	return TossUp()
}

// TossUp is the six-motor drive, four-motor arm robot with a two-motor intake.
// Left drive and the bottom-right arm motor run forward/up on positive power;
// the rest are mounted mirrored.
func TossUp() *Config {
	return &Config{
		Name:    "tossup",
		Routine: "tossup",
		Motors: []MotorConfig{
			{Name: "intake_left", Channel: 1, Role: Intake, Sign: 1},
			{Name: "arm_top_left", Channel: 2, Role: Arm, Sign: -1},
			{Name: "arm_top_right", Channel: 3, Role: Arm, Sign: -1},
			{Name: "arm_bottom_left", Channel: 4, Role: Arm, Sign: -1},
			{Name: "arm_bottom_right", Channel: 5, Role: Arm, Sign: 1},
			{Name: "drive_front_left", Channel: 6, Role: DriveLeft, Sign: 1},
			{Name: "drive_middle_left", Channel: 7, Role: DriveLeft, Sign: 1},
			{Name: "drive_middle_right", Channel: 8, Role: DriveRight, Sign: -1},
			{Name: "drive_front_right", Channel: 9, Role: DriveRight, Sign: -1},
			{Name: "intake_right", Channel: 10, Role: Intake, Sign: -1},
		},
		Sensors: []SensorConfig{
			{Name: "arm_pot", Channel: 1, Role: ArmPot, Kind: Analog},
			{Name: "limit_bottom", Channel: 2, Role: LimitBottom, Kind: Digital, Invert: true},
			{Name: "limit_top", Channel: 3, Role: LimitTop, Kind: Digital, Invert: true},
			{Name: "drive_ime", Channel: 0, Role: DriveEncoder, Kind: Encoder},
		},
		LEDs: []LEDConfig{
			{Channel: 6, Role: LEDTop},
			{Channel: 8, Role: LEDBottom},
		},
		Joystick: JoystickConfig{
			Port:        1,
			LeftAxis:    3,
			RightAxis:   2,
			ArmGroup:    6,
			IntakeGroup: 5,
		},
		Control: DefaultControl(),
		Backend: BackendConfig{Kind: BackendSim},
	}
}

// LineBot is the four-motor line follower with a single-motor arm and a
// three-sensor line array. Right drive runs forward on positive power.
func LineBot() *Config {
	return &Config{
		Name:    "linebot",
		Routine: "linecourse",
		Motors: []MotorConfig{
			{Name: "drive_rear_right", Channel: 1, Role: DriveRight, Sign: 1},
			{Name: "drive_front_right", Channel: 2, Role: DriveRight, Sign: 1},
			{Name: "arm", Channel: 5, Role: Arm, Sign: 1},
			{Name: "drive_front_left", Channel: 9, Role: DriveLeft, Sign: -1},
			{Name: "drive_rear_left", Channel: 10, Role: DriveLeft, Sign: -1},
		},
		Sensors: []SensorConfig{
			{Name: "arm_pot", Channel: 1, Role: ArmPot, Kind: Analog},
			{Name: "line_left", Channel: 2, Role: LineLeft, Kind: Analog},
			{Name: "line_center", Channel: 3, Role: LineCenter, Kind: Analog},
			{Name: "line_right", Channel: 4, Role: LineRight, Kind: Analog},
		},
		Joystick: JoystickConfig{
			Port:        1,
			LeftAxis:    3,
			RightAxis:   2,
			ArmGroup:    6,
			IntakeGroup: 5,
		},
		Control: DefaultControl(),
		Backend: BackendConfig{Kind: BackendSim},
	}
}
