package robot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "vexbot.yaml"

// ErrConfig is wrapped by every validation failure.
var ErrConfig = errors.New("invalid robot config")

// SensorKind is how a sensor is read from the HAL.
type SensorKind string

const (
	Analog  SensorKind = "analog"
	Digital SensorKind = "digital"
	Encoder SensorKind = "encoder"
)

// Config is the hardware configuration record. It is built once at startup
// and only read afterwards.
type Config struct {
	Name     string         `yaml:"name"`
	Routine  string         `yaml:"routine"`
	Motors   []MotorConfig  `yaml:"motors"`
	Sensors  []SensorConfig `yaml:"sensors"`
	LEDs     []LEDConfig    `yaml:"leds,omitempty"`
	Joystick JoystickConfig `yaml:"joystick"`
	Control  ControlConfig  `yaml:"control"`
	Backend  BackendConfig  `yaml:"backend"`
}

// MotorConfig maps one motor port to a role. Sign is +1 when positive power
// moves the mechanism in the role's positive direction, -1 otherwise.
type MotorConfig struct {
	Name    string `yaml:"name"`
	Channel int    `yaml:"channel"`
	Role    Role   `yaml:"role"`
	Sign    int    `yaml:"sign"`
}

// SensorConfig maps one sensor port to a role. Invert flips encoder counts,
// and for digital sensors means the switch reads low when pressed.
type SensorConfig struct {
	Name    string     `yaml:"name"`
	Channel int        `yaml:"channel"`
	Role    Role       `yaml:"role"`
	Kind    SensorKind `yaml:"kind"`
	Invert  bool       `yaml:"invert,omitempty"`
}

// LEDConfig maps an indicator output to a role.
type LEDConfig struct {
	Channel int  `yaml:"channel"`
	Role    Role `yaml:"role"`
}

// JoystickConfig holds the tank-drive stick and trigger layout.
type JoystickConfig struct {
	Port        int `yaml:"port"`
	LeftAxis    int `yaml:"left_axis"`
	RightAxis   int `yaml:"right_axis"`
	ArmGroup    int `yaml:"arm_group"`
	IntakeGroup int `yaml:"intake_group"`
}

// ControlConfig holds loop timing and thresholds.
type ControlConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	Timeout           time.Duration `yaml:"timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	BrakePower        int           `yaml:"brake_power"`
	BrakeDuration     time.Duration `yaml:"brake_duration"`
	TeleopTick        time.Duration `yaml:"teleop_tick"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	LineThreshold     int           `yaml:"line_threshold"`
	SetpointTolerance int           `yaml:"setpoint_tolerance"`
	TicksPerRotation  float64       `yaml:"ticks_per_rotation"`
}

// DefaultControl returns the timings used by the competition robots.
func DefaultControl() ControlConfig {
	return ControlConfig{
		PollInterval:      20 * time.Millisecond,
		Timeout:           5 * time.Second,
		SettleDelay:       400 * time.Millisecond,
		BrakePower:        50,
		BrakeDuration:     20 * time.Millisecond,
		TeleopTick:        20 * time.Millisecond,
		TelemetryInterval: 50 * time.Millisecond,
		LineThreshold:     300,
		SetpointTolerance: 25,
		TicksPerRotation:  627.2,
	}
}

// withDefaults fills zero control values.
func (c ControlConfig) withDefaults() ControlConfig {
	d := DefaultControl()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.BrakePower <= 0 {
		c.BrakePower = d.BrakePower
	}
	if c.BrakeDuration <= 0 {
		c.BrakeDuration = d.BrakeDuration
	}
	if c.TeleopTick <= 0 {
		c.TeleopTick = d.TeleopTick
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = d.TelemetryInterval
	}
	if c.LineThreshold <= 0 {
		c.LineThreshold = d.LineThreshold
	}
	if c.SetpointTolerance <= 0 {
		c.SetpointTolerance = d.SetpointTolerance
	}
	if c.TicksPerRotation <= 0 {
		c.TicksPerRotation = d.TicksPerRotation
	}
	return c
}

// MotorsFor returns the motors wired to a role.
func (c *Config) MotorsFor(role Role) []MotorConfig {
	var out []MotorConfig
	for _, m := range c.Motors {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// Sensor returns the sensor wired to a role.
func (c *Config) Sensor(role Role) (SensorConfig, bool) {
	for _, s := range c.Sensors {
		if s.Role == role {
			return s, true
		}
	}
	return SensorConfig{}, false
}

// LED returns the indicator wired to a role.
func (c *Config) LED(role Role) (LEDConfig, bool) {
	for _, l := range c.LEDs {
		if l.Role == role {
			return l, true
		}
	}
	return LEDConfig{}, false
}

// Validate checks channel ranges, signs and duplicate ports, and fills zero
// control values with defaults.
func (c *Config) Validate() error {
	if len(c.MotorsFor(DriveLeft)) == 0 || len(c.MotorsFor(DriveRight)) == 0 {
		return fmt.Errorf("%w: both drive sides need at least one motor", ErrConfig)
	}

	used := make(map[int]string)
	for _, m := range c.Motors {
		if m.Channel < 1 || m.Channel > 10 {
			return fmt.Errorf("%w: motor %q channel %d out of range 1-10", ErrConfig, m.Name, m.Channel)
		}
		if m.Sign != 1 && m.Sign != -1 {
			return fmt.Errorf("%w: motor %q sign %d must be 1 or -1", ErrConfig, m.Name, m.Sign)
		}
		if other, ok := used[m.Channel]; ok {
			return fmt.Errorf("%w: motors %q and %q share channel %d", ErrConfig, other, m.Name, m.Channel)
		}
		used[m.Channel] = m.Name
	}

	roles := make(map[Role]bool)
	for _, s := range c.Sensors {
		if roles[s.Role] {
			return fmt.Errorf("%w: sensor role %q assigned twice", ErrConfig, s.Role)
		}
		roles[s.Role] = true

		switch s.Kind {
		case Analog:
			if s.Channel < 1 || s.Channel > 8 {
				return fmt.Errorf("%w: analog sensor %q channel %d out of range 1-8", ErrConfig, s.Name, s.Channel)
			}
		case Digital:
			if s.Channel < 1 || s.Channel > 12 {
				return fmt.Errorf("%w: digital sensor %q channel %d out of range 1-12", ErrConfig, s.Name, s.Channel)
			}
		case Encoder:
			if s.Channel < 0 || s.Channel > 7 {
				return fmt.Errorf("%w: encoder %q channel %d out of range 0-7", ErrConfig, s.Name, s.Channel)
			}
		default:
			return fmt.Errorf("%w: sensor %q has unknown kind %q", ErrConfig, s.Name, s.Kind)
		}
	}

	c.Control = c.Control.withDefaults()
	if c.Control.BrakePower > 127 {
		return fmt.Errorf("%w: brake power %d above 127", ErrConfig, c.Control.BrakePower)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads and validates configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
