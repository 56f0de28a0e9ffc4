package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"vexbot.yaml" description:"Robot configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Auto        AutoCommand        `command:"auto" alias:"autonomous" description:"Run the autonomous routine"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Start operator control"`
	Setup       SetupCommand       `command:"setup" description:"Pick a robot and backend and write the configuration"`
	Ports       PortsCommand       `command:"ports" description:"List serial ports and the servos on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "vexbot - VEX robot autonomous and operator control"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func newLogger(w io.Writer) log.Logger {
	return log.New(opts.LogLevel, w)
}

// loadConfig reads the configuration file, falling back to the default robot
// when there is none.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("No %s found, using the default robot. Run 'vexbot setup' to change.", opts.Config)))
		cfg = robot.Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}
