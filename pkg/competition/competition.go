// Package competition holds the two entry points the field control calls:
// Autonomous and OperatorControl.
package competition

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/motion"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/routine"
	"github.com/gwillem/vexbot/pkg/sensor"
	"github.com/gwillem/vexbot/pkg/teleop"
)

// Robot is one robot on one HAL.
type Robot struct {
	hal hal.HAL
	cfg *robot.Config
	log log.Logger

	onTick      func(motion.Tick)
	onTelemetry func(sensor.Measurement)
}

// New creates a robot. cfg must already be validated.
func New(h hal.HAL, cfg *robot.Config, logger log.Logger) *Robot {
	return &Robot{
		hal: h,
		cfg: cfg,
		log: logger.WithField("robot", cfg.Name),
	}
}

// OnTick registers fn to observe every executor tick during Autonomous.
func (r *Robot) OnTick(fn func(motion.Tick)) {
	r.onTick = fn
}

// OnTelemetry registers fn to receive the encoder readings logged after the
// routine finishes.
func (r *Robot) OnTelemetry(fn func(sensor.Measurement)) {
	r.onTelemetry = fn
}

// Autonomous runs the configured routine. When it completes, the drive
// encoder is reset and logged every telemetry interval until ctx is
// cancelled. A routine that fails returns straight away with its result.
func (r *Robot) Autonomous(ctx context.Context) (motion.Result, error) {
	steps, err := routine.Lookup(r.cfg.Routine, r.cfg)
	if err != nil {
		return motion.Aborted, err
	}

	logger := r.log.WithField("mode", "autonomous")
	exec := motion.NewExecutor(r.hal, r.cfg, logger)
	if r.onTick != nil {
		exec.OnTick(r.onTick)
	}
	seq := routine.NewSequencer(exec, exec.Driver(), r.hal, r.cfg.Control.SettleDelay, logger)

	logger.Infof("routine %s: %d steps", r.cfg.Routine, len(steps))
	res, err := seq.Run(ctx, steps)
	if res != motion.Completed {
		return res, err
	}
	logger.Infof("routine %s completed", r.cfg.Routine)

	if err := r.telemetry(ctx, logger); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return res, err
	}
	return res, nil
}

func (r *Robot) telemetry(ctx context.Context, logger log.Logger) error {
	if _, ok := r.cfg.Sensor(robot.DriveEncoder); !ok {
		return nil
	}
	reader := sensor.NewReader(r.hal, r.cfg)
	if err := reader.ResetEncoder(robot.DriveEncoder); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	for {
		m, err := reader.Read(robot.DriveEncoder)
		if err != nil {
			logger.Warnf("telemetry: %v", err)
		} else {
			logger.Infof("encoder %d", m.Value)
			if r.onTelemetry != nil {
				r.onTelemetry(m)
			}
		}
		if err := r.hal.Delay(ctx, r.cfg.Control.TelemetryInterval); err != nil {
			return err
		}
	}
}

// Controller returns a new operator control loop for this robot.
func (r *Robot) Controller() *teleop.Controller {
	return teleop.NewController(r.hal, r.cfg, r.log)
}

// OperatorControl runs operator control until ctx is cancelled.
func (r *Robot) OperatorControl(ctx context.Context) error {
	return r.Controller().Start(ctx)
}
