package motion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/sensor"
)

// Result is the outcome of running a primitive or a routine.
type Result int

const (
	Completed Result = iota
	TimedOut
	Aborted
)

func (r Result) String() string {
	switch r {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// ErrTimedOut is returned with TimedOut.
var ErrTimedOut = errors.New("primitive timed out")

// Tick is what the executor did on one loop iteration.
type Tick struct {
	Primitive string
	N         int
	Elapsed   time.Duration
	Snapshot  sensor.Snapshot
	Command   Command
}

// Executor runs one primitive at a time to completion.
type Executor struct {
	clock  hal.Clock
	reader *sensor.Reader
	driver *Driver
	log    log.Logger

	poll          time.Duration
	timeout       time.Duration
	brakePower    int
	brakeDuration time.Duration

	onTick func(Tick)
}

// NewExecutor creates an executor using the wiring and timings in cfg.
func NewExecutor(h hal.HAL, cfg *robot.Config, logger log.Logger) *Executor {
	return &Executor{
		clock:         h,
		reader:        sensor.NewReader(h, cfg),
		driver:        NewDriver(h, cfg),
		log:           logger,
		poll:          cfg.Control.PollInterval,
		timeout:       cfg.Control.Timeout,
		brakePower:    cfg.Control.BrakePower,
		brakeDuration: cfg.Control.BrakeDuration,
	}
}

// OnTick registers fn to observe every tick. It runs on the control loop
// and must not block.
func (e *Executor) OnTick(fn func(Tick)) {
	e.onTick = fn
}

// Driver returns the motor driver the executor issues through.
func (e *Executor) Driver() *Driver {
	return e.driver
}

// Run executes p until it is done, times out, fails to read a sensor or ctx
// is cancelled. Every exit stops all motors; only completion brakes first.
// A non-Completed result always comes with a non-nil error.
func (e *Executor) Run(ctx context.Context, p Primitive) (Result, error) {
	name := p.Name()
	logger := e.log.WithField("primitive", name)

	timeout := e.timeout
	if l, ok := p.(Limited); ok && l.Timeout() > 0 {
		timeout = l.Timeout()
	}

	if r, ok := p.(Resetter); ok {
		for _, role := range r.Resets() {
			if err := e.reader.ResetEncoder(role); err != nil {
				e.driver.StopAll()
				logger.Errorf("reset failed: %v", err)
				return Aborted, fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	logger.Debugf("start, timeout %v", timeout)
	start := e.clock.Now()
	var last Command

	for n := 1; ; n++ {
		wait := e.poll
		if remaining := timeout - e.clock.Now().Sub(start); remaining < wait {
			wait = max(remaining, 0)
		}
		if err := e.clock.Delay(ctx, wait); err != nil {
			e.driver.StopAll()
			logger.Warnf("aborted after %d ticks: %v", n-1, err)
			return Aborted, fmt.Errorf("%s: %w", name, err)
		}

		elapsed := e.clock.Now().Sub(start)
		if elapsed >= timeout {
			e.driver.StopAll()
			logger.Warnf("timed out after %v (%d ticks)", elapsed, n-1)
			return TimedOut, fmt.Errorf("%s: %w after %v", name, ErrTimedOut, elapsed)
		}

		snap, err := e.reader.ReadAll(p.Inputs()...)
		if err != nil {
			e.driver.StopAll()
			logger.Errorf("sensor read failed: %v", err)
			return Aborted, fmt.Errorf("%s: %w", name, err)
		}
		snap = snap.At(elapsed)

		cmd := p.Output(snap)
		e.driver.Issue(cmd)
		last = cmd

		if e.onTick != nil {
			e.onTick(Tick{Primitive: name, N: n, Elapsed: elapsed, Snapshot: snap, Command: cmd})
		}

		if p.Done(snap) {
			e.brake(ctx, last)
			e.driver.StopAll()
			logger.Infof("completed in %v (%d ticks)", elapsed, n)
			return Completed, nil
		}
	}
}

// brake briefly reverses every moving mechanism except the intake, at no
// more than the power it was running at.
func (e *Executor) brake(ctx context.Context, last Command) {
	b := Command{}
	for role, p := range last {
		if p == 0 || role == robot.Intake {
			continue
		}
		b[role] = -sign(p) * min(e.brakePower, abs(p))
	}
	if len(b) == 0 {
		return
	}
	e.driver.Issue(b)
	// Motors are stopped right after regardless of how the wait ends.
	_ = e.clock.Delay(ctx, e.brakeDuration)
}
