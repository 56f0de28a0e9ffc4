// Package routine runs ordered lists of motion primitives and holds the
// robots' autonomous routines.
package routine

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/motion"
)

// Runner runs a single primitive. *motion.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, p motion.Primitive) (motion.Result, error)
}

// Sequencer runs primitives one after another.
type Sequencer struct {
	runner Runner
	driver *motion.Driver
	clock  hal.Clock
	settle time.Duration
	log    log.Logger
}

// NewSequencer creates a sequencer that stops all motors and waits settle
// between primitives.
func NewSequencer(r Runner, d *motion.Driver, clock hal.Clock, settle time.Duration, logger log.Logger) *Sequencer {
	return &Sequencer{
		runner: r,
		driver: d,
		clock:  clock,
		settle: settle,
		log:    logger,
	}
}

// Run executes steps in order. The first result that is not Completed ends
// the routine and is returned with its error; later steps never start.
func (s *Sequencer) Run(ctx context.Context, steps []motion.Primitive) (motion.Result, error) {
	for i, p := range steps {
		logger := s.log.WithField("step", fmt.Sprintf("%d/%d", i+1, len(steps)))
		logger.Infof("running %s", p.Name())

		res, err := s.runner.Run(ctx, p)
		if res != motion.Completed {
			s.driver.StopAll()
			logger.Errorf("routine halted: %s %s: %v", p.Name(), res, err)
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}

		if i == len(steps)-1 {
			break
		}
		s.driver.StopAll()
		if err := s.clock.Delay(ctx, s.settle); err != nil {
			s.driver.StopAll()
			logger.Warnf("routine aborted while settling: %v", err)
			return motion.Aborted, fmt.Errorf("step %d settle: %w", i+1, err)
		}
	}
	return motion.Completed, nil
}
