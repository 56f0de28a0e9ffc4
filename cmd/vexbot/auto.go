package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gwillem/vexbot/pkg/competition"
	"github.com/gwillem/vexbot/pkg/motion"
)

type AutoCommand struct {
	Routine string        `short:"r" long:"routine" description:"Routine to run instead of the configured one"`
	Period  time.Duration `long:"period" default:"15s" description:"Length of the autonomous period, 0 to run until interrupted"`
	Poll    time.Duration `long:"poll" description:"Override the control loop poll interval"`
	Timeout time.Duration `long:"timeout" description:"Override the per-primitive timeout"`
}

func (c *AutoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Routine != "" {
		cfg.Routine = c.Routine
	}
	if c.Poll > 0 {
		cfg.Control.PollInterval = c.Poll
	}
	if c.Timeout > 0 {
		cfg.Control.Timeout = c.Timeout
	}

	logger := newLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if c.Period > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Period)
		defer cancel()
	}

	h, closeHAL, err := competition.OpenHAL(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend.Kind, err)
	}
	defer closeHAL()

	fmt.Println(headerStyle.Render("vexbot autonomous") + dimStyle.Render(fmt.Sprintf("  %s / %s on %s", cfg.Name, cfg.Routine, backendName(cfg.Backend.Kind))))

	r := competition.New(h, cfg, logger)
	r.OnTick(func(tk motion.Tick) {
		logger.WithField("primitive", tk.Primitive).Debugf("tick %d %v %v", tk.N, tk.Snapshot, tk.Command)
	})

	start := time.Now()
	res, err := r.Autonomous(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)
	if res != motion.Completed {
		return fmt.Errorf("routine %s after %v: %w", res, elapsed, err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Routine completed, autonomous ended after %v", elapsed)))
	return err
}

func backendName(kind string) string {
	if kind == "" {
		return "sim"
	}
	return kind
}
