package motion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gwillem/vexbot/pkg/hal/sim"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/sensor"
)

func setup(t *testing.T, cfg *robot.Config) (*Executor, *sim.HAL) {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	h := sim.New()
	return NewExecutor(h, cfg, log.Discard()), h
}

// tail returns the last n motor events.
func tail(events []sim.Event, n int) []sim.Event {
	if len(events) < n {
		return events
	}
	return events[len(events)-n:]
}

func assertAllStopped(t *testing.T, h *sim.HAL, cfg *robot.Config) {
	t.Helper()
	events := tail(h.MotorEvents(), len(cfg.Motors))
	if len(events) != len(cfg.Motors) {
		t.Fatalf("got %d motor events, want at least %d", len(events), len(cfg.Motors))
	}
	for i, e := range events {
		if e.Kind != sim.MotorStop || e.Channel != cfg.Motors[i].Channel {
			t.Errorf("final motor event %d = %v, want motorStop(%d)", i, e, cfg.Motors[i].Channel)
		}
	}
}

func TestRun_EncoderDriveCompletesWithBrake(t *testing.T) {
	cfg := robot.TossUp()
	e, h := setup(t, cfg)
	h.ScriptEncoder(0, -100, -300, -500, -700, -900, -950)

	var seen []int
	e.OnTick(func(tk Tick) { seen = append(seen, tk.Snapshot.Value(robot.DriveEncoder)) })

	res, err := e.Run(context.Background(), DriveDistance{Target: -920, Speed: 50, Direction: Forward})
	if err != nil || res != Completed {
		t.Fatalf("Run() = %v, %v, want completed", res, err)
	}

	want := []int{-100, -300, -500, -700, -900, -950}
	if len(seen) != len(want) {
		t.Fatalf("ran %d ticks (%v), want %d", len(seen), seen, len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("tick %d read %d, want %d", i, seen[i], want[i])
		}
	}

	// Last motor events: brake on the four drive motors, then stop on all ten.
	events := h.MotorEvents()
	stops := len(cfg.Motors)
	brake := events[len(events)-stops-4 : len(events)-stops]
	wantBrake := map[int]int{6: -50, 7: -50, 8: 50, 9: 50}
	for _, ev := range brake {
		if ev.Kind != sim.MotorSet || wantBrake[ev.Channel] != ev.Power {
			t.Errorf("brake event %v, want counter-torque %d on channel %d", ev, wantBrake[ev.Channel], ev.Channel)
		}
	}
	assertAllStopped(t, h, cfg)

	// The brake is held for the brake duration before the stop.
	all := h.Events()
	var sawBrakeDelay bool
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == sim.Delay {
			sawBrakeDelay = all[i].Dur == 20*time.Millisecond && all[i-1].Kind == sim.MotorSet
			break
		}
	}
	if !sawBrakeDelay {
		t.Error("brake was not held for 20ms before stopping")
	}
}

func TestRun_ResetsEncoderFirst(t *testing.T) {
	cfg := robot.TossUp()
	e, h := setup(t, cfg)
	h.ScriptEncoder(0, 700)

	if res, _ := e.Run(context.Background(), DriveDistance{Target: 620, Speed: 50, Direction: Backward}); res != Completed {
		t.Fatalf("Run() = %v, want completed", res)
	}
	if first := h.Events()[0]; first.Kind != sim.IMEReset || first.Channel != 0 {
		t.Errorf("first event = %v, want imeReset(0)", first)
	}
}

func TestRun_TimesOutWithoutBrake(t *testing.T) {
	cfg := robot.TossUp()
	cfg.Control.Timeout = 250 * time.Millisecond
	e, h := setup(t, cfg)
	h.ScriptEncoder(0, 0) // disconnected encoder never moves

	res, err := e.Run(context.Background(), DriveDistance{Target: -920, Speed: 50, Direction: Forward})
	if res != TimedOut {
		t.Fatalf("Run() = %v, want timed out", res)
	}
	if !errors.Is(err, ErrTimedOut) {
		t.Errorf("Run() error = %v, want ErrTimedOut", err)
	}
	if h.Elapsed() > 250*time.Millisecond {
		t.Errorf("returned after %v, want at or before 250ms", h.Elapsed())
	}
	assertAllStopped(t, h, cfg)

	for _, ev := range h.MotorEvents() {
		if ev.Kind == sim.MotorSet && ev.Channel == 6 && ev.Power < 0 {
			t.Fatalf("timeout issued a brake command: %v", ev)
		}
	}
}

func TestRun_PrimitiveTimeoutOverride(t *testing.T) {
	cfg := robot.TossUp()
	cfg.Control.Timeout = 10 * time.Second
	e, h := setup(t, cfg)

	p := WithTimeout(DriveDistance{Target: -920, Speed: 50, Direction: Forward}, 100*time.Millisecond)
	if res, _ := e.Run(context.Background(), p); res != TimedOut {
		t.Fatalf("Run() = %v, want timed out", res)
	}
	if h.Elapsed() > 100*time.Millisecond {
		t.Errorf("override ignored: ran %v", h.Elapsed())
	}
}

func TestRun_SensorFaultStopsAll(t *testing.T) {
	cfg := robot.TossUp()
	e, h := setup(t, cfg)
	h.FailAnalog(1)

	res, err := e.Run(context.Background(), ArmTo(1000, 127, 25))
	if res != Aborted {
		t.Fatalf("Run() = %v, want aborted", res)
	}
	if !errors.Is(err, sensor.ErrSensorFault) {
		t.Errorf("Run() error = %v, want ErrSensorFault", err)
	}
	assertAllStopped(t, h, cfg)
	for _, ev := range h.MotorEvents() {
		if ev.Kind == sim.MotorSet {
			t.Fatalf("motor commanded without a valid reading: %v", ev)
		}
	}
}

func TestRun_CancelledAborts(t *testing.T) {
	cfg := robot.TossUp()
	e, h := setup(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	h.AfterDelay(func(now time.Duration) {
		if now >= 100*time.Millisecond {
			cancel()
		}
	})

	res, err := e.Run(ctx, DriveDistance{Target: -920, Speed: 50, Direction: Forward})
	if res != Aborted || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, %v, want aborted with context.Canceled", res, err)
	}
	assertAllStopped(t, h, cfg)
}

func TestRun_ArmSignMatchesError(t *testing.T) {
	cfg := robot.LineBot()
	e, h := setup(t, cfg)
	// Arm motor on channel 5 raises the pot 2 units/s per unit power.
	h.LinkAnalog(1, 5, 1400, 2)

	e.OnTick(func(tk Tick) {
		pot := tk.Snapshot.Value(robot.ArmPot)
		if got := tk.Command[robot.Arm]; sign(got) != sign(600-pot) {
			t.Errorf("tick %d: pot %d commanded %d", tk.N, pot, got)
		}
	})

	res, err := e.Run(context.Background(), ArmTo(600, 127, 25))
	if res != Completed {
		t.Fatalf("Run() = %v, %v, want completed", res, err)
	}
	if pot, _ := h.AnalogRead(1); pot > 625+5 {
		t.Errorf("arm stopped at %d, want within tolerance of 600", pot)
	}
}

func TestRun_TimedTurnUsesOwnBudget(t *testing.T) {
	cfg := robot.LineBot()
	cfg.Control.Timeout = 100 * time.Millisecond
	e, h := setup(t, cfg)

	res, err := e.Run(context.Background(), TimedTurn{Power: 80, Turn: Clockwise, For: 500 * time.Millisecond})
	if res != Completed {
		t.Fatalf("Run() = %v, %v, want completed", res, err)
	}
	if h.Elapsed() < 500*time.Millisecond {
		t.Errorf("turn ended after %v, want at least 500ms", h.Elapsed())
	}
}

func TestRun_FollowLineNeverEndsOnItsOwn(t *testing.T) {
	cfg := robot.LineBot()
	cfg.Control.Timeout = 200 * time.Millisecond
	e, h := setup(t, cfg)
	h.SetAnalog(3, 170)

	res, _ := e.Run(context.Background(), FollowLine{Threshold: 300, Center: 127, Outer: 80, Inner: 50, Straight: 60})
	if res != TimedOut {
		t.Errorf("Run() = %v, want timed out", res)
	}
}
