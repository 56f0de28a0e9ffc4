package competition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gwillem/vexbot/pkg/hal/sim"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/motion"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/routine"
	"github.com/gwillem/vexbot/pkg/sensor"
)

func validated(t *testing.T, cfg *robot.Config) *robot.Config {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	return cfg
}

func TestAutonomous_RoutineThenTelemetry(t *testing.T) {
	cfg := validated(t, robot.TossUp())
	h := Simulate(cfg)
	r := New(h, cfg, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks int
	r.OnTick(func(motion.Tick) { ticks++ })
	var readings []sensor.Measurement
	var firstAt time.Duration
	r.OnTelemetry(func(m sensor.Measurement) {
		if len(readings) == 0 {
			firstAt = h.Elapsed()
		}
		readings = append(readings, m)
		if len(readings) == 3 {
			cancel()
		}
	})

	res, err := r.Autonomous(ctx)
	if res != motion.Completed || err != nil {
		t.Fatalf("Autonomous() = %v, %v, want completed", res, err)
	}
	if ticks == 0 {
		t.Error("no executor ticks observed")
	}
	if len(readings) != 3 {
		t.Fatalf("got %d telemetry readings, want 3", len(readings))
	}
	if readings[0].Value != 0 {
		t.Errorf("first telemetry reading = %d, want 0 after reset", readings[0].Value)
	}
	if got := h.Elapsed() - firstAt; got != 2*cfg.Control.TelemetryInterval {
		t.Errorf("telemetry spacing: %v for 3 readings, want %v", got, 2*cfg.Control.TelemetryInterval)
	}
}

func TestAutonomous_FailureReturnsImmediately(t *testing.T) {
	cfg := validated(t, robot.TossUp())
	h := sim.New()
	h.FailEncoder(0)
	r := New(h, cfg, log.Discard())

	var telemetry bool
	r.OnTelemetry(func(sensor.Measurement) { telemetry = true })

	res, err := r.Autonomous(context.Background())
	if res != motion.Aborted || !errors.Is(err, sensor.ErrSensorFault) {
		t.Fatalf("Autonomous() = %v, %v, want aborted with ErrSensorFault", res, err)
	}
	if telemetry {
		t.Error("telemetry ran after a failed routine")
	}
}

func TestAutonomous_UnknownRoutine(t *testing.T) {
	cfg := validated(t, robot.TossUp())
	cfg.Routine = "skills"
	r := New(sim.New(), cfg, log.Discard())

	if _, err := r.Autonomous(context.Background()); !errors.Is(err, routine.ErrUnknownRoutine) {
		t.Errorf("Autonomous() = %v, want ErrUnknownRoutine", err)
	}
}

func TestOperatorControl_RunsUntilCancelled(t *testing.T) {
	cfg := validated(t, robot.TossUp())
	h := sim.New()
	r := New(h, cfg, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	h.AfterDelay(func(now time.Duration) {
		if now >= 200*time.Millisecond {
			cancel()
		}
	})

	if err := r.OperatorControl(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("OperatorControl() = %v, want context.Canceled", err)
	}
}

func TestOpenHAL(t *testing.T) {
	cfg := validated(t, robot.LineBot())

	h, closeFn, err := OpenHAL(context.Background(), cfg, log.Discard())
	if err != nil {
		t.Fatalf("OpenHAL(sim) = %v", err)
	}
	defer closeFn()
	if v, err := h.AnalogRead(4); err != nil || v != simConcrete {
		t.Errorf("line sensor = %d, %v, want %d", v, err, simConcrete)
	}

	cfg.Backend.Kind = "cortex"
	if _, _, err := OpenHAL(context.Background(), cfg, log.Discard()); !errors.Is(err, robot.ErrConfig) {
		t.Errorf("OpenHAL(cortex) = %v, want ErrConfig", err)
	}
}

func TestSimulate_ArmFollowsMotor(t *testing.T) {
	cfg := validated(t, robot.LineBot())
	h := Simulate(cfg)

	exec := motion.NewExecutor(h, cfg, log.Discard())
	if res, err := exec.Run(context.Background(), motion.ArmTo(1500, 127, 25)); res != motion.Completed {
		t.Fatalf("Run() = %v, %v, want completed", res, err)
	}
}
