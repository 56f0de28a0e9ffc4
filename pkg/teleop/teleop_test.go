package teleop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/hal/sim"
	"github.com/gwillem/vexbot/pkg/log"
	"github.com/gwillem/vexbot/pkg/robot"
)

func TestMap_Arm(t *testing.T) {
	tests := []struct {
		name  string
		in    State
		arm   int
		limit robot.Role
	}{
		{"idle", State{}, 0, ""},
		{"up", State{ArmUp: true}, 127, robot.LimitTop},
		{"down", State{ArmDown: true}, -127, robot.LimitBottom},
		{"up wins over down", State{ArmUp: true, ArmDown: true}, 127, robot.LimitTop},
		{"up blocked at top", State{ArmUp: true, TopPressed: true}, 0, ""},
		{"up blocked falls through to down", State{ArmUp: true, ArmDown: true, TopPressed: true}, -127, robot.LimitBottom},
		{"down blocked at bottom", State{ArmDown: true, BottomPressed: true}, 0, ""},
		{"down allowed at top", State{ArmDown: true, TopPressed: true}, -127, robot.LimitBottom},
	}

	for _, tt := range tests {
		f := Map(tt.in)
		arm, moving := f.Command[robot.Arm]
		if arm != tt.arm || moving != (tt.arm != 0) || f.Limit != tt.limit {
			t.Errorf("%s: Map() arm = %d (set %t) limit %q, want %d limit %q", tt.name, arm, moving, f.Limit, tt.arm, tt.limit)
		}
	}
}

func TestMap_DriveAndIntake(t *testing.T) {
	f := Map(State{Left: 100, Right: -40, IntakeIn: true, IntakeOut: true})
	if f.Command[robot.DriveLeft] != 100 || f.Command[robot.DriveRight] != -40 {
		t.Errorf("drive = %v, want tank 100/-40", f.Command)
	}
	if f.Command[robot.Intake] != 127 {
		t.Errorf("intake = %d, want 127 (in wins)", f.Command[robot.Intake])
	}

	f = Map(State{IntakeOut: true, TopPressed: true})
	if f.Command[robot.Intake] != -127 {
		t.Errorf("intake out = %d, want -127 regardless of limits", f.Command[robot.Intake])
	}
	if _, ok := Map(State{}).Command[robot.Intake]; ok {
		t.Error("idle intake should be left out so it is stopped")
	}
}

func TestLEDs(t *testing.T) {
	tests := []struct {
		top, bottom bool
	}{
		{false, false},
		{true, false},
		{false, true},
		{true, true},
	}
	for _, tt := range tests {
		got := LEDs(State{TopPressed: tt.top, BottomPressed: tt.bottom})
		if got[robot.LEDTop] != !tt.top || got[robot.LEDBottom] != !tt.bottom {
			t.Errorf("LEDs(top=%t, bottom=%t) = %v", tt.top, tt.bottom, got)
		}
	}
}

func newController(t *testing.T, cfg *robot.Config) (*Controller, *sim.HAL) {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	h := sim.New()
	return NewController(h, cfg, log.Discard()), h
}

func TestStep_TankDrive(t *testing.T) {
	cfg := robot.TossUp()
	c, h := newController(t, cfg)
	h.SetAxis(1, 3, 90)
	h.SetAxis(1, 2, 60)

	st := c.step()
	if st.Error != nil {
		t.Fatalf("step() error = %v", st.Error)
	}
	want := map[int]int{6: 90, 7: 90, 8: -60, 9: -60}
	for ch, p := range want {
		if got := h.Motor(ch); got != p {
			t.Errorf("motor %d = %d, want %d", ch, got, p)
		}
	}
	if st.Input.ArmPot != 2048 {
		t.Errorf("ArmPot = %d, want idle 2048", st.Input.ArmPot)
	}
}

func TestStep_ArmStopsWhenLimitTripsMidCommand(t *testing.T) {
	cfg := robot.TossUp()
	c, h := newController(t, cfg)
	h.SetButton(1, 6, hal.ButtonUp, true)
	// Released when sampled, pressed on the recheck right after the command.
	h.ScriptDigital(3, true, false)

	st := c.step()
	if st.Tripped != robot.LimitTop {
		t.Fatalf("Tripped = %q, want %q", st.Tripped, robot.LimitTop)
	}

	arm := map[int]bool{2: true, 3: true, 4: true, 5: true}
	var set, stopped int
	for _, ev := range h.MotorEvents() {
		if !arm[ev.Channel] {
			continue
		}
		switch ev.Kind {
		case sim.MotorSet:
			if stopped > 0 {
				t.Errorf("arm set after stop: %v", ev)
			}
			set++
		case sim.MotorStop:
			stopped++
		}
	}
	if set != 4 || stopped != 4 {
		t.Errorf("arm events: %d sets, %d stops, want 4 of each", set, stopped)
	}
	if level, ok := h.Output(6); !ok || level {
		t.Errorf("top LED = %t (written %t), want low", level, ok)
	}

	// Next tick the limit is still pressed, so up is not commanded at all.
	h.ResetEvents()
	st = c.step()
	if st.Tripped != "" {
		t.Errorf("second tick Tripped = %q, want none", st.Tripped)
	}
	for _, ev := range h.MotorEvents() {
		if arm[ev.Channel] && ev.Kind == sim.MotorSet {
			t.Errorf("arm driven into pressed limit: %v", ev)
		}
	}
}

func TestStep_LimitEdgesLogged(t *testing.T) {
	c, h := newController(t, robot.TossUp())
	h.ScriptDigital(2, true, false, false, true)

	for range 4 {
		c.step()
	}

	var msgs []string
	for len(c.logCh) > 0 {
		msgs = append(msgs, <-c.logCh)
	}
	joined := strings.Join(msgs, "\n")
	if strings.Count(joined, "reached limit_bottom") != 1 || strings.Count(joined, "left limit_bottom") != 1 {
		t.Errorf("edge logs = %q, want one press and one release", msgs)
	}
}

func TestStep_InputFaultStopsAll(t *testing.T) {
	cfg := robot.TossUp()
	c, h := newController(t, cfg)
	h.SetAxis(1, 3, 90)
	h.FailDigital(3)

	st := c.step()
	if !errors.Is(st.Error, hal.ErrFault) {
		t.Fatalf("step() error = %v, want hal.ErrFault", st.Error)
	}
	for _, ev := range h.MotorEvents() {
		if ev.Kind == sim.MotorSet {
			t.Errorf("motor commanded from bad input: %v", ev)
		}
	}
}

func TestStep_NoLimitsWired(t *testing.T) {
	c, h := newController(t, robot.LineBot())
	h.SetButton(1, 6, hal.ButtonUp, true)

	st := c.step()
	if st.Error != nil {
		t.Fatalf("step() error = %v", st.Error)
	}
	if got := h.Motor(5); got != 127 {
		t.Errorf("arm motor = %d, want 127", got)
	}
}

func TestStart_RunsUntilCancelled(t *testing.T) {
	cfg := robot.TossUp()
	c, h := newController(t, cfg)
	h.SetAxis(1, 3, 50)

	ctx, cancel := context.WithCancel(context.Background())
	h.AfterDelay(func(now time.Duration) {
		if now >= time.Second {
			cancel()
		}
	})

	if err := c.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() = %v, want context.Canceled", err)
	}
	if h.Elapsed() != time.Second {
		t.Errorf("ran for %v, want 1s", h.Elapsed())
	}
	if got := h.Motor(6); got != 0 {
		t.Errorf("motor 6 = %d after stop, want 0", got)
	}

	select {
	case st := <-c.States():
		if st.Input.Left != 50 {
			t.Errorf("last status Left = %d, want 50", st.Input.Left)
		}
	default:
		t.Error("no status published")
	}
}
