package motion

import (
	"testing"
	"time"

	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/sensor"
)

func ticks(v int) sensor.Snapshot {
	return sensor.NewSnapshot(sensor.Ticks(robot.DriveEncoder, v))
}

func TestReached(t *testing.T) {
	tests := []struct {
		count, target int
		want          bool
	}{
		{0, -920, false},
		{-919, -920, false},
		{-920, -920, true},
		{-950, -920, true},
		{0, 620, false},
		{619, 620, false},
		{620, 620, true},
		{700, 620, true},
		{0, 0, true},
		{15, 0, true},
	}

	for _, tt := range tests {
		if got := Reached(tt.count, tt.target); got != tt.want {
			t.Errorf("Reached(%d, %d) = %t, want %t", tt.count, tt.target, got, tt.want)
		}
	}
}

// Walks a monotonic encoder from zero toward and past each target and checks
// Done flips exactly at the crossing.
func TestDriveDistance_DoneAtCrossing(t *testing.T) {
	targets := []int{-1500, -920, -700, -640, -1, 1, 620, 640, 1500}
	steps := []int{1, 7, 50, 200, 333}

	for _, target := range targets {
		for _, step := range steps {
			p := DriveDistance{Target: target, Speed: 50, Direction: Forward}
			dir := 1
			if target < 0 {
				dir = -1
			}
			for count := 0; abs(count) <= abs(target)+2*step; count += dir * step {
				crossed := (dir < 0 && count <= target) || (dir > 0 && count >= target)
				if got := p.Done(ticks(count)); got != crossed {
					t.Fatalf("target %d step %d: Done(%d) = %t, want %t", target, step, count, got, crossed)
				}
			}
		}
	}
}

func TestDriveDistance_Output(t *testing.T) {
	tests := []struct {
		name string
		p    DriveDistance
		want Command
	}{
		{"forward", DriveDistance{Target: -920, Speed: 50, Direction: Forward}, Tank(50, 50)},
		{"backward", DriveDistance{Target: 620, Speed: 50, Direction: Backward}, Tank(-50, -50)},
		{"negative speed uses magnitude", DriveDistance{Target: 620, Speed: -50, Direction: Backward}, Tank(-50, -50)},
		{"with intake", DriveDistance{Target: -700, Speed: 50, Direction: Forward, IntakePower: 100},
			Command{robot.DriveLeft: 50, robot.DriveRight: 50, robot.Intake: 100}},
	}

	for _, tt := range tests {
		got := tt.p.Output(ticks(0))
		if got.String() != tt.want.String() {
			t.Errorf("%s: Output() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRotateInPlace_Output(t *testing.T) {
	cw := RotateInPlace{Target: -640, Speed: 50, Turn: Clockwise}
	if got := cw.Output(ticks(0)); got[robot.DriveLeft] != 50 || got[robot.DriveRight] != -50 {
		t.Errorf("clockwise Output() = %v, want left 50 right -50", got)
	}
	ccw := RotateInPlace{Target: 640, Speed: 50, Turn: CounterClockwise}
	if got := ccw.Output(ticks(0)); got[robot.DriveLeft] != -50 || got[robot.DriveRight] != 50 {
		t.Errorf("counter-clockwise Output() = %v, want left -50 right 50", got)
	}
	if cw.Done(ticks(-639)) || !cw.Done(ticks(-640)) {
		t.Errorf("clockwise Done() wrong around -640")
	}
}

func TestActuatorToSetpoint_SignFollowsError(t *testing.T) {
	p := ArmTo(1000, 127, 25)

	for pot := 0; pot <= 4095; pot += 5 {
		snap := sensor.NewSnapshot(sensor.Analog(robot.ArmPot, pot))
		if p.Done(snap) {
			continue
		}
		got := p.Output(snap)[robot.Arm]
		if sign(got) != sign(1000-pot) {
			t.Fatalf("Output() at pot %d = %d, sign does not match target - current", pot, got)
		}
		if abs(got) != 127 {
			t.Fatalf("Output() at pot %d = %d, want magnitude 127", pot, got)
		}
	}
}

func TestActuatorToSetpoint_Done(t *testing.T) {
	p := ArmTo(600, 127, 25)

	tests := []struct {
		pot  int
		want bool
	}{
		{1000, false},
		{626, false},
		{625, true},
		{600, true},
		{575, true},
		{574, false},
	}

	for _, tt := range tests {
		snap := sensor.NewSnapshot(sensor.Analog(robot.ArmPot, tt.pot))
		if got := p.Done(snap); got != tt.want {
			t.Errorf("Done(pot=%d) = %t, want %t", tt.pot, got, tt.want)
		}
	}
}

func TestChooseSteer_AllCombinations(t *testing.T) {
	tests := []struct {
		left, center, right bool
		want                Steer
	}{
		{false, false, false, SteerStraight},
		{false, false, true, SteerRight},
		{false, true, false, SteerCenter},
		{false, true, true, SteerCenter},
		{true, false, false, SteerLeft},
		{true, false, true, SteerLeft},
		{true, true, false, SteerCenter},
		{true, true, true, SteerCenter},
	}

	for _, tt := range tests {
		if got := ChooseSteer(tt.left, tt.center, tt.right); got != tt.want {
			t.Errorf("ChooseSteer(%t, %t, %t) = %s, want %s", tt.left, tt.center, tt.right, got, tt.want)
		}
	}
}

func line(left, center, right int) sensor.Snapshot {
	return sensor.NewSnapshot(
		sensor.Analog(robot.LineLeft, left),
		sensor.Analog(robot.LineCenter, center),
		sensor.Analog(robot.LineRight, right),
	)
}

func TestFollowLine_Output(t *testing.T) {
	p := FollowLine{Threshold: 300, Center: 127, Outer: 80, Inner: 50, Straight: 60}

	const paper, concrete = 170, 2000
	tests := []struct {
		name string
		snap sensor.Snapshot
		want Command
	}{
		{"center", line(concrete, paper, concrete), Tank(127, 127)},
		{"left", line(paper, concrete, concrete), Tank(50, 80)},
		{"right", line(concrete, concrete, paper), Tank(80, 50)},
		{"lost", line(concrete, concrete, concrete), Tank(60, 60)},
		{"at threshold is not on line", line(300, 300, 300), Tank(60, 60)},
	}

	for _, tt := range tests {
		if got := p.Output(tt.snap); got.String() != tt.want.String() {
			t.Errorf("%s: Output() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFollowLine_Done(t *testing.T) {
	basic := FollowLine{Threshold: 300}
	if basic.Done(line(100, 100, 100).At(time.Hour)) {
		t.Error("basic FollowLine should never be done")
	}
	if basic.Timeout() != 0 {
		t.Errorf("basic FollowLine Timeout() = %v, want 0", basic.Timeout())
	}

	timed := FollowLine{Threshold: 300, For: 2 * time.Second}
	if timed.Done(line(100, 100, 100).At(1999 * time.Millisecond)) {
		t.Error("timed FollowLine done early")
	}
	if !timed.Done(line(2000, 2000, 2000).At(2 * time.Second)) {
		t.Error("timed FollowLine not done at its duration")
	}
}

func TestAcquireLine_Done(t *testing.T) {
	p := AcquireLine{Threshold: 300, Left: 80, Right: 50}

	tests := []struct {
		snap sensor.Snapshot
		want bool
	}{
		{line(2000, 2000, 2000), false},
		{line(170, 2000, 2000), true},
		{line(2000, 170, 2000), true},
		{line(2000, 2000, 170), true},
		{line(300, 300, 300), false},
	}

	for i, tt := range tests {
		if got := p.Done(tt.snap); got != tt.want {
			t.Errorf("case %d: Done() = %t, want %t", i, got, tt.want)
		}
	}
}

func TestDriveUntil(t *testing.T) {
	p := DriveUntil{Sensor: robot.LineRight, Threshold: 500, Below: true, Power: 127}
	at := func(v int) sensor.Snapshot { return sensor.NewSnapshot(sensor.Analog(robot.LineRight, v)) }

	if p.Done(at(2000)) || p.Done(at(501)) {
		t.Error("DriveUntil done above threshold")
	}
	if !p.Done(at(500)) || !p.Done(at(170)) {
		t.Error("DriveUntil not done at or below threshold")
	}

	up := DriveUntil{Sensor: robot.ArmPot, Threshold: 1000, Power: 60}
	if up.Done(sensor.NewSnapshot(sensor.Analog(robot.ArmPot, 999))) {
		t.Error("rising DriveUntil done early")
	}
}

func TestTimedPrimitives(t *testing.T) {
	turn := TimedTurn{Power: 80, Turn: Clockwise, For: 500 * time.Millisecond}
	if got := turn.Output(sensor.Snapshot{}); got[robot.DriveLeft] != 80 || got[robot.DriveRight] != -80 {
		t.Errorf("TimedTurn Output() = %v", got)
	}
	if turn.Done(sensor.Snapshot{}.At(480*time.Millisecond)) || !turn.Done(sensor.Snapshot{}.At(500*time.Millisecond)) {
		t.Error("TimedTurn Done() wrong around 500ms")
	}

	wait := Wait{For: time.Second}
	if len(wait.Output(sensor.Snapshot{})) != 0 {
		t.Error("Wait should command nothing")
	}
	if wait.Timeout() <= wait.For {
		t.Errorf("Wait Timeout() = %v, want more than its duration", wait.Timeout())
	}
}

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(DriveDistance{Target: -920, Speed: 50, Direction: Forward}, 3*time.Second)

	l, ok := p.(Limited)
	if !ok || l.Timeout() != 3*time.Second {
		t.Fatalf("WithTimeout() did not carry the timeout")
	}
	r, ok := p.(Resetter)
	if !ok || len(r.Resets()) != 1 || r.Resets()[0] != robot.DriveEncoder {
		t.Errorf("WithTimeout() lost the encoder reset")
	}

	w := WithTimeout(Wait{For: time.Second}, 10*time.Second)
	if got := w.(Resetter).Resets(); got != nil {
		t.Errorf("Resets() of non-resetting primitive = %v, want nil", got)
	}
}
