package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/vexbot/pkg/hal/servobus"
	"github.com/gwillem/vexbot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

// Servo IDs used by the starter bench wiring. The rig needs at least this
// many servos on the follower bus, and the leader arm the same.
const rigServos = 4

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("vexbot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	var preset, backend string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which robot?").
				Options(huh.NewOptions(robot.PresetNames()...)...).
				Value(&preset),
			huh.NewSelect[string]().
				Title("Which backend?").
				Options(
					huh.NewOption("Simulator", robot.BackendSim),
					huh.NewOption("Feetech servo bench rig", robot.BackendServoBus),
				).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg, ok := robot.Preset(preset)
	if !ok {
		return fmt.Errorf("unknown preset %q", preset)
	}
	cfg.Backend.Kind = backend

	if backend == robot.BackendServoBus {
		bus, err := setupRig(cfg)
		if err != nil {
			return err
		}
		cfg.Backend.Bus = *bus
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Run the routine with: " + headerStyle.Render("vexbot auto"))
	fmt.Println("Drive the robot with: " + headerStyle.Render("vexbot teleop"))

	return nil
}

// setupRig picks the follower and leader ports and calibrates the leader.
func setupRig(cfg *robot.Config) (*robot.BusConfig, error) {
	fmt.Println("Scanning for servo buses...")
	fmt.Println()

	rigs := findRigs(rigServos)
	if len(rigs) == 0 {
		fmt.Println("No servo bus found.")
		fmt.Println("Make sure the rig is connected and powered on.")
		os.Exit(1)
	}

	var follower, leader string
	var portOptions []huh.Option[string]
	for _, r := range rigs {
		portOptions = append(portOptions, huh.NewOption(fmt.Sprintf("%s (%d servos)", r.port, len(r.servos)), r.port))
	}
	leaderOptions := append([]huh.Option[string]{huh.NewOption("No leader arm", "")}, portOptions...)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port drives the robot?").
				Description("Motors, sensors and limit switches").
				Options(portOptions...).
				Value(&follower),
			huh.NewSelect[string]().
				Title("Which port is the leader arm?").
				Description("Moved by hand in place of the joystick").
				Options(leaderOptions...).
				Value(&leader),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	bus := starterWiring(cfg, follower, leader)
	if leader == "" {
		return bus, nil
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Leader Arm ━━━"))
	fmt.Println()
	if err := calibrateLeader(&bus.Leader); err != nil {
		return nil, err
	}
	return bus, nil
}

// starterWiring maps the first motor of each role and the robot's sensors
// onto servos 1-4 of the follower. The leader's first two servos are the
// drive axes, the next two the arm and intake triggers.
func starterWiring(cfg *robot.Config, follower, leader string) *robot.BusConfig {
	bus := &robot.BusConfig{Port: follower, BaudRate: servobus.DefaultBaudRate}

	roleServo := map[robot.Role]int{}
	for i, role := range robot.MotorRoles() {
		motors := cfg.MotorsFor(role)
		if len(motors) == 0 {
			continue
		}
		roleServo[role] = i + 1
		bus.Motors = append(bus.Motors, robot.ServoChannel{Channel: motors[0].Channel, ServoID: i + 1, Gain: 0.5})
	}

	for _, s := range cfg.Sensors {
		switch s.Role {
		case robot.DriveEncoder:
			bus.Encoders = append(bus.Encoders, robot.ServoChannel{Channel: s.Channel, ServoID: roleServo[robot.DriveLeft]})
		case robot.ArmPot:
			bus.Analog = append(bus.Analog, robot.ServoChannel{Channel: s.Channel, ServoID: roleServo[robot.Arm]})
		case robot.LimitTop:
			bus.Limits = append(bus.Limits, robot.ServoLimit{Channel: s.Channel, ServoID: roleServo[robot.Arm], Min: 0, Max: 3072})
		case robot.LimitBottom:
			bus.Limits = append(bus.Limits, robot.ServoLimit{Channel: s.Channel, ServoID: roleServo[robot.Arm], Min: 1024, Max: 4095})
		}
	}

	if leader != "" {
		j := cfg.Joystick
		bus.Leader = robot.LeaderConfig{
			Port: leader,
			Axes: []robot.LeaderAxis{
				{Axis: j.LeftAxis, Calibration: robot.AxisCalibration{ID: 1}},
				{Axis: j.RightAxis, Calibration: robot.AxisCalibration{ID: 2}},
			},
			Buttons: []robot.LeaderButton{
				{Group: j.ArmGroup, ServoID: 3, Up: 2600, Down: 1500},
				{Group: j.IntakeGroup, ServoID: 4, Up: 2600, Down: 1500},
			},
		}
	}
	return bus
}

type rigInfo struct {
	port   string
	servos []feetech.FoundServo
}

func calibrateLeader(leader *robot.LeaderConfig) error {
	fmt.Printf("Calibrating leader arm on %s\n", leader.Port)
	fmt.Println()

	bus, servos, err := connectToRig(leader.Port, rigServos)
	if err != nil {
		return fmt.Errorf("connect to leader: %w", err)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so the arm can be moved freely
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	fmt.Println(subHeaderStyle.Render("Record stick range"))
	fmt.Println("Move each drive joint through its full travel.")
	fmt.Println("The middle of the range becomes the stick's rest position.")
	fmt.Println()

	ids := leader.AxisIDs()
	cur := make(map[int]int)
	lo := make(map[int]int)
	hi := make(map[int]int)
	for _, id := range ids {
		servo, ok := servoMap[id]
		if !ok {
			return fmt.Errorf("leader servo %d not found", id)
		}
		pos, _ := servo.Position(ctx)
		cur[id], lo[id], hi[id] = pos, pos, pos
	}

	p := tea.NewProgram(newCalibrationModel(ids, servoMap, cur, lo, hi))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)

	for i := range leader.Axes {
		id := leader.Axes[i].Calibration.ID
		leader.Axes[i].Calibration.RangeMin = cm.minPositions[id]
		leader.Axes[i].Calibration.RangeMax = cm.maxPositions[id]
	}

	fmt.Println()
	fmt.Println("Leader arm calibrated.")
	return nil
}

// Calibration TUI model
type calibrationModel struct {
	ids          []int
	servoMap     map[int]*feetech.Servo
	curPositions map[int]int
	minPositions map[int]int
	maxPositions map[int]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(ids []int, servoMap map[int]*feetech.Servo, cur, lo, hi map[int]int) calibrationModel {
	return calibrationModel{
		ids:          ids,
		servoMap:     servoMap,
		curPositions: cur,
		minPositions: lo,
		maxPositions: hi,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for _, id := range m.ids {
			pos, err := m.servoMap[id].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[id] = pos
			m.minPositions[id] = min(m.minPositions[id], pos)
			m.maxPositions[id] = max(m.maxPositions[id], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.ids))
	ranges := make([]int, 0, len(m.ids))
	for _, id := range m.ids {
		rangeSize := m.maxPositions[id] - m.minPositions[id]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", m.curPositions[id]),
			fmt.Sprintf("%d", m.minPositions[id]),
			fmt.Sprintf("%d", m.maxPositions[id]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Servo", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableServoStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))
	return sb.String()
}
