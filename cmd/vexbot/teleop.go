package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/vexbot/pkg/competition"
	"github.com/gwillem/vexbot/pkg/hal"
	"github.com/gwillem/vexbot/pkg/hal/sim"
	"github.com/gwillem/vexbot/pkg/robot"
	"github.com/gwillem/vexbot/pkg/teleop"
)

type TeleoperateCommand struct {
	Tick time.Duration `long:"tick" description:"Override the control loop interval"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 2 // inputs row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	axisStep     = 32
)

// Motor role colors
var roleColors = map[robot.Role]string{
	robot.DriveLeft:  "196", // red
	robot.DriveRight: "46",  // green
	robot.Arm:        "226", // yellow
	robot.Intake:     "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

type teleopModel struct {
	ctrl     *teleop.Controller
	cfg      *robot.Config
	joy      *sim.HAL // nil unless the keyboard is the joystick
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	last     teleop.Status
	lastCmd  string
	quitting bool

	left, right         int
	armUp, armDown      bool
	intakeIn, intakeOut bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.Status
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-statusHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, cfg *robot.Config, joy *sim.HAL) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(hal.MinPower, hal.MaxPower),
	)

	for _, role := range robot.MotorRoles() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(roleColors[role]))
		chart.SetDataSetStyles(string(role), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		cfg:   cfg,
		joy:   joy,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

// handleKey moves the simulated joystick. Axes step and hold; buttons toggle.
func (m *teleopModel) handleKey(key string) {
	switch key {
	case "w":
		m.left = hal.Clamp(m.left + axisStep)
	case "s":
		m.left = hal.Clamp(m.left - axisStep)
	case "i":
		m.right = hal.Clamp(m.right + axisStep)
	case "k":
		m.right = hal.Clamp(m.right - axisStep)
	case "e":
		m.armUp, m.armDown = !m.armUp, false
	case "d":
		m.armUp, m.armDown = false, !m.armDown
	case "r":
		m.intakeIn, m.intakeOut = !m.intakeIn, false
	case "f":
		m.intakeIn, m.intakeOut = false, !m.intakeOut
	case " ":
		m.left, m.right = 0, 0
		m.armUp, m.armDown, m.intakeIn, m.intakeOut = false, false, false, false
	default:
		return
	}

	j := m.cfg.Joystick
	m.joy.SetAxis(j.Port, j.LeftAxis, m.left)
	m.joy.SetAxis(j.Port, j.RightAxis, m.right)
	m.joy.SetButton(j.Port, j.ArmGroup, hal.ButtonUp, m.armUp)
	m.joy.SetButton(j.Port, j.ArmGroup, hal.ButtonDown, m.armDown)
	m.joy.SetButton(j.Port, j.IntakeGroup, hal.ButtonUp, m.intakeIn)
	m.joy.SetButton(j.Port, j.IntakeGroup, hal.ButtonDown, m.intakeOut)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.joy != nil {
			m.handleKey(msg.String())
		}

	case stateMsg:
		st := teleop.Status(msg)
		m.last = st
		if st.Error == nil {
			// Freeze the chart while the command is unchanged
			if cmd := st.Frame.Command.String(); cmd != m.lastCmd {
				for _, role := range robot.MotorRoles() {
					m.chart.PushDataSet(string(role), float64(st.Frame.Command[role]))
				}
				m.chart.DrawAll()
				m.lastCmd = cmd
			}
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Operator control stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("vexbot Operator Control"))
	sb.WriteString(fmt.Sprintf(" - %s, tick %v", m.cfg.Name, m.ctrl.Tick()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(m.renderInputs())
	sb.WriteString("\n\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		help := "Press 'q' to quit"
		if m.joy != nil {
			help += "  w/s left  i/k right  e/d arm  r/f intake  space stop"
		}
		logLines = statusStyle.Render(help)
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderInputs() string {
	in := m.last.Input
	flag := func(name string, on bool) string {
		if on {
			return onStyle.Render(name)
		}
		return statusStyle.Render(name)
	}
	items := []string{
		fmt.Sprintf("L %4d  R %4d", in.Left, in.Right),
		fmt.Sprintf("pot %4d", in.ArmPot),
		flag("top", in.TopPressed),
		flag("bottom", in.BottomPressed),
	}
	if m.last.Tripped != "" {
		items = append(items, onStyle.Render("stopped at "+string(m.last.Tripped)))
	}
	if m.last.Error != nil {
		items = append(items, errorStyle.Render(m.last.Error.Error()))
	}
	return strings.Join(items, "  ")
}

func renderLegend() string {
	var items []string
	for _, role := range robot.MotorRoles() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(roleColors[role])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(role))
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Tick > 0 {
		cfg.Control.TeleopTick = c.Tick
	}

	// The TUI owns the terminal; the controller's log channel feeds it.
	logger := newLogger(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, closeHAL, err := competition.OpenHAL(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", backendName(cfg.Backend.Kind), err)
	}
	defer closeHAL()

	joy, _ := h.(*sim.HAL)
	ctrl := competition.New(h, cfg, logger).Controller()

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Start(ctx)
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl, cfg, joy), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Controller error: %v\n", err)
	}
	return nil
}
