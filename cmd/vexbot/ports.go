package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/vexbot/pkg/hal/servobus"
)

// Highest servo ID probed when scanning a bus.
const maxServoID = 12

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	fmt.Println("Scanning serial ports...")
	fmt.Println()

	var rows [][]string
	for _, port := range ports {
		if skipPort(port) {
			continue
		}
		servos, err := scanPort(port)
		switch {
		case err != nil:
			rows = append(rows, []string{port, "-", dimStyle.Render(err.Error())})
		case len(servos) == 0:
			rows = append(rows, []string{port, "0", dimStyle.Render("no servos")})
		default:
			rows = append(rows, []string{port, fmt.Sprintf("%d", len(servos)), servoIDs(servos)})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "Servos", "IDs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	return nil
}

// skipPort filters out Bluetooth ports on macOS.
func skipPort(port string) bool {
	return strings.Contains(port, "Bluetooth")
}

func servoIDs(servos []feetech.FoundServo) string {
	ids := make([]int, 0, len(servos))
	for _, s := range servos {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: servobus.DefaultBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func scanPort(port string) ([]feetech.FoundServo, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return bus.Scan(ctx, 1, maxServoID)
}

// findRigs returns every port with at least n servos on it.
func findRigs(n int) []rigInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var rigs []rigInfo
	for _, port := range ports {
		if skipPort(port) {
			continue
		}
		servos, err := scanPort(port)
		if err != nil || len(servos) < n {
			continue
		}
		fmt.Printf("  Found %d servos on %s\n", len(servos), port)
		rigs = append(rigs, rigInfo{port: port, servos: servos})
	}
	return rigs
}

func connectToRig(port string, n int) (*feetech.Bus, []feetech.FoundServo, error) {
	bus, err := openBus(port)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	servos, err := bus.Scan(ctx, 1, maxServoID)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	if len(servos) < n {
		bus.Close()
		return nil, nil, fmt.Errorf("found %d servos on %s, need %d", len(servos), port, n)
	}
	return bus, servos, nil
}
