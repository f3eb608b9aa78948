// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"serial-relay/internal/discovery"
)

// Lister returns the detailed port list of the host
type Lister func() ([]*enumerator.PortDetails, error)

// Config for serial scanner
type Config struct {
	PortPatterns []string `json:"port_patterns"`
}

// Scanner implements serial port enumeration
type Scanner struct {
	logger *zap.Logger
	config *Config
	list   Lister
}

// NewScanner creates a new serial scanner. A nil lister uses the OS enumerator.
func NewScanner(logger *zap.Logger, config *Config, list Lister) *Scanner {
	if config == nil {
		config = &Config{PortPatterns: getDefaultPortPatterns()}
	}
	if list == nil {
		list = listPorts
	}

	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		config: config,
		list:   list,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists the serial ports matching the configured patterns
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	ports := make([]*discovery.DiscoveredPort, 0, len(details))
	for _, d := range details {
		if !s.matches(d.Name) {
			continue
		}
		port := &discovery.DiscoveredPort{
			Name:    d.Name,
			Scanner: s.GetScannerType(),
			IsUSB:   d.IsUSB,
		}
		if d.IsUSB {
			port.VID = d.VID
			port.PID = d.PID
			port.SerialNumber = d.SerialNumber
			port.Product = d.Product
		}
		ports = append(ports, port)
	}

	s.logger.Debug("Serial scan completed",
		zap.Int("ports_listed", len(details)),
		zap.Int("ports_matched", len(ports)),
	)
	return ports, nil
}

func (s *Scanner) matches(name string) bool {
	if len(s.config.PortPatterns) == 0 {
		return true
	}
	for _, pattern := range s.config.PortPatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// listPorts prefers the detailed enumerator and falls back to plain names
func listPorts() ([]*enumerator.PortDetails, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		return details, nil
	}

	names, plainErr := serial.GetPortsList()
	if plainErr != nil {
		return nil, fmt.Errorf("%v; %w", err, plainErr)
	}
	details = make([]*enumerator.PortDetails, 0, len(names))
	for _, name := range names {
		details = append(details, &enumerator.PortDetails{Name: name})
	}
	return details, nil
}

// getDefaultPortPatterns returns default port patterns by OS
func getDefaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/tty.*", "/dev/cu.*"}
	default:
		return []string{"/dev/ttyS*", "/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyAMA*"}
	}
}
