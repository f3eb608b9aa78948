package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubScanner struct {
	kind      string
	available bool
	ports     []*DiscoveredPort
	err       error
}

func (s *stubScanner) Scan(context.Context) ([]*DiscoveredPort, error) { return s.ports, s.err }
func (s *stubScanner) GetScannerType() string                          { return s.kind }
func (s *stubScanner) IsAvailable() bool                               { return s.available }

func TestScannerManager(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, ports: []*DiscoveredPort{
		{Name: "/dev/ttyUSB1"}, {Name: "/dev/ttyUSB0"},
	}})
	sm.RegisterScanner(&stubScanner{kind: "broken", available: true, err: errors.New("boom")})
	sm.RegisterScanner(&stubScanner{kind: "offline", available: false})

	ports, err := sm.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "/dev/ttyUSB0", ports[0].Name)
	assert.Equal(t, "/dev/ttyUSB1", ports[1].Name)

	assert.Equal(t, []string{"broken", "serial"}, sm.GetAvailableScanners())

	_, err = sm.ScanByType(context.Background(), "offline")
	require.Error(t, err)
	_, err = sm.ScanByType(context.Background(), "missing")
	require.Error(t, err)
	ports, err = sm.ScanByType(context.Background(), "serial")
	require.NoError(t, err)
	assert.Len(t, ports, 2)
}

func TestMarkRelayPorts(t *testing.T) {
	ports := []*DiscoveredPort{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyUSB1"}, {Name: "/dev/ttyS0"}}
	MarkRelayPorts(ports, "/dev/ttyUSB0", "/dev/ttyUSB1")

	assert.Equal(t, RoleReceive, ports[0].Role)
	assert.Equal(t, RoleTransmit, ports[1].Role)
	assert.Empty(t, ports[2].Role)
}
