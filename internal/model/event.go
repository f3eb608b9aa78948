// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"

	"serial-relay/internal/relay"
)

// Severity levels attached to relay events
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// RelayEvent represents a relay event as published to observers over HTTP
type RelayEvent struct {
	ID        uuid.UUID       `json:"id"`
	EventType relay.EventType `json:"event_type"`
	Channel   string          `json:"channel,omitempty"`
	Sequence  uint64          `json:"sequence,omitempty"`
	Bytes     int             `json:"bytes,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  string          `json:"severity"`
}

// FromRelayEvent converts a relay event and assigns it a fresh ID
func FromRelayEvent(e relay.Event) RelayEvent {
	out := RelayEvent{
		ID:        uuid.New(),
		EventType: e.Type,
		Channel:   e.Channel,
		Sequence:  e.Sequence,
		Bytes:     e.Bytes,
		Timestamp: e.Time,
		Severity:  SeverityFor(e.Type),
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	return out
}

// SeverityFor maps an event type to its severity
func SeverityFor(t relay.EventType) string {
	switch t {
	case relay.EventTransferError, relay.EventBlockDropped, relay.EventOverrun:
		return SeverityWarning
	case relay.EventRelayFailed:
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// RelayStatus is the relay state served by the status endpoint
type RelayStatus struct {
	Running  bool           `json:"running"`
	Snapshot relay.Snapshot `json:"snapshot"`
	Receive  ChannelStatus  `json:"receive"`
	Transmit ChannelStatus  `json:"transmit"`
}

// ChannelStatus describes one relay endpoint
type ChannelStatus struct {
	Name     string `json:"name"`
	Port     string `json:"port"`
	State    string `json:"state"`
	BaudRate uint32 `json:"baud_rate"`
	Parity   string `json:"parity"`
	StopBits string `json:"stop_bits"`
	Mode     string `json:"mode"`
}
