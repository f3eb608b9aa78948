// internal/channel/channel.go
package channel

import (
	"sync/atomic"
)

// Parity represents the parity mode of a channel
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits represents the number of stop bits of a channel
type StopBits uint8

const (
	StopBitsOne StopBits = iota + 1
	StopBitsTwo
)

// Mode represents the direction a channel is configured for
type Mode uint8

const (
	ModeRx Mode = iota + 1
	ModeTx
)

// Status is the completion status delivered with a notification
type Status uint8

const (
	StatusOK Status = iota
	StatusError
)

// Settings is the immutable configuration record of a channel
type Settings struct {
	BaudRate uint32   `json:"baud_rate"`
	Parity   Parity   `json:"parity"`
	StopBits StopBits `json:"stop_bits"`
	Mode     Mode     `json:"mode"`
}

// Completion describes a finished send or receive request
type Completion struct {
	Direction Mode   `json:"direction"`
	Status    Status `json:"status"`
	Count     int    `json:"count"`
	Err       error  `json:"-"`
}

// CompletionFunc is invoked once per finished request, from the channel's
// own completion context.
type CompletionFunc func(ch Channel, c Completion, userData interface{})

// Channel is a single serial endpoint with non-blocking transfers
type Channel interface {
	// Identity and lifecycle
	Name() string
	Configure(s Settings) error
	SetBaudRate(baudRate uint32) error
	Enable() error
	Disable() error
	Close() error

	// Completion notification
	SetCallback(fn CompletionFunc, userData interface{})

	// Transfers
	Send(data []byte) error
	Receive(buf []byte, received *atomic.Uint32) error

	// Introspection
	State() State
	Settings() Settings
}

// String returns the config name of the parity mode
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "unknown"
	}
}

// String returns the config name of the stop bit count
func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsTwo:
		return "2"
	default:
		return "unknown"
	}
}

// String returns the config name of the mode
func (m Mode) String() string {
	switch m {
	case ModeRx:
		return "rx"
	case ModeTx:
		return "tx"
	default:
		return "unknown"
	}
}

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "error"
}
