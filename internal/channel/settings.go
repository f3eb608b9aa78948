// internal/channel/settings.go
package channel

import (
	"strings"
	"time"

	"go.bug.st/serial"
)

// dataBits is fixed; the relay only moves 8-bit bytes.
const dataBits = 8

// SupportedBaudRates lists the baud rates a channel accepts
var SupportedBaudRates = []uint32{
	1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600,
}

// IsSupportedBaudRate reports whether baudRate is in SupportedBaudRates
func IsSupportedBaudRate(baudRate uint32) bool {
	for _, b := range SupportedBaudRates {
		if b == baudRate {
			return true
		}
	}
	return false
}

// Validate checks every field against its supported set
func (s Settings) Validate() error {
	if err := validateBaudRate(s.BaudRate); err != nil {
		return err
	}

	switch s.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return &ConfigError{Field: "parity", Value: s.Parity, Reason: "expected none, odd or even"}
	}

	switch s.StopBits {
	case StopBitsOne, StopBitsTwo:
	default:
		return &ConfigError{Field: "stop_bits", Value: s.StopBits, Reason: "expected 1 or 2"}
	}

	switch s.Mode {
	case ModeRx, ModeTx:
	default:
		return &ConfigError{Field: "mode", Value: s.Mode, Reason: "expected rx or tx"}
	}

	return nil
}

func validateBaudRate(baudRate uint32) error {
	if baudRate == 0 {
		return &ConfigError{Field: "baud_rate", Value: baudRate, Reason: "must be positive"}
	}
	if !IsSupportedBaudRate(baudRate) {
		return &ConfigError{Field: "baud_rate", Value: baudRate, Reason: "unsupported"}
	}
	return nil
}

// FrameBits returns the number of line bits needed for one byte
func (s Settings) FrameBits() int {
	bits := 1 + dataBits // start bit + data
	if s.Parity != ParityNone {
		bits++
	}
	if s.StopBits == StopBitsTwo {
		bits += 2
	} else {
		bits++
	}
	return bits
}

// TransferTime returns the minimum line time needed to move n bytes
func (s Settings) TransferTime(n int) time.Duration {
	if s.BaudRate == 0 {
		return 0
	}
	bits := int64(n) * int64(s.FrameBits())
	return time.Duration(bits * int64(time.Second) / int64(s.BaudRate))
}

// SerialMode converts the settings into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func (s Settings) SerialMode() (*serial.Mode, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: int(s.BaudRate),
		DataBits: dataBits,
		StopBits: serial.OneStopBit,
	}
	if s.StopBits == StopBitsTwo {
		mode.StopBits = serial.TwoStopBits
	}

	switch s.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// ParseParity maps a config string to a Parity
func ParseParity(v string) (Parity, error) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "", "n", "none":
		return ParityNone, nil
	case "o", "odd":
		return ParityOdd, nil
	case "e", "even":
		return ParityEven, nil
	default:
		return 0, &ConfigError{Field: "parity", Value: v, Reason: "expected none, odd or even"}
	}
}

// ParseStopBits maps a config value to StopBits
func ParseStopBits(v int) (StopBits, error) {
	switch v {
	case 0, 1:
		return StopBitsOne, nil
	case 2:
		return StopBitsTwo, nil
	default:
		return 0, &ConfigError{Field: "stop_bits", Value: v, Reason: "expected 1 or 2"}
	}
}

// ParseMode maps a config string to a Mode
func ParseMode(v string) (Mode, error) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "rx", "receive":
		return ModeRx, nil
	case "tx", "transmit":
		return ModeTx, nil
	default:
		return 0, &ConfigError{Field: "mode", Value: v, Reason: "expected rx or tx"}
	}
}
