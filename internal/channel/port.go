// internal/channel/port.go
package channel

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the minimal OS serial port surface a SerialChannel drives.
// serial.Port from go.bug.st/serial satisfies it.
type Port interface {
	io.ReadWriteCloser
	SetMode(mode *serial.Mode) error
	// SetReadTimeout bounds a single Read; a timed out Read returns 0, nil.
	SetReadTimeout(timeout time.Duration) error
}

// PortOpener opens the port at path with the given mode
type PortOpener func(path string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real serial port through go.bug.st/serial
func OpenSerialPort(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}
