// internal/channel/errors.go
package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig matches every *ConfigError.
	ErrConfig = errors.New("invalid channel configuration")
	// ErrChannelBusy indicates a request overlapped an outstanding one.
	ErrChannelBusy = errors.New("channel busy")
	// ErrNotConfigured is returned by Enable before Configure succeeded.
	ErrNotConfigured = errors.New("channel not configured")
	// ErrNotEnabled is returned by transfers on a disabled channel.
	ErrNotEnabled = errors.New("channel not enabled")
	// ErrDirection is returned by a transfer the channel mode does not allow.
	ErrDirection = errors.New("transfer direction not supported by channel mode")
	// ErrClosed is returned once the channel released its port.
	ErrClosed = errors.New("channel closed")
)

// ConfigError reports an invalid configuration field
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// TransferError wraps a failure raised while a transfer was in progress.
// Count is the number of bytes moved before the failure.
type TransferError struct {
	Channel   string
	Direction Mode
	Count     int
	Err       error
}

// Error implements error.
func (e *TransferError) Error() string {
	return fmt.Sprintf("%s transfer on %s failed after %d bytes: %v", e.Direction, e.Channel, e.Count, e.Err)
}

// Unwrap returns the underlying port error.
func (e *TransferError) Unwrap() error {
	return e.Err
}
