// internal/relay/errors.go
package relay

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("relay already started")
	// ErrOverrun is raised under the fail policy when a block completes
	// while the previous one is still being transmitted.
	ErrOverrun = errors.New("block ready while transmit channel busy")
	// ErrRoleConflict means a block would be filled and drained at once.
	ErrRoleConflict = errors.New("block role conflict")
	// ErrTimingViolation matches every *TimingError.
	ErrTimingViolation = errors.New("transmit slower than receive")
	// ErrWrongMode is returned when an endpoint has the wrong direction.
	ErrWrongMode = errors.New("channel configured for the wrong direction")
)

// TimingError reports that one block takes longer to transmit than to receive
type TimingError struct {
	Receive  time.Duration
	Transmit time.Duration
}

// Error implements error.
func (e *TimingError) Error() string {
	return fmt.Sprintf("block transmit time %s exceeds receive time %s", e.Transmit, e.Receive)
}

// Is lets errors.Is(err, ErrTimingViolation) match.
func (e *TimingError) Is(target error) bool {
	return target == ErrTimingViolation
}
