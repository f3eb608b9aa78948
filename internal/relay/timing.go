// internal/relay/timing.go
package relay

import (
	"serial-relay/internal/channel"
)

// CheckTiming verifies the two-buffer precondition: draining one block must
// never take longer than filling the next one.
func CheckTiming(rx, tx channel.Settings) error {
	receive := rx.TransferTime(BlockSize)
	transmit := tx.TransferTime(BlockSize)
	if transmit > receive {
		return &TimingError{Receive: receive, Transmit: transmit}
	}
	return nil
}
