// internal/channel/state.go
package channel

// State is the lifecycle state of a channel
type State uint8

const (
	StateUnconfigured State = iota
	StateConfigured
	StateIdle         // enabled, no outstanding request
	StateTransferring // enabled, a request is outstanding
	StateDisabled
)

// IsEnabled reports whether the channel accepts transfers
func (s State) IsEnabled() bool {
	return s == StateIdle || s == StateTransferring
}

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateIdle:
		return "idle"
	case StateTransferring:
		return "transferring"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
