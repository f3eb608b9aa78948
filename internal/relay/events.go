// internal/relay/events.go
package relay

import "time"

// EventType identifies a relay event
type EventType string

const (
	EventRelayStarted  EventType = "relay_started"
	EventRelayStopped  EventType = "relay_stopped"
	EventBlockRelayed  EventType = "block_relayed"
	EventTransferError EventType = "transfer_error"
	EventBlockDropped  EventType = "block_dropped"
	EventOverrun       EventType = "overrun"
	EventRelayFailed   EventType = "relay_failed"
)

// Event is published for every observable relay transition
type Event struct {
	Type     EventType
	Channel  string
	Sequence uint64
	Bytes    int
	Err      error
	Time     time.Time
}

// Observer receives relay events. Observe is called inside the relay
// critical section and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc is func type of Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans an event out to several observers
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(e Event) {
	for _, obs := range o {
		obs.Observe(e)
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
