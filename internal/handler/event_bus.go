// internal/handler/event_bus.go
package handler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serial-relay/internal/model"
	"serial-relay/internal/relay"
)

const subscriberBuffer = 100

// EventBus fans relay events out to subscribers. It implements
// relay.Observer; Observe never blocks the relay.
type EventBus struct {
	subscribers map[string]chan model.RelayEvent
	events      chan relay.Event
	mutex       sync.RWMutex
	logger      *zap.Logger
	dropped     atomic.Int64
}

// NewEventBus creates a new event bus with the given queue size
func NewEventBus(buffer int, logger *zap.Logger) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventBus{
		subscribers: make(map[string]chan model.RelayEvent),
		events:      make(chan relay.Event, buffer),
		logger:      logger,
	}
}

// Observe implements relay.Observer
func (eb *EventBus) Observe(e relay.Event) {
	select {
	case eb.events <- e:
	default:
		eb.dropped.Add(1)
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(e.Type)),
			)
		}
	}
}

// Start distributes queued events until ctx is done
func (eb *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-eb.events:
			eb.distributeEvent(model.FromRelayEvent(e))
		}
	}
}

// Subscribe registers a new subscriber and returns its id and stream
func (eb *EventBus) Subscribe() (string, <-chan model.RelayEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	id := uuid.New().String()
	subscriber := make(chan model.RelayEvent, subscriberBuffer)
	eb.subscribers[id] = subscriber
	return id, subscriber
}

// Unsubscribe removes a subscriber and closes its stream
func (eb *EventBus) Unsubscribe(id string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if subscriber, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(subscriber)
	}
}

// Dropped returns the number of events lost because the queue was full
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.RelayEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
