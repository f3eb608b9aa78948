package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"serial-relay/internal/relay"
)

func TestFromRelayEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := FromRelayEvent(relay.Event{
		Type:     relay.EventTransferError,
		Channel:  "rx",
		Sequence: 4,
		Bytes:    17,
		Err:      errors.New("framing error"),
		Time:     at,
	})

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, relay.EventTransferError, e.EventType)
	assert.Equal(t, "rx", e.Channel)
	assert.EqualValues(t, 4, e.Sequence)
	assert.Equal(t, 17, e.Bytes)
	assert.Equal(t, "framing error", e.Error)
	assert.Equal(t, at, e.Timestamp)
	assert.Equal(t, SeverityWarning, e.Severity)

	other := FromRelayEvent(relay.Event{Type: relay.EventBlockRelayed})
	assert.NotEqual(t, e.ID, other.ID)
	assert.False(t, other.Timestamp.IsZero())
	assert.Empty(t, other.Error)
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityInfo, SeverityFor(relay.EventBlockRelayed))
	assert.Equal(t, SeverityInfo, SeverityFor(relay.EventRelayStarted))
	assert.Equal(t, SeverityWarning, SeverityFor(relay.EventOverrun))
	assert.Equal(t, SeverityCritical, SeverityFor(relay.EventRelayFailed))
}
