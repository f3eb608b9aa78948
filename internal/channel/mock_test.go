package channel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChannelFeedRearm(t *testing.T) {
	log := &CallLog{}
	rx := NewMockChannel("rx", log)
	require.NoError(t, rx.Configure(Settings{BaudRate: 9600, StopBits: StopBitsOne, Mode: ModeRx}))
	require.NoError(t, rx.Enable())

	bufs := [][]byte{make([]byte, 4), make([]byte, 4)}
	next := 0
	var received atomic.Uint32
	rx.SetCallback(func(ch Channel, c Completion, userData interface{}) {
		assert.Equal(t, "user", userData)
		assert.Equal(t, StatusOK, c.Status)
		next ^= 1
		require.NoError(t, ch.Receive(bufs[next], &received))
	}, "user")

	require.NoError(t, rx.Receive(bufs[0], &received))
	require.ErrorIs(t, rx.Receive(bufs[1], &received), ErrChannelBusy)

	n := rx.Feed([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, bufs[0])
	assert.Equal(t, []byte{5, 6, 0, 0}, bufs[1])
	assert.EqualValues(t, 2, received.Load())

	assert.Equal(t, []string{
		"rx.configure(9600)",
		"rx.enable",
		"rx.receive(4)",
		"rx.receive_done(4)",
		"rx.receive(4)",
	}, log.Entries())
}

func TestMockChannelSendAndFail(t *testing.T) {
	tx := NewMockChannel("tx", nil)
	require.NoError(t, tx.Configure(Settings{BaudRate: 115200, StopBits: StopBitsOne, Mode: ModeTx}))
	require.ErrorIs(t, tx.Send([]byte{1}), ErrNotEnabled)
	require.NoError(t, tx.Enable())
	require.ErrorIs(t, tx.Receive(make([]byte, 1), nil), ErrDirection)

	var got []Completion
	tx.SetCallback(func(_ Channel, c Completion, _ interface{}) {
		got = append(got, c)
	}, nil)

	require.NoError(t, tx.Send([]byte("ab")))
	assert.True(t, tx.SendPending())
	tx.CompleteSend()

	require.NoError(t, tx.Send([]byte("cd")))
	tx.FailSend(errors.New("line break"))

	require.Len(t, got, 2)
	assert.Equal(t, StatusOK, got[0].Status)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, StatusError, got[1].Status)
	var te *TransferError
	require.ErrorAs(t, got[1].Err, &te)
	assert.Equal(t, [][]byte{[]byte("ab")}, tx.Transmitted())

	require.NoError(t, tx.Disable())
	require.NoError(t, tx.Disable())
	assert.Equal(t, StateDisabled, tx.State())
}
