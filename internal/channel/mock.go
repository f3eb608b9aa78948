// internal/channel/mock.go
package channel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// CallLog records channel calls in order, optionally shared by several mocks
type CallLog struct {
	mu      sync.Mutex
	entries []string
}

// Add appends an entry
func (l *CallLog) Add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the recorded entries
func (l *CallLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Reset clears the log
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// MockChannel implements Channel for testing. Transfers only complete when
// the test drives them with Feed, CompleteSend or the Fail helpers, which
// stand in for the completion interrupt.
type MockChannel struct {
	mu sync.Mutex

	name     string
	log      *CallLog
	state    State
	settings Settings
	closed   bool
	callback CompletionFunc
	userData interface{}

	// ConfigureError is returned by the next Configure call if set
	ConfigureError error

	rxBuf      []byte
	rxCount    int
	rxReceived *atomic.Uint32
	rxPending  bool

	txBuf     []byte
	txPending bool

	transmitted [][]byte
}

// NewMockChannel creates a mock channel writing into log; a nil log gets a
// private one.
func NewMockChannel(name string, log *CallLog) *MockChannel {
	if log == nil {
		log = &CallLog{}
	}
	return &MockChannel{name: name, log: log}
}

// Log returns the call log
func (m *MockChannel) Log() *CallLog {
	return m.log
}

func (m *MockChannel) Name() string { return m.name }

func (m *MockChannel) Configure(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Add("%s.configure(%d)", m.name, s.BaudRate)
	if err := m.ConfigureError; err != nil {
		m.ConfigureError = nil
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if m.state.IsEnabled() {
		return ErrChannelBusy
	}
	m.settings = s
	m.state = StateConfigured
	return nil
}

func (m *MockChannel) SetBaudRate(baudRate uint32) error {
	if err := validateBaudRate(baudRate); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUnconfigured {
		return ErrNotConfigured
	}
	m.settings.BaudRate = baudRate
	return nil
}

func (m *MockChannel) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case m.state == StateUnconfigured:
		return ErrNotConfigured
	case m.state.IsEnabled():
		return nil
	}
	m.log.Add("%s.enable", m.name)
	m.state = StateIdle
	return nil
}

func (m *MockChannel) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsEnabled() {
		return nil
	}
	m.log.Add("%s.disable", m.name)
	m.rxPending, m.txPending = false, false
	m.state = StateDisabled
	return nil
}

func (m *MockChannel) Close() error {
	if err := m.Disable(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockChannel) SetCallback(fn CompletionFunc, userData interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = fn
	m.userData = userData
}

func (m *MockChannel) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(ModeTx, m.txPending); err != nil {
		return err
	}
	m.log.Add("%s.send(%d)", m.name, len(data))
	m.txBuf = data
	m.txPending = true
	m.state = StateTransferring
	return nil
}

func (m *MockChannel) Receive(buf []byte, received *atomic.Uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(ModeRx, m.rxPending); err != nil {
		return err
	}
	m.log.Add("%s.receive(%d)", m.name, len(buf))
	if received != nil {
		received.Store(0)
	}
	m.rxBuf = buf
	m.rxCount = 0
	m.rxReceived = received
	m.rxPending = true
	m.state = StateTransferring
	return nil
}

func (m *MockChannel) checkLocked(dir Mode, pending bool) error {
	switch {
	case m.closed:
		return ErrClosed
	case !m.state.IsEnabled():
		return ErrNotEnabled
	case m.settings.Mode != dir:
		return ErrDirection
	case pending:
		return ErrChannelBusy
	}
	return nil
}

func (m *MockChannel) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockChannel) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// ReceivePending reports whether a receive is outstanding
func (m *MockChannel) ReceivePending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rxPending
}

// SendPending reports whether a send is outstanding
func (m *MockChannel) SendPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txPending
}

// PendingReceiveBuffer returns the buffer of the outstanding receive
func (m *MockChannel) PendingReceiveBuffer() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rxPending {
		return nil
	}
	return m.rxBuf
}

// PendingSendBuffer returns the buffer of the outstanding send
func (m *MockChannel) PendingSendBuffer() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.txPending {
		return nil
	}
	return m.txBuf
}

// Feed delivers bytes to the outstanding receive, completing it each time
// the buffer fills. The callback may re-arm, in which case feeding continues
// into the new buffer. Returns the number of bytes accepted; bytes arriving
// with no receive armed are lost, as on the wire.
func (m *MockChannel) Feed(data []byte) int {
	accepted := 0
	for len(data) > 0 {
		m.mu.Lock()
		if !m.rxPending {
			m.mu.Unlock()
			return accepted
		}
		k := copy(m.rxBuf[m.rxCount:], data)
		m.rxCount += k
		if m.rxReceived != nil {
			m.rxReceived.Store(uint32(m.rxCount))
		}
		data = data[k:]
		accepted += k
		full := m.rxCount == len(m.rxBuf)
		m.mu.Unlock()

		if full {
			m.finishReceive(nil)
		}
	}
	return accepted
}

// FailReceive completes the outstanding receive with a transfer error
func (m *MockChannel) FailReceive(err error) {
	m.finishReceive(err)
}

func (m *MockChannel) finishReceive(err error) {
	m.mu.Lock()
	if !m.rxPending {
		m.mu.Unlock()
		return
	}
	m.rxPending = false
	m.state = StateIdle
	completion := Completion{Direction: ModeRx, Status: StatusOK, Count: m.rxCount}
	if err != nil {
		completion.Status = StatusError
		completion.Err = &TransferError{Channel: m.name, Direction: ModeRx, Count: m.rxCount, Err: err}
		m.log.Add("%s.receive_error(%d)", m.name, m.rxCount)
	} else {
		m.log.Add("%s.receive_done(%d)", m.name, m.rxCount)
	}
	fn, userData := m.callback, m.userData
	m.mu.Unlock()

	if fn != nil {
		fn(m, completion, userData)
	}
}

// CompleteSend finishes the outstanding send, capturing the bytes as they
// are at completion time.
func (m *MockChannel) CompleteSend() {
	m.finishSend(nil)
}

// FailSend completes the outstanding send with a transfer error
func (m *MockChannel) FailSend(err error) {
	m.finishSend(err)
}

func (m *MockChannel) finishSend(err error) {
	m.mu.Lock()
	if !m.txPending {
		m.mu.Unlock()
		return
	}
	m.txPending = false
	m.state = StateIdle
	completion := Completion{Direction: ModeTx, Status: StatusOK, Count: len(m.txBuf)}
	if err != nil {
		completion.Status = StatusError
		completion.Count = 0
		completion.Err = &TransferError{Channel: m.name, Direction: ModeTx, Err: err}
		m.log.Add("%s.send_error", m.name)
	} else {
		m.transmitted = append(m.transmitted, append([]byte(nil), m.txBuf...))
		m.log.Add("%s.send_done(%d)", m.name, len(m.txBuf))
	}
	fn, userData := m.callback, m.userData
	m.mu.Unlock()

	if fn != nil {
		fn(m, completion, userData)
	}
}

// Transmitted returns every successfully sent payload in order
func (m *MockChannel) Transmitted() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.transmitted))
	copy(out, m.transmitted)
	return out
}
