// internal/channel/serial.go
package channel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultReadTimeout bounds each port read so an aborted receive is noticed.
const DefaultReadTimeout = 50 * time.Millisecond

// PortConfig describes the port behind a SerialChannel
type PortConfig struct {
	Path        string        `json:"path"`
	ReadTimeout time.Duration `json:"read_timeout"`
	Opener      PortOpener    `json:"-"`
}

// Stats provides channel-level statistics
type Stats struct {
	BytesRead    int64     `json:"bytes_read"`
	BytesWritten int64     `json:"bytes_written"`
	Completed    int64     `json:"completed"`
	Failed       int64     `json:"failed"`
	Aborted      int64     `json:"aborted"`
	LastActivity time.Time `json:"last_activity"`
}

// SerialChannel implements Channel on top of a serial Port. Each enabled
// channel owns one worker goroutine that performs transfers and fires
// completion notifications in request order.
type SerialChannel struct {
	name   string
	config *PortConfig
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	settings Settings
	port     Port
	closed   bool
	callback CompletionFunc
	userData interface{}
	requests chan *request
	cancel   context.CancelFunc
	done     chan struct{}
	stats    Stats

	inCallback atomic.Bool
}

type request struct {
	dir      Mode
	buf      []byte
	received *atomic.Uint32
	port     Port
}

// NewSerialChannel creates an unconfigured channel for the given port
func NewSerialChannel(name string, config *PortConfig, logger *zap.Logger) *SerialChannel {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.Opener == nil {
		config.Opener = OpenSerialPort
	}

	return &SerialChannel{
		name:   name,
		config: config,
		logger: logger.With(
			zap.String("channel", name),
			zap.String("port", config.Path),
		),
	}
}

// Name returns the channel name
func (c *SerialChannel) Name() string {
	return c.name
}

// Configure validates the settings and opens or reconfigures the port.
// No transfer is started.
func (c *SerialChannel) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state.IsEnabled() {
		return fmt.Errorf("configure while enabled: %w", ErrChannelBusy)
	}

	if err := c.applyLocked(s); err != nil {
		return err
	}
	c.state = StateConfigured

	c.logger.Info("Channel configured",
		zap.Uint32("baud_rate", s.BaudRate),
		zap.Stringer("parity", s.Parity),
		zap.Stringer("stop_bits", s.StopBits),
		zap.Stringer("mode", s.Mode),
	)
	return nil
}

// SetBaudRate changes only the baud rate of a configured channel
func (c *SerialChannel) SetBaudRate(baudRate uint32) error {
	if err := validateBaudRate(baudRate); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.state == StateUnconfigured:
		return ErrNotConfigured
	case c.state == StateTransferring:
		return ErrChannelBusy
	}

	s := c.settings
	s.BaudRate = baudRate
	if err := c.applyLocked(s); err != nil {
		return err
	}

	c.logger.Info("Channel baud rate changed", zap.Uint32("baud_rate", baudRate))
	return nil
}

// applyLocked pushes the settings to the port, opening it on first use
func (c *SerialChannel) applyLocked(s Settings) error {
	mode, err := s.SerialMode()
	if err != nil {
		return err
	}

	if c.port == nil {
		port, err := c.config.Opener(c.config.Path, mode)
		if err != nil {
			c.logger.Error("Failed to open serial port", zap.Error(err))
			return fmt.Errorf("failed to open serial port %s: %w", c.config.Path, err)
		}
		if err := port.SetReadTimeout(c.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
		c.port = port
	} else if err := c.port.SetMode(mode); err != nil {
		return fmt.Errorf("failed to set serial mode: %w", err)
	}

	c.settings = s
	return nil
}

// Enable starts the completion worker. Enabling an enabled channel is a no-op.
func (c *SerialChannel) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.state == StateUnconfigured:
		return ErrNotConfigured
	case c.state.IsEnabled():
		return nil
	}

	// A previous worker may still be finishing an aborted read.
	if done := c.done; done != nil {
		c.mu.Unlock()
		<-done
		c.mu.Lock()
		if c.state.IsEnabled() {
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.requests = make(chan *request, 1)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = StateIdle

	go c.run(ctx, c.requests, c.done)

	c.logger.Debug("Channel enabled")
	return nil
}

// Disable stops the worker. An in-flight transfer is abandoned and its
// notification never fires. Disabling a disabled channel is a no-op.
// Unless called from a completion callback, Disable returns only after the
// worker has stopped touching the transfer buffer.
func (c *SerialChannel) Disable() error {
	c.mu.Lock()

	if !c.state.IsEnabled() {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateTransferring {
		c.stats.Aborted++
		c.logger.Warn("Transfer aborted by disable")
	}

	c.cancel()
	c.cancel = nil
	c.requests = nil
	c.state = StateDisabled
	done := c.done
	c.mu.Unlock()

	// The worker cannot be joined from its own callback. Once inside a
	// callback it has already left fill/drain, and a re-armed request sees
	// the cancelled context before reading.
	if !c.inCallback.Load() {
		<-done
	}

	c.logger.Debug("Channel disabled")
	return nil
}

// Close disables the channel and releases the port
func (c *SerialChannel) Close() error {
	if err := c.Disable(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.port == nil {
		return nil
	}

	if err := c.port.Close(); err != nil {
		c.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	c.port = nil

	c.logger.Info("Channel closed")
	return nil
}

// SetCallback registers the completion handler. It must not be replaced
// while a transfer is outstanding.
func (c *SerialChannel) SetCallback(fn CompletionFunc, userData interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callback = fn
	c.userData = userData
}

// Send starts transmitting data. data must stay untouched until the
// completion notification fires.
func (c *SerialChannel) Send(data []byte) error {
	return c.submit(&request{dir: ModeTx, buf: data})
}

// Receive starts filling buf completely. received holds the running count.
// A rejected call leaves received untouched.
func (c *SerialChannel) Receive(buf []byte, received *atomic.Uint32) error {
	return c.submit(&request{dir: ModeRx, buf: buf, received: received})
}

func (c *SerialChannel) submit(req *request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case !c.state.IsEnabled():
		return ErrNotEnabled
	case c.settings.Mode != req.dir:
		return ErrDirection
	case c.state == StateTransferring:
		return ErrChannelBusy
	}

	if len(c.requests) > 0 {
		return ErrChannelBusy
	}
	req.port = c.port
	if req.received != nil {
		req.received.Store(0)
	}
	c.requests <- req
	c.state = StateTransferring
	return nil
}

// State returns the current lifecycle state
func (c *SerialChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settings returns the applied settings
func (c *SerialChannel) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Stats returns a copy of the channel statistics
func (c *SerialChannel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *SerialChannel) run(ctx context.Context, requests <-chan *request, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			var n int
			var err error
			if req.dir == ModeRx {
				n, err = c.fill(ctx, req)
			} else {
				n, err = c.drain(ctx, req)
			}
			if ctx.Err() != nil {
				return
			}
			c.complete(ctx, req, n, err)
		}
	}
}

// fill reads until the buffer is full, publishing progress after every read
func (c *SerialChannel) fill(ctx context.Context, req *request) (int, error) {
	n := 0
	for n < len(req.buf) {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		k, err := req.port.Read(req.buf[n:])
		n += k
		if req.received != nil {
			req.received.Store(uint32(n))
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// drain writes the whole buffer
func (c *SerialChannel) drain(ctx context.Context, req *request) (int, error) {
	n := 0
	for n < len(req.buf) {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		k, err := req.port.Write(req.buf[n:])
		n += k
		if err != nil {
			return n, err
		}
		if k == 0 {
			return n, io.ErrShortWrite
		}
	}
	return n, nil
}

func (c *SerialChannel) complete(ctx context.Context, req *request, n int, err error) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	if req.dir == ModeRx {
		c.stats.BytesRead += int64(n)
	} else {
		c.stats.BytesWritten += int64(n)
	}
	c.stats.LastActivity = time.Now()
	fn, userData := c.callback, c.userData

	completion := Completion{Direction: req.dir, Status: StatusOK, Count: n}
	if err != nil {
		c.stats.Failed++
		completion.Status = StatusError
		completion.Err = &TransferError{Channel: c.name, Direction: req.dir, Count: n, Err: err}
	} else {
		c.stats.Completed++
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Transfer failed",
			zap.Stringer("direction", req.dir),
			zap.Int("bytes", n),
			zap.Error(err),
		)
	} else {
		c.logger.Debug("Transfer completed",
			zap.Stringer("direction", req.dir),
			zap.Int("bytes", n),
		)
	}

	if fn != nil {
		c.inCallback.Store(true)
		defer c.inCallback.Store(false)
		fn(c, completion, userData)
	}
}
