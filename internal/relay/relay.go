// internal/relay/relay.go
package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"serial-relay/internal/channel"
)

// OverrunPolicy decides what happens when a block completes while the
// previous block is still being transmitted.
type OverrunPolicy string

const (
	// PolicyBlock pauses reception until the transmit channel frees a block.
	PolicyBlock OverrunPolicy = "block"
	// PolicyDrop discards the new block and keeps receiving.
	PolicyDrop OverrunPolicy = "drop"
	// PolicyFail stops the relay with ErrOverrun.
	PolicyFail OverrunPolicy = "fail"
)

// ParseOverrunPolicy maps a config string to a policy
func ParseOverrunPolicy(v string) (OverrunPolicy, error) {
	switch p := OverrunPolicy(v); p {
	case PolicyBlock, PolicyDrop, PolicyFail:
		return p, nil
	case "":
		return PolicyBlock, nil
	default:
		return "", fmt.Errorf("unknown overrun policy %q", v)
	}
}

// Options configures a Relay
type Options struct {
	OverrunPolicy OverrunPolicy
	EnforceTiming bool
	Observer      Observer
	Logger        *zap.Logger
}

// Stats provides relay counters
type Stats struct {
	BlocksReceived int64     `json:"blocks_received"`
	BlocksSent     int64     `json:"blocks_sent"`
	BytesSent      int64     `json:"bytes_sent"`
	BlocksDropped  int64     `json:"blocks_dropped"`
	BlocksLost     int64     `json:"blocks_lost"`
	ReceiveErrors  int64     `json:"receive_errors"`
	SendErrors     int64     `json:"send_errors"`
	DiscardedBytes int64     `json:"discarded_bytes"`
	Overruns       int64     `json:"overruns"`
	StartedAt      time.Time `json:"started_at"`
}

// Snapshot is a consistent view of the relay state
type Snapshot struct {
	Running  bool              `json:"running"`
	Roles    [bufferCount]Role `json:"roles"`
	Filling  int               `json:"filling"`
	Draining int               `json:"draining"`
	Pending  int               `json:"pending"`
	Received uint32            `json:"received"`
	Sequence uint64            `json:"sequence"`
	Policy   OverrunPolicy     `json:"overrun_policy"`
	Stats    Stats             `json:"stats"`
}

// Relay moves fixed-size blocks from a receive channel to a transmit
// channel using two buffers in a ping-pong pattern. All hand-off logic runs
// in the channels' completion handlers, serialized by mu.
type Relay struct {
	rx       channel.Channel
	tx       channel.Channel
	policy   OverrunPolicy
	observer Observer
	logger   *zap.Logger

	mu       sync.Mutex
	buffers  arena
	filling  int
	draining int
	pending  int
	received atomic.Uint32
	sequence uint64
	drainSeq uint64
	started  bool
	stopped  bool // completions are ignored
	shutdown bool // channels disabled by Stop
	stats    Stats
	fatal    chan error
}

// New creates a relay between a receive-only and a transmit-only channel.
// Both channels must already be configured.
func New(rx, tx channel.Channel, opts Options) (*Relay, error) {
	rxSettings, txSettings := rx.Settings(), tx.Settings()
	if rxSettings.Mode != channel.ModeRx {
		return nil, fmt.Errorf("receive channel %s: %w", rx.Name(), ErrWrongMode)
	}
	if txSettings.Mode != channel.ModeTx {
		return nil, fmt.Errorf("transmit channel %s: %w", tx.Name(), ErrWrongMode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := CheckTiming(rxSettings, txSettings); err != nil {
		if opts.EnforceTiming {
			return nil, err
		}
		logger.Warn("Transmit channel slower than receive channel", zap.Error(err))
	}

	policy, err := ParseOverrunPolicy(string(opts.OverrunPolicy))
	if err != nil {
		return nil, err
	}

	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Relay{
		rx:       rx,
		tx:       tx,
		policy:   policy,
		observer: observer,
		logger: logger.With(
			zap.String("component", "relay"),
			zap.String("rx", rx.Name()),
			zap.String("tx", tx.Name()),
		),
		filling:  none,
		draining: none,
		pending:  none,
		fatal:    make(chan error, 1),
	}, nil
}

// Start enables both channels and arms the first receive into block 0
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	r.rx.SetCallback(r.onReceive, nil)
	r.tx.SetCallback(r.onSend, nil)

	if err := r.tx.Enable(); err != nil {
		return fmt.Errorf("enable transmit channel: %w", err)
	}
	if err := r.rx.Enable(); err != nil {
		r.tx.Disable()
		return fmt.Errorf("enable receive channel: %w", err)
	}

	r.started = true
	r.stats.StartedAt = time.Now()
	if err := r.armLocked(0); err != nil {
		r.stopped = true
		r.rx.Disable()
		r.tx.Disable()
		return err
	}

	r.logger.Info("Relay started",
		zap.Int("block_size", BlockSize),
		zap.String("overrun_policy", string(r.policy)),
	)
	r.publishLocked(Event{Type: EventRelayStarted})
	return nil
}

// Run starts the relay and blocks until ctx is done or a fatal error stops
// it. Cancellation is a clean shutdown and returns nil.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		r.Stop()
		return nil
	case err := <-r.fatal:
		r.Stop()
		return err
	}
}

// Stop disables both channels. In-flight transfers are abandoned.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.started || r.shutdown {
		r.mu.Unlock()
		return
	}
	r.shutdown = true
	r.stopped = true
	r.mu.Unlock()

	if err := r.rx.Disable(); err != nil {
		r.logger.Error("Failed to disable receive channel", zap.Error(err))
	}
	if err := r.tx.Disable(); err != nil {
		r.logger.Error("Failed to disable transmit channel", zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers.reset()
	r.filling, r.draining, r.pending = none, none, none
	r.logger.Info("Relay stopped",
		zap.Int64("blocks_sent", r.stats.BlocksSent),
		zap.Int64("blocks_dropped", r.stats.BlocksDropped),
		zap.Int64("receive_errors", r.stats.ReceiveErrors),
	)
	r.publishLocked(Event{Type: EventRelayStopped})
}

// Snapshot returns the current buffer roles and counters
func (r *Relay) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Running:  r.started && !r.stopped,
		Roles:    r.buffers.roles,
		Filling:  r.filling,
		Draining: r.draining,
		Pending:  r.pending,
		Received: r.received.Load(),
		Sequence: r.sequence,
		Policy:   r.policy,
		Stats:    r.stats,
	}
}

// Stats returns the relay counters
func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// onReceive runs when the receive channel completes a block
func (r *Relay) onReceive(ch channel.Channel, c channel.Completion, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.filling == none {
		return
	}
	filled := r.filling

	if c.Status != channel.StatusOK || c.Count != BlockSize {
		// The partial block is never sent; reception restarts in place.
		r.stats.ReceiveErrors++
		r.stats.DiscardedBytes += int64(c.Count)
		r.logger.Warn("Receive transfer error, block discarded",
			zap.Int("buffer", filled),
			zap.Int("bytes", c.Count),
			zap.Error(c.Err),
		)
		r.publishLocked(Event{Type: EventTransferError, Channel: ch.Name(), Bytes: c.Count, Err: c.Err})
		r.buffers.roles[filled] = RoleIdle
		r.filling = none
		r.armOrFailLocked(filled)
		return
	}

	r.buffers.roles[filled] = RoleIdle
	r.filling = none
	r.sequence++
	r.stats.BlocksReceived++

	if r.draining != none {
		r.overrunLocked(filled)
		return
	}

	// Re-arm first so no incoming byte finds the receiver idle.
	if !r.armOrFailLocked(other(filled)) {
		return
	}
	r.sendOrFailLocked(filled, r.sequence)
}

// onSend runs when the transmit channel finished draining a block
func (r *Relay) onSend(ch channel.Channel, c channel.Completion, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.draining == none {
		return
	}
	drained := r.draining
	r.buffers.roles[drained] = RoleIdle
	r.draining = none

	if c.Status == channel.StatusOK {
		r.stats.BlocksSent++
		r.stats.BytesSent += int64(c.Count)
		r.logger.Debug("Block relayed",
			zap.Uint64("sequence", r.drainSeq),
			zap.Int("buffer", drained),
		)
		r.publishLocked(Event{Type: EventBlockRelayed, Channel: ch.Name(), Sequence: r.drainSeq, Bytes: c.Count})
	} else {
		r.stats.SendErrors++
		r.stats.BlocksLost++
		r.logger.Warn("Transmit transfer error, block lost",
			zap.Uint64("sequence", r.drainSeq),
			zap.Error(c.Err),
		)
		r.publishLocked(Event{Type: EventTransferError, Channel: ch.Name(), Sequence: r.drainSeq, Bytes: c.Count, Err: c.Err})
	}

	if r.pending == none {
		return
	}

	// Reception was paused on a held block: resume into the freed buffer,
	// then drain the held one.
	held := r.pending
	r.pending = none
	if !r.armOrFailLocked(drained) {
		return
	}
	r.sendOrFailLocked(held, r.sequence)
}

// overrunLocked handles a completed block while the other one still drains
func (r *Relay) overrunLocked(filled int) {
	r.stats.Overruns++
	r.publishLocked(Event{Type: EventOverrun, Channel: r.rx.Name(), Sequence: r.sequence, Bytes: BlockSize})

	switch r.policy {
	case PolicyDrop:
		r.stats.BlocksDropped++
		r.logger.Warn("Transmit busy, block dropped", zap.Uint64("sequence", r.sequence))
		r.publishLocked(Event{Type: EventBlockDropped, Channel: r.rx.Name(), Sequence: r.sequence, Bytes: BlockSize})
		r.armOrFailLocked(filled)
	case PolicyFail:
		r.failLocked(fmt.Errorf("block %d: %w", r.sequence, ErrOverrun))
	default:
		r.logger.Warn("Transmit busy, reception paused", zap.Uint64("sequence", r.sequence))
		r.pending = filled
	}
}

// armOrFailLocked issues the next receive into block i
func (r *Relay) armOrFailLocked(i int) bool {
	if err := r.armLocked(i); err != nil {
		r.failLocked(err)
		return false
	}
	return true
}

func (r *Relay) armLocked(i int) error {
	if r.buffers.roles[i] != RoleIdle {
		return fmt.Errorf("arm receive into %s block %d: %w", r.buffers.roles[i], i, ErrRoleConflict)
	}
	if err := r.rx.Receive(r.buffers.blocks[i][:], &r.received); err != nil {
		return fmt.Errorf("arm receive: %w", err)
	}
	r.buffers.roles[i] = RoleFilling
	r.filling = i
	return r.buffers.verify()
}

// sendOrFailLocked hands block i to the transmit channel
func (r *Relay) sendOrFailLocked(i int, seq uint64) {
	if r.buffers.roles[i] != RoleIdle {
		r.failLocked(fmt.Errorf("send %s block %d: %w", r.buffers.roles[i], i, ErrRoleConflict))
		return
	}
	if err := r.tx.Send(r.buffers.blocks[i][:]); err != nil {
		r.failLocked(fmt.Errorf("send block: %w", err))
		return
	}
	r.buffers.roles[i] = RoleDraining
	r.draining = i
	r.drainSeq = seq
	if err := r.buffers.verify(); err != nil {
		r.failLocked(err)
	}
}

// failLocked stops handling completions and hands err to Run
func (r *Relay) failLocked(err error) {
	if r.stopped {
		return
	}
	r.stopped = true
	r.logger.Error("Relay failed", zap.Error(err))
	r.publishLocked(Event{Type: EventRelayFailed, Err: err})

	select {
	case r.fatal <- err:
	default:
	}
}

func (r *Relay) publishLocked(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.observer.Observe(e)
}

// Err returns a channel delivering the fatal error that stopped the relay
func (r *Relay) Err() <-chan error {
	return r.fatal
}
