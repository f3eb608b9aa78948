// internal/handler/relay_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"serial-relay/internal/channel"
	"serial-relay/internal/config"
	"serial-relay/internal/model"
	"serial-relay/internal/relay"
	"serial-relay/internal/utils"
)

// RelayService is the relay surface served over HTTP
type RelayService interface {
	Snapshot() relay.Snapshot
	Stats() relay.Stats
}

// channelStatser is implemented by channels that keep transfer statistics
type channelStatser interface {
	Stats() channel.Stats
}

// RelayHandler serves relay status and statistics
type RelayHandler struct {
	relay    RelayService
	rx       channel.Channel
	tx       channel.Channel
	config   *config.RelayConfig
	eventBus *EventBus
	logger   *utils.ServiceLogger
}

// NewRelayHandler creates a new relay handler
func NewRelayHandler(
	relay RelayService,
	rx, tx channel.Channel,
	relayConfig *config.RelayConfig,
	eventBus *EventBus,
	logger *zap.Logger,
) *RelayHandler {
	return &RelayHandler{
		relay:    relay,
		rx:       rx,
		tx:       tx,
		config:   relayConfig,
		eventBus: eventBus,
		logger:   utils.NewServiceLogger(logger, "relay-handler"),
	}
}

// GetStatus returns the buffer roles and endpoint state
// @Summary Relay status
// @Description Current buffer roles, fill progress and endpoint configuration
// @Tags Relay
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.RelayStatus} "Relay status"
// @Router /relay/status [get]
func (h *RelayHandler) GetStatus(c *gin.Context) {
	snapshot := h.relay.Snapshot()

	status := model.RelayStatus{
		Running:  snapshot.Running,
		Snapshot: snapshot,
		Receive:  channelStatus(h.rx, h.config.Receive.Port),
		Transmit: channelStatus(h.tx, h.config.Transmit.Port),
	}

	utils.SuccessResponse(c, http.StatusOK, "Relay status", status)
}

// GetStats returns relay and channel counters
// @Summary Relay statistics
// @Tags Relay
// @Produce json
// @Success 200 {object} utils.APIResponse "Relay statistics"
// @Router /relay/stats [get]
func (h *RelayHandler) GetStats(c *gin.Context) {
	data := gin.H{
		"relay":                h.relay.Stats(),
		"block_size":           relay.BlockSize,
		"overrun_policy":       h.relay.Snapshot().Policy,
		"events_dropped":       int64(0),
		"receive_transfer_ms":  transferMillis(h.rx),
		"transmit_transfer_ms": transferMillis(h.tx),
	}
	if h.eventBus != nil {
		data["events_dropped"] = h.eventBus.Dropped()
	}
	if s, ok := h.rx.(channelStatser); ok {
		data["receive"] = s.Stats()
	}
	if s, ok := h.tx.(channelStatser); ok {
		data["transmit"] = s.Stats()
	}

	utils.SuccessResponse(c, http.StatusOK, "Relay statistics", data)
}

// GetTiming reports the per-block line time of both channels
// @Summary Relay timing check
// @Description Compares the time to drain one block with the time to fill the next
// @Tags Relay
// @Produce json
// @Success 200 {object} utils.APIResponse "Transmit keeps up with receive"
// @Failure 409 {object} utils.APIResponse "Transmit slower than receive"
// @Router /relay/timing [get]
func (h *RelayHandler) GetTiming(c *gin.Context) {
	if err := relay.CheckTiming(h.rx.Settings(), h.tx.Settings()); err != nil {
		respondError(c, "Transmit channel cannot keep up", err)
		return
	}

	receive, transmit := transferMillis(h.rx), transferMillis(h.tx)
	utils.SuccessResponse(c, http.StatusOK, "Timing satisfied", gin.H{
		"block_size":           relay.BlockSize,
		"receive_transfer_ms":  receive,
		"transmit_transfer_ms": transmit,
		"headroom_ms":          receive - transmit,
	})
}

func channelStatus(ch channel.Channel, port string) model.ChannelStatus {
	s := ch.Settings()
	return model.ChannelStatus{
		Name:     ch.Name(),
		Port:     port,
		State:    ch.State().String(),
		BaudRate: s.BaudRate,
		Parity:   s.Parity.String(),
		StopBits: s.StopBits.String(),
		Mode:     s.Mode.String(),
	}
}

// transferMillis is the line time of one block on ch
func transferMillis(ch channel.Channel) float64 {
	return float64(ch.Settings().TransferTime(relay.BlockSize).Microseconds()) / 1000
}
