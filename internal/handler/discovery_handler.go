// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"serial-relay/internal/config"
	"serial-relay/internal/discovery"
	"serial-relay/internal/utils"
)

// DiscoveryHandler handles serial port listing requests
type DiscoveryHandler struct {
	scanners *discovery.ScannerManager
	relay    *config.RelayConfig
	logger   *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(scanners *discovery.ScannerManager, relayConfig *config.RelayConfig, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		scanners: scanners,
		relay:    relayConfig,
		logger:   utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ListPorts lists the serial ports of the host
// @Summary List serial ports
// @Description List serial ports available on the host, tagging the relay endpoints
// @Tags Discovery
// @Produce json
// @Param type query string false "Scanner type" default(all)
// @Success 200 {object} utils.APIResponse{data=object{ports_found=int,ports=[]discovery.DiscoveredPort}} "Port scan completed"
// @Failure 400 {object} utils.APIResponse "Unknown scanner"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	var (
		ports []*discovery.DiscoveredPort
		err   error
	)
	if scanType == "all" {
		ports, err = h.scanners.ScanAll(c.Request.Context())
		if err != nil {
			h.logger.Error("Failed to scan ports", zap.Error(err))
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan ports", err)
			return
		}
	} else {
		ports, err = h.scanners.ScanByType(c.Request.Context(), scanType)
		if err != nil {
			h.logger.Warn("Port scan failed", zap.String("type", scanType), zap.Error(err))
			respondError(c, "Failed to scan ports", err)
			return
		}
	}

	discovery.MarkRelayPorts(ports, h.relay.Receive.Port, h.relay.Transmit.Port)

	utils.SuccessResponse(c, http.StatusOK, "Port scan completed", gin.H{
		"ports_found": len(ports),
		"ports":       ports,
	})
}

// ListScanners lists the available scanner types
// @Summary List scanners
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{scanners=[]string}} "Available scanners"
// @Router /ports/scanners [get]
func (h *DiscoveryHandler) ListScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Available scanners", gin.H{
		"scanners": h.scanners.GetAvailableScanners(),
	})
}
