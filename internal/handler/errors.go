// internal/handler/errors.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"serial-relay/internal/channel"
	"serial-relay/internal/discovery"
	"serial-relay/internal/relay"
	"serial-relay/internal/utils"
)

// errorStatus maps relay, channel and discovery errors to an HTTP status and
// API error code
func errorStatus(err error) (int, string) {
	var transferErr *channel.TransferError
	switch {
	case errors.Is(err, relay.ErrTimingViolation):
		return http.StatusConflict, "TIMING_VIOLATION"
	case errors.Is(err, relay.ErrOverrun):
		return http.StatusConflict, "OVERRUN"
	case errors.Is(err, channel.ErrConfig):
		return http.StatusBadRequest, "CHANNEL_CONFIG"
	case errors.Is(err, channel.ErrChannelBusy):
		return http.StatusConflict, "CHANNEL_BUSY"
	case errors.Is(err, channel.ErrNotConfigured),
		errors.Is(err, channel.ErrNotEnabled),
		errors.Is(err, channel.ErrClosed):
		return http.StatusServiceUnavailable, "CHANNEL_UNAVAILABLE"
	case errors.As(err, &transferErr):
		return http.StatusBadGateway, "TRANSFER_ERROR"
	case errors.Is(err, discovery.ErrScannerNotFound):
		return http.StatusBadRequest, "SCANNER_NOT_FOUND"
	case errors.Is(err, discovery.ErrScannerUnavailable):
		return http.StatusServiceUnavailable, "SCANNER_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}

func respondError(c *gin.Context, message string, err error) {
	status, code := errorStatus(err)
	utils.CodedErrorResponse(c, status, code, message, err)
}
