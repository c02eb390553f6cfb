// Package handler provides the HTTP API handlers.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/model"
	"wishing-well/internal/service"
)

// Stable error codes returned to clients.
const (
	CodeInvalidInput      = "invalid_input"
	CodeNoCredits         = "no_credits_available"
	CodeRateLimited       = "rate_limited"
	CodeNotFound          = "not_found"
	CodePaymentFailed     = "payment_verification_failed"
	CodeInternal          = "internal_error"
)

// respondError maps service errors to HTTP status codes and stable error
// codes. Unexpected errors are logged server-side and returned as a generic
// failure so internals never leak to the browser.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidText), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
	case errors.Is(err, service.ErrNoCreditsAvailable):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "error_code": CodeNoCredits})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "error_code": CodeRateLimited})
	case errors.Is(err, service.ErrWishNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_code": CodeNotFound})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "error_code": CodePaymentFailed})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "error_code": CodeInternal})
	}
}
