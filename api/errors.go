package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP statuses. Provider failures answer 502 so
// the caller, or the provider's own redelivery, can retry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSeatTaken),
		errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrNothingToReverse),
		errors.Is(err, domain.ErrAlreadyReversed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoCaptureReference),
		errors.Is(err, domain.ErrUnknownMethod):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
