package handler

import (
	"context"
	"errors"
	"net/http"

	"crude-outlook/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPage):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidHorizon), errors.Is(err, domain.ErrInvalidHyperparameters):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
