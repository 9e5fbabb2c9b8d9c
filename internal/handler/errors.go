package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/efreitasn/matchcore/internal/domain"
)

// statusFor maps a domain error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "validation_error"
	}

	switch {
	case errors.Is(err, domain.ErrUnknownMarket):
		return http.StatusNotFound, "unknown_market"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrMarketAlreadyExists):
		return http.StatusConflict, "market_already_exists"
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		return http.StatusConflict, "insufficient_liquidity"
	case errors.Is(err, domain.ErrEngineClosed):
		return http.StatusServiceUnavailable, "engine_closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeDomainError writes the standard error response for err.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}
	WriteError(w, status, code, message)
}
