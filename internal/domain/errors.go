package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidSize           = errors.New("invalid_size")
	ErrInvalidSide           = errors.New("invalid_side")
	ErrInvalidOrderType      = errors.New("invalid_order_type")
	ErrInvalidPair           = errors.New("invalid_pair")
	ErrInvalidOrderID        = errors.New("invalid_order_id")
	ErrUnknownMarket         = errors.New("unknown_market")
	ErrMarketAlreadyExists   = errors.New("market_already_exists")
	ErrOrderNotFound         = errors.New("order_not_found")
	ErrInsufficientLiquidity = errors.New("insufficient_liquidity")
	ErrEngineClosed          = errors.New("engine_closed")

	// ErrOverFill means a fill tried to take more than an order has left.
	// It is only ever raised as a panic by the matching loop.
	ErrOverFill = errors.New("over_fill")
)

// ValidationError represents a request validation failure. It wraps one
// of the sentinel errors above so callers can still use errors.Is.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError around a sentinel.
func Invalid(err error, message string) *ValidationError {
	return &ValidationError{Err: err, Message: message}
}
