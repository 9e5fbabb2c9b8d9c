package domain

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := Invalid(ErrInvalidSize, "size must be a positive integer")
	if err.Error() != "size must be a positive integer" {
		t.Errorf("Error() = %q, want %q", err.Error(), "size must be a positive integer")
	}
}

func TestValidationError_UnwrapsSentinel(t *testing.T) {
	var err error = Invalid(ErrInvalidPrice, "bad price")
	if !errors.Is(err, ErrInvalidPrice) {
		t.Error("errors.Is(err, ErrInvalidPrice) = false, want true")
	}
	if errors.Is(err, ErrInvalidSize) {
		t.Error("errors.Is(err, ErrInvalidSize) = true, want false")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should find *ValidationError")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidPrice,
		ErrInvalidSize,
		ErrInvalidSide,
		ErrInvalidOrderType,
		ErrInvalidPair,
		ErrInvalidOrderID,
		ErrUnknownMarket,
		ErrMarketAlreadyExists,
		ErrOrderNotFound,
		ErrInsufficientLiquidity,
		ErrEngineClosed,
		ErrOverFill,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}
