package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional decimal digits a Price can carry.
const PriceScale = 8

var (
	priceMaxUnits = decimal.NewFromInt(math.MaxInt64)
)

// Price is an exact fixed-point monetary value stored as an integer number
// of 10^-PriceScale units. Two prices are equal iff their unit counts are
// equal, so Price is safe to use as a map key and compares with ==.
type Price struct {
	units int64
}

// NewPrice converts a decimal to a Price. It returns ErrInvalidPrice for
// negative values, values with more than PriceScale fractional digits,
// and values that do not fit in int64 units.
func NewPrice(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, fmt.Errorf("%w: %s is negative", ErrInvalidPrice, d.String())
	}
	shifted := d.Shift(PriceScale)
	if !shifted.IsInteger() {
		return Price{}, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidPrice, d.String(), PriceScale)
	}
	if shifted.GreaterThan(priceMaxUnits) {
		return Price{}, fmt.Errorf("%w: %s is out of range", ErrInvalidPrice, d.String())
	}
	return Price{units: shifted.IntPart()}, nil
}

// ParsePrice parses a decimal string such as "101.25".
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidPrice, s)
	}
	return NewPrice(d)
}

// PriceFromFloat converts a float64, rejecting NaN and infinities. The
// float is first rendered to its shortest decimal form, so 0.1 becomes
// exactly 0.1 rather than its binary approximation.
func PriceFromFloat(f float64) (Price, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Price{}, fmt.Errorf("%w: %v is not finite", ErrInvalidPrice, f)
	}
	return NewPrice(decimal.NewFromFloat(f))
}

// PriceFromUnits builds a Price directly from its integer representation.
func PriceFromUnits(units int64) (Price, error) {
	if units < 0 {
		return Price{}, fmt.Errorf("%w: %d units is negative", ErrInvalidPrice, units)
	}
	return Price{units: units}, nil
}

// MustPrice parses s and panics on error. Intended for tests and constants.
func MustPrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Units returns the integer representation in 10^-PriceScale units.
func (p Price) Units() int64 {
	return p.units
}

// IsZero reports whether p is the zero price.
func (p Price) IsZero() bool {
	return p.units == 0
}

// Cmp returns -1, 0 or +1 depending on whether p is less than, equal to,
// or greater than q.
func (p Price) Cmp(q Price) int {
	switch {
	case p.units < q.units:
		return -1
	case p.units > q.units:
		return 1
	}
	return 0
}

// Less reports whether p < q.
func (p Price) Less(q Price) bool {
	return p.units < q.units
}

// Decimal returns the exact decimal value of p.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(p.units, -PriceScale)
}

// String renders the canonical decimal form without trailing zeros.
func (p Price) String() string {
	return p.Decimal().String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Price) UnmarshalText(b []byte) error {
	v, err := ParsePrice(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
