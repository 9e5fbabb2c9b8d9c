package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var pairSymbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// TradingPair identifies a market: Base is what is bought or sold,
// Quote is what prices are denominated in. It is comparable and used
// only as a map key.
type TradingPair struct {
	Base  string
	Quote string
}

// NewTradingPair validates both symbols.
func NewTradingPair(base, quote string) (TradingPair, error) {
	if !pairSymbolRegex.MatchString(base) {
		return TradingPair{}, Invalid(ErrInvalidPair, fmt.Sprintf("base must match %s", pairSymbolRegex))
	}
	if !pairSymbolRegex.MatchString(quote) {
		return TradingPair{}, Invalid(ErrInvalidPair, fmt.Sprintf("quote must match %s", pairSymbolRegex))
	}
	if base == quote {
		return TradingPair{}, Invalid(ErrInvalidPair, "base and quote must differ")
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

// ParseTradingPair accepts "BASE/QUOTE" or "BASE-QUOTE".
func ParseTradingPair(s string) (TradingPair, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	base, quote, ok := strings.Cut(s, sep)
	if !ok {
		return TradingPair{}, Invalid(ErrInvalidPair, fmt.Sprintf("pair %q must look like BASE/QUOTE", s))
	}
	return NewTradingPair(base, quote)
}

// MustPair parses s and panics on error.
func MustPair(s string) TradingPair {
	p, err := ParseTradingPair(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

// Slug renders the pair in the URL-safe "BASE-QUOTE" form.
func (p TradingPair) Slug() string {
	return p.Base + "-" + p.Quote
}

// MarshalText implements encoding.TextMarshaler.
func (p TradingPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TradingPair) UnmarshalText(b []byte) error {
	v, err := ParseTradingPair(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
