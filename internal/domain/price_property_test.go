package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestProperty_PriceOrderingMatchesDecimal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, 1_000_000_000_000).Draw(t, "a")
		b := rapid.Int64Range(0, 1_000_000_000_000).Draw(t, "b")

		pa, _ := PriceFromUnits(a)
		pb, _ := PriceFromUnits(b)

		if pa.Cmp(pb) != pa.Decimal().Cmp(pb.Decimal()) {
			t.Fatalf("Cmp(%v, %v) = %d disagrees with decimal Cmp", pa, pb, pa.Cmp(pb))
		}
		if (pa == pb) != (a == b) {
			t.Fatalf("equality of %v and %v disagrees with units", pa, pb)
		}
	})
}

func TestProperty_PriceStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(0, 1_000_000_000_000_000).Draw(t, "units")
		p, _ := PriceFromUnits(units)

		back, err := ParsePrice(p.String())
		if err != nil {
			t.Fatalf("ParsePrice(%q): %v", p.String(), err)
		}
		if back != p {
			t.Fatalf("round trip %d -> %q -> %d", units, p.String(), back.Units())
		}
	})
}

func TestProperty_PriceTrailingZerosIgnored(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(0, 1_000_000_000).Draw(t, "units")
		extra := rapid.IntRange(0, 6).Draw(t, "extraZeros")

		d := decimal.New(units, -PriceScale)
		s := d.StringFixed(int32(PriceScale + extra))

		p, err := ParsePrice(s)
		if err != nil {
			t.Fatalf("ParsePrice(%q): %v", s, err)
		}
		if p.Units() != units {
			t.Fatalf("ParsePrice(%q).Units() = %d, want %d", s, p.Units(), units)
		}
	})
}
