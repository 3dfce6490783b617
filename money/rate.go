package money

import "github.com/shopspring/decimal"

// Rate is a decimal interest rate (e.g. 0.12 for 12% per annum) carried to
// DefaultRatePrecision decimal places.
type Rate struct {
	d decimal.Decimal
}

// ZeroRate is the zero rate.
var ZeroRate = Rate{d: decimal.Zero}

// NewRateFromFloat constructs a Rate from a float64 fraction (0.12, not 12).
func NewRateFromFloat(f float64) Rate {
	return Rate{d: decimal.NewFromFloat(f).Round(DefaultRatePrecision)}
}

// NewRateFromPercent constructs a Rate from a percentage value (12.0 -> 0.12).
func NewRateFromPercent(percent float64) Rate {
	return Rate{d: decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)).Round(DefaultRatePrecision)}
}

// NewRateFromDecimal wraps a decimal.Decimal fraction.
func NewRateFromDecimal(d decimal.Decimal) Rate {
	return Rate{d: d.Round(DefaultRatePrecision)}
}

// Decimal exposes the underlying fraction.
func (r Rate) Decimal() decimal.Decimal { return r.d }

// Add returns r + o.
func (r Rate) Add(o Rate) Rate { return Rate{d: r.d.Add(o.d).Round(DefaultRatePrecision)} }

// Sub returns r - o.
func (r Rate) Sub(o Rate) Rate { return Rate{d: r.d.Sub(o.d).Round(DefaultRatePrecision)} }

// DivInt returns r / n (e.g. converting an annual rate to a per-period rate).
func (r Rate) DivInt(n int64) Rate {
	if n == 0 {
		panic("money: rate division by zero")
	}
	return Rate{d: r.d.DivRound(decimal.NewFromInt(n), int32(DefaultRatePrecision)+2).Round(DefaultRatePrecision)}
}

// Mul returns r * o as a plain decimal (used for excess-spread style ratios).
func (r Rate) Mul(o Rate) Rate { return Rate{d: r.d.Mul(o.d).Round(DefaultRatePrecision)} }

// IsZero reports whether r == 0.
func (r Rate) IsZero() bool { return r.d.IsZero() }

// Equal reports whether r and o represent the same numeric value. Rate
// wraps decimal.Decimal, whose internal *big.Int makes Go's == operator
// compare pointer identity rather than value — callers must use Equal
// instead of == for correct results.
func (r Rate) Equal(o Rate) bool { return r.d.Equal(o.d) }

// LessThan reports whether r < o.
func (r Rate) LessThan(o Rate) bool { return r.d.LessThan(o.d) }

// GreaterThan reports whether r > o.
func (r Rate) GreaterThan(o Rate) bool { return r.d.GreaterThan(o.d) }

// Clamp returns r bounded to [floor, cap]. A nil floor/cap leaves that side
// unbounded, per floor/cap semantics.
func (r Rate) Clamp(floor, cap *Rate) Rate {
	out := r
	if floor != nil && out.LessThan(*floor) {
		out = *floor
	}
	if cap != nil && out.GreaterThan(*cap) {
		out = *cap
	}
	return out
}

// OnePlusPowN computes (1+r)^n exactly via repeated decimal multiplication,
// for the small positive integer tenures the EMI formula is evaluated over.
// decimal.Decimal.Pow uses a floating-point-based exponentiation internally;
// repeated multiplication keeps the EMI formula free of any binary float
// rounding.
func (r Rate) OnePlusPowN(n int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(r.d)
	result := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		result = result.Mul(base)
	}
	return result
}

// String renders the rate to DefaultRatePrecision decimals.
func (r Rate) String() string { return r.d.StringFixed(DefaultRatePrecision) }

// MarshalJSON renders the rate as a JSON decimal.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.d.StringFixed(DefaultRatePrecision)), nil
}

// UnmarshalJSON parses a JSON number or string into a Rate.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	r.d = d.Round(DefaultRatePrecision)
	return nil
}
