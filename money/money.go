// Package money provides fixed-point decimal arithmetic for monetary amounts
// and interest rates, avoiding binary floating-point for monetary
// accumulation. It wraps github.com/shopspring/decimal.
package money

import "github.com/shopspring/decimal"

// DefaultMoneyPrecision is the number of decimal places an Amount is
// rounded to: 2, half-up to the cent. It is a constant;
// internal/config.Options.MoneyPrecision is not applied to it.
const DefaultMoneyPrecision = 2

// DefaultRatePrecision is the number of decimal places a Rate value carries.
const DefaultRatePrecision = 10

// Amount is a half-up-rounded monetary value.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// NewFromFloat constructs an Amount from a float64, rounding half-up to
// DefaultMoneyPrecision. Intended for literal test fixtures and ingestion
// of external numeric input, never for accumulation.
func NewFromFloat(f float64) Amount {
	return Amount{d: decimal.NewFromFloat(f).Round(DefaultMoneyPrecision)}
}

// NewFromString parses a decimal string (e.g. "100000.00").
func NewFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d: d.Round(DefaultMoneyPrecision)}, nil
}

// NewFromDecimal wraps an already-computed decimal.Decimal, rounding it
// half-up to DefaultMoneyPrecision.
func NewFromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.Round(DefaultMoneyPrecision)}
}

// Decimal exposes the underlying decimal.Decimal for callers (e.g. repository
// layers persisting to a NUMERIC column) that need the raw value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Add returns a + b, rounded half-up.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d).Round(DefaultMoneyPrecision)} }

// Sub returns a - b, rounded half-up.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d).Round(DefaultMoneyPrecision)} }

// Neg returns -a.
func (a Amount) Neg() Amount { return Amount{d: a.d.Neg()} }

// MulRate returns a * r, rounded half-up. Used for interest-on-balance and
// share-percentage computations.
func (a Amount) MulRate(r Rate) Amount {
	return Amount{d: a.d.Mul(r.d).Round(DefaultMoneyPrecision)}
}

// MulFrac multiplies by a plain decimal fraction (e.g. a day-count year
// fraction or a participation share/100), rounded half-up.
func (a Amount) MulFrac(frac decimal.Decimal) Amount {
	return Amount{d: a.d.Mul(frac).Round(DefaultMoneyPrecision)}
}

// DivInt divides by a positive integer divisor (e.g. spreading a principal
// across n installments), rounded half-up. Division by zero panics; callers
// must reject n<=0 as InvalidInput before reaching here.
func (a Amount) DivInt(n int64) Amount {
	if n == 0 {
		panic("money: division by zero")
	}
	return Amount{d: a.d.DivRound(decimal.NewFromInt(n), int32(DefaultMoneyPrecision)+2).Round(DefaultMoneyPrecision)}
}

// Cmp returns -1, 0, or 1 comparing a to b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// Equal reports whether a and b represent the same numeric value. Amount
// wraps decimal.Decimal, whose internal *big.Int makes Go's == operator
// compare pointer identity rather than value — callers must use Equal (or
// Cmp) instead of == for correct results.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

// LessThanOrEqual reports whether a <= b.
func (a Amount) LessThanOrEqual(b Amount) bool { return a.d.LessThanOrEqual(b.d) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }

// GreaterThanOrEqual reports whether a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// Sum adds a slice of Amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String renders the amount with exactly DefaultMoneyPrecision decimals.
func (a Amount) String() string {
	return a.d.StringFixed(DefaultMoneyPrecision)
}

// MarshalJSON renders the amount as a JSON number string-free decimal, e.g. 100.50.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.StringFixed(DefaultMoneyPrecision)), nil
}

// UnmarshalJSON parses a JSON number or string into an Amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	a.d = d.Round(DefaultMoneyPrecision)
	return nil
}
