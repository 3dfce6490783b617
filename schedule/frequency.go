package schedule

import (
	"time"

	"github.com/losplatform/engine/errs"
)

// Frequency is a closed tagged variant for payment frequency.
type Frequency int

const (
	Monthly Frequency = iota
	Quarterly
	HalfYearly
	Annually
)

func (f Frequency) String() string {
	switch f {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case HalfYearly:
		return "half_yearly"
	case Annually:
		return "annually"
	default:
		return "unknown"
	}
}

// ParseFrequency maps an external string code to a Frequency.
func ParseFrequency(code string) (Frequency, error) {
	switch code {
	case "monthly":
		return Monthly, nil
	case "quarterly":
		return Quarterly, nil
	case "half_yearly":
		return HalfYearly, nil
	case "annually":
		return Annually, nil
	default:
		return 0, errs.InvalidInputf("", "unknown frequency %q", code)
	}
}

// PeriodsPerYear returns the number of installment periods per year, the
// denominator the EMI formula's r = annual/periods_per_year uses.
func (f Frequency) PeriodsPerYear() int64 {
	switch f {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case HalfYearly:
		return 2
	case Annually:
		return 1
	default:
		return 12
	}
}

// step advances d by one frequency period, producing the raw due-date
// sequence prior to business-day adjustment.
func (f Frequency) step(d time.Time, periods int) time.Time {
	switch f {
	case Quarterly:
		return d.AddDate(0, 3*periods, 0)
	case HalfYearly:
		return d.AddDate(0, 6*periods, 0)
	case Annually:
		return d.AddDate(periods, 0, 0)
	default:
		return d.AddDate(0, periods, 0)
	}
}
