// Package schedule generates an installment sequence for a loan's
// (principal, rate, tenure, frequency, type, first-due date, day-count
// convention, calendar) tuple. It walks opening balance -> interest ->
// principal -> closing balance per period, with a final-period residual
// true-up, using decimal.Decimal rather than float64 throughout.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// Type is the closed tagged variant for schedule generation algorithms. The
// variant set is closed: {EMI, InterestOnly, Bullet, StepUp,
// StepDown, Balloon, Moratorium}.
type Type int

const (
	EMI Type = iota
	InterestOnly
	Bullet
	StepUp
	StepDown
	Balloon
	Moratorium
)

func (t Type) String() string {
	switch t {
	case EMI:
		return "emi"
	case InterestOnly:
		return "interest_only"
	case Bullet:
		return "bullet"
	case StepUp:
		return "step_up"
	case StepDown:
		return "step_down"
	case Balloon:
		return "balloon"
	case Moratorium:
		return "moratorium"
	default:
		return "unknown"
	}
}

// ParseType maps an external string code to a Type.
func ParseType(code string) (Type, error) {
	switch code {
	case "emi":
		return EMI, nil
	case "interest_only":
		return InterestOnly, nil
	case "bullet":
		return Bullet, nil
	case "step_up":
		return StepUp, nil
	case "step_down":
		return StepDown, nil
	case "balloon":
		return Balloon, nil
	case "moratorium":
		return Moratorium, nil
	default:
		return 0, errs.InvalidInputf("", "unknown schedule type %q", code)
	}
}

// MoratoriumTreatment is the closed tagged variant for how a moratorium
// period's accrued interest is handled.
type MoratoriumTreatment int

const (
	MoratoriumCapitalize MoratoriumTreatment = iota
	MoratoriumCollectAfter
	MoratoriumWaive
)

// StepParams carries step-up/step-down-specific parameters.
type StepParams struct {
	StepPercent  money.Rate // e.g. 0.05 for a 5% EMI step at each boundary
	StepFrequency int       // number of installments between step boundaries
}

// BalloonParams carries balloon-specific parameters.
type BalloonParams struct {
	FinalFraction money.Rate // F in (0,1): fraction of principal remaining at the final installment
}

// MoratoriumParams carries moratorium-specific parameters.
type MoratoriumParams struct {
	Count     int
	Treatment MoratoriumTreatment
}

// Input is the full parameter set the generator dispatches on.
type Input struct {
	Principal money.Amount
	AnnualRate money.Rate
	TenurePeriods int
	Frequency Frequency
	Type Type
	FirstDueDate time.Time
	DayCount daycount.Convention
	Calendar *calendar.Calendar
	AdjustMode calendar.AdjustMode

	Step      StepParams
	Balloon   BalloonParams
	Moratorium MoratoriumParams
}

// Installment is one row of a generated schedule, prior to persistence.
type Installment struct {
	Number int
	DueDate time.Time

	OpeningBalance money.Amount
	PrincipalDue   money.Amount
	InterestDue    money.Amount
	ClosingBalance money.Amount
}

// validate enforces InvalidScheduleInput conditions.
func validate(in Input) error {
	if !in.Principal.IsPositive() {
		return errs.InvalidInputf("", "principal must be positive, got %s", in.Principal)
	}
	if in.TenurePeriods <= 0 {
		return errs.InvalidInputf("", "tenure periods must be positive, got %d", in.TenurePeriods)
	}
	if in.AnnualRate.LessThan(money.ZeroRate) {
		return errs.InvalidInputf("", "rate must be non-negative")
	}
	if in.Frequency.PeriodsPerYear() <= 0 {
		return errs.InvalidInputf("", "unknown periods_per_year for frequency %s", in.Frequency)
	}
	if in.Type == Balloon {
		f := in.Balloon.FinalFraction.Decimal()
		if f.IsNegative() || f.IsZero() || f.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return errs.InvalidInputf("", "balloon final fraction must be in (0,1)")
		}
	}
	return nil
}

// Generate dispatches to the variant-specific generator and business-day
// adjusts every due date. Referentially transparent: identical inputs and
// calendar produce an identical schedule.
func Generate(in Input) ([]Installment, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var rows []Installment
	var err error
	switch in.Type {
	case EMI:
		rows, err = generateEMI(in)
	case InterestOnly:
		rows, err = generateInterestOnly(in)
	case Bullet:
		rows, err = generateBullet(in)
	case StepUp, StepDown:
		rows, err = generateStep(in)
	case Balloon:
		rows, err = generateBalloon(in)
	case Moratorium:
		rows, err = generateMoratorium(in)
	default:
		return nil, errs.InvalidInputf("", "unknown schedule type %d", in.Type)
	}
	if err != nil {
		return nil, err
	}
	adjustDueDates(rows, in.Calendar, in.AdjustMode)
	return rows, nil
}

// adjustDueDates applies the business calendar after raw generation:
// adjustment happens after raw schedule generation and before
// installments are persisted.
func adjustDueDates(rows []Installment, cal *calendar.Calendar, mode calendar.AdjustMode) {
	if cal == nil {
		return
	}
	for i := range rows {
		rows[i].DueDate = cal.Adjust(rows[i].DueDate, mode)
	}
}

// dueDateSequence produces n raw due dates starting from firstDue, advanced
// one frequency step at a time.
func dueDateSequence(firstDue time.Time, freq Frequency, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = freq.step(firstDue, i)
	}
	return dates
}

// periodRate returns annual/periods_per_year, the r the EMI formula uses.
func periodRate(annual money.Rate, freq Frequency) money.Rate {
	return annual.DivInt(freq.PeriodsPerYear())
}
