// Package domain holds the loan-lifecycle engine's entity shapes: the
// aggregate root LoanAccount plus its schedule, payment, accrual,
// delinquency, participation, FLDG, ECL, and lifecycle-event satellites.
// Entities are created by deterministic functions of prior state and an
// input event; they are mutated only via the status/running-total fields
// this package documents per field.
package domain

import (
	"time"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/floatrate"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
)

// AccountStatus is the closed tagged variant for a LoanAccount's lifecycle
// state.
type AccountStatus int

const (
	AccountActive AccountStatus = iota
	AccountClosed
	AccountWrittenOff
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountClosed:
		return "closed"
	case AccountWrittenOff:
		return "written_off"
	default:
		return "unknown"
	}
}

// DelinquencyBucket is the closed tagged variant for DPD-derived buckets.
type DelinquencyBucket int

const (
	BucketCurrent DelinquencyBucket = iota
	BucketSMA0
	BucketSMA1
	BucketSMA2
	BucketNPASubstandard
	BucketNPADoubtful
	BucketNPALoss
)

func (b DelinquencyBucket) String() string {
	switch b {
	case BucketCurrent:
		return "current"
	case BucketSMA0:
		return "sma_0"
	case BucketSMA1:
		return "sma_1"
	case BucketSMA2:
		return "sma_2"
	case BucketNPASubstandard:
		return "npa_substandard"
	case BucketNPADoubtful:
		return "npa_doubtful"
	case BucketNPALoss:
		return "npa_loss"
	default:
		return "unknown"
	}
}

// NPACategory is the closed tagged variant for the regulatory NPA
// classification, a subset of DelinquencyBucket's NPA buckets.
type NPACategory int

const (
	NPANone NPACategory = iota
	NPASubstandard
	NPADoubtful
	NPALoss
)

func (c NPACategory) String() string {
	switch c {
	case NPANone:
		return "none"
	case NPASubstandard:
		return "substandard"
	case NPADoubtful:
		return "doubtful"
	case NPALoss:
		return "loss"
	default:
		return "unknown"
	}
}

// ECLStage is the closed tagged variant for IFRS-9 staging.
type ECLStage int

const (
	ECLStage1 ECLStage = 1
	ECLStage2 ECLStage = 2
	ECLStage3 ECLStage = 3
)

// RateProvenance captures whether an account's current rate is fixed or
// floating, and if floating, the benchmark spec it was last resolved from.
type RateProvenance struct {
	Fixed        bool
	FloatSpec    floatrate.Spec
	LastResetOn  time.Time
	CurrentAnnual money.Rate
}

// LoanAccount is the aggregate root. Invariant:
// PrincipalOutstanding = PrincipalDisbursed - Σ(principal paid in
// allocations) ± restructure deltas.
type LoanAccount struct {
	ID         string
	ProductRef string

	PrincipalDisbursed   money.Amount
	PrincipalOutstanding money.Amount
	InterestOutstanding  money.Amount
	FeesOutstanding      money.Amount

	Rate RateProvenance

	TenurePeriods     int
	Frequency         schedule.Frequency
	ScheduleType      schedule.Type
	ScheduleStep      schedule.StepParams
	ScheduleBalloon   schedule.BalloonParams
	ScheduleMoratorium schedule.MoratoriumParams
	DayCount          daycount.Convention
	CalendarID        string
	BusinessDayMode   calendar.AdjustMode
	DisbursementDate  time.Time
	FirstDueDate      time.Time

	Status AccountStatus

	DPD              int
	Bucket           DelinquencyBucket
	IsNPA            bool
	NPADate          *time.Time
	NPACategory      NPACategory
	IsRestructured   bool
	IsWrittenOff     bool

	ECLStage          ECLStage
	LastProvision     money.Amount

	CumulativeAccrued money.Amount
	LastAccrualDate   *time.Time
}
