package domain

import "github.com/losplatform/engine/money"

// FLDGType is the closed tagged variant for guarantee tranche type.
type FLDGType int

const (
	FLDGFirstLoss FLDGType = iota
	FLDGSecondLoss
)

func (t FLDGType) String() string {
	switch t {
	case FLDGFirstLoss:
		return "first_loss"
	case FLDGSecondLoss:
		return "second_loss"
	default:
		return "unknown"
	}
}

// FLDGArrangement is the (originator, lender) guarantee cover.
// Invariant: CurrentBalance = EffectiveLimit - TotalUtilized + TotalRecovered,
// and 0 <= CurrentBalance <= EffectiveLimit.
type FLDGArrangement struct {
	ID          string
	Originator  string
	Lender      string
	Type        FLDGType

	EffectiveLimit money.Amount

	CoversPrincipal bool
	CoversInterest  bool
	CoversFees      bool

	CurrentBalance money.Amount
	TotalUtilized  money.Amount
	TotalRecovered money.Amount

	TriggerDPD int // default 90

	// FirstLossThreshold applies only to second-loss arrangements: the
	// cumulative first-loss exhaustion point beyond which this tranche
	// begins absorbing losses.
	FirstLossThreshold *money.Amount

	// ReplenishFirst controls whether recoveries replenish the FLDG
	// balance before any excess flows to the lender (true) or go to the
	// lender in full with no replenishment (false, the zero value).
	ReplenishFirst bool

	LenderSharePercent money.Rate
}

// FLDGUtilization is an immutable claim event.
type FLDGUtilization struct {
	ID              string
	ArrangementID   string
	AccountID       string
	TriggerReason   string

	Claimed  money.Amount
	Approved money.Amount

	BalanceBefore money.Amount
	BalanceAfter  money.Amount
}

// FLDGRecovery is an immutable recovery event against a utilization. A
// recovery never exceeds the originating utilization's approved amount;
// when the arrangement's ReplenishFirst is set, recoveries replenish the
// FLDG balance before any excess flows to the lender.
type FLDGRecovery struct {
	ID            string
	UtilizationID string
	Source        string

	Amount            money.Amount
	ReplenishedAmount money.Amount
	ExcessToLender    money.Amount
}
