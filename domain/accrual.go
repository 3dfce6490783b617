package domain

import (
	"time"

	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/money"
)

// AccrualStatus is the closed tagged variant for an InterestAccrual row.
type AccrualStatus int

const (
	AccrualAccrued AccrualStatus = iota
	AccrualPosted
	AccrualReversed
)

func (s AccrualStatus) String() string {
	switch s {
	case AccrualAccrued:
		return "accrued"
	case AccrualPosted:
		return "posted"
	case AccrualReversed:
		return "reversed"
	default:
		return "unknown"
	}
}

// InterestAccrual is a daily record keyed by (account, date).
// Invariant: at most one non-reversed row per (account, date); Cumulative =
// previous Cumulative + Accrued.
type InterestAccrual struct {
	AccountID        string
	Date             time.Time
	OpeningPrincipal money.Amount
	RateApplied      money.Rate
	DayCount         daycount.Convention
	Accrued          money.Amount
	Cumulative       money.Amount
	Status           AccrualStatus
}
