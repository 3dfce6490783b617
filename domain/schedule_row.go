package domain

import (
	"time"

	"github.com/losplatform/engine/money"
)

// InstallmentStatus is the closed tagged variant for a schedule row's
// payment progress.
type InstallmentStatus int

const (
	InstallmentPending InstallmentStatus = iota
	InstallmentPartiallyPaid
	InstallmentPaid
	InstallmentSkipped
)

func (s InstallmentStatus) String() string {
	switch s {
	case InstallmentPending:
		return "pending"
	case InstallmentPartiallyPaid:
		return "partially_paid"
	case InstallmentPaid:
		return "paid"
	case InstallmentSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// RepaymentScheduleRow is one installment under an account.
// Invariants: Σ PrincipalDue across rows equals outstanding principal at
// generation; ClosingBalance(n) = OpeningBalance(n+1); the last row's
// ClosingBalance is zero.
type RepaymentScheduleRow struct {
	AccountID         string
	InstallmentNumber int
	DueDate           time.Time

	OpeningBalance money.Amount
	PrincipalDue   money.Amount
	InterestDue    money.Amount
	FeesDue        money.Amount
	TotalDue       money.Amount
	ClosingBalance money.Amount

	PrincipalPaid money.Amount
	InterestPaid  money.Amount
	FeesPaid      money.Amount

	Status InstallmentStatus
}

// RemainingPrincipal is the component of PrincipalDue not yet paid.
func (r RepaymentScheduleRow) RemainingPrincipal() money.Amount {
	return r.PrincipalDue.Sub(r.PrincipalPaid)
}

// RemainingInterest is the component of InterestDue not yet paid.
func (r RepaymentScheduleRow) RemainingInterest() money.Amount {
	return r.InterestDue.Sub(r.InterestPaid)
}

// RemainingFees is the component of FeesDue not yet paid.
func (r RepaymentScheduleRow) RemainingFees() money.Amount {
	return r.FeesDue.Sub(r.FeesPaid)
}

// TotalPaid sums the three paid components.
func (r RepaymentScheduleRow) TotalPaid() money.Amount {
	return r.PrincipalPaid.Add(r.InterestPaid).Add(r.FeesPaid)
}

// IsFullyPaid reports whether every component has been paid in full.
func (r RepaymentScheduleRow) IsFullyPaid() bool {
	return r.TotalPaid().Cmp(r.TotalDue) >= 0
}
