// Package waterfall applies a received payment amount to outstanding
// schedule rows in priority order. The allocator is polymorphic over the
// Policy interface: fees-then-interest-then-principal is the default, but
// a product may carry an alternative component order — modeled as a
// capability rather than hard-coded, following the ordered-posting shape
// of mcclellann/fredLoan's pkg/ledger.RecordPayment.
package waterfall

import (
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// Component tags one of a schedule row's three due components.
type Component int

const (
	Fees Component = iota
	Interest
	Principal
)

// Policy yields the component allocation priority for a given product. It
// is a capability, not a hard-coded order, so a product can carry an
// alternative sequence.
type Policy interface {
	Priority() []Component
}

// DefaultPolicy implements the default fees -> interest -> principal
// order.
type DefaultPolicy struct{}

// Priority returns the fixed fees, interest, principal order.
func (DefaultPolicy) Priority() []Component {
	return []Component{Fees, Interest, Principal}
}

// Result is the outcome of applying one payment against a schedule.
type Result struct {
	Allocations []domain.PaymentAllocation
	Unallocated money.Amount
}

// Apply walks rows (already ordered by due date ascending) from the oldest
// unpaid installment, allocating amount within each row per policy's
// component order, capped at each component's remaining due. Rows are
// mutated in place to reflect the new paid totals and status. Stops when
// amount is exhausted; any remainder is returned as Unallocated.
func Apply(rows []domain.RepaymentScheduleRow, amount money.Amount, policy Policy) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, errs.InvalidInputf("", "payment amount must be positive, got %s", amount)
	}
	if policy == nil {
		policy = DefaultPolicy{}
	}
	remaining := amount
	var allocations []domain.PaymentAllocation

	for i := range rows {
		row := &rows[i]
		if remaining.IsZero() {
			break
		}
		if row.IsFullyPaid() {
			continue
		}
		alloc := domain.PaymentAllocation{
			AccountID:         row.AccountID,
			InstallmentNumber: row.InstallmentNumber,
		}
		for _, comp := range policy.Priority() {
			if remaining.IsZero() {
				break
			}
			switch comp {
			case Fees:
				take := money.Min(remaining, row.RemainingFees())
				row.FeesPaid = row.FeesPaid.Add(take)
				alloc.Fees = alloc.Fees.Add(take)
				remaining = remaining.Sub(take)
			case Interest:
				take := money.Min(remaining, row.RemainingInterest())
				row.InterestPaid = row.InterestPaid.Add(take)
				alloc.Interest = alloc.Interest.Add(take)
				remaining = remaining.Sub(take)
			case Principal:
				take := money.Min(remaining, row.RemainingPrincipal())
				row.PrincipalPaid = row.PrincipalPaid.Add(take)
				alloc.Principal = alloc.Principal.Add(take)
				remaining = remaining.Sub(take)
			}
		}
		if row.IsFullyPaid() {
			row.Status = domain.InstallmentPaid
		} else if !alloc.Total().IsZero() {
			row.Status = domain.InstallmentPartiallyPaid
		}
		if !alloc.Total().IsZero() {
			allocations = append(allocations, alloc)
		}
	}

	return Result{Allocations: allocations, Unallocated: remaining}, nil
}

// RecomputeOutstanding sums the remaining due across rows — the
// post-allocation account-level totals a payment application needs.
func RecomputeOutstanding(rows []domain.RepaymentScheduleRow) (principal, interest, fees money.Amount) {
	principal, interest, fees = money.Zero, money.Zero, money.Zero
	for _, r := range rows {
		principal = principal.Add(r.RemainingPrincipal())
		interest = interest.Add(r.RemainingInterest())
		fees = fees.Add(r.RemainingFees())
	}
	return
}

// OldestUnpaidDueDate returns the due date of the earliest row whose total
// paid is less than its total due, or nil if none — the delinquency-DPD
// anchor.
func OldestUnpaidDueDate(rows []domain.RepaymentScheduleRow) *time.Time {
	for _, r := range rows {
		if !r.IsFullyPaid() {
			d := r.DueDate
			return &d
		}
	}
	return nil
}
