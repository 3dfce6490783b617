package engine

import (
	"context"
	"time"

	"github.com/losplatform/engine/accrual"
	"github.com/losplatform/engine/delinquency"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/eod"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/waterfall"
)

// PaymentOutcome is apply_payment's result: {allocations, unallocated,
// new_dpd}.
type PaymentOutcome struct {
	Allocations []domain.PaymentAllocation
	Unallocated money.Amount
	NewDPD      int
}

// ApplyPayment performs apply_payment, idempotent by external_ref:
// a repeat call with the same (account_id, external_ref) returns the
// originally recorded outcome without re-applying the waterfall.
func (e *Engine) ApplyPayment(ctx context.Context, accountID string, amount money.Amount, paidAt time.Time, channel domain.Channel, externalRef string) (PaymentOutcome, error) {
	var out PaymentOutcome
	err := e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if externalRef != "" {
			existing, err := tx.Payments().FindByExternalRef(ctx, accountID, externalRef)
			if err != nil {
				return err
			}
			if existing != nil {
				allocs, err := tx.Payments().AllocationsForPayment(ctx, existing.ID)
				if err != nil {
					return err
				}
				acct, err := tx.Accounts().Get(ctx, accountID)
				if err != nil {
					return err
				}
				out = PaymentOutcome{Allocations: allocs, Unallocated: existing.Unallocated, NewDPD: acct.DPD}
				return nil
			}
		}

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		rows, err := tx.Schedules().GetRows(ctx, accountID)
		if err != nil {
			return err
		}

		result, err := waterfall.Apply(rows, amount, waterfall.DefaultPolicy{})
		if err != nil {
			return err
		}
		if err := tx.Schedules().ReplaceRows(ctx, accountID, rows); err != nil {
			return err
		}

		paymentID := newID()
		for i := range result.Allocations {
			result.Allocations[i].PaymentID = paymentID
		}

		payment := domain.Payment{
			ID:          paymentID,
			AccountID:   accountID,
			Amount:      amount,
			PaidAt:      paidAt,
			Channel:     channel,
			ExternalRef: externalRef,
			Unallocated: result.Unallocated,
		}
		if err := tx.Payments().Save(ctx, payment, result.Allocations); err != nil {
			return err
		}

		principal, interest, fees := waterfall.RecomputeOutstanding(rows)
		acct.PrincipalOutstanding = principal
		acct.InterestOutstanding = interest
		acct.FeesOutstanding = fees

		transition := delinquency.Evaluate(acct.IsNPA, acct.NPADate, waterfall.OldestUnpaidDueDate(rows), paidAt, e.boundaries)
		acct.DPD = transition.DPD
		acct.Bucket = transition.Bucket
		acct.IsNPA = transition.IsNPA
		acct.NPACategory = transition.NPACategory
		acct.NPADate = transition.NPADate
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}

		out = PaymentOutcome{Allocations: result.Allocations, Unallocated: result.Unallocated, NewDPD: transition.DPD}
		return tx.Commit(ctx)
	})
	return out, err
}

// Accrue performs accrue: produces and persists the InterestAccrual
// rows for one account up to asOf, returning the last row.
func (e *Engine) Accrue(ctx context.Context, accountID string, asOf time.Time) (domain.InterestAccrual, error) {
	var last domain.InterestAccrual
	err := e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		first := accrual.NextAccrualDate(acct.LastAccrualDate, acct.DisbursementDate)
		if first.After(asOf) {
			return nil
		}
		rows, err := accrual.Accrue(accountID, acct.PrincipalOutstanding, first, asOf, acct.DayCount,
			func(d time.Time) (money.Rate, error) { return e.resolveRate(acct, d) }, acct.CumulativeAccrued)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Accruals().Append(ctx, rows); err != nil {
			return err
		}
		last = rows[len(rows)-1]
		acct.CumulativeAccrued = last.Cumulative
		lastDate := last.Date
		acct.LastAccrualDate = &lastDate
		total := money.Zero
		for _, r := range rows {
			total = total.Add(r.Accrued)
		}
		acct.InterestOutstanding = acct.InterestOutstanding.Add(total)
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	return last, err
}

// RunAccrualBatch performs run_accrual_batch: accrues every active
// account up to asOf, via the eod worker pool.
func (e *Engine) RunAccrualBatch(ctx context.Context, asOf time.Time, workers int) (domain.BatchResult, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}
	ids, err := tx.Accounts().ListActive(ctx)
	tx.Rollback(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}

	o := eod.New(e.uow, e.locks, workers)
	rateAt := func(ctx context.Context, accountID string, d time.Time) (money.Rate, error) {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return money.ZeroRate, err
		}
		defer tx.Rollback(ctx)
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return money.ZeroRate, err
		}
		return e.resolveRate(acct, d)
	}
	return o.RunBatch(ctx, "accrual", ids, eod.AccrualStep(asOf, rateAt)), nil
}

// RefreshDelinquency performs refresh_delinquency: recomputes DPD,
// bucket, and sticky-NPA state for one account as of asOf.
func (e *Engine) RefreshDelinquency(ctx context.Context, accountID string, asOf time.Time) (domain.DelinquencySnapshot, error) {
	var snapshot domain.DelinquencySnapshot
	err := e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		rows, err := tx.Schedules().GetRows(ctx, accountID)
		if err != nil {
			return err
		}
		oldest := waterfall.OldestUnpaidDueDate(rows)
		transition := delinquency.Evaluate(acct.IsNPA, acct.NPADate, oldest, asOf, e.boundaries)

		acct.DPD = transition.DPD
		acct.Bucket = transition.Bucket
		acct.IsNPA = transition.IsNPA
		acct.NPACategory = transition.NPACategory
		acct.NPADate = transition.NPADate
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}

		overduePrincipal, overdueInterest, overdueFees, missed := eod.OverdueTotals(rows, asOf)
		snapshot = domain.DelinquencySnapshot{
			AccountID:              accountID,
			Date:                   asOf,
			DPD:                    transition.DPD,
			Bucket:                 transition.Bucket,
			IsNPA:                  transition.IsNPA,
			NPACategory:            transition.NPACategory,
			OverduePrincipal:       overduePrincipal,
			OverdueInterest:        overdueInterest,
			OverdueFees:            overdueFees,
			OldestDueDate:          oldest,
			MissedInstallmentCount: missed,
		}
		if err := tx.Delinquencies().Save(ctx, snapshot); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	return snapshot, err
}
