package engine

import (
	"context"
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/lifecycle"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/waterfall"
)

// Restructure mutates the forward-only tail of the schedule and books a
// RestructureEvent, forcing the account's restructure flag (which in turn
// forces ECL stage >= 2 via the staging priority rule).
func (e *Engine) Restructure(ctx context.Context, accountID string, req lifecycle.RestructureRequest, now time.Time) (domain.RestructureEvent, error) {
	var event domain.RestructureEvent
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
		tenureRemaining := len(rows) - (req.EffectiveInstallment - 1)

		newRows, ev, err := lifecycle.Restructure(accountID, rows, acct.Rate.CurrentAnnual, tenureRemaining, acct.Frequency, req, now)
		if err != nil {
			return err
		}
		ev.ID = newID()
		if err := tx.Schedules().ReplaceRows(ctx, accountID, newRows); err != nil {
			return err
		}

		principal, interest, fees := waterfall.RecomputeOutstanding(newRows)
		acct.PrincipalOutstanding = principal
		acct.InterestOutstanding = interest
		acct.FeesOutstanding = fees
		acct.IsRestructured = true
		if ev.AfterRate.Decimal().Cmp(ev.BeforeRate.Decimal()) != 0 {
			acct.Rate.CurrentAnnual = ev.AfterRate
		}
		acct.TenurePeriods = ev.AfterTenure
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		if err := tx.Lifecycle().SaveRestructure(ctx, ev); err != nil {
			return err
		}
		event = ev
		return tx.Commit(ctx)
	})
	return event, err
}

func toPrepaymentState(acct domain.LoanAccount, overdue money.Amount) lifecycle.PrepaymentState {
	return lifecycle.PrepaymentState{
		PrincipalOutstanding: acct.PrincipalOutstanding,
		AccruedInterest:      acct.InterestOutstanding,
		OutstandingFees:      acct.FeesOutstanding,
		OverdueTotal:         overdue,
		CurrentRate:          acct.Rate.CurrentAnnual,
		Frequency:            acct.Frequency,
	}
}

// PrepaymentImpact computes prepayment_impact: a pure, non-persisted
// analysis of a prospective prepayment. emi and tenureRemaining are the
// account's current EMI and remaining installment count, supplied by the
// caller from its current schedule (kept out of PrepaymentState to
// preserve its read-only-of-account-fields purity).
func (e *Engine) PrepaymentImpact(ctx context.Context, accountID string, emi money.Amount, tenureRemaining int, overdue money.Amount, req lifecycle.PrepaymentRequest) (domain.PrepaymentImpact, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return domain.PrepaymentImpact{}, err
	}
	defer tx.Rollback(ctx)

	acct, err := tx.Accounts().Get(ctx, accountID)
	if err != nil {
		return domain.PrepaymentImpact{}, err
	}
	state := toPrepaymentState(acct, overdue)
	state.CurrentEMI = emi
	state.TenureRemaining = tenureRemaining
	return lifecycle.PrepaymentImpact(state, req)
}

// ApplyPrepayment performs apply_prepayment: books a Prepayment
// event, reduces outstanding principal, and on a foreclosure may close
// the account.
func (e *Engine) ApplyPrepayment(ctx context.Context, accountID string, emi money.Amount, tenureRemaining int, overdue money.Amount, req lifecycle.PrepaymentRequest, paidAt time.Time) (domain.Prepayment, error) {
	var prepayment domain.Prepayment
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
		state := toPrepaymentState(acct, overdue)
		state.CurrentEMI = emi
		state.TenureRemaining = tenureRemaining

		p, err := lifecycle.ApplyPrepayment(accountID, state, req, paidAt)
		if err != nil {
			return err
		}
		p.ID = newID()

		acct.PrincipalOutstanding = acct.PrincipalOutstanding.Sub(p.PrincipalPrepaid)
		if acct.PrincipalOutstanding.IsNegative() {
			acct.PrincipalOutstanding = money.Zero
		}

		if req.Action == domain.PrepaymentForeclosure {
			closureState := lifecycle.ClosureState{
				PrincipalOutstanding: acct.PrincipalOutstanding,
				InterestOutstanding:  acct.InterestOutstanding,
				FeesOutstanding:      acct.FeesOutstanding,
				DPD:                  acct.DPD,
				NPACategory:          acct.NPACategory,
			}
			if _, err := lifecycle.Close(accountID, closureState, domain.ClosureNormal, "foreclosure", paidAt); err != nil {
				return err
			}
			acct.Status = domain.AccountClosed
			acct.PrincipalOutstanding = money.Zero
			acct.InterestOutstanding = money.Zero
			acct.FeesOutstanding = money.Zero
		}

		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		if err := tx.Lifecycle().SavePrepayment(ctx, p); err != nil {
			return err
		}
		prepayment = p
		return tx.Commit(ctx)
	})
	return prepayment, err
}

// CloseAccount performs close_account: normal closure requires
// zero balances; settlement_OTS books the residual as a WriteOff.
func (e *Engine) CloseAccount(ctx context.Context, accountID string, closureType domain.ClosureType, reason string, closedAt time.Time) (domain.AccountStatus, error) {
	var status domain.AccountStatus
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
		state := lifecycle.ClosureState{
			PrincipalOutstanding: acct.PrincipalOutstanding,
			InterestOutstanding:  acct.InterestOutstanding,
			FeesOutstanding:      acct.FeesOutstanding,
			DPD:                  acct.DPD,
			NPACategory:          acct.NPACategory,
		}
		wo, err := lifecycle.Close(accountID, state, closureType, reason, closedAt)
		if err != nil {
			return err
		}
		if wo != nil {
			wo.ID = newID()
			if err := tx.Lifecycle().SaveWriteOff(ctx, *wo); err != nil {
				return err
			}
			acct.IsWrittenOff = true
			acct.ECLStage = domain.ECLStage3
		}
		acct.Status = domain.AccountClosed
		acct.PrincipalOutstanding = money.Zero
		acct.InterestOutstanding = money.Zero
		acct.FeesOutstanding = money.Zero
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		status = acct.Status
		return tx.Commit(ctx)
	})
	return status, err
}

// WriteOffComponents lets a caller of WriteOff cap the write-off to a
// specific amount rather than the full outstanding balance.
type WriteOffComponents struct {
	Amount *money.Amount
}

// WriteOff performs write_off: books a full or partial write-off
// and forces the account's ECL stage to 3.
func (e *Engine) WriteOff(ctx context.Context, accountID string, components WriteOffComponents, reason string, writtenOffAt time.Time) (domain.WriteOff, error) {
	var wo domain.WriteOff
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
		state := lifecycle.ClosureState{
			PrincipalOutstanding: acct.PrincipalOutstanding,
			InterestOutstanding:  acct.InterestOutstanding,
			FeesOutstanding:      acct.FeesOutstanding,
			DPD:                  acct.DPD,
			NPACategory:          acct.NPACategory,
		}
		w, err := lifecycle.WriteOffAccount(accountID, state, components.Amount, reason, writtenOffAt)
		if err != nil {
			return err
		}
		w.ID = newID()

		acct.PrincipalOutstanding = acct.PrincipalOutstanding.Sub(w.PrincipalWrittenOff)
		acct.InterestOutstanding = acct.InterestOutstanding.Sub(w.InterestWrittenOff)
		acct.FeesOutstanding = acct.FeesOutstanding.Sub(w.FeesWrittenOff)
		acct.IsWrittenOff = true
		acct.ECLStage = domain.ECLStage3
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		if err := tx.Lifecycle().SaveWriteOff(ctx, w); err != nil {
			return err
		}
		wo = w
		return tx.Commit(ctx)
	})
	return wo, err
}

// RecordWriteOffRecovery books a recovery against a prior write-off.
func (e *Engine) RecordWriteOffRecovery(ctx context.Context, accountID, writeOffID, source string, amount money.Amount, recoveredAt time.Time) (domain.WriteOffRecovery, error) {
	if accountID == "" {
		return domain.WriteOffRecovery{}, errs.InvalidInputf(writeOffID, "account id is required to serialize the recovery")
	}
	var recovery domain.WriteOffRecovery
	err := e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		r, err := lifecycle.RecordWriteOffRecovery(writeOffID, source, amount, recoveredAt)
		if err != nil {
			return err
		}
		r.ID = newID()
		if err := tx.Lifecycle().SaveWriteOffRecovery(ctx, r); err != nil {
			return err
		}
		recovery = r
		return tx.Commit(ctx)
	})
	return recovery, err
}
