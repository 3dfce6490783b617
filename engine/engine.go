// Package engine is the loan-account facade: every transport (HTTP, RPC,
// CLI) maps its requests onto these operations, never onto the lower
// layers directly. Grounded on dafibh-fortuna's LoanService: a struct
// embedding a repo.UnitOfWork in place of a raw *pgxpool.Pool, validating
// input, then running each operation inside a lock-serialized, per-account
// transaction (pool.Begin/tx.Commit/defer tx.Rollback generalized to
// repo.Tx via internal/lock.Manager.WithLock).
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/delinquency"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/ecl"
	"github.com/losplatform/engine/eod"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/floatrate"
	"github.com/losplatform/engine/internal/lock"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/repo"
	"github.com/losplatform/engine/schedule"
)

// Engine wires the L1-L5 packages to persistence under per-account
// locking. It holds no business logic of its own beyond orchestration:
// each method composes pure functions from schedule/waterfall/accrual/
// delinquency/lifecycle/colending/fldg/ecl around one repo.Tx.
type Engine struct {
	uow         repo.UnitOfWork
	locks       *lock.Manager
	calendars   *calendar.Cache
	benchmarks  *floatrate.Cache
	boundaries  delinquency.Boundaries
	eclFactors  ecl.RiskFactors
	classifyFor eod.SecurityClassifier
}

// New constructs an Engine over the given persistence and shared
// read-mostly caches: calendars and benchmark curves are cached with
// refresh hooks, not re-read from storage per account.
// classifyFor resolves an account's collateral security class for ECL's LGD
// lookup; a nil classifier defaults every account to domain.Unsecured.
func New(uow repo.UnitOfWork, calendars *calendar.Cache, benchmarks *floatrate.Cache, boundaries delinquency.Boundaries, eclFactors ecl.RiskFactors, classifyFor eod.SecurityClassifier) *Engine {
	if classifyFor == nil {
		classifyFor = func(context.Context, string) (domain.SecurityClass, error) { return domain.Unsecured, nil }
	}
	return &Engine{
		uow:         uow,
		locks:       lock.NewManager(),
		calendars:   calendars,
		benchmarks:  benchmarks,
		boundaries:  boundaries,
		eclFactors:  eclFactors,
		classifyFor: classifyFor,
	}
}

func newID() string { return uuid.NewString() }

// resolveRate returns an account's effective annual rate on d: its fixed
// CurrentAnnual if Rate.Fixed, otherwise the floatrate cache's resolution
// of Rate.FloatSpec (latest-prior-publication fallback).
func (e *Engine) resolveRate(acct domain.LoanAccount, d time.Time) (money.Rate, error) {
	if acct.Rate.Fixed {
		return acct.Rate.CurrentAnnual, nil
	}
	return e.benchmarks.EffectiveRate(acct.Rate.FloatSpec, d)
}

func (e *Engine) scheduleInput(acct domain.LoanAccount) (schedule.Input, error) {
	var cal *calendar.Calendar
	if acct.CalendarID != "" {
		c, err := e.calendars.Get(acct.CalendarID)
		if err != nil {
			return schedule.Input{}, err
		}
		cal = c
	}
	rate, err := e.resolveRate(acct, acct.DisbursementDate)
	if err != nil {
		return schedule.Input{}, err
	}
	return schedule.Input{
		Principal:     acct.PrincipalDisbursed,
		AnnualRate:    rate,
		TenurePeriods: acct.TenurePeriods,
		Frequency:     acct.Frequency,
		Type:          acct.ScheduleType,
		FirstDueDate:  acct.FirstDueDate,
		DayCount:      acct.DayCount,
		Calendar:      cal,
		AdjustMode:    acct.BusinessDayMode,
		Step:          acct.ScheduleStep,
		Balloon:       acct.ScheduleBalloon,
		Moratorium:    acct.ScheduleMoratorium,
	}, nil
}

func toScheduleRows(accountID string, installments []schedule.Installment) []domain.RepaymentScheduleRow {
	rows := make([]domain.RepaymentScheduleRow, 0, len(installments))
	for _, g := range installments {
		rows = append(rows, domain.RepaymentScheduleRow{
			AccountID:         accountID,
			InstallmentNumber: g.Number,
			DueDate:           g.DueDate,
			OpeningBalance:    g.OpeningBalance,
			PrincipalDue:      g.PrincipalDue,
			InterestDue:       g.InterestDue,
			TotalDue:          g.PrincipalDue.Add(g.InterestDue),
			ClosingBalance:    g.ClosingBalance,
			Status:            domain.InstallmentPending,
		})
	}
	return rows
}

// GenerateSchedule computes generate_schedule: pure over account
// config, never persisted.
func (e *Engine) GenerateSchedule(ctx context.Context, accountID string) ([]domain.RepaymentScheduleRow, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acct, err := tx.Accounts().Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	in, err := e.scheduleInput(acct)
	if err != nil {
		return nil, err
	}
	installments, err := schedule.Generate(in)
	if err != nil {
		return nil, err
	}
	return toScheduleRows(accountID, installments), nil
}

// PersistSchedule performs persist_schedule: generates and
// persists, erroring if a schedule already exists for the account.
func (e *Engine) PersistSchedule(ctx context.Context, accountID string) error {
	return e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		existing, err := tx.Schedules().GetRows(ctx, accountID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errs.ConflictingStatef(accountID, "schedule already exists for account")
		}

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		in, err := e.scheduleInput(acct)
		if err != nil {
			return err
		}
		installments, err := schedule.Generate(in)
		if err != nil {
			return err
		}
		rows := toScheduleRows(accountID, installments)
		if err := tx.Schedules().ReplaceRows(ctx, accountID, rows); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}
