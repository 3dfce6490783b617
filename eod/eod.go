// Package eod orchestrates the end-of-day batch: per-account interest
// accrual, delinquency/NPA refresh, and monthly ECL staging, fanned out
// across a bounded worker pool with one transaction per account. Uses a
// buffered-channel semaphore (`workerPool := make(chan struct{}, n);
// workerPool <- struct{}{}; defer func() { <-workerPool }()`) sized by the
// caller, with a synchronized fan-out that aggregates a domain.BatchResult
// rather than firing goroutines and forgetting them.
package eod

import (
	"context"
	"sync"
	"time"

	"github.com/losplatform/engine/accrual"
	"github.com/losplatform/engine/delinquency"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/ecl"
	"github.com/losplatform/engine/internal/lock"
	"github.com/losplatform/engine/internal/metrics"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/repo"
)

// RunFunc is one account's unit of work within a batch. It receives an
// already-open transaction so the caller controls commit/rollback
// centrally — each unit of work is exactly one database transaction.
type RunFunc func(ctx context.Context, tx repo.Tx, accountID string) error

// Orchestrator fans an account ID list out across a bounded worker pool,
// one goroutine and one repo.Tx per account, serialized per account by
// lock.Manager.
type Orchestrator struct {
	uow     repo.UnitOfWork
	locks   *lock.Manager
	workers int
}

// New constructs an orchestrator with the given worker-pool size.
// workers <= 0 is treated as 1.
func New(uow repo.UnitOfWork, locks *lock.Manager, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{uow: uow, locks: locks, workers: workers}
}

// RunBatch executes fn for every account ID in ids, at most o.workers
// concurrently, each inside its own locked transaction, and aggregates the
// outcome into one domain.BatchResult. A single account's error never
// aborts the others. Respects ctx cancellation: accounts not yet started
// when ctx is done are recorded as failed with ctx.Err().
func (o *Orchestrator) RunBatch(ctx context.Context, batchKind string, ids []string, fn RunFunc) domain.BatchResult {
	m := metrics.Registry()
	start := time.Now()
	defer func() {
		m.BatchDuration.WithLabelValues(batchKind).Observe(time.Since(start).Seconds())
	}()

	var (
		mu     sync.Mutex
		result domain.BatchResult
		wg     sync.WaitGroup
	)
	pool := make(chan struct{}, o.workers)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			mu.Lock()
			result.Record(id, ctx.Err())
			mu.Unlock()
			continue
		default:
		}

		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			pool <- struct{}{}
			m.ActiveWorkers.WithLabelValues(batchKind).Inc()
			defer func() {
				<-pool
				m.ActiveWorkers.WithLabelValues(batchKind).Dec()
			}()

			err := o.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
				tx, err := o.uow.Begin(ctx)
				if err != nil {
					return err
				}
				if err := fn(ctx, tx, accountID); err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				return tx.Commit(ctx)
			})

			mu.Lock()
			result.Record(accountID, err)
			m.AccountsProcessed.WithLabelValues(batchKind).Inc()
			if err != nil {
				m.AccountsFailed.WithLabelValues(batchKind).Inc()
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return result
}

// RateResolver resolves an account's effective annual rate in force on a
// given date, covering both fixed-rate accounts and floating-rate
// accounts (latest-prior-publication fallback).
type RateResolver func(ctx context.Context, accountID string, d time.Time) (money.Rate, error)

// AccrualStep is the per-account unit of work for an accrual batch. asOf
// is the batch's as-of date.
func AccrualStep(asOf time.Time, rateAt RateResolver) RunFunc {
	return func(ctx context.Context, tx repo.Tx, accountID string) error {
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		first := acct.DisbursementDate
		if acct.LastAccrualDate != nil {
			first = acct.LastAccrualDate.AddDate(0, 0, 1)
		}
		if first.After(asOf) {
			return nil
		}
		rows, err := accrual.Accrue(accountID, acct.PrincipalOutstanding, first, asOf, acct.DayCount,
			func(d time.Time) (money.Rate, error) { return rateAt(ctx, accountID, d) },
			acct.CumulativeAccrued)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Accruals().Append(ctx, rows); err != nil {
			return err
		}
		last := rows[len(rows)-1]
		acct.CumulativeAccrued = last.Cumulative
		lastDate := last.Date
		acct.LastAccrualDate = &lastDate
		acct.InterestOutstanding = acct.InterestOutstanding.Add(sumAccrued(rows))
		return tx.Accounts().Save(ctx, acct)
	}
}

func sumAccrued(rows []domain.InterestAccrual) money.Amount {
	total := money.Zero
	for _, r := range rows {
		total = total.Add(r.Accrued)
	}
	return total
}

// OldestUnpaidDueDateFinder resolves the oldest unpaid installment's due
// date for an account, nil if none exists.
type OldestUnpaidDueDateFinder func(rows []domain.RepaymentScheduleRow) *time.Time

// OverdueTotals sums the unpaid principal/interest/fees components and
// counts the installments still outstanding across every row due on or
// before asOf. Shared by the delinquency batch and the single-account
// refresh_delinquency operation so both populate the same snapshot fields.
func OverdueTotals(rows []domain.RepaymentScheduleRow, asOf time.Time) (principal, interest, fees money.Amount, missed int) {
	principal, interest, fees = money.Zero, money.Zero, money.Zero
	for _, row := range rows {
		if row.DueDate.After(asOf) || row.IsFullyPaid() {
			continue
		}
		principal = principal.Add(row.RemainingPrincipal())
		interest = interest.Add(row.RemainingInterest())
		fees = fees.Add(row.RemainingFees())
		missed++
	}
	return principal, interest, fees, missed
}

// DelinquencyStep is the per-account unit of work for a delinquency/NPA
// refresh batch.
func DelinquencyStep(asOf time.Time, boundaries delinquency.Boundaries, oldestUnpaid OldestUnpaidDueDateFinder) RunFunc {
	return func(ctx context.Context, tx repo.Tx, accountID string) error {
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		rows, err := tx.Schedules().GetRows(ctx, accountID)
		if err != nil {
			return err
		}
		oldest := oldestUnpaid(rows)
		transition := delinquency.Evaluate(acct.IsNPA, acct.NPADate, oldest, asOf, boundaries)

		acct.DPD = transition.DPD
		acct.Bucket = transition.Bucket
		acct.IsNPA = transition.IsNPA
		acct.NPACategory = transition.NPACategory
		acct.NPADate = transition.NPADate
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			return err
		}

		overduePrincipal, overdueInterest, overdueFees, missed := OverdueTotals(rows, asOf)
		snapshot := domain.DelinquencySnapshot{
			AccountID:   accountID,
			Date:        asOf,
			DPD:         transition.DPD,
			Bucket:      transition.Bucket,
			IsNPA:       transition.IsNPA,
			NPACategory: transition.NPACategory,
			OverduePrincipal:       overduePrincipal,
			OverdueInterest:        overdueInterest,
			OverdueFees:            overdueFees,
			OldestDueDate:          oldest,
			MissedInstallmentCount: missed,
		}
		return tx.Delinquencies().Save(ctx, snapshot)
	}
}

// SecurityClassifier resolves an account's collateral security class for
// LGD lookup.
type SecurityClassifier func(ctx context.Context, accountID string) (domain.SecurityClass, error)

// ECLStep is the per-account unit of work for a monthly ECL staging and
// provisioning batch.
func ECLStep(asOf time.Time, factors ecl.RiskFactors, classOf SecurityClassifier) RunFunc {
	return func(ctx context.Context, tx repo.Tx, accountID string) error {
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		staging := ecl.StageAccount(ecl.StagingInput{
			AccountID:      accountID,
			AsOfDate:       asOf,
			IsWrittenOff:   acct.IsWrittenOff,
			IsNPA:          acct.IsNPA,
			DPD:            acct.DPD,
			IsRestructured: acct.IsRestructured,
			PreviousStage:  acct.ECLStage,
		})
		if err := tx.ECL().SaveStaging(ctx, staging); err != nil {
			return err
		}

		class, err := classOf(ctx, accountID)
		if err != nil {
			return err
		}
		provision := ecl.Provision(ecl.ProvisionInput{
			AccountID:            accountID,
			AsOfDate:             asOf,
			Stage:                staging.NewStage,
			PrincipalOutstanding: acct.PrincipalOutstanding,
			SecurityClass:        class,
			OpeningProvision:     acct.LastProvision,
		}, factors)
		if err := tx.ECL().SaveProvision(ctx, provision); err != nil {
			return err
		}

		acct.ECLStage = staging.NewStage
		acct.LastProvision = provision.ECLAmount
		return tx.Accounts().Save(ctx, acct)
	}
}

// RunResult bundles the three sub-batches' outcomes for one EOD cycle.
type RunResult struct {
	Accrual     domain.BatchResult
	Delinquency domain.BatchResult
	ECL         domain.BatchResult
	Combined    domain.BatchResult
}

// RunEOD executes the full end-of-day cycle: accrual, then delinquency
// refresh, then (when the caller signals it's an ECL staging day) ECL
// staging — each stage its own batch, so a failure in one stage's
// accounts doesn't block the next stage for unaffected accounts.
func (o *Orchestrator) RunEOD(ctx context.Context, ids []string, asOf time.Time, rateAt RateResolver,
	boundaries delinquency.Boundaries, oldestUnpaid OldestUnpaidDueDateFinder,
	runECL bool, factors ecl.RiskFactors, classOf SecurityClassifier) RunResult {

	var out RunResult
	out.Accrual = o.RunBatch(ctx, "accrual", ids, AccrualStep(asOf, rateAt))
	out.Combined.Merge(out.Accrual)

	out.Delinquency = o.RunBatch(ctx, "delinquency", ids, DelinquencyStep(asOf, boundaries, oldestUnpaid))
	out.Combined.Merge(out.Delinquency)

	if runECL {
		out.ECL = o.RunBatch(ctx, "ecl", ids, ECLStep(asOf, factors, classOf))
		out.Combined.Merge(out.ECL)
	}
	return out
}
