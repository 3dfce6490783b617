// Package repo defines the repository interfaces and transactional
// UnitOfWork contract: only the entity shapes and the transactional
// contract are in scope here — a concrete persistence implementation is
// not. Grounded on dafibh-fortuna's LoanService, which holds a
// *pgxpool.Pool alongside repository interfaces (domain.LoanRepository,
// domain.TransactionRepository, ...) and opens one transaction per
// business operation (pool.Begin/tx.Commit/defer tx.Rollback).
package repo

import (
	"context"
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

// AccountRepo persists LoanAccount aggregates.
type AccountRepo interface {
	Get(ctx context.Context, accountID string) (domain.LoanAccount, error)
	Save(ctx context.Context, account domain.LoanAccount) error
	ListActive(ctx context.Context) ([]string, error)
}

// ScheduleRepo persists an account's repayment schedule rows.
type ScheduleRepo interface {
	GetRows(ctx context.Context, accountID string) ([]domain.RepaymentScheduleRow, error)
	ReplaceRows(ctx context.Context, accountID string, rows []domain.RepaymentScheduleRow) error
}

// PaymentRepo persists payments and their allocations, and supports the
// idempotency-by-external-reference lookup `apply_payment` needs. A single
// payment can span several schedule rows, so Save takes the full
// allocation slice the waterfall produced for it.
type PaymentRepo interface {
	FindByExternalRef(ctx context.Context, accountID, externalRef string) (*domain.Payment, error)
	Save(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation) error
	AllocationsForPayment(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error)
}

// AccrualRepo persists daily interest accrual rows.
type AccrualRepo interface {
	Append(ctx context.Context, rows []domain.InterestAccrual) error
	LastAccrualDate(ctx context.Context, accountID string) (*time.Time, error)
}

// DelinquencyRepo persists delinquency snapshots.
type DelinquencyRepo interface {
	Save(ctx context.Context, snapshot domain.DelinquencySnapshot) error
}

// LifecycleRepo persists restructure, prepayment, and closure/write-off
// events.
type LifecycleRepo interface {
	SaveRestructure(ctx context.Context, event domain.RestructureEvent) error
	SavePrepayment(ctx context.Context, prepayment domain.Prepayment) error
	SaveWriteOff(ctx context.Context, writeOff domain.WriteOff) error
	SaveWriteOffRecovery(ctx context.Context, recovery domain.WriteOffRecovery) error
}

// ParticipationRepo persists co-lending participations and partner ledger
// postings.
type ParticipationRepo interface {
	ListByAccount(ctx context.Context, accountID string) ([]domain.LoanParticipation, error)
	SaveLedgerEntries(ctx context.Context, entries []domain.PartnerLedgerEntry) error
	LastRunningBalance(ctx context.Context, accountID, partnerID string, component domain.LedgerComponent) (money.Amount, error)
}

// FLDGRepo persists FLDG arrangements, utilizations, and recoveries.
type FLDGRepo interface {
	GetArrangement(ctx context.Context, arrangementID string) (domain.FLDGArrangement, error)
	SaveArrangement(ctx context.Context, arrangement domain.FLDGArrangement) error
	SaveUtilization(ctx context.Context, util domain.FLDGUtilization) error
	SaveRecovery(ctx context.Context, recovery domain.FLDGRecovery) error
}

// ECLRepo persists staging transitions and provisions.
type ECLRepo interface {
	SaveStaging(ctx context.Context, staging domain.ECLStaging) error
	SaveProvision(ctx context.Context, provision domain.ECLProvision) error
	SaveSummaries(ctx context.Context, summaries []domain.PortfolioStageSummary) error
}

// UnitOfWork is transactional handle: "each unit of work runs
// inside one database transaction. A successful operation commits
// atomically; any failure rolls back all entity changes for that
// account." Begin returns a Tx bound to repositories that write through
// the same underlying transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one transaction's bundle of repositories plus its Commit/Rollback
// lifecycle. Callers must call exactly one of Commit or Rollback, and
// Rollback is always safe to call after Commit (a no-op), mirroring
// `defer tx.Rollback(ctx)` immediately after `pool.Begin(ctx)` in the
// grounding reference.
type Tx interface {
	Accounts() AccountRepo
	Schedules() ScheduleRepo
	Payments() PaymentRepo
	Accruals() AccrualRepo
	Delinquencies() DelinquencyRepo
	Lifecycle() LifecycleRepo
	Participations() ParticipationRepo
	FLDG() FLDGRepo
	ECL() ECLRepo

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
