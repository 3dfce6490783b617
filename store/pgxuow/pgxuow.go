// Package pgxuow is the Postgres-backed repo.UnitOfWork, the production
// counterpart to store/memstore's in-memory one. Grounded on
// dafibh-fortuna's LoanService, which holds a *pgxpool.Pool beside its
// repository interfaces and opens one transaction per business operation
// (pool.Begin(ctx) / tx.Commit(ctx) / defer tx.Rollback(ctx)).
//
// Each entity is persisted as a JSONB document keyed by its natural key
// (id, account_id+as_of_date, ...; an account's schedule rows are one
// document keyed by account_id) rather than a fully
// normalized column-per-field schema: domain's types already round-trip
// through money.Amount/money.Rate's JSON codec, so a document column
// carries every invariant the domain package enforces without a parallel
// SQL schema to keep in sync by hand.
package pgxuow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/repo"
)

// schema creates every table pgxuow uses, idempotently. Called once by
// EnsureSchema, typically from main at startup.
const schema = `
CREATE TABLE IF NOT EXISTS loan_accounts (id TEXT PRIMARY KEY, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS repayment_schedule_rows (account_id TEXT PRIMARY KEY, rows JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS payments (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, external_ref TEXT, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS payment_allocations (seq BIGSERIAL PRIMARY KEY, payment_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS interest_accruals (seq BIGSERIAL PRIMARY KEY, account_id TEXT NOT NULL, as_of_date DATE NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS delinquency_snapshots (account_id TEXT NOT NULL, as_of_date DATE NOT NULL, data JSONB NOT NULL, PRIMARY KEY (account_id, as_of_date));
CREATE TABLE IF NOT EXISTS restructure_events (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS prepayments (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS write_offs (id TEXT PRIMARY KEY, account_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS write_off_recoveries (id TEXT PRIMARY KEY, write_off_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS loan_participations (account_id TEXT NOT NULL, partner_id TEXT NOT NULL, data JSONB NOT NULL, PRIMARY KEY (account_id, partner_id));
CREATE TABLE IF NOT EXISTS partner_ledger_entries (seq BIGSERIAL PRIMARY KEY, id TEXT NOT NULL, account_id TEXT NOT NULL, partner_id TEXT NOT NULL, component INT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS fldg_arrangements (id TEXT PRIMARY KEY, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS fldg_utilizations (id TEXT PRIMARY KEY, arrangement_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS fldg_recoveries (id TEXT PRIMARY KEY, utilization_id TEXT NOT NULL, data JSONB NOT NULL);
CREATE TABLE IF NOT EXISTS ecl_staging (account_id TEXT NOT NULL, as_of_date DATE NOT NULL, data JSONB NOT NULL, PRIMARY KEY (account_id, as_of_date));
CREATE TABLE IF NOT EXISTS ecl_provisions (account_id TEXT NOT NULL, as_of_date DATE NOT NULL, data JSONB NOT NULL, PRIMARY KEY (account_id, as_of_date));
CREATE TABLE IF NOT EXISTS ecl_portfolio_summaries (as_of_date DATE NOT NULL, stage INT NOT NULL, data JSONB NOT NULL, PRIMARY KEY (as_of_date, stage));
`

// UnitOfWork is the pgxpool-backed repo.UnitOfWork.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pgxpool.Pool.
func New(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// EnsureSchema runs the table-creation DDL. Safe to call on every startup.
func (u *UnitOfWork) EnsureSchema(ctx context.Context) error {
	_, err := u.pool.Exec(ctx, schema)
	return err
}

// Begin opens one Postgres transaction and hands back a Tx bound to it,
// mirroring pool.Begin(ctx) / defer tx.Rollback(ctx) from the grounding
// reference.
func (u *UnitOfWork) Begin(ctx context.Context) (repo.Tx, error) {
	pgxTx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{tx: pgxTx}, nil
}

type tx struct {
	tx        pgx.Tx
	committed bool
}

func (t *tx) Commit(ctx context.Context) error {
	if t.committed {
		return nil
	}
	t.committed = true
	return t.tx.Commit(ctx)
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *tx) Accounts() repo.AccountRepo             { return accountRepo{t.tx} }
func (t *tx) Schedules() repo.ScheduleRepo           { return scheduleRepo{t.tx} }
func (t *tx) Payments() repo.PaymentRepo             { return paymentRepo{t.tx} }
func (t *tx) Accruals() repo.AccrualRepo             { return accrualRepo{t.tx} }
func (t *tx) Delinquencies() repo.DelinquencyRepo    { return delinquencyRepo{t.tx} }
func (t *tx) Lifecycle() repo.LifecycleRepo          { return lifecycleRepo{t.tx} }
func (t *tx) Participations() repo.ParticipationRepo { return participationRepo{t.tx} }
func (t *tx) FLDG() repo.FLDGRepo                    { return fldgRepo{t.tx} }
func (t *tx) ECL() repo.ECLRepo                      { return eclRepo{t.tx} }

func marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// --- accounts ---

type accountRepo struct{ tx pgx.Tx }

func (r accountRepo) Get(ctx context.Context, accountID string) (domain.LoanAccount, error) {
	var raw []byte
	err := r.tx.QueryRow(ctx, `SELECT data FROM loan_accounts WHERE id = $1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LoanAccount{}, errs.NotFoundf(accountID, "account not found")
	}
	if err != nil {
		return domain.LoanAccount{}, err
	}
	var acct domain.LoanAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return domain.LoanAccount{}, err
	}
	return acct, nil
}

func (r accountRepo) Save(ctx context.Context, account domain.LoanAccount) error {
	raw, err := marshal(account)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO loan_accounts (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, account.ID, raw)
	return err
}

func (r accountRepo) ListActive(ctx context.Context) ([]string, error) {
	rows, err := r.tx.Query(ctx, `SELECT id FROM loan_accounts WHERE (data->>'Status')::int = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- schedule rows ---

type scheduleRepo struct{ tx pgx.Tx }

func (r scheduleRepo) GetRows(ctx context.Context, accountID string) ([]domain.RepaymentScheduleRow, error) {
	var raw []byte
	err := r.tx.QueryRow(ctx, `SELECT rows FROM repayment_schedule_rows WHERE account_id = $1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []domain.RepaymentScheduleRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r scheduleRepo) ReplaceRows(ctx context.Context, accountID string, rows []domain.RepaymentScheduleRow) error {
	var existing int
	err := r.tx.QueryRow(ctx, `SELECT count(*) FROM repayment_schedule_rows WHERE account_id = $1`, accountID).Scan(&existing)
	if err != nil {
		return err
	}
	raw, err := marshal(rows)
	if err != nil {
		return err
	}
	if existing > 0 {
		_, err = r.tx.Exec(ctx, `UPDATE repayment_schedule_rows SET rows = $2 WHERE account_id = $1`, accountID, raw)
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO repayment_schedule_rows (account_id, rows) VALUES ($1, $2)`, accountID, raw)
	return err
}

// --- payments ---

type paymentRepo struct{ tx pgx.Tx }

func (r paymentRepo) FindByExternalRef(ctx context.Context, accountID, externalRef string) (*domain.Payment, error) {
	if externalRef == "" {
		return nil, nil
	}
	var raw []byte
	err := r.tx.QueryRow(ctx, `SELECT data FROM payments WHERE account_id = $1 AND external_ref = $2`, accountID, externalRef).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p domain.Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r paymentRepo) Save(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation) error {
	raw, err := marshal(payment)
	if err != nil {
		return err
	}
	var externalRef interface{}
	if payment.ExternalRef != "" {
		externalRef = payment.ExternalRef
	}
	if _, err := r.tx.Exec(ctx, `
		INSERT INTO payments (id, account_id, external_ref, data) VALUES ($1, $2, $3, $4)
	`, payment.ID, payment.AccountID, externalRef, raw); err != nil {
		return err
	}
	for _, alloc := range allocations {
		allocRaw, err := marshal(alloc)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `INSERT INTO payment_allocations (payment_id, data) VALUES ($1, $2)`, payment.ID, allocRaw); err != nil {
			return err
		}
	}
	return nil
}

func (r paymentRepo) AllocationsForPayment(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error) {
	rows, err := r.tx.Query(ctx, `SELECT data FROM payment_allocations WHERE payment_id = $1 ORDER BY seq`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.PaymentAllocation
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var a domain.PaymentAllocation
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- accruals ---

type accrualRepo struct{ tx pgx.Tx }

func (r accrualRepo) Append(ctx context.Context, rows []domain.InterestAccrual) error {
	for _, row := range rows {
		raw, err := marshal(row)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO interest_accruals (account_id, as_of_date, data) VALUES ($1, $2, $3)
		`, row.AccountID, row.Date, raw); err != nil {
			return err
		}
	}
	return nil
}

func (r accrualRepo) LastAccrualDate(ctx context.Context, accountID string) (*time.Time, error) {
	var d time.Time
	err := r.tx.QueryRow(ctx, `
		SELECT as_of_date FROM interest_accruals WHERE account_id = $1 ORDER BY as_of_date DESC LIMIT 1
	`, accountID).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// --- delinquency ---

type delinquencyRepo struct{ tx pgx.Tx }

func (r delinquencyRepo) Save(ctx context.Context, snapshot domain.DelinquencySnapshot) error {
	raw, err := marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO delinquency_snapshots (account_id, as_of_date, data) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, as_of_date) DO UPDATE SET data = EXCLUDED.data
	`, snapshot.AccountID, snapshot.Date, raw)
	return err
}

// --- lifecycle ---

type lifecycleRepo struct{ tx pgx.Tx }

func (r lifecycleRepo) SaveRestructure(ctx context.Context, event domain.RestructureEvent) error {
	raw, err := marshal(event)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO restructure_events (id, account_id, data) VALUES ($1, $2, $3)`, event.ID, event.AccountID, raw)
	return err
}

func (r lifecycleRepo) SavePrepayment(ctx context.Context, prepayment domain.Prepayment) error {
	raw, err := marshal(prepayment)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO prepayments (id, account_id, data) VALUES ($1, $2, $3)`, prepayment.ID, prepayment.AccountID, raw)
	return err
}

func (r lifecycleRepo) SaveWriteOff(ctx context.Context, writeOff domain.WriteOff) error {
	raw, err := marshal(writeOff)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO write_offs (id, account_id, data) VALUES ($1, $2, $3)`, writeOff.ID, writeOff.AccountID, raw)
	return err
}

func (r lifecycleRepo) SaveWriteOffRecovery(ctx context.Context, recovery domain.WriteOffRecovery) error {
	raw, err := marshal(recovery)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO write_off_recoveries (id, write_off_id, data) VALUES ($1, $2, $3)`, recovery.ID, recovery.WriteOffID, raw)
	return err
}

// --- co-lending participations ---

type participationRepo struct{ tx pgx.Tx }

func (r participationRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.LoanParticipation, error) {
	rows, err := r.tx.Query(ctx, `SELECT data FROM loan_participations WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LoanParticipation
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var p domain.LoanParticipation
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r participationRepo) SaveLedgerEntries(ctx context.Context, entries []domain.PartnerLedgerEntry) error {
	for _, e := range entries {
		raw, err := marshal(e)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO partner_ledger_entries (id, account_id, partner_id, component, data) VALUES ($1, $2, $3, $4, $5)
		`, e.ID, e.AccountID, e.PartnerID, int(e.Component), raw); err != nil {
			return err
		}
	}
	return nil
}

func (r participationRepo) LastRunningBalance(ctx context.Context, accountID, partnerID string, component domain.LedgerComponent) (money.Amount, error) {
	var raw []byte
	err := r.tx.QueryRow(ctx, `
		SELECT data FROM partner_ledger_entries
		WHERE account_id = $1 AND partner_id = $2 AND component = $3
		ORDER BY seq DESC LIMIT 1
	`, accountID, partnerID, int(component)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return money.Zero, nil
	}
	if err != nil {
		return money.Zero, err
	}
	var e domain.PartnerLedgerEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return money.Zero, err
	}
	return e.RunningBalance, nil
}

// --- FLDG ---

type fldgRepo struct{ tx pgx.Tx }

func (r fldgRepo) GetArrangement(ctx context.Context, arrangementID string) (domain.FLDGArrangement, error) {
	var raw []byte
	err := r.tx.QueryRow(ctx, `SELECT data FROM fldg_arrangements WHERE id = $1`, arrangementID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FLDGArrangement{}, errs.NotFoundf(arrangementID, "fldg arrangement not found")
	}
	if err != nil {
		return domain.FLDGArrangement{}, err
	}
	var arr domain.FLDGArrangement
	if err := json.Unmarshal(raw, &arr); err != nil {
		return domain.FLDGArrangement{}, err
	}
	return arr, nil
}

func (r fldgRepo) SaveArrangement(ctx context.Context, arrangement domain.FLDGArrangement) error {
	raw, err := marshal(arrangement)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO fldg_arrangements (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, arrangement.ID, raw)
	return err
}

func (r fldgRepo) SaveUtilization(ctx context.Context, util domain.FLDGUtilization) error {
	raw, err := marshal(util)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO fldg_utilizations (id, arrangement_id, data) VALUES ($1, $2, $3)`, util.ID, util.ArrangementID, raw)
	return err
}

func (r fldgRepo) SaveRecovery(ctx context.Context, recovery domain.FLDGRecovery) error {
	raw, err := marshal(recovery)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO fldg_recoveries (id, utilization_id, data) VALUES ($1, $2, $3)`, recovery.ID, recovery.UtilizationID, raw)
	return err
}

// --- ECL ---

type eclRepo struct{ tx pgx.Tx }

func (r eclRepo) SaveStaging(ctx context.Context, staging domain.ECLStaging) error {
	raw, err := marshal(staging)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO ecl_staging (account_id, as_of_date, data) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, as_of_date) DO UPDATE SET data = EXCLUDED.data
	`, staging.AccountID, staging.AsOfDate, raw)
	return err
}

func (r eclRepo) SaveProvision(ctx context.Context, provision domain.ECLProvision) error {
	raw, err := marshal(provision)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO ecl_provisions (account_id, as_of_date, data) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, as_of_date) DO UPDATE SET data = EXCLUDED.data
	`, provision.AccountID, provision.AsOfDate, raw)
	return err
}

func (r eclRepo) SaveSummaries(ctx context.Context, summaries []domain.PortfolioStageSummary) error {
	for _, s := range summaries {
		raw, err := marshal(s)
		if err != nil {
			return err
		}
		if _, err := r.tx.Exec(ctx, `
			INSERT INTO ecl_portfolio_summaries (as_of_date, stage, data) VALUES ($1, $2, $3)
			ON CONFLICT (as_of_date, stage) DO UPDATE SET data = EXCLUDED.data
		`, s.AsOfDate, int(s.Stage), raw); err != nil {
			return err
		}
	}
	return nil
}
