// Package memstore is the in-memory reference implementation of repo's
// interfaces, used by engine's tests and by any deployment that doesn't
// need Postgres durability. Grounded on the same dafibh-fortuna repository
// shape repo.go documents, but backed by plain maps guarded by a single
// mutex instead of pgx. Begin hands a transaction a private clone of the
// store's state for reads and read-your-own-writes; Commit does not swap
// that clone back over the live store (two transactions on disjoint
// accounts would then race to clobber each other's committed writes) — it
// replays only the entities this transaction actually wrote into the live
// maps, under the store mutex, so concurrent commits on disjoint accounts
// both survive.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/repo"
)

type ledgerKey struct {
	accountID string
	partnerID string
	component domain.LedgerComponent
}

// data is the store's mutable state, duplicated into a working copy at the
// start of every transaction so a Rollback has nothing to undo.
type data struct {
	accounts       map[string]domain.LoanAccount
	scheduleRows   map[string][]domain.RepaymentScheduleRow
	paymentsByRef      map[string]domain.Payment
	allocations        map[string][]domain.PaymentAllocation
	allocationsByPayID map[string][]domain.PaymentAllocation
	accruals       map[string][]domain.InterestAccrual
	delinquencies  map[string][]domain.DelinquencySnapshot
	restructures   map[string][]domain.RestructureEvent
	prepayments    map[string][]domain.Prepayment
	writeOffs      map[string][]domain.WriteOff
	writeOffRecov  map[string][]domain.WriteOffRecovery
	participations map[string][]domain.LoanParticipation
	ledgerEntries  map[string][]domain.PartnerLedgerEntry
	runningBal     map[ledgerKey]money.Amount
	fldgArrange    map[string]domain.FLDGArrangement
	fldgUtil       map[string][]domain.FLDGUtilization
	fldgRecov      map[string][]domain.FLDGRecovery
	eclStaging     map[string][]domain.ECLStaging
	eclProvisions  map[string][]domain.ECLProvision
	eclSummaries   []domain.PortfolioStageSummary
}

func newData() *data {
	return &data{
		accounts:       make(map[string]domain.LoanAccount),
		scheduleRows:   make(map[string][]domain.RepaymentScheduleRow),
		paymentsByRef:      make(map[string]domain.Payment),
		allocations:        make(map[string][]domain.PaymentAllocation),
		allocationsByPayID: make(map[string][]domain.PaymentAllocation),
		accruals:       make(map[string][]domain.InterestAccrual),
		delinquencies:  make(map[string][]domain.DelinquencySnapshot),
		restructures:   make(map[string][]domain.RestructureEvent),
		prepayments:    make(map[string][]domain.Prepayment),
		writeOffs:      make(map[string][]domain.WriteOff),
		writeOffRecov:  make(map[string][]domain.WriteOffRecovery),
		participations: make(map[string][]domain.LoanParticipation),
		ledgerEntries:  make(map[string][]domain.PartnerLedgerEntry),
		runningBal:     make(map[ledgerKey]money.Amount),
		fldgArrange:    make(map[string]domain.FLDGArrangement),
		fldgUtil:       make(map[string][]domain.FLDGUtilization),
		fldgRecov:      make(map[string][]domain.FLDGRecovery),
		eclStaging:     make(map[string][]domain.ECLStaging),
		eclProvisions:  make(map[string][]domain.ECLProvision),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.scheduleRows {
		c.scheduleRows[k] = append([]domain.RepaymentScheduleRow(nil), v...)
	}
	for k, v := range d.paymentsByRef {
		c.paymentsByRef[k] = v
	}
	for k, v := range d.allocations {
		c.allocations[k] = append([]domain.PaymentAllocation(nil), v...)
	}
	for k, v := range d.allocationsByPayID {
		c.allocationsByPayID[k] = append([]domain.PaymentAllocation(nil), v...)
	}
	for k, v := range d.accruals {
		c.accruals[k] = append([]domain.InterestAccrual(nil), v...)
	}
	for k, v := range d.delinquencies {
		c.delinquencies[k] = append([]domain.DelinquencySnapshot(nil), v...)
	}
	for k, v := range d.restructures {
		c.restructures[k] = append([]domain.RestructureEvent(nil), v...)
	}
	for k, v := range d.prepayments {
		c.prepayments[k] = append([]domain.Prepayment(nil), v...)
	}
	for k, v := range d.writeOffs {
		c.writeOffs[k] = append([]domain.WriteOff(nil), v...)
	}
	for k, v := range d.writeOffRecov {
		c.writeOffRecov[k] = append([]domain.WriteOffRecovery(nil), v...)
	}
	for k, v := range d.participations {
		c.participations[k] = append([]domain.LoanParticipation(nil), v...)
	}
	for k, v := range d.ledgerEntries {
		c.ledgerEntries[k] = append([]domain.PartnerLedgerEntry(nil), v...)
	}
	for k, v := range d.runningBal {
		c.runningBal[k] = v
	}
	for k, v := range d.fldgArrange {
		c.fldgArrange[k] = v
	}
	for k, v := range d.fldgUtil {
		c.fldgUtil[k] = append([]domain.FLDGUtilization(nil), v...)
	}
	for k, v := range d.fldgRecov {
		c.fldgRecov[k] = append([]domain.FLDGRecovery(nil), v...)
	}
	for k, v := range d.eclStaging {
		c.eclStaging[k] = append([]domain.ECLStaging(nil), v...)
	}
	for k, v := range d.eclProvisions {
		c.eclProvisions[k] = append([]domain.ECLProvision(nil), v...)
	}
	c.eclSummaries = append([]domain.PortfolioStageSummary(nil), d.eclSummaries...)
	return c
}

// Store is a repo.UnitOfWork backed by process memory.
type Store struct {
	mu   sync.Mutex
	live *data
}

// New constructs an empty store.
func New() *Store {
	return &Store{live: newData()}
}

// Begin starts a transaction: the Tx operates on a private clone of the
// store's state, and Commit replays only this transaction's own writes
// back onto the live store.
func (s *Store) Begin(ctx context.Context) (repo.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &tx{store: s, work: s.live.clone()}, nil
}

// tx is a unit of work. work is a private snapshot used to serve reads and
// read-your-own-writes; writes records, in order, the mutations this
// transaction made, replayed onto the store's live data on Commit so that
// two transactions over disjoint accounts never clobber each other's
// committed state.
type tx struct {
	store     *Store
	work      *data
	writes    []func(*data)
	committed bool
}

func (t *tx) record(w func(*data)) {
	t.writes = append(t.writes, w)
}

func (t *tx) Commit(ctx context.Context) error {
	if t.committed {
		return nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, w := range t.writes {
		w(t.store.live)
	}
	t.committed = true
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	// t.work and t.writes are private and never published; discarding them
	// is enough.
	return nil
}

func (t *tx) Accounts() repo.AccountRepo             { return accountRepo{t} }
func (t *tx) Schedules() repo.ScheduleRepo           { return scheduleRepo{t} }
func (t *tx) Payments() repo.PaymentRepo             { return paymentRepo{t} }
func (t *tx) Accruals() repo.AccrualRepo             { return accrualRepo{t} }
func (t *tx) Delinquencies() repo.DelinquencyRepo    { return delinquencyRepo{t} }
func (t *tx) Lifecycle() repo.LifecycleRepo          { return lifecycleRepo{t} }
func (t *tx) Participations() repo.ParticipationRepo { return participationRepo{t} }
func (t *tx) FLDG() repo.FLDGRepo                    { return fldgRepo{t} }
func (t *tx) ECL() repo.ECLRepo                      { return eclRepo{t} }

type accountRepo struct{ t *tx }

func (r accountRepo) Get(ctx context.Context, accountID string) (domain.LoanAccount, error) {
	a, ok := r.t.work.accounts[accountID]
	if !ok {
		return domain.LoanAccount{}, errs.NotFoundf(accountID, "account not found")
	}
	return a, nil
}

func (r accountRepo) Save(ctx context.Context, account domain.LoanAccount) error {
	r.t.work.accounts[account.ID] = account
	r.t.record(func(d *data) { d.accounts[account.ID] = account })
	return nil
}

func (r accountRepo) ListActive(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.t.work.accounts))
	for id, a := range r.t.work.accounts {
		if a.Status == domain.AccountActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type scheduleRepo struct{ t *tx }

func (r scheduleRepo) GetRows(ctx context.Context, accountID string) ([]domain.RepaymentScheduleRow, error) {
	return append([]domain.RepaymentScheduleRow(nil), r.t.work.scheduleRows[accountID]...), nil
}

func (r scheduleRepo) ReplaceRows(ctx context.Context, accountID string, rows []domain.RepaymentScheduleRow) error {
	cp := append([]domain.RepaymentScheduleRow(nil), rows...)
	r.t.work.scheduleRows[accountID] = cp
	r.t.record(func(d *data) { d.scheduleRows[accountID] = cp })
	return nil
}

type paymentRepo struct{ t *tx }

func (r paymentRepo) FindByExternalRef(ctx context.Context, accountID, externalRef string) (*domain.Payment, error) {
	p, ok := r.t.work.paymentsByRef[accountID+"/"+externalRef]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (r paymentRepo) Save(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation) error {
	allocCp := append([]domain.PaymentAllocation(nil), allocations...)
	if payment.ExternalRef != "" {
		r.t.work.paymentsByRef[payment.AccountID+"/"+payment.ExternalRef] = payment
	}
	r.t.work.allocations[payment.AccountID] = append(r.t.work.allocations[payment.AccountID], allocCp...)
	r.t.work.allocationsByPayID[payment.ID] = append([]domain.PaymentAllocation(nil), allocCp...)
	r.t.record(func(d *data) {
		if payment.ExternalRef != "" {
			d.paymentsByRef[payment.AccountID+"/"+payment.ExternalRef] = payment
		}
		d.allocations[payment.AccountID] = append(d.allocations[payment.AccountID], allocCp...)
		d.allocationsByPayID[payment.ID] = append([]domain.PaymentAllocation(nil), allocCp...)
	})
	return nil
}

func (r paymentRepo) AllocationsForPayment(ctx context.Context, paymentID string) ([]domain.PaymentAllocation, error) {
	return append([]domain.PaymentAllocation(nil), r.t.work.allocationsByPayID[paymentID]...), nil
}

type accrualRepo struct{ t *tx }

func (r accrualRepo) Append(ctx context.Context, rows []domain.InterestAccrual) error {
	cp := append([]domain.InterestAccrual(nil), rows...)
	for _, row := range cp {
		r.t.work.accruals[row.AccountID] = append(r.t.work.accruals[row.AccountID], row)
	}
	r.t.record(func(d *data) {
		for _, row := range cp {
			d.accruals[row.AccountID] = append(d.accruals[row.AccountID], row)
		}
	})
	return nil
}

func (r accrualRepo) LastAccrualDate(ctx context.Context, accountID string) (*time.Time, error) {
	rows := r.t.work.accruals[accountID]
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1].Date
	return &last, nil
}

type delinquencyRepo struct{ t *tx }

func (r delinquencyRepo) Save(ctx context.Context, snapshot domain.DelinquencySnapshot) error {
	r.t.work.delinquencies[snapshot.AccountID] = append(r.t.work.delinquencies[snapshot.AccountID], snapshot)
	r.t.record(func(d *data) {
		d.delinquencies[snapshot.AccountID] = append(d.delinquencies[snapshot.AccountID], snapshot)
	})
	return nil
}

type lifecycleRepo struct{ t *tx }

func (r lifecycleRepo) SaveRestructure(ctx context.Context, event domain.RestructureEvent) error {
	r.t.work.restructures[event.AccountID] = append(r.t.work.restructures[event.AccountID], event)
	r.t.record(func(d *data) {
		d.restructures[event.AccountID] = append(d.restructures[event.AccountID], event)
	})
	return nil
}

func (r lifecycleRepo) SavePrepayment(ctx context.Context, prepayment domain.Prepayment) error {
	r.t.work.prepayments[prepayment.AccountID] = append(r.t.work.prepayments[prepayment.AccountID], prepayment)
	r.t.record(func(d *data) {
		d.prepayments[prepayment.AccountID] = append(d.prepayments[prepayment.AccountID], prepayment)
	})
	return nil
}

func (r lifecycleRepo) SaveWriteOff(ctx context.Context, writeOff domain.WriteOff) error {
	r.t.work.writeOffs[writeOff.AccountID] = append(r.t.work.writeOffs[writeOff.AccountID], writeOff)
	r.t.record(func(d *data) {
		d.writeOffs[writeOff.AccountID] = append(d.writeOffs[writeOff.AccountID], writeOff)
	})
	return nil
}

func (r lifecycleRepo) SaveWriteOffRecovery(ctx context.Context, recovery domain.WriteOffRecovery) error {
	r.t.work.writeOffRecov[recovery.WriteOffID] = append(r.t.work.writeOffRecov[recovery.WriteOffID], recovery)
	r.t.record(func(d *data) {
		d.writeOffRecov[recovery.WriteOffID] = append(d.writeOffRecov[recovery.WriteOffID], recovery)
	})
	return nil
}

type participationRepo struct{ t *tx }

func (r participationRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.LoanParticipation, error) {
	return append([]domain.LoanParticipation(nil), r.t.work.participations[accountID]...), nil
}

func (r participationRepo) SaveLedgerEntries(ctx context.Context, entries []domain.PartnerLedgerEntry) error {
	cp := append([]domain.PartnerLedgerEntry(nil), entries...)
	for _, e := range cp {
		r.t.work.ledgerEntries[e.AccountID] = append(r.t.work.ledgerEntries[e.AccountID], e)
		r.t.work.runningBal[ledgerKey{e.AccountID, e.PartnerID, e.Component}] = e.RunningBalance
	}
	r.t.record(func(d *data) {
		for _, e := range cp {
			d.ledgerEntries[e.AccountID] = append(d.ledgerEntries[e.AccountID], e)
			d.runningBal[ledgerKey{e.AccountID, e.PartnerID, e.Component}] = e.RunningBalance
		}
	})
	return nil
}

func (r participationRepo) LastRunningBalance(ctx context.Context, accountID, partnerID string, component domain.LedgerComponent) (money.Amount, error) {
	bal, ok := r.t.work.runningBal[ledgerKey{accountID, partnerID, component}]
	if !ok {
		return money.Zero, nil
	}
	return bal, nil
}

type fldgRepo struct{ t *tx }

func (r fldgRepo) GetArrangement(ctx context.Context, arrangementID string) (domain.FLDGArrangement, error) {
	a, ok := r.t.work.fldgArrange[arrangementID]
	if !ok {
		return domain.FLDGArrangement{}, errs.NotFoundf(arrangementID, "fldg arrangement not found")
	}
	return a, nil
}

func (r fldgRepo) SaveArrangement(ctx context.Context, arrangement domain.FLDGArrangement) error {
	r.t.work.fldgArrange[arrangement.ID] = arrangement
	r.t.record(func(d *data) { d.fldgArrange[arrangement.ID] = arrangement })
	return nil
}

func (r fldgRepo) SaveUtilization(ctx context.Context, util domain.FLDGUtilization) error {
	r.t.work.fldgUtil[util.ArrangementID] = append(r.t.work.fldgUtil[util.ArrangementID], util)
	r.t.record(func(d *data) {
		d.fldgUtil[util.ArrangementID] = append(d.fldgUtil[util.ArrangementID], util)
	})
	return nil
}

func (r fldgRepo) SaveRecovery(ctx context.Context, recovery domain.FLDGRecovery) error {
	r.t.work.fldgRecov[recovery.UtilizationID] = append(r.t.work.fldgRecov[recovery.UtilizationID], recovery)
	r.t.record(func(d *data) {
		d.fldgRecov[recovery.UtilizationID] = append(d.fldgRecov[recovery.UtilizationID], recovery)
	})
	return nil
}

type eclRepo struct{ t *tx }

func (r eclRepo) SaveStaging(ctx context.Context, staging domain.ECLStaging) error {
	r.t.work.eclStaging[staging.AccountID] = append(r.t.work.eclStaging[staging.AccountID], staging)
	r.t.record(func(d *data) {
		d.eclStaging[staging.AccountID] = append(d.eclStaging[staging.AccountID], staging)
	})
	return nil
}

func (r eclRepo) SaveProvision(ctx context.Context, provision domain.ECLProvision) error {
	r.t.work.eclProvisions[provision.AccountID] = append(r.t.work.eclProvisions[provision.AccountID], provision)
	r.t.record(func(d *data) {
		d.eclProvisions[provision.AccountID] = append(d.eclProvisions[provision.AccountID], provision)
	})
	return nil
}

func (r eclRepo) SaveSummaries(ctx context.Context, summaries []domain.PortfolioStageSummary) error {
	cp := append([]domain.PortfolioStageSummary(nil), summaries...)
	r.t.work.eclSummaries = append(r.t.work.eclSummaries, cp...)
	r.t.record(func(d *data) {
		d.eclSummaries = append(d.eclSummaries, cp...)
	})
	return nil
}
