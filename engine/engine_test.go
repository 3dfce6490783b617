package engine

import (
	"context"
	"testing"
	"time"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/delinquency"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/ecl"
	"github.com/losplatform/engine/floatrate"
	"github.com/losplatform/engine/lifecycle"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
	"github.com/losplatform/engine/store/memstore"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func testEngine() (*Engine, *memstore.Store) {
	s := memstore.New()
	factors := ecl.RiskFactors{
		PD12Month:  money.NewRateFromPercent(2),
		PDLifetime: money.NewRateFromPercent(10),
		LGD:        map[domain.SecurityClass]money.Rate{domain.Secured: money.NewRateFromPercent(40), domain.Unsecured: money.NewRateFromPercent(70)},
	}
	e := New(s, calendar.NewCache(""), floatrate.NewCache(""), delinquency.DefaultBoundaries, factors, nil)
	return e, s
}

func fixedRateAccount(id string) domain.LoanAccount {
	return domain.LoanAccount{
		ID:                 id,
		PrincipalDisbursed: money.NewFromFloat(120000),
		PrincipalOutstanding: money.NewFromFloat(120000),
		Rate:               domain.RateProvenance{Fixed: true, CurrentAnnual: money.NewRateFromPercent(12)},
		TenurePeriods:      12,
		Frequency:          schedule.Monthly,
		DayCount:           daycount.Actual365,
		DisbursementDate:   mustDate("2026-01-01"),
		FirstDueDate:       mustDate("2026-02-01"),
		Status:             domain.AccountActive,
		ECLStage:           domain.ECLStage1,
	}
}

func seedAccount(t *testing.T, s *memstore.Store, acct domain.LoanAccount) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Accounts().Save(ctx, acct); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestPersistScheduleThenGenerateScheduleReturnsSameRows(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))

	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	tx, _ := s.Begin(ctx)
	rows, err := tx.Schedules().GetRows(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 12 {
		t.Fatalf("got %d rows, want 12", len(rows))
	}
	if !rows[0].OpeningBalance.Equal(money.NewFromFloat(120000)) {
		t.Errorf("first row opening balance = %s, want 120000", rows[0].OpeningBalance)
	}
	if !rows[11].ClosingBalance.IsZero() {
		t.Errorf("last row closing balance = %s, want 0", rows[11].ClosingBalance)
	}
}

func TestPersistScheduleTwiceConflicts(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))

	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}
	if err := e.PersistSchedule(ctx, "A1"); err == nil {
		t.Fatal("expected a conflict persisting a schedule twice")
	}
}

func TestApplyPaymentAllocatesAgainstOldestInstallment(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))
	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	out, err := e.ApplyPayment(ctx, "A1", money.NewFromFloat(5000), mustDate("2026-02-01"), domain.ChannelUPI, "REF1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Allocations) == 0 {
		t.Fatal("expected at least one allocation")
	}

	tx, _ := s.Begin(ctx)
	acct, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if acct.PrincipalOutstanding.Cmp(money.NewFromFloat(120000)) >= 0 {
		t.Errorf("expected principal outstanding to drop below 120000, got %s", acct.PrincipalOutstanding)
	}
}

func TestApplyPaymentIsIdempotentByExternalRef(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))
	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	first, err := e.ApplyPayment(ctx, "A1", money.NewFromFloat(5000), mustDate("2026-02-01"), domain.ChannelUPI, "REF1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.ApplyPayment(ctx, "A1", money.NewFromFloat(5000), mustDate("2026-02-01"), domain.ChannelUPI, "REF1")
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Allocations) != len(first.Allocations) {
		t.Fatalf("replayed allocations count = %d, want %d", len(second.Allocations), len(first.Allocations))
	}

	tx, _ := s.Begin(ctx)
	acct, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected := money.NewFromFloat(120000).Sub(first.Allocations[0].Principal)
	if !acct.PrincipalOutstanding.Equal(expected) {
		t.Errorf("a replayed payment must not double-apply: PrincipalOutstanding = %s, want %s", acct.PrincipalOutstanding, expected)
	}
}

func TestAccrueAccruesFromDisbursementDate(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))

	last, err := e.Accrue(ctx, "A1", mustDate("2026-01-05"))
	if err != nil {
		t.Fatal(err)
	}
	if !last.Date.Equal(mustDate("2026-01-05")) {
		t.Errorf("last accrual date = %s, want 2026-01-05", last.Date)
	}
	if !last.Accrued.IsPositive() {
		t.Errorf("expected positive accrued interest, got %s", last.Accrued)
	}

	tx, _ := s.Begin(ctx)
	acct, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if acct.LastAccrualDate == nil || !acct.LastAccrualDate.Equal(mustDate("2026-01-05")) {
		t.Errorf("account LastAccrualDate not updated to 2026-01-05")
	}
}

func TestRefreshDelinquencyMarksNPAPastTrigger(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))
	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	snap, err := e.RefreshDelinquency(ctx, "A1", mustDate("2026-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.IsNPA {
		t.Errorf("expected account to be NPA with no payments through 2026-06-01, DPD=%d", snap.DPD)
	}
}

func TestWriteOffWritesOffOutstandingAndForcesStage3(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	acct := fixedRateAccount("A1")
	acct.InterestOutstanding = money.NewFromFloat(500)
	seedAccount(t, s, acct)

	wo, err := e.WriteOff(ctx, "A1", WriteOffComponents{}, "unrecoverable", mustDate("2027-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !wo.PrincipalWrittenOff.Equal(money.NewFromFloat(120000)) {
		t.Errorf("PrincipalWrittenOff = %s, want 120000", wo.PrincipalWrittenOff)
	}

	tx, _ := s.Begin(ctx)
	got, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsWrittenOff {
		t.Error("expected IsWrittenOff to be true")
	}
	if got.ECLStage != domain.ECLStage3 {
		t.Errorf("ECLStage = %v, want stage 3 after write-off", got.ECLStage)
	}
	if !got.PrincipalOutstanding.IsZero() {
		t.Errorf("PrincipalOutstanding = %s, want 0 after full write-off", got.PrincipalOutstanding)
	}
}

func TestRestructureExtendsTenureAndSetsRestructuredFlag(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))
	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	newTenure := 18
	req := lifecycle.RestructureRequest{
		Type:                 domain.RestructureTenureExtension,
		EffectiveInstallment: 1,
		NewTenurePeriods:     &newTenure,
		Requester:            "ops",
		Approver:             "credit-committee",
	}
	ev, err := e.Restructure(ctx, "A1", req, mustDate("2026-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if ev.AfterTenure != newTenure {
		t.Errorf("AfterTenure = %d, want %d", ev.AfterTenure, newTenure)
	}

	tx, _ := s.Begin(ctx)
	acct, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !acct.IsRestructured {
		t.Error("expected IsRestructured to be true after a restructure")
	}
}

func TestRunMonthlyECLStagesAndSummarizesPortfolio(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	npa := fixedRateAccount("A1")
	npa.IsNPA = true
	seedAccount(t, s, npa)
	seedAccount(t, s, fixedRateAccount("A2"))

	result, summaries, err := e.RunMonthlyECL(ctx, mustDate("2026-06-30"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) > 0 {
		t.Fatalf("unexpected per-account failures: %v", result.Failed)
	}
	if len(summaries) == 0 {
		t.Fatal("expected at least one portfolio stage summary")
	}

	tx, _ := s.Begin(ctx)
	got, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ECLStage != domain.ECLStage3 {
		t.Errorf("NPA account ECLStage = %v, want stage 3", got.ECLStage)
	}
}

func TestRunEODProgressesAllThreeStages(t *testing.T) {
	e, s := testEngine()
	ctx := context.Background()
	seedAccount(t, s, fixedRateAccount("A1"))
	if err := e.PersistSchedule(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	result, err := e.RunEOD(ctx, mustDate("2026-06-30"), 2, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Accrual.Failed) > 0 || len(result.Delinquency.Failed) > 0 || len(result.ECL.Failed) > 0 {
		t.Fatalf("unexpected per-stage failures: %+v", result)
	}

	tx, _ := s.Begin(ctx)
	acct, err := tx.Accounts().Get(ctx, "A1")
	tx.Rollback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if acct.LastAccrualDate == nil {
		t.Error("expected accrual stage to have run")
	}
}
