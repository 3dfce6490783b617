package lifecycle

import (
	"testing"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

func TestCloseNormalRequiresZeroBalances(t *testing.T) {
	state := ClosureState{PrincipalOutstanding: money.NewFromFloat(100)}
	if _, err := Close("A1", state, domain.ClosureNormal, "paid off", mustDate("2025-01-01")); err == nil {
		t.Fatal("expected error closing normally with outstanding principal")
	}
}

func TestCloseNormalWithZeroBalancesSucceeds(t *testing.T) {
	state := ClosureState{}
	wo, err := Close("A1", state, domain.ClosureNormal, "paid off", mustDate("2025-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if wo != nil {
		t.Errorf("expected no write-off for normal closure, got %+v", wo)
	}
}

func TestCloseSettlementOTSWritesOffResidual(t *testing.T) {
	state := ClosureState{
		PrincipalOutstanding: money.NewFromFloat(5000),
		InterestOutstanding:  money.NewFromFloat(200),
		DPD:                  45,
		NPACategory:          domain.NPANone,
	}
	wo, err := Close("A1", state, domain.ClosureSettlementOTS, "one-time settlement", mustDate("2025-02-01"))
	if err != nil {
		t.Fatal(err)
	}
	if wo == nil {
		t.Fatal("expected a write-off event for settlement OTS with residual balance")
	}
	if !wo.PrincipalWrittenOff.Equal(state.PrincipalOutstanding) || !wo.InterestWrittenOff.Equal(state.InterestOutstanding) {
		t.Errorf("unexpected write-off amounts: %+v", wo)
	}
	if wo.Partial {
		t.Error("settlement OTS closure should be a full write-off of the residual, not partial")
	}
}

func TestWriteOffAccountFullBalance(t *testing.T) {
	state := ClosureState{
		PrincipalOutstanding: money.NewFromFloat(40000),
		InterestOutstanding:  money.NewFromFloat(1500),
		FeesOutstanding:      money.NewFromFloat(200),
		DPD:                  400,
		NPACategory:          domain.NPADoubtful,
	}
	wo, err := WriteOffAccount("A1", state, nil, "irrecoverable", mustDate("2025-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if wo.Partial {
		t.Error("expected full write-off when no amount given")
	}
	total := wo.PrincipalWrittenOff.Add(wo.InterestWrittenOff).Add(wo.FeesWrittenOff)
	want := state.PrincipalOutstanding.Add(state.InterestOutstanding).Add(state.FeesOutstanding)
	if !total.Equal(want) {
		t.Errorf("total written off = %s, want %s", total, want)
	}
}

func TestWriteOffAccountPartialAllocatesPrincipalFirst(t *testing.T) {
	state := ClosureState{
		PrincipalOutstanding: money.NewFromFloat(40000),
		InterestOutstanding:  money.NewFromFloat(1500),
		FeesOutstanding:      money.NewFromFloat(200),
	}
	amount := money.NewFromFloat(10000)
	wo, err := WriteOffAccount("A1", state, &amount, "partial write-off", mustDate("2025-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !wo.Partial {
		t.Error("expected partial flag when amount < total outstanding")
	}
	if !wo.PrincipalWrittenOff.Equal(amount) {
		t.Errorf("PrincipalWrittenOff = %s, want %s (allocated before interest/fees)", wo.PrincipalWrittenOff, amount)
	}
	if !wo.InterestWrittenOff.IsZero() || !wo.FeesWrittenOff.IsZero() {
		t.Errorf("expected no interest/fees written off when amount fits within principal, got %+v", wo)
	}
}

func TestWriteOffAccountRejectsAmountExceedingTotal(t *testing.T) {
	state := ClosureState{PrincipalOutstanding: money.NewFromFloat(1000)}
	amount := money.NewFromFloat(5000)
	if _, err := WriteOffAccount("A1", state, &amount, "bad input", mustDate("2025-01-01")); err == nil {
		t.Fatal("expected error when write-off amount exceeds total outstanding")
	}
}

func TestRecordWriteOffRecovery(t *testing.T) {
	rec, err := RecordWriteOffRecovery("WO1", "fldg", money.NewFromFloat(5000), mustDate("2025-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.WriteOffID != "WO1" || !rec.Amount.Equal(money.NewFromFloat(5000)) {
		t.Errorf("unexpected recovery: %+v", rec)
	}
}

func TestRecordWriteOffRecoveryRejectsNonPositive(t *testing.T) {
	if _, err := RecordWriteOffRecovery("WO1", "fldg", money.Zero, mustDate("2025-06-01")); err == nil {
		t.Fatal("expected error for non-positive recovery amount")
	}
}
