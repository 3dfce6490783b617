package lifecycle

import (
	"testing"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
)

func baseState() PrepaymentState {
	return PrepaymentState{
		PrincipalOutstanding: money.NewFromFloat(100000),
		AccruedInterest:      money.NewFromFloat(500),
		OutstandingFees:      money.NewFromFloat(100),
		OverdueTotal:         money.Zero,
		CurrentEMI:           money.NewFromFloat(10558.21),
		CurrentRate:          money.NewRateFromPercent(12),
		TenureRemaining:      10,
		Frequency:            schedule.Monthly,
	}
}

func TestPrepaymentImpactForeclosurePayoff(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{
		Amount:      state.PrincipalOutstanding,
		Action:      domain.PrepaymentForeclosure,
		PenaltyRate: money.NewRateFromPercent(2),
	}
	impact, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	wantPenalty := state.PrincipalOutstanding.MulRate(req.PenaltyRate)
	wantPayoff := state.PrincipalOutstanding.Add(state.AccruedInterest).Add(state.OutstandingFees).Add(state.OverdueTotal).Add(wantPenalty)
	if !impact.PayoffAmount.Equal(wantPayoff) {
		t.Errorf("payoff = %s, want %s", impact.PayoffAmount, wantPayoff)
	}
	if impact.NewTenureRemaining != 0 || !impact.NewEMI.IsZero() {
		t.Errorf("expected zeroed tenure/EMI after foreclosure, got %+v", impact)
	}
}

func TestPrepaymentImpactWaivedPenaltyIsZero(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{
		Amount:        state.PrincipalOutstanding,
		Action:        domain.PrepaymentForeclosure,
		PenaltyRate:   money.NewRateFromPercent(2),
		PenaltyWaived: true,
	}
	impact, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	wantPayoff := state.PrincipalOutstanding.Add(state.AccruedInterest).Add(state.OutstandingFees).Add(state.OverdueTotal)
	if !impact.PayoffAmount.Equal(wantPayoff) {
		t.Errorf("payoff = %s, want %s (no penalty)", impact.PayoffAmount, wantPayoff)
	}
}

func TestPrepaymentImpactReduceEMIKeepsTenure(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{
		Amount:      money.NewFromFloat(20000),
		Action:      domain.PrepaymentReduceEMI,
		PenaltyRate: money.ZeroRate,
	}
	impact, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	if impact.NewTenureRemaining != state.TenureRemaining {
		t.Errorf("reduce_emi must keep tenure fixed, got %d want %d", impact.NewTenureRemaining, state.TenureRemaining)
	}
	if !impact.NewEMI.LessThan(impact.OldEMI) {
		t.Errorf("expected new EMI %s < old EMI %s", impact.NewEMI, impact.OldEMI)
	}
}

func TestPrepaymentImpactReduceTenureKeepsEMI(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{
		Amount:      money.NewFromFloat(20000),
		Action:      domain.PrepaymentReduceTenure,
		PenaltyRate: money.ZeroRate,
	}
	impact, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	if !impact.NewEMI.Equal(state.CurrentEMI) {
		t.Errorf("reduce_tenure must keep EMI fixed, got %s want %s", impact.NewEMI, state.CurrentEMI)
	}
	if impact.NewTenureRemaining >= state.TenureRemaining {
		t.Errorf("expected shortened tenure, got %d (was %d)", impact.NewTenureRemaining, state.TenureRemaining)
	}
}

func TestPrepaymentImpactIsReferentiallyTransparent(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{Amount: money.NewFromFloat(10000), Action: domain.PrepaymentReduceEMI, PenaltyRate: money.ZeroRate}
	a, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := PrepaymentImpact(state, req)
	if err != nil {
		t.Fatal(err)
	}
	if !a.NewEMI.Equal(b.NewEMI) || !a.PayoffAmount.Equal(b.PayoffAmount) || a.NewTenureRemaining != b.NewTenureRemaining {
		t.Fatalf("impact differs between calls: %+v vs %+v", a, b)
	}
}

func TestPrepaymentImpactRejectsNonPositiveAmount(t *testing.T) {
	state := baseState()
	_, err := PrepaymentImpact(state, PrepaymentRequest{Amount: money.Zero, Action: domain.PrepaymentReduceEMI})
	if err == nil {
		t.Fatal("expected error for non-positive prepayment amount")
	}
}

func TestApplyPrepaymentRecordsEvent(t *testing.T) {
	state := baseState()
	req := PrepaymentRequest{Amount: money.NewFromFloat(20000), Action: domain.PrepaymentReduceEMI, PenaltyRate: money.NewRateFromPercent(1)}
	paidAt := mustDate("2025-03-01")
	p, err := ApplyPrepayment("A1", state, req, paidAt)
	if err != nil {
		t.Fatal(err)
	}
	if !p.PrincipalPrepaid.Equal(req.Amount) {
		t.Errorf("PrincipalPrepaid = %s, want %s", p.PrincipalPrepaid, req.Amount)
	}
	wantPenalty := req.Amount.MulRate(req.PenaltyRate)
	if !p.Penalty.Equal(wantPenalty) {
		t.Errorf("Penalty = %s, want %s", p.Penalty, wantPenalty)
	}
	if !p.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt = %v, want %v", p.PaidAt, paidAt)
	}
}
