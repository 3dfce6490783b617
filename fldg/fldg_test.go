package fldg

import (
	"testing"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

func baseArrangement() domain.FLDGArrangement {
	return domain.FLDGArrangement{
		ID:                 "F1",
		EffectiveLimit:     money.NewFromFloat(500000),
		CoversPrincipal:    true,
		CoversInterest:     true,
		CoversFees:         false,
		CurrentBalance:     money.NewFromFloat(500000),
		TriggerDPD:         90,
		ReplenishFirst:     true,
		LenderSharePercent: money.NewRateFromPercent(8000),
	}
}

// TestClaimAndRecoverMatchesS5 reproduces worked example S5 end
// to end: claim approved = 84000, post-claim balance = 416000; a later
// 50000 principal-only recovery replenishes 40000 (capped by lender
// share), routes 10000 excess to the lender, and restores the balance to
// 456000.
func TestClaimAndRecoverMatchesS5(t *testing.T) {
	arr := baseArrangement()
	util, arr, err := Claim(arr, ClaimInput{
		AccountID:     "A1",
		TriggerReason: "write_off",
		Principal:     money.NewFromFloat(100000),
		Interest:      money.NewFromFloat(5000),
		Fees:          money.NewFromFloat(200),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !util.Claimed.Equal(money.NewFromFloat(84000)) {
		t.Errorf("claimed = %s, want 84000.00", util.Claimed)
	}
	if !util.Approved.Equal(money.NewFromFloat(84000)) {
		t.Errorf("approved = %s, want 84000.00", util.Approved)
	}
	if !arr.CurrentBalance.Equal(money.NewFromFloat(416000)) {
		t.Errorf("post-claim balance = %s, want 416000.00", arr.CurrentBalance)
	}

	rec, arr, err := Recover(arr, util, money.Zero, money.NewFromFloat(50000), "collections")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.ReplenishedAmount.Equal(money.NewFromFloat(40000)) {
		t.Errorf("replenished = %s, want 40000.00", rec.ReplenishedAmount)
	}
	if !rec.ExcessToLender.Equal(money.NewFromFloat(10000)) {
		t.Errorf("excess = %s, want 10000.00", rec.ExcessToLender)
	}
	if !arr.CurrentBalance.Equal(money.NewFromFloat(456000)) {
		t.Errorf("post-recovery balance = %s, want 456000.00", arr.CurrentBalance)
	}
}

func TestClaimCapsAtCurrentBalance(t *testing.T) {
	arr := baseArrangement()
	arr.CurrentBalance = money.NewFromFloat(10000)
	util, arr, err := Claim(arr, ClaimInput{
		AccountID: "A1",
		Principal: money.NewFromFloat(100000),
		Interest:  money.NewFromFloat(5000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !util.Approved.Equal(money.NewFromFloat(10000)) {
		t.Errorf("approved = %s, want capped at 10000.00", util.Approved)
	}
	if !arr.CurrentBalance.IsZero() {
		t.Errorf("balance after full exhaustion = %s, want 0", arr.CurrentBalance)
	}
}

func TestClaimRejectsWhenBalanceExhausted(t *testing.T) {
	arr := baseArrangement()
	arr.CurrentBalance = money.Zero
	_, _, err := Claim(arr, ClaimInput{Principal: money.NewFromFloat(1000)})
	if err == nil {
		t.Fatal("expected error when arrangement balance is exhausted")
	}
}

func TestClaimExcludesUncoveredComponents(t *testing.T) {
	arr := baseArrangement()
	util, _, err := Claim(arr, ClaimInput{
		Principal: money.NewFromFloat(1000),
		Fees:      money.NewFromFloat(500),
	})
	if err != nil {
		t.Fatal(err)
	}
	// fees aren't covered; claim should only reflect the principal share.
	want := money.NewFromFloat(1000).MulRate(money.NewRateFromPercent(80))
	if !util.Claimed.Equal(want) {
		t.Errorf("claimed = %s, want %s (fees excluded)", util.Claimed, want)
	}
}

func TestRecoverCapsReplenishmentAtRemainingApproved(t *testing.T) {
	arr := baseArrangement()
	util := domain.FLDGUtilization{ArrangementID: arr.ID, Approved: money.NewFromFloat(8000)}
	rec, arr, err := Recover(arr, util, money.NewFromFloat(7000), money.NewFromFloat(5000), "collections")
	if err != nil {
		t.Fatal(err)
	}
	// candidate replenishment = 5000*0.8=4000, but room = 8000-7000=1000.
	if !rec.ReplenishedAmount.Equal(money.NewFromFloat(1000)) {
		t.Errorf("replenished = %s, want capped at 1000.00", rec.ReplenishedAmount)
	}
	if !rec.ExcessToLender.Equal(money.NewFromFloat(4000)) {
		t.Errorf("excess = %s, want 4000.00", rec.ExcessToLender)
	}
}

func TestRecoverWithoutReplenishFirstRoutesAllToLender(t *testing.T) {
	arr := baseArrangement()
	arr.ReplenishFirst = false
	util := domain.FLDGUtilization{ArrangementID: arr.ID, Approved: money.NewFromFloat(84000)}
	rec, arr, err := Recover(arr, util, money.Zero, money.NewFromFloat(50000), "collections")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.ReplenishedAmount.IsZero() {
		t.Errorf("expected no replenishment when ReplenishFirst is false, got %s", rec.ReplenishedAmount)
	}
	if !rec.ExcessToLender.Equal(money.NewFromFloat(50000)) {
		t.Errorf("excess = %s, want the full recovery amount", rec.ExcessToLender)
	}
}

func TestRecoverRejectsNonPositiveAmount(t *testing.T) {
	arr := baseArrangement()
	util := domain.FLDGUtilization{ArrangementID: arr.ID, Approved: money.NewFromFloat(1000)}
	_, _, err := Recover(arr, util, money.Zero, money.Zero, "collections")
	if err == nil {
		t.Fatal("expected error for non-positive recovery amount")
	}
}
