package schedule

import (
	"testing"
	"time"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestEMIScheduleMatchesS1 reproduces worked example S1: P=100000,
// annual=12% (r=0.01), n=12, ACT/365, no calendar.
func TestEMIScheduleMatchesS1(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(100000),
		AnnualRate:    money.NewRateFromPercent(12),
		TenurePeriods: 12,
		Frequency:     Monthly,
		Type:          EMI,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 12 {
		t.Fatalf("got %d rows, want 12", len(rows))
	}
	first := rows[0]
	if !first.OpeningBalance.Equal(money.NewFromFloat(100000)) {
		t.Errorf("row1 opening = %s, want 100000.00", first.OpeningBalance)
	}
	if !first.InterestDue.Equal(money.NewFromFloat(1000.00)) {
		t.Errorf("row1 interest = %s, want 1000.00", first.InterestDue)
	}
	if !first.PrincipalDue.Equal(money.NewFromFloat(7884.88)) {
		t.Errorf("row1 principal = %s, want 7884.88", first.PrincipalDue)
	}
	if !first.ClosingBalance.Equal(money.NewFromFloat(92115.12)) {
		t.Errorf("row1 closing = %s, want 92115.12", first.ClosingBalance)
	}
	last := rows[11]
	if !last.ClosingBalance.IsZero() {
		t.Errorf("row12 closing = %s, want 0.00", last.ClosingBalance)
	}

	total := money.Zero
	for _, r := range rows {
		total = total.Add(r.PrincipalDue)
	}
	if !total.Equal(money.NewFromFloat(100000)) {
		t.Errorf("sum of principal_due = %s, want 100000.00", total)
	}
}

func TestZeroRateEMIIsLevelPrincipal(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(12000),
		AnnualRate:    money.ZeroRate,
		TenurePeriods: 12,
		Frequency:     Monthly,
		Type:          EMI,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if !r.InterestDue.IsZero() {
			t.Errorf("expected zero interest at zero rate, got %s", r.InterestDue)
		}
		if !r.PrincipalDue.Equal(money.NewFromFloat(1000)) {
			t.Errorf("expected level principal 1000.00, got %s", r.PrincipalDue)
		}
	}
}

func TestSinglePeriodTenure(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(10000),
		AnnualRate:    money.NewRateFromPercent(12),
		TenurePeriods: 1,
		Frequency:     Monthly,
		Type:          EMI,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !rows[0].ClosingBalance.IsZero() {
		t.Errorf("single-period closing = %s, want 0.00", rows[0].ClosingBalance)
	}
}

func TestInterestOnlyPrincipalOnlyInLastRow(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(50000),
		AnnualRate:    money.NewRateFromPercent(10),
		TenurePeriods: 6,
		Frequency:     Monthly,
		Type:          InterestOnly,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range rows[:5] {
		if !r.PrincipalDue.IsZero() {
			t.Errorf("row %d principal = %s, want 0.00", i+1, r.PrincipalDue)
		}
	}
	if !rows[5].PrincipalDue.Equal(money.NewFromFloat(50000)) {
		t.Errorf("final row principal = %s, want 50000.00", rows[5].PrincipalDue)
	}
}

func TestBulletPaysAllAtTerminalPeriod(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(20000),
		AnnualRate:    money.NewRateFromPercent(12),
		TenurePeriods: 3,
		Frequency:     Monthly,
		Type:          Bullet,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range rows[:2] {
		if !r.PrincipalDue.IsZero() || !r.InterestDue.IsZero() {
			t.Errorf("row %d should have zero dues pre-maturity, got principal=%s interest=%s", i+1, r.PrincipalDue, r.InterestDue)
		}
	}
	if !rows[2].PrincipalDue.Equal(money.NewFromFloat(20000)) {
		t.Errorf("terminal principal = %s, want 20000.00", rows[2].PrincipalDue)
	}
	if !rows[2].ClosingBalance.IsZero() {
		t.Errorf("terminal closing = %s, want 0.00", rows[2].ClosingBalance)
	}
}

func TestMoratoriumZeroesPrincipalDuringHolds(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(100000),
		AnnualRate:    money.NewRateFromPercent(12),
		TenurePeriods: 12,
		Frequency:     Monthly,
		Type:          Moratorium,
		FirstDueDate:  date(2025, time.January, 1),
		DayCount:      daycount.Actual365,
		Moratorium:    MoratoriumParams{Count: 3, Treatment: MoratoriumCapitalize},
	}
	rows, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range rows[:3] {
		if !r.PrincipalDue.IsZero() {
			t.Errorf("moratorium row %d principal = %s, want 0.00", i+1, r.PrincipalDue)
		}
	}
	if !rows[3].OpeningBalance.GreaterThan(money.NewFromFloat(100000)) {
		t.Errorf("expected capitalized balance to exceed original principal, got %s", rows[3].OpeningBalance)
	}
	if !rows[11].ClosingBalance.IsZero() {
		t.Errorf("final closing = %s, want 0.00", rows[11].ClosingBalance)
	}
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	base := Input{
		Principal:     money.NewFromFloat(1000),
		AnnualRate:    money.NewRateFromPercent(10),
		TenurePeriods: 6,
		Frequency:     Monthly,
		Type:          EMI,
		FirstDueDate:  date(2025, time.January, 1),
	}

	zeroPrincipal := base
	zeroPrincipal.Principal = money.Zero
	if _, err := Generate(zeroPrincipal); err == nil {
		t.Error("expected error for non-positive principal")
	}

	zeroTenure := base
	zeroTenure.TenurePeriods = 0
	if _, err := Generate(zeroTenure); err == nil {
		t.Error("expected error for non-positive tenure")
	}

	badBalloon := base
	badBalloon.Type = Balloon
	badBalloon.Balloon = BalloonParams{FinalFraction: money.NewRateFromFloat(1.5)}
	if _, err := Generate(badBalloon); err == nil {
		t.Error("expected error for balloon fraction outside (0,1)")
	}
}

func TestGenerateIsReferentiallyTransparent(t *testing.T) {
	in := Input{
		Principal:     money.NewFromFloat(250000),
		AnnualRate:    money.NewRateFromPercent(9.5),
		TenurePeriods: 24,
		Frequency:     Monthly,
		Type:          EMI,
		FirstDueDate:  date(2025, time.March, 5),
		DayCount:      daycount.Actual365,
		Calendar: &calendar.Calendar{
			ID:         "IN",
			Holidays:   map[string]bool{"2025-08-15": true},
			WeeklyOffs: map[time.Weekday]bool{time.Sunday: true},
		},
		AdjustMode: calendar.ModifiedFollowing,
	}
	a, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].Number != b[i].Number || !a[i].DueDate.Equal(b[i].DueDate) ||
			!a[i].OpeningBalance.Equal(b[i].OpeningBalance) || !a[i].PrincipalDue.Equal(b[i].PrincipalDue) ||
			!a[i].InterestDue.Equal(b[i].InterestDue) || !a[i].ClosingBalance.Equal(b[i].ClosingBalance) {
			t.Fatalf("row %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
