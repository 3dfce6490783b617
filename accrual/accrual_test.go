package accrual

import (
	"testing"
	"time"

	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedRate(r money.Rate) RateAt {
	return func(time.Time) (money.Rate, error) { return r, nil }
}

func TestAccrueDailySeriesAndCumulative(t *testing.T) {
	first := mustDate("2025-01-01")
	asOf := mustDate("2025-01-03")
	rows, err := Accrue("A1", money.NewFromFloat(100000), first, asOf, daycount.Actual365, fixedRate(money.NewRateFromPercent(12)), money.Zero)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// 100000 * 0.12 / 365 = 32.876712... -> half-up 32.88
	want := money.NewFromFloat(32.88)
	if !rows[0].Accrued.Equal(want) {
		t.Errorf("row0 accrued = %s, want %s", rows[0].Accrued, want)
	}
	if !rows[2].Cumulative.Equal(rows[0].Accrued.Add(rows[1].Accrued).Add(rows[2].Accrued)) {
		t.Errorf("cumulative mismatch: %s", rows[2].Cumulative)
	}
	for i, r := range rows {
		if r.Status != domain.AccrualAccrued {
			t.Errorf("row %d status = %v, want accrued", i, r.Status)
		}
	}
}

func TestAccrueRejectsAsOfBeforeFirst(t *testing.T) {
	first := mustDate("2025-01-10")
	asOf := mustDate("2025-01-01")
	if _, err := Accrue("A1", money.NewFromFloat(1000), first, asOf, daycount.Actual365, fixedRate(money.ZeroRate), money.Zero); err == nil {
		t.Error("expected error when as-of precedes first accrual date")
	}
}

func TestNextAccrualDateUsesDisbursementWhenNil(t *testing.T) {
	disb := mustDate("2025-01-01")
	got := NextAccrualDate(nil, disb)
	if !got.Equal(disb) {
		t.Errorf("got %v, want %v", got, disb)
	}
	last := mustDate("2025-01-05")
	got2 := NextAccrualDate(&last, disb)
	if !got2.Equal(mustDate("2025-01-06")) {
		t.Errorf("got %v, want 2025-01-06", got2)
	}
}
