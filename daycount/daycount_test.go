package daycount

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFractionConventions(t *testing.T) {
	start := date(2025, time.January, 1)
	end := date(2025, time.February, 1)

	got, err := YearFraction(start, end, Thirty360)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got.InexactFloat64(), 30.0/360.0) {
		t.Errorf("30/360 got %s, want %v", got, 30.0/360.0)
	}

	got, err = YearFraction(start, end, Actual365)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got.InexactFloat64(), 31.0/365.0) {
		t.Errorf("ACT/365 got %s, want %v", got, 31.0/365.0)
	}

	got, err = YearFraction(start, end, Actual360)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got.InexactFloat64(), 31.0/360.0) {
		t.Errorf("ACT/360 got %s, want %v", got, 31.0/360.0)
	}
}

func TestActualActualISDACrossesYearBoundary(t *testing.T) {
	start := date(2023, time.December, 20)
	end := date(2024, time.January, 10)
	// 2024 is a leap year; 2023 is not.
	got, err := YearFraction(start, end, ActualActualISDA)
	if err != nil {
		t.Fatal(err)
	}
	want := 12.0/365.0 + 9.0/366.0
	if !closeTo(got.InexactFloat64(), want) {
		t.Errorf("ACT/ACT got %s, want %v", got, want)
	}
}

func TestDailyFraction(t *testing.T) {
	d := date(2025, time.March, 1)
	got, err := DailyFraction(d, Actual365)
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got.InexactFloat64(), 1.0/365.0) {
		t.Errorf("daily fraction got %s", got)
	}
}

func TestYearFractionRejectsInverted(t *testing.T) {
	start := date(2025, time.March, 1)
	end := date(2025, time.January, 1)
	if _, err := YearFraction(start, end, Actual365); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, c := range []Convention{Thirty360, Actual365, Actual360, ActualActualISDA} {
		parsed, err := Parse(c.String())
		if err != nil {
			t.Fatalf("Parse(%s) error: %v", c.String(), err)
		}
		if parsed != c {
			t.Errorf("round trip mismatch for %s", c.String())
		}
	}
	if _, err := Parse("bogus"); err == nil {
		t.Error("expected error for unknown convention code")
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
