package calendar

import (
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleCalendar() *Calendar {
	return &Calendar{
		ID: "IN",
		Holidays: map[string]bool{
			"2025-01-26": true, // Sunday in 2025 actually Jan 26 2025 is a Sunday
			"2025-08-15": true, // Friday
		},
		WeeklyOffs: map[time.Weekday]bool{time.Sunday: true},
	}
}

func TestIsBusinessDay(t *testing.T) {
	c := sampleCalendar()
	if c.IsBusinessDay(mustDate("2025-08-15")) {
		t.Error("expected holiday to not be a business day")
	}
	if !c.IsBusinessDay(mustDate("2025-08-14")) {
		t.Error("expected plain weekday to be a business day")
	}
	if c.IsBusinessDay(mustDate("2025-08-17")) { // Sunday
		t.Error("expected Sunday to not be a business day")
	}
}

func TestAdjustFollowing(t *testing.T) {
	c := sampleCalendar()
	got := c.Adjust(mustDate("2025-08-15"), Following)
	if got.Format("2006-01-02") != "2025-08-16" {
		t.Errorf("Following got %s, want 2025-08-16", got.Format("2006-01-02"))
	}
}

func TestAdjustPreceding(t *testing.T) {
	c := sampleCalendar()
	got := c.Adjust(mustDate("2025-08-15"), Preceding)
	if got.Format("2006-01-02") != "2025-08-14" {
		t.Errorf("Preceding got %s, want 2025-08-14", got.Format("2006-01-02"))
	}
}

func TestAdjustModifiedFollowingCrossesMonth(t *testing.T) {
	c := &Calendar{
		ID: "EOM",
		Holidays: map[string]bool{
			"2025-08-30": true,
			"2025-08-31": true,
		},
		WeeklyOffs: map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
	}
	// Aug 30 2025 is a Saturday; Aug 31 is a Sunday; Sep 1 is a Monday business day,
	// but that crosses into September so modified_following must fall back.
	got := c.Adjust(mustDate("2025-08-30"), ModifiedFollowing)
	if got.Month() != time.August {
		t.Errorf("ModifiedFollowing crossed month boundary, got %s", got.Format("2006-01-02"))
	}
}

func TestAdjustModifiedPrecedingCrossesMonth(t *testing.T) {
	c := &Calendar{
		ID:         "SOM",
		Holidays:   map[string]bool{"2025-09-01": true},
		WeeklyOffs: map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
	}
	// Sep 1 2025 is a Monday holiday; preceding business days are Aug 29 (Friday),
	// which crosses into August, so modified_preceding must fall back forward.
	got := c.Adjust(mustDate("2025-09-01"), ModifiedPreceding)
	if got.Month() != time.September {
		t.Errorf("ModifiedPreceding crossed month boundary, got %s", got.Format("2006-01-02"))
	}
}

func TestCacheSeedAndGet(t *testing.T) {
	cache := NewCache("/nonexistent/path.yaml")
	cache.Seed(sampleCalendar())
	cal, err := cache.Get("IN")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cal.ID != "IN" {
		t.Errorf("got calendar %s, want IN", cal.ID)
	}
	if _, err := cache.Get("missing"); err == nil {
		t.Error("expected NotFound for missing calendar")
	}
}

func TestParseAdjustModeRoundTrip(t *testing.T) {
	for _, m := range []AdjustMode{Following, Preceding, ModifiedFollowing, ModifiedPreceding} {
		parsed, err := ParseAdjustMode(m.String())
		if err != nil {
			t.Fatalf("ParseAdjustMode(%s): %v", m.String(), err)
		}
		if parsed != m {
			t.Errorf("round trip mismatch for %s", m.String())
		}
	}
}
