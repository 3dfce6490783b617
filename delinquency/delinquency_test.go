package delinquency

import (
	"testing"
	"time"

	"github.com/losplatform/engine/domain"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		dpd  int
		want domain.DelinquencyBucket
	}{
		{0, domain.BucketCurrent},
		{1, domain.BucketSMA0},
		{30, domain.BucketSMA0},
		{31, domain.BucketSMA1},
		{60, domain.BucketSMA1},
		{61, domain.BucketSMA2},
		{90, domain.BucketSMA2},
		{91, domain.BucketNPASubstandard},
		{365, domain.BucketNPASubstandard},
		{366, domain.BucketNPADoubtful},
		{1095, domain.BucketNPADoubtful},
		{1096, domain.BucketNPALoss},
	}
	for _, c := range cases {
		got := Bucket(c.dpd, DefaultBoundaries)
		if got != c.want {
			t.Errorf("Bucket(%d) = %v, want %v", c.dpd, got, c.want)
		}
	}
}

// TestStickyNPAMatchesS3 reproduces worked example S3: DPD=95
// triggers NPA substandard; a partial payment reduces DPD to 45 but NPA
// stays sticky; a further payment clears DPD to 0, curing the account.
func TestStickyNPAMatchesS3(t *testing.T) {
	due := mustDate("2025-01-01")

	asOf1 := due.AddDate(0, 0, 95)
	t1 := Evaluate(false, nil, &due, asOf1, DefaultBoundaries)
	if !t1.IsNPA || t1.NPACategory != domain.NPASubstandard {
		t.Fatalf("expected NPA substandard at DPD=95, got %+v", t1)
	}

	asOf2 := due.AddDate(0, 0, 45)
	t2 := Evaluate(true, t1.NPADate, &due, asOf2, DefaultBoundaries)
	if !t2.IsNPA {
		t.Errorf("expected sticky NPA at DPD=45 after partial cure, got %+v", t2)
	}

	t3 := Evaluate(true, t1.NPADate, nil, mustDate("2025-06-01"), DefaultBoundaries)
	if t3.IsNPA || t3.NPADate != nil || t3.Bucket != domain.BucketCurrent {
		t.Errorf("expected full cure when DPD returns to 0, got %+v", t3)
	}
}

func TestDPDZeroWhenNoUnpaidInstallment(t *testing.T) {
	if got := DPD(nil, mustDate("2025-01-01")); got != 0 {
		t.Errorf("DPD(nil) = %d, want 0", got)
	}
}

func TestNewNPADoesNotTriggerBelowThreshold(t *testing.T) {
	due := mustDate("2025-01-01")
	asOf := due.AddDate(0, 0, 90)
	tr := Evaluate(false, nil, &due, asOf, DefaultBoundaries)
	if tr.IsNPA {
		t.Errorf("expected no NPA at DPD=90 (boundary is strictly >90), got %+v", tr)
	}
}
