// Package delinquency computes DPD, bucket classification, and sticky-NPA
// state transitions. Bucket boundaries follow the DPD/status fields
// modeled by LibertytechX-seeds-metrics's loan model and aladhims-billing's
// LoanStatus enum, generalized into an explicit boundary configuration
// rather than hard-coded thresholds.
package delinquency

import (
	"time"

	"github.com/losplatform/engine/domain"
)

// Boundaries are the configurable DPD thresholds for SMA/NPA bucketing,
// exposed as configuration rather than hard-coded.
type Boundaries struct {
	SMA0Upper int // inclusive upper bound of SMA-0 (default 30)
	SMA1Upper int // default 60
	SMA2Upper int // default 90; DPD > this enters NPA
	NPATriggerDPD int // default 90 — DPD strictly greater enters NPA substandard
	DoubtfulUpper int // default 365; DPD > this enters doubtful
	LossLower     int // default 1096; DPD >= this enters loss
}

// DefaultBoundaries are worked table values.
var DefaultBoundaries = Boundaries{
	SMA0Upper:     30,
	SMA1Upper:     60,
	SMA2Upper:     90,
	NPATriggerDPD: 90,
	DoubtfulUpper: 365,
	LossLower:     1096,
}

// DPD computes days-past-due as of asOf, given the oldest unpaid
// installment's due date (nil if no unpaid installment exists).
func DPD(oldestUnpaidDueDate *time.Time, asOf time.Time) int {
	if oldestUnpaidDueDate == nil {
		return 0
	}
	if asOf.Before(*oldestUnpaidDueDate) {
		return 0
	}
	days := int(asOf.Sub(*oldestUnpaidDueDate).Hours() / 24)
	return days
}

// Bucket maps a DPD value to its delinquency bucket under b.
func Bucket(dpd int, b Boundaries) domain.DelinquencyBucket {
	switch {
	case dpd == 0:
		return domain.BucketCurrent
	case dpd <= b.SMA0Upper:
		return domain.BucketSMA0
	case dpd <= b.SMA1Upper:
		return domain.BucketSMA1
	case dpd <= b.SMA2Upper:
		return domain.BucketSMA2
	case dpd <= b.DoubtfulUpper:
		return domain.BucketNPASubstandard
	case dpd < b.LossLower:
		return domain.BucketNPADoubtful
	default:
		return domain.BucketNPALoss
	}
}

// NPACategoryFor maps a bucket to its NPA category, or NPANone if the
// bucket is not an NPA bucket.
func NPACategoryFor(bucket domain.DelinquencyBucket) domain.NPACategory {
	switch bucket {
	case domain.BucketNPASubstandard:
		return domain.NPASubstandard
	case domain.BucketNPADoubtful:
		return domain.NPADoubtful
	case domain.BucketNPALoss:
		return domain.NPALoss
	default:
		return domain.NPANone
	}
}

// Transition is the sticky-NPA state machine's result: new NPA flag,
// category, and date given the account's current sticky state and the
// freshly computed DPD/bucket.
type Transition struct {
	DPD         int
	Bucket      domain.DelinquencyBucket
	IsNPA       bool
	NPACategory domain.NPACategory
	NPADate     *time.Time
}

// Evaluate applies sticky-NPA rule: once IsNPA is true it
// remains true until DPD returns to exactly 0 (full cure); partial
// payments never reset it. On cure, the NPA flag clears and npa_date is
// cleared, but the account's restructure flag is untouched by this event
// (that flag is owned by the lifecycle package).
func Evaluate(wasNPA bool, priorNPADate *time.Time, oldestUnpaidDueDate *time.Time, asOf time.Time, b Boundaries) Transition {
	dpd := DPD(oldestUnpaidDueDate, asOf)
	bucket := Bucket(dpd, b)

	if wasNPA {
		if dpd == 0 {
			return Transition{DPD: dpd, Bucket: bucket, IsNPA: false, NPACategory: domain.NPANone, NPADate: nil}
		}
		return Transition{DPD: dpd, Bucket: bucket, IsNPA: true, NPACategory: NPACategoryFor(bucket), NPADate: priorNPADate}
	}

	if dpd > b.NPATriggerDPD {
		d := asOf
		return Transition{DPD: dpd, Bucket: bucket, IsNPA: true, NPACategory: NPACategoryFor(bucket), NPADate: &d}
	}
	return Transition{DPD: dpd, Bucket: bucket, IsNPA: false, NPACategory: domain.NPANone, NPADate: nil}
}
