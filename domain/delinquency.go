package domain

import (
	"time"

	"github.com/losplatform/engine/money"
)

// DelinquencySnapshot is a daily (account, date) record.
type DelinquencySnapshot struct {
	AccountID string
	Date      time.Time

	DPD         int
	Bucket      DelinquencyBucket
	IsNPA       bool
	NPACategory NPACategory

	OverduePrincipal money.Amount
	OverdueInterest  money.Amount
	OverdueFees      money.Amount

	OldestDueDate        *time.Time
	MissedInstallmentCount int
}
