package domain

import (
	"time"

	"github.com/losplatform/engine/money"
)

// Channel is the inbound collection channel for a Payment.
type Channel int

const (
	ChannelUnknown Channel = iota
	ChannelNACH
	ChannelUPI
	ChannelCheque
	ChannelCash
	ChannelCardEMI
)

func (c Channel) String() string {
	switch c {
	case ChannelNACH:
		return "nach"
	case ChannelUPI:
		return "upi"
	case ChannelCheque:
		return "cheque"
	case ChannelCash:
		return "cash"
	case ChannelCardEMI:
		return "card_emi"
	default:
		return "unknown"
	}
}

// Payment records an inbound amount . Invariant: Σ allocations +
// Unallocated = Amount.
type Payment struct {
	ID          string
	AccountID   string
	Amount      money.Amount
	PaidAt      time.Time
	Channel     Channel
	ExternalRef string
	Unallocated money.Amount
}

// PaymentAllocation attaches a Payment to exactly one schedule row, recording
// the three component allocations.
type PaymentAllocation struct {
	PaymentID         string
	AccountID         string
	InstallmentNumber int

	Principal money.Amount
	Interest  money.Amount
	Fees      money.Amount
}

// Total sums the three components of the allocation.
func (a PaymentAllocation) Total() money.Amount {
	return a.Principal.Add(a.Interest).Add(a.Fees)
}
