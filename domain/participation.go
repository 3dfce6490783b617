package domain

import "github.com/losplatform/engine/money"

// ServicerFeeBase is the closed tagged variant resolving one of // flagged open questions: the base a servicer fee withholding is computed
// against.
type ServicerFeeBase int

const (
	// ServicerFeeBaseOutstandingPrincipal bases the fee on the account's full
	// outstanding principal.
	ServicerFeeBaseOutstandingPrincipal ServicerFeeBase = iota
	// ServicerFeeBaseLenderShare bases the fee on the lender's share of
	// outstanding principal (outstanding * lender share%).
	ServicerFeeBaseLenderShare
)

// LoanParticipation is an (account, partner) co-lending share.
// Invariant: across all participations of an account, Σ SharePercent =
// 100.00 within a tolerance of 0.01.
type LoanParticipation struct {
	AccountID string
	PartnerID string

	SharePercent    money.Rate // percentage points, e.g. 80.00 not 0.80
	PartnerYield    *money.Rate
	FeeSharePercent *money.Rate
	ServicerFeeRate money.Rate
	FeeBase         ServicerFeeBase

	CumulativeDisbursed money.Amount
	CumulativeCollected money.Amount
}

// PartnerLedgerEntry is an immutable posting from a co-lending collection
// split . Invariant: entry_n = entry_{n-1} + SignedAmount for
// a given (AccountID, PartnerID) running balance.
type PartnerLedgerEntry struct {
	ID        string
	AccountID string
	PartnerID string
	PaymentID string

	Component    LedgerComponent
	SignedAmount money.Amount
	RunningBalance money.Amount
}

// LedgerComponent tags which split component a PartnerLedgerEntry posts.
type LedgerComponent int

const (
	LedgerPrincipal LedgerComponent = iota
	LedgerInterest
	LedgerServicerFee
	LedgerFees
)

func (c LedgerComponent) String() string {
	switch c {
	case LedgerPrincipal:
		return "principal"
	case LedgerInterest:
		return "interest"
	case LedgerServicerFee:
		return "servicer_fee"
	case LedgerFees:
		return "fees"
	default:
		return "unknown"
	}
}
