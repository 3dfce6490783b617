// Package colending splits a collection event across an account's partner
// participations, posting a running-balance PartnerLedgerEntry per
// partner/component the way mcclellann-fredLoan's pkg/ledger posts each
// RecordPayment call against a running account balance.
package colending

import (
	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// Collection is the (principal, interest, fees) components of one payment
// allocation, already net of the waterfall (waterfall.Result.Allocations
// summed by component).
type Collection struct {
	Principal money.Amount
	Interest  money.Amount
	Fees      money.Amount
}

// ServicerWithholding carries the two deductions taken from
// the lender's interest share before crediting it: a servicer fee and an
// excess-spread withholding.
type ServicerWithholding struct {
	ServicerFee  money.Amount
	ExcessSpread money.Amount
}

// RunningBalances tracks the last posted balance per (partner, component),
// keyed by partner ID then component, so Split can compute each entry's
// RunningBalance = previous + signed_amount.
type RunningBalances map[string]map[domain.LedgerComponent]money.Amount

// Balance returns the last posted balance for partnerID/component, or zero
// if none has been posted yet.
func (b RunningBalances) Balance(partnerID string, component domain.LedgerComponent) money.Amount {
	byComponent, ok := b[partnerID]
	if !ok {
		return money.Zero
	}
	v, ok := byComponent[component]
	if !ok {
		return money.Zero
	}
	return v
}

func (b RunningBalances) post(partnerID string, component domain.LedgerComponent, newBalance money.Amount) {
	if b[partnerID] == nil {
		b[partnerID] = make(map[domain.LedgerComponent]money.Amount)
	}
	b[partnerID][component] = newBalance
}

// Split posts PartnerLedgerEntry rows for one collection across
// participations. Principal and fees are split pro-rata
// by SharePercent with no withholding. Interest is split pro-rata, then
// each participation that has an entry in withholdings (keyed by partner
// id; the participation with the largest SharePercent is not assumed to be
// the lender) has that servicer fee and excess-spread withholding deducted
// from its interest share, and the total withheld is credited as a
// separate servicer-income posting against the originator/servicer partner.
func Split(accountID, paymentID string, col Collection, participations []domain.LoanParticipation, withholdings map[string]ServicerWithholding, balances RunningBalances) ([]domain.PartnerLedgerEntry, error) {
	if len(participations) == 0 {
		return nil, errs.InvalidInputf(accountID, "collection split requires at least one participation")
	}
	var entries []domain.PartnerLedgerEntry
	var servicerIncome money.Amount

	for _, p := range participations {
		share := p.SharePercent.DivInt(100)

		principalShare := col.Principal.MulRate(share)
		entries = append(entries, postEntry(&balances, accountID, p.PartnerID, paymentID, domain.LedgerPrincipal, principalShare))

		feesShare := col.Fees.MulRate(share)
		if !feesShare.IsZero() {
			entries = append(entries, postEntry(&balances, accountID, p.PartnerID, paymentID, domain.LedgerFees, feesShare))
		}

		interestShare := col.Interest.MulRate(share)
		w := withholdings[p.PartnerID]
		netInterest := interestShare.Sub(w.ServicerFee).Sub(w.ExcessSpread)
		entries = append(entries, postEntry(&balances, accountID, p.PartnerID, paymentID, domain.LedgerInterest, netInterest))
		servicerIncome = servicerIncome.Add(w.ServicerFee).Add(w.ExcessSpread)
	}

	if servicerIncome.IsPositive() {
		entries = append(entries, postEntry(&balances, accountID, servicerPartnerID(participations), paymentID, domain.LedgerServicerFee, servicerIncome))
	}

	return entries, nil
}

// servicerPartnerID designates the last participation's partner as the
// servicer-income recipient. Only a two-partner (lender/originator)
// arrangement is handled; which partner collects servicer income among
// more than two is left to the caller to resolve upstream.
func servicerPartnerID(participations []domain.LoanParticipation) string {
	return participations[len(participations)-1].PartnerID
}

func postEntry(balances *RunningBalances, accountID, partnerID, paymentID string, component domain.LedgerComponent, amount money.Amount) domain.PartnerLedgerEntry {
	prior := balances.Balance(partnerID, component)
	newBalance := prior.Add(amount)
	balances.post(partnerID, component, newBalance)
	return domain.PartnerLedgerEntry{
		AccountID:      accountID,
		PartnerID:      partnerID,
		PaymentID:      paymentID,
		Component:      component,
		SignedAmount:   amount,
		RunningBalance: newBalance,
	}
}

// ServicerFeeAmount computes the servicer fee: base · fee_rate · days /
// 365, where base is the account's outstanding principal or the lender's
// share of it depending on FeeBase.
func ServicerFeeAmount(p domain.LoanParticipation, outstandingPrincipal money.Amount, days int) money.Amount {
	base := outstandingPrincipal
	if p.FeeBase == domain.ServicerFeeBaseLenderShare {
		base = outstandingPrincipal.MulRate(p.SharePercent.DivInt(100))
	}
	annualFee := base.MulRate(p.ServicerFeeRate)
	dayFrac := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(365))
	return annualFee.MulFrac(dayFrac)
}

// ExcessSpreadAmount computes interest_component * (borrower_rate -
// lender_yield) / borrower_rate. Returns zero if the participation has no
// PartnerYield configured (no excess-spread withholding applies) or if
// borrowerRate is zero.
func ExcessSpreadAmount(p domain.LoanParticipation, interestComponent money.Amount, borrowerRate money.Rate) money.Amount {
	if p.PartnerYield == nil || borrowerRate.IsZero() {
		return money.Zero
	}
	spread := borrowerRate.Sub(*p.PartnerYield)
	frac := spread.Decimal().Div(borrowerRate.Decimal())
	return interestComponent.MulFrac(frac)
}
