package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
)

// PrepaymentRequest is the input to PrepaymentImpact/ApplyPrepayment.
type PrepaymentRequest struct {
	Amount      money.Amount
	Action      domain.PrepaymentAction
	PenaltyRate money.Rate
	PenaltyWaived bool
}

// PrepaymentState is the current account state PrepaymentImpact needs: it
// deliberately excludes anything PrepaymentImpact would need to mutate, so
// that the function stays a pure read of current state.
type PrepaymentState struct {
	PrincipalOutstanding money.Amount
	AccruedInterest      money.Amount
	OutstandingFees      money.Amount
	OverdueTotal         money.Amount
	CurrentEMI           money.Amount
	CurrentRate          money.Rate
	TenureRemaining      int
	Frequency            schedule.Frequency
}

// payoffAmount computes payoff formula: principal_outstanding
// + accrued_interest + outstanding_fees + overdue_total + penalty, where
// penalty = penalty_rate * prepaid_principal unless waived.
func payoffAmount(state PrepaymentState, req PrepaymentRequest, prepaidPrincipal money.Amount) (money.Amount, money.Amount) {
	penalty := money.Zero
	if !req.PenaltyWaived {
		penalty = prepaidPrincipal.MulRate(req.PenaltyRate)
	}
	total := state.PrincipalOutstanding.Add(state.AccruedInterest).Add(state.OutstandingFees).Add(state.OverdueTotal).Add(penalty)
	return total, penalty
}

// PrepaymentImpact is a pure function of current state and the prepayment
// request: it never mutates state, and calling it repeatedly with the same
// inputs returns identical values (round-trip law).
func PrepaymentImpact(state PrepaymentState, req PrepaymentRequest) (domain.PrepaymentImpact, error) {
	if !req.Amount.IsPositive() {
		return domain.PrepaymentImpact{}, errs.InvalidInputf("", "prepayment amount must be positive")
	}
	payoff, _ := payoffAmount(state, req, state.PrincipalOutstanding)

	switch req.Action {
	case domain.PrepaymentForeclosure:
		fullPayoff, _ := payoffAmount(state, req, state.PrincipalOutstanding)
		return domain.PrepaymentImpact{
			OldEMI:             state.CurrentEMI,
			NewEMI:             money.Zero,
			OldTenureRemaining: state.TenureRemaining,
			NewTenureRemaining: 0,
			InterestSaved:      money.Zero,
			PayoffAmount:       fullPayoff,
		}, nil
	case domain.PrepaymentReduceEMI:
		newOutstanding := state.PrincipalOutstanding.Sub(req.Amount)
		if newOutstanding.IsNegative() {
			newOutstanding = money.Zero
		}
		rows, err := schedule.Generate(schedule.Input{
			Principal:     newOutstanding,
			AnnualRate:    state.CurrentRate,
			TenurePeriods: state.TenureRemaining,
			Frequency:     state.Frequency,
			Type:          schedule.EMI,
			FirstDueDate:  time.Now(),
		})
		if err != nil {
			return domain.PrepaymentImpact{}, err
		}
		newEMI := money.Zero
		if len(rows) > 0 {
			newEMI = rows[0].PrincipalDue.Add(rows[0].InterestDue)
		}
		interestSaved := totalInterest(state.CurrentEMI, state.TenureRemaining, state.PrincipalOutstanding).Sub(totalInterest(newEMI, state.TenureRemaining, newOutstanding))
		return domain.PrepaymentImpact{
			OldEMI:             state.CurrentEMI,
			NewEMI:             newEMI,
			OldTenureRemaining: state.TenureRemaining,
			NewTenureRemaining: state.TenureRemaining,
			InterestSaved:      interestSaved,
			PayoffAmount:       payoff,
		}, nil
	case domain.PrepaymentReduceTenure:
		newOutstanding := state.PrincipalOutstanding.Sub(req.Amount)
		if newOutstanding.IsNegative() {
			newOutstanding = money.Zero
		}
		periodRate := state.CurrentRate.DivInt(state.Frequency.PeriodsPerYear())
		newTenure := requiredTenureForEMI(newOutstanding, periodRate, state.CurrentEMI, state.TenureRemaining)
		interestSaved := totalInterest(state.CurrentEMI, state.TenureRemaining, state.PrincipalOutstanding).Sub(totalInterest(state.CurrentEMI, newTenure, newOutstanding))
		return domain.PrepaymentImpact{
			OldEMI:             state.CurrentEMI,
			NewEMI:             state.CurrentEMI,
			OldTenureRemaining: state.TenureRemaining,
			NewTenureRemaining: newTenure,
			InterestSaved:      interestSaved,
			PayoffAmount:       payoff,
		}, nil
	default:
		return domain.PrepaymentImpact{}, errs.InvalidInputf("", "unknown prepayment action %d", req.Action)
	}
}

// totalInterest estimates Σinterest for a level EMI repeated n times against
// an opening balance (n*EMI - principal) — used only for the InterestSaved
// comparison surfaced to the caller, never for posted amounts.
func totalInterest(emi money.Amount, n int, principal money.Amount) money.Amount {
	if n <= 0 || principal.IsZero() {
		return money.Zero
	}
	return emi.MulFrac(decimal.NewFromInt(int64(n))).Sub(principal)
}

// requiredTenureForEMI finds the smallest n such that principal amortizes
// to zero at the account's existing EMI and rate, capped at the existing
// remaining tenure (tenure can only shorten under reduce_tenure).
func requiredTenureForEMI(principal money.Amount, rate money.Rate, emi money.Amount, maxTenure int) int {
	balance := principal
	for n := 1; n <= maxTenure; n++ {
		interest := balance.MulRate(rate)
		principalComponent := emi.Sub(interest)
		if !principalComponent.IsPositive() {
			return maxTenure
		}
		balance = balance.Sub(principalComponent)
		if !balance.IsPositive() {
			return n
		}
	}
	return maxTenure
}

// ApplyPrepayment books a Prepayment event from amount/action/paid-at.
// Foreclosure's caller is responsible for invoking Close afterward.
func ApplyPrepayment(accountID string, state PrepaymentState, req PrepaymentRequest, paidAt time.Time) (domain.Prepayment, error) {
	impact, err := PrepaymentImpact(state, req)
	if err != nil {
		return domain.Prepayment{}, err
	}
	_, penalty := payoffAmount(state, req, req.Amount)
	return domain.Prepayment{
		AccountID:        accountID,
		Action:           req.Action,
		Amount:           req.Amount,
		PrincipalPrepaid: req.Amount,
		Penalty:          penalty,
		PenaltyWaived:    req.PenaltyWaived,
		Impact:           impact,
		PaidAt:           paidAt,
	}, nil
}
