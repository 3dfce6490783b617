// Package fldg claims against and recovers into a First-Loss-Default-
// Guarantee arrangement. Nothing else in this codebase models credit
// guarantees directly; the claim/recovery bookkeeping follows the
// running-balance ledger discipline used throughout this module (post an
// immutable event, carry before/after balances on it).
package fldg

import (
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// ClaimInput is the triggering loss event's components.
type ClaimInput struct {
	AccountID     string
	TriggerReason string
	Principal     money.Amount
	Interest      money.Amount
	Fees          money.Amount
}

// Claim computes the claim amount — lender_share times whichever
// components the arrangement covers — capped at the arrangement's current
// balance, and returns the FLDGUtilization event plus the arrangement's
// updated TotalUtilized/CurrentBalance. Approval is modeled as equal to the
// claimed amount; a caller requiring manual approval applies its own cap to
// Approved before persisting.
func Claim(arr domain.FLDGArrangement, in ClaimInput) (domain.FLDGUtilization, domain.FLDGArrangement, error) {
	if !arr.CurrentBalance.IsPositive() {
		return domain.FLDGUtilization{}, arr, errs.FLDGExhaustedf(arr.ID, "arrangement balance is exhausted")
	}
	share := arr.LenderSharePercent.DivInt(100)

	claimed := money.Zero
	if arr.CoversPrincipal {
		claimed = claimed.Add(in.Principal.MulRate(share))
	}
	if arr.CoversInterest {
		claimed = claimed.Add(in.Interest.MulRate(share))
	}
	if arr.CoversFees {
		claimed = claimed.Add(in.Fees.MulRate(share))
	}
	if !claimed.IsPositive() {
		return domain.FLDGUtilization{}, arr, errs.InvalidInputf(arr.ID, "claim amount must be positive given covered components")
	}

	approved := money.Min(claimed, arr.CurrentBalance)
	before := arr.CurrentBalance
	after := before.Sub(approved)

	arr.TotalUtilized = arr.TotalUtilized.Add(approved)
	arr.CurrentBalance = after

	return domain.FLDGUtilization{
		ArrangementID: arr.ID,
		AccountID:     in.AccountID,
		TriggerReason: in.TriggerReason,
		Claimed:       claimed,
		Approved:      approved,
		BalanceBefore: before,
		BalanceAfter:  after,
	}, arr, nil
}

// Recover applies a recovery against a prior utilization: the guarantor's
// lender-share portion of the recovery replenishes the FLDG balance
// (capped at the utilization's approved amount less what has already been
// replenished against it); the remaining, non-guaranteed share routes to
// the lender directly. If ReplenishFirst is false, the whole recovery is
// treated as excess (no replenishment) — the split-instead alternative is
// left as the arrangement's own configuration choice.
func Recover(arr domain.FLDGArrangement, util domain.FLDGUtilization, alreadyReplenished money.Amount, recoveryAmount money.Amount, source string) (domain.FLDGRecovery, domain.FLDGArrangement, error) {
	if !recoveryAmount.IsPositive() {
		return domain.FLDGRecovery{}, arr, errs.InvalidInputf(arr.ID, "recovery amount must be positive")
	}

	replenished := money.Zero
	if arr.ReplenishFirst {
		share := arr.LenderSharePercent.DivInt(100)
		candidate := recoveryAmount.MulRate(share)
		room := util.Approved.Sub(alreadyReplenished)
		if room.IsNegative() {
			room = money.Zero
		}
		replenished = money.Min(candidate, room)
	}
	excess := recoveryAmount.Sub(replenished)

	arr.TotalRecovered = arr.TotalRecovered.Add(replenished)
	arr.CurrentBalance = arr.CurrentBalance.Add(replenished)

	return domain.FLDGRecovery{
		UtilizationID:     util.ID,
		Source:            source,
		Amount:            recoveryAmount,
		ReplenishedAmount: replenished,
		ExcessToLender:    excess,
	}, arr, nil
}
