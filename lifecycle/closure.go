package lifecycle

import (
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// ClosureState is the account state Close and WriteOffAccount need to
// validate and size their output events.
type ClosureState struct {
	PrincipalOutstanding money.Amount
	InterestOutstanding  money.Amount
	FeesOutstanding      money.Amount
	DPD                  int
	NPACategory          domain.NPACategory
}

// Close books a normal or settlement/one-time-settlement closure. Normal
// closure requires all balances to be zero: a loan closes normally only
// once fully repaid; settlement_ots accepts a waived
// residual and always books it as written off rather than silently
// dropped, since a waived balance is itself a loss event.
func Close(accountID string, state ClosureState, closureType domain.ClosureType, reason string, closedAt time.Time) (*domain.WriteOff, error) {
	switch closureType {
	case domain.ClosureNormal:
		if state.PrincipalOutstanding.IsPositive() || state.InterestOutstanding.IsPositive() || state.FeesOutstanding.IsPositive() {
			return nil, errs.ConflictingStatef(accountID, "cannot close normally with outstanding balances: principal=%s interest=%s fees=%s", state.PrincipalOutstanding, state.InterestOutstanding, state.FeesOutstanding)
		}
		return nil, nil
	case domain.ClosureSettlementOTS:
		if !state.PrincipalOutstanding.IsPositive() && !state.InterestOutstanding.IsPositive() && !state.FeesOutstanding.IsPositive() {
			return nil, nil
		}
		wo := &domain.WriteOff{
			AccountID:             accountID,
			PrincipalWrittenOff:   state.PrincipalOutstanding,
			InterestWrittenOff:    state.InterestOutstanding,
			FeesWrittenOff:        state.FeesOutstanding,
			DPDAtWriteOff:         state.DPD,
			NPACategoryAtWriteOff: state.NPACategory,
			Reason:                reason,
			Partial:               false,
			WrittenOffAt:          closedAt,
		}
		return wo, nil
	default:
		return nil, errs.InvalidInputf(accountID, "close does not accept closure type %v; use WriteOffAccount", closureType)
	}
}

// WriteOffAccount books a full or partial write-off. Recording one forces
// the caller to set the account's ECL stage to 3: a write-off always
// ranks stage 3 regardless of DPD.
func WriteOffAccount(accountID string, state ClosureState, amount *money.Amount, reason string, writtenOffAt time.Time) (domain.WriteOff, error) {
	principal := state.PrincipalOutstanding
	interest := state.InterestOutstanding
	fees := state.FeesOutstanding
	partial := false

	if amount != nil {
		total := principal.Add(interest).Add(fees)
		if !amount.IsPositive() {
			return domain.WriteOff{}, errs.InvalidInputf(accountID, "write-off amount must be positive")
		}
		if amount.GreaterThan(total) {
			return domain.WriteOff{}, errs.InvalidInputf(accountID, "write-off amount %s exceeds total outstanding %s", amount, total)
		}
		if amount.LessThan(total) {
			partial = true
			remaining := *amount
			principal = money.Min(remaining, state.PrincipalOutstanding)
			remaining = remaining.Sub(principal)
			interest = money.Min(remaining, state.InterestOutstanding)
			remaining = remaining.Sub(interest)
			fees = money.Min(remaining, state.FeesOutstanding)
		}
	}

	return domain.WriteOff{
		AccountID:             accountID,
		PrincipalWrittenOff:   principal,
		InterestWrittenOff:    interest,
		FeesWrittenOff:        fees,
		DPDAtWriteOff:         state.DPD,
		NPACategoryAtWriteOff: state.NPACategory,
		Reason:                reason,
		Partial:               partial,
		WrittenOffAt:          writtenOffAt,
	}, nil
}

// RecordWriteOffRecovery books a recovery against an existing write-off.
// It only records the amount it's given against the write-off id; it does
// not route any part of it to FLDG replenishment.
func RecordWriteOffRecovery(writeOffID, source string, amount money.Amount, recoveredAt time.Time) (domain.WriteOffRecovery, error) {
	if !amount.IsPositive() {
		return domain.WriteOffRecovery{}, errs.InvalidInputf(writeOffID, "recovery amount must be positive")
	}
	return domain.WriteOffRecovery{
		WriteOffID:  writeOffID,
		Source:      source,
		Amount:      amount,
		RecoveredAt: recoveredAt,
	}, nil
}
