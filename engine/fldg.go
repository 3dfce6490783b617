package engine

import (
	"context"
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/fldg"
	"github.com/losplatform/engine/money"
)

// FLDGClaim files fldg_claim: files a claim against an
// arrangement for one account's triggering loss components and updates
// the arrangement's utilized/current balance.
func (e *Engine) FLDGClaim(ctx context.Context, arrangementID string, in fldg.ClaimInput) (domain.FLDGUtilization, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return domain.FLDGUtilization{}, err
	}
	defer tx.Rollback(ctx)

	arr, err := tx.FLDG().GetArrangement(ctx, arrangementID)
	if err != nil {
		return domain.FLDGUtilization{}, err
	}
	util, updated, err := fldg.Claim(arr, in)
	if err != nil {
		return domain.FLDGUtilization{}, err
	}
	util.ID = newID()
	if err := tx.FLDG().SaveArrangement(ctx, updated); err != nil {
		return domain.FLDGUtilization{}, err
	}
	if err := tx.FLDG().SaveUtilization(ctx, util); err != nil {
		return domain.FLDGUtilization{}, err
	}
	return util, tx.Commit(ctx)
}

// FLDGRecoveryInput is the bundle FLDGRecovery needs beyond the stored
// arrangement and utilization: how much has already been replenished
// against this utilization, and the recovery amount/source.
type FLDGRecoveryInput struct {
	UtilizationID      string
	ArrangementID      string
	AlreadyReplenished money.Amount
	Amount             money.Amount
	Source             string
	RecoveredAt        time.Time
}

// FLDGRecovery applies fldg_recovery: applies a recovery against a
// prior claim; when the arrangement's ReplenishFirst is set, the
// arrangement balance is replenished before any excess routes to the
// lender.
func (e *Engine) FLDGRecovery(ctx context.Context, in FLDGRecoveryInput, util domain.FLDGUtilization) (domain.FLDGRecovery, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return domain.FLDGRecovery{}, err
	}
	defer tx.Rollback(ctx)

	arr, err := tx.FLDG().GetArrangement(ctx, in.ArrangementID)
	if err != nil {
		return domain.FLDGRecovery{}, err
	}
	recovery, updated, err := fldg.Recover(arr, util, in.AlreadyReplenished, in.Amount, in.Source)
	if err != nil {
		return domain.FLDGRecovery{}, err
	}
	recovery.ID = newID()
	if err := tx.FLDG().SaveArrangement(ctx, updated); err != nil {
		return domain.FLDGRecovery{}, err
	}
	if err := tx.FLDG().SaveRecovery(ctx, recovery); err != nil {
		return domain.FLDGRecovery{}, err
	}
	return recovery, tx.Commit(ctx)
}
