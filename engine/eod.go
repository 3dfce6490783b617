package engine

import (
	"context"
	"time"

	"github.com/losplatform/engine/eod"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/waterfall"
)

// RunEOD performs run_eod: accrual, then delinquency refresh, for
// every active account, plus monthly ECL staging when runECL is true
// (the caller decides the calendar's ECL run-date, e.g. month-end).
func (e *Engine) RunEOD(ctx context.Context, asOf time.Time, workers int, runECL bool) (eod.RunResult, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return eod.RunResult{}, err
	}
	ids, err := tx.Accounts().ListActive(ctx)
	tx.Rollback(ctx)
	if err != nil {
		return eod.RunResult{}, err
	}

	o := eod.New(e.uow, e.locks, workers)
	rateAt := func(ctx context.Context, accountID string, d time.Time) (money.Rate, error) {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return money.ZeroRate, err
		}
		defer tx.Rollback(ctx)
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return money.ZeroRate, err
		}
		return e.resolveRate(acct, d)
	}
	return o.RunEOD(ctx, ids, asOf, rateAt, e.boundaries, waterfall.OldestUnpaidDueDate, runECL, e.eclFactors, e.classifyFor), nil
}
