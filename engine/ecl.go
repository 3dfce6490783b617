package engine

import (
	"context"
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/ecl"
	"github.com/losplatform/engine/eod"
)

// RunMonthlyECL performs run_monthly_ecl: stages and provisions
// every active account as of asOf, then rolls the resulting provisions up
// into per-stage portfolio summaries.
func (e *Engine) RunMonthlyECL(ctx context.Context, asOf time.Time, workers int) (domain.BatchResult, []domain.PortfolioStageSummary, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return domain.BatchResult{}, nil, err
	}
	ids, err := tx.Accounts().ListActive(ctx)
	tx.Rollback(ctx)
	if err != nil {
		return domain.BatchResult{}, nil, err
	}

	o := eod.New(e.uow, e.locks, workers)
	result := o.RunBatch(ctx, "ecl", ids, eod.ECLStep(asOf, e.eclFactors, e.classifyFor))

	summaries, err := e.portfolioStageSummaries(ctx, asOf, ids)
	if err != nil {
		return result, nil, err
	}
	return result, summaries, nil
}

func (e *Engine) portfolioStageSummaries(ctx context.Context, asOf time.Time, ids []string) ([]domain.PortfolioStageSummary, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	provisions := make([]domain.ECLProvision, 0, len(ids))
	for _, id := range ids {
		acct, err := tx.Accounts().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		class, err := e.classifyFor(ctx, id)
		if err != nil {
			return nil, err
		}
		provisions = append(provisions, ecl.Provision(ecl.ProvisionInput{
			AccountID:            id,
			AsOfDate:             asOf,
			Stage:                acct.ECLStage,
			PrincipalOutstanding: acct.PrincipalOutstanding,
			SecurityClass:        class,
			OpeningProvision:     acct.LastProvision,
		}, e.eclFactors))
	}
	summaries := ecl.Summarize(asOf, provisions)

	tx2, err := e.uow.Begin(ctx)
	if err != nil {
		return summaries, err
	}
	defer tx2.Rollback(ctx)
	if err := tx2.ECL().SaveSummaries(ctx, summaries); err != nil {
		return summaries, err
	}
	return summaries, tx2.Commit(ctx)
}
