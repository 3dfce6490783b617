package engine

import (
	"context"

	"github.com/losplatform/engine/colending"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

// SplitCollection performs split_collection: posts a co-lending
// ledger entry per (partner, component) for one payment's allocations,
// carrying forward each partner's running balance.
func (e *Engine) SplitCollection(ctx context.Context, accountID, paymentID string, allocations []domain.PaymentAllocation, borrowerRate money.Rate, days int) ([]domain.PartnerLedgerEntry, error) {
	var entries []domain.PartnerLedgerEntry
	err := e.locks.WithLock(ctx, accountID, func(ctx context.Context) error {
		tx, err := e.uow.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		participations, err := tx.Participations().ListByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if len(participations) == 0 {
			return nil
		}

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}

		var col colending.Collection
		for _, a := range allocations {
			col.Principal = col.Principal.Add(a.Principal)
			col.Interest = col.Interest.Add(a.Interest)
			col.Fees = col.Fees.Add(a.Fees)
		}

		withholdings := make(map[string]colending.ServicerWithholding, len(participations))
		for _, p := range participations {
			if p.ServicerFeeRate.IsZero() && p.PartnerYield == nil {
				continue
			}
			fee := colending.ServicerFeeAmount(p, acct.PrincipalOutstanding, days)
			spread := colending.ExcessSpreadAmount(p, col.Interest, borrowerRate)
			withholdings[p.PartnerID] = colending.ServicerWithholding{ServicerFee: fee, ExcessSpread: spread}
		}

		balances := colending.RunningBalances{}
		for _, p := range participations {
			for _, c := range []domain.LedgerComponent{domain.LedgerPrincipal, domain.LedgerInterest, domain.LedgerFees, domain.LedgerServicerFee} {
				bal, err := tx.Participations().LastRunningBalance(ctx, accountID, p.PartnerID, c)
				if err != nil {
					return err
				}
				if bal.IsZero() {
					continue
				}
				if balances[p.PartnerID] == nil {
					balances[p.PartnerID] = make(map[domain.LedgerComponent]money.Amount)
				}
				balances[p.PartnerID][c] = bal
			}
		}

		result, err := colending.Split(accountID, paymentID, col, participations, withholdings, balances)
		if err != nil {
			return err
		}
		for i := range result {
			result[i].ID = newID()
		}
		if err := tx.Participations().SaveLedgerEntries(ctx, result); err != nil {
			return err
		}
		entries = result
		return tx.Commit(ctx)
	})
	return entries, err
}
