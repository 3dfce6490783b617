// Package accrual computes daily interest accrual from principal
// outstanding and effective rate. It follows the
// per-day-charge idiom of livefire2015-ez-ledger's InterestService,
// generalized from a monthly billing-cycle ADB calculation to a discrete
// daily accrual series driven by the floating-rate resolver.
package accrual

import (
	"time"

	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// RateAt resolves the effective annual rate in force on date d, covering
// both fixed-rate accounts and floating-rate accounts (whose benchmark
// value may require the latest-prior-publication fallback of ).
type RateAt func(d time.Time) (money.Rate, error)

// Accrue produces one InterestAccrual row per date in [firstAccrualDate,
// asOf], in order, threading the running cumulative total. firstAccrualDate
// is the caller-resolved next unaccrued date: the account's
// LastAccrualDate+1 when one exists, otherwise the disbursement date.
// Callers append the returned rows and advance the account's
// LastAccrualDate and CumulativeAccrued to the final row's values.
func Accrue(accountID string, principalOutstanding money.Amount, firstAccrualDate time.Time, asOf time.Time, conv daycount.Convention, rateAt RateAt, priorCumulative money.Amount) ([]domain.InterestAccrual, error) {
	if asOf.Before(firstAccrualDate) {
		return nil, errs.InvalidInputf(accountID, "as-of date %s precedes first accrual date %s", asOf.Format("2006-01-02"), firstAccrualDate.Format("2006-01-02"))
	}
	var rows []domain.InterestAccrual
	cumulative := priorCumulative
	cursor := firstAccrualDate
	for !cursor.After(asOf) {
		rate, err := rateAt(cursor)
		if err != nil {
			return rows, err
		}
		fraction, err := daycount.DailyFraction(cursor, conv)
		if err != nil {
			return rows, err
		}
		daily := money.NewFromDecimal(principalOutstanding.Decimal().Mul(rate.Decimal()).Mul(fraction))
		cumulative = cumulative.Add(daily)
		rows = append(rows, domain.InterestAccrual{
			AccountID:        accountID,
			Date:             cursor,
			OpeningPrincipal: principalOutstanding,
			RateApplied:      rate,
			DayCount:         conv,
			Accrued:          daily,
			Cumulative:       cumulative,
			Status:           domain.AccrualAccrued,
		})
		cursor = cursor.AddDate(0, 0, 1)
	}
	return rows, nil
}

// NextAccrualDate resolves the caller-facing firstAccrualDate Accrue
// expects: the day after the account's last accrual, or the disbursement
// date itself when no accrual has ever posted.
func NextAccrualDate(lastAccrualDate *time.Time, disbursementDate time.Time) time.Time {
	if lastAccrualDate == nil {
		return disbursementDate
	}
	return lastAccrualDate.AddDate(0, 0, 1)
}
