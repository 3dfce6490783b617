// Package lifecycle reshapes a loan's forward schedule under restructure,
// prepayment, and closure/write-off events. It enforces a forward-only
// mutation discipline — already-paid rows are immutable — and models each
// event as an immutable record the way dafibh-fortuna's domain package
// models LoanPayment and its typed sequential-enforcement errors
// (ErrMustPayEarlierMonth and siblings).
package lifecycle

import (
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
)

// RestructureRequest carries the new parameters a restructure applies to
// the forward tail of the schedule, effective at EffectiveInstallment.
type RestructureRequest struct {
	Type                 domain.RestructureType
	EffectiveInstallment int
	NewAnnualRate        *money.Rate
	NewTenurePeriods      *int
	HaircutAmount        money.Amount
	Requester            string
	Approver             string
}

// Restructure splits rows at EffectiveInstallment, preserves the paid
// prefix untouched, and regenerates the forward tail under the new
// parameters. For principal_haircut, the haircut is removed from current
// outstanding before regeneration. It unconditionally returns a
// RestructureEvent; the caller must set the account's restructure flag
// (which forces ECL stage >= 2) and persist both.
func Restructure(accountID string, rows []domain.RepaymentScheduleRow, currentRate money.Rate, currentTenureRemaining int, freq schedule.Frequency, req RestructureRequest, now time.Time) ([]domain.RepaymentScheduleRow, domain.RestructureEvent, error) {
	idx := req.EffectiveInstallment - 1
	if idx < 0 || idx >= len(rows) {
		return nil, domain.RestructureEvent{}, errs.InvalidInputf(accountID, "effective installment %d out of range", req.EffectiveInstallment)
	}
	for i := 0; i < idx; i++ {
		if rows[i].Status != domain.InstallmentPaid {
			return nil, domain.RestructureEvent{}, errs.ConflictingStatef(accountID, "installment %d before the restructure boundary is not fully paid", i+1)
		}
	}

	boundary := rows[idx]
	outstanding := boundary.OpeningBalance
	if req.Type == domain.RestructurePrincipalHaircut || req.Type == domain.RestructureCombination {
		outstanding = outstanding.Sub(req.HaircutAmount)
	}

	newRate := currentRate
	if req.NewAnnualRate != nil {
		newRate = *req.NewAnnualRate
	}
	newTenure := len(rows) - idx
	if req.NewTenurePeriods != nil {
		newTenure = *req.NewTenurePeriods
	}

	generated, err := schedule.Generate(schedule.Input{
		Principal:     outstanding,
		AnnualRate:    newRate,
		TenurePeriods: newTenure,
		Frequency:     freq,
		Type:          schedule.EMI,
		FirstDueDate:  boundary.DueDate,
	})
	if err != nil {
		return nil, domain.RestructureEvent{}, err
	}

	out := make([]domain.RepaymentScheduleRow, 0, idx+len(generated))
	out = append(out, rows[:idx]...)
	for i, g := range generated {
		out = append(out, domain.RepaymentScheduleRow{
			AccountID:         accountID,
			InstallmentNumber: idx + i + 1,
			DueDate:           g.DueDate,
			OpeningBalance:    g.OpeningBalance,
			PrincipalDue:      g.PrincipalDue,
			InterestDue:       g.InterestDue,
			TotalDue:          g.PrincipalDue.Add(g.InterestDue),
			ClosingBalance:    g.ClosingBalance,
			Status:            domain.InstallmentPending,
		})
	}

	event := domain.RestructureEvent{
		AccountID:            accountID,
		Type:                 req.Type,
		EffectiveInstallment: req.EffectiveInstallment,
		BeforeRate:           currentRate,
		AfterRate:            newRate,
		BeforeTenure:         currentTenureRemaining,
		AfterTenure:          newTenure,
		HaircutAmount:        req.HaircutAmount,
		Requester:            req.Requester,
		Approver:             req.Approver,
		Status:               domain.RestructureApproved,
		CreatedAt:            now,
	}
	return out, event, nil
}
