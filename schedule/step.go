package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/money"
)

// generateStep implements step-up/step-down variant: EMI is
// recomputed at each step boundary for the remaining balance and remaining
// periods, growing (StepUp) or shrinking (StepDown) by Step.StepPercent.
func generateStep(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	stepFreq := in.Step.StepFrequency
	if stepFreq <= 0 {
		stepFreq = n // no intermediate boundary: behaves like plain EMI
	}

	dueDates := dueDateSequence(in.FirstDueDate, in.Frequency, n)
	rows := make([]Installment, n)
	balance := in.Principal
	emi := emiAmount(balance, r, n)

	for i := 0; i < n; i++ {
		remaining := n - i
		if i > 0 && i%stepFreq == 0 {
			emi = emiAmount(balance, r, remaining)
			factor := decimal.NewFromInt(1).Add(in.Step.StepPercent.Decimal())
			if in.Type != StepUp {
				factor = decimal.NewFromInt(1).Sub(in.Step.StepPercent.Decimal())
			}
			emi = money.NewFromDecimal(emi.Decimal().Mul(factor))
		}
		interest := balance.MulRate(r)
		var principal money.Amount
		if i == n-1 {
			principal = balance
		} else {
			principal = emi.Sub(interest)
		}
		closing := balance.Sub(principal)
		rows[i] = Installment{
			Number:         i + 1,
			DueDate:        dueDates[i],
			OpeningBalance: balance,
			PrincipalDue:   principal,
			InterestDue:    interest,
			ClosingBalance: closing,
		}
		balance = closing
	}
	return rows, nil
}
