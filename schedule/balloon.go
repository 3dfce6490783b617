package schedule

import "github.com/losplatform/engine/money"

// generateBalloon implements balloon variant: a regular EMI
// is sized so that final fraction F of principal remains before the
// terminal installment, which then pays F*P plus that period's interest.
func generateBalloon(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	balloonPrincipal := money.NewFromDecimal(in.Principal.Decimal().Mul(in.Balloon.FinalFraction.Decimal()))

	// Size the level installment so that the n-1 regular installments, with
	// interest charged on the full outstanding balance, bring the balance
	// down to the balloon residual; the terminal installment closes it out.
	emi := money.Zero
	if n > 1 {
		discounted := money.NewFromDecimal(balloonPrincipal.Decimal().Div(r.OnePlusPowN(n - 1)))
		emi = emiAmount(in.Principal.Sub(discounted), r, n-1)
	}

	dueDates := dueDateSequence(in.FirstDueDate, in.Frequency, n)
	rows := make([]Installment, n)
	balance := in.Principal
	for i := 0; i < n; i++ {
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
