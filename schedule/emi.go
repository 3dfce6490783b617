package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/money"
)

// emiAmount computes EMI = P*r*(1+r)^n / ((1+r)^n - 1); if r = 0,
// EMI = P/n , rounded half-up to money precision.
func emiAmount(principal money.Amount, r money.Rate, n int) money.Amount {
	if r.IsZero() {
		return principal.DivInt(int64(n))
	}
	onePlusRN := r.OnePlusPowN(n)
	numerator := principal.Decimal().Mul(r.Decimal()).Mul(onePlusRN)
	denominator := onePlusRN.Sub(decimal.NewFromInt(1))
	return money.NewFromDecimal(numerator.Div(denominator))
}

// generateEMI implements canonical algorithm: r =
// annual/periods_per_year, EMI fixed for all n periods, interest_i =
// round(balance*r), principal_i = EMI - interest_i, except the final period
// which takes the full remaining balance as principal so closing = 0.
func generateEMI(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	emi := emiAmount(in.Principal, r, n)

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
