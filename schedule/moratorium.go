package schedule

import "github.com/losplatform/engine/money"

// generateMoratorium implements moratorium variant: the
// leading Moratorium.Count periods have PrincipalDue = 0, with the accrued
// interest either capitalized into principal before the amortizing phase
// begins, collected after the moratorium ends, or waived outright.
func generateMoratorium(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	k := in.Moratorium.Count
	if k < 0 {
		k = 0
	}
	if k > n {
		k = n
	}
	dueDates := dueDateSequence(in.FirstDueDate, in.Frequency, n)
	rows := make([]Installment, n)
	balance := in.Principal
	capitalizedInterest := money.Zero

	for i := 0; i < k; i++ {
		interest := balance.MulRate(r)
		closing := balance
		switch in.Moratorium.Treatment {
		case MoratoriumCapitalize:
			closing = balance.Add(interest)
		case MoratoriumCollectAfter:
			capitalizedInterest = capitalizedInterest.Add(interest)
		case MoratoriumWaive:
			// interest accrued during moratorium is forgiven; balance unchanged.
		}
		rows[i] = Installment{
			Number:         i + 1,
			DueDate:        dueDates[i],
			OpeningBalance: balance,
			PrincipalDue:   money.Zero,
			InterestDue:    interest,
			ClosingBalance: closing,
		}
		balance = closing
	}

	remaining := n - k
	if remaining == 0 {
		return rows, nil
	}
	emi := emiAmount(balance, r, remaining)
	for i := k; i < n; i++ {
		interest := balance.MulRate(r)
		due := interest
		if in.Moratorium.Treatment == MoratoriumCollectAfter && i == k {
			due = due.Add(capitalizedInterest)
		}
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
			InterestDue:    due,
			ClosingBalance: closing,
		}
		balance = closing
	}
	return rows, nil
}
