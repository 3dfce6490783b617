package schedule

import "github.com/losplatform/engine/money"

// generateInterestOnly implements the interest-only variant:
// every period pays balance*r with zero principal, except the last
// installment which pays the full remaining principal.
func generateInterestOnly(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	dueDates := dueDateSequence(in.FirstDueDate, in.Frequency, n)
	rows := make([]Installment, n)
	balance := in.Principal
	for i := 0; i < n; i++ {
		interest := balance.MulRate(r)
		principal := money.Zero
		if i == n-1 {
			principal = balance
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

// generateBullet implements bullet variant: all interest and
// principal are due at the terminal period.
func generateBullet(in Input) ([]Installment, error) {
	r := periodRate(in.AnnualRate, in.Frequency)
	n := in.TenurePeriods
	dueDates := dueDateSequence(in.FirstDueDate, in.Frequency, n)
	rows := make([]Installment, n)
	balance := in.Principal
	cumulativeInterest := money.Zero
	for i := 0; i < n; i++ {
		interest := balance.MulRate(r)
		cumulativeInterest = cumulativeInterest.Add(interest)
		isLast := i == n-1
		principal := money.Zero
		dueInterest := money.Zero
		if isLast {
			principal = balance
			dueInterest = cumulativeInterest
		}
		closing := balance.Sub(principal)
		rows[i] = Installment{
			Number:         i + 1,
			DueDate:        dueDates[i],
			OpeningBalance: balance,
			PrincipalDue:   principal,
			InterestDue:    dueInterest,
			ClosingBalance: closing,
		}
		// balance itself (the accruing principal) never changes until the
		// terminal period, which repays it in full.
	}
	return rows, nil
}
