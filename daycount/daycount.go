// Package daycount implements the year-fraction conventions required for
// interest accrual and EMI computation: 30/360, ACT/365, ACT/360, and
// ACT/ACT (ISDA).
package daycount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/losplatform/engine/errs"
)

// Convention is a closed tagged variant — never a bare string past the
// config boundary.
type Convention int

const (
	Thirty360 Convention = iota
	Actual365
	Actual360
	ActualActualISDA
)

// String renders the canonical code used at the external-interface and
// configuration boundary.
func (c Convention) String() string {
	switch c {
	case Thirty360:
		return "30/360"
	case Actual365:
		return "ACT/365"
	case Actual360:
		return "ACT/360"
	case ActualActualISDA:
		return "ACT/ACT"
	default:
		return "unknown"
	}
}

// Parse maps an external string code to a Convention.
func Parse(code string) (Convention, error) {
	switch code {
	case "30/360":
		return Thirty360, nil
	case "ACT/365":
		return Actual365, nil
	case "ACT/360":
		return Actual360, nil
	case "ACT/ACT":
		return ActualActualISDA, nil
	default:
		return 0, errs.InvalidInputf("", "unknown day-count convention %q", code)
	}
}

var (
	d360   = decimal.NewFromInt(360)
	d365   = decimal.NewFromInt(365)
	d366   = decimal.NewFromInt(366)
	dZero  = decimal.Zero
	oneDay = 24 * time.Hour
)

// YearFraction returns the non-negative year fraction between start and end
// (end must not be before start) under the given convention.
func YearFraction(start, end time.Time, conv Convention) (decimal.Decimal, error) {
	if end.Before(start) {
		return dZero, errs.InvalidInputf("", "end date %s before start date %s", end, start)
	}
	switch conv {
	case Thirty360:
		return thirty360(start, end), nil
	case Actual365:
		return calendarDays(start, end).Div(d365), nil
	case Actual360:
		return calendarDays(start, end).Div(d360), nil
	case ActualActualISDA:
		return actualActualISDA(start, end), nil
	default:
		return dZero, errs.InvalidInputf("", "unknown day-count convention %d", conv)
	}
}

// DailyFraction returns the year fraction for exactly one calendar day
// (d to d+1) under the given convention, the fraction the accrual package
// multiplies principal and rate by for each day's simple interest.
func DailyFraction(d time.Time, conv Convention) (decimal.Decimal, error) {
	return YearFraction(d, d.AddDate(0, 0, 1), conv)
}

func calendarDays(start, end time.Time) decimal.Decimal {
	days := end.Sub(start) / oneDay
	return decimal.NewFromInt(int64(days))
}

// thirty360 implements the US (NASD) 30/360 convention, with the standard
// end-of-month adjustment: if the start date falls on the 31st, D1 is
// clamped to 30. The day term is min(D2,30) - min(D1,30), so an end date
// on the 31st counts as day 30 whatever D1 is.
func thirty360(start, end time.Time) decimal.Decimal {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()

	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}

	days := 360*(y2-y1) + 30*(int(m2)-int(m1)) + (min(d2, 30) - min(d1, 30))
	return decimal.NewFromInt(int64(days)).Div(d360)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// actualActualISDA splits [start,end) at each Jan-1 boundary it crosses and
// sums days/366 for sub-intervals inside a leap year, days/365 otherwise.
func actualActualISDA(start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	cursor := start
	for cursor.Before(end) {
		yearEnd := time.Date(cursor.Year()+1, time.January, 1, 0, 0, 0, 0, cursor.Location())
		segmentEnd := yearEnd
		if end.Before(segmentEnd) {
			segmentEnd = end
		}
		days := decimal.NewFromInt(int64(segmentEnd.Sub(cursor) / oneDay))
		denom := d365
		if isLeapYear(cursor.Year()) {
			denom = d366
		}
		total = total.Add(days.Div(denom))
		cursor = segmentEnd
	}
	return total
}

func isLeapYear(y int) bool {
	return (y%4 == 0 && y%100 != 0) || y%400 == 0
}
