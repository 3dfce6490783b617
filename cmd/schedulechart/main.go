// Command schedulechart is a diagnostic tool: it generates a repayment
// schedule, renders it as an HTML chart, and cross-checks the computed EMI
// against go-financial's float64 Pmt as a sanity check. Neither go-echarts
// nor go-financial sit on the schedule's authoritative computation path —
// decimal.Decimal in package schedule remains the only source of truth for
// money that ever reaches a ledger.
//
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	financial "github.com/razorpay/go-financial"
	"github.com/razorpay/go-financial/enums/paymentperiod"

	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/schedule"
)

func main() {
	principal := flag.Float64("principal", 120000, "principal disbursed")
	ratePercent := flag.Float64("rate", 12, "annual interest rate, percent")
	tenure := flag.Int("tenure", 12, "tenure in periods")
	frequencyCode := flag.String("frequency", "monthly", "monthly|quarterly|half_yearly|annually")
	dayCountCode := flag.String("day_count", "ACT/365", "day-count convention code")
	firstDue := flag.String("first_due", time.Now().AddDate(0, 1, 0).Format("2006-01-02"), "first installment due date, YYYY-MM-DD")
	out := flag.String("out", "schedule.html", "output HTML file")
	flag.Parse()

	frequency, err := schedule.ParseFrequency(*frequencyCode)
	if err != nil {
		log.Fatalf("parse frequency: %v", err)
	}
	dayCount, err := daycount.Parse(*dayCountCode)
	if err != nil {
		log.Fatalf("parse day count: %v", err)
	}
	dueDate, err := time.Parse("2006-01-02", *firstDue)
	if err != nil {
		log.Fatalf("parse first_due: %v", err)
	}

	in := schedule.Input{
		Principal:     money.NewFromFloat(*principal),
		AnnualRate:    money.NewRateFromPercent(*ratePercent),
		TenurePeriods: *tenure,
		Frequency:     frequency,
		Type:          schedule.EMI,
		FirstDueDate:  dueDate,
		DayCount:      dayCount,
	}
	rows, err := schedule.Generate(in)
	if err != nil {
		log.Fatalf("generate schedule: %v", err)
	}

	log.Println("generated", len(rows), "installments for principal", in.Principal.String())
	crossCheckEMI(*principal, *ratePercent, *tenure, int(frequency.PeriodsPerYear()), rows[0].PrincipalDue.Add(rows[0].InterestDue))

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create output file: %v", err)
	}
	defer f.Close()
	render(rows).Render(f)
	log.Println("wrote", *out)
}

// crossCheckEMI is a non-authoritative sanity check: it logs a warning if
// go-financial's float64 Pmt disagrees with the decimal-computed first
// installment by more than a cent, but never feeds its result back into
// the schedule.
func crossCheckEMI(principal, ratePercent float64, tenure, periodsPerYear int, decimalEMI money.Amount) {
	periodicRate := ratePercent / 100 / float64(periodsPerYear)
	pmt, err := financial.Pmt(periodicRate, float64(tenure), -principal, 0, paymentperiod.END)
	if err != nil {
		log.Printf("go-financial cross-check skipped: %v", err)
		return
	}
	want := decimalEMI.Decimal().InexactFloat64()
	if diff := pmt - want; diff > 0.01 || diff < -0.01 {
		log.Printf("go-financial cross-check: float EMI %.2f vs decimal EMI %.2f (diff %.4f)", pmt, want, diff)
	}
}

func render(rows []schedule.Installment) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Repayment schedule",
			Subtitle: "opening balance, principal, interest per installment",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Installment"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Amount"}),
	)

	labels := make([]string, len(rows))
	opening := make([]opts.LineData, len(rows))
	principalDue := make([]opts.LineData, len(rows))
	interestDue := make([]opts.LineData, len(rows))
	for i, row := range rows {
		labels[i] = row.DueDate.Format("2006-01-02")
		opening[i] = opts.LineData{Value: row.OpeningBalance.Decimal().InexactFloat64()}
		principalDue[i] = opts.LineData{Value: row.PrincipalDue.Decimal().InexactFloat64()}
		interestDue[i] = opts.LineData{Value: row.InterestDue.Decimal().InexactFloat64()}
	}

	line.SetXAxis(labels).
		AddSeries("Opening balance", opening).
		AddSeries("Principal due", principalDue).
		AddSeries("Interest due", interestDue).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))
	return line
}
