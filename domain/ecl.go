package domain

import (
	"time"

	"github.com/losplatform/engine/money"
)

// SecurityClass is the closed tagged variant used to look up a configured
// LGD.
type SecurityClass int

const (
	Secured SecurityClass = iota
	Unsecured
)

func (s SecurityClass) String() string {
	switch s {
	case Secured:
		return "secured"
	case Unsecured:
		return "unsecured"
	default:
		return "unknown"
	}
}

// ECLStaging is a month-end stage-transition record.
type ECLStaging struct {
	AccountID    string
	AsOfDate     time.Time
	PreviousStage ECLStage
	NewStage      ECLStage
	Reason        string
	SICRFlag      bool
}

// ECLProvision is a month-end provision record. ECL = EAD * PD * LGD.
type ECLProvision struct {
	AccountID string
	AsOfDate  time.Time
	Stage     ECLStage

	EAD money.Amount
	PD  money.Rate
	LGD money.Rate

	ECLAmount money.Amount

	OpeningProvision money.Amount
	Charge           money.Amount
	Release          money.Amount
	ClosingProvision money.Amount
}

// PortfolioStageSummary aggregates ECLProvision rows by stage for a
// month-end batch run.
type PortfolioStageSummary struct {
	AsOfDate         time.Time
	Stage            ECLStage
	AccountCount     int
	EADTotal         money.Amount
	ProvisionTotal   money.Amount
}
