// Package ecl stages accounts and computes month-end IFRS-9 Expected
// Credit Loss provisions. No regulatory credit-loss staging precedent
// exists elsewhere in this module, so the staging rule and provisioning
// math follow this module's established decimal/closed-variant idiom.
package ecl

import (
	"time"

	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/money"
)

// RiskFactors is the configured PD/LGD lookup an account's staging and
// provision draws on. PD12Month and PDLifetime are both expressed as
// annualized/lifetime probabilities already calibrated to the staging
// horizon; LGD is keyed by SecurityClass.
type RiskFactors struct {
	PD12Month  money.Rate
	PDLifetime money.Rate
	LGD        map[domain.SecurityClass]money.Rate
}

// StagingInput is the per-account state StageAccount needs to apply the
// stage-assignment priority rule.
type StagingInput struct {
	AccountID       string
	AsOfDate        time.Time
	IsWrittenOff    bool
	IsNPA           bool
	DPD             int
	IsRestructured  bool
	SICRFlag        bool
	PreviousStage   domain.ECLStage
}

// StageAccount applies the stage-assignment priority rule (first
// matching wins): write-off -> 3; NPA -> 3; DPD > 90 -> 3; restructure
// flag -> 2; DPD > 30 -> 2; SICR flag -> 2; otherwise -> 1. It always
// returns a staging record, even when the stage is unchanged, so the
// caller can decide whether to persist a no-op transition.
func StageAccount(in StagingInput) domain.ECLStaging {
	stage, reason := assignStage(in)
	return domain.ECLStaging{
		AccountID:     in.AccountID,
		AsOfDate:      in.AsOfDate,
		PreviousStage: in.PreviousStage,
		NewStage:      stage,
		Reason:        reason,
		SICRFlag:      in.SICRFlag,
	}
}

func assignStage(in StagingInput) (domain.ECLStage, string) {
	switch {
	case in.IsWrittenOff:
		return domain.ECLStage3, "written_off"
	case in.IsNPA:
		return domain.ECLStage3, "npa"
	case in.DPD > 90:
		return domain.ECLStage3, "dpd_over_90"
	case in.IsRestructured:
		return domain.ECLStage2, "restructured"
	case in.DPD > 30:
		return domain.ECLStage2, "dpd_over_30"
	case in.SICRFlag:
		return domain.ECLStage2, "sicr"
	default:
		return domain.ECLStage1, "performing"
	}
}

// ProvisionInput is the account state Provision needs to compute EAD*PD*LGD.
type ProvisionInput struct {
	AccountID           string
	AsOfDate            time.Time
	Stage               domain.ECLStage
	PrincipalOutstanding money.Amount
	UndrawnCommitment    money.Amount // zero for term loans
	SecurityClass        domain.SecurityClass
	OpeningProvision     money.Amount
}

// Provision computes ECL = EAD · PD · LGD, where EAD is
// principal outstanding plus any undrawn commitment; PD is the configured
// 12-month value for stage 1 and lifetime (100% for stage 3) for stages
// 2/3; LGD is looked up by security class.
func Provision(in ProvisionInput, factors RiskFactors) domain.ECLProvision {
	ead := in.PrincipalOutstanding.Add(in.UndrawnCommitment)
	pd := pdFor(in.Stage, factors)
	lgd := factors.LGD[in.SecurityClass]

	eclAmount := ead.MulRate(pd).MulRate(lgd)
	charge := eclAmount.Sub(in.OpeningProvision)
	release := money.Zero
	if charge.IsNegative() {
		release = charge.Neg()
		charge = money.Zero
	}

	return domain.ECLProvision{
		AccountID:        in.AccountID,
		AsOfDate:         in.AsOfDate,
		Stage:            in.Stage,
		EAD:              ead,
		PD:               pd,
		LGD:              lgd,
		ECLAmount:        eclAmount,
		OpeningProvision: in.OpeningProvision,
		Charge:           charge,
		Release:          release,
		ClosingProvision: eclAmount,
	}
}

func pdFor(stage domain.ECLStage, factors RiskFactors) money.Rate {
	switch stage {
	case domain.ECLStage1:
		return factors.PD12Month
	case domain.ECLStage3:
		return money.NewRateFromPercent(100)
	default:
		return factors.PDLifetime
	}
}

// Summarize aggregates a batch of ECLProvision rows into one
// PortfolioStageSummary per stage.
func Summarize(asOf time.Time, provisions []domain.ECLProvision) []domain.PortfolioStageSummary {
	byStage := map[domain.ECLStage]*domain.PortfolioStageSummary{}
	var order []domain.ECLStage
	for _, p := range provisions {
		s, ok := byStage[p.Stage]
		if !ok {
			s = &domain.PortfolioStageSummary{AsOfDate: asOf, Stage: p.Stage}
			byStage[p.Stage] = s
			order = append(order, p.Stage)
		}
		s.AccountCount++
		s.EADTotal = s.EADTotal.Add(p.EAD)
		s.ProvisionTotal = s.ProvisionTotal.Add(p.ClosingProvision)
	}
	out := make([]domain.PortfolioStageSummary, 0, len(order))
	for _, st := range order {
		out = append(out, *byStage[st])
	}
	return out
}
