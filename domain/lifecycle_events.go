package domain

import (
	"time"

	"github.com/losplatform/engine/money"
)

// RestructureType is the closed tagged variant for // restructure kinds.
type RestructureType int

const (
	RestructureRateReduction RestructureType = iota
	RestructureTenureExtension
	RestructurePrincipalHaircut
	RestructureEMIRescheduling
	RestructureCombination
)

func (t RestructureType) String() string {
	switch t {
	case RestructureRateReduction:
		return "rate_reduction"
	case RestructureTenureExtension:
		return "tenure_extension"
	case RestructurePrincipalHaircut:
		return "principal_haircut"
	case RestructureEMIRescheduling:
		return "emi_rescheduling"
	case RestructureCombination:
		return "combination"
	default:
		return "unknown"
	}
}

// RestructureStatus is the closed tagged variant for a RestructureEvent's
// approval workflow state.
type RestructureStatus int

const (
	RestructureRequested RestructureStatus = iota
	RestructureApproved
	RestructureRejected
)

func (s RestructureStatus) String() string {
	switch s {
	case RestructureRequested:
		return "requested"
	case RestructureApproved:
		return "approved"
	case RestructureRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RestructureEvent is an immutable lifecycle event.
type RestructureEvent struct {
	ID        string
	AccountID string
	Type      RestructureType

	EffectiveInstallment int

	BeforeRate   money.Rate
	AfterRate    money.Rate
	BeforeTenure int
	AfterTenure  int
	HaircutAmount money.Amount

	WaivedAmount money.Amount
	Requester    string
	Approver     string
	Status       RestructureStatus

	CreatedAt time.Time
}

// PrepaymentAction is the closed tagged variant for actions.
type PrepaymentAction int

const (
	PrepaymentReduceEMI PrepaymentAction = iota
	PrepaymentReduceTenure
	PrepaymentForeclosure
)

func (a PrepaymentAction) String() string {
	switch a {
	case PrepaymentReduceEMI:
		return "reduce_emi"
	case PrepaymentReduceTenure:
		return "reduce_tenure"
	case PrepaymentForeclosure:
		return "foreclosure"
	default:
		return "unknown"
	}
}

// PrepaymentImpact is the pure, non-persisted result of analyzing a
// prepayment request.
type PrepaymentImpact struct {
	OldEMI   money.Amount
	NewEMI   money.Amount
	OldTenureRemaining int
	NewTenureRemaining int
	InterestSaved money.Amount
	PayoffAmount  money.Amount
}

// Prepayment is an immutable lifecycle event recording an applied
// prepayment.
type Prepayment struct {
	ID        string
	AccountID string
	Action    PrepaymentAction

	Amount            money.Amount
	PrincipalPrepaid  money.Amount
	Penalty           money.Amount
	PenaltyWaived     bool

	Impact PrepaymentImpact

	PaidAt time.Time
}

// ClosureType is the closed tagged variant for closure kinds.
type ClosureType int

const (
	ClosureNormal ClosureType = iota
	ClosureSettlementOTS
	ClosureWriteOff
)

func (t ClosureType) String() string {
	switch t {
	case ClosureNormal:
		return "normal"
	case ClosureSettlementOTS:
		return "settlement_ots"
	case ClosureWriteOff:
		return "write_off"
	default:
		return "unknown"
	}
}

// WriteOff is an immutable lifecycle event. Recording one forces the
// account's ECL stage to 3.
type WriteOff struct {
	ID        string
	AccountID string

	PrincipalWrittenOff money.Amount
	InterestWrittenOff  money.Amount
	FeesWrittenOff      money.Amount

	DPDAtWriteOff         int
	NPACategoryAtWriteOff NPACategory
	Reason                string
	Partial               bool

	WrittenOffAt time.Time
}

// WriteOffRecovery is an immutable lifecycle event referencing the
// originating WriteOff. Recording one books the whole amount against the
// write-off; no part of it is routed to FLDG replenishment, which is booked
// separately through an FLDG recovery.
type WriteOffRecovery struct {
	ID         string
	WriteOffID string
	Source     string

	Amount money.Amount

	RecoveredAt time.Time
}
