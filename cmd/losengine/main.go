// Command losengine serves the loan-lifecycle engine's HTTP surface: a
// gin router with a dual-output (file + stdout) structured log, one route
// per engine operation, and batch endpoints that delegate fan-out to the
// engine's own locked, transactional orchestration rather than firing
// goroutines directly from the handler.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/domain"
	"github.com/losplatform/engine/ecl"
	"github.com/losplatform/engine/fldg"
	"github.com/losplatform/engine/floatrate"
	"github.com/losplatform/engine/internal/config"
	"github.com/losplatform/engine/internal/logger"
	"github.com/losplatform/engine/lifecycle"
	"github.com/losplatform/engine/money"
	"github.com/losplatform/engine/repo"
	"github.com/losplatform/engine/schedule"
	"github.com/losplatform/engine/store/memstore"
	"github.com/losplatform/engine/store/pgxuow"

	enginepkg "github.com/losplatform/engine/engine"
)

// defaultRiskFactors seeds the engine's ECL PD/LGD lookup until a real
// risk-parameter source is wired in; calibrating PD/LGD is left to the
// deployer.
func defaultRiskFactors() ecl.RiskFactors {
	return ecl.RiskFactors{
		PD12Month:  money.NewRateFromPercent(2),
		PDLifetime: money.NewRateFromPercent(15),
		LGD: map[domain.SecurityClass]money.Rate{
			domain.Secured:   money.NewRateFromPercent(35),
			domain.Unsecured: money.NewRateFromPercent(75),
		},
	}
}

func newGinRouter(log *logger.Logger) *gin.Engine {
	gin.DefaultWriter = &logWriter{log}
	gin.DefaultErrorWriter = &logWriter{log}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	return r
}

// logWriter adapts the structured logger into gin's io.Writer-shaped
// logger hooks so router access logs and panics land in the same
// file+stdout fanout as the rest of the engine's logging.
type logWriter struct{ log *logger.Logger }

func (w *logWriter) Write(p []byte) (int, error) {
	w.log.Info(string(p))
	return len(p), nil
}

func main() {
	opts, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(opts.LogDir)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	calendars := calendar.NewCache("./config/calendars.yaml")
	if err := calendars.Refresh(context.Background()); err != nil {
		log.Warn("calendar fixture not loaded, business-day adjustment disabled until refreshed", "error", err)
	}
	benchmarks := floatrate.NewCache("./config/benchmarks.yaml")
	if err := benchmarks.Refresh(context.Background()); err != nil {
		log.Warn("benchmark fixture not loaded, floating-rate accounts will error until seeded", "error", err)
	}

	uow, err := newUnitOfWork(log)
	if err != nil {
		panic(err)
	}
	eng := enginepkg.New(uow, calendars, benchmarks, opts.Boundaries, defaultRiskFactors(), nil)

	router := newGinRouter(log)
	registerRoutes(router, eng, uow, log)

	log.Info("losengine listening", "addr", "localhost:8080", "worker_pool_size", opts.WorkerPoolSize)
	if err := router.Run("localhost:8080"); err != nil {
		log.Error("server exited", "error", err)
	}
}

// newUnitOfWork connects to Postgres via pgxuow when DATABASE_URL is set,
// the deployment-grade store; otherwise it falls back to an in-memory
// store.memstore, suitable for local runs and smoke-testing the HTTP
// surface without a database.
func newUnitOfWork(log *logger.Logger) (repo.UnitOfWork, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Info("DATABASE_URL not set, using in-memory store")
		return memstore.New(), nil
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	uow := pgxuow.New(pool)
	if err := uow.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	log.Info("connected to Postgres store")
	return uow, nil
}

func registerRoutes(r *gin.Engine, eng *enginepkg.Engine, uow repo.UnitOfWork, log *logger.Logger) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/info", getServiceInfo)

	r.POST("/accounts", createAccount(uow))
	r.GET("/accounts/:id/schedule", generateSchedule(eng))
	r.POST("/accounts/:id/schedule", persistSchedule(eng))
	r.POST("/accounts/:id/payments", applyPayment(eng))
	r.POST("/accounts/:id/accrue", accrue(eng))
	r.POST("/batches/accrual", runAccrualBatch(eng))
	r.POST("/accounts/:id/delinquency", refreshDelinquency(eng))
	r.POST("/accounts/:id/restructure", restructure(eng))
	r.POST("/accounts/:id/prepayment-impact", prepaymentImpact(eng))
	r.POST("/accounts/:id/prepayment", applyPrepayment(eng))
	r.POST("/accounts/:id/close", closeAccount(eng))
	r.POST("/accounts/:id/write-off", writeOff(eng))
	r.POST("/write-offs/:id/recovery", recordWriteOffRecovery(eng))
	r.POST("/accounts/:id/split-collection", splitCollection(eng))
	r.POST("/fldg/:arrangementID/claim", fldgClaim(eng))
	r.POST("/fldg/recovery", fldgRecovery(eng))
	r.POST("/batches/ecl", runMonthlyECL(eng))
	r.POST("/batches/eod", runEOD(eng))
}

func getServiceInfo(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{
		"service":     "losengine",
		"description": "Loan origination and loan management core financial-computation engine",
		"version":     "1.0.0",
		"endpoints": gin.H{
			"POST /accounts":                          "Seed a loan account (onboarding convenience, not a core operation)",
			"GET  /accounts/:id/schedule":               "generate_schedule",
			"POST /accounts/:id/schedule":               "persist_schedule",
			"POST /accounts/:id/payments":                "apply_payment",
			"POST /accounts/:id/accrue":                  "accrue",
			"POST /batches/accrual":                      "run_accrual_batch",
			"POST /accounts/:id/delinquency":             "refresh_delinquency",
			"POST /accounts/:id/restructure":             "restructure",
			"POST /accounts/:id/prepayment-impact":       "prepayment_impact",
			"POST /accounts/:id/prepayment":              "apply_prepayment",
			"POST /accounts/:id/close":                   "close_account",
			"POST /accounts/:id/write-off":               "write_off",
			"POST /write-offs/:id/recovery":              "record_write_off_recovery",
			"POST /accounts/:id/split-collection":        "split_collection",
			"POST /fldg/:arrangementID/claim":            "fldg_claim",
			"POST /fldg/recovery":                        "fldg_recovery",
			"POST /batches/ecl":                          "run_monthly_ecl",
			"POST /batches/eod":                          "run_eod",
		},
	})
}

func respondErr(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type createAccountRequest struct {
	ID                   string      `json:"id" binding:"required"`
	PrincipalDisbursed   money.Amount `json:"principal_disbursed"`
	FixedRate            *float64    `json:"fixed_rate_percent"`
	TenurePeriods        int         `json:"tenure_periods"`
	Frequency            int         `json:"frequency"`
	DayCount             string      `json:"day_count"`
	CalendarID           string      `json:"calendar_id"`
	DisbursementDate     time.Time   `json:"disbursement_date"`
	FirstDueDate         time.Time   `json:"first_due_date"`
}

func createAccount(uow repo.UnitOfWork) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		dayCount, err := parseDayCount(req.DayCount)
		if err != nil {
			respondErr(c, err)
			return
		}
		acct := domain.LoanAccount{
			ID:                   req.ID,
			PrincipalDisbursed:   req.PrincipalDisbursed,
			PrincipalOutstanding: req.PrincipalDisbursed,
			TenurePeriods:        req.TenurePeriods,
			Frequency:            schedule.Frequency(req.Frequency),
			DayCount:             dayCount,
			CalendarID:           req.CalendarID,
			DisbursementDate:     req.DisbursementDate,
			FirstDueDate:         req.FirstDueDate,
			Status:               domain.AccountActive,
			ECLStage:             domain.ECLStage1,
		}
		if req.FixedRate != nil {
			acct.Rate = domain.RateProvenance{Fixed: true, CurrentAnnual: money.NewRateFromPercent(*req.FixedRate)}
		}

		ctx := c.Request.Context()
		tx, err := uow.Begin(ctx)
		if err != nil {
			respondErr(c, err)
			return
		}
		defer tx.Rollback(ctx)
		if err := tx.Accounts().Save(ctx, acct); err != nil {
			respondErr(c, err)
			return
		}
		if err := tx.Commit(ctx); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, acct)
	}
}

func parseDayCount(s string) (daycount.Convention, error) {
	if s == "" {
		return daycount.Actual365, nil
	}
	return daycount.Parse(s)
}

func generateSchedule(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := eng.GenerateSchedule(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func persistSchedule(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := eng.PersistSchedule(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

type applyPaymentRequest struct {
	Amount      money.Amount `json:"amount" binding:"required"`
	PaidAt      time.Time    `json:"paid_at" binding:"required"`
	Channel     int          `json:"channel"`
	ExternalRef string       `json:"external_ref"`
}

func applyPayment(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		out, err := eng.ApplyPayment(c.Request.Context(), c.Param("id"), req.Amount, req.PaidAt, domain.Channel(req.Channel), req.ExternalRef)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type asOfRequest struct {
	AsOf time.Time `json:"as_of_date" binding:"required"`
}

func accrue(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req asOfRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		row, err := eng.Accrue(c.Request.Context(), c.Param("id"), req.AsOf)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

type batchRequest struct {
	AsOf    time.Time `json:"as_of_date" binding:"required"`
	Workers int       `json:"workers"`
}

func runAccrualBatch(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		result, err := eng.RunAccrualBatch(c.Request.Context(), req.AsOf, req.Workers)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func refreshDelinquency(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req asOfRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		snap, err := eng.RefreshDelinquency(c.Request.Context(), c.Param("id"), req.AsOf)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func restructure(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Request lifecycle.RestructureRequest `json:"request"`
			Now     time.Time                    `json:"now" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		ev, err := eng.Restructure(c.Request.Context(), c.Param("id"), req.Request, req.Now)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ev)
	}
}

type prepaymentQuoteRequest struct {
	Request         lifecycle.PrepaymentRequest `json:"request"`
	EMI             money.Amount                `json:"emi"`
	TenureRemaining int                         `json:"tenure_remaining"`
	Overdue         money.Amount                `json:"overdue"`
}

func prepaymentImpact(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prepaymentQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		impact, err := eng.PrepaymentImpact(c.Request.Context(), c.Param("id"), req.EMI, req.TenureRemaining, req.Overdue, req.Request)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, impact)
	}
}

func applyPrepayment(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			prepaymentQuoteRequest
			PaidAt time.Time `json:"paid_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		p, err := eng.ApplyPrepayment(c.Request.Context(), c.Param("id"), req.EMI, req.TenureRemaining, req.Overdue, req.Request, req.PaidAt)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func closeAccount(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ClosureType int       `json:"closure_type"`
			Reason      string    `json:"reason"`
			ClosedAt    time.Time `json:"closed_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		status, err := eng.CloseAccount(c.Request.Context(), c.Param("id"), domain.ClosureType(req.ClosureType), req.Reason, req.ClosedAt)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

func writeOff(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Amount        *money.Amount `json:"amount"`
			Reason        string        `json:"reason"`
			WrittenOffAt  time.Time     `json:"written_off_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		wo, err := eng.WriteOff(c.Request.Context(), c.Param("id"), enginepkg.WriteOffComponents{Amount: req.Amount}, req.Reason, req.WrittenOffAt)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, wo)
	}
}

func recordWriteOffRecovery(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AccountID   string       `json:"account_id" binding:"required"`
			Source      string       `json:"source"`
			Amount      money.Amount `json:"amount"`
			RecoveredAt time.Time    `json:"recovered_at" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		recovery, err := eng.RecordWriteOffRecovery(c.Request.Context(), req.AccountID, c.Param("id"), req.Source, req.Amount, req.RecoveredAt)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, recovery)
	}
}

func splitCollection(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PaymentID    string                       `json:"payment_id" binding:"required"`
			Allocations  []domain.PaymentAllocation   `json:"allocations"`
			BorrowerRate money.Rate                   `json:"borrower_rate"`
			Days         int                          `json:"days"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		entries, err := eng.SplitCollection(c.Request.Context(), c.Param("id"), req.PaymentID, req.Allocations, req.BorrowerRate, req.Days)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

type fldgClaimRequest struct {
	AccountID     string       `json:"account_id" binding:"required"`
	TriggerReason string       `json:"trigger_reason"`
	Principal     money.Amount `json:"principal"`
	Interest      money.Amount `json:"interest"`
	Fees          money.Amount `json:"fees"`
}

func fldgClaim(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fldgClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		in := fldg.ClaimInput{
			AccountID:     req.AccountID,
			TriggerReason: req.TriggerReason,
			Principal:     req.Principal,
			Interest:      req.Interest,
			Fees:          req.Fees,
		}
		util, err := eng.FLDGClaim(c.Request.Context(), c.Param("arrangementID"), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, util)
	}
}

func fldgRecovery(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ArrangementID      string             `json:"arrangement_id" binding:"required"`
			UtilizationID      string             `json:"utilization_id" binding:"required"`
			AlreadyReplenished money.Amount       `json:"already_replenished"`
			Amount             money.Amount       `json:"amount"`
			Source             string             `json:"source"`
			RecoveredAt        time.Time          `json:"recovered_at" binding:"required"`
			Utilization        domain.FLDGUtilization `json:"utilization" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		recovery, err := eng.FLDGRecovery(c.Request.Context(), enginepkg.FLDGRecoveryInput{
			UtilizationID:      req.UtilizationID,
			ArrangementID:      req.ArrangementID,
			AlreadyReplenished: req.AlreadyReplenished,
			Amount:             req.Amount,
			Source:             req.Source,
			RecoveredAt:        req.RecoveredAt,
		}, req.Utilization)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, recovery)
	}
}

func runMonthlyECL(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		result, summaries, err := eng.RunMonthlyECL(c.Request.Context(), req.AsOf, req.Workers)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"batch_result": result, "portfolio_summary": summaries})
	}
}

func runEOD(eng *enginepkg.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			batchRequest
			RunECL bool `json:"run_ecl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, err)
			return
		}
		result, err := eng.RunEOD(c.Request.Context(), req.AsOf, req.Workers, req.RunECL)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
