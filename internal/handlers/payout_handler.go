package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PayoutService is the host payout ledger as used by the HTTP layer
type PayoutService interface {
	GetHostBalance(ctx context.Context, hostID uuid.UUID) (*models.HostLedger, error)
	RequestPayout(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal, method models.PayoutMethod) (*models.HostPayout, error)
	GetHostPayouts(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.HostPayout, error)
	GetPayoutDetails(ctx context.Context, payoutID int64, actor services.Actor) (*models.HostPayout, error)
	ProcessPayout(ctx context.Context, payoutID int64) (*models.HostPayout, error)
	ExportStatement(ctx context.Context, hostID uuid.UUID, from, to time.Time) ([]byte, error)
}

// PayoutHandler handles host balance and payout endpoints
type PayoutHandler struct {
	payouts PayoutService
	audit   AuditLogger
	logger  *logrus.Logger
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts PayoutService, audit AuditLogger, logger *logrus.Logger) *PayoutHandler {
	return &PayoutHandler{
		payouts: payouts,
		audit:   audit,
		logger:  logger,
	}
}

// PayoutRequest asks for part of the available balance to be paid out
type PayoutRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required,decimalgt0"`
	PayoutMethod string          `json:"payout_method" binding:"omitempty,oneof=bank_transfer card"`
}

// Balance returns the caller's balances
// GET /api/v1/host/balance
func (h *PayoutHandler) Balance(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	ledger, err := h.payouts.GetHostBalance(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

// Request debits the balance and queues a payout
// POST /api/v1/host/payouts
func (h *PayoutHandler) Request(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	payout, err := h.payouts.RequestPayout(c.Request.Context(), userCtx.UserID, req.Amount, models.PayoutMethod(req.PayoutMethod))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogPayoutAction(c, h.audit, h.logger, userCtx.UserID, "payout_request", payout.ID, map[string]interface{}{
		"amount": payout.Amount.String(),
		"method": payout.PayoutMethod,
	})
	c.JSON(http.StatusCreated, payout)
}

// List returns the caller's payouts, newest first
// GET /api/v1/host/payouts
func (h *PayoutHandler) List(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	payouts, err := h.payouts.GetHostPayouts(c.Request.Context(), userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payouts": payouts,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns one payout to its host or an admin
// GET /api/v1/host/payouts/:id
func (h *PayoutHandler) Get(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	payoutID, ok := idParam(c, "id")
	if !ok {
		return
	}

	payout, err := h.payouts.GetPayoutDetails(c.Request.Context(), payoutID, actorOf(userCtx))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

// Export downloads an XLSX statement of the caller's payouts
// GET /api/v1/host/payouts/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *PayoutHandler) Export(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	today := models.DateOnly(time.Now())
	from, to := today.AddDate(0, -1, 0), today
	if v := c.Query("from"); v != "" {
		if from, ok = parseDate(c, "from", v); !ok {
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, ok = parseDate(c, "to", v); !ok {
			return
		}
	}

	data, err := h.payouts.ExportStatement(c.Request.Context(), userCtx.UserID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("payouts_%s_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Process sends a requested payout to the provider
// POST /api/v1/admin/payouts/:id/process
func (h *PayoutHandler) Process(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	payoutID, ok := idParam(c, "id")
	if !ok {
		return
	}

	payout, err := h.payouts.ProcessPayout(c.Request.Context(), payoutID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogPayoutAction(c, h.audit, h.logger, userCtx.UserID, "payout_process", payoutID, map[string]interface{}{
		"status": payout.Status,
	})
	c.JSON(http.StatusOK, payout)
}
