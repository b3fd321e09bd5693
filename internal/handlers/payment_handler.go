package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/services"
	"github.com/staynest/rental-backend/internal/utils"
)

// maxWebhookBody caps the webhook payload read into memory
const maxWebhookBody = 1 << 20

// PaymentService is the payment reconciler as used by the HTTP layer
type PaymentService interface {
	CreateCheckout(ctx context.Context, bookingID int64, guestID uuid.UUID, meta services.RequestMeta) (*services.CheckoutSession, error)
	ConfirmPaymentForGuest(ctx context.Context, guestID uuid.UUID, bookingID int64, transactionID string, meta services.RequestMeta) (*services.ConfirmResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string, meta services.RequestMeta) (*services.WebhookResult, error)
	RefundBooking(ctx context.Context, bookingID int64, amount decimal.Decimal) (*services.RefundResult, error)
}

// PaymentHandler handles checkout, confirmation and provider webhooks
type PaymentHandler struct {
	payments PaymentService
	security SecurityLogger
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler. security may be nil.
func NewPaymentHandler(payments PaymentService, security SecurityLogger, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		security: security,
		logger:   logger,
	}
}

// CheckoutRequest opens a hosted checkout for a booking
type CheckoutRequest struct {
	BookingID int64 `json:"booking_id" binding:"required,gt=0"`
}

// ConfirmRequest reports a provider transaction for a booking
type ConfirmRequest struct {
	BookingID     int64  `json:"booking_id" binding:"required,gt=0"`
	TransactionID string `json:"transaction_id" binding:"required,max=255"`
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}

// Checkout opens a hosted checkout session for the caller's booking
// POST /api/v1/payments/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	session, err := h.payments.CreateCheckout(c.Request.Context(), req.BookingID, userCtx.UserID, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Confirm reconciles a payment the client reports as finished. The amount
// and status are always read back from the provider.
// POST /api/v1/payments/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.payments.ConfirmPaymentForGuest(c.Request.Context(), userCtx.UserID, req.BookingID, req.TransactionID, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook receives provider events. Dropped and duplicate events answer 200
// so the provider stops retrying; anything transient answers 5xx.
// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil || len(payload) == 0 {
		badRequest(c, "INVALID_WEBHOOK_PAYLOAD", "webhook body is required")
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader(services.SignatureHeader), requestMeta(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			safeLogSuspiciousActivity(c, h.security, h.logger, "webhook_signature_rejected", map[string]interface{}{
				"payload_bytes": len(payload),
			})
			badRequest(c, "INVALID_SIGNATURE", "webhook signature verification failed")
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefundRequest refunds part of a booking's payment. Amounts above what is
// left are capped.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,decimalgt0"`
}

// Refund issues a refund for a booking
// POST /api/v1/admin/bookings/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.payments.RefundBooking(c.Request.Context(), bookingID, req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"admin_id":   userCtx.UserID,
		"amount":     result.Amount.String(),
	}).Info("Admin refund issued")
	c.JSON(http.StatusOK, result)
}
