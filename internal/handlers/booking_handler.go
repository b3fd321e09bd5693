package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
)

// BookingService is the booking lifecycle as used by the HTTP layer
type BookingService interface {
	Quote(ctx context.Context, req services.QuoteRequest) (*services.QuoteBreakdown, error)
	Create(ctx context.Context, in services.CreateBookingInput) (*models.Booking, error)
	Update(ctx context.Context, in services.UpdateBookingInput) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID int64, guestID uuid.UUID) (*services.CancellationResult, error)
	Get(ctx context.Context, bookingID int64, actor services.Actor) (*models.BookingDetail, error)
	ListForGuest(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListForHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ReviewEligibility(ctx context.Context, bookingID int64, guestID uuid.UUID) (bool, error)
	ConfirmByHost(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error)
	Deny(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error)
	CancelByHost(ctx context.Context, bookingID int64, hostID uuid.UUID) (*services.CancellationResult, error)
	CheckIn(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error)
	CheckOut(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error)
}

// BookingHandler handles guest and host booking endpoints
type BookingHandler struct {
	bookings BookingService
	audit    AuditLogger
	logger   *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingService, audit AuditLogger, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		audit:    audit,
		logger:   logger,
	}
}

// BookingRequest is the body of quote, create and update calls
type BookingRequest struct {
	PropertyID  int64  `json:"property_id" binding:"required,gt=0"`
	StartDate   string `json:"start_date" binding:"required,dateonly"`
	EndDate     string `json:"end_date" binding:"required,dateonly"`
	PromotionID int64  `json:"promotion_id" binding:"omitempty,gt=0"`
}

// UpdateBookingRequest is the body of an update; the property cannot change
type UpdateBookingRequest struct {
	StartDate   string `json:"start_date" binding:"required,dateonly"`
	EndDate     string `json:"end_date" binding:"required,dateonly"`
	PromotionID int64  `json:"promotion_id" binding:"omitempty,gt=0"`
}

func (h *BookingHandler) bindRange(c *gin.Context, start, end string) (services.QuoteRequest, bool) {
	startDate, ok := parseDate(c, "start_date", start)
	if !ok {
		return services.QuoteRequest{}, false
	}
	endDate, ok := parseDate(c, "end_date", end)
	if !ok {
		return services.QuoteRequest{}, false
	}
	return services.QuoteRequest{Start: startDate, End: endDate}, true
}

// ============================================================================
// GUEST - /api/v1/bookings
// ============================================================================

// Quote prices a stay without booking it
// POST /api/v1/bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	q, ok := h.bindRange(c, req.StartDate, req.EndDate)
	if !ok {
		return
	}
	q.PropertyID = req.PropertyID
	q.PromotionID = req.PromotionID

	quote, err := h.bookings.Quote(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Create books a stay for the caller
// POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	q, ok := h.bindRange(c, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), services.CreateBookingInput{
		GuestID:     userCtx.UserID,
		PropertyID:  req.PropertyID,
		Start:       q.Start,
		End:         q.End,
		PromotionID: req.PromotionID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingAction(c, h.audit, h.logger, userCtx.UserID, "booking_create", booking.ID, map[string]interface{}{
		"property_id":  booking.PropertyID,
		"status":       booking.Status,
		"total_amount": booking.TotalAmount.String(),
	})
	c.JSON(http.StatusCreated, booking)
}

// List returns the caller's bookings
// GET /api/v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	bookings, err := h.bookings.ListForGuest(c.Request.Context(), userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get returns one booking to its guest, its host or an admin
// GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.bookings.Get(c.Request.Context(), bookingID, actorOf(userCtx))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update moves a booking to new dates
// PUT /api/v1/bookings/:id
func (h *BookingHandler) Update(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	q, ok := h.bindRange(c, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	booking, err := h.bookings.Update(c.Request.Context(), services.UpdateBookingInput{
		BookingID:   bookingID,
		GuestID:     userCtx.UserID,
		Start:       q.Start,
		End:         q.End,
		PromotionID: req.PromotionID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingAction(c, h.audit, h.logger, userCtx.UserID, "booking_update", booking.ID, map[string]interface{}{
		"start_date":   req.StartDate,
		"end_date":     req.EndDate,
		"total_amount": booking.TotalAmount.String(),
	})
	c.JSON(http.StatusOK, booking)
}

// Cancel cancels the caller's booking and refunds per the property's policy
// DELETE /api/v1/bookings/:id
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.bookings.Cancel(c.Request.Context(), bookingID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingAction(c, h.audit, h.logger, userCtx.UserID, "booking_cancel", bookingID, map[string]interface{}{
		"refund_amount": result.Refund.Amount.String(),
		"policy":        result.Refund.Tier,
	})
	c.JSON(http.StatusOK, result)
}

// ReviewEligibility reports whether the caller may review a stay
// GET /api/v1/bookings/:id/review-eligibility
func (h *BookingHandler) ReviewEligibility(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	eligible, err := h.bookings.ReviewEligibility(c.Request.Context(), bookingID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": bookingID, "eligible": eligible})
}

// ============================================================================
// HOST - /api/v1/host/bookings
// ============================================================================

// HostList returns bookings of the caller's properties
// GET /api/v1/host/bookings
func (h *BookingHandler) HostList(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	bookings, err := h.bookings.ListForHost(c.Request.Context(), userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}

type hostAction func(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error)

func (h *BookingHandler) runHostAction(c *gin.Context, action string, fn hostAction) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	booking, err := fn(c.Request.Context(), bookingID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingAction(c, h.audit, h.logger, userCtx.UserID, action, bookingID, map[string]interface{}{
		"status": booking.Status,
	})
	c.JSON(http.StatusOK, booking)
}

// HostConfirm accepts a pending request
// POST /api/v1/host/bookings/:id/confirm
func (h *BookingHandler) HostConfirm(c *gin.Context) {
	h.runHostAction(c, "booking_host_confirm", h.bookings.ConfirmByHost)
}

// HostDeny declines a pending request
// POST /api/v1/host/bookings/:id/deny
func (h *BookingHandler) HostDeny(c *gin.Context) {
	h.runHostAction(c, "booking_host_deny", h.bookings.Deny)
}

// HostCheckIn records the guest's arrival
// POST /api/v1/host/bookings/:id/check-in
func (h *BookingHandler) HostCheckIn(c *gin.Context) {
	h.runHostAction(c, "booking_check_in", h.bookings.CheckIn)
}

// HostCheckOut records the guest's departure
// POST /api/v1/host/bookings/:id/check-out
func (h *BookingHandler) HostCheckOut(c *gin.Context) {
	h.runHostAction(c, "booking_check_out", h.bookings.CheckOut)
}

// HostCancel cancels a booking with a full refund to the guest
// POST /api/v1/host/bookings/:id/cancel
func (h *BookingHandler) HostCancel(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.bookings.CancelByHost(c.Request.Context(), bookingID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingAction(c, h.audit, h.logger, userCtx.UserID, "booking_host_cancel", bookingID, map[string]interface{}{
		"refund_amount": result.Refund.Amount.String(),
	})
	c.JSON(http.StatusOK, result)
}
