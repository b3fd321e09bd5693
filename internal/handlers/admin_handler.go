package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
)

// JobRunner runs scheduled jobs on demand
type JobRunner interface {
	RunJob(name string) (int64, error)
	GetJobStatus() map[string]interface{}
}

// PaymentAuditReader reads the payment audit trail
type PaymentAuditReader interface {
	GetByBookingID(ctx context.Context, bookingID int64) ([]*models.PaymentAudit, error)
	GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error)
}

// ActivityReader reads a user's audit log
type ActivityReader interface {
	GetRecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]services.AuditLogEntry, error)
}

// AdminHandler handles operational admin endpoints
type AdminHandler struct {
	jobs     JobRunner
	audits   PaymentAuditReader
	activity ActivityReader
	logger   *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(jobs JobRunner, audits PaymentAuditReader, activity ActivityReader, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		jobs:     jobs,
		audits:   audits,
		activity: activity,
		logger:   logger,
	}
}

// RunJob runs a background job immediately
// POST /api/v1/admin/jobs/:name/run
func (h *AdminHandler) RunJob(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	name := c.Param("name")

	affected, err := h.jobs.RunJob(name)
	if err != nil {
		status := http.StatusInternalServerError
		code := "JOB_FAILED"
		switch {
		case errors.Is(err, services.ErrUnknownJob):
			status, code = http.StatusNotFound, "UNKNOWN_JOB"
		case errors.Is(err, services.ErrJobRunning):
			status, code = http.StatusConflict, "JOB_RUNNING"
		}
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("job", name).Error("Manual job run failed")
		}
		c.JSON(status, gin.H{
			"error":   "job_failed",
			"message": err.Error(),
			"code":    code,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"job":      name,
		"admin_id": userCtx.UserID,
		"affected": affected,
	}).Info("Job triggered manually")
	c.JSON(http.StatusOK, gin.H{
		"job":      name,
		"affected": affected,
	})
}

// JobStatus lists the scheduled jobs and their next runs
// GET /api/v1/admin/jobs
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// BookingPaymentTrail lists every payment audit entry of a booking, oldest first
// GET /api/v1/admin/bookings/:id/payment-audits
func (h *AdminHandler) BookingPaymentTrail(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	audits, err := h.audits.GetByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if audits == nil {
		audits = []*models.PaymentAudit{}
	}
	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"audits":     audits,
	})
}

// AmountMismatches lists payments whose provider amount differed from the booking total
// GET /api/v1/admin/payments/mismatches
func (h *AdminHandler) AmountMismatches(c *gin.Context) {
	limit, _ := pagination(c)

	audits, err := h.audits.GetAmountMismatches(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if audits == nil {
		audits = []*models.PaymentAudit{}
	}
	c.JSON(http.StatusOK, gin.H{
		"mismatches": audits,
		"count":      len(audits),
	})
}

// UserActivity returns the recent audit log of a user
// GET /api/v1/admin/users/:id/activity
func (h *AdminHandler) UserActivity(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", "invalid user id")
		return
	}
	limit, _ := pagination(c)

	events, err := h.activity.GetRecentEvents(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"events":  events,
	})
}
