package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/utils"
)

// AuditLogger records user actions in audit_logs
type AuditLogger interface {
	LogBookingAction(ctx context.Context, userID uuid.UUID, action string, bookingID int64, ipAddress, userAgent string, details map[string]interface{}) error
	LogPayoutAction(ctx context.Context, userID uuid.UUID, action string, payoutID int64, ipAddress, userAgent string, details map[string]interface{}) error
}

// logAuditError is a helper to log audit service errors without failing the request
func logAuditError(logger *logrus.Logger, operation string, err error) {
	if err != nil {
		logger.WithError(err).WithField("operation", operation).Warn("Audit write failed")
	}
}

func safeLogBookingAction(c *gin.Context, audit AuditLogger, logger *logrus.Logger, userID uuid.UUID, action string, bookingID int64, details map[string]interface{}) {
	if audit == nil {
		return
	}
	err := audit.LogBookingAction(c.Request.Context(), userID, action, bookingID, utils.GetRealIP(c), utils.GetUserAgent(c), details)
	logAuditError(logger, "LogBookingAction", err)
}

func safeLogPayoutAction(c *gin.Context, audit AuditLogger, logger *logrus.Logger, userID uuid.UUID, action string, payoutID int64, details map[string]interface{}) {
	if audit == nil {
		return
	}
	err := audit.LogPayoutAction(c.Request.Context(), userID, action, payoutID, utils.GetRealIP(c), utils.GetUserAgent(c), details)
	logAuditError(logger, "LogPayoutAction", err)
}

// SecurityLogger records rejected or suspicious requests
type SecurityLogger interface {
	LogSuspiciousActivity(ctx context.Context, userID *uuid.UUID, activity, ipAddress, userAgent string, details map[string]interface{}) error
}

func safeLogSuspiciousActivity(c *gin.Context, security SecurityLogger, logger *logrus.Logger, activity string, details map[string]interface{}) {
	if security == nil {
		return
	}
	err := security.LogSuspiciousActivity(c.Request.Context(), nil, activity, utils.GetRealIP(c), utils.GetUserAgent(c), details)
	logAuditError(logger, "LogSuspiciousActivity", err)
}
