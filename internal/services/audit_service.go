package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/utils"
)

// AuditService handles audit logging of user actions and security events
type AuditService struct {
	db *sqlx.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *sqlx.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents an action to be logged
type AuditEvent struct {
	UserID     *uuid.UUID             // nil for unauthenticated calls such as webhooks
	Action     string                 // e.g. "booking_cancel", "payout_request"
	EntityType string                 // e.g. "booking", "payout"
	EntityID   *int64                 // ID of the affected entity (can be nil)
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{} // stored as JSONB
}

// LogBookingAction logs a guest or host action against a booking
func (s *AuditService) LogBookingAction(ctx context.Context, userID uuid.UUID, action string, bookingID int64, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(userAgent)

	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "booking",
		EntityID:   &bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogPayoutAction logs a payout request or an admin payout operation
func (s *AuditService) LogPayoutAction(ctx context.Context, userID uuid.UUID, action string, payoutID int64, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(userAgent)

	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "payout",
		EntityID:   &payoutID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogSuspiciousActivity logs security events such as rejected webhook signatures
func (s *AuditService) LogSuspiciousActivity(ctx context.Context, userID *uuid.UUID, activity, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(userAgent)
	details["activity"] = activity

	return s.logEvent(ctx, AuditEvent{
		UserID:     userID,
		Action:     "suspicious_activity",
		EntityType: "security",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent writes to the audit_logs table
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		models.JSONB(event.Details),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// AuditLogEntry is one row of the audit trail
type AuditLogEntry struct {
	Action     string       `json:"action" db:"action"`
	EntityType string       `json:"entity_type" db:"entity_type"`
	EntityID   *int64       `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  string       `json:"ip_address" db:"ip_address"`
	UserAgent  string       `json:"user_agent" db:"user_agent"`
	Details    models.JSONB `json:"details" db:"details"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// GetRecentEvents retrieves recent audit events for a user
func (s *AuditService) GetRecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]AuditLogEntry, error) {
	query := `
		SELECT action, entity_type, entity_id, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	events := []AuditLogEntry{}
	if err := s.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
