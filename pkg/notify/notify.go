package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Templates understood by the notification service
const (
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingDenied    = "booking_denied"
	TemplateBookingCancelled = "booking_cancelled"
	TemplatePayoutFailed     = "payout_failed"
)

// Message is one notification addressed to a user
type Message struct {
	UserID   uuid.UUID         `json:"user_id"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Notifier delivers messages to users
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a notifier for development environments
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message
func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.WithFields(logrus.Fields{
		"user_id":  msg.UserID,
		"template": msg.Template,
		"data":     msg.Data,
	}).Info("Notification (log mode)")
	return nil
}
