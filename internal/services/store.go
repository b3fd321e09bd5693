package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
)

// The interfaces below are satisfied by the repositories in internal/database.
// Services take them instead of the concrete types so tests can run against
// in-memory stores.

// TxRunner runs fn inside one transaction; stores called with the passed
// context join it
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AvailabilityStore persists per-night availability rows
type AvailabilityStore interface {
	ListRange(ctx context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error)
	LockRange(ctx context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error)
	SetRange(ctx context.Context, propertyID int64, start, end time.Time, available bool, reason *string) (int64, error)
	UpsertHorizon(ctx context.Context, propertyID int64, start, end time.Time, price decimal.Decimal) (int64, error)
	TrimAfter(ctx context.Context, propertyID int64, after time.Time) (int64, error)
	LastDate(ctx context.Context, propertyID int64) (*time.Time, error)
}

// PropertyStore reads catalog properties
type PropertyStore interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	ListActive(ctx context.Context) ([]models.Property, error)
}

// BookingStore persists bookings
type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	Update(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Booking, error)
	ListByGuest(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.Booking, error)
	MarkCompleted(ctx context.Context, before time.Time) (int64, error)
	HasReview(ctx context.Context, bookingID int64) (bool, error)
}

// PromotionStore reads promotions and consumes their uses
type PromotionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Promotion, error)
	Redeem(ctx context.Context, id int64) (bool, error)
}

// PaymentStore persists provider transactions of bookings
type PaymentStore interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.BookingPayment, error)
	GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.BookingPayment, error)
	Create(ctx context.Context, p *models.BookingPayment) error
	Update(ctx context.Context, p *models.BookingPayment) error
	ListByBooking(ctx context.Context, bookingID int64) ([]models.BookingPayment, error)
}

// LedgerStore persists host balances
type LedgerStore interface {
	Get(ctx context.Context, hostID uuid.UUID) (*models.HostLedger, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.HostLedger, error)
	Credit(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error
	Debit(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) (bool, error)
	Restore(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error
	ReverseEarnings(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal) error
	UpdateAccount(ctx context.Context, hostID uuid.UUID, accountID string, payoutsEnabled bool) error
}

// PayoutStore persists payout requests
type PayoutStore interface {
	Create(ctx context.Context, p *models.HostPayout) error
	Update(ctx context.Context, p *models.HostPayout) error
	GetByID(ctx context.Context, id int64) (*models.HostPayout, error)
	GetForUpdate(ctx context.Context, id int64) (*models.HostPayout, error)
	ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.HostPayout, error)
	ListByHostBetween(ctx context.Context, hostID uuid.UUID, from, to time.Time) ([]models.HostPayout, error)
	ListRequested(ctx context.Context, limit int) ([]models.HostPayout, error)
}

// EventStore claims provider webhook event ids
type EventStore interface {
	Record(ctx context.Context, eventID string, eventType models.ProviderEventType) (bool, error)
}

// PaymentAuditLog writes the payment audit trail
type PaymentAuditLog interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}
