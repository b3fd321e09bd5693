package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// BookingPaymentRepository handles provider transactions recorded against bookings
type BookingPaymentRepository struct {
	db *sqlx.DB
}

// NewBookingPaymentRepository creates a new booking payment repository
func NewBookingPaymentRepository(db *sqlx.DB) *BookingPaymentRepository {
	return &BookingPaymentRepository{db: db}
}

const bookingPaymentColumns = `
	id, booking_id, amount, currency, payment_method_type, status,
	transaction_id, refunded_amount, credited, credited_amount,
	created_at, updated_at`

// GetByTransactionID returns the payment for a provider transaction, nil when unknown
func (r *BookingPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.BookingPayment, error) {
	query := `SELECT ` + bookingPaymentColumns + ` FROM booking_payments WHERE transaction_id = $1`
	return r.get(ctx, query, transactionID)
}

// GetByTransactionIDForUpdate is GetByTransactionID holding the row lock
func (r *BookingPaymentRepository) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.BookingPayment, error) {
	query := `SELECT ` + bookingPaymentColumns + ` FROM booking_payments WHERE transaction_id = $1 FOR UPDATE`
	return r.get(ctx, query, transactionID)
}

func (r *BookingPaymentRepository) get(ctx context.Context, query, transactionID string) (*models.BookingPayment, error) {
	var payment models.BookingPayment
	if err := conn(ctx, r.db).GetContext(ctx, &payment, query, transactionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking payment: %w", err)
	}
	return &payment, nil
}

// Create inserts a payment. A second row for the same transaction returns ErrDuplicateKey.
func (r *BookingPaymentRepository) Create(ctx context.Context, p *models.BookingPayment) error {
	query := `
		INSERT INTO booking_payments (
			booking_id, amount, currency, payment_method_type, status,
			transaction_id, refunded_amount, credited, credited_amount,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		p.BookingID, p.Amount, p.Currency, p.PaymentMethodType, p.Status,
		p.TransactionID, p.RefundedAmount, p.Credited, p.CreditedAmount,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create booking payment: %w", err)
	}
	return nil
}

// Update persists status, refund and credit bookkeeping of a payment
func (r *BookingPaymentRepository) Update(ctx context.Context, p *models.BookingPayment) error {
	query := `
		UPDATE booking_payments SET
			status = $2, refunded_amount = $3, credited = $4,
			credited_amount = $5, payment_method_type = $6, updated_at = NOW()
		WHERE id = $1`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Status, p.RefundedAmount, p.Credited, p.CreditedAmount, p.PaymentMethodType)
	if err != nil {
		return fmt.Errorf("failed to update booking payment: %w", err)
	}
	return nil
}

// ListByBooking returns the payments of a booking in creation order
func (r *BookingPaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.BookingPayment, error) {
	query := `SELECT ` + bookingPaymentColumns + ` FROM booking_payments WHERE booking_id = $1 ORDER BY id`

	var payments []models.BookingPayment
	if err := conn(ctx, r.db).SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list booking payments: %w", err)
	}
	return payments, nil
}
