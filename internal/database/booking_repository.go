package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// BookingRepository handles booking rows
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	b.id, b.property_id, b.guest_id, b.start_date, b.end_date, b.status,
	b.check_in_status, b.check_out_status, b.total_amount, b.promotion_id,
	b.promotion_redeemed, b.cancelled_by, b.confirmed_at, b.cancelled_at,
	b.created_at, b.updated_at`

// ============================================================================
// WRITES
// ============================================================================

// Create inserts a booking and fills its generated fields
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (
			property_id, guest_id, start_date, end_date, status,
			check_in_status, check_out_status, total_amount, promotion_id,
			promotion_redeemed, confirmed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		b.PropertyID, b.GuestID, b.StartDate, b.EndDate, b.Status,
		b.CheckInStatus, b.CheckOutStatus, b.TotalAmount, b.PromotionID,
		b.PromotionRedeemed, b.ConfirmedAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a booking snapshot
func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	query := `
		UPDATE bookings SET
			start_date = $2, end_date = $3, status = $4,
			check_in_status = $5, check_out_status = $6, total_amount = $7,
			promotion_id = $8, promotion_redeemed = $9, cancelled_by = $10,
			confirmed_at = $11, cancelled_at = $12, updated_at = NOW()
		WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.StartDate, b.EndDate, b.Status,
		b.CheckInStatus, b.CheckOutStatus, b.TotalAmount,
		b.PromotionID, b.PromotionRedeemed, b.CancelledBy,
		b.ConfirmedAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d not found", b.ID)
	}
	return nil
}

// MarkCompleted materializes the Completed status of confirmed bookings whose
// last night is before the given date
func (r *BookingRepository) MarkCompleted(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'Completed', updated_at = NOW()
		WHERE status = 'Confirmed' AND end_date < $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to complete bookings: %w", err)
	}
	return result.RowsAffected()
}

// ============================================================================
// READS
// ============================================================================

// GetByID returns a booking, nil when it does not exist
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1`, id)
}

// GetForUpdate returns a booking and locks its row for the surrounding transaction
func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) get(ctx context.Context, query string, id int64) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(ctx, r.db).GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListByGuest returns a guest's bookings, newest first
func (r *BookingRepository) ListByGuest(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.guest_id = $1
		ORDER BY b.start_date DESC, b.id DESC
		LIMIT $2 OFFSET $3`

	var bookings []models.Booking
	if err := conn(ctx, r.db).SelectContext(ctx, &bookings, query, guestID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list guest bookings: %w", err)
	}
	return bookings, nil
}

// ListByHost returns bookings of every property a host owns, newest first
func (r *BookingRepository) ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		WHERE p.host_id = $1
		ORDER BY b.start_date DESC, b.id DESC
		LIMIT $2 OFFSET $3`

	var bookings []models.Booking
	if err := conn(ctx, r.db).SelectContext(ctx, &bookings, query, hostID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list host bookings: %w", err)
	}
	return bookings, nil
}

// ============================================================================
// REVIEWS
// ============================================================================

// HasReview reports whether a review exists for the booking.
// reviews.booking_id is unique, so at most one can exist.
func (r *BookingRepository) HasReview(ctx context.Context, bookingID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = $1)`
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return exists, nil
}
