package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/models"
)

// AvailabilityRepository handles the per-night availability rows of properties
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = `property_id, date, is_available, blocked_reason, price, updated_at`

// ListRange returns the rows of [start, end] ordered by date without locking
func (r *AvailabilityRepository) ListRange(ctx context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM property_availability
		WHERE property_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`

	var rows []models.PropertyAvailability
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, propertyID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return rows, nil
}

// LockRange returns the rows of [start, end] and holds row locks on them until
// the surrounding transaction ends. Rows are locked in date order so that
// concurrent bookings of one property cannot deadlock.
func (r *AvailabilityRepository) LockRange(ctx context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM property_availability
		WHERE property_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
		FOR UPDATE`

	var rows []models.PropertyAvailability
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, propertyID, start, end); err != nil {
		return nil, fmt.Errorf("failed to lock availability: %w", err)
	}
	return rows, nil
}

// SetRange flips every row of [start, end] to the given availability
func (r *AvailabilityRepository) SetRange(ctx context.Context, propertyID int64, start, end time.Time, available bool, reason *string) (int64, error) {
	query := `
		UPDATE property_availability
		SET is_available = $4, blocked_reason = $5, updated_at = NOW()
		WHERE property_id = $1 AND date BETWEEN $2 AND $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, propertyID, start, end, available, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to update availability: %w", err)
	}
	return result.RowsAffected()
}

// UpsertHorizon inserts missing rows of [start, end] and re-prices rows that
// are still free. Booked rows keep the price they were booked at.
func (r *AvailabilityRepository) UpsertHorizon(ctx context.Context, propertyID int64, start, end time.Time, price decimal.Decimal) (int64, error) {
	query := `
		INSERT INTO property_availability (property_id, date, is_available, price, updated_at)
		SELECT $1, d::date, TRUE, $4, NOW()
		FROM generate_series($2::date, $3::date, INTERVAL '1 day') AS d
		ON CONFLICT (property_id, date) DO UPDATE
		SET price = EXCLUDED.price, updated_at = NOW()
		WHERE property_availability.is_available = TRUE
		  AND property_availability.price <> EXCLUDED.price`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, propertyID, start, end, price)
	if err != nil {
		return 0, fmt.Errorf("failed to generate availability horizon: %w", err)
	}
	return result.RowsAffected()
}

// TrimAfter deletes free rows past the horizon end. Rows held by a booking stay.
func (r *AvailabilityRepository) TrimAfter(ctx context.Context, propertyID int64, after time.Time) (int64, error) {
	query := `
		DELETE FROM property_availability
		WHERE property_id = $1 AND date > $2 AND is_available = TRUE`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, propertyID, after)
	if err != nil {
		return 0, fmt.Errorf("failed to trim availability horizon: %w", err)
	}
	return result.RowsAffected()
}

// LastDate returns the last generated date of a property, nil when none exist
func (r *AvailabilityRepository) LastDate(ctx context.Context, propertyID int64) (*time.Time, error) {
	query := `SELECT MAX(date) FROM property_availability WHERE property_id = $1`

	var last sql.NullTime
	if err := conn(ctx, r.db).GetContext(ctx, &last, query, propertyID); err != nil {
		return nil, fmt.Errorf("failed to get last availability date: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	date := models.DateOnly(last.Time)
	return &date, nil
}
