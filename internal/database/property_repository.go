package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/staynest/rental-backend/internal/models"
)

// PropertyRepository reads the catalog's property rows
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = `
	id, host_id, title, status, price_per_night, cleaning_fee, service_fee,
	min_nights, max_nights, instant_book, cancellation_policy,
	cancellation_refund_percent, updated_at`

// GetProperty returns a property by ID, nil when it does not exist
func (r *PropertyRepository) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	var property models.Property
	err := conn(ctx, r.db).GetContext(ctx, &property, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

// ListActive returns every bookable property
func (r *PropertyRepository) ListActive(ctx context.Context) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE status = 'Active' ORDER BY id`

	var properties []models.Property
	if err := conn(ctx, r.db).SelectContext(ctx, &properties, query); err != nil {
		return nil, fmt.Errorf("failed to list active properties: %w", err)
	}
	return properties, nil
}
