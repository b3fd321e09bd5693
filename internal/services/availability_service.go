package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
)

const blockedReasonBooked = "booked"

// AvailabilityService owns the per-night availability ledger of properties
type AvailabilityService struct {
	tx           TxRunner
	availability AvailabilityStore
	properties   PropertyStore
	logger       *logrus.Logger
	now          func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(tx TxRunner, availability AvailabilityStore, properties PropertyStore, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{
		tx:           tx,
		availability: availability,
		properties:   properties,
		logger:       logger,
		now:          time.Now,
	}
}

// GenerateHorizon makes sure one row exists per night of [start, end] at the
// given price. Free rows past end are trimmed, booked ones are kept.
// Running it twice with the same input changes nothing.
func (s *AvailabilityService) GenerateHorizon(ctx context.Context, propertyID int64, start, end time.Time, price decimal.Decimal) (*models.HorizonResult, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return nil, models.NewValidationError("INVALID_DATE_RANGE", "horizon end must not be before its start")
	}
	if price.IsNegative() {
		return nil, models.NewValidationError("INVALID_PRICE", "nightly price must not be negative")
	}

	result := &models.HorizonResult{PropertyID: propertyID, Start: start, End: end}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		upserted, err := s.availability.UpsertHorizon(ctx, propertyID, start, end, price)
		if err != nil {
			return err
		}
		trimmed, err := s.availability.TrimAfter(ctx, propertyID, end)
		if err != nil {
			return err
		}
		result.Upserted, result.Trimmed = upserted, trimmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"property_id": propertyID,
		"start":       start.Format(models.DateLayout),
		"end":         end.Format(models.DateLayout),
		"upserted":    result.Upserted,
		"trimmed":     result.Trimmed,
	}).Info("Availability horizon generated")

	return result, nil
}

// RefreshHorizon regenerates today..today+maxNights at the property's current price
func (s *AvailabilityService) RefreshHorizon(ctx context.Context, property *models.Property) (*models.HorizonResult, error) {
	today := models.DateOnly(s.now())
	return s.GenerateHorizon(ctx, property.ID, today, today.AddDate(0, 0, property.MaxNights), property.PricePerNight)
}

// RefreshPropertyHorizon regenerates the horizon of a property on behalf of
// its host. Admins may refresh any property.
func (s *AvailabilityService) RefreshPropertyHorizon(ctx context.Context, propertyID int64, actor Actor) (*models.HorizonResult, error) {
	property, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, models.ErrPropertyNotFound
	}
	if !actor.IsAdmin && property.HostID != actor.UserID {
		return nil, models.ErrNotPropertyHost
	}
	return s.RefreshHorizon(ctx, property)
}

// RollForward refreshes the horizon of every active property. One failing
// property does not stop the others.
func (s *AvailabilityService) RollForward(ctx context.Context) (int, error) {
	properties, err := s.properties.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i := range properties {
		if _, err := s.RefreshHorizon(ctx, &properties[i]); err != nil {
			s.logger.WithError(err).WithField("property_id", properties[i].ID).Error("Failed to roll availability horizon")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// IsRangeAvailable reports whether every night of [start, end] exists and is
// free. Nights outside the generated horizon count as unavailable.
func (s *AvailabilityService) IsRangeAvailable(ctx context.Context, propertyID int64, start, end time.Time) (bool, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	rows, err := s.availability.ListRange(ctx, propertyID, start, end)
	if err != nil {
		return false, err
	}
	return models.CoversRange(rows, start, end), nil
}

// Reserve marks [start, end] as booked. It must run inside a transaction:
// the rows are locked in date order before they are checked, and on
// conflict nothing is written.
func (s *AvailabilityService) Reserve(ctx context.Context, propertyID int64, start, end time.Time) error {
	start, end = models.DateOnly(start), models.DateOnly(end)
	rows, err := s.availability.LockRange(ctx, propertyID, start, end)
	if err != nil {
		return err
	}
	if !models.CoversRange(rows, start, end) {
		return models.ErrRangeNotAvailable
	}

	reason := blockedReasonBooked
	updated, err := s.availability.SetRange(ctx, propertyID, start, end, false, &reason)
	if err != nil {
		return err
	}
	if int(updated) != len(rows) {
		return fmt.Errorf("reserved %d of %d nights for property %d", updated, len(rows), propertyID)
	}
	return nil
}

// Release frees every night of [start, end]
func (s *AvailabilityService) Release(ctx context.Context, propertyID int64, start, end time.Time) error {
	_, err := s.availability.SetRange(ctx, propertyID, models.DateOnly(start), models.DateOnly(end), true, nil)
	return err
}

// Lock takes the row locks of [start, end] without changing anything
func (s *AvailabilityService) Lock(ctx context.Context, propertyID int64, start, end time.Time) error {
	_, err := s.availability.LockRange(ctx, propertyID, models.DateOnly(start), models.DateOnly(end))
	return err
}

// LastAvailableDate returns the last generated night of a property, nil when none exist
func (s *AvailabilityService) LastAvailableDate(ctx context.Context, propertyID int64) (*time.Time, error) {
	return s.availability.LastDate(ctx, propertyID)
}

// Calendar returns the public view of [start, end]
func (s *AvailabilityService) Calendar(ctx context.Context, propertyID int64, start, end time.Time) ([]models.CalendarDay, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return nil, models.NewValidationError("INVALID_DATE_RANGE", "end date must not be before start date")
	}
	if models.NightsBetween(start, end) > 366 {
		return nil, models.NewValidationError("RANGE_TOO_LONG", "calendar range is limited to 366 days")
	}

	property, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, models.ErrPropertyNotFound
	}

	rows, err := s.availability.ListRange(ctx, propertyID, start, end)
	if err != nil {
		return nil, err
	}
	days := make([]models.CalendarDay, 0, len(rows))
	for _, row := range rows {
		days = append(days, row.ToCalendarDay())
	}
	return days, nil
}
