package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/pkg/notify"
)

const (
	cancelledByGuest = "guest"
	cancelledByHost  = "host"
)

// Refunder returns money to the guest of a cancelled booking
type Refunder interface {
	RefundBooking(ctx context.Context, bookingID int64, amount decimal.Decimal) (*RefundResult, error)
}

// BookingService runs the booking lifecycle
type BookingService struct {
	tx           TxRunner
	bookings     BookingStore
	properties   PropertyStore
	promotions   PromotionStore
	payments     PaymentStore
	availability *AvailabilityService
	refunder     Refunder
	notifier     notify.Notifier
	logger       *logrus.Logger
	minorUnits   int32
	now          func() time.Time
}

// BookingServiceDeps groups the collaborators of a BookingService
type BookingServiceDeps struct {
	Tx           TxRunner
	Bookings     BookingStore
	Properties   PropertyStore
	Promotions   PromotionStore
	Payments     PaymentStore
	Availability *AvailabilityService
	Refunder     Refunder
	Notifier     notify.Notifier
	Logger       *logrus.Logger
	MinorUnits   int32
}

// NewBookingService creates a new booking service
func NewBookingService(deps BookingServiceDeps) *BookingService {
	return &BookingService{
		tx:           deps.Tx,
		bookings:     deps.Bookings,
		properties:   deps.Properties,
		promotions:   deps.Promotions,
		payments:     deps.Payments,
		availability: deps.Availability,
		refunder:     deps.Refunder,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		minorUnits:   deps.MinorUnits,
		now:          time.Now,
	}
}

// CreateBookingInput is a guest's request for a stay
type CreateBookingInput struct {
	GuestID     uuid.UUID
	PropertyID  int64
	Start       time.Time
	End         time.Time
	PromotionID int64
}

// UpdateBookingInput replaces the range and promotion of a booking
type UpdateBookingInput struct {
	BookingID   int64
	GuestID     uuid.UUID
	Start       time.Time
	End         time.Time
	PromotionID int64
}

// QuoteRequest asks for the price of a stay without booking it
type QuoteRequest struct {
	PropertyID  int64
	Start       time.Time
	End         time.Time
	PromotionID int64
}

// CancellationResult is a cancelled booking and the refund it earns
type CancellationResult struct {
	Booking *models.Booking `json:"booking"`
	Refund  RefundQuote     `json:"refund"`
	// RefundID is set when the provider accepted the refund
	RefundID string `json:"refund_id,omitempty"`
}

// Actor is the authenticated caller of a read
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ============================================================================
// QUOTE
// ============================================================================

// Quote prices a stay with the same validation a booking gets, minus the
// availability check
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (*QuoteBreakdown, error) {
	now := s.now()
	start, end := models.DateOnly(req.Start), models.DateOnly(req.End)

	property, err := s.loadBookableProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := s.validateStay(ctx, property, start, end, now); err != nil {
		return nil, err
	}
	promo, err := s.resolvePromotion(ctx, req.PromotionID, false, now)
	if err != nil {
		return nil, err
	}

	quote := s.price(property, start, end, promo, false, now)
	return &quote, nil
}

// ============================================================================
// GUEST COMMANDS
// ============================================================================

// Create books [start, end] for a guest. The booking is Confirmed right
// away on instant-book properties and Pending otherwise.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	now := s.now()
	start, end := models.DateOnly(in.Start), models.DateOnly(in.End)

	property, err := s.loadBookableProperty(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := s.validateStay(ctx, property, start, end, now); err != nil {
		return nil, err
	}

	available, err := s.availability.IsRangeAvailable(ctx, property.ID, start, end)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, models.ErrRangeNotAvailable
	}

	promo, err := s.resolvePromotion(ctx, in.PromotionID, false, now)
	if err != nil {
		return nil, err
	}
	quote := s.price(property, start, end, promo, false, now)

	booking := &models.Booking{
		PropertyID:     property.ID,
		GuestID:        in.GuestID,
		StartDate:      start,
		EndDate:        end,
		Status:         models.BookingStatusPending,
		CheckInStatus:  models.StayStatusPending,
		CheckOutStatus: models.StayStatusPending,
		TotalAmount:    quote.TotalAmount,
		PromotionID:    quote.PromotionID,
	}
	if property.InstantBook {
		booking.Status = models.BookingStatusConfirmed
		booking.ConfirmedAt = &now
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.availability.Reserve(ctx, property.ID, start, end); err != nil {
			return err
		}
		if err := s.redeemPromotion(ctx, booking); err != nil {
			return err
		}
		return s.bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"property_id": property.ID,
		"guest_id":    in.GuestID,
		"status":      booking.Status,
		"total":       booking.TotalAmount.String(),
	}).Info("Booking created")

	if booking.Status == models.BookingStatusConfirmed {
		s.notify(ctx, booking.GuestID, notify.TemplateBookingConfirmed, booking)
	}
	return booking, nil
}

// Update moves a guest's booking to a new range. The old nights are only
// given up if the new ones can be reserved.
func (s *BookingService) Update(ctx context.Context, in UpdateBookingInput) (*models.Booking, error) {
	now := s.now()
	start, end := models.DateOnly(in.Start), models.DateOnly(in.End)

	current, err := s.loadGuestBooking(ctx, in.BookingID, in.GuestID)
	if err != nil {
		return nil, err
	}
	if !current.EffectiveStatus(now).IsActive() {
		return nil, models.NewConflictError("BOOKING_NOT_EDITABLE", "only pending or confirmed bookings can be edited")
	}

	property, err := s.loadBookableProperty(ctx, current.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := s.validateStay(ctx, property, start, end, now); err != nil {
		return nil, err
	}
	// a promotion the booking already consumed stays with it across edits
	held := current.PromotionRedeemed && current.PromotionID != nil && *current.PromotionID == in.PromotionID
	promo, err := s.resolvePromotion(ctx, in.PromotionID, held, now)
	if err != nil {
		return nil, err
	}
	quote := s.price(property, start, end, promo, held, now)

	var updated *models.Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.bookings.GetForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if locked == nil {
			return models.ErrBookingNotFound
		}
		next, err := locked.Reschedule(now, start, end, quote.TotalAmount, quote.PromotionID)
		if err != nil {
			return err
		}

		spanStart, spanEnd := minDate(locked.StartDate, start), maxDate(locked.EndDate, end)
		if err := s.availability.Lock(ctx, property.ID, spanStart, spanEnd); err != nil {
			return err
		}
		if err := s.availability.Release(ctx, property.ID, locked.StartDate, locked.EndDate); err != nil {
			return err
		}
		if err := s.availability.Reserve(ctx, property.ID, start, end); err != nil {
			return err
		}
		if err := s.redeemPromotion(ctx, next); err != nil {
			return err
		}
		if err := s.bookings.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": updated.ID,
		"start":      start.Format(models.DateLayout),
		"end":        end.Format(models.DateLayout),
		"total":      updated.TotalAmount.String(),
	}).Info("Booking rescheduled")

	return updated.Resolved(now), nil
}

// Cancel cancels a guest's booking, frees its nights and refunds the guest
// according to the property's cancellation policy
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, guestID uuid.UUID) (*CancellationResult, error) {
	if _, err := s.loadGuestBooking(ctx, bookingID, guestID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, bookingID, cancelledByGuest)
}

// ReviewEligibility reports whether the guest may review the stay
func (s *BookingService) ReviewEligibility(ctx context.Context, bookingID int64, guestID uuid.UUID) (bool, error) {
	booking, err := s.loadGuestBooking(ctx, bookingID, guestID)
	if err != nil {
		return false, err
	}
	hasReview, err := s.bookings.HasReview(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return booking.CanReview(s.now(), hasReview), nil
}

// ============================================================================
// HOST COMMANDS
// ============================================================================

// ConfirmByHost accepts a Pending booking on the host's property
func (s *BookingService) ConfirmByHost(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error) {
	booking, err := s.hostTransition(ctx, bookingID, hostID, func(ctx context.Context, b *models.Booking, now time.Time) (*models.Booking, error) {
		next, err := b.Confirm(now)
		if err != nil {
			return nil, err
		}
		return next, s.redeemPromotion(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, booking.GuestID, notify.TemplateBookingConfirmed, booking)
	return booking, nil
}

// Deny rejects a Pending booking and frees its nights
func (s *BookingService) Deny(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error) {
	booking, err := s.hostTransition(ctx, bookingID, hostID, func(ctx context.Context, b *models.Booking, now time.Time) (*models.Booking, error) {
		next, err := b.Deny(now)
		if err != nil {
			return nil, err
		}
		return next, s.availability.Release(ctx, b.PropertyID, b.StartDate, b.EndDate)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, booking.GuestID, notify.TemplateBookingDenied, booking)
	return booking, nil
}

// CancelByHost cancels a booking on the host's property. The guest is
// refunded in full regardless of policy.
func (s *BookingService) CancelByHost(ctx context.Context, bookingID int64, hostID uuid.UUID) (*CancellationResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if _, err := s.loadOwnedProperty(ctx, booking.PropertyID, hostID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, bookingID, cancelledByHost)
}

// CheckIn records the guest's arrival
func (s *BookingService) CheckIn(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error) {
	return s.hostTransition(ctx, bookingID, hostID, func(_ context.Context, b *models.Booking, now time.Time) (*models.Booking, error) {
		return b.CheckIn(now)
	})
}

// CheckOut records the guest's departure
func (s *BookingService) CheckOut(ctx context.Context, bookingID int64, hostID uuid.UUID) (*models.Booking, error) {
	return s.hostTransition(ctx, bookingID, hostID, func(_ context.Context, b *models.Booking, now time.Time) (*models.Booking, error) {
		return b.CheckOut(now)
	})
}

// ============================================================================
// READS
// ============================================================================

// Get returns a booking to its guest, the property host or an admin
func (s *BookingService) Get(ctx context.Context, bookingID int64, actor Actor) (*models.BookingDetail, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}

	if !actor.IsAdmin && booking.GuestID != actor.UserID {
		property, err := s.properties.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return nil, err
		}
		if property == nil || property.HostID != actor.UserID {
			return nil, models.ErrNotBookingGuest
		}
	}

	payments, err := s.payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	resolved := booking.Resolved(s.now())
	return &models.BookingDetail{
		Booking:    *resolved,
		Nights:     resolved.Nights(),
		AmountPaid: models.AmountPaid(payments),
	}, nil
}

// ListForGuest returns a guest's bookings, newest first
func (s *BookingService) ListForGuest(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	bookings, err := s.bookings.ListByGuest(ctx, guestID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(bookings), nil
}

// ListForHost returns the bookings of a host's properties, newest first
func (s *BookingService) ListForHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	bookings, err := s.bookings.ListByHost(ctx, hostID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(bookings), nil
}

// CompleteEnded persists the Completed status of stays that ended before today
func (s *BookingService) CompleteEnded(ctx context.Context) (int64, error) {
	return s.bookings.MarkCompleted(ctx, models.DateOnly(s.now()))
}

// ============================================================================
// INTERNALS
// ============================================================================

type bookingTransition func(ctx context.Context, b *models.Booking, now time.Time) (*models.Booking, error)

// hostTransition locks the booking, checks the host owns its property and
// persists the snapshot returned by fn, all in one transaction
func (s *BookingService) hostTransition(ctx context.Context, bookingID int64, hostID uuid.UUID, fn bookingTransition) (*models.Booking, error) {
	now := s.now()
	var result *models.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return models.ErrBookingNotFound
		}
		if _, err := s.loadOwnedProperty(ctx, booking.PropertyID, hostID); err != nil {
			return err
		}
		next, err := fn(ctx, booking, now)
		if err != nil {
			return err
		}
		if err := s.bookings.Update(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": result.ID,
		"host_id":    hostID,
		"status":     result.Status,
	}).Info("Booking updated by host")

	return result.Resolved(now), nil
}

func (s *BookingService) cancel(ctx context.Context, bookingID int64, by string) (*CancellationResult, error) {
	now := s.now()
	result := &CancellationResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return models.ErrBookingNotFound
		}
		next, err := booking.Cancel(now, by)
		if err != nil {
			return err
		}
		if err := s.availability.Release(ctx, booking.PropertyID, booking.StartDate, booking.EndDate); err != nil {
			return err
		}
		if err := s.bookings.Update(ctx, next); err != nil {
			return err
		}

		property, err := s.properties.GetProperty(ctx, booking.PropertyID)
		if err != nil {
			return err
		}
		if property == nil {
			return models.ErrPropertyNotFound
		}
		payments, err := s.payments.ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		paid := models.AmountPaid(payments)
		days := models.DaysUntil(booking.StartDate, now)
		if by == cancelledByHost {
			result.Refund = FullRefund(paid, days)
		} else {
			result.Refund = CalculateRefund(property.PolicyName(), days, paid, property.CancellationPercent, s.minorUnits)
			if result.Refund.FellBack {
				s.logger.WithFields(logrus.Fields{
					"booking_id":  bookingID,
					"property_id": property.ID,
					"policy":      property.PolicyName(),
				}).Warn("Unknown cancellation policy, refunding as flexible")
			}
		}
		result.Booking = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"cancelled_by":  by,
		"refund_amount": result.Refund.Amount.String(),
		"tier":          result.Refund.Tier,
	}).Info("Booking cancelled")

	if result.Refund.Amount.IsPositive() && s.refunder != nil {
		refund, err := s.refunder.RefundBooking(ctx, bookingID, result.Refund.Amount)
		if err != nil {
			// the cancellation stands; an admin can retry the refund
			s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to refund cancelled booking")
		} else if refund != nil {
			result.RefundID = refund.RefundID
		}
	}

	s.notify(ctx, result.Booking.GuestID, notify.TemplateBookingCancelled, result.Booking)
	return result, nil
}

// redeemPromotion consumes the promotion of a booking entering Confirmed.
// An exhausted promotion does not block the confirmation: the guest keeps
// the quoted price and the overrun is reported.
func (s *BookingService) redeemPromotion(ctx context.Context, b *models.Booking) error {
	return redeemPromotion(ctx, s.promotions, s.logger, b)
}

func redeemPromotion(ctx context.Context, promotions PromotionStore, logger *logrus.Logger, b *models.Booking) error {
	if !b.NeedsPromotionRedemption() {
		return nil
	}
	ok, err := promotions.Redeem(ctx, *b.PromotionID)
	if err != nil {
		return err
	}
	if !ok {
		logger.WithFields(logrus.Fields{
			"booking_id":   b.ID,
			"promotion_id": *b.PromotionID,
			"reason":       "promotion exhausted before confirmation",
		}).Warn("Integrity violation: promotion use not recorded")
	}
	b.PromotionRedeemed = true
	return nil
}

func (s *BookingService) loadBookableProperty(ctx context.Context, propertyID int64) (*models.Property, error) {
	if propertyID <= 0 {
		return nil, models.NewValidationError("INVALID_PROPERTY", "property id is required")
	}
	property, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, models.ErrPropertyNotFound
	}
	if !property.IsBookable() {
		return nil, models.NewValidationError("PROPERTY_NOT_BOOKABLE", "property is not accepting bookings")
	}
	return property, nil
}

func (s *BookingService) loadOwnedProperty(ctx context.Context, propertyID int64, hostID uuid.UUID) (*models.Property, error) {
	property, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, models.ErrPropertyNotFound
	}
	if property.HostID != hostID {
		return nil, models.ErrNotPropertyHost
	}
	return property, nil
}

func (s *BookingService) loadGuestBooking(ctx context.Context, bookingID int64, guestID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.GuestID != guestID {
		return nil, models.ErrNotBookingGuest
	}
	return booking, nil
}

// validateStay checks the dates against today, the property's stay limits
// and the generated horizon
func (s *BookingService) validateStay(ctx context.Context, property *models.Property, start, end, now time.Time) error {
	if !start.Before(end) {
		return models.NewValidationError("INVALID_DATE_RANGE", "start date must be before end date")
	}
	if !start.After(models.DateOnly(now)) {
		return models.NewValidationError("DATE_IN_PAST", "start date must be in the future")
	}

	nights := models.NightsBetween(start, end)
	if property.MinNights > 0 && nights < property.MinNights {
		return models.NewValidationError("STAY_TOO_SHORT", fmt.Sprintf("minimum stay is %d nights", property.MinNights))
	}
	if property.MaxNights > 0 && nights > property.MaxNights {
		return models.NewValidationError("STAY_TOO_LONG", fmt.Sprintf("maximum stay is %d nights", property.MaxNights))
	}

	last, err := s.availability.LastAvailableDate(ctx, property.ID)
	if err != nil {
		return err
	}
	if last == nil || end.After(*last) || start.After(last.AddDate(0, 0, 1)) {
		return models.NewValidationError("OUTSIDE_HORIZON", "dates are beyond the property's bookable calendar")
	}
	return nil
}

func (s *BookingService) resolvePromotion(ctx context.Context, promotionID int64, held bool, now time.Time) (*models.Promotion, error) {
	if promotionID <= 0 {
		return nil, nil
	}
	promo, err := s.promotions.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, models.NewValidationError("PROMOTION_NOT_FOUND", "promotion does not exist")
	}
	if !held && !promo.IsApplicable(now) {
		return nil, models.NewValidationError("PROMOTION_NOT_APPLICABLE", "promotion is expired or fully used")
	}
	return promo, nil
}

func (s *BookingService) price(property *models.Property, start, end time.Time, promo *models.Promotion, held bool, now time.Time) QuoteBreakdown {
	return Quote(QuoteInput{
		NightlyPrice:  property.PricePerNight,
		CleaningFee:   property.CleaningFee,
		ServiceFee:    property.ServiceFee,
		Nights:        models.NightsBetween(start, end),
		Promotion:     promo,
		PromotionHeld: held,
		Now:           now,
		MinorUnits:    s.minorUnits,
	})
}

func (s *BookingService) resolveAll(bookings []models.Booking) []models.Booking {
	now := s.now()
	out := make([]models.Booking, 0, len(bookings))
	for i := range bookings {
		out = append(out, *bookings[i].Resolved(now))
	}
	return out
}

func (s *BookingService) notify(ctx context.Context, userID uuid.UUID, template string, b *models.Booking) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		UserID:   userID,
		Template: template,
		Data: map[string]string{
			"booking_id": strconv.FormatInt(b.ID, 10),
			"start_date": b.StartDate.Format(models.DateLayout),
			"end_date":   b.EndDate.Format(models.DateLayout),
		},
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": b.ID,
			"template":   template,
		}).Warn("Failed to send notification")
	}
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
