package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/database"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/pkg/notify"
)

// Webhook outcomes
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookDropped   = "dropped"
)

// settleAttempts bounds the retry when two deliveries insert the same
// transaction concurrently
const settleAttempts = 2

// PaymentReconciler turns provider payments and transfer events into
// booking, payment and ledger state
type PaymentReconciler struct {
	tx          TxRunner
	bookings    BookingStore
	properties  PropertyStore
	promotions  PromotionStore
	payments    PaymentStore
	ledger      LedgerStore
	events      EventStore
	audit       PaymentAuditLog
	provider    PaymentProvider
	payouts     *PayoutService
	notifier    notify.Notifier
	logger      *logrus.Logger
	currency    string
	minorUnits  int32
	platformFee decimal.Decimal
	now         func() time.Time
}

// PaymentReconcilerDeps groups the collaborators of a PaymentReconciler
type PaymentReconcilerDeps struct {
	Tx                 TxRunner
	Bookings           BookingStore
	Properties         PropertyStore
	Promotions         PromotionStore
	Payments           PaymentStore
	Ledger             LedgerStore
	Events             EventStore
	Audit              PaymentAuditLog
	Provider           PaymentProvider
	Payouts            *PayoutService
	Notifier           notify.Notifier
	Logger             *logrus.Logger
	Currency           string
	MinorUnits         int32
	PlatformFeePercent decimal.Decimal
}

// NewPaymentReconciler creates a new payment reconciler
func NewPaymentReconciler(deps PaymentReconcilerDeps) *PaymentReconciler {
	return &PaymentReconciler{
		tx:          deps.Tx,
		bookings:    deps.Bookings,
		properties:  deps.Properties,
		promotions:  deps.Promotions,
		payments:    deps.Payments,
		ledger:      deps.Ledger,
		events:      deps.Events,
		audit:       deps.Audit,
		provider:    deps.Provider,
		payouts:     deps.Payouts,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		currency:    deps.Currency,
		minorUnits:  deps.MinorUnits,
		platformFee: deps.PlatformFeePercent,
		now:         time.Now,
	}
}

// ConfirmResult is the state after a payment confirmation
type ConfirmResult struct {
	Payment          *models.BookingPayment `json:"payment"`
	BookingStatus    models.BookingStatus   `json:"booking_status"`
	Credited         decimal.Decimal        `json:"credited"`
	AlreadyProcessed bool                   `json:"already_processed"`
	// NeedsRefund is set when money settled on a denied or cancelled booking
	NeedsRefund bool `json:"needs_refund,omitempty"`
	// Duplicate is set when the webhook event carrying the payment was already applied
	Duplicate bool `json:"-"`
}

// WebhookResult tells the caller what happened to a delivery
type WebhookResult struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

// RefundResult is a refund accepted by the provider and recorded locally
type RefundResult struct {
	RefundID      string          `json:"refund_id"`
	PaymentID     int64           `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	HostReversed  decimal.Decimal `json:"host_reversed"`
	PaymentStatus string          `json:"payment_status"`
}

// RequestMeta identifies the caller of a payment endpoint in the audit trail
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ============================================================================
// CHECKOUT
// ============================================================================

// CreateCheckout opens a hosted checkout for the booking total
func (r *PaymentReconciler) CreateCheckout(ctx context.Context, bookingID int64, guestID uuid.UUID, meta RequestMeta) (*CheckoutSession, error) {
	booking, err := r.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.GuestID != guestID {
		return nil, models.ErrNotBookingGuest
	}
	if !booking.EffectiveStatus(r.now()).IsActive() {
		return nil, models.NewConflictError("BOOKING_NOT_PAYABLE", "only pending or confirmed bookings can be paid")
	}

	payments, err := r.payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusSucceeded {
			return nil, models.NewConflictError("BOOKING_ALREADY_PAID", "booking is already paid")
		}
	}

	audit := models.NewPaymentAudit(models.PaymentEventCheckoutCreated, models.PaymentSourceUser).
		SetBooking(bookingID).
		SetMetadata(meta.IPAddress, meta.UserAgent)

	session, err := r.provider.CreateCheckoutSession(ctx, CheckoutParams{
		BookingID:   bookingID,
		Amount:      booking.TotalAmount,
		Currency:    r.currency,
		Description: fmt.Sprintf("Booking #%d", bookingID),
	})
	if err != nil {
		r.logAudit(ctx, audit.SetError(err.Error()))
		return nil, models.NewExternalProviderError("failed to create checkout session", err)
	}

	r.logAudit(ctx, audit.SetTransaction(session.ID))
	return session, nil
}

// ============================================================================
// CONFIRMATION
// ============================================================================

// ConfirmPaymentForGuest is the direct confirmation path of a guest
func (r *PaymentReconciler) ConfirmPaymentForGuest(ctx context.Context, guestID uuid.UUID, bookingID int64, transactionID string, meta RequestMeta) (*ConfirmResult, error) {
	booking, err := r.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.GuestID != guestID {
		return nil, models.ErrNotBookingGuest
	}
	return r.confirm(ctx, bookingID, transactionID, "", models.PaymentSourceUser, meta)
}

// ConfirmPayment settles a provider transaction against a booking. The
// first transition of the transaction into succeeded credits the host and
// confirms a Pending booking. Replays change nothing.
func (r *PaymentReconciler) ConfirmPayment(ctx context.Context, bookingID int64, transactionID string) (*ConfirmResult, error) {
	return r.confirm(ctx, bookingID, transactionID, "", models.PaymentSourceBackend, RequestMeta{})
}

func (r *PaymentReconciler) confirm(ctx context.Context, bookingID int64, transactionID, eventID string, source models.PaymentEventSource, meta RequestMeta) (*ConfirmResult, error) {
	if bookingID <= 0 || transactionID == "" {
		return nil, models.NewValidationError("INVALID_PAYMENT", "booking id and transaction id are required")
	}

	audit := models.NewPaymentAudit(models.PaymentEventConfirmRequested, source).
		SetBooking(bookingID).
		SetTransaction(transactionID).
		SetEvent(eventID).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetIdempotencyKey("confirm:" + transactionID)

	existing, err := r.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.BookingID != bookingID {
		return nil, models.NewValidationError("PAYMENT_BOOKING_MISMATCH", "transaction belongs to another booking")
	}
	if existing != nil && isSettled(existing.Status) && eventID == "" {
		r.logAudit(ctx, audit.MarkAsDuplicate().SetPaymentStatus(string(existing.Status)))
		return &ConfirmResult{Payment: existing, AlreadyProcessed: true, Credited: decimal.Zero}, nil
	}

	booking, err := r.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}

	txn, err := r.provider.GetTransaction(ctx, transactionID)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": transactionID,
		}).Error("Failed to fetch provider transaction")
		r.logAudit(ctx, audit.SetError(err.Error()))
		return nil, models.NewExternalProviderError("failed to fetch payment from provider", err)
	}
	if id, ok := (models.ProviderObject{Metadata: txn.Metadata}).MetadataInt64(models.MetadataBookingID); ok && id != bookingID {
		r.logAudit(ctx, audit.SetError("provider metadata references booking "+fmt.Sprint(id)))
		return nil, models.NewValidationError("PAYMENT_BOOKING_MISMATCH", "payment was made for another booking")
	}
	status, err := models.ParsePaymentStatus(txn.Status)
	if err != nil {
		r.logAudit(ctx, audit.SetError(err.Error()))
		return nil, models.NewExternalProviderError("provider reported an unknown payment status", err)
	}

	var result *ConfirmResult
	for attempt := 1; attempt <= settleAttempts; attempt++ {
		result, err = r.settle(ctx, bookingID, txn, status, eventID)
		if !errors.Is(err, database.ErrDuplicateKey) {
			break
		}
	}
	if err != nil {
		r.logAudit(ctx, audit.SetError(err.Error()))
		return nil, err
	}

	audit.SetPaymentStatus(string(status))
	if result.Duplicate {
		audit.MarkAsDuplicate()
	}
	if !audit.SetAmounts(booking.TotalAmount, txn.Amount, txn.Currency) && status == models.PaymentStatusSucceeded {
		r.logger.WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": transactionID,
			"expected":       booking.TotalAmount.String(),
			"received":       txn.Amount.String(),
		}).Warn("Payment amount does not match booking total")
		r.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, source).
			SetBooking(bookingID).
			SetTransaction(transactionID).
			SetEvent(eventID))
	}
	r.logAudit(ctx, audit)

	if result.NeedsRefund {
		r.logger.WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": transactionID,
			"booking_status": result.BookingStatus,
			"amount":         result.Payment.Amount.String(),
		}).Warn("Integrity violation: payment settled on inactive booking")
		r.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventIntegrityViolation, source).
			SetBooking(bookingID).
			SetTransaction(transactionID).
			SetEvent(eventID).
			SetPaymentStatus(string(status)).
			SetError(fmt.Sprintf("payment settled on %s booking; guest refund required", result.BookingStatus)))
	}

	if result.Credited.IsPositive() {
		r.logger.WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": transactionID,
			"credited":       result.Credited.String(),
			"booking_status": result.BookingStatus,
		}).Info("Payment settled and host credited")
	}
	if result.BookingStatus == models.BookingStatusConfirmed && booking.Status == models.BookingStatusPending {
		r.notify(ctx, booking.GuestID, notify.TemplateBookingConfirmed, bookingID)
	}
	return result, nil
}

// settle applies a provider status inside one transaction
func (r *PaymentReconciler) settle(ctx context.Context, bookingID int64, txn *ProviderTransaction, status models.PaymentStatus, eventID string) (*ConfirmResult, error) {
	now := r.now()
	result := &ConfirmResult{Credited: decimal.Zero}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		if eventID != "" {
			fresh, err := r.events.Record(ctx, eventID, models.EventPaymentSucceeded)
			if err != nil {
				return err
			}
			if !fresh {
				result.Duplicate = true
				result.AlreadyProcessed = true
				return nil
			}
		}

		booking, err := r.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return models.ErrBookingNotFound
		}
		result.BookingStatus = booking.Status

		current, err := r.payments.GetByTransactionIDForUpdate(ctx, txn.ID)
		if err != nil {
			return err
		}
		isNew := current == nil
		if isNew {
			current = &models.BookingPayment{
				BookingID:         bookingID,
				Amount:            txn.Amount,
				Currency:          txn.Currency,
				PaymentMethodType: txn.PaymentMethodType,
				Status:            models.PaymentStatusPending,
				TransactionID:     txn.ID,
				RefundedAmount:    decimal.Zero,
				CreditedAmount:    decimal.Zero,
			}
		} else if current.BookingID != bookingID {
			return models.NewValidationError("PAYMENT_BOOKING_MISMATCH", "transaction belongs to another booking")
		}

		next, enteredSucceeded := current.Settle(status, now)
		if next.PaymentMethodType == "" {
			next.PaymentMethodType = txn.PaymentMethodType
		}
		if !isNew && !enteredSucceeded && next.Status == current.Status {
			result.Payment = next
			result.AlreadyProcessed = isSettled(current.Status)
			return nil
		}

		if enteredSucceeded && !next.Credited {
			property, err := r.properties.GetProperty(ctx, booking.PropertyID)
			if err != nil {
				return err
			}
			if property == nil {
				return models.ErrPropertyNotFound
			}
			net := r.netEarnings(next.Amount)
			if err := r.ledger.Credit(ctx, property.HostID, net); err != nil {
				return err
			}
			next.Credited = true
			next.CreditedAmount = net
			result.Credited = net
			result.NeedsRefund = booking.Status == models.BookingStatusDenied || booking.Status == models.BookingStatusCancelled

			if booking.Status == models.BookingStatusPending {
				confirmed, err := booking.Confirm(now)
				if err != nil {
					return err
				}
				if err := redeemPromotion(ctx, r.promotions, r.logger, confirmed); err != nil {
					return err
				}
				if err := r.bookings.Update(ctx, confirmed); err != nil {
					return err
				}
				result.BookingStatus = confirmed.Status
			}
		}

		if isNew {
			if err := r.payments.Create(ctx, next); err != nil {
				return err
			}
		} else if err := r.payments.Update(ctx, next); err != nil {
			return err
		}
		result.Payment = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// netEarnings is the part of a payment credited to the host
func (r *PaymentReconciler) netEarnings(amount decimal.Decimal) decimal.Decimal {
	if !r.platformFee.IsPositive() {
		return amount
	}
	return amount.Mul(hundred.Sub(r.platformFee)).Div(hundred).Round(r.minorUnits)
}

// ============================================================================
// WEBHOOKS
// ============================================================================

// HandleWebhook verifies and applies one provider event. Events that cannot
// be applied without breaking an invariant are logged and dropped so the
// provider stops retrying; infrastructure errors are returned for a retry.
func (r *PaymentReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string, meta RequestMeta) (*WebhookResult, error) {
	event, err := r.provider.VerifyWebhook(payload, signature)
	if err != nil {
		r.logger.WithError(err).WithField("ip", meta.IPAddress).Warn("Webhook rejected")
		if errors.Is(err, ErrInvalidSignature) {
			return nil, err
		}
		return nil, models.NewValidationError("INVALID_WEBHOOK_PAYLOAD", err.Error())
	}

	result := &WebhookResult{EventID: event.ID, Type: string(event.Type), Status: WebhookProcessed}
	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceProviderWebhook).
		SetEvent(event.ID).
		SetTransaction(event.Data.Object.ID).
		SetPaymentStatus(event.Data.Object.Status).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetIdempotencyKey("event:" + event.ID)
	var raw map[string]interface{}
	if json.Unmarshal(payload, &raw) == nil {
		audit.SetPayload(raw)
	}

	duplicate, err := r.dispatch(ctx, event, meta)
	switch {
	case err == nil && duplicate:
		result.Status = WebhookDuplicate
		audit.MarkAsDuplicate()
	case err == nil:
	case models.IsKind(err, models.KindIntegrity) || models.IsKind(err, models.KindValidation) || models.IsKind(err, models.KindNotFound):
		result.Status = WebhookDropped
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warn("Integrity violation: webhook event dropped")
		audit.EventType = models.PaymentEventIntegrityViolation
		audit.SetError(err.Error())
	default:
		audit.SetError(err.Error())
		r.logAudit(ctx, audit)
		return nil, err
	}

	r.logAudit(ctx, audit)
	r.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"status":     result.Status,
	}).Info("Webhook handled")
	return result, nil
}

func (r *PaymentReconciler) dispatch(ctx context.Context, event *models.ProviderEvent, meta RequestMeta) (bool, error) {
	obj := event.Data.Object

	switch event.Type {
	case models.EventPaymentSucceeded:
		bookingID, ok := obj.MetadataInt64(models.MetadataBookingID)
		if !ok {
			return false, models.NewIntegrityViolation("MISSING_METADATA", "payment event without BookingId")
		}
		result, err := r.confirm(ctx, bookingID, obj.ID, event.ID, models.PaymentSourceProviderWebhook, meta)
		if err != nil {
			return false, err
		}
		return result.Duplicate, nil

	case models.EventPaymentFailed:
		bookingID, ok := obj.MetadataInt64(models.MetadataBookingID)
		if !ok {
			return false, models.NewIntegrityViolation("MISSING_METADATA", "payment event without BookingId")
		}
		return r.recordFailure(ctx, event, bookingID)

	case models.EventTransferCreated, models.EventTransferPaid, models.EventTransferFailed:
		payoutID, ok := obj.MetadataInt64(models.MetadataPayoutID)
		if !ok {
			return false, models.NewIntegrityViolation("MISSING_METADATA", "transfer event without PayoutId")
		}
		return r.applyTransfer(ctx, event, payoutID)

	case models.EventAccountUpdated:
		return r.updateAccount(ctx, event)
	}

	return false, models.NewIntegrityViolation("UNKNOWN_EVENT_TYPE", "unhandled event type "+string(event.Type))
}

// claim records the event inside the current transaction and reports
// whether it had been applied before
func (r *PaymentReconciler) claim(ctx context.Context, event *models.ProviderEvent) (bool, error) {
	fresh, err := r.events.Record(ctx, event.ID, event.Type)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func (r *PaymentReconciler) recordFailure(ctx context.Context, event *models.ProviderEvent, bookingID int64) (bool, error) {
	obj := event.Data.Object
	now := r.now()
	duplicate := false

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		dup, err := r.claim(ctx, event)
		if err != nil || dup {
			duplicate = dup
			return err
		}

		booking, err := r.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return models.NewIntegrityViolation("BOOKING_NOT_FOUND", fmt.Sprintf("no booking %d for payment event", bookingID))
		}

		current, err := r.payments.GetByTransactionIDForUpdate(ctx, obj.ID)
		if err != nil {
			return err
		}
		if current == nil {
			failed := &models.BookingPayment{
				BookingID:         bookingID,
				Amount:            models.MinorToDecimal(obj.Amount, r.minorUnits),
				Currency:          obj.Currency,
				PaymentMethodType: obj.PaymentMethod,
				Status:            models.PaymentStatusFailed,
				TransactionID:     obj.ID,
				RefundedAmount:    decimal.Zero,
				CreditedAmount:    decimal.Zero,
			}
			return r.payments.Create(ctx, failed)
		}
		if current.BookingID != bookingID {
			return models.NewIntegrityViolation("PAYMENT_BOOKING_MISMATCH", "transaction belongs to another booking")
		}
		next, _ := current.Settle(models.PaymentStatusFailed, now)
		if next.Status == current.Status {
			return nil
		}
		return r.payments.Update(ctx, next)
	})
	if err != nil {
		return false, err
	}

	if !duplicate {
		r.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceProviderWebhook).
			SetBooking(bookingID).
			SetTransaction(obj.ID).
			SetEvent(event.ID).
			SetPaymentStatus(obj.Status))
	}
	return duplicate, nil
}

func (r *PaymentReconciler) applyTransfer(ctx context.Context, event *models.ProviderEvent, payoutID int64) (bool, error) {
	obj := event.Data.Object
	duplicate := false
	var transition *models.PayoutTransition

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		dup, err := r.claim(ctx, event)
		if err != nil || dup {
			duplicate = dup
			return err
		}
		transition, err = r.payouts.ApplyTransferEvent(ctx, event.Type, payoutID, obj.ID, obj.FailureMessage)
		return err
	})
	if err != nil || duplicate {
		return duplicate, err
	}

	r.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventTransferUpdated, models.PaymentSourceProviderWebhook).
		SetPayout(payoutID).
		SetTransaction(obj.ID).
		SetEvent(event.ID).
		SetPaymentStatus(string(transition.Payout.Status)))

	if transition.Changed && transition.Payout.Status == models.PayoutStatusFailed {
		r.logger.WithFields(logrus.Fields{
			"payout_id": payoutID,
			"restored":  transition.Compensation.String(),
			"reason":    obj.FailureMessage,
		}).Warn("Payout failed, balance restored")
		r.payouts.NotifyPayoutFailed(ctx, transition.Payout)
	}
	return false, nil
}

func (r *PaymentReconciler) updateAccount(ctx context.Context, event *models.ProviderEvent) (bool, error) {
	obj := event.Data.Object
	duplicate := false

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		dup, err := r.claim(ctx, event)
		if err != nil || dup {
			duplicate = dup
			return err
		}

		hostID, err := r.resolveAccountHost(ctx, obj)
		if err != nil {
			return err
		}
		return r.ledger.UpdateAccount(ctx, hostID, obj.ID, obj.PayoutsEnabled)
	})
	return duplicate, err
}

func (r *PaymentReconciler) resolveAccountHost(ctx context.Context, obj models.ProviderObject) (uuid.UUID, error) {
	if raw, ok := obj.MetadataString(models.MetadataHostID); ok {
		hostID, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, models.NewIntegrityViolation("INVALID_METADATA", "HostId is not a valid id")
		}
		return hostID, nil
	}
	if obj.ID == "" {
		return uuid.Nil, models.NewIntegrityViolation("MISSING_METADATA", "account event without HostId or account id")
	}
	ledger, err := r.ledger.GetByAccountID(ctx, obj.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if ledger == nil {
		return uuid.Nil, models.NewIntegrityViolation("ACCOUNT_NOT_FOUND", "no host linked to account "+obj.ID)
	}
	return ledger.HostID, nil
}

// ============================================================================
// REFUNDS
// ============================================================================

// RefundBooking refunds up to amount of the booking's latest succeeded
// payment and takes the host's share of it back from their earnings.
// The host balance may go negative, which blocks payouts until recovered.
func (r *PaymentReconciler) RefundBooking(ctx context.Context, bookingID int64, amount decimal.Decimal) (*RefundResult, error) {
	if !amount.IsPositive() {
		return nil, models.NewValidationError("INVALID_AMOUNT", "refund amount must be greater than zero")
	}

	booking, err := r.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	payments, err := r.payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var payment *models.BookingPayment
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Refundable().IsPositive() {
			payment = &payments[i]
			break
		}
	}
	if payment == nil {
		return nil, models.NewConflictError("NOTHING_TO_REFUND", "booking has no refundable payment")
	}

	capped := decimal.Min(amount, payment.Refundable())
	key := fmt.Sprintf("refund-%d-%s", payment.ID, payment.RefundedAmount.StringFixed(r.minorUnits))
	audit := models.NewPaymentAudit(models.PaymentEventRefundInitiated, models.PaymentSourceBackend).
		SetBooking(bookingID).
		SetTransaction(payment.TransactionID).
		SetIdempotencyKey(key)

	refund, err := r.provider.CreateRefund(ctx, RefundParams{
		TransactionID:  payment.TransactionID,
		Amount:         capped,
		Currency:       payment.Currency,
		IdempotencyKey: key,
		BookingID:      bookingID,
	})
	if err != nil {
		r.logAudit(ctx, audit.SetError(err.Error()))
		return nil, models.NewExternalProviderError("failed to create refund", err)
	}
	r.logAudit(ctx, audit)

	result := &RefundResult{RefundID: refund.ID, PaymentID: payment.ID}
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := r.payments.GetByTransactionIDForUpdate(ctx, payment.TransactionID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("payment %s disappeared during refund", payment.TransactionID)
		}

		next, applied := locked.ApplyRefund(capped, r.now())
		if !applied.IsPositive() {
			result.Amount = decimal.Zero
			result.HostReversed = decimal.Zero
			result.PaymentStatus = string(locked.Status)
			return nil
		}

		reversed := decimal.Zero
		if locked.Credited && locked.Amount.IsPositive() {
			reversed = applied.Mul(locked.CreditedAmount).Div(locked.Amount).Round(r.minorUnits)
			property, err := r.properties.GetProperty(ctx, booking.PropertyID)
			if err != nil {
				return err
			}
			if property == nil {
				return models.ErrPropertyNotFound
			}
			if err := r.ledger.ReverseEarnings(ctx, property.HostID, reversed); err != nil {
				return err
			}
		}
		if err := r.payments.Update(ctx, next); err != nil {
			return err
		}

		result.Amount = applied
		result.HostReversed = reversed
		result.PaymentStatus = string(next.Status)
		return nil
	})
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"refund_id":  refund.ID,
		}).Error("CRITICAL: refund accepted by provider but not recorded")
		return nil, err
	}

	r.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventRefundCompleted, models.PaymentSourceBackend).
		SetBooking(bookingID).
		SetTransaction(payment.TransactionID).
		SetPaymentStatus(result.PaymentStatus).
		SetIdempotencyKey(key))

	r.logger.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"refund_id":     refund.ID,
		"amount":        result.Amount.String(),
		"host_reversed": result.HostReversed.String(),
	}).Info("Booking refunded")

	return result, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func isSettled(status models.PaymentStatus) bool {
	return status == models.PaymentStatusSucceeded || status == models.PaymentStatusRefunded
}

// logAudit writes an audit row; a failing audit write never fails the payment
func (r *PaymentReconciler) logAudit(ctx context.Context, audit *models.PaymentAudit) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Log(ctx, audit); err != nil {
		r.logger.WithError(err).WithField("event_type", audit.EventType).Error("Failed to write payment audit")
	}
}

func (r *PaymentReconciler) notify(ctx context.Context, userID uuid.UUID, template string, bookingID int64) {
	if r.notifier == nil {
		return
	}
	msg := notify.Message{
		UserID:   userID,
		Template: template,
		Data:     map[string]string{"booking_id": fmt.Sprint(bookingID)},
	}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		r.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to send notification")
	}
}
