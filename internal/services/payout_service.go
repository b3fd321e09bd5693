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
	"github.com/xuri/excelize/v2"
)

const dispatchBatchSize = 50

// PayoutService manages host balances and payout requests
type PayoutService struct {
	tx         TxRunner
	ledger     LedgerStore
	payouts    PayoutStore
	provider   PaymentProvider
	notifier   notify.Notifier
	logger     *logrus.Logger
	currency   string
	minorUnits int32
	now        func() time.Time
}

// NewPayoutService creates a new payout service
func NewPayoutService(tx TxRunner, ledger LedgerStore, payouts PayoutStore, provider PaymentProvider, notifier notify.Notifier, logger *logrus.Logger, currency string, minorUnits int32) *PayoutService {
	return &PayoutService{
		tx:         tx,
		ledger:     ledger,
		payouts:    payouts,
		provider:   provider,
		notifier:   notifier,
		logger:     logger,
		currency:   currency,
		minorUnits: minorUnits,
		now:        time.Now,
	}
}

// GetHostBalance returns a host's balances; hosts never credited read as zero
func (s *PayoutService) GetHostBalance(ctx context.Context, hostID uuid.UUID) (*models.HostLedger, error) {
	ledger, err := s.ledger.Get(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return models.EmptyLedger(hostID), nil
	}
	return ledger, nil
}

// RequestPayout debits the available balance and records a Requested payout
func (s *PayoutService) RequestPayout(ctx context.Context, hostID uuid.UUID, amount decimal.Decimal, method models.PayoutMethod) (*models.HostPayout, error) {
	if !amount.IsPositive() {
		return nil, models.NewValidationError("INVALID_AMOUNT", "payout amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(s.minorUnits)) {
		return nil, models.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("payout amount allows at most %d decimals", s.minorUnits))
	}
	if method == "" {
		method = models.PayoutMethodBankTransfer
	}

	payout := &models.HostPayout{
		HostID:       hostID,
		Amount:       amount,
		Status:       models.PayoutStatusRequested,
		PayoutMethod: method,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.ledger.Debit(ctx, hostID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrInsufficientBalance
		}
		return s.payouts.Create(ctx, payout)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payout_id": payout.ID,
		"host_id":   hostID,
		"amount":    amount.String(),
		"method":    method,
	}).Info("Payout requested")

	return payout, nil
}

// GetHostPayouts lists a host's payouts, newest first
func (s *PayoutService) GetHostPayouts(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]models.HostPayout, error) {
	return s.payouts.ListByHost(ctx, hostID, limit, offset)
}

// GetPayoutDetails returns a payout to its host or an admin
func (s *PayoutService) GetPayoutDetails(ctx context.Context, payoutID int64, actor Actor) (*models.HostPayout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, models.ErrPayoutNotFound
	}
	if !actor.IsAdmin && payout.HostID != actor.UserID {
		return nil, models.NewAuthorizationError("NOT_PAYOUT_OWNER", "payout belongs to another host")
	}
	return payout, nil
}

// ProcessPayout sends a Requested payout to the provider as a transfer.
// When the provider call fails the payout stays Requested.
func (s *PayoutService) ProcessPayout(ctx context.Context, payoutID int64) (*models.HostPayout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, models.ErrPayoutNotFound
	}
	if payout.Status != models.PayoutStatusRequested {
		return nil, models.NewConflictError("PAYOUT_NOT_REQUESTED", "only requested payouts can be processed")
	}

	ledger, err := s.ledger.Get(ctx, payout.HostID)
	if err != nil {
		return nil, err
	}
	if ledger == nil || ledger.PayoutAccountID == nil || !ledger.PayoutsEnabled {
		return nil, models.NewConflictError("PAYOUT_ACCOUNT_NOT_READY", "host has no payout-enabled account")
	}

	transfer, err := s.provider.CreateTransfer(ctx, TransferParams{
		PayoutID:    payout.ID,
		Amount:      payout.Amount,
		Currency:    s.currency,
		Destination: *ledger.PayoutAccountID,
	})
	if err != nil {
		s.logger.WithError(err).WithField("payout_id", payout.ID).Error("Failed to create transfer")
		return nil, models.NewExternalProviderError("failed to create transfer", err)
	}

	var result *models.HostPayout
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		transition, err := s.ApplyTransferEvent(ctx, models.EventTransferCreated, payout.ID, transfer.ID, "")
		if err != nil {
			return err
		}
		result = transition.Payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"payout_id":   payout.ID,
		"transfer_id": transfer.ID,
		"status":      result.Status,
	}).Info("Payout transfer created")

	return result, nil
}

// DispatchRequested processes every waiting payout whose host can receive
// transfers. Failures are logged and retried on the next run.
func (s *PayoutService) DispatchRequested(ctx context.Context) (int, error) {
	requested, err := s.payouts.ListRequested(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, payout := range requested {
		if _, err := s.ProcessPayout(ctx, payout.ID); err != nil {
			entry := s.logger.WithError(err).WithField("payout_id", payout.ID)
			if models.IsKind(err, models.KindConflict) {
				entry.Debug("Payout skipped")
			} else {
				entry.Warn("Payout dispatch failed")
			}
			continue
		}
		processed++
	}
	return processed, nil
}

// ApplyTransferEvent moves a payout along its lifecycle. It must run inside
// a transaction: a failed transfer credits the amount back in the same
// transaction. Events that arrive after a terminal state change nothing.
func (s *PayoutService) ApplyTransferEvent(ctx context.Context, eventType models.ProviderEventType, payoutID int64, transferID, reason string) (*models.PayoutTransition, error) {
	payout, err := s.payouts.GetForUpdate(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, models.NewIntegrityViolation("PAYOUT_NOT_FOUND", fmt.Sprintf("no payout %d for transfer event", payoutID))
	}

	now := s.now()
	var transition models.PayoutTransition
	switch eventType {
	case models.EventTransferCreated:
		transition = payout.MarkProcessing(transferID, now)
	case models.EventTransferPaid:
		transition = payout.MarkCompleted(transferID, now)
	case models.EventTransferFailed:
		transition = payout.MarkFailed(transferID, reason, now)
	default:
		return nil, models.NewIntegrityViolation("UNKNOWN_TRANSFER_EVENT", string(eventType))
	}

	if !transition.Changed {
		s.logger.WithFields(logrus.Fields{
			"payout_id":  payoutID,
			"status":     payout.Status,
			"event_type": eventType,
		}).Info("Transfer event ignored: payout already past this state")
		return &transition, nil
	}

	if err := s.payouts.Update(ctx, transition.Payout); err != nil {
		return nil, err
	}
	if transition.Compensation.IsPositive() {
		if err := s.ledger.Restore(ctx, payout.HostID, transition.Compensation); err != nil {
			return nil, err
		}
	}
	return &transition, nil
}

// NotifyPayoutFailed tells the host the transfer bounced and the balance was restored
func (s *PayoutService) NotifyPayoutFailed(ctx context.Context, payout *models.HostPayout) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		UserID:   payout.HostID,
		Template: notify.TemplatePayoutFailed,
		Data: map[string]string{
			"payout_id": strconv.FormatInt(payout.ID, 10),
			"amount":    payout.Amount.StringFixed(s.minorUnits),
		},
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("payout_id", payout.ID).Warn("Failed to send notification")
	}
}

// ExportStatement renders a host's payouts created in [from, to] as an XLSX
// workbook with a Payouts sheet and a Summary sheet
func (s *PayoutService) ExportStatement(ctx context.Context, hostID uuid.UUID, from, to time.Time) ([]byte, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	if to.Before(from) {
		return nil, models.NewValidationError("INVALID_DATE_RANGE", "end date must not be before start date")
	}

	payouts, err := s.payouts.ListByHostBetween(ctx, hostID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	balance, err := s.GetHostBalance(ctx, hostID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Payouts"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to create statement sheet: %w", err)
	}

	headers := []string{"Payout ID", "Requested", "Amount", "Currency", "Method", "Status", "Transfer", "Processed"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	totals := map[models.PayoutStatus]decimal.Decimal{}
	for i, p := range payouts {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.CreatedAt.UTC().Format(time.RFC3339))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.Amount.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), s.currency)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), string(p.PayoutMethod))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(p.Status))
		if p.TransactionID != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), *p.TransactionID)
		}
		if p.ProcessedAt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), p.ProcessedAt.UTC().Format(time.RFC3339))
		}
		totals[p.Status] = totals[p.Status].Add(p.Amount)
	}

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Host", hostID.String()},
		{"From", from.Format(models.DateLayout)},
		{"To", to.Format(models.DateLayout)},
		{"Currency", s.currency},
		{"Payouts", len(payouts)},
		{"Completed", totals[models.PayoutStatusCompleted].InexactFloat64()},
		{"In flight", totals[models.PayoutStatusRequested].Add(totals[models.PayoutStatusProcessing]).InexactFloat64()},
		{"Failed", totals[models.PayoutStatusFailed].InexactFloat64()},
		{"Available balance", balance.AvailableBalance.InexactFloat64()},
		{"Total earnings", balance.TotalEarnings.InexactFloat64()},
	}
	for i, values := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.Bytes(), nil
}
