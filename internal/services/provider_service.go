package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/config"
	"github.com/staynest/rental-backend/internal/models"
)

// SignatureHeader carries the webhook signature
const SignatureHeader = "Provider-Signature"

// ErrInvalidSignature is returned for webhook payloads that fail verification
var ErrInvalidSignature = errors.New("invalid webhook signature")

// PaymentProvider is the payment provider's API as consumed by the engine
type PaymentProvider interface {
	GetTransaction(ctx context.Context, transactionID string) (*ProviderTransaction, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreateTransfer(ctx context.Context, params TransferParams) (*ProviderTransfer, error)
	CreateRefund(ctx context.Context, params RefundParams) (*ProviderRefund, error)
	VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error)
}

// ProviderTransaction is a charge as reported by the provider
type ProviderTransaction struct {
	ID                string
	Amount            decimal.Decimal
	Currency          string
	Status            string
	PaymentMethodType string
	Metadata          map[string]string
}

// CheckoutParams describes a hosted checkout for a booking
type CheckoutParams struct {
	BookingID   int64
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// CheckoutSession is a created hosted checkout
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// TransferParams describes a payout transfer to a host account
type TransferParams struct {
	PayoutID    int64
	Amount      decimal.Decimal
	Currency    string
	Destination string
}

// ProviderTransfer is a created transfer
type ProviderTransfer struct {
	ID string
}

// RefundParams describes a refund of a charge
type RefundParams struct {
	TransactionID  string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	BookingID      int64
}

// ProviderRefund is a created refund
type ProviderRefund struct {
	ID     string
	Amount decimal.Decimal
	Status string
}

// ProviderService is the HTTP client of the payment provider's REST API
type ProviderService struct {
	config     *config.PaymentConfig
	minorUnits int32
	requireSig bool
	logger     *logrus.Logger
	client     *http.Client
	now        func() time.Time
}

// NewProviderService creates a new payment provider client. Webhook
// signatures are always verified when requireSignature is set; otherwise
// only when a webhook secret is configured.
func NewProviderService(cfg *config.PaymentConfig, minorUnits int32, requireSignature bool, logger *logrus.Logger) *ProviderService {
	return &ProviderService{
		config:     cfg,
		minorUnits: minorUnits,
		requireSig: requireSignature,
		logger:     logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// IsConfigured returns true if the provider API key is set
func (s *ProviderService) IsConfigured() bool {
	return s.config.APIURL != "" && s.config.SecretKey != ""
}

type transactionResponse struct {
	ID                string            `json:"id"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Status            string            `json:"status"`
	PaymentMethodType string            `json:"payment_method_type"`
	Metadata          map[string]string `json:"metadata"`
}

// GetTransaction looks up a charge by id
func (s *ProviderService) GetTransaction(ctx context.Context, transactionID string) (*ProviderTransaction, error) {
	var resp transactionResponse
	if err := s.do(ctx, http.MethodGet, "/v1/transactions/"+url.PathEscape(transactionID), nil, "", &resp); err != nil {
		return nil, err
	}
	return &ProviderTransaction{
		ID:                resp.ID,
		Amount:            models.MinorToDecimal(resp.Amount, s.minorUnits),
		Currency:          resp.Currency,
		Status:            resp.Status,
		PaymentMethodType: resp.PaymentMethodType,
		Metadata:          resp.Metadata,
	}, nil
}

type checkoutRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateCheckoutSession opens a hosted checkout tagged with the booking id
func (s *ProviderService) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	bookingID := strconv.FormatInt(params.BookingID, 10)
	req := checkoutRequest{
		Amount:      models.DecimalToMinor(params.Amount, s.minorUnits),
		Currency:    params.Currency,
		Description: params.Description,
		SuccessURL:  s.config.SuccessURL,
		CancelURL:   s.config.CancelURL,
		Metadata:    map[string]string{models.MetadataBookingID: bookingID},
	}

	var session CheckoutSession
	if err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", req, "checkout-"+bookingID, &session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("checkout session %s returned no URL", session.ID)
	}
	return &session, nil
}

type transferRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Destination string            `json:"destination"`
	Metadata    map[string]string `json:"metadata"`
}

// CreateTransfer moves a payout to the host's connected account
func (s *ProviderService) CreateTransfer(ctx context.Context, params TransferParams) (*ProviderTransfer, error) {
	payoutID := strconv.FormatInt(params.PayoutID, 10)
	req := transferRequest{
		Amount:      models.DecimalToMinor(params.Amount, s.minorUnits),
		Currency:    params.Currency,
		Destination: params.Destination,
		Metadata:    map[string]string{models.MetadataPayoutID: payoutID},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/transfers", req, "payout-"+payoutID, &resp); err != nil {
		return nil, err
	}
	return &ProviderTransfer{ID: resp.ID}, nil
}

type refundRequest struct {
	TransactionID string            `json:"transaction_id"`
	Amount        int64             `json:"amount"`
	Metadata      map[string]string `json:"metadata"`
}

// CreateRefund refunds part or all of a charge
func (s *ProviderService) CreateRefund(ctx context.Context, params RefundParams) (*ProviderRefund, error) {
	req := refundRequest{
		TransactionID: params.TransactionID,
		Amount:        models.DecimalToMinor(params.Amount, s.minorUnits),
		Metadata:      map[string]string{models.MetadataBookingID: strconv.FormatInt(params.BookingID, 10)},
	}

	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/refunds", req, params.IdempotencyKey, &resp); err != nil {
		return nil, err
	}
	return &ProviderRefund{
		ID:     resp.ID,
		Amount: models.MinorToDecimal(resp.Amount, s.minorUnits),
		Status: resp.Status,
	}, nil
}

// do sends one API call and decodes the JSON answer into out
func (s *ProviderService) do(ctx context.Context, method, path string, body interface{}, idempotencyKey string, out interface{}) error {
	if !s.IsConfigured() {
		return fmt.Errorf("payment provider not configured: missing API URL or secret key")
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	endpoint := strings.TrimRight(s.config.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Error("Failed to call payment provider")
		return fmt.Errorf("failed to call payment provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Payment provider response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// VerifyWebhook checks the signature header and parses the event.
// The header has the form t=<unix seconds>,v1=<hex hmac-sha256 of "t.body">.
func (s *ProviderService) VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	switch {
	case s.config.WebhookSecret != "":
		if err := s.verifySignature(payload, signature); err != nil {
			return nil, err
		}
	case s.requireSig:
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	default:
		s.logger.Warn("Webhook signature not verified: no webhook secret configured")
	}

	var event models.ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("webhook missing required fields")
	}
	return &event, nil
}

func (s *ProviderService) verifySignature(payload []byte, header string) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	tolerance := s.config.WebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	age := s.now().Sub(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := ComputeSignature(s.config.WebhookSecret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ComputeSignature returns the hex HMAC-SHA256 of "timestamp.payload"
func ComputeSignature(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
