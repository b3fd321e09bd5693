package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staynest/rental-backend/internal/config"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(url, webhookSecret string, requireSig bool) *ProviderService {
	cfg := &config.PaymentConfig{
		APIURL:        url,
		SecretKey:     "sk_test",
		WebhookSecret: webhookSecret,
		SuccessURL:    "https://app.example.test/paid",
		CancelURL:     "https://app.example.test/cancelled",
	}
	return NewProviderService(cfg, 2, requireSig, quietLogger())
}

func TestProviderService_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/transactions/tx_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"tx_1","amount":39050,"currency":"usd","status":"succeeded","payment_method_type":"card","metadata":{"BookingId":"42"}}`))
	}))
	defer server.Close()

	txn, err := newTestProvider(server.URL, "", false).GetTransaction(context.Background(), "tx_1")
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("390.50")))
	assert.Equal(t, "succeeded", txn.Status)
	assert.Equal(t, "42", txn.Metadata[models.MetadataBookingID])
}

func TestProviderService_GetTransactionEscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/tx_1%2F..%2Frefunds%3Fall=1", r.URL.EscapedPath())
		assert.Equal(t, "/v1/transactions/tx_1/../refunds?all=1", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"tx_1/../refunds?all=1","amount":100,"currency":"usd","status":"pending"}`))
	}))
	defer server.Close()

	txn, err := newTestProvider(server.URL, "", false).GetTransaction(context.Background(), "tx_1/../refunds?all=1")
	require.NoError(t, err)
	assert.Equal(t, "pending", txn.Status)
}

func TestProviderService_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such transaction"}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL, "", false).GetTransaction(context.Background(), "tx_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestProviderService_NotConfigured(t *testing.T) {
	_, err := newTestProvider("", "", false).GetTransaction(context.Background(), "tx_1")
	assert.Error(t, err)
}

func TestProviderService_CreateTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "payout-7", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req transferRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, int64(20025), req.Amount)
		assert.Equal(t, "acct_1", req.Destination)
		assert.Equal(t, "7", req.Metadata[models.MetadataPayoutID])

		w.Write([]byte(`{"id":"tr_abc"}`))
	}))
	defer server.Close()

	transfer, err := newTestProvider(server.URL, "", false).CreateTransfer(context.Background(), TransferParams{
		PayoutID:    7,
		Amount:      decimal.RequireFromString("200.25"),
		Currency:    "usd",
		Destination: "acct_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_abc", transfer.ID)
}

func TestProviderService_CreateRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refund-5-0.00", r.Header.Get("Idempotency-Key"))
		w.Write([]byte(`{"id":"re_1","amount":10000,"status":"succeeded"}`))
	}))
	defer server.Close()

	refund, err := newTestProvider(server.URL, "", false).CreateRefund(context.Background(), RefundParams{
		TransactionID:  "tx_1",
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "refund-5-0.00",
		BookingID:      42,
	})
	require.NoError(t, err)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(100)))
}

func TestProviderService_CreateCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://app.example.test/paid", req.SuccessURL)
		assert.Equal(t, "42", req.Metadata[models.MetadataBookingID])
		w.Write([]byte(`{"session_id":"cs_1","url":"https://pay.example.test/cs_1"}`))
	}))
	defer server.Close()

	session, err := newTestProvider(server.URL, "", false).CreateCheckoutSession(context.Background(), CheckoutParams{
		BookingID: 42,
		Amount:    decimal.NewFromInt(390),
		Currency:  "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
}

func TestProviderService_VerifyWebhook(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"object":{"id":"tx_1","amount":39000}}}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	tests := []struct {
		name       string
		secret     string
		requireSig bool
		header     string
		wantErr    bool
	}{
		{name: "valid signature", secret: "whsec", header: "t=" + ts + ",v1=" + ComputeSignature("whsec", ts, payload)},
		{name: "second signature matches", secret: "whsec", header: "t=" + ts + ",v1=deadbeef,v1=" + ComputeSignature("whsec", ts, payload)},
		{name: "wrong secret", secret: "whsec", header: "t=" + ts + ",v1=" + ComputeSignature("other", ts, payload), wantErr: true},
		{name: "stale timestamp", secret: "whsec", header: "t=" + strconv.FormatInt(now.Add(-time.Hour).Unix(), 10) + ",v1=" + ComputeSignature("whsec", strconv.FormatInt(now.Add(-time.Hour).Unix(), 10), payload), wantErr: true},
		{name: "malformed header", secret: "whsec", header: "garbage", wantErr: true},
		{name: "required but no secret", requireSig: true, header: "t=" + ts + ",v1=abc", wantErr: true},
		{name: "unverified without secret", header: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestProvider("", tt.secret, tt.requireSig)
			svc.now = func() time.Time { return now }

			event, err := svc.VerifyWebhook(payload, tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "evt_1", event.ID)
			assert.Equal(t, models.EventPaymentSucceeded, event.Type)
			assert.Equal(t, int64(39000), event.Data.Object.Amount)
		})
	}
}

func TestProviderService_VerifyWebhookRejectsIncompleteEvent(t *testing.T) {
	_, err := newTestProvider("", "", false).VerifyWebhook([]byte(`{"type":"payment.succeeded"}`), "")
	assert.Error(t, err)
}
