package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/middleware"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupRouter returns a test router that authenticates every request as user
func setupRouter(t *testing.T, user *middleware.UserContext) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	router := gin.New()
	if user != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.UserContextKey, *user)
			c.Next()
		})
	}
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["code"]
}

// ============================================================================
// STUBS
// ============================================================================

type stubBookings struct {
	create        func(in services.CreateBookingInput) (*models.Booking, error)
	get           func(id int64, actor services.Actor) (*models.BookingDetail, error)
	cancel        func(id int64, guestID uuid.UUID) (*services.CancellationResult, error)
	confirmByHost func(id int64, hostID uuid.UUID) (*models.Booking, error)
}

func (s *stubBookings) Quote(_ context.Context, req services.QuoteRequest) (*services.QuoteBreakdown, error) {
	return &services.QuoteBreakdown{Nights: models.NightsBetween(req.Start, req.End)}, nil
}

func (s *stubBookings) Create(_ context.Context, in services.CreateBookingInput) (*models.Booking, error) {
	return s.create(in)
}

func (s *stubBookings) Update(context.Context, services.UpdateBookingInput) (*models.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookings) Cancel(_ context.Context, id int64, guestID uuid.UUID) (*services.CancellationResult, error) {
	return s.cancel(id, guestID)
}

func (s *stubBookings) Get(_ context.Context, id int64, actor services.Actor) (*models.BookingDetail, error) {
	return s.get(id, actor)
}

func (s *stubBookings) ListForGuest(context.Context, uuid.UUID, int, int) ([]models.Booking, error) {
	return []models.Booking{}, nil
}

func (s *stubBookings) ListForHost(context.Context, uuid.UUID, int, int) ([]models.Booking, error) {
	return []models.Booking{}, nil
}

func (s *stubBookings) ReviewEligibility(context.Context, int64, uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubBookings) ConfirmByHost(_ context.Context, id int64, hostID uuid.UUID) (*models.Booking, error) {
	return s.confirmByHost(id, hostID)
}

func (s *stubBookings) Deny(context.Context, int64, uuid.UUID) (*models.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookings) CancelByHost(context.Context, int64, uuid.UUID) (*services.CancellationResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookings) CheckIn(context.Context, int64, uuid.UUID) (*models.Booking, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBookings) CheckOut(context.Context, int64, uuid.UUID) (*models.Booking, error) {
	return nil, errors.New("not implemented")
}

type stubPayments struct {
	webhook   func(payload []byte, signature string) (*services.WebhookResult, error)
	confirmed []string
}

func (s *stubPayments) CreateCheckout(_ context.Context, bookingID int64, _ uuid.UUID, _ services.RequestMeta) (*services.CheckoutSession, error) {
	return &services.CheckoutSession{ID: fmt.Sprintf("cs_%d", bookingID), URL: "https://pay.example.test"}, nil
}

func (s *stubPayments) ConfirmPaymentForGuest(_ context.Context, _ uuid.UUID, bookingID int64, txID string, _ services.RequestMeta) (*services.ConfirmResult, error) {
	s.confirmed = append(s.confirmed, txID)
	return &services.ConfirmResult{BookingStatus: models.BookingStatusConfirmed}, nil
}

func (s *stubPayments) HandleWebhook(_ context.Context, payload []byte, signature string, _ services.RequestMeta) (*services.WebhookResult, error) {
	return s.webhook(payload, signature)
}

func (s *stubPayments) RefundBooking(_ context.Context, _ int64, amount decimal.Decimal) (*services.RefundResult, error) {
	return &services.RefundResult{Amount: amount}, nil
}

type stubPayouts struct {
	requested []decimal.Decimal
	export    []byte
}

func (s *stubPayouts) GetHostBalance(_ context.Context, hostID uuid.UUID) (*models.HostLedger, error) {
	return models.EmptyLedger(hostID), nil
}

func (s *stubPayouts) RequestPayout(_ context.Context, hostID uuid.UUID, amount decimal.Decimal, method models.PayoutMethod) (*models.HostPayout, error) {
	if amount.GreaterThan(decimal.NewFromInt(1000)) {
		return nil, models.ErrInsufficientBalance
	}
	s.requested = append(s.requested, amount)
	return &models.HostPayout{ID: 9, HostID: hostID, Amount: amount, PayoutMethod: method, Status: models.PayoutStatusRequested}, nil
}

func (s *stubPayouts) GetHostPayouts(context.Context, uuid.UUID, int, int) ([]models.HostPayout, error) {
	return []models.HostPayout{}, nil
}

func (s *stubPayouts) GetPayoutDetails(context.Context, int64, services.Actor) (*models.HostPayout, error) {
	return nil, models.ErrPayoutNotFound
}

func (s *stubPayouts) ProcessPayout(context.Context, int64) (*models.HostPayout, error) {
	return nil, models.NewExternalProviderError("failed to create transfer", errors.New("timeout"))
}

func (s *stubPayouts) ExportStatement(_ context.Context, _ uuid.UUID, from, to time.Time) ([]byte, error) {
	if to.Before(from) {
		return nil, models.NewValidationError("INVALID_DATE_RANGE", "end date must not be before start date")
	}
	return s.export, nil
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) LogBookingAction(_ context.Context, _ uuid.UUID, action string, _ int64, _, _ string, _ map[string]interface{}) error {
	r.actions = append(r.actions, action)
	return nil
}

func (r *recordingAudit) LogPayoutAction(_ context.Context, _ uuid.UUID, action string, _ int64, _, _ string, _ map[string]interface{}) error {
	r.actions = append(r.actions, action)
	return errors.New("audit table unavailable")
}

type recordingSecurity struct {
	activities []string
}

func (r *recordingSecurity) LogSuspiciousActivity(_ context.Context, _ *uuid.UUID, activity, _, _ string, _ map[string]interface{}) error {
	r.activities = append(r.activities, activity)
	return nil
}

type stubJobs struct{}

func (stubJobs) RunJob(name string) (int64, error) {
	if name != services.JobCompleteStays {
		return 0, fmt.Errorf("%w: %s", services.ErrUnknownJob, name)
	}
	return 3, nil
}

func (stubJobs) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"job_count": 1}
}

type stubAudits struct{}

func (stubAudits) GetByBookingID(_ context.Context, bookingID int64) ([]*models.PaymentAudit, error) {
	if bookingID != 4 {
		return nil, nil
	}
	audit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceProviderWebhook)
	audit.BookingID = &bookingID
	return []*models.PaymentAudit{audit}, nil
}

func (stubAudits) GetAmountMismatches(_ context.Context, limit int) ([]*models.PaymentAudit, error) {
	return make([]*models.PaymentAudit, 0, limit), nil
}

type stubActivity struct{}

func (stubActivity) GetRecentEvents(_ context.Context, _ uuid.UUID, _ int) ([]services.AuditLogEntry, error) {
	return []services.AuditLogEntry{{Action: "booking_create", EntityType: "booking"}}, nil
}

// ============================================================================
// TESTS
// ============================================================================

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", models.NewValidationError("INVALID_DATE_RANGE", "bad"), http.StatusBadRequest, "INVALID_DATE_RANGE"},
		{"authorization", models.ErrNotBookingGuest, http.StatusForbidden, "NOT_BOOKING_OWNER"},
		{"not found", models.ErrBookingNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
		{"conflict", models.ErrRangeNotAvailable, http.StatusConflict, "DATES_NOT_AVAILABLE"},
		{"provider", models.NewExternalProviderError("down", errors.New("eof")), http.StatusBadGateway, ""},
		{"integrity", models.NewIntegrityViolation("UNKNOWN_EVENT_TYPE", "x"), http.StatusInternalServerError, "UNKNOWN_EVENT_TYPE"},
		{"wrapped", fmt.Errorf("create: %w", models.ErrRangeNotAvailable), http.StatusConflict, "DATES_NOT_AVAILABLE"},
		{"plain", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(t, nil)
			router.GET("/err", func(c *gin.Context) { respondError(c, testLogger(), tt.err) })

			w := doJSON(router, http.MethodGet, "/err", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}
}

func TestBookingHandler_Create(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleGuest}}
	audit := &recordingAudit{}
	var got services.CreateBookingInput
	bookings := &stubBookings{create: func(in services.CreateBookingInput) (*models.Booking, error) {
		got = in
		if in.Start.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
			return nil, models.ErrRangeNotAvailable
		}
		return &models.Booking{ID: 5, GuestID: in.GuestID, PropertyID: in.PropertyID, Status: models.BookingStatusPending, TotalAmount: decimal.NewFromInt(390)}, nil
	}}
	h := NewBookingHandler(bookings, audit, testLogger())
	router := setupRouter(t, &user)
	router.POST("/bookings", h.Create)

	w := doJSON(router, http.MethodPost, "/bookings", gin.H{"property_id": 1, "start_date": "2026-03-15", "end_date": "2026-03-17"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, user.UserID, got.GuestID)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), got.End)
	assert.Equal(t, []string{"booking_create"}, audit.actions)

	w = doJSON(router, http.MethodPost, "/bookings", gin.H{"property_id": 1, "start_date": "2026-04-01", "end_date": "2026-04-03"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DATES_NOT_AVAILABLE", errorCode(t, w))

	for _, body := range []gin.H{
		{"property_id": 1, "start_date": "15/03/2026", "end_date": "2026-03-17"},
		{"property_id": 0, "start_date": "2026-03-15", "end_date": "2026-03-17"},
		{"start_date": "2026-03-15"},
	} {
		w = doJSON(router, http.MethodPost, "/bookings", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestBookingHandler_RequiresUser(t *testing.T) {
	h := NewBookingHandler(&stubBookings{}, nil, testLogger())
	router := setupRouter(t, nil)
	router.POST("/bookings", h.Create)

	w := doJSON(router, http.MethodPost, "/bookings", gin.H{"property_id": 1, "start_date": "2026-03-15", "end_date": "2026-03-17"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_Get(t *testing.T) {
	admin := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleAdmin}}
	var actor services.Actor
	bookings := &stubBookings{get: func(id int64, a services.Actor) (*models.BookingDetail, error) {
		actor = a
		if id == 404 {
			return nil, models.ErrBookingNotFound
		}
		return &models.BookingDetail{Booking: models.Booking{ID: id}, Nights: 3}, nil
	}}
	h := NewBookingHandler(bookings, nil, testLogger())
	router := setupRouter(t, &admin)
	router.GET("/bookings/:id", h.Get)

	w := doJSON(router, http.MethodGet, "/bookings/12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, actor.IsAdmin)
	assert.Contains(t, w.Body.String(), `"nights":3`)

	w = doJSON(router, http.MethodGet, "/bookings/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))
}

func TestBookingHandler_CancelAndHostConfirm(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleGuest, middleware.RoleHost}}
	audit := &recordingAudit{}
	bookings := &stubBookings{
		cancel: func(id int64, guestID uuid.UUID) (*services.CancellationResult, error) {
			return &services.CancellationResult{
				Booking: &models.Booking{ID: id, Status: models.BookingStatusCancelled},
				Refund:  services.RefundQuote{Eligible: true, Amount: decimal.NewFromInt(195), Tier: models.PolicyStrict},
			}, nil
		},
		confirmByHost: func(id int64, hostID uuid.UUID) (*models.Booking, error) {
			return nil, models.ErrNotPropertyHost
		},
	}
	h := NewBookingHandler(bookings, audit, testLogger())
	router := setupRouter(t, &user)
	router.DELETE("/bookings/:id", h.Cancel)
	router.POST("/host/bookings/:id/confirm", h.HostConfirm)

	w := doJSON(router, http.MethodDelete, "/bookings/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"195"`)

	w = doJSON(router, http.MethodPost, "/host/bookings/3/confirm", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_PROPERTY_HOST", errorCode(t, w))
	assert.Equal(t, []string{"booking_cancel"}, audit.actions)
}

func TestBookingHandler_Quote(t *testing.T) {
	h := NewBookingHandler(&stubBookings{}, nil, testLogger())
	router := setupRouter(t, nil)
	router.POST("/bookings/quote", h.Quote)

	w := doJSON(router, http.MethodPost, "/bookings/quote", gin.H{"property_id": 1, "start_date": "2026-03-15", "end_date": "2026-03-17"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nights":3`)
}

func TestPaymentHandler_Webhook(t *testing.T) {
	var gotSignature string
	payments := &stubPayments{webhook: func(payload []byte, signature string) (*services.WebhookResult, error) {
		gotSignature = signature
		switch string(payload) {
		case "bad-signature":
			return nil, services.ErrInvalidSignature
		case "db-down":
			return nil, errors.New("failed to record provider event: connection refused")
		case "provider-down":
			return nil, models.NewExternalProviderError("failed to fetch transaction", errors.New("timeout"))
		case "dropped":
			return &services.WebhookResult{EventID: "evt_1", Status: services.WebhookDropped}, nil
		}
		return &services.WebhookResult{EventID: "evt_1", Status: services.WebhookProcessed}, nil
	}}
	security := &recordingSecurity{}
	h := NewPaymentHandler(payments, security, testLogger())
	router := setupRouter(t, nil)
	router.POST("/payments/webhook", h.Webhook)

	tests := []struct {
		body       string
		wantStatus int
	}{
		{"ok", http.StatusOK},
		{"dropped", http.StatusOK},
		{"bad-signature", http.StatusBadRequest},
		{"db-down", http.StatusInternalServerError},
		{"provider-down", http.StatusBadGateway},
		{"", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(tt.body))
			req.Header.Set(services.SignatureHeader, "t=1,v1=abc")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.Equal(t, "t=1,v1=abc", gotSignature)
	assert.Equal(t, []string{"webhook_signature_rejected"}, security.activities)
}

func TestPaymentHandler_ConfirmAndRefund(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleGuest, middleware.RoleAdmin}}
	payments := &stubPayments{}
	h := NewPaymentHandler(payments, nil, testLogger())
	router := setupRouter(t, &user)
	router.POST("/payments/confirm", h.Confirm)
	router.POST("/payments/checkout", h.Checkout)
	router.POST("/admin/bookings/:id/refund", h.Refund)

	w := doJSON(router, http.MethodPost, "/payments/confirm", gin.H{"booking_id": 4, "transaction_id": "tx_1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"tx_1"}, payments.confirmed)

	w = doJSON(router, http.MethodPost, "/payments/confirm", gin.H{"booking_id": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/payments/checkout", gin.H{"booking_id": 4})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "cs_4")

	w = doJSON(router, http.MethodPost, "/admin/bookings/4/refund", gin.H{"amount": "100.50"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"100.5"`)

	w = doJSON(router, http.MethodPost, "/admin/bookings/4/refund", gin.H{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoutHandler_Request(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleHost}}
	payouts := &stubPayouts{}
	audit := &recordingAudit{}
	h := NewPayoutHandler(payouts, audit, testLogger())
	router := setupRouter(t, &user)
	router.POST("/host/payouts", h.Request)

	w := doJSON(router, http.MethodPost, "/host/payouts", gin.H{"amount": "250.00", "payout_method": "bank_transfer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, payouts.requested, 1)
	assert.True(t, payouts.requested[0].Equal(decimal.NewFromInt(250)))
	// a failing audit write does not fail the request
	assert.Equal(t, []string{"payout_request"}, audit.actions)

	w = doJSON(router, http.MethodPost, "/host/payouts", gin.H{"amount": "5000"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", errorCode(t, w))

	for _, body := range []gin.H{
		{"amount": "0"},
		{"amount": "-10"},
		{"amount": "10", "payout_method": "cash"},
		{},
	} {
		w = doJSON(router, http.MethodPost, "/host/payouts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestPayoutHandler_ExportAndProcess(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleHost, middleware.RoleAdmin}}
	payouts := &stubPayouts{export: []byte("PK-xlsx")}
	h := NewPayoutHandler(payouts, nil, testLogger())
	router := setupRouter(t, &user)
	router.GET("/host/payouts/export", h.Export)
	router.GET("/host/payouts/:id", h.Get)
	router.POST("/admin/payouts/:id/process", h.Process)

	w := doJSON(router, http.MethodGet, "/host/payouts/export?from=2026-01-01&to=2026-01-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payouts_2026-01-01_2026-01-31.xlsx")
	assert.Equal(t, "PK-xlsx", w.Body.String())

	w = doJSON(router, http.MethodGet, "/host/payouts/export?from=2026-02-01&to=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/host/payouts/export?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE", errorCode(t, w))

	w = doJSON(router, http.MethodGet, "/host/payouts/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/admin/payouts/7/process", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAdminHandler_RunJob(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleAdmin}}
	h := NewAdminHandler(stubJobs{}, stubAudits{}, stubActivity{}, testLogger())
	router := setupRouter(t, &user)
	router.POST("/admin/jobs/:name/run", h.RunJob)

	w := doJSON(router, http.MethodPost, "/admin/jobs/complete_stays/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"affected":3`)

	w = doJSON(router, http.MethodPost, "/admin/jobs/reindex/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_JOB", errorCode(t, w))
}

func TestAdminHandler_AuditViews(t *testing.T) {
	user := middleware.UserContext{UserID: uuid.New(), Roles: []string{middleware.RoleAdmin}}
	h := NewAdminHandler(stubJobs{}, stubAudits{}, stubActivity{}, testLogger())
	router := setupRouter(t, &user)
	router.GET("/admin/bookings/:id/payment-audits", h.BookingPaymentTrail)
	router.GET("/admin/payments/mismatches", h.AmountMismatches)
	router.GET("/admin/users/:id/activity", h.UserActivity)

	w := doJSON(router, http.MethodGet, "/admin/bookings/4/payment-audits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"event_type":"payment_success"`)

	w = doJSON(router, http.MethodGet, "/admin/bookings/5/payment-audits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"audits":[]`)

	w = doJSON(router, http.MethodGet, "/admin/payments/mismatches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = doJSON(router, http.MethodGet, "/admin/users/"+user.UserID.String()+"/activity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booking_create")

	w = doJSON(router, http.MethodGet, "/admin/users/not-a-uuid/activity", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
