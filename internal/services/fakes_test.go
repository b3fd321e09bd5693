package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/database"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/pkg/notify"
)

// memStore is an in-memory stand-in for the Postgres schema. Transactions
// are serialized by txMu, which gives the same guarantee as the row locks
// taken by the SQL repositories, and roll back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int64
	properties   map[int64]models.Property
	availability map[int64]map[string]models.PropertyAvailability
	bookings     map[int64]models.Booking
	promotions   map[int64]models.Promotion
	payments     map[string]models.BookingPayment
	ledgers      map[uuid.UUID]models.HostLedger
	payouts      map[int64]models.HostPayout
	events       map[string]models.ProviderEventType
	reviews      map[int64]bool

	// audits are written outside business transactions and never rolled back
	audits []models.PaymentAudit
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		nextID:       100,
		properties:   map[int64]models.Property{},
		availability: map[int64]map[string]models.PropertyAvailability{},
		bookings:     map[int64]models.Booking{},
		promotions:   map[int64]models.Promotion{},
		payments:     map[string]models.BookingPayment{},
		ledgers:      map[uuid.UUID]models.HostLedger{},
		payouts:      map[int64]models.HostPayout{},
		events:       map[string]models.ProviderEventType{},
		reviews:      map[int64]bool{},
	}
}

type memSnapshot struct {
	nextID       int64
	availability map[int64]map[string]models.PropertyAvailability
	bookings     map[int64]models.Booking
	promotions   map[int64]models.Promotion
	payments     map[string]models.BookingPayment
	ledgers      map[uuid.UUID]models.HostLedger
	payouts      map[int64]models.HostPayout
	events       map[string]models.ProviderEventType
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	avail := make(map[int64]map[string]models.PropertyAvailability, len(s.availability))
	for id, rows := range s.availability {
		avail[id] = copyMap(rows)
	}
	return memSnapshot{
		nextID:       s.nextID,
		availability: avail,
		bookings:     copyMap(s.bookings),
		promotions:   copyMap(s.promotions),
		payments:     copyMap(s.payments),
		ledgers:      copyMap(s.ledgers),
		payouts:      copyMap(s.payouts),
		events:       copyMap(s.events),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.availability = snap.availability
	s.bookings = snap.bookings
	s.promotions = snap.promotions
	s.payments = snap.payments
	s.ledgers = snap.ledgers
	s.payouts = snap.payouts
	s.events = snap.events
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// ============================================================================
// STORE ADAPTERS
// ============================================================================

type memTx struct{ s *memStore }

func (m memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type memAvailability struct{ s *memStore }

func (m memAvailability) rows(propertyID int64, start, end time.Time) []models.PropertyAvailability {
	var out []models.PropertyAvailability
	for _, d := range models.DatesInRange(start, end) {
		if row, ok := m.s.availability[propertyID][d.Format(models.DateLayout)]; ok {
			out = append(out, row)
		}
	}
	return out
}

func (m memAvailability) ListRange(_ context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.rows(propertyID, start, end), nil
}

func (m memAvailability) LockRange(ctx context.Context, propertyID int64, start, end time.Time) ([]models.PropertyAvailability, error) {
	if ctx.Value(memTxKey{}) == nil {
		return nil, errors.New("LockRange called outside a transaction")
	}
	return m.ListRange(ctx, propertyID, start, end)
}

func (m memAvailability) SetRange(_ context.Context, propertyID int64, start, end time.Time, available bool, reason *string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, row := range m.rows(propertyID, start, end) {
		row.IsAvailable = available
		row.BlockedReason = reason
		m.s.availability[propertyID][row.Date.Format(models.DateLayout)] = row
		n++
	}
	return n, nil
}

func (m memAvailability) UpsertHorizon(_ context.Context, propertyID int64, start, end time.Time, price decimal.Decimal) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.availability[propertyID] == nil {
		m.s.availability[propertyID] = map[string]models.PropertyAvailability{}
	}
	var n int64
	for _, d := range models.DatesInRange(start, end) {
		key := d.Format(models.DateLayout)
		row, ok := m.s.availability[propertyID][key]
		switch {
		case !ok:
			row = models.PropertyAvailability{PropertyID: propertyID, Date: d, IsAvailable: true, Price: price}
		case row.IsAvailable && !row.Price.Equal(price):
			row.Price = price
		default:
			continue
		}
		m.s.availability[propertyID][key] = row
		n++
	}
	return n, nil
}

func (m memAvailability) TrimAfter(_ context.Context, propertyID int64, after time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for key, row := range m.s.availability[propertyID] {
		if row.Date.After(after) && row.IsAvailable {
			delete(m.s.availability[propertyID], key)
			n++
		}
	}
	return n, nil
}

func (m memAvailability) LastDate(_ context.Context, propertyID int64) (*time.Time, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var last *time.Time
	for _, row := range m.s.availability[propertyID] {
		d := row.Date
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last, nil
}

type memProperties struct{ s *memStore }

func (m memProperties) GetProperty(_ context.Context, id int64) (*models.Property, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.properties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memProperties) ListActive(_ context.Context) ([]models.Property, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Property
	for _, p := range m.s.properties {
		if p.Status == models.PropertyStatusActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBookings struct{ s *memStore }

func (m memBookings) Create(_ context.Context, b *models.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b.ID = m.s.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.s.bookings[b.ID] = *b
	return nil
}

func (m memBookings) Update(_ context.Context, b *models.Booking) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.bookings[b.ID]; !ok {
		return fmt.Errorf("booking %d not found", b.ID)
	}
	m.s.bookings[b.ID] = *b
	return nil
}

func (m memBookings) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m memBookings) GetForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m memBookings) list(keep func(models.Booking) bool, limit, offset int) []models.Booking {
	var out []models.Booking
	for _, b := range m.s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.Booking{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (m memBookings) ListByGuest(_ context.Context, guestID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(b models.Booking) bool { return b.GuestID == guestID }, limit, offset), nil
}

func (m memBookings) ListByHost(_ context.Context, hostID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.list(func(b models.Booking) bool { return m.s.properties[b.PropertyID].HostID == hostID }, limit, offset), nil
}

func (m memBookings) MarkCompleted(_ context.Context, before time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, b := range m.s.bookings {
		if b.Status == models.BookingStatusConfirmed && b.EndDate.Before(before) {
			b.Status = models.BookingStatusCompleted
			m.s.bookings[id] = b
			n++
		}
	}
	return n, nil
}

func (m memBookings) HasReview(_ context.Context, bookingID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.reviews[bookingID], nil
}

type memPromotions struct{ s *memStore }

func (m memPromotions) GetByID(_ context.Context, id int64) (*models.Promotion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.promotions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memPromotions) Redeem(_ context.Context, id int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.promotions[id]
	if !ok || p.UsedCount >= p.MaxUses {
		return false, nil
	}
	p.UsedCount++
	m.s.promotions[id] = p
	return true, nil
}

type memPayments struct{ s *memStore }

func (m memPayments) GetByTransactionID(_ context.Context, transactionID string) (*models.BookingPayment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.payments[transactionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memPayments) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.BookingPayment, error) {
	return m.GetByTransactionID(ctx, transactionID)
}

func (m memPayments) Create(_ context.Context, p *models.BookingPayment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.payments[p.TransactionID]; exists {
		return database.ErrDuplicateKey
	}
	p.ID = m.s.id()
	m.s.payments[p.TransactionID] = *p
	return nil
}

func (m memPayments) Update(_ context.Context, p *models.BookingPayment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.payments[p.TransactionID]; !ok {
		return fmt.Errorf("payment %s not found", p.TransactionID)
	}
	m.s.payments[p.TransactionID] = *p
	return nil
}

func (m memPayments) ListByBooking(_ context.Context, bookingID int64) ([]models.BookingPayment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.BookingPayment
	for _, p := range m.s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memLedger struct{ s *memStore }

func (m memLedger) get(hostID uuid.UUID) models.HostLedger {
	l, ok := m.s.ledgers[hostID]
	if !ok {
		return *models.EmptyLedger(hostID)
	}
	return l
}

func (m memLedger) Get(_ context.Context, hostID uuid.UUID) (*models.HostLedger, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l, ok := m.s.ledgers[hostID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m memLedger) GetByAccountID(_ context.Context, accountID string) (*models.HostLedger, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, l := range m.s.ledgers {
		if l.PayoutAccountID != nil && *l.PayoutAccountID == accountID {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

func (m memLedger) Credit(_ context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l := m.get(hostID)
	l.AvailableBalance = l.AvailableBalance.Add(amount)
	l.TotalEarnings = l.TotalEarnings.Add(amount)
	m.s.ledgers[hostID] = l
	return nil
}

func (m memLedger) Debit(_ context.Context, hostID uuid.UUID, amount decimal.Decimal) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l, ok := m.s.ledgers[hostID]
	if !ok || l.AvailableBalance.LessThan(amount) {
		return false, nil
	}
	l.AvailableBalance = l.AvailableBalance.Sub(amount)
	m.s.ledgers[hostID] = l
	return true, nil
}

func (m memLedger) Restore(_ context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l := m.get(hostID)
	l.AvailableBalance = l.AvailableBalance.Add(amount)
	m.s.ledgers[hostID] = l
	return nil
}

func (m memLedger) ReverseEarnings(_ context.Context, hostID uuid.UUID, amount decimal.Decimal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l := m.get(hostID)
	l.AvailableBalance = l.AvailableBalance.Sub(amount)
	l.TotalEarnings = l.TotalEarnings.Sub(amount)
	m.s.ledgers[hostID] = l
	return nil
}

func (m memLedger) UpdateAccount(_ context.Context, hostID uuid.UUID, accountID string, payoutsEnabled bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l := m.get(hostID)
	l.PayoutAccountID = &accountID
	l.PayoutsEnabled = payoutsEnabled
	m.s.ledgers[hostID] = l
	return nil
}

type memPayouts struct{ s *memStore }

func (m memPayouts) Create(_ context.Context, p *models.HostPayout) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p.ID = m.s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.s.payouts[p.ID] = *p
	return nil
}

func (m memPayouts) Update(_ context.Context, p *models.HostPayout) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.payouts[p.ID]; !ok {
		return fmt.Errorf("payout %d not found", p.ID)
	}
	m.s.payouts[p.ID] = *p
	return nil
}

func (m memPayouts) GetByID(_ context.Context, id int64) (*models.HostPayout, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.payouts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memPayouts) GetForUpdate(ctx context.Context, id int64) (*models.HostPayout, error) {
	return m.GetByID(ctx, id)
}

func (m memPayouts) filter(keep func(models.HostPayout) bool) []models.HostPayout {
	var out []models.HostPayout
	for _, p := range m.s.payouts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memPayouts) ListByHost(_ context.Context, hostID uuid.UUID, limit, offset int) ([]models.HostPayout, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.filter(func(p models.HostPayout) bool { return p.HostID == hostID })
	if offset >= len(out) {
		return []models.HostPayout{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m memPayouts) ListByHostBetween(_ context.Context, hostID uuid.UUID, from, to time.Time) ([]models.HostPayout, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.filter(func(p models.HostPayout) bool {
		return p.HostID == hostID && !p.CreatedAt.Before(from) && p.CreatedAt.Before(to)
	}), nil
}

func (m memPayouts) ListRequested(_ context.Context, limit int) ([]models.HostPayout, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.filter(func(p models.HostPayout) bool { return p.Status == models.PayoutStatusRequested })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memEvents struct{ s *memStore }

func (m memEvents) Record(_ context.Context, eventID string, eventType models.ProviderEventType) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, seen := m.s.events[eventID]; seen {
		return false, nil
	}
	m.s.events[eventID] = eventType
	return true, nil
}

type memAudit struct{ s *memStore }

func (m memAudit) Log(_ context.Context, audit *models.PaymentAudit) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.audits = append(m.s.audits, *audit)
	return nil
}

// ============================================================================
// PROVIDER AND NOTIFIER
// ============================================================================

// fakeProvider serves transactions from memory and records outgoing calls
type fakeProvider struct {
	mu           sync.Mutex
	transactions map[string]*ProviderTransaction
	transfers    []TransferParams
	refunds      []RefundParams
	checkouts    []CheckoutParams
	failWith     error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{transactions: map[string]*ProviderTransaction{}}
}

func (f *fakeProvider) addTransaction(id string, bookingID int64, amount decimal.Decimal, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[id] = &ProviderTransaction{
		ID:                id,
		Amount:            amount,
		Currency:          "usd",
		Status:            status,
		PaymentMethodType: "card",
		Metadata:          map[string]string{models.MetadataBookingID: fmt.Sprint(bookingID)},
	}
}

func (f *fakeProvider) GetTransaction(_ context.Context, transactionID string) (*ProviderTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	txn, ok := f.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("payment provider returned status 404: no such transaction")
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.checkouts = append(f.checkouts, params)
	id := fmt.Sprintf("cs_%d", len(f.checkouts))
	return &CheckoutSession{ID: id, URL: "https://pay.example.test/" + id}, nil
}

func (f *fakeProvider) CreateTransfer(_ context.Context, params TransferParams) (*ProviderTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.transfers = append(f.transfers, params)
	return &ProviderTransfer{ID: fmt.Sprintf("tr_%d", params.PayoutID)}, nil
}

func (f *fakeProvider) CreateRefund(_ context.Context, params RefundParams) (*ProviderRefund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.refunds = append(f.refunds, params)
	return &ProviderRefund{ID: fmt.Sprintf("re_%d", len(f.refunds)), Amount: params.Amount, Status: "succeeded"}, nil
}

// VerifyWebhook accepts any payload unless the signature is "bad"
func (f *fakeProvider) VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	if signature == "bad" {
		return nil, ErrInvalidSignature
	}
	var event models.ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m.Template)
	}
	return out
}

// ============================================================================
// FIXTURE
// ============================================================================

type engine struct {
	store        *memStore
	provider     *fakeProvider
	notifier     *recordingNotifier
	now          time.Time
	availability *AvailabilityService
	bookings     *BookingService
	payouts      *PayoutService
	reconciler   *PaymentReconciler
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newEngine wires every service against one memStore with the clock
// frozen at 2026-03-10 09:00 UTC
func newEngine(platformFee decimal.Decimal) *engine {
	store := newMemStore()
	provider := newFakeProvider()
	notifier := &recordingNotifier{}
	logger := quietLogger()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tx := memTx{store}
	availability := NewAvailabilityService(tx, memAvailability{store}, memProperties{store}, logger)
	availability.now = clock

	payouts := NewPayoutService(tx, memLedger{store}, memPayouts{store}, provider, notifier, logger, "usd", 2)
	payouts.now = clock

	reconciler := NewPaymentReconciler(PaymentReconcilerDeps{
		Tx:                 tx,
		Bookings:           memBookings{store},
		Properties:         memProperties{store},
		Promotions:         memPromotions{store},
		Payments:           memPayments{store},
		Ledger:             memLedger{store},
		Events:             memEvents{store},
		Audit:              memAudit{store},
		Provider:           provider,
		Payouts:            payouts,
		Notifier:           notifier,
		Logger:             logger,
		Currency:           "usd",
		MinorUnits:         2,
		PlatformFeePercent: platformFee,
	})
	reconciler.now = clock

	bookings := NewBookingService(BookingServiceDeps{
		Tx:           tx,
		Bookings:     memBookings{store},
		Properties:   memProperties{store},
		Promotions:   memPromotions{store},
		Payments:     memPayments{store},
		Availability: availability,
		Refunder:     reconciler,
		Notifier:     notifier,
		Logger:       logger,
		MinorUnits:   2,
	})
	bookings.now = clock

	return &engine{
		store:        store,
		provider:     provider,
		notifier:     notifier,
		now:          now,
		availability: availability,
		bookings:     bookings,
		payouts:      payouts,
		reconciler:   reconciler,
	}
}

// day returns the calendar date n days after the frozen clock
func (e *engine) day(n int) time.Time {
	return models.DateOnly(e.now).AddDate(0, 0, n)
}

// addProperty lists a property priced 100 + 20 cleaning + 10 service per
// night and generates its horizon
func (e *engine) addProperty(id int64, hostID uuid.UUID, instant bool, policy string) models.Property {
	p := models.Property{
		ID:            id,
		HostID:        hostID,
		Title:         fmt.Sprintf("Property %d", id),
		Status:        models.PropertyStatusActive,
		PricePerNight: decimal.NewFromInt(100),
		CleaningFee:   decimal.NewFromInt(20),
		ServiceFee:    decimal.NewFromInt(10),
		MinNights:     2,
		MaxNights:     30,
		InstantBook:   instant,
	}
	if policy != "" {
		p.CancellationPolicy = &policy
	}
	e.store.mu.Lock()
	e.store.properties[id] = p
	e.store.mu.Unlock()

	if _, err := e.availability.RefreshHorizon(context.Background(), &p); err != nil {
		panic(err)
	}
	return p
}

func (e *engine) booking(id int64) models.Booking {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.bookings[id]
}

func (e *engine) balance(hostID uuid.UUID) decimal.Decimal {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.ledgers[hostID].AvailableBalance
}

func (e *engine) payout(id int64) models.HostPayout {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.payouts[id]
}

func (e *engine) freeNights(propertyID int64, start, end time.Time) int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	n := 0
	for _, d := range models.DatesInRange(start, end) {
		if row, ok := e.store.availability[propertyID][d.Format(models.DateLayout)]; ok && row.IsAvailable {
			n++
		}
	}
	return n
}

// webhook builds a provider event payload
func webhook(id string, eventType models.ProviderEventType, objectID, status string, metadata map[string]string) []byte {
	return webhookWith(id, eventType, objectID, status, metadata, nil)
}

// webhookWith builds a provider event payload with extra object fields
func webhookWith(id string, eventType models.ProviderEventType, objectID, status string, metadata map[string]string, extra map[string]interface{}) []byte {
	object := map[string]interface{}{
		"id":       objectID,
		"amount":   39000,
		"currency": "usd",
		"status":   status,
		"metadata": metadata,
	}
	for k, v := range extra {
		object[k] = v
	}
	body, _ := json.Marshal(map[string]interface{}{
		"id":      id,
		"type":    eventType,
		"created": 1773133200,
		"data":    map[string]interface{}{"object": object},
	})
	return body
}
