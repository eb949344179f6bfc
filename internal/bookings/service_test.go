package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"transigo/internal/catalog"
	"transigo/internal/inventory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCatalogService is a map-backed catalog for reservation tests
type MockCatalogService struct {
	routes    map[uuid.UUID]*catalog.Route
	schedules map[uuid.UUID]*catalog.Schedule
}

func NewMockCatalogService() *MockCatalogService {
	return &MockCatalogService{
		routes:    make(map[uuid.UUID]*catalog.Route),
		schedules: make(map[uuid.UUID]*catalog.Schedule),
	}
}

func (m *MockCatalogService) RouteByID(ctx context.Context, id uuid.UUID) (*catalog.Route, error) {
	route, ok := m.routes[id]
	if !ok {
		return nil, catalog.ErrRouteNotFound
	}
	return route, nil
}

func (m *MockCatalogService) ScheduleByID(ctx context.Context, id uuid.UUID) (*catalog.Schedule, error) {
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, catalog.ErrScheduleNotFound
	}
	return schedule, nil
}

// MockSeatStore is an in-memory seat counter with the same conditional
// update semantics as the database implementation
type MockSeatStore struct {
	mu             sync.Mutex
	seats          map[uuid.UUID]*inventory.SeatState
	forceConflicts int
	decrementErr   error
}

func NewMockSeatStore() *MockSeatStore {
	return &MockSeatStore{seats: make(map[uuid.UUID]*inventory.SeatState)}
}

func (m *MockSeatStore) AddSchedule(id uuid.UUID, available, capacity int) {
	m.seats[id] = &inventory.SeatState{AvailableSeats: available, Capacity: capacity}
}

func (m *MockSeatStore) GetSeatState(ctx context.Context, scheduleID uuid.UUID) (*inventory.SeatState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.seats[scheduleID]
	if !ok {
		return nil, inventory.ErrScheduleNotFound
	}
	copied := *state
	return &copied, nil
}

func (m *MockSeatStore) TryDecrement(ctx context.Context, scheduleID uuid.UUID, expectedVersion int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decrementErr != nil {
		return false, m.decrementErr
	}
	if m.forceConflicts != 0 {
		m.forceConflicts--
		return false, nil
	}
	state, ok := m.seats[scheduleID]
	if !ok {
		return false, nil
	}
	if state.Version != expectedVersion || state.AvailableSeats <= 0 {
		return false, nil
	}
	state.AvailableSeats--
	state.Version++
	return true, nil
}

func (m *MockSeatStore) Release(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.seats[scheduleID]
	if !ok || state.AvailableSeats >= state.Capacity {
		return false, nil
	}
	state.AvailableSeats++
	state.Version++
	return true, nil
}

func (m *MockSeatStore) Available(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[id].AvailableSeats
}

// MockBookingRepository is an in-memory booking ledger. It enforces the
// idempotency key uniqueness the database enforces with a partial index.
type MockBookingRepository struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*Booking
	order     []uuid.UUID
	byKey     map[string]uuid.UUID
	createErr error

	// Runs just before the payment-status update, outside the lock, to let
	// tests interleave a competing writer
	beforeUpdatePayment func()
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[uuid.UUID]*Booking),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (m *MockBookingRepository) CreateBooking(ctx context.Context, booking *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if booking.IdempotencyKey != nil {
		if _, exists := m.byKey[*booking.IdempotencyKey]; exists {
			return fmt.Errorf("duplicate key value violates unique constraint \"uniq_bookings_idempotency_key\"")
		}
		m.byKey[*booking.IdempotencyKey] = booking.ID
	}
	booking.CreatedAt = time.Now()
	copied := *booking
	m.bookings[booking.ID] = &copied
	m.order = append(m.order, booking.ID)
	return nil
}

func (m *MockBookingRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *MockBookingRepository) GetBookingByIdempotencyKey(ctx context.Context, key string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *m.bookings[id]
	return &copied, nil
}

// GetUserBookings walks insertion order backwards, matching the database's
// created_at DESC ordering
func (m *MockBookingRepository) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for i := len(m.order) - 1; i >= 0; i-- {
		b := m.bookings[m.order[i]]
		if b.UserID != userID {
			continue
		}
		if query.Status != "" && string(b.Status) != query.Status {
			continue
		}
		result = append(result, *b)
	}
	return result, int64(len(result)), nil
}

func (m *MockBookingRepository) TransitionToCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != StatusActive {
		return false, nil
	}
	now := time.Now()
	booking.Status = StatusCancelled
	booking.CancelledAt = &now
	return true, nil
}

func (m *MockBookingRepository) MarkSeatReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != StatusCancelled || booking.SeatReleased {
		return false, nil
	}
	booking.SeatReleased = true
	return true, nil
}

func (m *MockBookingRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != StatusActive {
		return false, nil
	}
	booking.Status = StatusCompleted
	return true, nil
}

func (m *MockBookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus, whenStatus Status) (bool, error) {
	if m.beforeUpdatePayment != nil {
		m.beforeUpdatePayment()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.PaymentStatus != from || booking.Status != whenStatus {
		return false, nil
	}
	booking.PaymentStatus = to
	return true, nil
}

func (m *MockBookingRepository) GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for _, b := range m.bookings {
		if b.Status == StatusActive && b.PaymentStatus == PaymentPending && b.CreatedAt.Before(cutoff) {
			result = append(result, *b)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// testFixture wires a service against the in-memory doubles with one active
// route and one schedule that runs on the test date's weekday
type testFixture struct {
	service    Service
	repo       *MockBookingRepository
	store      *MockSeatStore
	cat        *MockCatalogService
	routeID    uuid.UUID
	scheduleID uuid.UUID
	date       string
}

func newTestFixture(t *testing.T, availableSeats, capacity int) *testFixture {
	t.Helper()

	const date = "2026-03-02"
	parsed, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	routeID := uuid.New()
	scheduleID := uuid.New()

	cat := NewMockCatalogService()
	cat.routes[routeID] = &catalog.Route{
		ID:      routeID,
		Name:    "Algiers - Oran Express",
		Active:  true,
		PriceDA: 1200,
	}
	cat.schedules[scheduleID] = &catalog.Schedule{
		ID:         scheduleID,
		RouteID:    routeID,
		DaysOfWeek: catalog.NewWeekdayMask(int(parsed.Weekday())),
		Capacity:   capacity,
	}

	store := NewMockSeatStore()
	store.AddSchedule(scheduleID, availableSeats, capacity)

	repo := NewMockBookingRepository()

	return &testFixture{
		service:    NewService(repo, store, cat, 5),
		repo:       repo,
		store:      store,
		cat:        cat,
		routeID:    routeID,
		scheduleID: scheduleID,
		date:       date,
	}
}

func (f *testFixture) reserveRequest() ReserveRequest {
	return ReserveRequest{
		RouteID:     f.routeID.String(),
		ScheduleID:  f.scheduleID.String(),
		BookingDate: f.date,
	}
}

func TestReserve_Success(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	userID := uuid.New()

	result, err := f.service.Reserve(context.Background(), userID, f.reserveRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Booking)

	assert.False(t, result.Replayed)
	assert.Equal(t, userID, result.Booking.UserID)
	assert.Equal(t, StatusActive, result.Booking.Status)
	assert.Equal(t, PaymentPending, result.Booking.PaymentStatus)
	assert.Equal(t, float64(1200), result.Booking.PriceDA)
	assert.True(t, strings.HasPrefix(result.Booking.BookingRef, "TRB-"))

	assert.Equal(t, 9, f.store.Available(f.scheduleID))

	stored, err := f.repo.GetBookingByID(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Booking.ID, stored.ID)
}

func TestReserve_SeatsExhausted(t *testing.T) {
	f := newTestFixture(t, 0, 10)

	_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	assert.ErrorIs(t, err, ErrSeatsExhausted)
	assert.Equal(t, 0, f.store.Available(f.scheduleID))

	// No ledger row was written
	assert.Empty(t, f.repo.bookings)
}

func TestReserve_ContentionExhaustsRetries(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	// Every decrement loses its version race
	f.store.forceConflicts = -1

	_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 10, f.store.Available(f.scheduleID))
}

func TestReserve_RetriesThroughTransientConflicts(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	f.store.forceConflicts = 3

	result, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, result.Booking.Status)
	assert.Equal(t, 9, f.store.Available(f.scheduleID))
}

func TestReserve_CompensatesWhenLedgerWriteFails(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	f.repo.createErr = errors.New("connection reset by peer")

	_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	require.Error(t, err)

	// The claimed seat must be given back
	assert.Equal(t, 10, f.store.Available(f.scheduleID))
}

func TestReserve_TimeoutClassification(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	f.store.decrementErr = context.DeadlineExceeded

	_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReserve_IdempotencyReplay(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	userID := uuid.New()

	req := f.reserveRequest()
	req.IdempotencyKey = "client-key-001"

	first, err := f.service.Reserve(context.Background(), userID, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.service.Reserve(context.Background(), userID, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)

	// Only one seat was consumed across both calls
	assert.Equal(t, 9, f.store.Available(f.scheduleID))
}

func TestReserve_IdempotencyKeyOwnedByAnotherUser(t *testing.T) {
	f := newTestFixture(t, 10, 10)

	req := f.reserveRequest()
	req.IdempotencyKey = "client-key-002"

	_, err := f.service.Reserve(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	_, err = f.service.Reserve(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReserve_ValidationFailures(t *testing.T) {
	t.Run("unknown route", func(t *testing.T) {
		f := newTestFixture(t, 10, 10)
		req := f.reserveRequest()
		req.RouteID = uuid.New().String()

		_, err := f.service.Reserve(context.Background(), uuid.New(), req)
		assert.ErrorIs(t, err, catalog.ErrRouteNotFound)
	})

	t.Run("inactive route", func(t *testing.T) {
		f := newTestFixture(t, 10, 10)
		f.cat.routes[f.routeID].Active = false

		_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
		assert.ErrorIs(t, err, ErrRouteInactive)
	})

	t.Run("schedule belongs to another route", func(t *testing.T) {
		f := newTestFixture(t, 10, 10)
		f.cat.schedules[f.scheduleID].RouteID = uuid.New()

		_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
		assert.ErrorIs(t, err, ErrScheduleRouteMismatch)
	})

	t.Run("schedule does not run that weekday", func(t *testing.T) {
		f := newTestFixture(t, 10, 10)
		parsed, _ := time.Parse("2006-01-02", f.date)
		otherDay := (int(parsed.Weekday()) + 1) % 7
		f.cat.schedules[f.scheduleID].DaysOfWeek = catalog.NewWeekdayMask(otherDay)

		_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
		assert.ErrorIs(t, err, ErrScheduleInactiveDay)
	})

	t.Run("validation happens before any seat claim", func(t *testing.T) {
		f := newTestFixture(t, 10, 10)
		f.cat.routes[f.routeID].Active = false

		_, _ = f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
		assert.Equal(t, 10, f.store.Available(f.scheduleID))
	})
}

// Concurrent reservations against a small schedule: exactly capacity many
// succeed, everyone else is told the schedule is full, and the counter never
// goes negative.
func TestReserve_ConcurrentClaims(t *testing.T) {
	const capacity = 5
	const callers = 32

	f := newTestFixture(t, capacity, capacity)
	// High retry budget so losers fail on exhaustion, not contention
	f.service = NewService(f.repo, f.store, f.cat, 100)

	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSeatsExhausted)
	}

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, 0, f.store.Available(f.scheduleID))
}

func TestMarkPaid(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	userID := uuid.New()

	result, err := f.service.Reserve(context.Background(), userID, f.reserveRequest())
	require.NoError(t, err)
	id := result.Booking.ID

	require.NoError(t, f.service.MarkPaid(context.Background(), id))

	booking, err := f.repo.GetBookingByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)

	// Applying the verdict twice is a no-op
	assert.NoError(t, f.service.MarkPaid(context.Background(), id))

	// A cancelled booking cannot be marked paid
	_, err = f.repo.TransitionToCancelled(context.Background(), id)
	require.NoError(t, err)
	err = f.service.MarkPaid(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// A paid verdict racing the expiry sweep must not land on a booking the
// sweep just cancelled: the status predicate on the payment update makes
// the verdict a no-op.
func TestMarkPaid_LosesRaceToCancellation(t *testing.T) {
	f := newTestFixture(t, 10, 10)

	result, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	require.NoError(t, err)
	id := result.Booking.ID

	f.repo.beforeUpdatePayment = func() {
		won, err := f.repo.TransitionToCancelled(context.Background(), id)
		require.NoError(t, err)
		require.True(t, won)
	}

	require.NoError(t, f.service.MarkPaid(context.Background(), id))

	booking, err := f.repo.GetBookingByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, booking.Status)
	assert.Equal(t, PaymentPending, booking.PaymentStatus)
}

func TestListBookings_MostRecentFirst(t *testing.T) {
	f := newTestFixture(t, 10, 10)
	userID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		result, err := f.service.Reserve(context.Background(), userID, f.reserveRequest())
		require.NoError(t, err)
		ids = append(ids, result.Booking.ID)
	}

	page, err := f.service.ListBookings(context.Background(), userID, BookingListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 3)

	// Newest booking first
	assert.Equal(t, ids[2].String(), page.Bookings[0].ID)
	assert.Equal(t, ids[1].String(), page.Bookings[1].ID)
	assert.Equal(t, ids[0].String(), page.Bookings[2].ID)
}

func TestMarkCompleted(t *testing.T) {
	f := newTestFixture(t, 10, 10)

	result, err := f.service.Reserve(context.Background(), uuid.New(), f.reserveRequest())
	require.NoError(t, err)
	id := result.Booking.ID

	require.NoError(t, f.service.MarkCompleted(context.Background(), id))

	booking, err := f.repo.GetBookingByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, booking.Status)

	// Completing twice is an invalid transition
	err = f.service.MarkCompleted(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidState)

	err = f.service.MarkCompleted(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
