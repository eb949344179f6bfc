package cancellation

import (
	"context"
	"sync"
	"testing"
	"time"

	"transigo/internal/bookings"
	"transigo/internal/inventory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBookingRepository is an in-memory booking ledger with the same guarded
// transition semantics as the database implementation
type MockBookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookings.Booking

	// Runs just before the cancel transition, outside the lock, to let tests
	// interleave a competing writer
	beforeTransition func()
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[uuid.UUID]*bookings.Booking)}
}

func (m *MockBookingRepository) Add(booking *bookings.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *booking
	m.bookings[booking.ID] = &copied
}

func (m *MockBookingRepository) CreateBooking(ctx context.Context, booking *bookings.Booking) error {
	m.Add(booking)
	return nil
}

func (m *MockBookingRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *MockBookingRepository) GetBookingByIdempotencyKey(ctx context.Context, key string) (*bookings.Booking, error) {
	return nil, bookings.ErrBookingNotFound
}

func (m *MockBookingRepository) GetUserBookings(ctx context.Context, userID uuid.UUID, query bookings.BookingListQuery) ([]bookings.Booking, int64, error) {
	return nil, 0, nil
}

func (m *MockBookingRepository) TransitionToCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.beforeTransition != nil {
		m.beforeTransition()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != bookings.StatusActive {
		return false, nil
	}
	now := time.Now()
	booking.Status = bookings.StatusCancelled
	booking.CancelledAt = &now
	return true, nil
}

func (m *MockBookingRepository) MarkSeatReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != bookings.StatusCancelled || booking.SeatReleased {
		return false, nil
	}
	booking.SeatReleased = true
	return true, nil
}

func (m *MockBookingRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != bookings.StatusActive {
		return false, nil
	}
	booking.Status = bookings.StatusCompleted
	return true, nil
}

func (m *MockBookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to bookings.PaymentStatus, whenStatus bookings.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.PaymentStatus != from || booking.Status != whenStatus {
		return false, nil
	}
	booking.PaymentStatus = to
	return true, nil
}

func (m *MockBookingRepository) GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]bookings.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []bookings.Booking
	for _, b := range m.bookings {
		if b.Status == bookings.StatusActive && b.PaymentStatus == bookings.PaymentPending && b.CreatedAt.Before(cutoff) {
			result = append(result, *b)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// MockSeatStore tracks one seat counter per schedule with the capacity clamp
// the database enforces
type MockSeatStore struct {
	mu    sync.Mutex
	seats map[uuid.UUID]*inventory.SeatState
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
	state, ok := m.seats[scheduleID]
	if !ok || state.Version != expectedVersion || state.AvailableSeats <= 0 {
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

// MockCancellationRepository records audit rows in memory
type MockCancellationRepository struct {
	mu      sync.Mutex
	records []Cancellation
}

func NewMockCancellationRepository() *MockCancellationRepository {
	return &MockCancellationRepository{}
}

func (m *MockCancellationRepository) CreateCancellation(ctx context.Context, cancellation *Cancellation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *cancellation)
	return nil
}

func (m *MockCancellationRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]Cancellation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Cancellation
	for _, c := range m.records {
		if c.BookingID == bookingID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCancellationRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type cancelFixture struct {
	service     Service
	bookingRepo *MockBookingRepository
	cancelRepo  *MockCancellationRepository
	store       *MockSeatStore
	scheduleID  uuid.UUID
}

// newCancelFixture seeds one active booking holding one of ten seats
func newCancelFixture(t *testing.T, booking *bookings.Booking) *cancelFixture {
	t.Helper()

	store := NewMockSeatStore()
	store.AddSchedule(booking.ScheduleID, 9, 10)

	bookingRepo := NewMockBookingRepository()
	bookingRepo.Add(booking)

	cancelRepo := NewMockCancellationRepository()

	return &cancelFixture{
		service:     NewService(cancelRepo, bookingRepo, store),
		bookingRepo: bookingRepo,
		cancelRepo:  cancelRepo,
		store:       store,
		scheduleID:  booking.ScheduleID,
	}
}

func activeBooking(userID uuid.UUID) *bookings.Booking {
	return &bookings.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		RouteID:       uuid.New(),
		ScheduleID:    uuid.New(),
		Status:        bookings.StatusActive,
		PaymentStatus: bookings.PaymentPending,
		BookingRef:    "TRB-20260302-ABCDEF",
		CreatedAt:     time.Now(),
	}
}

func TestCancel_ActiveBooking(t *testing.T) {
	booking := activeBooking(uuid.New())
	f := newCancelFixture(t, booking)

	updated, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "change of plans")
	require.NoError(t, err)

	assert.Equal(t, bookings.StatusCancelled, updated.Status)
	assert.NotNil(t, updated.CancelledAt)
	assert.True(t, updated.SeatReleased)

	// The seat went back to inventory
	assert.Equal(t, 10, f.store.Available(f.scheduleID))

	// One audit row, attributed to the user
	records, err := f.service.GetBookingCancellations(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ActorUser, records[0].RequestedBy)
	assert.Equal(t, "change of plans", records[0].Reason)
}

func TestCancel_PaidBookingIsRefunded(t *testing.T) {
	booking := activeBooking(uuid.New())
	booking.PaymentStatus = bookings.PaymentPaid
	f := newCancelFixture(t, booking)

	updated, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "")
	require.NoError(t, err)

	assert.Equal(t, bookings.StatusCancelled, updated.Status)
	assert.Equal(t, bookings.PaymentRefunded, updated.PaymentStatus)
}

func TestCancel_AlreadyCancelledIsNoOp(t *testing.T) {
	booking := activeBooking(uuid.New())
	f := newCancelFixture(t, booking)

	_, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "first")
	require.NoError(t, err)

	updated, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "second")
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, updated.Status)

	// The seat was released exactly once and no second audit row exists
	assert.Equal(t, 10, f.store.Available(f.scheduleID))
	assert.Equal(t, 1, f.cancelRepo.Count())

	// A further release would be clamped at capacity
	released, err := f.store.Release(context.Background(), f.scheduleID)
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, 10, f.store.Available(f.scheduleID))
}

func TestCancel_CompletedBookingRejected(t *testing.T) {
	booking := activeBooking(uuid.New())
	booking.Status = bookings.StatusCompleted
	f := newCancelFixture(t, booking)

	_, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "")
	assert.ErrorIs(t, err, bookings.ErrInvalidState)

	// No release happened
	assert.Equal(t, 9, f.store.Available(f.scheduleID))
}

// A completion that lands between Cancel's snapshot read and its status flip
// must keep the seat: the booking stays completed and nothing is released.
func TestCancel_LosesRaceToCompletion(t *testing.T) {
	booking := activeBooking(uuid.New())
	f := newCancelFixture(t, booking)

	f.bookingRepo.beforeTransition = func() {
		won, err := f.bookingRepo.MarkCompleted(context.Background(), booking.ID)
		require.NoError(t, err)
		require.True(t, won)
	}

	_, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "too late")
	assert.ErrorIs(t, err, bookings.ErrInvalidState)

	// The completed booking keeps its claim: no release, no flag flip,
	// no audit row
	assert.Equal(t, 9, f.store.Available(f.scheduleID))
	completed, err := f.bookingRepo.GetBookingByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCompleted, completed.Status)
	assert.False(t, completed.SeatReleased)
	assert.Equal(t, 0, f.cancelRepo.Count())
}

func TestCancel_UnknownBooking(t *testing.T) {
	f := newCancelFixture(t, activeBooking(uuid.New()))

	_, err := f.service.Cancel(context.Background(), uuid.New(), ActorUser, "")
	assert.ErrorIs(t, err, bookings.ErrBookingNotFound)
}

// A cancel that crashed between the status flip and the seat release leaves
// a cancelled booking with seat_released = false. Retrying the cancel must
// finish the release.
func TestCancel_CompletesInterruptedRelease(t *testing.T) {
	booking := activeBooking(uuid.New())
	now := time.Now()
	booking.Status = bookings.StatusCancelled
	booking.CancelledAt = &now
	booking.SeatReleased = false
	f := newCancelFixture(t, booking)

	updated, err := f.service.Cancel(context.Background(), booking.ID, ActorUser, "")
	require.NoError(t, err)

	assert.True(t, updated.SeatReleased)
	assert.Equal(t, 10, f.store.Available(f.scheduleID))

	// The status flip was not won this time, so no new audit row
	assert.Equal(t, 0, f.cancelRepo.Count())
}

func TestCancelForUser_OwnershipEnforced(t *testing.T) {
	owner := uuid.New()
	booking := activeBooking(owner)
	f := newCancelFixture(t, booking)

	_, err := f.service.CancelForUser(context.Background(), booking.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := f.service.CancelForUser(context.Background(), booking.ID, owner, "")
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, updated.Status)
}

func TestSweepOnce_CancelsOverduePendingBookings(t *testing.T) {
	overdue := activeBooking(uuid.New())
	overdue.CreatedAt = time.Now().Add(-30 * time.Minute)
	f := newCancelFixture(t, overdue)

	fresh := activeBooking(uuid.New())
	fresh.ScheduleID = overdue.ScheduleID
	f.bookingRepo.Add(fresh)

	paid := activeBooking(uuid.New())
	paid.ScheduleID = overdue.ScheduleID
	paid.PaymentStatus = bookings.PaymentPaid
	paid.CreatedAt = time.Now().Add(-30 * time.Minute)
	f.bookingRepo.Add(paid)

	sweeper := NewJobProcessor(f.service, f.bookingRepo, &JobConfig{
		SweepInterval:     time.Minute,
		PendingPaymentTTL: 15 * time.Minute,
		BatchSize:         100,
	})

	sweeper.SweepOnce(context.Background())

	// Only the overdue pending booking was cancelled
	cancelled, err := f.bookingRepo.GetBookingByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, cancelled.Status)
	assert.True(t, cancelled.SeatReleased)

	untouched, err := f.bookingRepo.GetBookingByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusActive, untouched.Status)

	stillPaid, err := f.bookingRepo.GetBookingByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusActive, stillPaid.Status)

	// The audit row names the sweeper
	records, err := f.service.GetBookingCancellations(context.Background(), overdue.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ActorExpiry, records[0].RequestedBy)
}
