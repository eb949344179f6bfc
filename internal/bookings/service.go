package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"transigo/internal/catalog"
	"transigo/internal/inventory"
	"transigo/pkg/logger"

	"github.com/google/uuid"
)

// CatalogService is the slice of the catalog the engine needs for
// precondition checks and pricing (interface here to keep tests free of the
// catalog implementation)
type CatalogService interface {
	RouteByID(ctx context.Context, id uuid.UUID) (*catalog.Route, error)
	ScheduleByID(ctx context.Context, id uuid.UUID) (*catalog.Schedule, error)
}

// EventPublisher publishes booking lifecycle events. Publishing is best
// effort; a broker outage never fails a reservation.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *Booking) error
}

// Service is the Reservation Engine: it turns a reserve intent into a
// durable, seat-accurate booking row, and owns all concurrency-sensitive
// logic on the claim path.
type Service interface {
	// Service dependency injection
	SetEventPublisher(publisher EventPublisher)

	Reserve(ctx context.Context, userID uuid.UUID, req ReserveRequest) (*ReservationResult, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	ListBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*PaginatedBookings, error)

	// MarkPaid applies the payment authority's "paid" verdict
	MarkPaid(ctx context.Context, bookingID uuid.UUID) error
	// MarkCompleted applies the external trip-completion trigger
	MarkCompleted(ctx context.Context, bookingID uuid.UUID) error
}

type service struct {
	repo       Repository
	inv        inventory.Store
	catalog    CatalogService
	publisher  EventPublisher
	maxRetries int
	log        *logger.Logger
}

func NewService(repo Repository, inv inventory.Store, catalogService CatalogService, maxRetries int) Service {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &service{
		repo:       repo,
		inv:        inv,
		catalog:    catalogService,
		maxRetries: maxRetries,
		log:        logger.GetDefault(),
	}
}

// SetEventPublisher injects the booking event publisher dependency
func (s *service) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// Reserve claims one seat on a schedule and records the booking.
//
// The claim uses optimistic concurrency: read the counter and its version,
// attempt a conditional decrement, and retry on version conflict up to the
// configured budget. If the ledger write fails after a successful decrement
// the claimed seat is released before the error is surfaced, so a seat can
// never leak on a partial failure.
func (s *service) Reserve(ctx context.Context, userID uuid.UUID, req ReserveRequest) (*ReservationResult, error) {
	// Step 1: idempotency replay check, before any claim is attempted
	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetBookingByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			if existing.UserID != userID {
				return nil, fmt.Errorf("idempotency key already used by another user: %w", ErrInvalidState)
			}
			return &ReservationResult{Booking: existing, Replayed: true}, nil
		}
		if !errors.Is(err, ErrBookingNotFound) {
			return nil, s.mapStoreError(err, "idempotency lookup failed")
		}
	}

	// Step 2: validate the request against the catalog
	route, schedule, bookingDate, err := s.validateReservation(ctx, req)
	if err != nil {
		return nil, err
	}

	// Step 3: claim a seat through the optimistic decrement loop
	attempts, err := s.claimSeat(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}

	// Step 4: write the ledger row
	bookingRef, err := generateBookingRef()
	if err != nil {
		// The seat is already claimed; give it back before failing
		s.compensate(ctx, schedule.ID, userID, err)
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	booking := &Booking{
		ID:            uuid.New(),
		UserID:        userID,
		RouteID:       route.ID,
		ScheduleID:    schedule.ID,
		BookingDate:   bookingDate,
		Status:        StatusActive,
		PaymentStatus: PaymentPending,
		PriceDA:       route.PriceDA,
		BookingRef:    bookingRef,
	}
	if req.SeatNumber != "" {
		booking.SeatNumber = &req.SeatNumber
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		// Step 5: compensation. The decrement succeeded but the ledger write
		// did not; release the claimed seat before surfacing the error.
		s.compensate(ctx, schedule.ID, userID, err)

		// A unique-key violation here means a concurrent retry with the same
		// idempotency key won the insert race; return its booking instead.
		if req.IdempotencyKey != "" {
			if existing, lookupErr := s.repo.GetBookingByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && existing.UserID == userID {
				return &ReservationResult{Booking: existing, Replayed: true}, nil
			}
		}

		return nil, s.mapStoreError(err, "failed to create booking")
	}

	s.log.LogBookingReserved(ctx, booking.ID.String(), schedule.ID.String(), userID.String(), attempts)

	if s.publisher != nil {
		if err := s.publisher.PublishBookingCreated(ctx, booking); err != nil {
			s.log.ErrorWithContext(ctx, "failed to publish booking created event", err,
				map[string]interface{}{"booking_id": booking.ID.String()})
		}
	}

	return &ReservationResult{Booking: booking}, nil
}

// validateReservation checks the request against the catalog: the route must
// exist and be active, the schedule must belong to it, and the schedule must
// run on the requested date's weekday. The parsed booking date is returned
// alongside the catalog rows.
func (s *service) validateReservation(ctx context.Context, req ReserveRequest) (*catalog.Route, *catalog.Schedule, time.Time, error) {
	routeID, err := uuid.Parse(req.RouteID)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("invalid route id: %w", err)
	}
	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("invalid schedule id: %w", err)
	}
	bookingDate, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("invalid booking date: %w", err)
	}

	route, err := s.catalog.RouteByID(ctx, routeID)
	if err != nil {
		return nil, nil, time.Time{}, s.mapStoreError(err, "route lookup failed")
	}
	if !route.Active {
		return nil, nil, time.Time{}, ErrRouteInactive
	}

	schedule, err := s.catalog.ScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, time.Time{}, s.mapStoreError(err, "schedule lookup failed")
	}
	if schedule.RouteID != route.ID {
		return nil, nil, time.Time{}, ErrScheduleRouteMismatch
	}
	if !schedule.DaysOfWeek.RunsOn(bookingDate.Weekday()) {
		return nil, nil, time.Time{}, ErrScheduleInactiveDay
	}

	return route, schedule, bookingDate, nil
}

// claimSeat runs the optimistic decrement loop and returns the number of
// attempts it took. The loop, not a lock, is the only serialization between
// concurrent callers on the same schedule.
func (s *service) claimSeat(ctx context.Context, scheduleID uuid.UUID) (int, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		state, err := s.inv.GetSeatState(ctx, scheduleID)
		if err != nil {
			if errors.Is(err, inventory.ErrScheduleNotFound) {
				return attempt, catalog.ErrScheduleNotFound
			}
			return attempt, s.mapStoreError(err, "seat state read failed")
		}

		if state.AvailableSeats == 0 {
			return attempt, ErrSeatsExhausted
		}

		ok, err := s.inv.TryDecrement(ctx, scheduleID, state.Version)
		if err != nil {
			return attempt, s.mapStoreError(err, "seat decrement failed")
		}
		if ok {
			return attempt, nil
		}
		// Version conflict: another caller won the race. Re-read and retry.
	}

	return s.maxRetries, ErrContention
}

// compensate releases a claimed seat after a later step failed
func (s *service) compensate(ctx context.Context, scheduleID, userID uuid.UUID, cause error) {
	s.log.LogReserveCompensated(ctx, scheduleID.String(), userID.String(), cause)

	// Use a fresh context: the request deadline may already be exceeded and
	// the release must still go through
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.inv.Release(releaseCtx, scheduleID); err != nil {
		s.log.ErrorWithContext(releaseCtx, "compensating seat release failed", err,
			map[string]interface{}{"schedule_id": scheduleID.String()})
	}
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetBookingByID(ctx, bookingID)
}

func (s *service) ListBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*PaginatedBookings, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	bookings, totalCount, err := s.repo.GetUserBookings(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	responses := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, bookings[i].ToResponse())
	}

	return &PaginatedBookings{
		Bookings:   responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: CalculateTotalPages(totalCount, query.Limit),
	}, nil
}

func (s *service) MarkPaid(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.IsActive() {
		return fmt.Errorf("cannot mark %s booking as paid: %w", booking.Status, ErrInvalidState)
	}

	ok, err := s.repo.UpdatePaymentStatus(ctx, bookingID, PaymentPending, PaymentPaid, StatusActive)
	if err != nil {
		return s.mapStoreError(err, "failed to mark booking paid")
	}
	if !ok {
		// Already paid, or cancelled between the read and the update;
		// either way the verdict must not land now
		return nil
	}

	s.log.LogPaymentVerdict(ctx, bookingID.String(), "paid")
	return nil
}

func (s *service) MarkCompleted(ctx context.Context, bookingID uuid.UUID) error {
	ok, err := s.repo.MarkCompleted(ctx, bookingID)
	if err != nil {
		return s.mapStoreError(err, "failed to complete booking")
	}
	if !ok {
		booking, err := s.repo.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		return fmt.Errorf("cannot complete %s booking: %w", booking.Status, ErrInvalidState)
	}
	return nil
}

// mapStoreError classifies store failures: a missed deadline becomes
// ErrTimeout (caller must re-issue with the same idempotency key), anything
// else is wrapped with context
func (s *service) mapStoreError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	}
	if errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, catalog.ErrRouteNotFound) ||
		errors.Is(err, catalog.ErrScheduleNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// generateBookingRef generates a unique booking reference
func generateBookingRef() (string, error) {
	timestamp := time.Now().Format("20060102")

	// Generate 6 random uppercase letters
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("TRB-%s-%s", timestamp, string(randomPart)), nil
}
