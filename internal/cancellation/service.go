package cancellation

import (
	"context"
	"errors"
	"fmt"

	"transigo/internal/bookings"
	"transigo/internal/inventory"
	"transigo/pkg/logger"

	"github.com/google/uuid"
)

// ErrNotOwner is returned when a user tries to cancel another user's booking
var ErrNotOwner = errors.New("booking does not belong to user")

// EventPublisher publishes booking lifecycle events (best effort)
type EventPublisher interface {
	PublishBookingCancelled(ctx context.Context, booking *bookings.Booking, actor string) error
}

// Service runs the cancellation/release workflow: flip the booking to
// cancelled, then return its seat to inventory. The two writes are ordered
// status-first and the release is guarded by the booking's seat-released
// flag, so the workflow is safe to retry to completion after a crash
// between them.
type Service interface {
	SetEventPublisher(publisher EventPublisher)

	// Cancel transitions a booking to cancelled and releases its seat.
	// Cancelling an already-cancelled booking is a no-op success that still
	// finishes a previously interrupted release.
	Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason string) (*bookings.Booking, error)

	// CancelForUser is Cancel with an ownership check for the HTTP path
	CancelForUser(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*bookings.Booking, error)

	GetBookingCancellations(ctx context.Context, bookingID uuid.UUID) ([]Cancellation, error)
}

type service struct {
	repo        Repository
	bookingRepo bookings.Repository
	inv         inventory.Store
	publisher   EventPublisher
	log         *logger.Logger
}

func NewService(repo Repository, bookingRepo bookings.Repository, inv inventory.Store) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		inv:         inv,
		log:         logger.GetDefault(),
	}
}

// SetEventPublisher injects the booking event publisher dependency
func (s *service) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

func (s *service) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason string) (*bookings.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == bookings.StatusCompleted {
		return nil, fmt.Errorf("cannot cancel a completed booking: %w", bookings.ErrInvalidState)
	}

	if booking.Status == bookings.StatusActive {
		// Step 1: flip the status. The conditional update resolves races
		// with a concurrent cancel or expiry sweep; only one caller wins.
		won, err := s.bookingRepo.TransitionToCancelled(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		if won {
			// A paid booking that gets cancelled moves to refunded; the
			// refund itself is the payment authority's business
			if booking.PaymentStatus == bookings.PaymentPaid {
				if _, err := s.bookingRepo.UpdatePaymentStatus(ctx, bookingID, bookings.PaymentPaid, bookings.PaymentRefunded, bookings.StatusCancelled); err != nil {
					s.log.ErrorWithContext(ctx, "failed to mark booking refunded", err,
						map[string]interface{}{"booking_id": bookingID.String()})
				}
			}

			cancellation := &Cancellation{
				ID:          uuid.New(),
				BookingID:   bookingID,
				RequestedBy: actor,
				Reason:      reason,
			}
			if err := s.repo.CreateCancellation(ctx, cancellation); err != nil {
				// The booking is cancelled either way; a missing audit row
				// must not block the seat release
				s.log.ErrorWithContext(ctx, "failed to record cancellation", err,
					map[string]interface{}{"booking_id": bookingID.String()})
			}

			s.log.LogBookingCancelled(ctx, bookingID.String(), booking.ScheduleID.String(), string(actor))
		} else {
			// Lost the transition race. Re-read to see who won: a concurrent
			// cancel leaves the booking cancelled and the release below still
			// applies; a concurrent completion keeps the seat claim and must
			// not release it.
			booking, err = s.bookingRepo.GetBookingByID(ctx, bookingID)
			if err != nil {
				return nil, err
			}
			if booking.Status == bookings.StatusCompleted {
				return nil, fmt.Errorf("cannot cancel a completed booking: %w", bookings.ErrInvalidState)
			}
		}
	}

	// Step 2: release the seat, guarded by the seat-released flag. Runs on
	// every call so a cancel retried after a crash between the two writes
	// still completes, and runs at most once per booking overall.
	if err := s.releaseSeat(ctx, booking); err != nil {
		return nil, err
	}

	// Reload so the caller sees the final state
	updated, err := s.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBookingCancelled(ctx, updated, string(actor)); err != nil {
			s.log.ErrorWithContext(ctx, "failed to publish booking cancelled event", err,
				map[string]interface{}{"booking_id": bookingID.String()})
		}
	}

	return updated, nil
}

func (s *service) CancelForUser(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*bookings.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, ErrNotOwner
	}

	return s.Cancel(ctx, bookingID, ActorUser, reason)
}

func (s *service) GetBookingCancellations(ctx context.Context, bookingID uuid.UUID) ([]Cancellation, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}

// releaseSeat performs the guarded increment. The flag flip is the
// at-most-once gate; the inventory increment is additionally clamped to
// capacity as a second line of defense.
func (s *service) releaseSeat(ctx context.Context, booking *bookings.Booking) error {
	won, err := s.bookingRepo.MarkSeatReleased(ctx, booking.ID)
	if err != nil {
		return err
	}
	if !won {
		// This booking already triggered its release
		return nil
	}

	if _, err := s.inv.Release(ctx, booking.ScheduleID); err != nil {
		return fmt.Errorf("seat release failed after cancellation: %w", err)
	}

	s.log.LogSeatReleased(ctx, booking.ID.String(), booking.ScheduleID.String())
	return nil
}
