package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Core ledger operations
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)

	// Guarded transitions. Each returns whether this call won the
	// transition; a false result means another writer got there first.
	TransitionToCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSeatReleased(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus, whenStatus Status) (bool, error)

	// Expiry sweep support
	GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBooking(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetBookingByIdempotencyKey(ctx context.Context, key string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	// Set defaults
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	baseQuery := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("user_id = ?", userID)

	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	// Most recent first
	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error

	return bookings, totalCount, err
}

// TransitionToCancelled flips an active booking to cancelled. The status
// predicate in the WHERE clause resolves cancel/expiry races: only one
// caller observes rows affected = 1.
func (r *repository) TransitionToCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{
			"status":       StatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkSeatReleased flips the release guard. At most one caller ever sees
// rows affected = 1, which makes the seat release at-most-once even when
// Cancel is retried to completion after a crash. The status predicate keeps
// a lost cancel race from releasing a seat a completed booking still holds.
func (r *repository) MarkSeatReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ? AND seat_released = ?", id, StatusCancelled, false).
		Updates(map[string]interface{}{
			"seat_released": true,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark seat released: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{
			"status":     StatusCompleted,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete booking: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UpdatePaymentStatus moves the payment status from one value to another,
// but only while the booking is in the expected lifecycle status. Without
// the status predicate a paid verdict racing the expiry sweep could land
// "paid" on a booking the sweep just cancelled.
func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus, whenStatus Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND payment_status = ? AND status = ?", id, from, whenStatus).
		Updates(map[string]interface{}{
			"payment_status": to,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) GetExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND created_at < ?",
			StatusActive, PaymentPending, cutoff).
		Order("created_at").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}
