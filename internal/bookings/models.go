package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is one user's claim on one seat of one schedule. A row in status
// active or completed corresponds to exactly one successful seat decrement;
// a cancelled row has triggered (or is triggering) exactly one release,
// tracked by SeatReleased. Rows are never hard-deleted.
type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	RouteID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"route_id"`
	ScheduleID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"schedule_id"`
	BookingDate   time.Time     `gorm:"type:date;not null" json:"booking_date"`
	SeatNumber    *string       `gorm:"size:10" json:"seat_number,omitempty"`
	Status        Status        `gorm:"type:varchar(20);check:status IN ('active', 'completed', 'cancelled');default:'active'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);check:payment_status IN ('pending', 'paid', 'refunded');default:'pending'" json:"payment_status"`
	PriceDA       float64       `gorm:"not null" json:"price_da"`
	BookingRef    string        `gorm:"unique;not null" json:"booking_ref"`

	// IdempotencyKey lets a retried Reserve call be recognized as a
	// duplicate instead of claiming a second seat
	IdempotencyKey *string `gorm:"size:64" json:"idempotency_key,omitempty"`

	// SeatReleased guards the cancellation release: flipped exactly once,
	// so retrying Cancel to completion never double-increments the counter
	SeatReleased bool `gorm:"not null;default:false" json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// IsActive reports whether the booking still holds its seat claim
func (b *Booking) IsActive() bool {
	return b.Status == StatusActive
}

// IsCancelled reports whether the booking has been cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}
