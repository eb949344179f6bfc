package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Booking event types published on the booking events topic
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// Payment verdicts consumed from the payment authority
const (
	VerdictPaid   = "paid"
	VerdictFailed = "failed"
)

// BookingEvent is the envelope published for booking lifecycle changes.
// The payment authority keys its verdicts off BookingID.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	BookingRef string    `json:"booking_ref"`
	UserID     uuid.UUID `json:"user_id"`
	RouteID    uuid.UUID `json:"route_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	PriceDA    float64   `json:"price_da"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentEvent is the payment authority's verdict for a booking. Verdicts
// arrive over Kafka, so validation happens explicitly on consume rather than
// through request binding.
type PaymentEvent struct {
	BookingID  uuid.UUID `json:"booking_id" validate:"required"`
	Status     string    `json:"status" validate:"required,oneof=paid failed"`
	Reason     string    `json:"reason,omitempty" validate:"omitempty,max=500"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *PaymentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
