package bookings

import (
	"math"
	"time"
)

// BookingResponse is the client-facing booking shape
type BookingResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	RouteID       string     `json:"route_id"`
	ScheduleID    string     `json:"schedule_id"`
	BookingDate   string     `json:"booking_date"`
	SeatNumber    *string    `json:"seat_number,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	PriceDA       float64    `json:"price_da"`
	BookingRef    string     `json:"booking_ref"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// ReservationResult is the outcome of a Reserve call. Replayed is true when
// the idempotency key matched an existing booking and no new claim was made.
type ReservationResult struct {
	Booking  *Booking
	Replayed bool
}

// PaginatedBookings wraps a page of a user's booking history
type PaginatedBookings struct {
	Bookings   []BookingResponse `json:"bookings"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// ToResponse converts a Booking model to its response shape
func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		UserID:        b.UserID.String(),
		RouteID:       b.RouteID.String(),
		ScheduleID:    b.ScheduleID.String(),
		BookingDate:   b.BookingDate.Format("2006-01-02"),
		SeatNumber:    b.SeatNumber,
		Status:        b.Status.String(),
		PaymentStatus: b.PaymentStatus.String(),
		PriceDA:       b.PriceDA,
		BookingRef:    b.BookingRef,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		CancelledAt:   b.CancelledAt,
	}
}

// CalculateTotalPages computes page count for a paginated listing
func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
