package bookings

// ReserveRequest is the caller's intent to claim one seat
type ReserveRequest struct {
	RouteID        string `json:"route_id" binding:"required,uuid"`
	ScheduleID     string `json:"schedule_id" binding:"required,uuid"`
	BookingDate    string `json:"booking_date" binding:"required,datetime=2006-01-02"`
	SeatNumber     string `json:"seat_number" binding:"omitempty,max=10"`
	IdempotencyKey string `json:"idempotency_key" binding:"omitempty,max=64"`
}

// BookingListQuery filters and paginates a user's booking history
type BookingListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=active completed cancelled"`
}
