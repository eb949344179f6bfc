package catalog

import (
	"time"
)

// RouteListQuery filters the route browse endpoint
type RouteListQuery struct {
	TransitTypeID string `form:"transit_type" binding:"omitempty,uuid"`
	Origin        string `form:"origin" binding:"omitempty,max=255"`
	Destination   string `form:"destination" binding:"omitempty,max=255"`
}

// RouteResponse is the client-facing route shape
type RouteResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Origin          string            `json:"origin"`
	Destination     string            `json:"destination"`
	DurationMinutes int               `json:"duration_minutes"`
	PriceDA         float64           `json:"price_da"`
	Active          bool              `json:"active"`
	TransitType     *TransitTypeInfo  `json:"transit_type,omitempty"`
}

// TransitTypeInfo carries the rendering hints clients use for route badges
type TransitTypeInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// ScheduleResponse is the client-facing schedule shape, including the live
// seat count read at response time
type ScheduleResponse struct {
	ID             string    `json:"id"`
	RouteID        string    `json:"route_id"`
	DepartureTime  string    `json:"departure_time"`
	ArrivalTime    string    `json:"arrival_time"`
	DaysOfWeek     []int     `json:"days_of_week"`
	Capacity       int       `json:"capacity"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse converts a Route model to its response shape
func (r *Route) ToResponse() RouteResponse {
	resp := RouteResponse{
		ID:              r.ID.String(),
		Name:            r.Name,
		Origin:          r.Origin,
		Destination:     r.Destination,
		DurationMinutes: r.DurationMinutes,
		PriceDA:         r.PriceDA,
		Active:          r.Active,
	}
	if r.TransitType != nil {
		resp.TransitType = &TransitTypeInfo{
			ID:    r.TransitType.ID.String(),
			Name:  r.TransitType.Name,
			Icon:  r.TransitType.Icon,
			Color: r.TransitType.Color,
		}
	}
	return resp
}

// ToResponse converts a Schedule model to its response shape
func (s *Schedule) ToResponse() ScheduleResponse {
	return ScheduleResponse{
		ID:             s.ID.String(),
		RouteID:        s.RouteID.String(),
		DepartureTime:  s.DepartureTime,
		ArrivalTime:    s.ArrivalTime,
		DaysOfWeek:     s.DaysOfWeek.Days(),
		Capacity:       s.Capacity,
		AvailableSeats: s.AvailableSeats,
		CreatedAt:      s.CreatedAt,
	}
}
