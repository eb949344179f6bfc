package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransitType describes a mode of transport (bus, tram, train...).
// Icons and colors are rendering hints for clients; the core never
// interprets them.
type TransitType struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:100;uniqueIndex"`
	Icon        string    `json:"icon" gorm:"size:50"`
	Color       string    `json:"color" gorm:"size:20"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Route is static route metadata, read-only to the reservation core
type Route struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TransitTypeID   uuid.UUID `json:"transit_type_id" gorm:"type:uuid;index;not null"`
	Name            string    `json:"name" gorm:"not null;size:255"`
	Origin          string    `json:"origin" gorm:"not null;size:255"`
	Destination     string    `json:"destination" gorm:"not null;size:255"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;check:duration_minutes > 0"`
	PriceDA         float64   `json:"price_da" gorm:"not null;check:price_da >= 0"`
	Active          bool      `json:"active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	TransitType *TransitType `json:"transit_type,omitempty" gorm:"foreignKey:TransitTypeID"`
}

// Schedule identifies a recurring departure of a route. AvailableSeats and
// Version are mutated only through the inventory primitives.
type Schedule struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	RouteID        uuid.UUID   `json:"route_id" gorm:"type:uuid;index;not null"`
	DepartureTime  string      `json:"departure_time" gorm:"not null;size:5"` // "HH:MM"
	ArrivalTime    string      `json:"arrival_time" gorm:"not null;size:5"`   // "HH:MM"
	DaysOfWeek     WeekdayMask `json:"days_of_week" gorm:"not null"`
	Capacity       int         `json:"capacity" gorm:"not null;check:capacity > 0"`
	AvailableSeats int         `json:"available_seats" gorm:"not null"`
	Version        int64       `json:"version" gorm:"not null;default:0"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	Route *Route `json:"route,omitempty" gorm:"foreignKey:RouteID"`
}

// TableName sets the table name for TransitType
func (TransitType) TableName() string {
	return "transit_types"
}

// TableName sets the table name for Route
func (Route) TableName() string {
	return "routes"
}

// TableName sets the table name for Schedule
func (Schedule) TableName() string {
	return "schedules"
}

// WeekdayMask packs the weekdays a schedule runs on into a bitmask,
// bit 0 = Sunday through bit 6 = Saturday. Stored as a small integer,
// serialized to JSON as the list of weekday numbers clients expect.
type WeekdayMask int16

// NewWeekdayMask builds a mask from weekday numbers (0 = Sunday)
func NewWeekdayMask(days ...int) WeekdayMask {
	var m WeekdayMask
	for _, d := range days {
		if d >= 0 && d <= 6 {
			m |= 1 << d
		}
	}
	return m
}

// RunsOn reports whether the schedule operates on the given weekday
func (m WeekdayMask) RunsOn(day time.Weekday) bool {
	return m&(1<<int(day)) != 0
}

// Days expands the mask back into weekday numbers
func (m WeekdayMask) Days() []int {
	days := make([]int, 0, 7)
	for d := 0; d <= 6; d++ {
		if m&(1<<d) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// MarshalJSON serializes the mask as a weekday number list
func (m WeekdayMask) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Days())
}

// UnmarshalJSON accepts a weekday number list
func (m *WeekdayMask) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	*m = NewWeekdayMask(days...)
	return nil
}
