package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockRepository is a map-backed catalog repository
type MockRepository struct {
	transitTypes []TransitType
	routes       map[uuid.UUID]*Route
	schedules    map[uuid.UUID]*Schedule
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		routes:    make(map[uuid.UUID]*Route),
		schedules: make(map[uuid.UUID]*Schedule),
	}
}

func (m *MockRepository) GetTransitTypes(ctx context.Context) ([]TransitType, error) {
	return m.transitTypes, nil
}

func (m *MockRepository) GetRoutes(ctx context.Context, query RouteListQuery) ([]Route, error) {
	var result []Route
	for _, r := range m.routes {
		if !r.Active {
			continue
		}
		if query.Origin != "" && r.Origin != query.Origin {
			continue
		}
		if query.Destination != "" && r.Destination != query.Destination {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *MockRepository) GetRouteByID(ctx context.Context, id uuid.UUID) (*Route, error) {
	route, ok := m.routes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return route, nil
}

func (m *MockRepository) GetSchedulesByRouteID(ctx context.Context, routeID uuid.UUID) ([]Schedule, error) {
	var result []Schedule
	for _, s := range m.schedules {
		if s.RouteID == routeID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *MockRepository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return schedule, nil
}

func seedRoute(repo *MockRepository) *Route {
	route := &Route{
		ID:              uuid.New(),
		TransitTypeID:   uuid.New(),
		Name:            "Algiers - Oran Express",
		Origin:          "Algiers",
		Destination:     "Oran",
		DurationMinutes: 300,
		PriceDA:         1200,
		Active:          true,
	}
	repo.routes[route.ID] = route
	return route
}

func TestRouteByID(t *testing.T) {
	repo := NewMockRepository()
	route := seedRoute(repo)
	svc := NewService(repo, 0)

	got, err := svc.RouteByID(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, route.ID, got.ID)
	assert.Equal(t, float64(1200), got.PriceDA)

	_, err = svc.RouteByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestScheduleByID(t *testing.T) {
	repo := NewMockRepository()
	route := seedRoute(repo)
	schedule := &Schedule{
		ID:             uuid.New(),
		RouteID:        route.ID,
		DepartureTime:  "06:00",
		ArrivalTime:    "11:00",
		DaysOfWeek:     NewWeekdayMask(1, 2, 3),
		Capacity:       50,
		AvailableSeats: 50,
	}
	repo.schedules[schedule.ID] = schedule
	svc := NewService(repo, 0)

	got, err := svc.ScheduleByID(context.Background(), schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.ID, got.ID)

	_, err = svc.ScheduleByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestGetRoutes_Filtering(t *testing.T) {
	repo := NewMockRepository()
	seedRoute(repo)

	inactive := seedRoute(repo)
	inactive.Active = false
	inactive.Origin = "Algiers"

	svc := NewService(repo, 0)

	routes, err := svc.GetRoutes(context.Background(), RouteListQuery{Origin: "Algiers"})
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "Oran", routes[0].Destination)

	routes, err = svc.GetRoutes(context.Background(), RouteListQuery{Origin: "Nowhere"})
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestGetSchedules_UnknownRouteIsNotFound(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, 0)

	_, err := svc.GetSchedules(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRouteNotFound)
}
