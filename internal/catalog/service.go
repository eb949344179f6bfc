package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transigo/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lookup failures, mapped to NotFound by callers
var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Service exposes the read-only catalog consumed by clients and by the
// reservation engine. Staleness of cached entries is acceptable because the
// seat count is re-validated by the inventory store on every claim.
type Service interface {
	SetCacheService(cacheService cache.Service)

	GetTransitTypes(ctx context.Context) ([]TransitType, error)
	GetRoutes(ctx context.Context, query RouteListQuery) ([]RouteResponse, error)
	GetRoute(ctx context.Context, id uuid.UUID) (*RouteResponse, error)
	GetSchedules(ctx context.Context, routeID uuid.UUID) ([]ScheduleResponse, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleResponse, error)

	// Model lookups for the reservation engine
	RouteByID(ctx context.Context, id uuid.UUID) (*Route, error)
	ScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	catalogTTL   time.Duration
}

func NewService(repo Repository, catalogTTL time.Duration) Service {
	return &service{
		repo:       repo,
		catalogTTL: catalogTTL,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// Cache keys, pattern: transigo:catalog:{entity}:{identifier}
func transitTypesKey() string          { return "transigo:catalog:transit_types" }
func routeKey(id uuid.UUID) string     { return fmt.Sprintf("transigo:catalog:route:%s", id) }
func routesKey(q RouteListQuery) string {
	return fmt.Sprintf("transigo:catalog:routes:%s:%s:%s", q.TransitTypeID, q.Origin, q.Destination)
}

func (s *service) GetTransitTypes(ctx context.Context) ([]TransitType, error) {
	if s.cacheService != nil {
		var cached []TransitType
		err := s.cacheService.GetOrSet(ctx, transitTypesKey(), s.catalogTTL, func() (interface{}, error) {
			return s.repo.GetTransitTypes(ctx)
		}, &cached)
		if err == nil {
			return cached, nil
		}
		// fall through to the repository on cache path failure
	}

	return s.repo.GetTransitTypes(ctx)
}

func (s *service) GetRoutes(ctx context.Context, query RouteListQuery) ([]RouteResponse, error) {
	fetch := func() ([]RouteResponse, error) {
		routes, err := s.repo.GetRoutes(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list routes: %w", err)
		}

		responses := make([]RouteResponse, 0, len(routes))
		for i := range routes {
			responses = append(responses, routes[i].ToResponse())
		}
		return responses, nil
	}

	if s.cacheService != nil {
		var cached []RouteResponse
		err := s.cacheService.GetOrSet(ctx, routesKey(query), s.catalogTTL, func() (interface{}, error) {
			return fetch()
		}, &cached)
		if err == nil {
			return cached, nil
		}
	}

	return fetch()
}

func (s *service) GetRoute(ctx context.Context, id uuid.UUID) (*RouteResponse, error) {
	route, err := s.RouteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := route.ToResponse()
	return &resp, nil
}

func (s *service) GetSchedules(ctx context.Context, routeID uuid.UUID) ([]ScheduleResponse, error) {
	// Validate the route exists first so an unknown id is a 404, not an
	// empty list
	if _, err := s.RouteByID(ctx, routeID); err != nil {
		return nil, err
	}

	schedules, err := s.repo.GetSchedulesByRouteID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	responses := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		responses = append(responses, schedules[i].ToResponse())
	}
	return responses, nil
}

func (s *service) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleResponse, error) {
	schedule, err := s.ScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := schedule.ToResponse()
	return &resp, nil
}

// RouteByID returns the route model. Route metadata is cacheable; the
// reservation engine only reads static fields (active flag, price) from it.
func (s *service) RouteByID(ctx context.Context, id uuid.UUID) (*Route, error) {
	if s.cacheService != nil {
		var cached Route
		err := s.cacheService.GetOrSet(ctx, routeKey(id), s.catalogTTL, func() (interface{}, error) {
			return s.fetchRoute(ctx, id)
		}, &cached)
		if err == nil {
			return &cached, nil
		}
		if errors.Is(err, ErrRouteNotFound) {
			return nil, ErrRouteNotFound
		}
	}

	return s.fetchRoute(ctx, id)
}

// ScheduleByID returns the schedule model. Never cached: the seat counter
// on it must be as fresh as a plain read can be.
func (s *service) ScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	schedule, err := s.repo.GetScheduleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}

func (s *service) fetchRoute(ctx context.Context, id uuid.UUID) (*Route, error) {
	route, err := s.repo.GetRouteByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return route, nil
}
