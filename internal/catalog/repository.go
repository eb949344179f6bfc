package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetTransitTypes(ctx context.Context) ([]TransitType, error)
	GetRoutes(ctx context.Context, query RouteListQuery) ([]Route, error)
	GetRouteByID(ctx context.Context, id uuid.UUID) (*Route, error)
	GetSchedulesByRouteID(ctx context.Context, routeID uuid.UUID) ([]Schedule, error)
	GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTransitTypes(ctx context.Context) ([]TransitType, error) {
	var types []TransitType
	err := r.db.WithContext(ctx).
		Order("name").
		Find(&types).Error
	return types, err
}

func (r *repository) GetRoutes(ctx context.Context, query RouteListQuery) ([]Route, error) {
	var routes []Route

	baseQuery := r.db.WithContext(ctx).
		Model(&Route{}).
		Preload("TransitType").
		Where("active = ?", true)

	if query.TransitTypeID != "" {
		if transitTypeID, err := uuid.Parse(query.TransitTypeID); err == nil {
			baseQuery = baseQuery.Where("transit_type_id = ?", transitTypeID)
		}
	}
	if query.Origin != "" {
		baseQuery = baseQuery.Where("origin ILIKE ?", "%"+query.Origin+"%")
	}
	if query.Destination != "" {
		baseQuery = baseQuery.Where("destination ILIKE ?", "%"+query.Destination+"%")
	}

	err := baseQuery.Order("name").Find(&routes).Error
	return routes, err
}

func (r *repository) GetRouteByID(ctx context.Context, id uuid.UUID) (*Route, error) {
	var route Route
	err := r.db.WithContext(ctx).
		Preload("TransitType").
		Where("id = ?", id).
		First(&route).Error
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *repository) GetSchedulesByRouteID(ctx context.Context, routeID uuid.UUID) ([]Schedule, error) {
	var schedules []Schedule
	err := r.db.WithContext(ctx).
		Where("route_id = ?", routeID).
		Order("departure_time").
		Find(&schedules).Error
	return schedules, err
}

func (r *repository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	var schedule Schedule
	err := r.db.WithContext(ctx).
		Preload("Route").
		Preload("Route.TransitType").
		Where("id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}
