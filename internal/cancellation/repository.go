package cancellation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateCancellation(ctx context.Context, cancellation *Cancellation) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]Cancellation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCancellation(ctx context.Context, cancellation *Cancellation) error {
	return r.db.WithContext(ctx).Create(cancellation).Error
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]Cancellation, error) {
	var cancellations []Cancellation
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&cancellations).Error
	return cancellations, err
}
