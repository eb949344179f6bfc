package inventory

import (
	"context"
	"errors"
	"fmt"

	"transigo/internal/catalog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrScheduleNotFound is returned when the schedule row does not exist
var ErrScheduleNotFound = errors.New("schedule not found in inventory")

// SeatState is a point-in-time read of a schedule's seat counter
type SeatState struct {
	AvailableSeats int
	Capacity       int
	Version        int64
}

// Store owns the schedule seat counter. All mutation of available_seats goes
// through TryDecrement and Release; no other code path may write it. The
// conditional UPDATE on (id, version) is the single serialization point, so
// multiple engine instances sharing the database coordinate without any
// in-process lock.
type Store interface {
	GetSeatState(ctx context.Context, scheduleID uuid.UUID) (*SeatState, error)
	// TryDecrement claims one seat if the row still carries expectedVersion
	// and has seats left. Returns false when another caller won the race or
	// the pool is empty; the caller re-reads and decides.
	TryDecrement(ctx context.Context, scheduleID uuid.UUID, expectedVersion int64) (bool, error)
	// Release returns one seat. No version check: a release is always valid,
	// but it is clamped to capacity so a double-release bug cannot push the
	// counter past the pool size. Returns false when the counter was already
	// at capacity.
	Release(ctx context.Context, scheduleID uuid.UUID) (bool, error)
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) GetSeatState(ctx context.Context, scheduleID uuid.UUID) (*SeatState, error) {
	var row struct {
		AvailableSeats int   `gorm:"column:available_seats"`
		Capacity       int   `gorm:"column:capacity"`
		Version        int64 `gorm:"column:version"`
	}

	err := s.db.WithContext(ctx).
		Model(&catalog.Schedule{}).
		Select("available_seats, capacity, version").
		Where("id = ?", scheduleID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to read seat state: %w", err)
	}

	return &SeatState{
		AvailableSeats: row.AvailableSeats,
		Capacity:       row.Capacity,
		Version:        row.Version,
	}, nil
}

func (s *store) TryDecrement(ctx context.Context, scheduleID uuid.UUID, expectedVersion int64) (bool, error) {
	// available_seats > 0 is re-checked inside the UPDATE so the counter can
	// never go negative even if the caller's read was stale
	result := s.db.WithContext(ctx).
		Model(&catalog.Schedule{}).
		Where("id = ? AND version = ? AND available_seats > 0", scheduleID, expectedVersion).
		Updates(map[string]interface{}{
			"available_seats": gorm.Expr("available_seats - 1"),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("seat decrement failed: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (s *store) Release(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&catalog.Schedule{}).
		Where("id = ? AND available_seats < capacity", scheduleID).
		Updates(map[string]interface{}{
			"available_seats": gorm.Expr("available_seats + 1"),
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("seat release failed: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}
