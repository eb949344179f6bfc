package database

import (
	"transigo/internal/bookings"
	"transigo/internal/cancellation"
	"transigo/internal/catalog"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&catalog.TransitType{},
		&catalog.Route{},
		&catalog.Schedule{},
		&bookings.Booking{},
		&cancellation.Cancellation{},
	)
	if err != nil {
		return err
	}

	return MigrateConstraints(db)
}
