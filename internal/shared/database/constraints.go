package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// Seat counter must never leave the [0, capacity] range, even if a bug
	// ever bypasses the inventory primitives. ADD CONSTRAINT has no
	// IF NOT EXISTS form, so the guard goes through pg_constraint.
	err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint
				WHERE conname = 'chk_schedules_seat_range'
				  AND conrelid = 'schedules'::regclass
			) THEN
				ALTER TABLE schedules
				ADD CONSTRAINT chk_schedules_seat_range
				CHECK (available_seats >= 0 AND available_seats <= capacity);
			END IF;
		END $$;
	`).Error
	if err != nil {
		return err
	}

	// One booking per idempotency key; NULL keys are exempt
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_bookings_idempotency_key
		ON bookings (idempotency_key)
		WHERE idempotency_key IS NOT NULL;
	`).Error
	if err != nil {
		return err
	}

	// Index for the expiry sweep over pending unpaid bookings
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_pending_expiry
		ON bookings (created_at)
		WHERE status = 'active' AND payment_status = 'pending';
	`).Error
	if err != nil {
		return err
	}

	// Index for user booking history, most recent first
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_user_created
		ON bookings (user_id, created_at DESC);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
