package cancellation

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who triggered a cancellation
type Actor string

const (
	ActorUser             Actor = "user"
	ActorPaymentAuthority Actor = "payment_authority"
	ActorExpiry           Actor = "expiry"
)

// Cancellation is the audit record of one booking cancellation. Bookings are
// never hard-deleted; this row plus the booking's cancelled status preserve
// the trail.
type Cancellation struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID   uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	RequestedBy Actor     `gorm:"type:varchar(30);not null" json:"requested_by"`
	Reason      string    `gorm:"size:500" json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName sets the table name for Cancellation
func (Cancellation) TableName() string {
	return "cancellations"
}

// CancelRequest is the optional request body for a cancel call
type CancelRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}
