package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the bookable party. Fee and availability are managed by the
// provider directory; booking only reads a snapshot of them.
type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Fee       int64 // major currency units
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is one booked slot. Fee is copied from the provider at booking
// time so a later fee change never affects an existing appointment.
//
// Cancelled and Paid flip only through Store.Cancel and Store.MarkPaid;
// Paid is monotonic and can never be set once Cancelled.
type Appointment struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ProviderID uuid.UUID
	SlotDate   string // e.g. "2024-07-01"
	SlotTime   string // e.g. "10:00"
	Fee        int64
	Cancelled  bool
	Paid       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
