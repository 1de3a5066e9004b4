package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderUnavailable = errors.New("provider is not available for booking")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotOwner            = errors.New("appointment belongs to a different user")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
	ErrAlreadyPaid         = errors.New("appointment is already paid")
	ErrCancelled           = errors.New("appointment is cancelled")
)

// Directory is the read-only provider lookup consulted at booking time.
type Directory interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
}

// Store owns appointment records. It is the only writer of the Cancelled and
// Paid fields, and both transitions are compare-and-set: under concurrent
// calls for one appointment exactly one caller observes the transition.
type Store interface {
	Create(ctx context.Context, userID, providerID uuid.UUID, slotDate, slotTime string, fee int64) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error)

	// Cancel flips Cancelled exactly once. Returns ErrNotOwner when
	// requesterID does not own the appointment, ErrAlreadyCancelled on a
	// repeat call.
	Cancel(ctx context.Context, id, requesterID uuid.UUID) (*Appointment, error)

	// MarkPaid flips Paid exactly once. Returns ErrAlreadyPaid on a repeat
	// call and ErrCancelled for a cancelled appointment.
	MarkPaid(ctx context.Context, id uuid.UUID) (*Appointment, error)
}
