package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/appointment-booking/internal/ledger"
)

// releaseTimeout bounds a slot release that must outlive the request
// context: once the cancellation or the failed create is durable, the
// ledger has to be put right even if the caller has disconnected.
const releaseTimeout = 5 * time.Second

// Service orchestrates the slot ledger and the appointment store to
// implement booking and cancellation.
type Service struct {
	store     Store
	directory Directory
	ledger    ledger.Ledger
	logger    *zap.Logger
}

func NewService(store Store, directory Directory, slots ledger.Ledger, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		ledger:    slots,
		logger:    logger,
	}
}

// Book reserves the slot before creating the appointment record, so an
// appointment can never exist for a slot that is not reserved. If the record
// cannot be created the reservation is compensated by releasing the slot.
func (s *Service) Book(ctx context.Context, userID, providerID uuid.UUID, slotDate, slotTime string) (*Appointment, error) {
	provider, err := s.directory.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if !provider.Available {
		return nil, ErrProviderUnavailable
	}

	if err := s.ledger.Reserve(ctx, providerID, slotDate, slotTime); err != nil {
		if errors.Is(err, ledger.ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	appt, err := s.store.Create(ctx, userID, providerID, slotDate, slotTime, provider.Fee)
	if err != nil {
		// The two stores are not transactional against each other, so put
		// the ledger back the way we found it. The request context may
		// already be dead; the release must not be.
		relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer relCancel()
		if relErr := s.ledger.Release(relCtx, providerID, slotDate, slotTime); relErr != nil {
			s.logger.Error("failed to release slot after create failure",
				zap.String("provider_id", providerID.String()),
				zap.String("slot_date", slotDate),
				zap.String("slot_time", slotTime),
				zap.Error(relErr),
			)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.String("slot_date", slotDate),
		zap.String("slot_time", slotTime),
		zap.Int64("fee", appt.Fee),
	)

	return appt, nil
}

// Cancel records the cancellation first and only then releases the slot:
// cancellation is the authoritative event, the release is its side effect.
// A missing reservation on release is absorbed.
func (s *Service) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Cancel(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	// The cancellation is durable at this point. Release on a detached
	// context so a client disconnect cannot strand the reservation.
	relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer relCancel()
	if err := s.ledger.Release(relCtx, appt.ProviderID, appt.SlotDate, appt.SlotTime); err != nil {
		if !errors.Is(err, ledger.ErrSlotNotReserved) {
			s.logger.Error("failed to release slot for cancelled appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("user_id", requesterID.String()),
	)

	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	return s.store.ListByUser(ctx, userID)
}
