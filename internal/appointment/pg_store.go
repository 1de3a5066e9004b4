package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store and Directory on Postgres. Lifecycle and payment
// transitions are conditional UPDATEs, so the row itself is the serialization
// point and no two callers can both observe the same transition.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.Fee,
		&p.Available,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ProviderID,
		&a.SlotDate,
		&a.SlotTime,
		&a.Fee,
		&a.Cancelled,
		&a.Paid,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (s *PgStore) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, specialty, fee, available, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (s *PgStore) Create(ctx context.Context, userID, providerID uuid.UUID, slotDate, slotTime string, fee int64) (*Appointment, error) {
	id := uuid.New()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, false, now(), now())
		RETURNING id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at
	`, id, userID, providerID, slotDate, slotTime, fee)

	return scanAppointment(row)
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at
		FROM appointments
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET cancelled = true,
		    updated_at = now()
		WHERE id = $1
		  AND user_id = $2
		  AND cancelled = false
		RETURNING id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at
	`, id, requesterID)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, s.classifyCancelMiss(ctx, id, requesterID)
	}
	return appt, err
}

// classifyCancelMiss reloads the row to explain why the conditional cancel
// matched nothing.
func (s *PgStore) classifyCancelMiss(ctx context.Context, id, requesterID uuid.UUID) error {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.UserID != requesterID {
		return ErrNotOwner
	}
	return ErrAlreadyCancelled
}

func (s *PgStore) MarkPaid(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET paid = true,
		    updated_at = now()
		WHERE id = $1
		  AND paid = false
		  AND cancelled = false
		RETURNING id, user_id, provider_id, slot_date, slot_time, fee, cancelled, paid, created_at, updated_at
	`, id)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, s.classifyMarkPaidMiss(ctx, id)
	}
	return appt, err
}

func (s *PgStore) classifyMarkPaidMiss(ctx context.Context, id uuid.UUID) error {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.Cancelled {
		return ErrCancelled
	}
	return ErrAlreadyPaid
}
