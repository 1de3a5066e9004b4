package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store and Directory in process, for tests and local
// development. One mutex guards both transitions, giving the same
// exactly-once semantics as the conditional UPDATEs in PgStore.
type MemoryStore struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]Provider
	appointments map[uuid.UUID]*Appointment
	order        []uuid.UUID // insertion order for stable listings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers:    make(map[uuid.UUID]Provider),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

// PutProvider registers or replaces a provider in the directory.
func (s *MemoryStore) PutProvider(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

func (s *MemoryStore) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Create(ctx context.Context, userID, providerID uuid.UUID, slotDate, slotTime string, fee int64) (*Appointment, error) {
	now := time.Now()
	appt := &Appointment{
		ID:         uuid.New(),
		UserID:     userID,
		ProviderID: providerID,
		SlotDate:   slotDate,
		SlotTime:   slotTime,
		Fee:        fee,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appointments[appt.ID] = appt
	s.order = append(s.order, appt.ID)

	copied := *appt
	return &copied, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *appt
	return &copied, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Appointment
	for _, id := range s.order {
		if appt := s.appointments[id]; appt.UserID == userID {
			result = append(result, *appt)
		}
	}
	return result, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.UserID != requesterID {
		return nil, ErrNotOwner
	}
	if appt.Cancelled {
		return nil, ErrAlreadyCancelled
	}

	appt.Cancelled = true
	appt.UpdatedAt = time.Now()

	copied := *appt
	return &copied, nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.Cancelled {
		return nil, ErrCancelled
	}
	if appt.Paid {
		return nil, ErrAlreadyPaid
	}

	appt.Paid = true
	appt.UpdatedAt = time.Now()

	copied := *appt
	return &copied, nil
}
