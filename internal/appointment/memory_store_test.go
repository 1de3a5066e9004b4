package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func mustCreate(t *testing.T, s *MemoryStore, userID uuid.UUID) *Appointment {
	t.Helper()
	appt, err := s.Create(context.Background(), userID, uuid.New(), "2024-07-01", "10:00", 500)
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestMarkPaidConcurrentSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	appt := mustCreate(t, s, uuid.New())

	const callers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, replays := 0, 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MarkPaid(context.Background(), appt.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyPaid):
				replays++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly 1 paid transition, got %d", wins)
	}
	if replays != callers-1 {
		t.Fatalf("expected %d AlreadyPaid, got %d", callers-1, replays)
	}

	got, err := s.GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Paid {
		t.Fatal("appointment should remain paid")
	}
}

func TestMarkPaidCancelledAppointment(t *testing.T) {
	s := NewMemoryStore()
	userID := uuid.New()
	appt := mustCreate(t, s, userID)

	if _, err := s.Cancel(context.Background(), appt.ID, userID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := s.MarkPaid(context.Background(), appt.ID)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	got, _ := s.GetByID(context.Background(), appt.ID)
	if got.Paid {
		t.Fatal("payment must never transition on a cancelled appointment")
	}
}

func TestCancelTwice(t *testing.T) {
	s := NewMemoryStore()
	userID := uuid.New()
	appt := mustCreate(t, s, userID)

	if _, err := s.Cancel(context.Background(), appt.ID, userID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err := s.Cancel(context.Background(), appt.ID, userID)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelByNonOwner(t *testing.T) {
	s := NewMemoryStore()
	appt := mustCreate(t, s, uuid.New())

	_, err := s.Cancel(context.Background(), appt.ID, uuid.New())
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	got, _ := s.GetByID(context.Background(), appt.ID)
	if got.Cancelled {
		t.Fatal("appointment must not be cancelled by a non-owner")
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Cancel(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestListByUserInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	userID := uuid.New()
	ctx := context.Background()

	first, _ := s.Create(ctx, userID, uuid.New(), "2024-07-01", "10:00", 500)
	second, _ := s.Create(ctx, userID, uuid.New(), "2024-07-02", "11:00", 700)
	s.Create(ctx, uuid.New(), uuid.New(), "2024-07-01", "10:00", 300)

	appts, err := s.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].ID != first.ID || appts[1].ID != second.ID {
		t.Fatal("appointments should come back in insertion order")
	}
}
