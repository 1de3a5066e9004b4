package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/appointment-booking/internal/appointment"
)

// fakeGateway records created intents and answers settlement checks from a
// scripted table.
type fakeGateway struct {
	name      string
	mu        sync.Mutex
	created   []IntentRequest
	settled   map[string]Settlement
	checkErr  error
	createErr error
	nextOrder int
}

func newFakeGateway(name string) *fakeGateway {
	return &fakeGateway{name: name, settled: make(map[string]Settlement)}
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}

	g.created = append(g.created, req)
	g.nextOrder++
	ref := fmt.Sprintf("order_%d", g.nextOrder)
	g.settled[ref] = Settlement{Settled: false, AppointmentID: req.AppointmentID.String()}

	return &Intent{
		AppointmentID: req.AppointmentID,
		Gateway:       g.name,
		Reference:     ref,
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, nil
}

func (g *fakeGateway) CheckSettled(ctx context.Context, ref string) (Settlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkErr != nil {
		return Settlement{}, g.checkErr
	}
	s, ok := g.settled[ref]
	if !ok {
		return Settlement{}, fmt.Errorf("%w: unknown reference %s", ErrGateway, ref)
	}
	return s, nil
}

func (g *fakeGateway) pay(ref string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.settled[ref]
	s.Settled = true
	g.settled[ref] = s
}

func newTestReconciler(t *testing.T) (*Reconciler, *appointment.MemoryStore, *fakeGateway, *appointment.Appointment) {
	t.Helper()

	store := appointment.NewMemoryStore()
	appt, err := store.Create(context.Background(), uuid.New(), uuid.New(), "2024-07-01", "10:00", 500)
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	gw := newFakeGateway(GatewayRazorpay)
	rec := NewReconciler(store, "INR", 5*time.Second, zap.NewNop())
	rec.Register(gw)

	return rec, store, gw, appt
}

func TestCreateIntentAmountAndCurrency(t *testing.T) {
	rec, _, gw, appt := newTestReconciler(t)

	intent, err := rec.CreateIntent(context.Background(), GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	// Fee of 500 becomes 50000 minor units.
	if intent.Amount != 50000 {
		t.Fatalf("amount: got %d, want 50000", intent.Amount)
	}
	if intent.Currency != "INR" {
		t.Fatalf("currency: got %s, want INR", intent.Currency)
	}
	if len(gw.created) != 1 || gw.created[0].AppointmentID != appt.ID {
		t.Fatal("gateway should receive one intent for the appointment")
	}
}

func TestCreateIntentCancelledAppointment(t *testing.T) {
	rec, store, _, appt := newTestReconciler(t)

	if _, err := store.Cancel(context.Background(), appt.ID, appt.UserID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := rec.CreateIntent(context.Background(), GatewayRazorpay, appt.ID, "https://app.example.com")
	if !errors.Is(err, appointment.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestCreateIntentUnknownAppointment(t *testing.T) {
	rec, _, _, _ := newTestReconciler(t)

	_, err := rec.CreateIntent(context.Background(), GatewayRazorpay, uuid.New(), "https://app.example.com")
	if !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestCreateIntentUnknownGateway(t *testing.T) {
	rec, _, _, appt := newTestReconciler(t)

	_, err := rec.CreateIntent(context.Background(), "paypal", appt.ID, "https://app.example.com")
	if !errors.Is(err, ErrUnknownGateway) {
		t.Fatalf("expected ErrUnknownGateway, got %v", err)
	}
}

func TestCreateIntentGatewayError(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	gw.createErr = fmt.Errorf("%w: connection refused", ErrGateway)

	_, err := rec.CreateIntent(context.Background(), GatewayRazorpay, appt.ID, "https://app.example.com")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	got, _ := store.GetByID(context.Background(), appt.ID)
	if got.Paid {
		t.Fatal("gateway error must leave payment state unchanged")
	}
}

func TestVerifySettledMarksPaidOnce(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.pay(intent.Reference)

	paid, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !paid.Paid {
		t.Fatal("appointment should be paid after verify")
	}

	// Replay: no second transition, still reported as paid.
	again, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference)
	if err != nil {
		t.Fatalf("replayed verify: %v", err)
	}
	if !again.Paid {
		t.Fatal("replayed verify should still report paid")
	}

	got, _ := store.GetByID(ctx, appt.ID)
	if !got.Paid {
		t.Fatal("payment state must not revert")
	}
}

func TestVerifyUnsettledOrder(t *testing.T) {
	rec, store, _, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	if _, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference); !errors.Is(err, ErrPaymentPending) {
		t.Fatalf("expected ErrPaymentPending, got %v", err)
	}

	got, _ := store.GetByID(ctx, appt.ID)
	if got.Paid {
		t.Fatal("unsettled verify must not mark paid")
	}
}

func TestVerifyGatewayErrorLeavesStateUnchanged(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.pay(intent.Reference)
	gw.checkErr = fmt.Errorf("%w: connection refused", ErrGateway)

	if _, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	got, _ := store.GetByID(ctx, appt.ID)
	if got.Paid {
		t.Fatal("gateway error must leave payment state unchanged")
	}

	// Retry after the gateway recovers.
	gw.checkErr = nil
	if _, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference); err != nil {
		t.Fatalf("retry after gateway error: %v", err)
	}
}

func TestVerifyCancelledAppointmentNeverPays(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if _, err := store.Cancel(ctx, appt.ID, appt.UserID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	gw.pay(intent.Reference)

	if _, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference); !errors.Is(err, appointment.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	got, _ := store.GetByID(ctx, appt.ID)
	if got.Paid {
		t.Fatal("cancelled appointment must never become paid")
	}
}

func TestVerifyConcurrentSingleTransition(t *testing.T) {
	rec, _, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.pay(intent.Reference)

	const callers = 25
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rec.Verify(ctx, GatewayRazorpay, intent.Reference); err != nil {
				t.Errorf("concurrent verify: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestConfirmRequiresGatewaySettlement(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	// A spoofed success assertion for an unsettled payment is rejected.
	if _, err := rec.Confirm(ctx, GatewayRazorpay, appt.ID, intent.Reference, true); !errors.Is(err, ErrPaymentPending) {
		t.Fatalf("expected ErrPaymentPending for unsettled confirm, got %v", err)
	}
	if got, _ := store.GetByID(ctx, appt.ID); got.Paid {
		t.Fatal("asserted success alone must not mark paid")
	}

	gw.pay(intent.Reference)

	paid, err := rec.Confirm(ctx, GatewayRazorpay, appt.ID, intent.Reference, true)
	if err != nil {
		t.Fatalf("confirm after settlement: %v", err)
	}
	if !paid.Paid {
		t.Fatal("appointment should be paid after verified confirm")
	}
}

func TestConfirmAssertedFailure(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, appt.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.pay(intent.Reference)

	if _, err := rec.Confirm(ctx, GatewayRazorpay, appt.ID, intent.Reference, false); !errors.Is(err, ErrPaymentPending) {
		t.Fatalf("expected ErrPaymentPending, got %v", err)
	}
	if got, _ := store.GetByID(ctx, appt.ID); got.Paid {
		t.Fatal("asserted failure must not mark paid")
	}
}

func TestConfirmReferenceForOtherAppointment(t *testing.T) {
	rec, store, gw, appt := newTestReconciler(t)
	ctx := context.Background()

	other, err := store.Create(ctx, uuid.New(), uuid.New(), "2024-07-02", "11:00", 700)
	if err != nil {
		t.Fatalf("create other appointment: %v", err)
	}

	intent, err := rec.CreateIntent(ctx, GatewayRazorpay, other.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.pay(intent.Reference)

	// Confirming appt with a reference settled for another appointment fails.
	if _, err := rec.Confirm(ctx, GatewayRazorpay, appt.ID, intent.Reference, true); !errors.Is(err, ErrWrongReference) {
		t.Fatalf("expected ErrWrongReference, got %v", err)
	}
}
