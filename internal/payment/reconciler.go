package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/appointment-booking/internal/appointment"
)

var (
	ErrUnknownGateway = errors.New("unknown payment gateway")
	ErrPaymentPending = errors.New("payment is not settled")
	ErrWrongReference = errors.New("settlement references a different appointment")
)

// Store is the slice of the appointment store the reconciler needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Reconciler drives the payment state machine for appointments. It marks an
// appointment paid at most once regardless of how many times, or through
// which gateway, settlement is reported.
type Reconciler struct {
	store    Store
	gateways map[string]Gateway
	currency string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewReconciler(store Store, currency string, gatewayTimeout time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		gateways: make(map[string]Gateway),
		currency: currency,
		timeout:  gatewayTimeout,
		logger:   logger,
	}
}

func (r *Reconciler) Register(gw Gateway) {
	r.gateways[gw.Name()] = gw
}

// CreateIntent starts a payment for the appointment on the named gateway.
// The amount is the fee captured at booking time, in minor units. origin is
// the client origin used to build redirect URLs for session-style gateways.
func (r *Reconciler) CreateIntent(ctx context.Context, gatewayName string, appointmentID uuid.UUID, origin string) (*Intent, error) {
	gw, ok := r.gateways[gatewayName]
	if !ok {
		return nil, ErrUnknownGateway
	}

	appt, err := r.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Cancelled {
		return nil, appointment.ErrCancelled
	}
	if appt.Paid {
		return nil, appointment.ErrAlreadyPaid
	}

	req := IntentRequest{
		AppointmentID: appt.ID,
		Amount:        appt.Fee * 100,
		Currency:      r.currency,
		SuccessURL:    fmt.Sprintf("%s/verify?success=true&appointmentId=%s&session_id={CHECKOUT_SESSION_ID}", origin, appt.ID),
		CancelURL:     fmt.Sprintf("%s/verify?success=false&appointmentId=%s", origin, appt.ID),
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	intent, err := gw.CreateIntent(ctx, req)
	if err != nil {
		return nil, err
	}

	r.logger.Info("payment intent created",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("gateway", gatewayName),
		zap.String("reference", intent.Reference),
		zap.Int64("amount", intent.Amount),
		zap.String("currency", intent.Currency),
	)

	return intent, nil
}

// Verify checks settlement of a gateway reference (order or session id) and,
// if the gateway says it is paid, marks the referenced appointment paid.
// Safe to call any number of times: replays land on ErrAlreadyPaid inside
// the store and are reported as success with the unchanged appointment.
func (r *Reconciler) Verify(ctx context.Context, gatewayName, ref string) (*appointment.Appointment, error) {
	gw, ok := r.gateways[gatewayName]
	if !ok {
		return nil, ErrUnknownGateway
	}

	appt, _, err := r.settle(ctx, gw, ref)
	return appt, err
}

// Confirm is the redirect-path entry: the client asserts the outcome after
// being bounced back from the gateway. The assertion alone never marks an
// appointment paid; settlement is verified against the gateway's own record,
// and the record must reference the claimed appointment.
func (r *Reconciler) Confirm(ctx context.Context, gatewayName string, appointmentID uuid.UUID, ref string, assertedSuccess bool) (*appointment.Appointment, error) {
	if !assertedSuccess {
		return nil, ErrPaymentPending
	}

	gw, ok := r.gateways[gatewayName]
	if !ok {
		return nil, ErrUnknownGateway
	}

	appt, settledFor, err := r.settle(ctx, gw, ref)
	if err != nil {
		return nil, err
	}
	if settledFor != appointmentID.String() {
		return nil, ErrWrongReference
	}
	return appt, nil
}

func (r *Reconciler) settle(ctx context.Context, gw Gateway, ref string) (*appointment.Appointment, string, error) {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	settlement, err := gw.CheckSettled(checkCtx, ref)
	cancel()
	if err != nil {
		return nil, "", err
	}
	if !settlement.Settled {
		return nil, settlement.AppointmentID, ErrPaymentPending
	}

	appointmentID, err := uuid.Parse(settlement.AppointmentID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: settlement reference %q is not an appointment id", ErrGateway, settlement.AppointmentID)
	}

	appt, err := r.store.MarkPaid(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointment.ErrAlreadyPaid) {
			// Replayed verification: the payment already landed.
			existing, getErr := r.store.GetByID(ctx, appointmentID)
			if getErr != nil {
				return nil, "", getErr
			}
			return existing, settlement.AppointmentID, nil
		}
		return nil, "", err
	}

	r.logger.Info("appointment marked paid",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("gateway", gw.Name()),
		zap.String("reference", ref),
	)

	return appt, settlement.AppointmentID, nil
}
