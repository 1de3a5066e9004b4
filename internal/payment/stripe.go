package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
)

// StripeGateway is the session/redirect-style backend: the server creates a
// Checkout Session and hands the client its URL. Settlement is verified by
// retrieving the session from Stripe, never by trusting the client's
// redirect parameters. The session's client reference carries the
// appointment id.
type StripeGateway struct {
	api *stripeclient.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) Name() string { return GatewayStripe }

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.AppointmentID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Appointment fee"),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create stripe checkout session: %v", ErrGateway, err)
	}

	return &Intent{
		AppointmentID: req.AppointmentID,
		Gateway:       GatewayStripe,
		Reference:     sess.ID,
		RedirectURL:   sess.URL,
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, nil
}

func (g *StripeGateway) CheckSettled(ctx context.Context, ref string) (Settlement, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(ref, params)
	if err != nil {
		return Settlement{}, fmt.Errorf("%w: fetch stripe checkout session %s: %v", ErrGateway, ref, err)
	}
	if sess.ClientReferenceID == "" {
		return Settlement{}, fmt.Errorf("%w: stripe session %s has no client reference", ErrGateway, ref)
	}

	return Settlement{
		Settled:       sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AppointmentID: sess.ClientReferenceID,
	}, nil
}
