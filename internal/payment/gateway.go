package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
)

// ErrGateway marks failures talking to the external payment system. The
// appointment's payment state is never changed on a gateway error, so the
// caller can always retry.
var ErrGateway = errors.New("payment gateway error")

// IntentRequest describes the payment to start. Amount is in minor currency
// units. SuccessURL and CancelURL are only used by redirect-style gateways.
type IntentRequest struct {
	AppointmentID uuid.UUID
	Amount        int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// Intent is a transient handle on a gateway-side order or session. The
// appointment's payment state is the source of truth; an intent is never
// persisted.
type Intent struct {
	AppointmentID uuid.UUID
	Gateway       string
	Reference     string // gateway order or session id
	RedirectURL   string // empty for order-style gateways
	Amount        int64
	Currency      string
}

// Settlement is a gateway's answer to "is this reference paid, and for which
// appointment". AppointmentID comes from the gateway's own record (order
// receipt, session client reference), never from the client.
type Settlement struct {
	Settled       bool
	AppointmentID string
}

// Gateway is the capability a settlement backend must provide. The
// reconciler depends only on this interface.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CheckSettled(ctx context.Context, ref string) (Settlement, error)
}
