package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway is the order/poll-style backend: the server creates an
// order, the client pays it, and settlement is later checked by fetching the
// order from Razorpay. The order receipt carries the appointment id.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) Name() string { return GatewayRazorpay }

func (g *RazorpayGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.AppointmentID.String(),
	}

	order, err := callGateway(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create razorpay order: %v", ErrGateway, err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: razorpay order response missing id", ErrGateway)
	}

	return &Intent{
		AppointmentID: req.AppointmentID,
		Gateway:       GatewayRazorpay,
		Reference:     orderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, nil
}

func (g *RazorpayGateway) CheckSettled(ctx context.Context, ref string) (Settlement, error) {
	order, err := callGateway(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Fetch(ref, nil, nil)
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("%w: fetch razorpay order %s: %v", ErrGateway, ref, err)
	}

	status, _ := order["status"].(string)
	receipt, _ := order["receipt"].(string)
	if receipt == "" {
		return Settlement{}, fmt.Errorf("%w: razorpay order %s has no receipt", ErrGateway, ref)
	}

	return Settlement{
		Settled:       status == "paid",
		AppointmentID: receipt,
	}, nil
}

// callGateway runs a context-less SDK call in a goroutine so the caller's
// timeout still bounds it. On cancellation the SDK call is abandoned; its
// result is discarded.
func callGateway(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.body, res.err
	}
}
