package payments

import (
	"context"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// HoldRequest reserves a segment fare on the rider's payment method.
type HoldRequest struct {
	AmountMinor int64
	Currency    string
	CustomerID  string
	TripID      string
	From        string
	To          string
	Seats       int
}

// StripeClient is a thin wrapper around stripe-go for PaymentIntent hold/cancel flows.
type StripeClient struct{}

// NewStripeClient initializes the stripe client with the given secret key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// Hold creates a PaymentIntent with capture_method=manual to hold funds.
// It returns the PaymentIntent ID on success.
func (s *StripeClient) Hold(ctx context.Context, req HoldRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String("Seat hold " + req.From + " to " + req.To),
	}
	params.Context = ctx
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("trip_id", req.TripID)
	params.AddMetadata("segment", req.From+" -> "+req.To)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}
