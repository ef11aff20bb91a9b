// Package payments creates card payment intents with Stripe.
package payments

import (
	"context"
	"net/http"
	"strings"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// IntentCreator is what the HTTP layer needs from a payment provider.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type Stripe struct {
	intents intentAPI
	timeout time.Duration
}

// NewStripe returns nil when no secret key is configured; callers treat a nil
// creator as "payments disabled".
func NewStripe(secretKey string, timeout time.Duration) *Stripe {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	sc := client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Stripe{intents: sc.PaymentIntents, timeout: timeout}
}

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CreateIntent creates an automatic-payment-methods intent and returns its
// client secret.
func (s *Stripe) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	cents := ToMinorUnits(amount)
	if cents <= 0 {
		return "", restaurant.ValidationError("amount must be positive")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "eur"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := s.intents.New(params)
	if err != nil {
		return "", restaurant.ExternalServiceError(err)
	}
	return intent.ClientSecret, nil
}
