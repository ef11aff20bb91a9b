package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeIntents struct {
	params *stripe.PaymentIntentParams
	err    error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ClientSecret: "pi_123_secret_456"}, nil
}

func TestNewStripeDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewStripe("  ", time.Second))
	assert.NotNil(t, NewStripe("sk_test_123", time.Second))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2400), ToMinorUnits(decimal.RequireFromString("24")))
	assert.Equal(t, int64(851), ToMinorUnits(decimal.RequireFromString("8.505")))
	assert.Equal(t, int64(10), ToMinorUnits(decimal.RequireFromString("0.1")))
}

func TestCreateIntent(t *testing.T) {
	fake := &fakeIntents{}
	s := &Stripe{intents: fake, timeout: time.Second}

	secret, err := s.CreateIntent(context.Background(), decimal.RequireFromString("24.00"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_456", secret)
	assert.Equal(t, int64(2400), *fake.params.Amount)
	assert.Equal(t, "eur", *fake.params.Currency)
	assert.True(t, *fake.params.AutomaticPaymentMethods.Enabled)
}

func TestCreateIntentErrors(t *testing.T) {
	s := &Stripe{intents: &fakeIntents{err: errors.New("card_declined")}, timeout: time.Second}

	_, err := s.CreateIntent(context.Background(), decimal.Zero, "eur")
	de, ok := restaurant.AsError(err)
	require.True(t, ok)
	assert.Equal(t, restaurant.CodeValidation, de.Code)

	_, err = s.CreateIntent(context.Background(), decimal.RequireFromString("5"), "")
	de, ok = restaurant.AsError(err)
	require.True(t, ok)
	assert.Equal(t, restaurant.CodePayment, de.Code)
	assert.EqualError(t, errors.Unwrap(err), "card_declined")
}
