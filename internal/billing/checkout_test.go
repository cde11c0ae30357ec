package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubepost/internal/external"
	"tubepost/internal/types"
)

type memPrices struct {
	minor *int64
}

func (m *memPrices) GetPriceMinor(_ context.Context, fallback int64) (int64, error) {
	if m.minor == nil {
		return fallback, nil
	}
	return *m.minor, nil
}

func (m *memPrices) SetPriceMinor(_ context.Context, minor int64) error {
	m.minor = &minor
	return nil
}

type recordingCheckout struct {
	got external.CheckoutRequest
}

func (r *recordingCheckout) CreateCheckoutSession(_ context.Context, in external.CheckoutRequest) (string, string, error) {
	r.got = in
	return "https://checkout.example/cs_1", "cs_1", nil
}

func TestCheckout_StartUsesStoredPrice(t *testing.T) {
	prices := &memPrices{}
	svc := &recordingCheckout{}
	c := NewCheckout(prices, svc, CheckoutConfig{
		Currency:          "brl",
		DefaultPriceMinor: 1290,
		SuccessURL:        "https://app.example/dashboard",
		CancelURL:         "https://app.example/dashboard?cancel=1",
	}, nil)

	url, err := c.Start(context.Background(), types.Actor{ID: "uid-1", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", url)
	assert.Equal(t, int64(1290), svc.got.AmountMinor)
	assert.Equal(t, "uid-1", svc.got.UserID)
	assert.Equal(t, "ana@example.com", svc.got.Email)

	require.NoError(t, c.SetPrice(context.Background(), 2490))
	_, err = c.Start(context.Background(), types.Actor{ID: "uid-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2490), svc.got.AmountMinor)
}

func TestCheckout_NotConfigured(t *testing.T) {
	c := NewCheckout(&memPrices{}, nil, CheckoutConfig{}, nil)
	_, err := c.Start(context.Background(), types.Actor{ID: "uid-1"})
	assert.True(t, types.HasCode(err, types.ErrCodeInternalBillingNotConfig))
}

func TestCheckout_SetPriceRejectsNegative(t *testing.T) {
	c := NewCheckout(&memPrices{}, nil, CheckoutConfig{}, nil)
	err := c.SetPrice(context.Background(), -1)
	assert.True(t, types.HasCode(err, types.ErrCodeValidationInvalidPrice))
}
