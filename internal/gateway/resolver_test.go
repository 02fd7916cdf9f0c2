package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() map[string]string {
	return map[string]string{
		"endpoint": "https://processor.example.com/stripe",
		"api_key":  "sk_test_123",
	}
}

func TestResolveBuiltInFamilies(t *testing.T) {
	r := NewResolver(false)

	tests := []struct {
		name   string
		family Family
	}{
		{"stripe", FamilyToken},
		{"paypal", FamilyRedirect},
		{"coinbase", FamilyRedirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := r.Resolve(tt.name, validConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.name, gw.Name())
			assert.Equal(t, tt.family, gw.Family())
		})
	}
}

func TestResolveUnknownGateway(t *testing.T) {
	r := NewResolver(false)

	_, err := r.Resolve("securepay", validConfig())
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestResolveRejectsIncompleteConfig(t *testing.T) {
	r := NewResolver(false)

	t.Run("missing endpoint", func(t *testing.T) {
		_, err := r.Resolve("stripe", map[string]string{"api_key": "sk"})
		assert.ErrorContains(t, err, "endpoint")
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := r.Resolve("paypal", map[string]string{"endpoint": "https://x"})
		assert.ErrorContains(t, err, "api_key")
	})
}

func TestRegisterCustomDriver(t *testing.T) {
	r := NewResolver(false)
	r.Register("securepay", func(name string, config map[string]string, testMode bool) (Gateway, error) {
		return newRedirectGateway(name, config, testMode)
	})

	gw, err := r.Resolve("securepay", validConfig())
	require.NoError(t, err)
	assert.Equal(t, FamilyRedirect, gw.Family())
}

func TestTokenGatewayRequiresToken(t *testing.T) {
	gw, err := newTokenGateway("stripe", validConfig(), false)
	require.NoError(t, err)

	result, err := gw.Purchase(context.Background(), &PurchaseRequest{Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "Payment token is missing.", result.Message)
}

func TestTokenGatewayHasNoCompletionStep(t *testing.T) {
	gw, err := newTokenGateway("stripe", validConfig(), false)
	require.NoError(t, err)

	_, err = gw.CompletePurchase(context.Background(), map[string]string{"payment_id": "42"})
	assert.Error(t, err)
}

func TestRedirectGatewayRequiresCallbackURLs(t *testing.T) {
	gw, err := newRedirectGateway("paypal", validConfig(), false)
	require.NoError(t, err)

	_, err = gw.Purchase(context.Background(), &PurchaseRequest{Currency: "USD"})
	assert.Error(t, err)
}

func TestRedirectGatewayRequiresContinuation(t *testing.T) {
	gw, err := newRedirectGateway("paypal", validConfig(), false)
	require.NoError(t, err)

	_, err = gw.CompletePurchase(context.Background(), nil)
	assert.Error(t, err)
}
