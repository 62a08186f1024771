package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"100.00", 10000},
		{"0.01", 1},
		{"99.999", 10000},
		{"59.994", 5999},
		{"1234567.89", 123456789},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MinorUnits(decimal.RequireFromString(tc.amount)), tc.amount)
	}
}

func TestInitialize(t *testing.T) {
	var gotAuth string
	var gotBody initializeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "PSK_ref_1",
			},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_secret")
	res, err := p.Initialize(context.Background(), "buyer@example.com",
		decimal.RequireFromString("150.50"), Metadata{SaleID: 42, CustomerID: 7})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_secret", gotAuth)
	assert.Equal(t, "buyer@example.com", gotBody.Email)
	assert.Equal(t, int64(15050), gotBody.Amount)
	assert.Equal(t, int64(42), gotBody.Metadata.SaleID)

	assert.Equal(t, "PSK_ref_1", res.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", res.AuthorizationURL)
}

func TestInitializeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_bad")
	_, err := p.Initialize(context.Background(), "buyer@example.com",
		decimal.RequireFromString("10.00"), Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/PSK_ref_1", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status": "success",
				"amount": 15050,
			},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_secret")
	res, err := p.Verify(context.Background(), "PSK_ref_1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, int64(15050), res.AmountMinor)
}

func TestVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_secret")
	_, err := p.Verify(context.Background(), "PSK_ref_1")
	require.Error(t, err)
}
