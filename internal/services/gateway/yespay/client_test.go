package yespay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/status"
)

func newTestClient(baseURL string) *Client {
	return newClient(context.Background(), &ClientConfig{
		BaseURL:   baseURL,
		PartnerID: "partner",
		ClientID:  "client",
		ClientKey: "key",
		HMACKey:   "hmac",
	})
}

func TestClient_Refund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pro/dynamic/refund", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("SignedHash"))
		assert.Equal(t, "BILL-1", r.Header.Get("Idempotency-Key"))

		var body struct {
			BillNumber string          `json:"billNumber"`
			TxnAmount  decimal.Decimal `json:"txnAmount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BILL-1", body.BillNumber)
		assert.True(t, body.TxnAmount.Equal(decimal.NewFromInt(100)))

		w.Write([]byte(`{"status":"OK","data":{"refundId":"re_777"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	refundID, err := c.refund(context.Background(), "BILL-1", decimal.NewFromInt(100))

	require.NoError(t, err)
	assert.Equal(t, "re_777", refundID)
}

func TestClient_Refund_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.refund(context.Background(), "BILL-1", decimal.NewFromInt(100))

	assert.True(t, status.IsRetryableGateway(err))
}

func TestClient_Refund_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.refund(context.Background(), "BILL-1", decimal.NewFromInt(100))

	assert.Error(t, err)
	assert.False(t, status.IsRetryableGateway(err))
}

func TestClient_Refund_UnauthorizedTogglesRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.refund(context.Background(), "BILL-1", decimal.NewFromInt(100))

	assert.True(t, status.IsRetryableGateway(err))
	select {
	case <-c.toggleTokenRefresher:
	default:
		t.Fatal("expected a token refresh to be requested")
	}
}

func TestClient_Connect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pro/dynamic/authenticate", r.URL.Path)
		w.Write([]byte(`{"status":"OK","data":{"accessToken":"tok","tokenType":"Bearer"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	token, err := c.connect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", token)
}

func TestClient_CheckTransaction_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"NOT_FOUND","message":"no such bill"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.checkTransaction(context.Background(), "BILL-404")

	assert.ErrorIs(t, err, status.ErrNotFound)
}
