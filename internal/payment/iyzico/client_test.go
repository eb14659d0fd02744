package iyzico

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Domenick1991/pitchbooking/config"
	"github.com/Domenick1991/pitchbooking/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.PaymentConfig{
		APIKey:    "api-key",
		SecretKey: "secret-key",
		BaseURL:   baseURL,
	})
}

func TestClient_CreateSession(t *testing.T) {
	var gotAuth, gotNonce string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/iyzipos/checkoutform/initialize/auth/ecom", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotNonce = r.Header.Get("x-iyzi-rnd")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(checkoutInitResponse{
			Status:         "success",
			Token:          "tok-123",
			PaymentPageURL: "https://sandbox.iyzipay.com/form/tok-123",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	session, err := client.CreateSession(context.Background(), "7", 225, Buyer{
		ID:    "42",
		Name:  "Ali",
		Email: "ali@example.com",
	}, "https://example.com/api/payment/callback")

	assert.NoError(t, err)
	assert.Equal(t, "tok-123", session.Token)
	assert.Equal(t, "https://sandbox.iyzipay.com/form/tok-123", session.PaymentPageURL)

	// The signature must be reproducible from the nonce and body the server
	// received.
	assert.NotEmpty(t, gotNonce)
	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write([]byte(gotNonce))
	mac.Write(gotBody)
	wantAuth := fmt.Sprintf("IYZWS api-key:%s", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	assert.Equal(t, wantAuth, gotAuth)

	var req checkoutInitRequest
	assert.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "225", req.Price)
	assert.Equal(t, "TRY", req.Currency)
	assert.Equal(t, "7", req.ConversationID)
}

func TestClient_CreateSession_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkoutInitResponse{
			Status:       "failure",
			ErrorMessage: "invalid api key",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateSession(context.Background(), "7", 225, Buyer{}, "")

	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClient_CreateSession_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateSession(context.Background(), "7", 225, Buyer{}, "")

	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestClient_SessionStatus(t *testing.T) {
	cases := []struct {
		name     string
		response checkoutDetailResponse
		paid     bool
	}{
		{
			name:     "paid",
			response: checkoutDetailResponse{Status: "success", PaymentStatus: "SUCCESS"},
			paid:     true,
		},
		{
			name:     "form completed but payment failed",
			response: checkoutDetailResponse{Status: "success", PaymentStatus: "FAILURE"},
			paid:     false,
		},
		{
			name:     "request failed",
			response: checkoutDetailResponse{Status: "failure"},
			paid:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/payment/iyzipos/checkoutform/auth/ecom/detail", r.URL.Path)
				json.NewEncoder(w).Encode(tc.response)
			}))
			defer server.Close()

			paid, err := newTestClient(server.URL).SessionStatus(context.Background(), "tok-123")

			assert.NoError(t, err)
			assert.Equal(t, tc.paid, paid)
		})
	}
}

func TestClient_Refund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/refund", r.URL.Path)
		var req refundRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "tok-123", req.PaymentTransactionID)
		assert.Equal(t, "112", req.Price)
		json.NewEncoder(w).Encode(refundResponse{Status: "success"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).Refund(context.Background(), "tok-123", 112)

	assert.NoError(t, err)
}

func TestClient_Refund_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(refundResponse{Status: "failure", ErrorMessage: "refund window closed"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).Refund(context.Background(), "tok-123", 112)

	assert.ErrorIs(t, err, domain.ErrProvider)
}
