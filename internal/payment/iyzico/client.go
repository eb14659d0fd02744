package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/pitchbooking/config"
	"github.com/Domenick1991/pitchbooking/internal/domain"
)

const ProviderName = "iyzico"

type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type Buyer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"gsmNumber"`
	Email   string `json:"email"`
}

type Session struct {
	Token          string
	PaymentPageURL string
}

type checkoutInitRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	Price          string `json:"price"`
	PaidPrice      string `json:"paidPrice"`
	Currency       string `json:"currency"`
	BasketID       string `json:"basketId"`
	CallbackURL    string `json:"callbackUrl"`
	Buyer          Buyer  `json:"buyer"`
}

type checkoutInitResponse struct {
	Status         string `json:"status"`
	Token          string `json:"token"`
	PaymentPageURL string `json:"paymentPageUrl"`
	ErrorMessage   string `json:"errorMessage"`
}

type checkoutDetailRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	Token          string `json:"token"`
}

type checkoutDetailResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	ErrorMessage  string `json:"errorMessage"`
}

type refundRequest struct {
	Locale               string `json:"locale"`
	ConversationID       string `json:"conversationId"`
	PaymentTransactionID string `json:"paymentTransactionId"`
	Price                string `json:"price"`
	Currency             string `json:"currency"`
}

type refundResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// CreateSession opens a checkout form session for the deposit amount and
// returns the provider token plus the hosted payment page URL.
func (c *Client) CreateSession(ctx context.Context, conversationID string, amount int64, buyer Buyer, callbackURL string) (*Session, error) {
	req := checkoutInitRequest{
		Locale:         "tr",
		ConversationID: conversationID,
		Price:          strconv.FormatInt(amount, 10),
		PaidPrice:      strconv.FormatInt(amount, 10),
		Currency:       "TRY",
		BasketID:       conversationID,
		CallbackURL:    callbackURL,
		Buyer:          buyer,
	}

	var resp checkoutInitResponse
	if err := c.post(ctx, "/payment/iyzipos/checkoutform/initialize/auth/ecom", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: %s", domain.ErrProvider, resp.ErrorMessage)
	}
	return &Session{Token: resp.Token, PaymentPageURL: resp.PaymentPageURL}, nil
}

// SessionStatus asks the provider for the final state of a checkout
// session. It reports true only when the payment fully succeeded.
func (c *Client) SessionStatus(ctx context.Context, token string) (bool, error) {
	req := checkoutDetailRequest{
		Locale:         "tr",
		ConversationID: token,
		Token:          token,
	}

	var resp checkoutDetailResponse
	if err := c.post(ctx, "/payment/iyzipos/checkoutform/auth/ecom/detail", req, &resp); err != nil {
		return false, err
	}
	return resp.Status == "success" && resp.PaymentStatus == "SUCCESS", nil
}

// Refund requests a partial or full refund against the original provider
// transaction.
func (c *Client) Refund(ctx context.Context, providerTransactionID string, amount int64) error {
	req := refundRequest{
		Locale:               "tr",
		ConversationID:       providerTransactionID,
		PaymentTransactionID: providerTransactionID,
		Price:                strconv.FormatInt(amount, 10),
		Currency:             "TRY",
	}

	var resp refundResponse
	if err := c.post(ctx, "/payment/refund", req, &resp); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("%w: %s", domain.ErrProvider, resp.ErrorMessage)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	nonce, err := newNonce()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader(nonce, payload))
	req.Header.Set("x-iyzi-rnd", nonce)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrProvider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrProvider, err)
	}
	return nil
}

// authHeader signs nonce+body with the shared secret: HMAC-SHA256,
// base64-encoded, carried as "IYZWS apiKey:signature".
func (c *Client) authHeader(nonce string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(nonce))
	mac.Write(body)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("IYZWS %s:%s", c.apiKey, signature)
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
