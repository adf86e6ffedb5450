package yespay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tour-booking/internal/status"
)

type ClientConfig struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	PartnerID string `json:"partnerId" mapstructure:"partner_id"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`
}

type Client struct {
	// baseURL is the base url of the YesPay backend.
	baseURL string

	// partnerID is the partner id of the YesPay backend.
	partnerID string

	// clientID is the client id of the YesPay backend.
	clientID string

	// clientKey is the client key of the YesPay backend.
	clientKey string

	// hmacKey signs every request body.
	hmacKey string

	// access Token is used to authenticate with the YesPay backend.
	accessToken string

	// mu is used to lock access token.
	mu sync.Mutex

	// toggleTokenRefresher is used to notify token refresher to refresh token.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:   c.BaseURL,
		partnerID: c.PartnerID,
		clientID:  c.ClientID,
		clientKey: c.ClientKey,
		hmacKey:   c.HMACKey,

		// make a buffered channel to avoid blocking.
		toggleTokenRefresher: make(chan struct{}, 1),

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired do infinite loop with period of time
// to perform auto renew token from the YesPay backend with
// exponential backOff strategy.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refreshed")
		}

		// reconnect with exponential backOff strategy
		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect makes http call to perform authentication with the YesPay backend.
func (c *Client) connect(ctx context.Context) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("connect: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"partnerId":%q,"clientId":%q,"clientSecret":%q}`, number, c.partnerID, c.clientID, c.clientKey)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/pro/dynamic/authenticate"), bodyReader)
	if err != nil {
		return "", fmt.Errorf("connect: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connect: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", errors.New("connect: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connect: unexpected status %d", resp.StatusCode)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("connect: json.Decode: %v", err)
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("connect: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	accessToken := fmt.Sprintf("%s %s", reply.Data.TokenType, reply.Data.AccessToken)
	return accessToken, nil
}

// refund reverses a captured bill. The bill number doubles as the gateway
// idempotency key, so retrying a refund that already went through returns
// the same refund id instead of moving money twice.
func (c *Client) refund(ctx context.Context, externalPaymentID string, amount decimal.Decimal) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", &status.GatewayError{Op: "refund", Err: fmt.Errorf("randomNumber: %v", err)}
	}

	body := fmt.Sprintf(`{"requestId":%q,"partnerId":%q,"billNumber":%q,"txnAmount":%s}`,
		number, c.partnerID, externalPaymentID, amount)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/pro/dynamic/refund"), bodyReader)
	if err != nil {
		return "", &status.GatewayError{Op: "refund", Err: fmt.Errorf("http.NewReq: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))
	req.Header.Set("Authorization", c.getAccessToken())
	req.Header.Set("Idempotency-Key", externalPaymentID)

	resp, err := c.hc.Do(req)
	if err != nil {
		// transport errors and timeouts are worth retrying
		return "", &status.GatewayError{Op: "refund", Retryable: true, Err: fmt.Errorf("http.Do: %v", err)}
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", &status.GatewayError{Op: "refund", Retryable: true, Err: errors.New("401 => Unauthorized")}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", &status.GatewayError{Op: "refund", Retryable: true, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &status.GatewayError{Op: "refund", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var reply struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Data    struct {
			RefundID string `json:"refundId"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", &status.GatewayError{Op: "refund", Err: fmt.Errorf("json.Decode: %v", err)}
	}
	if reply.Status != "OK" {
		return "", &status.GatewayError{Op: "refund", Err: fmt.Errorf("reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)}
	}

	return reply.Data.RefundID, nil
}

// checkTransaction check transaction status from the YesPay api
func (c *Client) checkTransaction(ctx context.Context, externalPaymentID string) (*Transaction, error) {
	number, err := randomNumber()
	if err != nil {
		return nil, &status.GatewayError{Op: "checkTransaction", Err: fmt.Errorf("randomNumber: %v", err)}
	}

	body := fmt.Sprintf(`{"requestId":%q,"billNumber":%q}`, number, externalPaymentID)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/pro/dynamic/checkTransaction"), bodyReader)
	if err != nil {
		return nil, &status.GatewayError{Op: "checkTransaction", Err: fmt.Errorf("http.NewReq: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &status.GatewayError{Op: "checkTransaction", Retryable: true, Err: fmt.Errorf("http.Do: %v", err)}
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return nil, &status.GatewayError{Op: "checkTransaction", Retryable: true, Err: errors.New("401 => Unauthorized")}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &status.GatewayError{Op: "checkTransaction", Retryable: true, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var reply struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Data    struct {
			payload
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, &status.GatewayError{Op: "checkTransaction", Err: fmt.Errorf("json.Decode: %v", err)}
	}
	if reply.Status != "OK" {
		if reply.Status == "NOT_FOUND" {
			return nil, status.ErrNotFound
		}
		return nil, &status.GatewayError{Op: "checkTransaction", Err: fmt.Errorf("reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)}
	}

	transaction, err := reply.Data.payload.ToDomain()
	if err != nil {
		return nil, &status.GatewayError{Op: "checkTransaction", Err: fmt.Errorf("reply.Data: %v", err)}
	}

	return transaction, nil
}
