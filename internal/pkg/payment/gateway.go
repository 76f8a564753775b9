package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopfox/shopfox/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// Gateway creates payment sessions with the external payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*GatewaySession, error)
}

// CreateSessionRequest carries the server-computed amount; client-supplied
// totals never reach the gateway.
type CreateSessionRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Reference string
}

// GatewaySession is the provider's handle for a created payment session.
type GatewaySession struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// StripeClient talks to the Stripe checkout API.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewStripeClientFromEnv builds a gateway client from environment settings.
func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateSession requests a new checkout session from the gateway. The amount
// is sent in minor units as the API expects.
func (c *StripeClient) CreateSession(ctx context.Context, in CreateSessionRequest) (*GatewaySession, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is not configured")
	}

	form := url.Values{}
	form.Set("amount", in.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0))
	form.Set("currency", strings.ToLower(in.Currency))
	form.Set("client_reference_id", in.Reference)

	endpoint := c.APIBaseURL + "/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway session creation failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out GatewaySession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("gateway returned a session without an id")
	}
	return &out, nil
}
