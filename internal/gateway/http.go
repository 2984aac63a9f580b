package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGateway implements Gateway against the gateway's checkout API.
type HTTPGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPGateway creates a new gateway adapter. The secret key
// authenticates this service to the gateway; it is never sent to payers.
func NewHTTPGateway(baseURL, secretKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

func (g *HTTPGateway) Initiate(ctx context.Context, req CheckoutRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkouts", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.secretKey, "")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding checkout response: %w", err)
	}
	if out.CheckoutURL == "" {
		return "", fmt.Errorf("%w: checkout created without redirect url", ErrGatewayRejected)
	}
	return out.CheckoutURL, nil
}
