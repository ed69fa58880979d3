package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Gateway is the slice of the payment provider's API this subsystem consumes
// beyond webhooks: asking whether an intent actually charged. The
// reconciliation worker uses it to detect paid-but-stuck orders.
type Gateway interface {
	CheckIntentStatus(ctx context.Context, intentID string) (bool, error)
}

type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway talks to the provider's REST API.
func NewHTTPGateway(baseURL, apiKey string) Gateway {
	return &httpGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *httpGateway) CheckIntentStatus(ctx context.Context, intentID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("gateway intent lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("gateway intent lookup: status %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Status == "succeeded", nil
}

type mockGateway struct {
	mu      sync.RWMutex
	charged map[string]bool
}

// NewMockGateway returns an in-memory gateway for tests and the simulator.
func NewMockGateway() *mockGateway {
	return &mockGateway{charged: make(map[string]bool)}
}

func (g *mockGateway) CheckIntentStatus(ctx context.Context, intentID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.charged[intentID], nil
}

// MarkCharged records that the provider side considers the intent paid.
func (g *mockGateway) MarkCharged(intentID string) {
	g.mu.Lock()
	g.charged[intentID] = true
	g.mu.Unlock()
}
