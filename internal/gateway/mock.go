package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway simulates the external gateway for tests and local
// development. It records every initiated checkout and can be told to fail.
type MockGateway struct {
	mu        sync.Mutex
	initiated []CheckoutRequest
	failWith  error
}

// NewMockGateway creates a MockGateway that accepts every checkout.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// FailWith makes subsequent Initiate calls return err. Pass nil to restore
// normal behaviour.
func (g *MockGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

// Initiated returns a copy of every checkout request accepted so far.
func (g *MockGateway) Initiated() []CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CheckoutRequest, len(g.initiated))
	copy(out, g.initiated)
	return out
}

func (g *MockGateway) Initiate(_ context.Context, req CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return "", g.failWith
	}
	g.initiated = append(g.initiated, req)
	return fmt.Sprintf("https://checkout.gateway.test/%s", req.OrderID), nil
}
