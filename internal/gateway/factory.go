package gateway

import (
	"fmt"

	"github.com/hyunwoo-jung/tripline/internal/config"
)

// New constructs the configured gateway implementation. Called once at
// server startup. The mock provider exists for local development and
// end-to-end tests; it accepts every checkout without leaving the process.
func New(cfg config.GatewayConfig) (Gateway, error) {
	switch cfg.Provider {
	case "http":
		return NewHTTPGateway(cfg.BaseURL, cfg.SecretKey, cfg.Timeout), nil
	case "mock":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q: must be one of http, mock", cfg.Provider)
	}
}
