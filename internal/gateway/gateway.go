// Package gateway adapts the external payment gateway. Initiating a payment
// hands control entirely to the gateway: the initiating call never reports
// a payment outcome. Resolution arrives only when the gateway navigates the
// payer's browser back to the success or fail callback URL, which this
// service handles as an independent entry point (see ParseSuccessCallback
// and ParseFailCallback). Settlement confirmation stays a server-to-server
// concern between the core backend and the gateway.
package gateway

import (
	"context"
	"errors"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected checkout")
	ErrInvalidCallback    = errors.New("invalid gateway callback")
)

// Amount is a gateway-facing money value.
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// CheckoutRequest initiates one payment attempt with the gateway.
type CheckoutRequest struct {
	Method       string `json:"method"`
	Amount       Amount `json:"amount"`
	OrderID      string `json:"orderId"`
	OrderName    string `json:"orderName"`
	SuccessURL   string `json:"successUrl"`
	FailURL      string `json:"failUrl"`
	CustomerName string `json:"customerName"`
}

// Gateway is the external payment gateway adapter. A nil-error return from
// Initiate means the hand-off succeeded and control has left this service:
// the payer must be sent to the returned checkout URL, and nothing further
// is known until a callback arrives.
type Gateway interface {
	Initiate(ctx context.Context, req CheckoutRequest) (checkoutURL string, err error)
}
