package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSessionStatus is the client-local lifecycle of a payment session.
// Final settlement is confirmed server-to-server between the backend and
// the gateway; these states only cover what this service can observe.
type PaymentSessionStatus string

const (
	PaymentIdle       PaymentSessionStatus = "idle"
	PaymentCreating   PaymentSessionStatus = "creating"
	PaymentReady      PaymentSessionStatus = "ready"
	PaymentProcessing PaymentSessionStatus = "processing"
	PaymentSucceeded  PaymentSessionStatus = "succeeded"
	PaymentFailed     PaymentSessionStatus = "failed"
	PaymentError      PaymentSessionStatus = "error"
)

// Final reports whether the status will never change again. Gateway
// redirects can be replayed or arrive late; a final session must not be
// rewritten by them.
func (s PaymentSessionStatus) Final() bool {
	return s == PaymentSucceeded || s == PaymentFailed || s == PaymentError
}

// PaymentSession is the backend-issued token set authorizing a single
// payment attempt against the external gateway.
type PaymentSession struct {
	OrderID          string               `json:"order_id"`
	ReservationID    uuid.UUID            `json:"reservation_id"`
	Amount           int64                `json:"amount"`
	Currency         string               `json:"currency"`
	OrderName        string               `json:"order_name"`
	GatewayClientKey string               `json:"gateway_client_key"`
	SuccessURL       string               `json:"success_url"`
	FailURL          string               `json:"fail_url"`
	Status           PaymentSessionStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}
