package gateway

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// CallbackResult is the terminal payment-session status carried by a
// gateway redirect. It is the only signal of payment outcome this service
// ever receives; it is advisory until the backend verifies settlement.
type CallbackResult struct {
	OrderID     string
	Status      models.PaymentSessionStatus
	PaymentKey  string
	Amount      int64
	FailureCode string
	FailureMsg  string
}

// ParseSuccessCallback maps the query parameters of a success-URL redirect
// to a terminal result. The gateway sends orderId, paymentKey, and amount.
func ParseSuccessCallback(params url.Values) (CallbackResult, error) {
	orderID := params.Get("orderId")
	paymentKey := params.Get("paymentKey")
	if orderID == "" || paymentKey == "" {
		return CallbackResult{}, fmt.Errorf("%w: missing orderId or paymentKey", ErrInvalidCallback)
	}

	amount, err := strconv.ParseInt(params.Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		return CallbackResult{}, fmt.Errorf("%w: bad amount %q", ErrInvalidCallback, params.Get("amount"))
	}

	return CallbackResult{
		OrderID:    orderID,
		Status:     models.PaymentSucceeded,
		PaymentKey: paymentKey,
		Amount:     amount,
	}, nil
}

// ParseFailCallback maps the query parameters of a fail-URL redirect to a
// terminal result. The gateway sends orderId, code, and message.
func ParseFailCallback(params url.Values) (CallbackResult, error) {
	orderID := params.Get("orderId")
	if orderID == "" {
		return CallbackResult{}, fmt.Errorf("%w: missing orderId", ErrInvalidCallback)
	}

	return CallbackResult{
		OrderID:     orderID,
		Status:      models.PaymentFailed,
		FailureCode: params.Get("code"),
		FailureMsg:  params.Get("message"),
	}, nil
}
