package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hyunwoo-jung/tripline/internal/draftstore"
	"github.com/hyunwoo-jung/tripline/internal/gateway"
	"github.com/hyunwoo-jung/tripline/internal/store"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// Callback receives the payment gateway's browser redirects. These are the
// only signal of payment outcome this service gets, and they arrive on a
// fresh request with no API key, so the routes are public and everything is
// correlated through the persisted payment session.
type Callback struct {
	sessions   store.Store
	drafts     draftstore.Store
	webBaseURL string
}

// NewCallback creates the gateway callback handler set. Completed and failed
// payments both redirect the browser back to the web frontend at webBaseURL.
func NewCallback(sessions store.Store, drafts draftstore.Store, webBaseURL string) *Callback {
	return &Callback{sessions: sessions, drafts: drafts, webBaseURL: webBaseURL}
}

// Success handles GET /payments/callback/success.
func (c *Callback) Success(w http.ResponseWriter, r *http.Request) {
	result, err := gateway.ParseSuccessCallback(r.URL.Query())
	if err != nil {
		slog.Warn("rejecting malformed success callback", "error", err)
		c.redirectFailed(w, r, "", "INVALID_CALLBACK")
		return
	}

	session, err := c.sessions.GetPaymentSession(r.Context(), result.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("success callback for unknown order", "order_id", result.OrderID)
			c.redirectFailed(w, r, result.OrderID, "UNKNOWN_ORDER")
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if session.Status.Final() {
		// Replayed or late redirect; the recorded outcome stands.
		slog.Warn("success callback for finalized order",
			"order_id", result.OrderID,
			"status", session.Status,
		)
		if session.Status == models.PaymentSucceeded {
			c.redirectComplete(w, r, result.OrderID)
			return
		}
		c.redirectFailed(w, r, result.OrderID, "ORDER_ALREADY_FINAL")
		return
	}

	if result.Amount != session.Amount {
		slog.Error("success callback amount mismatch",
			"order_id", result.OrderID,
			"callback_amount", result.Amount,
			"session_amount", session.Amount,
		)
		if err := c.sessions.UpdatePaymentSessionStatus(r.Context(), result.OrderID, models.PaymentError); err != nil {
			slog.Error("failed to mark payment session errored", "order_id", result.OrderID, "error", err)
		}
		c.redirectFailed(w, r, result.OrderID, "AMOUNT_MISMATCH")
		return
	}

	if err := c.sessions.UpdatePaymentSessionStatus(r.Context(), result.OrderID, models.PaymentSucceeded); err != nil {
		slog.Error("failed to mark payment session succeeded", "order_id", result.OrderID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	c.clearDrafts(r, result.OrderID)

	slog.Info("payment succeeded",
		"order_id", result.OrderID,
		"amount", result.Amount,
	)
	c.redirectComplete(w, r, result.OrderID)
}

// Fail handles GET /payments/callback/fail. Drafts are kept: a failed
// payment is retried from the same form, not retyped.
func (c *Callback) Fail(w http.ResponseWriter, r *http.Request) {
	result, err := gateway.ParseFailCallback(r.URL.Query())
	if err != nil {
		slog.Warn("rejecting malformed fail callback", "error", err)
		c.redirectFailed(w, r, "", "INVALID_CALLBACK")
		return
	}

	session, err := c.sessions.GetPaymentSession(r.Context(), result.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("fail callback for unknown order", "order_id", result.OrderID)
			c.redirectFailed(w, r, result.OrderID, "UNKNOWN_ORDER")
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if session.Status.Final() {
		slog.Warn("fail callback for finalized order",
			"order_id", result.OrderID,
			"status", session.Status,
		)
		if session.Status == models.PaymentSucceeded {
			c.redirectComplete(w, r, result.OrderID)
			return
		}
		c.redirectFailed(w, r, result.OrderID, result.FailureCode)
		return
	}

	if err := c.sessions.UpdatePaymentSessionStatus(r.Context(), result.OrderID, models.PaymentFailed); err != nil {
		slog.Error("failed to mark payment session failed", "order_id", result.OrderID, "error", err)
	}

	slog.Info("payment failed",
		"order_id", result.OrderID,
		"code", result.FailureCode,
		"message", result.FailureMsg,
	)
	c.redirectFailed(w, r, result.OrderID, result.FailureCode)
}

// clearDrafts drops the order's submitted draft and, when it can still be
// derived, the passenger form draft. A paid booking has nothing left to
// refill.
func (c *Callback) clearDrafts(r *http.Request, orderID string) {
	ctx := r.Context()
	orderKey := draftstore.OrderDraftKey(orderID)

	var draft models.ReservationDraft
	if found, err := c.drafts.Load(ctx, orderKey, &draft); err == nil && found {
		key := draftstore.PassengerDraftKey(draft.OutboundOffer.ID, draft.OutboundOffer.TravelDate, draft.PartySize)
		if err := c.drafts.Clear(ctx, key); err != nil {
			slog.Warn("failed to clear passenger draft", "key", key, "error", err)
		}
	}
	if err := c.drafts.Clear(ctx, orderKey); err != nil {
		slog.Warn("failed to clear order draft", "order_id", orderID, "error", err)
	}
}

func (c *Callback) redirectComplete(w http.ResponseWriter, r *http.Request, orderID string) {
	http.Redirect(w, r, c.webBaseURL+"/bookings/complete?order_id="+url.QueryEscape(orderID), http.StatusSeeOther)
}

func (c *Callback) redirectFailed(w http.ResponseWriter, r *http.Request, orderID, code string) {
	q := url.Values{}
	if orderID != "" {
		q.Set("order_id", orderID)
	}
	if code != "" {
		q.Set("code", code)
	}
	target := c.webBaseURL + "/bookings/failed"
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
