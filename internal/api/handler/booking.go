package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/hyunwoo-jung/tripline/internal/api/middleware"
	"github.com/hyunwoo-jung/tripline/internal/api/response"
	"github.com/hyunwoo-jung/tripline/internal/authflow"
	"github.com/hyunwoo-jung/tripline/internal/draftstore"
	"github.com/hyunwoo-jung/tripline/internal/gateway"
	"github.com/hyunwoo-jung/tripline/internal/orchestrator"
	"github.com/hyunwoo-jung/tripline/internal/store"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// Booking owns the reservation-then-payment workflow endpoints. Each submit
// runs a fresh orchestrator; the pay step rehydrates one from the persisted
// session and draft, so the workflow survives crossing requests.
type Booking struct {
	backend  travelapi.Client
	gw       gateway.Gateway
	sessions store.Store
	drafts   draftstore.Store
	auth     *authflow.Handler
	opts     orchestrator.Options
}

// NewBooking creates the booking handler set.
func NewBooking(backend travelapi.Client, gw gateway.Gateway, sessions store.Store, drafts draftstore.Store, auth *authflow.Handler, opts orchestrator.Options) *Booking {
	return &Booking{
		backend:  backend,
		gw:       gw,
		sessions: sessions,
		drafts:   drafts,
		auth:     auth,
		opts:     opts,
	}
}

type submitRequest struct {
	Draft    models.ReservationDraft `json:"draft"`
	ReturnTo string                  `json:"return_to"`
}

// Submit handles POST /api/v1/bookings: create the reservation, then the
// payment session. An auth failure persists the draft and answers with the
// login redirect instead of a session. A payment-session failure after the
// reservation succeeded is reported with the orphaned reservation id; the
// reservation is deliberately not rolled back.
func (h *Booking) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	orch := orchestrator.New(h.backend, h.gw, h.sessions, h.opts)
	session, err := h.auth.GuardSubmit(r.Context(), orch, mw.GetUserToken(r), &req.Draft, req.ReturnTo)
	if err != nil {
		var interrupt *authflow.Interrupt
		var partial *orchestrator.PartialFailureError
		switch {
		case errors.As(err, &interrupt):
			response.Error(w, http.StatusUnauthorized, "AUTH_REQUIRED",
				"Authentication required to complete the booking", map[string]any{
					"redirect_url": interrupt.RedirectURL,
					"draft_saved":  interrupt.DraftSaved,
				})
		case errors.As(err, &partial):
			response.Error(w, http.StatusBadGateway, "PARTIAL_FAILURE",
				"Reservation was created but the payment session was not", map[string]any{
					"reservation_id": partial.ReservationID,
				})
		case errors.Is(err, orchestrator.ErrValidation):
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		default:
			writeBackendError(w, err)
		}
		return
	}

	// The pay step recomputes the price from this draft on a later request.
	if err := h.drafts.Save(r.Context(), draftstore.OrderDraftKey(session.OrderID), &req.Draft); err != nil {
		slog.Error("failed to persist draft for order",
			"order_id", session.OrderID,
			"error", err,
		)
	}

	response.Created(w, session)
}

type payRequest struct {
	Method string `json:"method"`
}

type payResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// Pay handles POST /api/v1/bookings/{orderID}/pay: revalidate the price and
// hand the session to the payment gateway. The returned checkout URL is
// where the traveler's browser must be sent; from there the outcome arrives
// only through the gateway callbacks.
func (h *Booking) Pay(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Method == "" {
		req.Method = "card"
	}

	session, err := h.sessions.GetPaymentSession(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Unknown order", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load payment session", nil)
		return
	}
	if session.Status != models.PaymentReady {
		response.Error(w, http.StatusConflict, "INVALID_STATE",
			"Payment session is not ready", map[string]any{"status": session.Status})
		return
	}

	var draft models.ReservationDraft
	found, err := h.drafts.Load(r.Context(), draftstore.OrderDraftKey(orderID), &draft)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load draft", nil)
		return
	}
	if !found {
		// Without the draft the price cannot be revalidated, and an
		// unvalidated hand-off is worse than a failed one.
		response.Error(w, http.StatusConflict, "DRAFT_MISSING",
			"The draft backing this order is gone; submit the booking again", nil)
		return
	}

	orch := orchestrator.New(h.backend, h.gw, h.sessions, h.opts)
	if err := orch.Resume(&draft, session); err != nil {
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		return
	}

	checkoutURL, err := orch.Pay(r.Context(), req.Method)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrPriceMismatch):
			response.Error(w, http.StatusConflict, "PRICE_MISMATCH",
				"The recomputed total no longer matches the submitted total", nil)
		case errors.Is(err, orchestrator.ErrValidation):
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		case errors.Is(err, gateway.ErrGatewayRejected):
			response.Error(w, http.StatusUnprocessableEntity, "GATEWAY_REJECTED",
				"The payment gateway rejected the checkout", nil)
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			response.Error(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE",
				"The payment gateway is unavailable", nil)
		default:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
		}
		return
	}

	response.JSON(w, payResponse{CheckoutURL: checkoutURL})
}

// Resume handles GET /api/v1/bookings/resume: consume the auth-interrupted
// draft exactly once so the form can be refilled after login. Resubmission
// stays manual; this endpoint never places a reservation. Absence of a
// pending draft is an ordinary answer, not an error.
func (h *Booking) Resume(w http.ResponseWriter, r *http.Request) {
	draft, found, err := h.auth.ConsumeResumedDraft(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load pending draft", nil)
		return
	}
	if !found {
		response.JSON(w, nil)
		return
	}
	response.JSON(w, draft)
}
