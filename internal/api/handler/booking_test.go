package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hyunwoo-jung/tripline/internal/api/handler"
	"github.com/hyunwoo-jung/tripline/internal/authflow"
	"github.com/hyunwoo-jung/tripline/internal/draftstore"
	"github.com/hyunwoo-jung/tripline/internal/gateway"
	"github.com/hyunwoo-jung/tripline/internal/orchestrator"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	backend  *mockBackend
	gw       *gateway.MockGateway
	sessions *mockSessions
	drafts   *draftstore.MemoryStore
	handler  *handler.Booking
}

func newBookingFixture() *bookingFixture {
	backend := &mockBackend{reservationID: testReservationID}
	gw := gateway.NewMockGateway()
	sessions := newMockSessions()
	drafts := draftstore.NewMemoryStore()
	auth := authflow.NewHandler(drafts, "https://web.tripline.test/login")
	opts := orchestrator.Options{
		Currency:   "KRW",
		SuccessURL: "https://api.tripline.test/payments/callback/success",
		FailURL:    "https://api.tripline.test/payments/callback/fail",
	}
	return &bookingFixture{
		backend:  backend,
		gw:       gw,
		sessions: sessions,
		drafts:   drafts,
		handler:  handler.NewBooking(backend, gw, sessions, drafts, auth, opts),
	}
}

func submitBody(t *testing.T, draft models.ReservationDraft, returnTo string) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(map[string]any{"draft": draft, "return_to": returnTo})
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func withOrderID(r *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", orderID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSubmitBooking_Created(t *testing.T) {
	f := newBookingFixture()

	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), ""))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "ord-test-1", data["order_id"])
	// 1 adult + 1 child at 100,000 base, economy
	assert.Equal(t, float64(175_000), data["amount"])
	assert.Equal(t, string(models.PaymentReady), data["status"])

	// The session is persisted for callback correlation, and the draft is
	// persisted for the pay step.
	saved, err := f.sessions.GetPaymentSession(context.Background(), "ord-test-1")
	require.NoError(t, err)
	assert.Equal(t, testReservationID, saved.ReservationID)

	var draft models.ReservationDraft
	found, err := f.drafts.Load(context.Background(), draftstore.OrderDraftKey("ord-test-1"), &draft)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSubmitBooking_InvalidJSON(t *testing.T) {
	f := newBookingFixture()

	req := httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorBody(t, w)["code"])
}

func TestSubmitBooking_ValidationError(t *testing.T) {
	f := newBookingFixture()

	draft := validDraft()
	draft.Passengers = draft.Passengers[:1] // party size no longer matches

	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, draft, ""))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorBody(t, w)["code"])
}

func TestSubmitBooking_AuthInterrupt(t *testing.T) {
	f := newBookingFixture()
	f.backend.resErr = travelapi.ErrUnauthorized

	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), "/bookings/new"))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	errObj := errorBody(t, w)
	assert.Equal(t, "AUTH_REQUIRED", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, true, details["draft_saved"])
	assert.Equal(t, "https://web.tripline.test/login?return_to=%2Fbookings%2Fnew", details["redirect_url"])

	// The interrupted draft is persisted for the post-login resume.
	var draft models.ReservationDraft
	found, err := f.drafts.Load(context.Background(), draftstore.PendingReservationKey(), &draft)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSubmitBooking_PartialFailure(t *testing.T) {
	f := newBookingFixture()
	f.backend.sessErr = travelapi.ErrBackendError

	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), ""))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	errObj := errorBody(t, w)
	assert.Equal(t, "PARTIAL_FAILURE", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, testReservationID.String(), details["reservation_id"])
}

func TestSubmitBooking_BackendUnreachable(t *testing.T) {
	f := newBookingFixture()
	f.backend.resErr = travelapi.ErrBackendUnreachable

	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), ""))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "BACKEND_UNREACHABLE", errorBody(t, w)["code"])
}

// submitBooking drives a full successful submit and returns the order id.
func submitBooking(t *testing.T, f *bookingFixture) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), ""))
	w := httptest.NewRecorder()
	f.handler.Submit(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	return dataBody(t, w)["order_id"].(string)
}

func TestPayBooking_ReturnsCheckoutURL(t *testing.T) {
	f := newBookingFixture()
	orderID := submitBooking(t, f)

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{"method":"card"}`)), orderID)
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "https://checkout.gateway.test/"+orderID, data["checkout_url"])

	// The session moves to processing; the outcome now belongs to the
	// gateway callbacks.
	session, err := f.sessions.GetPaymentSession(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, session.Status)

	initiated := f.gw.Initiated()
	require.Len(t, initiated, 1)
	assert.Equal(t, int64(175_000), initiated[0].Amount.Value)
	assert.Equal(t, "card", initiated[0].Method)
}

func TestPayBooking_UnknownOrder(t *testing.T) {
	f := newBookingFixture()

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{}`)), "ord-missing")
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errorBody(t, w)["code"])
}

func TestPayBooking_NotReady(t *testing.T) {
	f := newBookingFixture()
	orderID := submitBooking(t, f)
	require.NoError(t, f.sessions.UpdatePaymentSessionStatus(context.Background(), orderID, models.PaymentSucceeded))

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{}`)), orderID)
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorBody(t, w)["code"])
}

func TestPayBooking_DraftMissing(t *testing.T) {
	f := newBookingFixture()
	orderID := submitBooking(t, f)
	require.NoError(t, f.drafts.Clear(context.Background(), draftstore.OrderDraftKey(orderID)))

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{}`)), orderID)
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DRAFT_MISSING", errorBody(t, w)["code"])
}

func TestPayBooking_PriceMismatch(t *testing.T) {
	f := newBookingFixture()
	orderID := submitBooking(t, f)

	// Tamper with the stored draft so the recomputed total changes.
	draft := validDraft()
	draft.OutboundOffer.BaseFare = 90_000
	require.NoError(t, f.drafts.Save(context.Background(), draftstore.OrderDraftKey(orderID), &draft))

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{}`)), orderID)
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PRICE_MISMATCH", errorBody(t, w)["code"])
	assert.Empty(t, f.gw.Initiated(), "no hand-off on a price mismatch")
}

func TestPayBooking_GatewayUnavailable(t *testing.T) {
	f := newBookingFixture()
	orderID := submitBooking(t, f)
	f.gw.FailWith(gateway.ErrGatewayUnavailable)

	req := withOrderID(httptest.NewRequest("POST", "/pay", bytes.NewBufferString(`{}`)), orderID)
	w := httptest.NewRecorder()
	f.handler.Pay(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "GATEWAY_UNAVAILABLE", errorBody(t, w)["code"])

	// The session stays ready; Pay can be retried.
	session, err := f.sessions.GetPaymentSession(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReady, session.Status)
}

func TestResumeDraft_ConsumesExactlyOnce(t *testing.T) {
	f := newBookingFixture()
	f.backend.resErr = travelapi.ErrUnauthorized

	// Interrupt a submit so a pending draft exists.
	req := httptest.NewRequest("POST", "/api/v1/bookings", submitBody(t, validDraft(), ""))
	f.handler.Submit(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/api/v1/bookings/resume", nil)
	w := httptest.NewRecorder()
	f.handler.Resume(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	require.NotNil(t, data)
	assert.Equal(t, float64(2), data["party_size"])

	// Second call finds nothing.
	w = httptest.NewRecorder()
	f.handler.Resume(w, httptest.NewRequest("GET", "/api/v1/bookings/resume", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body["data"])
}

func TestResumeDraft_NothingPending(t *testing.T) {
	f := newBookingFixture()

	w := httptest.NewRecorder()
	f.handler.Resume(w, httptest.NewRequest("GET", "/api/v1/bookings/resume", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body["data"])
}

// Guard against accidentally compensating: a partial failure must leave the
// reservation alone and report it, never delete it.
func TestSubmitBooking_PartialFailure_IsPartialFailureError(t *testing.T) {
	f := newBookingFixture()
	f.backend.sessErr = travelapi.ErrBackendTimeout

	orch := orchestrator.New(f.backend, f.gw, f.sessions, orchestrator.Options{Currency: "KRW"})
	draft := validDraft()
	_, err := orch.Submit(context.Background(), "token", &draft)

	var partial *orchestrator.PartialFailureError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, testReservationID, partial.ReservationID)
	assert.True(t, errors.Is(err, travelapi.ErrBackendTimeout))
}
