package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyunwoo-jung/tripline/internal/api/handler"
	"github.com/hyunwoo-jung/tripline/internal/poller"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itineraryBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(models.ItineraryRequest{
		Destination: "Tokyo",
		StartDate:   "2026-10-01",
		EndDate:     "2026-10-05",
		PartySize:   2,
		Interests:   []string{"food", "museums"},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func withJobID(r *http.Request, jobID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobID", jobID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateItinerary_Accepted(t *testing.T) {
	backend := &mockBackend{createdJob: &models.Job{ID: testJobID, Status: models.JobStatusPending}}
	h := handler.NewCreateItineraryHandler(backend)

	req := httptest.NewRequest("POST", "/api/v1/itineraries", itineraryBody(t))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, testJobID.String(), data["id"])
	assert.Equal(t, models.JobStatusPending, data["status"])
}

func TestCreateItinerary_InvalidJSON(t *testing.T) {
	h := handler.NewCreateItineraryHandler(&mockBackend{})

	req := httptest.NewRequest("POST", "/api/v1/itineraries", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorBody(t, w)["code"])
}

func TestCreateItinerary_ValidationError(t *testing.T) {
	h := handler.NewCreateItineraryHandler(&mockBackend{})

	data, _ := json.Marshal(models.ItineraryRequest{Destination: "Tokyo"}) // missing dates, party size
	req := httptest.NewRequest("POST", "/api/v1/itineraries", bytes.NewBuffer(data))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorBody(t, w)["code"])
}

func TestCreateItinerary_Unauthorized(t *testing.T) {
	backend := &mockBackend{createErr: travelapi.ErrUnauthorized}
	h := handler.NewCreateItineraryHandler(backend)

	req := httptest.NewRequest("POST", "/api/v1/itineraries", itineraryBody(t))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_REQUIRED", errorBody(t, w)["code"])
}

func TestGetItineraryJob_OK(t *testing.T) {
	backend := &mockBackend{jobs: []*models.Job{{ID: testJobID, Status: models.JobStatusPending}}}
	h := handler.NewGetItineraryJobHandler(backend)

	req := withJobID(httptest.NewRequest("GET", "/api/v1/itineraries/jobs/"+testJobID.String(), nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.JobStatusPending, dataBody(t, w)["status"])
}

func TestGetItineraryJob_BadID(t *testing.T) {
	h := handler.NewGetItineraryJobHandler(&mockBackend{})

	req := withJobID(httptest.NewRequest("GET", "/api/v1/itineraries/jobs/not-a-uuid", nil), "not-a-uuid")
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func waitOpts() poller.Options {
	return poller.Options{Interval: time.Millisecond, MaxAttempts: 5}
}

func TestWaitItinerary_SucceedsAfterPending(t *testing.T) {
	itin := testItineraryID
	backend := &mockBackend{jobs: []*models.Job{
		{ID: testJobID, Status: models.JobStatusPending},
		{ID: testJobID, Status: models.JobStatusPending},
		{ID: testJobID, Status: models.JobStatusSuccess, ItineraryID: &itin},
	}}
	h := handler.NewWaitItineraryHandler(backend, waitOpts())

	req := withJobID(httptest.NewRequest("POST", "/wait", nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "success", data["outcome"])
	assert.Equal(t, float64(3), data["attempts"])
	assert.Equal(t, itin.String(), data["itinerary_id"])
}

func TestWaitItinerary_JobFailed(t *testing.T) {
	msg := "no availability for the requested dates"
	backend := &mockBackend{jobs: []*models.Job{
		{ID: testJobID, Status: models.JobStatusFailed, ErrorMessage: &msg},
	}}
	h := handler.NewWaitItineraryHandler(backend, waitOpts())

	req := withJobID(httptest.NewRequest("POST", "/wait", nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "failed", data["outcome"])
	assert.Equal(t, msg, data["message"])
}

func TestWaitItinerary_Timeout(t *testing.T) {
	backend := &mockBackend{jobs: []*models.Job{
		{ID: testJobID, Status: models.JobStatusPending},
	}}
	h := handler.NewWaitItineraryHandler(backend, waitOpts())

	req := withJobID(httptest.NewRequest("POST", "/wait", nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "timeout", data["outcome"])
	assert.Equal(t, float64(5), data["attempts"])
}

func TestWaitItinerary_TransientErrorsThenSuccess(t *testing.T) {
	itin := testItineraryID
	backend := &mockBackend{
		jobErrs: []error{travelapi.ErrBackendUnreachable, travelapi.ErrBackendTimeout},
		jobs: []*models.Job{
			nil, nil,
			{ID: testJobID, Status: models.JobStatusSuccess, ItineraryID: &itin},
		},
	}
	h := handler.NewWaitItineraryHandler(backend, waitOpts())

	req := withJobID(httptest.NewRequest("POST", "/wait", nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, "success", data["outcome"])
	assert.Equal(t, float64(3), data["attempts"])
}

func TestWaitItinerary_AuthFailureStopsPolling(t *testing.T) {
	backend := &mockBackend{
		jobErrs: []error{travelapi.ErrUnauthorized, travelapi.ErrUnauthorized, travelapi.ErrUnauthorized, travelapi.ErrUnauthorized, travelapi.ErrUnauthorized},
	}
	h := handler.NewWaitItineraryHandler(backend, waitOpts())

	req := withJobID(httptest.NewRequest("POST", "/wait", nil), testJobID.String())
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_REQUIRED", errorBody(t, w)["code"])
	backend.mu.Lock()
	fetches := backend.fetches
	backend.mu.Unlock()
	assert.Less(t, fetches, 5, "polling should stop at the first auth failure")
}
