package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	mw "github.com/hyunwoo-jung/tripline/internal/api/middleware"
	"github.com/hyunwoo-jung/tripline/internal/api/response"
	"github.com/hyunwoo-jung/tripline/internal/poller"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// ItineraryBackend is the subset of the core backend API the itinerary
// handlers use.
type ItineraryBackend interface {
	CreateItineraryJob(ctx context.Context, token string, req models.ItineraryRequest) (*models.Job, error)
	GetItineraryJob(ctx context.Context, token string, jobID uuid.UUID) (*models.Job, error)
}

// NewCreateItineraryHandler returns an http.HandlerFunc for
// POST /api/v1/itineraries. The backend generates itineraries
// asynchronously; the handler returns the job to poll.
func NewCreateItineraryHandler(backend ItineraryBackend) http.HandlerFunc {
	validate := validator.New()
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ItineraryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if err := validate.Struct(req); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}

		job, err := backend.CreateItineraryJob(r.Context(), mw.GetUserToken(r), req)
		if err != nil {
			writeBackendError(w, err)
			return
		}

		response.Accepted(w, job)
	}
}

// NewGetItineraryJobHandler returns an http.HandlerFunc for
// GET /api/v1/itineraries/jobs/{jobID}. One status fetch, no waiting.
func NewGetItineraryJobHandler(backend ItineraryBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := backend.GetItineraryJob(r.Context(), mw.GetUserToken(r), jobID)
		if err != nil {
			writeBackendError(w, err)
			return
		}

		response.JSON(w, job)
	}
}

type waitResponse struct {
	Outcome     string     `json:"outcome"`
	Attempts    int        `json:"attempts"`
	ItineraryID *uuid.UUID `json:"itinerary_id,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// NewWaitItineraryHandler returns an http.HandlerFunc for
// POST /api/v1/itineraries/jobs/{jobID}/wait. It polls the backend until the
// job reaches a terminal state or the attempt budget runs out, and reports
// the distinct outcome either way. Timeout means the job's final state is
// unknown, not that it failed.
func NewWaitItineraryHandler(backend ItineraryBackend, opts poller.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		token := mw.GetUserToken(r)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// An auth failure is not transient; stop the session instead of
		// burning the remaining attempts on it.
		var authErr error
		fetch := func(ctx context.Context, _ string) (poller.Snapshot, error) {
			job, err := backend.GetItineraryJob(ctx, token, jobID)
			if err != nil {
				if errors.Is(err, travelapi.ErrUnauthorized) {
					authErr = err
					cancel()
				}
				return poller.Snapshot{}, err
			}
			snap := poller.Snapshot{State: poller.State(job.Status), Result: job}
			if job.ErrorMessage != nil {
				snap.Message = *job.ErrorMessage
			}
			return snap, nil
		}

		result := poller.Poll(ctx, jobID.String(), fetch, opts)
		if authErr != nil {
			writeBackendError(w, authErr)
			return
		}
		if result.Outcome == poller.OutcomeCancelled {
			// Client went away; nothing useful to write.
			return
		}

		resp := waitResponse{
			Outcome:  string(result.Outcome),
			Attempts: result.Attempts,
			Message:  result.Message,
		}
		if job, ok := result.Result.(*models.Job); ok && job != nil {
			resp.ItineraryID = job.ItineraryID
		}
		response.JSON(w, resp)
	}
}

// writeBackendError maps core-backend client errors onto the response
// envelope. Shared by every handler that proxies the backend.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, travelapi.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "AUTH_REQUIRED",
			"Backend session is missing or expired", nil)
	case errors.Is(err, travelapi.ErrBackendTimeout):
		response.Error(w, http.StatusGatewayTimeout, "BACKEND_TIMEOUT",
			"The core backend took too long to respond", nil)
	case errors.Is(err, travelapi.ErrBackendUnreachable):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNREACHABLE",
			"The core backend is unreachable", nil)
	case errors.Is(err, travelapi.ErrBackendError):
		response.Error(w, http.StatusBadGateway, "BACKEND_ERROR",
			"The core backend returned an error", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
