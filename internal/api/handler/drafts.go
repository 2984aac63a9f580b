package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyunwoo-jung/tripline/internal/api/response"
	"github.com/hyunwoo-jung/tripline/internal/draftstore"
)

// Drafts exposes the durable draft store over HTTP: per-booking passenger
// form values and per-field recent-value history. Losing a draft is never
// fatal to a booking, so every load degrades to "nothing saved".
type Drafts struct {
	store draftstore.Store
}

// NewDrafts creates the draft handler set.
func NewDrafts(store draftstore.Store) *Drafts {
	return &Drafts{store: store}
}

// passengerDraftKey derives the storage key from the identifying query or
// body parameters. All three are required: the key must pin one booking
// attempt, or drafts for different trips would bleed into each other.
func passengerDraftKey(offerID, travelDate, partySize string) (string, bool) {
	if offerID == "" || travelDate == "" {
		return "", false
	}
	n, err := strconv.Atoi(partySize)
	if err != nil || n < 1 {
		return "", false
	}
	return draftstore.PassengerDraftKey(offerID, travelDate, n), true
}

type savePassengersRequest struct {
	OfferID    string            `json:"offer_id"`
	TravelDate string            `json:"travel_date"`
	PartySize  int               `json:"party_size"`
	Fields     map[string]string `json:"fields"`
}

// SavePassengers handles PUT /api/v1/drafts/passengers. Saving overwrites
// whatever was stored for the same booking.
func (h *Drafts) SavePassengers(w http.ResponseWriter, r *http.Request) {
	var req savePassengersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	key, ok := passengerDraftKey(req.OfferID, req.TravelDate, strconv.Itoa(req.PartySize))
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"offer_id, travel_date, and a positive party_size are required", nil)
		return
	}

	if err := h.store.Save(r.Context(), key, req.Fields); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save draft", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPassengers handles GET /api/v1/drafts/passengers. A missing or
// malformed draft both answer with null data.
func (h *Drafts) GetPassengers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, ok := passengerDraftKey(q.Get("offer_id"), q.Get("travel_date"), q.Get("party_size"))
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"offer_id, travel_date, and a positive party_size are required", nil)
		return
	}

	var fields map[string]string
	found, err := h.store.Load(r.Context(), key, &fields)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load draft", nil)
		return
	}
	if !found {
		response.JSON(w, nil)
		return
	}
	response.JSON(w, fields)
}

// ClearPassengers handles DELETE /api/v1/drafts/passengers.
func (h *Drafts) ClearPassengers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, ok := passengerDraftKey(q.Get("offer_id"), q.Get("travel_date"), q.Get("party_size"))
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"offer_id, travel_date, and a positive party_size are required", nil)
		return
	}

	if err := h.store.Clear(r.Context(), key); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear draft", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type appendHistoryRequest struct {
	Value string `json:"value"`
}

// AppendFieldHistory handles POST /api/v1/drafts/field-history/{field}.
// Duplicates move to the front; the list keeps its ten most recent values.
// The updated list is returned so form autocompletion needs no second call.
func (h *Drafts) AppendFieldHistory(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	var req appendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Value == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "value is required", nil)
		return
	}

	if err := h.store.AppendFieldHistory(r.Context(), field, req.Value); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record field value", nil)
		return
	}

	values, err := h.store.FieldHistory(r.Context(), field)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load field history", nil)
		return
	}
	response.JSON(w, values)
}

// GetFieldHistory handles GET /api/v1/drafts/field-history/{field}.
func (h *Drafts) GetFieldHistory(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	values, err := h.store.FieldHistory(r.Context(), field)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load field history", nil)
		return
	}
	if values == nil {
		values = []string{}
	}
	response.JSON(w, values)
}
