package handler_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hyunwoo-jung/tripline/internal/store"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
	"github.com/stretchr/testify/require"
)

// ─── test fixtures ───────────────────────────────────────────────────────────

var (
	testJobID         = uuid.MustParse("dddddddd-dddd-dddd-dddd-dddddddddddd")
	testItineraryID   = uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")
	testReservationID = uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc")
)

func validDraft() models.ReservationDraft {
	return models.ReservationDraft{
		OutboundOffer: models.Offer{
			ID:          "OF-100",
			Carrier:     "KE",
			Number:      "KE081",
			Origin:      "ICN",
			Destination: "JFK",
			TravelDate:  "2026-10-01",
			BaseFare:    100_000,
			Currency:    "KRW",
		},
		Passengers: []models.Passenger{
			{Name: "Kim Minji", BirthDate: "1990-04-12", DocumentNumber: "M1234567", AgeBand: models.AgeBandAdult},
			{Name: "Kim Junho", BirthDate: "2018-07-02", DocumentNumber: "M7654321", AgeBand: models.AgeBandChild},
		},
		Contact: models.ContactInfo{
			Name:  "Kim Minji",
			Email: "minji@example.com",
			Phone: "+82-10-1234-5678",
		},
		CabinClass: models.CabinEconomy,
		PartySize:  2,
	}
}

// ─── mock backend ────────────────────────────────────────────────────────────

type mockBackend struct {
	mu sync.Mutex

	createdJob *models.Job
	createErr  error

	// jobs is returned in order by GetItineraryJob; the last entry repeats.
	jobs    []*models.Job
	jobErrs []error
	fetches int

	reservationID uuid.UUID
	resErr        error

	session *models.PaymentSession
	sessErr error
}

func (m *mockBackend) CreateItineraryJob(_ context.Context, _ string, _ models.ItineraryRequest) (*models.Job, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createdJob, nil
}

func (m *mockBackend) GetItineraryJob(_ context.Context, _ string, _ uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.fetches
	m.fetches++
	if i < len(m.jobErrs) && m.jobErrs[i] != nil {
		return nil, m.jobErrs[i]
	}
	if len(m.jobs) == 0 {
		return nil, travelapi.ErrBackendError
	}
	if i >= len(m.jobs) {
		i = len(m.jobs) - 1
	}
	return m.jobs[i], nil
}

func (m *mockBackend) CreateReservation(_ context.Context, _ string, _ travelapi.ReservationRequest) (uuid.UUID, error) {
	if m.resErr != nil {
		return uuid.Nil, m.resErr
	}
	return m.reservationID, nil
}

func (m *mockBackend) CreatePaymentSession(_ context.Context, _ string, req travelapi.PaymentSessionRequest) (*models.PaymentSession, error) {
	if m.sessErr != nil {
		return nil, m.sessErr
	}
	if m.session != nil {
		return m.session, nil
	}
	return &models.PaymentSession{
		OrderID:    "ord-test-1",
		Amount:     req.Amount,
		Currency:   req.Currency,
		OrderName:  req.OrderName,
		SuccessURL: req.SuccessURL,
		FailURL:    req.FailURL,
	}, nil
}

func (m *mockBackend) Ready(_ context.Context) error { return nil }

var _ travelapi.Client = (*mockBackend)(nil)

// ─── mock session store ──────────────────────────────────────────────────────

type mockSessions struct {
	mu           sync.Mutex
	sessions     map[string]*models.PaymentSession
	saveErr      error
	createdKeys  []*models.APIKey
	createKeyErr error
	revokeKeyErr error
}

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: make(map[string]*models.PaymentSession)}
}

func (m *mockSessions) Ping(_ context.Context) error { return nil }
func (m *mockSessions) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (m *mockSessions) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (m *mockSessions) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if m.createKeyErr != nil {
		return m.createKeyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdKeys = append(m.createdKeys, key)
	return nil
}

func (m *mockSessions) RevokeAPIKey(_ context.Context, _ uuid.UUID) error { return m.revokeKeyErr }

func (m *mockSessions) SavePaymentSession(_ context.Context, session *models.PaymentSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.OrderID] = &cp
	return nil
}

func (m *mockSessions) GetPaymentSession(_ context.Context, orderID string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessions) UpdatePaymentSessionStatus(_ context.Context, orderID string, status models.PaymentSessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orderID]
	if !ok {
		return store.ErrNotFound
	}
	s.Status = status
	return nil
}

var _ store.Store = (*mockSessions)(nil)

// ─── helpers ─────────────────────────────────────────────────────────────────

func dataBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, _ := body["data"].(map[string]any)
	return data
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}
