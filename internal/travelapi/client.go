// Package travelapi is the HTTP client for the travel platform's core
// backend: the itinerary job executor, the reservation service, and the
// payment-session service. The backend owns all of these resources; this
// package only consumes their contracts.
package travelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// Sentinel errors for backend failures. ErrUnauthorized is the one the
// orchestration layer branches on: it marks a forced re-authentication, not
// a generic failure.
var (
	ErrUnauthorized       = errors.New("backend rejected credentials")
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrBackendTimeout     = errors.New("backend request timeout")
	ErrBackendError       = errors.New("backend error")
)

// Client is the interface for the core backend.
type Client interface {
	CreateItineraryJob(ctx context.Context, token string, req models.ItineraryRequest) (*models.Job, error)
	GetItineraryJob(ctx context.Context, token string, jobID uuid.UUID) (*models.Job, error)
	CreateReservation(ctx context.Context, token string, req ReservationRequest) (uuid.UUID, error)
	CreatePaymentSession(ctx context.Context, token string, req PaymentSessionRequest) (*models.PaymentSession, error)
	Ready(ctx context.Context) error
}

// ReservationRequest is the input for creating a reservation.
type ReservationRequest struct {
	OfferIDs   []string           `json:"offer_ids"`
	Passengers []models.Passenger `json:"passengers"`
	Contact    models.ContactInfo `json:"contact"`
	CabinClass models.CabinClass  `json:"cabin_class"`
	TotalPrice int64              `json:"total_price"`
	Currency   string             `json:"currency"`
}

// PaymentSessionRequest is the input for creating a payment session against
// an existing reservation.
type PaymentSessionRequest struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	OrderName     string    `json:"order_name"`
	SuccessURL    string    `json:"success_url"`
	FailURL       string    `json:"fail_url"`
}

type reservationResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
}

// HTTPClient implements Client using the backend's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new backend HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateItineraryJob(ctx context.Context, token string, req models.ItineraryRequest) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, token, http.MethodPost, "/api/v1/itineraries/jobs", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) GetItineraryJob(ctx context.Context, token string, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	path := fmt.Sprintf("/api/v1/itineraries/jobs/%s", jobID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) CreateReservation(ctx context.Context, token string, req ReservationRequest) (uuid.UUID, error) {
	var resp reservationResponse
	if err := c.do(ctx, token, http.MethodPost, "/api/v1/reservations", req, &resp); err != nil {
		return uuid.Nil, err
	}
	if resp.ReservationID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: reservation created without id", ErrBackendError)
	}
	return resp.ReservationID, nil
}

func (c *HTTPClient) CreatePaymentSession(ctx context.Context, token string, req PaymentSessionRequest) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := c.do(ctx, token, http.MethodPost, "/api/v1/payment-sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: backend not ready (status %d)", ErrBackendUnreachable, resp.StatusCode)
	}

	return nil
}

func (c *HTTPClient) do(ctx context.Context, token, method, path string, body, dest any) error {
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = &bytes.Buffer{}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d", ErrBackendError, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}
