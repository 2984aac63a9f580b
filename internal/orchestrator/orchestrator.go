// Package orchestrator sequences reservation creation, payment-session
// creation, and the hand-off to the external payment gateway.
//
// The state machine:
//
//	Idle --Submit--> Creating --ok--> Ready --Pay--> Processing
//	Creating --auth required--> Idle (caller persists the draft and redirects to login)
//	Creating --other error--> Idle (draft retained in memory only)
//	Ready --pay error--> Ready (caller may retry Pay)
//
// Once Processing is entered there is no cancellation path: control has left
// this service, and the outcome arrives only through the gateway's
// success/fail callback redirect.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hyunwoo-jung/tripline/internal/gateway"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// State is the orchestrator's current position in the booking workflow.
type State string

const (
	StateIdle       State = "idle"
	StateCreating   State = "creating"
	StateReady      State = "ready"
	StateProcessing State = "processing"
)

var (
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrValidation        = errors.New("draft validation failed")
	// ErrPriceMismatch means the recomputed total no longer matches the
	// total captured at submission. The stored amount is never trusted
	// over the recomputation.
	ErrPriceMismatch = errors.New("recomputed total does not match submitted total")
)

// PartialFailureError reports that a reservation was created but the
// payment session was not. The reservation is left in place on the backend:
// it carries no charge until paid, and the id is surfaced so the failure is
// never silently masked.
type PartialFailureError struct {
	ReservationID uuid.UUID
	Err           error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("reservation %s created but payment session failed: %v", e.ReservationID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// SessionStore persists payment sessions so a gateway callback arriving on
// a fresh request can be correlated back to its reservation.
type SessionStore interface {
	SavePaymentSession(ctx context.Context, session *models.PaymentSession) error
	UpdatePaymentSessionStatus(ctx context.Context, orderID string, status models.PaymentSessionStatus) error
}

// Options configures an orchestrator.
type Options struct {
	Currency   string
	SuccessURL string
	FailURL    string
}

// Orchestrator drives one booking attempt from draft to gateway hand-off.
// Methods are safe for concurrent use, though the realistic access pattern
// is strictly sequential.
type Orchestrator struct {
	backend  travelapi.Client
	gw       gateway.Gateway
	sessions SessionStore
	validate *validator.Validate
	opts     Options

	mu             sync.Mutex
	state          State
	draft          *models.ReservationDraft
	session        *models.PaymentSession
	submittedTotal int64
}

// New creates an orchestrator in the Idle state.
func New(backend travelapi.Client, gw gateway.Gateway, sessions SessionStore, opts Options) *Orchestrator {
	if opts.Currency == "" {
		opts.Currency = "KRW"
	}
	return &Orchestrator{
		backend:  backend,
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current workflow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Draft returns the in-flight draft, if any. The auth-interrupt path uses
// it to persist the draft before redirecting to login.
func (o *Orchestrator) Draft() *models.ReservationDraft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// Session returns the current payment session, if any.
func (o *Orchestrator) Session() *models.PaymentSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Submit creates a reservation and then a payment session for the draft.
// The two backend calls are sequential and not wrapped in a compensating
// transaction: if the second fails the reservation stays behind, reported
// through PartialFailureError. An authorization failure returns the
// orchestrator to Idle with the draft retained; every error path surfaces
// at the call site rather than being retried here.
func (o *Orchestrator) Submit(ctx context.Context, token string, draft *models.ReservationDraft) (*models.PaymentSession, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: submit in state %s", ErrInvalidTransition, o.state)
	}
	o.state = StateCreating
	o.draft = draft
	o.mu.Unlock()

	session, err := o.doSubmit(ctx, token, draft)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		// Draft stays in memory; whether it is also persisted durably
		// is the caller's decision (it is, on the auth path).
		o.state = StateIdle
		return nil, err
	}

	o.state = StateReady
	o.session = session
	o.submittedTotal = session.Amount
	return session, nil
}

func (o *Orchestrator) doSubmit(ctx context.Context, token string, draft *models.ReservationDraft) (*models.PaymentSession, error) {
	if err := o.validateDraft(draft); err != nil {
		return nil, err
	}

	total, err := draft.TotalPrice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	offerIDs := make([]string, 0, 2)
	for _, offer := range draft.Offers() {
		offerIDs = append(offerIDs, offer.ID)
	}

	reservationID, err := o.backend.CreateReservation(ctx, token, travelapi.ReservationRequest{
		OfferIDs:   offerIDs,
		Passengers: draft.Passengers,
		Contact:    draft.Contact,
		CabinClass: draft.CabinClass,
		TotalPrice: total,
		Currency:   o.opts.Currency,
	})
	if err != nil {
		if errors.Is(err, travelapi.ErrUnauthorized) {
			slog.Info("submit interrupted by auth failure",
				"offer_id", draft.OutboundOffer.ID,
			)
			return nil, err
		}
		return nil, fmt.Errorf("creating reservation: %w", err)
	}

	slog.Info("reservation created",
		"reservation_id", reservationID,
		"total", total,
		"currency", o.opts.Currency,
	)

	session, err := o.backend.CreatePaymentSession(ctx, token, travelapi.PaymentSessionRequest{
		ReservationID: reservationID,
		Amount:        total,
		Currency:      o.opts.Currency,
		OrderName:     orderName(draft),
		SuccessURL:    o.opts.SuccessURL,
		FailURL:       o.opts.FailURL,
	})
	if err != nil {
		slog.Error("payment session creation failed after reservation",
			"reservation_id", reservationID,
			"error", err,
		)
		return nil, &PartialFailureError{ReservationID: reservationID, Err: err}
	}

	session.ReservationID = reservationID
	session.Status = models.PaymentReady
	if err := o.sessions.SavePaymentSession(ctx, session); err != nil {
		return nil, &PartialFailureError{ReservationID: reservationID, Err: fmt.Errorf("persisting payment session: %w", err)}
	}

	return session, nil
}

// Resume restores a Ready orchestrator from a persisted draft and payment
// session. Submission has already happened on an earlier request; only the
// pay hand-off remains. The session amount stands in for the total captured
// at submission so the pay-time revalidation still has both sides.
func (o *Orchestrator) Resume(draft *models.ReservationDraft, session *models.PaymentSession) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return fmt.Errorf("%w: resume in state %s", ErrInvalidTransition, o.state)
	}
	if session.Status != models.PaymentReady {
		return fmt.Errorf("%w: resume with session status %s", ErrInvalidTransition, session.Status)
	}
	o.state = StateReady
	o.draft = draft
	o.session = session
	o.submittedTotal = session.Amount
	return nil
}

// Pay re-validates the total and hands the payment session to the external
// gateway. On success the returned checkout URL is where the payer must be
// sent; the orchestrator's responsibility ends there. A gateway error
// returns the orchestrator to Ready so Pay can be retried.
func (o *Orchestrator) Pay(ctx context.Context, method string) (string, error) {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: pay in state %s", ErrInvalidTransition, o.state)
	}
	draft := o.draft
	session := o.session
	submitted := o.submittedTotal
	o.mu.Unlock()

	total, err := draft.TotalPrice()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if total != submitted || total != session.Amount {
		return "", fmt.Errorf("%w: submitted %d, recomputed %d", ErrPriceMismatch, submitted, total)
	}

	checkoutURL, err := o.gw.Initiate(ctx, gateway.CheckoutRequest{
		Method:       method,
		Amount:       gateway.Amount{Currency: session.Currency, Value: session.Amount},
		OrderID:      session.OrderID,
		OrderName:    session.OrderName,
		SuccessURL:   session.SuccessURL,
		FailURL:      session.FailURL,
		CustomerName: draft.Contact.Name,
	})
	if err != nil {
		return "", fmt.Errorf("initiating gateway checkout: %w", err)
	}

	if err := o.sessions.UpdatePaymentSessionStatus(ctx, session.OrderID, models.PaymentProcessing); err != nil {
		slog.Error("failed to mark payment session processing",
			"order_id", session.OrderID,
			"error", err,
		)
	}

	o.mu.Lock()
	o.state = StateProcessing
	o.session.Status = models.PaymentProcessing
	o.mu.Unlock()

	slog.Info("payment hand-off initiated",
		"order_id", session.OrderID,
		"amount", session.Amount,
	)
	return checkoutURL, nil
}

// Reset returns the orchestrator to Idle, dropping any in-memory draft and
// session. The auth-interrupt path calls it after persisting the draft.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.draft = nil
	o.session = nil
	o.submittedTotal = 0
}

func (o *Orchestrator) validateDraft(draft *models.ReservationDraft) error {
	if err := o.validate.Struct(draft); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(draft.Passengers) != draft.PartySize {
		return fmt.Errorf("%w: %d passengers for party size %d", ErrValidation, len(draft.Passengers), draft.PartySize)
	}
	if draft.ReturnOffer != nil && draft.ReturnOffer.TravelDate < draft.OutboundOffer.TravelDate {
		return fmt.Errorf("%w: return date precedes outbound date", ErrValidation)
	}
	return nil
}

// orderName is the human-readable label shown on the gateway's checkout
// page, e.g. "ICN-JFK x2".
func orderName(draft *models.ReservationDraft) string {
	name := fmt.Sprintf("%s-%s x%d", draft.OutboundOffer.Origin, draft.OutboundOffer.Destination, draft.PartySize)
	if draft.ReturnOffer != nil {
		name = fmt.Sprintf("%s-%s round trip x%d", draft.OutboundOffer.Origin, draft.OutboundOffer.Destination, draft.PartySize)
	}
	return name
}
