// Package authflow handles authorization failures that interrupt a booking
// mid-workflow. The in-flight draft is persisted durably before the user is
// redirected to authenticate, so nothing typed is lost. Resumption is
// deliberately manual: after login the owning view consumes the persisted
// draft exactly once to refill the form, and the user must retrigger the
// submit themselves. Auto-resubmitting would place a reservation the user
// never re-confirmed.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hyunwoo-jung/tripline/internal/draftstore"
	"github.com/hyunwoo-jung/tripline/internal/orchestrator"
	"github.com/hyunwoo-jung/tripline/internal/travelapi"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

// Interrupt reports that a workflow was stopped by an authorization failure
// and where the user must be sent to authenticate. It satisfies error so it
// flows through the same return paths as ordinary failures, but callers are
// expected to branch on it rather than surface it as a generic error.
type Interrupt struct {
	RedirectURL string
	DraftSaved  bool
}

func (i *Interrupt) Error() string {
	return "authentication required, draft " + map[bool]string{true: "saved", false: "not saved"}[i.DraftSaved]
}

// Handler detects authorization failures around orchestrator calls.
type Handler struct {
	drafts   draftstore.Store
	loginURL string
}

// NewHandler creates a Handler. loginURL is the authentication entry point
// users are redirected to.
func NewHandler(drafts draftstore.Store, loginURL string) *Handler {
	return &Handler{drafts: drafts, loginURL: loginURL}
}

// GuardSubmit runs Submit on the orchestrator and intercepts an
// authorization failure: the draft is persisted under the well-known
// pending-reservation key, the orchestrator returns to Idle, and an
// *Interrupt carrying the login redirect is returned. Every other outcome
// passes through untouched.
func (h *Handler) GuardSubmit(ctx context.Context, o *orchestrator.Orchestrator, token string, draft *models.ReservationDraft, returnTo string) (*models.PaymentSession, error) {
	session, err := o.Submit(ctx, token, draft)
	if err == nil || !errors.Is(err, travelapi.ErrUnauthorized) {
		return session, err
	}

	saved := true
	if saveErr := h.drafts.Save(ctx, draftstore.PendingReservationKey(), draft); saveErr != nil {
		// The redirect still happens; losing the draft is better than
		// leaving the user stuck behind an expired session.
		slog.Error("failed to persist interrupted draft",
			"key", draftstore.PendingReservationKey(),
			"error", saveErr,
		)
		saved = false
	}

	o.Reset()

	slog.Info("workflow interrupted for authentication",
		"draft_saved", saved,
		"return_to", returnTo,
	)
	return nil, &Interrupt{RedirectURL: h.redirectURL(returnTo), DraftSaved: saved}
}

// ConsumeResumedDraft loads the pending interrupted draft and clears it, so
// a second call finds nothing. Returns false when no draft is pending.
func (h *Handler) ConsumeResumedDraft(ctx context.Context) (*models.ReservationDraft, bool, error) {
	var draft models.ReservationDraft
	found, err := h.drafts.Load(ctx, draftstore.PendingReservationKey(), &draft)
	if err != nil {
		return nil, false, fmt.Errorf("loading interrupted draft: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	if err := h.drafts.Clear(ctx, draftstore.PendingReservationKey()); err != nil {
		return nil, false, fmt.Errorf("clearing interrupted draft: %w", err)
	}
	return &draft, true, nil
}

func (h *Handler) redirectURL(returnTo string) string {
	if returnTo == "" {
		return h.loginURL
	}
	return h.loginURL + "?return_to=" + url.QueryEscape(returnTo)
}
