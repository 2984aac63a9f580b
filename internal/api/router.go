package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/hyunwoo-jung/tripline/internal/api/middleware"
	"github.com/hyunwoo-jung/tripline/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateItineraryHandler http.HandlerFunc
	GetItineraryJobHandler http.HandlerFunc
	WaitItineraryHandler   http.HandlerFunc

	SubmitBookingHandler http.HandlerFunc
	PayBookingHandler    http.HandlerFunc
	ResumeDraftHandler   http.HandlerFunc

	SavePassengerDraft  http.HandlerFunc
	GetPassengerDraft   http.HandlerFunc
	ClearPassengerDraft http.HandlerFunc
	AppendFieldHistory  http.HandlerFunc
	GetFieldHistory     http.HandlerFunc

	PaymentSuccessCallback http.HandlerFunc
	PaymentFailCallback    http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
// Gateway callbacks stay outside the authenticated group: they are browser
// redirects from the payment gateway and carry no API key.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/payments/callback/success", orNotImplemented(deps.PaymentSuccessCallback))
	r.Get("/payments/callback/fail", orNotImplemented(deps.PaymentFailCallback))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/itineraries", orNotImplemented(deps.CreateItineraryHandler))
		r.Get("/api/v1/itineraries/jobs/{jobID}", orNotImplemented(deps.GetItineraryJobHandler))
		r.Post("/api/v1/itineraries/jobs/{jobID}/wait", orNotImplemented(deps.WaitItineraryHandler))

		r.Post("/api/v1/bookings", orNotImplemented(deps.SubmitBookingHandler))
		r.Post("/api/v1/bookings/{orderID}/pay", orNotImplemented(deps.PayBookingHandler))
		r.Get("/api/v1/bookings/resume", orNotImplemented(deps.ResumeDraftHandler))

		r.Put("/api/v1/drafts/passengers", orNotImplemented(deps.SavePassengerDraft))
		r.Get("/api/v1/drafts/passengers", orNotImplemented(deps.GetPassengerDraft))
		r.Delete("/api/v1/drafts/passengers", orNotImplemented(deps.ClearPassengerDraft))
		r.Post("/api/v1/drafts/field-history/{field}", orNotImplemented(deps.AppendFieldHistory))
		r.Get("/api/v1/drafts/field-history/{field}", orNotImplemented(deps.GetFieldHistory))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
