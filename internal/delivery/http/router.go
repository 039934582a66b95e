package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"eventspots/internal/delivery/http/controllers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/domain"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Auth         *controllers.AuthController
	Events       *controllers.EventController
	Public       *controllers.PublicController
	Registration *controllers.RegistrationController
	Payments     *controllers.PaymentController
	CheckIn      *controllers.CheckInController
}

// NewRouter initializes the HTTP router with all application routes.
// Admin routes are wrapped with RequireAuth; the public registration flow,
// the gateway callback, and the token-guarded check-in flow are not.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("GET /auth/me", auth(c.Auth.Me))

	// Admin: events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(c.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Events.DeleteEvent))

	// Admin: registrations
	mux.HandleFunc("GET /events/{eventID}/registrations", auth(c.Registration.List))
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(c.Registration.ManualAdd))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(c.Registration.Get))
	mux.HandleFunc("POST /registrations/{registrationID}/promote", auth(c.Registration.Promote))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", auth(c.Registration.Cancel))
	mux.HandleFunc("PATCH /registrations/{registrationID}/spots", auth(c.Registration.UpdateSpots))
	mux.HandleFunc("DELETE /registrations/{registrationID}", auth(c.Registration.Delete))

	// Admin: payments
	mux.HandleFunc("GET /registrations/{registrationID}/payment", auth(c.Payments.GetByRegistration))
	mux.HandleFunc("POST /payments/{paymentID}/refund", auth(c.Payments.Refund))

	// Public registration flow
	mux.HandleFunc("GET /p/{schoolSlug}/{eventSlug}", c.Public.GetEvent)
	mux.HandleFunc("POST /p/{schoolSlug}/{eventSlug}/registrations", c.Public.Register)
	mux.HandleFunc("POST /cancel/{token}", c.Public.Cancel)

	// Gateway callback. The gateway delivers the customer redirect as GET and
	// the server notification as POST; both carry the same signed parameters.
	mux.HandleFunc("GET /payments/callback", c.Payments.Callback)
	mux.HandleFunc("POST /payments/callback", c.Payments.Callback)

	// Check-in (event token guarded, no admin session)
	mux.HandleFunc("POST /checkin/{eventID}/registrations/{registrationID}", c.CheckIn.CheckIn)
	mux.HandleFunc("POST /checkin/{eventID}/registrations/{registrationID}/undo", c.CheckIn.UndoCheckIn)
	mux.HandleFunc("GET /checkin/{eventID}/stats", c.CheckIn.Stats)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
