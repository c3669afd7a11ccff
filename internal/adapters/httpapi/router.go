package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: it wires routes and middleware and
// delegates everything else to the Server handlers. authMW is one of
// NewAuthMiddleware or NewDevAuthMiddleware.
func NewRouter(s *Server, authMW func(http.Handler) http.Handler, log *slog.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if log != nil {
		r.Use(NewSlogLogger(log))
	}
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(NewCORSHandler(corsOrigins))
	}
	r.Use(authMW)

	// Health endpoint is unauthenticated (the auth middleware skips it).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/locations/search", s.handleLocationSearch)
	r.Post("/flights/search", s.handleFlightSearch)
	r.Post("/destination-suggestions", s.handleSuggestions)

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.handleCreateTrip)
		r.Get("/", s.handleListTrips)
		r.Route("/{tripId}", func(r chi.Router) {
			r.Get("/", s.handleGetTrip)
			r.Patch("/", s.handleUpdateTrip)
			r.Put("/origin", s.handleSetOrigin)
			r.Post("/suggestion-likes", s.handleSuggestionLike)
			r.Post("/invites", s.handleInvite)
			r.Post("/invites/accept", s.handleAcceptInvite)
			r.Post("/accommodation", s.handleCreateAccommodation)
			r.Get("/accommodation", s.handleGetAccommodation)
			r.Post("/accommodation/{accommodationId}/shares/{memberId}/paid", s.handleMarkSharePaid)
		})
	})

	return r
}
