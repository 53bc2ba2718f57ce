package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carenest/patient-portal/internal/appointments"
	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/booking"
	"github.com/carenest/patient-portal/internal/bookings"
	"github.com/carenest/patient-portal/internal/doctors"
	"github.com/carenest/patient-portal/internal/http/handlers"
	httpmiddleware "github.com/carenest/patient-portal/internal/http/middleware"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/internal/notify"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AuthJWTSecret      string
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler

	Health        *handlers.HealthHandler
	Catalog       *i18n.Catalog
	Auth          *auth.Handler
	Doctors       *doctors.Handler
	Booking       *booking.Handler
	Appointments  *appointments.Handler
	Notifications *notify.Handler

	// Optional: only wired when Postgres is configured.
	Bookings *bookings.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}

	// Public endpoints
	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Catalog != nil {
		r.Get("/i18n/{lang}", cfg.Catalog.Handler)
	}
	if cfg.Auth != nil {
		r.Post("/auth/login", cfg.Auth.Login)
	}

	// Patient endpoints
	r.Group(func(pr chi.Router) {
		pr.Use(httpmiddleware.PatientJWT(cfg.AuthJWTSecret))

		if cfg.Auth != nil {
			pr.Post("/auth/logout", cfg.Auth.Logout)
			pr.Get("/auth/me", cfg.Auth.Me)
		}
		if cfg.Doctors != nil {
			pr.Get("/doctors", cfg.Doctors.List)
			pr.Get("/doctors/{id}", cfg.Doctors.Get)
		}
		if cfg.Booking != nil {
			pr.Route("/booking", cfg.Booking.Routes)
		}
		if cfg.Appointments != nil {
			pr.Get("/appointments", cfg.Appointments.List)
			pr.Get("/appointments/upcoming", cfg.Appointments.Upcoming)
			pr.Post("/appointments/refresh", cfg.Appointments.Refresh)
		}
		if cfg.Notifications != nil {
			pr.Get("/notifications", cfg.Notifications.List)
			pr.Delete("/notifications", cfg.Notifications.Clear)
			pr.Get("/notifications/stream", cfg.Notifications.Stream)
			pr.Delete("/notifications/{id}", cfg.Notifications.Dismiss)
		}
		if cfg.Bookings != nil {
			pr.Get("/bookings/recent", cfg.Bookings.Recent)
		}
	})

	return r
}
