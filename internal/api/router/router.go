package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/dashboard"
	httpmiddleware "github.com/wolfman30/practice-booking/internal/http/middleware"
	"github.com/wolfman30/practice-booking/internal/inbox"
	"github.com/wolfman30/practice-booking/internal/slots"
	"github.com/wolfman30/practice-booking/internal/tickets"
	"github.com/wolfman30/practice-booking/internal/voice"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SlotsHandler       *slots.Handler
	BookingHandler     *booking.Handler
	TicketsHandler     *tickets.Handler
	DashboardHandler   *dashboard.Handler
	InboxHandler       *inbox.Handler
	VoiceHandler       *voice.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.VoiceHandler != nil {
			public.Mount("/voice", cfg.VoiceHandler.Routes())
		}
		if cfg.SlotsHandler != nil {
			public.Get("/slots", cfg.SlotsHandler.ListSlots)
		}
		if cfg.BookingHandler != nil {
			public.Post("/book", cfg.BookingHandler.Book)
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.SlotsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Mount("/practices", cfg.SlotsHandler.AdminRoutes())
		})
	}

	// Tenant-scoped staff routes
	r.Group(func(tenant chi.Router) {
		if cfg.AdminAuthSecret != "" {
			tenant.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		tenant.Use(requirePracticeID)

		if cfg.TicketsHandler != nil {
			tenant.Mount("/tickets", cfg.TicketsHandler.Routes())
		}
		if cfg.InboxHandler != nil {
			tenant.Get("/api/inbox", cfg.InboxHandler.Get)
		}
		if cfg.DashboardHandler != nil {
			tenant.Get("/api/dashboard/summary", cfg.DashboardHandler.Summary)
			tenant.Get("/dashboard/stats", cfg.DashboardHandler.Stats)
			tenant.Get("/dashboard/today", cfg.DashboardHandler.Today)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
