package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-voice-agent/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-voice-agent/internal/http/middleware"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	VoiceWebhook      *handlers.VoiceWebhookHandler
	AdminAppointments *handlers.AdminAppointmentsHandler
	AdminAuthSecret   string
	MetricsHandler    http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (telephony webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.VoiceWebhook.HealthCheck)
		public.Route("/webhooks/voice", func(r chi.Router) {
			r.Post("/turn", cfg.VoiceWebhook.HandleTurn)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Staff endpoints behind JWT auth
	if cfg.AdminAppointments != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.StaffAuth(cfg.AdminAuthSecret, "admin", "front_desk"))
			admin.Get("/appointments", cfg.AdminAppointments.List)
		})
	}

	return r
}
