package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/turnofacil/turnofacil/internal/http/handlers"
	httpmiddleware "github.com/turnofacil/turnofacil/internal/http/middleware"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	WhatsAppWebhook   *handlers.WhatsAppWebhookHandler
	AdminDoctors      *handlers.AdminDoctorsHandler
	AdminPatients     *handlers.AdminPatientsHandler
	AdminAppointments *handlers.AdminAppointmentsHandler
	AdminWhitelist    *handlers.AdminWhitelistHandler

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
}

// New creates the chi router with all routes configured.
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

	// Public endpoints: webhooks, health, metrics.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.WhatsAppWebhook != nil {
			public.Route("/webhooks/whatsapp/{doctorPhone}", func(r chi.Router) {
				r.Get("/", cfg.WhatsAppWebhook.HandleVerify)
				r.Post("/", cfg.WhatsAppWebhook.HandleInbound)
			})
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin API, JWT-protected. Routes are still registered without a
	// secret; the middleware rejects every request until one is set.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

		if cfg.AdminDoctors != nil {
			admin.Route("/doctors", func(r chi.Router) {
				r.Get("/", cfg.AdminDoctors.List)
				r.Post("/", cfg.AdminDoctors.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.AdminDoctors.Get)
					r.Patch("/", cfg.AdminDoctors.Update)
					r.Delete("/", cfg.AdminDoctors.Delete)
					r.Get("/slots", cfg.AdminDoctors.Slots)
					if cfg.AdminPatients != nil {
						r.Get("/patients", cfg.AdminPatients.ListByDoctor)
					}
					if cfg.AdminAppointments != nil {
						r.Get("/appointments", cfg.AdminAppointments.ListByDoctor)
					}
					if cfg.AdminWhitelist != nil {
						r.Get("/whitelist", cfg.AdminWhitelist.List)
						r.Post("/whitelist", cfg.AdminWhitelist.Add)
						r.Delete("/whitelist/{entryID}", cfg.AdminWhitelist.Remove)
					}
				})
			})
		}
		if cfg.AdminAppointments != nil {
			admin.Route("/appointments/{id}", func(r chi.Router) {
				r.Get("/", cfg.AdminAppointments.Get)
				r.Delete("/", cfg.AdminAppointments.Cancel)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
