package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/metrics"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints.
	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)

	// Lead capture form target, hit by the rented sites themselves.
	r.Post("/capture/{websiteID}", h.CaptureLead)

	// Phone provider webhook.
	r.Post("/webhooks/calls", h.CallWebhook)

	// Everything else requires a session and is org-scoped.
	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Get("/me", h.Me)
		r.Get("/dashboard", h.Dashboard)

		r.Route("/websites", func(r chi.Router) {
			r.Get("/", h.ListWebsites)
			r.Post("/", h.CreateWebsite)
			r.Get("/stats", h.PortfolioStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWebsite)
				r.Put("/", h.UpdateWebsite)
				r.Delete("/", h.DeleteWebsite)
				r.Post("/rent", h.RentWebsite)
				r.Post("/unrent", h.UnrentWebsite)
				r.Get("/keywords", h.ListWebsiteKeywords)
				r.Get("/rankings", h.WebsiteRankings)
				r.Post("/track", h.TrackWebsiteNow)
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetClient)
				r.Put("/", h.UpdateClient)
				r.Delete("/", h.DeleteClient)
			})
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Get("/pipeline", h.LeadPipeline)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetLead)
				r.Put("/", h.UpdateLead)
				r.Delete("/", h.DeleteLead)
				r.Post("/status", h.TransitionLead)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/due", h.DueTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Put("/", h.UpdateTask)
				r.Delete("/", h.DeleteTask)
				r.Post("/status", h.TransitionTask)
				r.Post("/complete", h.CompleteTask)
			})
		})

		r.Route("/phone-numbers", func(r chi.Router) {
			r.Get("/", h.ListPhoneNumbers)
			r.Post("/", h.ProvisionPhoneNumber)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPhoneNumber)
				r.Post("/assign", h.AssignPhoneNumber)
				r.Post("/forward", h.SetPhoneForward)
				r.Delete("/", h.ReleasePhoneNumber)
				r.Get("/calls", h.ListCallEvents)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", h.ListVideos)
			r.Post("/", h.UploadVideo)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetVideo)
				r.Get("/playback", h.VideoPlayback)
				r.Delete("/", h.DeleteVideo)
			})
		})

		r.Route("/keywords", func(r chi.Router) {
			r.Post("/", h.AddKeyword)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/history", h.KeywordHistory)
				r.Post("/active", h.SetKeywordActive)
				r.Delete("/", h.RemoveKeyword)
			})
		})

		// Credential pool management is admin-only.
		r.Route("/seo-keys", func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleAdmin))
			r.Get("/", h.ListAPIKeys)
			r.Post("/", h.CreateAPIKey)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/disable", h.DisableAPIKey)
				r.Post("/enable", h.EnableAPIKey)
				r.Delete("/", h.DeleteAPIKey)
			})
		})
	})

	return r
}
