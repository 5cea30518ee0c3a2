package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/credentials"
	planEditor "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/plan_editor"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/preview"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CredentialsHandler *credentials.HandlerImpl
	PlanEditorHandler  *planEditor.HandlerImpl
	PreviewHandler     *preview.HandlerImpl
	// RequireCredential guards routes that call the generative collaborators.
	RequireCredential func(http.Handler) http.Handler
	AllowedOrigins    []string
	// GenerateRateLimit caps generation calls per client IP per minute; 0 disables it.
	GenerateRateLimit int
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Credential bootstrap
		r.Get("/credentials", cfg.CredentialsHandler.GetStatus)
		r.Post("/credentials", cfg.CredentialsHandler.Select)
		r.Post("/credentials/verify", cfg.CredentialsHandler.Verify)
		r.Delete("/credentials", cfg.CredentialsHandler.Clear)

		r.Post("/sessions", cfg.PlanEditorHandler.CreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", cfg.PlanEditorHandler.GetSession)
			r.Delete("/", cfg.PlanEditorHandler.DeleteSession)

			// Editing
			r.Patch("/plan", cfg.PlanEditorHandler.ApplyCommands)
			r.Post("/days/{day}/images", cfg.PlanEditorHandler.UploadDayImages)
			r.Post("/confirm", cfg.PlanEditorHandler.Confirm)
			r.Post("/edit", cfg.PlanEditorHandler.Edit)
			r.Post("/reset", cfg.PlanEditorHandler.Reset)

			// Generation needs a confirmed credential
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireCredential)
				if cfg.GenerateRateLimit > 0 {
					r.Use(httprate.LimitByIP(cfg.GenerateRateLimit, time.Minute))
				}
				r.Post("/generate", cfg.PlanEditorHandler.Generate)
				r.Post("/days/{day}/images/regenerate", cfg.PlanEditorHandler.RegenerateDayImages)
			})

			// Preview and export
			r.Get("/preview", cfg.PreviewHandler.GetLayout)
			r.Get("/preview.html", cfg.PreviewHandler.PreviewHTML)
			r.Get("/export.html", cfg.PreviewHandler.ExportHTML)
			r.Get("/export.pdf", cfg.PreviewHandler.ExportPDF)
		})
	})

	return r
}
