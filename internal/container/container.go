package container

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-tour-itinerary-studio/config"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/credentials"
	dayImages "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/day_images"
	generativeAI "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/generative_ai"
	planEditor "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/plan_editor"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/preview"
	tourPlan "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/tour_plan"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *slog.Logger
	Credentials        credentials.Manager
	PlanEditor         *planEditor.ServiceImpl
	CredentialsHandler *credentials.HandlerImpl
	PlanEditorHandler  *planEditor.HandlerImpl
	PreviewHandler     *preview.HandlerImpl
}

// NewContainer wires the services bottom-up. The credential provider is
// resolved once here and injected into the AI client.
func NewContainer(cfg *config.Config, logger *slog.Logger) *Container {
	aiOpts := generativeAI.Options{
		TextModel:  cfg.GenAI.TextModel,
		ImageModel: cfg.GenAI.ImageModel,
		BaseURL:    cfg.GenAI.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Server.Timeout},
	}
	manager := credentials.Resolve(cfg.GenAI.CredentialMode, generativeAI.NewKeyVerifier(aiOpts), logger)
	aiClient := generativeAI.NewAIClient(manager, aiOpts, logger)

	planner := tourPlan.NewServiceImpl(aiClient, tourPlan.Options{
		Temperature:       cfg.GenAI.Temperature,
		CacheEnabled:      cfg.Cache.Enabled,
		CacheTTL:          cfg.Cache.PlanTTL,
		MaxReferenceBytes: cfg.Upload.MaxBytes,
	}, logger)

	placeholders := dayImages.Placeholders{
		BaseURL: cfg.Images.PlaceholderBaseURL,
		Width:   cfg.Images.PlaceholderWidth,
		Height:  cfg.Images.PlaceholderHeight,
	}
	images := dayImages.NewServiceImpl(aiClient, dayImages.Options{
		AspectRatio:  cfg.GenAI.AspectRatio,
		Concurrency:  cfg.Images.Concurrency,
		Placeholders: placeholders,
	}, logger)

	store := planEditor.NewStore(cfg.Sessions.TTL, cfg.Sessions.Cleanup)
	editor := planEditor.NewServiceImpl(store, planner, images, manager, planEditor.Options{
		GenerateImagesOnCreate: cfg.Images.GenerateOnCreate,
		Upload: planEditor.UploadOptions{
			MaxBytes:    cfg.Upload.MaxBytes,
			MaxEdgePx:   cfg.Upload.MaxEdgePx,
			JPEGQuality: cfg.Upload.JPEGQuality,
		},
	}, logger)

	renderer := preview.NewRenderer(placeholders)

	return &Container{
		Config:             cfg,
		Logger:             logger,
		Credentials:        manager,
		PlanEditor:         editor,
		CredentialsHandler: credentials.NewHandlerImpl(manager, logger),
		PlanEditorHandler:  planEditor.NewHandlerImpl(editor, cfg.Upload.MaxBytes, logger),
		PreviewHandler:     preview.NewHandlerImpl(editor, renderer, preview.PDFOptions{FontPath: cfg.Export.PDFFontPath}, logger),
	}
}

// RouterConfig exposes the handlers to the router.
func (c *Container) RouterConfig() *router.Config {
	return &router.Config{
		CredentialsHandler: c.CredentialsHandler,
		PlanEditorHandler:  c.PlanEditorHandler,
		PreviewHandler:     c.PreviewHandler,
		RequireCredential:  credentials.RequireCredential(c.Credentials),
		AllowedOrigins:     c.Config.Server.AllowedOrigins,
		GenerateRateLimit:  c.Config.Server.GenerateRateLimit,
	}
}
