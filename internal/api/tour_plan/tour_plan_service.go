package tourPlan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-tour-itinerary-studio/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/generative_ai"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// TextGenerator is the text half of the generative collaborator.
type TextGenerator interface {
	GenerateContent(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error)
}

// PlanRequest is the input of a single plan generation.
type PlanRequest struct {
	Category    types.TourType
	ProductName string
	ExtraText   string
	Reference   *types.ReferenceFile
}

// Service turns a product description into a structured TourPlan.
type Service interface {
	RequestPlan(ctx context.Context, req PlanRequest) (*types.TourPlan, error)
}

type Options struct {
	Temperature       float32
	CacheEnabled      bool
	CacheTTL          time.Duration
	MaxReferenceBytes int64
}

type ServiceImpl struct {
	generator TextGenerator
	opts      Options
	cache     *cache.Cache
	logger    *slog.Logger
}

func NewServiceImpl(generator TextGenerator, opts Options, logger *slog.Logger) *ServiceImpl {
	s := &ServiceImpl{
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
	if opts.CacheEnabled {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// RequestPlan validates input before any network call, asks the model for a
// schema-conforming plan and normalizes the result. It never returns a
// partially valid plan.
func (s *ServiceImpl) RequestPlan(ctx context.Context, req PlanRequest) (*types.TourPlan, error) {
	ctx, span := otel.Tracer("TourPlanService").Start(ctx, "RequestPlan", trace.WithAttributes(
		attribute.String("tour.category", string(req.Category)),
		attribute.String("tour.product_name", req.ProductName),
		attribute.Bool("tour.has_reference", req.Reference != nil),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "RequestPlan"), slog.String("category", string(req.Category)))

	if err := s.validateRequest(req); err != nil {
		l.WarnContext(ctx, "Rejected plan request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		return nil, err
	}

	key := cacheKey(req)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			metrics.Get().PlanCacheHitsTotal.Add(ctx, 1)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			l.DebugContext(ctx, "Plan served from cache")
			return cached.(*types.TourPlan).Clone(), nil
		}
	}

	parts, err := s.buildParts(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(req.Category), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    planSchema,
		Temperature:       genai.Ptr(s.opts.Temperature),
	}

	start := time.Now()
	l.InfoContext(ctx, "Requesting plan from model", slog.String("product_name", req.ProductName))
	txt, err := s.generator.GenerateContent(ctx, parts, config)
	metrics.Get().PlanGenerationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		err = generativeAI.ClassifyError(err)
		s.recordResult(ctx, "error")
		l.ErrorContext(ctx, "Plan generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		return nil, err
	}

	plan, err := parsePlan(txt)
	if err == nil {
		normalizePlan(plan)
		err = validatePlan(plan, req.Category)
	}
	if err != nil {
		s.recordResult(ctx, "invalid")
		l.ErrorContext(ctx, "Model returned an unusable plan", slog.Any("error", err), slog.Int("response_length", len(txt)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unusable plan")
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, plan.Clone(), cache.DefaultExpiration)
	}
	s.recordResult(ctx, "success")
	span.SetAttributes(attribute.Int("plan.days", len(plan.Days)))
	span.SetStatus(codes.Ok, "Plan generated")
	l.InfoContext(ctx, "Plan generated", slog.Int("days", len(plan.Days)), slog.Duration("took", time.Since(start)))
	return plan, nil
}

func (s *ServiceImpl) recordResult(ctx context.Context, result string) {
	metrics.Get().PlanGenerationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *ServiceImpl) validateRequest(req PlanRequest) error {
	if strings.TrimSpace(req.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", types.ErrValidation)
	}
	if req.Category != types.TourTypeDomestic && req.Category != types.TourTypeInternational {
		return fmt.Errorf("%w: unknown tour category %q", types.ErrValidation, req.Category)
	}
	if ref := req.Reference; ref != nil {
		if len(ref.Data) == 0 {
			return fmt.Errorf("%w: reference file %q is empty", types.ErrValidation, ref.Name)
		}
		if s.opts.MaxReferenceBytes > 0 && int64(len(ref.Data)) > s.opts.MaxReferenceBytes {
			return fmt.Errorf("%w: reference file exceeds %d bytes", types.ErrValidation, s.opts.MaxReferenceBytes)
		}
		if _, _, err := referenceKind(ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) buildParts(req PlanRequest) ([]*genai.Part, error) {
	parts := []*genai.Part{genai.NewPartFromText(generatePlanPrompt(req))}
	if req.Reference == nil {
		return parts, nil
	}
	inline, mimeType, err := referenceKind(req.Reference)
	if err != nil {
		return nil, err
	}
	if inline {
		return append(parts, genai.NewPartFromText(referenceTextPrompt(req.Reference))), nil
	}
	return append(parts, genai.NewPartFromBytes(req.Reference.Data, mimeType)), nil
}

// referenceKind reports whether a reference file is inlined as prompt text
// or attached as a blob, and the MIME type used for the blob.
func referenceKind(ref *types.ReferenceFile) (bool, string, error) {
	mimeType := strings.TrimSpace(ref.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(ref.Name)))
	}
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}
	switch {
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json":
		return true, mimeType, nil
	case mimeType == "application/pdf", strings.HasPrefix(mimeType, "image/"):
		return false, mimeType, nil
	}
	switch strings.ToLower(filepath.Ext(ref.Name)) {
	case ".txt", ".md", ".csv":
		return true, "text/plain", nil
	}
	return false, "", fmt.Errorf("%w: unsupported reference file type %q", types.ErrValidation, ref.Name)
}

func cacheKey(req PlanRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", req.Category, strings.TrimSpace(req.ProductName), strings.TrimSpace(req.ExtraText))
	if req.Reference != nil {
		h.Write(req.Reference.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
