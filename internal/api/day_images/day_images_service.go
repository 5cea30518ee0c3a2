package dayImages

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/FACorreiaa/go-tour-itinerary-studio/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/generative_ai"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// ImageGenerator is the image half of the generative collaborator.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req types.ImageRequest) (*types.ImageResponse, error)
}

// Trip is the plan-level context every day prompt is derived from.
type Trip struct {
	Category    types.TourType
	CountryCity string
}

// TripOf extracts the prompt context of plan.
func TripOf(plan *types.TourPlan, category types.TourType) Trip {
	return Trip{Category: category, CountryCity: plan.CountryCity}
}

// Service fetches images for days of a plan.
type Service interface {
	// RequestDayImages is best effort: it always returns exactly count
	// images, with placeholders in failed slots.
	RequestDayImages(ctx context.Context, day types.DayPlan, count int, trip Trip) []types.ImageBlob
	// RequestPlanImages fills CustomImages for every day and returns a new plan.
	RequestPlanImages(ctx context.Context, plan *types.TourPlan, category types.TourType) *types.TourPlan
	// RegenerateDayImages is strict: any failed slot fails the whole call.
	RegenerateDayImages(ctx context.Context, day types.DayPlan, count int, trip Trip) ([]types.ImageBlob, error)
	Placeholders() Placeholders
}

type Options struct {
	AspectRatio  string
	Concurrency  int
	Placeholders Placeholders
}

type ServiceImpl struct {
	generator ImageGenerator
	opts      Options
	sem       *semaphore.Weighted
	logger    *slog.Logger
}

func NewServiceImpl(generator ImageGenerator, opts Options, logger *slog.Logger) *ServiceImpl {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &ServiceImpl{
		generator: generator,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.Concurrency)),
		logger:    logger,
	}
}

func (s *ServiceImpl) Placeholders() Placeholders { return s.opts.Placeholders }

func (s *ServiceImpl) RequestDayImages(ctx context.Context, day types.DayPlan, count int, trip Trip) []types.ImageBlob {
	ctx, span := otel.Tracer("DayImagesService").Start(ctx, "RequestDayImages", trace.WithAttributes(
		attribute.Int("day", day.Day),
		attribute.Int("image.count", count),
	))
	defer span.End()

	count = types.ClampImageCount(count)
	images := make([]types.ImageBlob, count)
	var g errgroup.Group
	for i := 0; i < count; i++ {
		g.Go(func() error {
			img, err := s.generateSlot(ctx, day, i, trip)
			if err != nil {
				s.logger.WarnContext(ctx, "Image slot failed, using placeholder",
					slog.Int("day", day.Day), slog.Int("slot", i), slog.Any("error", err))
				metrics.Get().ImageFallbacksTotal.Add(ctx, 1)
				img = s.opts.Placeholders.Image(day, i)
			}
			images[i] = img
			return nil
		})
	}
	_ = g.Wait()
	return images
}

func (s *ServiceImpl) RequestPlanImages(ctx context.Context, plan *types.TourPlan, category types.TourType) *types.TourPlan {
	ctx, span := otel.Tracer("DayImagesService").Start(ctx, "RequestPlanImages", trace.WithAttributes(
		attribute.Int("plan.days", len(plan.Days)),
	))
	defer span.End()

	out := plan.Clone()
	trip := TripOf(plan, category)
	var g errgroup.Group
	for i := range out.Days {
		g.Go(func() error {
			day := out.Days[i]
			out.Days[i].CustomImages = s.RequestDayImages(ctx, day, day.ImageCount, trip)
			return nil
		})
	}
	_ = g.Wait()
	s.logger.InfoContext(ctx, "Plan images resolved", slog.Int("days", len(out.Days)))
	return out
}

func (s *ServiceImpl) RegenerateDayImages(ctx context.Context, day types.DayPlan, count int, trip Trip) ([]types.ImageBlob, error) {
	ctx, span := otel.Tracer("DayImagesService").Start(ctx, "RegenerateDayImages", trace.WithAttributes(
		attribute.Int("day", day.Day),
		attribute.Int("image.count", count),
	))
	defer span.End()

	count = types.ClampImageCount(count)
	images := make([]types.ImageBlob, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			img, err := s.generateSlot(gctx, day, i, trip)
			if err != nil {
				return fmt.Errorf("slot %d: %w", i+1, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Day image regeneration failed", slog.Int("day", day.Day), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Regeneration failed")
		return nil, fmt.Errorf("%w: %w", types.ErrImageGeneration, err)
	}
	span.SetStatus(codes.Ok, "Day images regenerated")
	return images, nil
}

func (s *ServiceImpl) generateSlot(ctx context.Context, day types.DayPlan, slot int, trip Trip) (types.ImageBlob, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return types.ImageBlob{}, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	resp, err := s.generator.GenerateImage(ctx, types.ImageRequest{
		Prompt:      generateImagePrompt(day, slot, trip),
		AspectRatio: s.opts.AspectRatio,
	})
	m := metrics.Get()
	m.ImageRequestDuration.Record(ctx, time.Since(start).Seconds())
	if err == nil && (resp == nil || len(resp.Data) == 0) {
		err = generativeAI.ErrNoImageData
	}
	if err != nil {
		m.ImageRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		return types.ImageBlob{}, generativeAI.ClassifyError(err)
	}
	m.ImageRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
	return types.ImageBlob{
		Source:   types.ImageSourceGenerated,
		MIMEType: resp.MIMEType,
		URL:      DataURL(resp.MIMEType, resp.Data),
	}, nil
}

// DataURL embeds data as a self-contained data: URL. An unknown type is
// recorded as PNG, the image model's default output.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
