package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	PlanGenerationsTotal     metric.Int64Counter
	PlanGenerationDuration   metric.Float64Histogram
	PlanCacheHitsTotal       metric.Int64Counter
	ImageRequestsTotal       metric.Int64Counter
	ImageFallbacksTotal      metric.Int64Counter
	ImageRequestDuration     metric.Float64Histogram
	SessionTransitionsTotal  metric.Int64Counter
	PlanCommandsAppliedTotal metric.Int64Counter
	ExportsTotal             metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so it must
// run after the provider is installed to be exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TourItineraryStudio")
		m := &AppMetrics{}

		m.PlanGenerationsTotal = mustCounter(meter, "plan_generations_total",
			"Total number of plan generation attempts by result", "{request}")
		m.PlanGenerationDuration = mustHistogram(meter, "plan_generation_duration_seconds",
			"Duration of plan generation calls in seconds")
		m.PlanCacheHitsTotal = mustCounter(meter, "plan_cache_hits_total",
			"Plan requests served from the response cache", "{request}")
		m.ImageRequestsTotal = mustCounter(meter, "image_requests_total",
			"Total number of image generation requests by result", "{request}")
		m.ImageFallbacksTotal = mustCounter(meter, "image_fallbacks_total",
			"Image slots filled with a placeholder after a failed request", "{image}")
		m.ImageRequestDuration = mustHistogram(meter, "image_request_duration_seconds",
			"Duration of single image generation calls in seconds")
		m.SessionTransitionsTotal = mustCounter(meter, "session_transitions_total",
			"View state transitions by target state", "{transition}")
		m.PlanCommandsAppliedTotal = mustCounter(meter, "plan_commands_applied_total",
			"Edit commands applied to plans by command type", "{command}")
		m.ExportsTotal = mustCounter(meter, "exports_total",
			"Rendered exports by format", "{export}")

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// against the current global provider if nobody did so yet.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func mustCounter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func mustHistogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}
