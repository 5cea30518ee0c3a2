package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-tour-itinerary-studio/app/observability/metrics"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api"
	planEditor "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/plan_editor"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// PlanSource hands out the confirmed plan of a session.
type PlanSource interface {
	Snapshot(ctx context.Context, id uuid.UUID) (*types.TourPlan, types.TourType, error)
}

type HandlerImpl struct {
	plans    PlanSource
	renderer *Renderer
	pdf      PDFOptions
	logger   *slog.Logger
}

func NewHandlerImpl(plans PlanSource, renderer *Renderer, pdf PDFOptions, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		plans:    plans,
		renderer: renderer,
		pdf:      pdf,
		logger:   logger,
	}
}

func (h *HandlerImpl) layout(w http.ResponseWriter, r *http.Request, op, route string) (Layout, context.Context, trace.Span, bool) {
	ctx, span := otel.Tracer("PreviewHandler").Start(r.Context(), op, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	id, err := planEditor.SessionID(r)
	if err != nil {
		span.End()
		api.ErrorFromErr(w, r, err)
		return Layout{}, ctx, nil, false
	}
	span.SetAttributes(attribute.String("session.id", id.String()))
	plan, category, err := h.plans.Snapshot(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Snapshot failed")
		span.End()
		api.ErrorFromErr(w, r, err)
		return Layout{}, ctx, nil, false
	}
	return h.renderer.Render(plan, category), ctx, span, true
}

// GetLayout returns the print layout as JSON for clients that draw it themselves.
func (h *HandlerImpl) GetLayout(w http.ResponseWriter, r *http.Request) {
	layout, _, span, ok := h.layout(w, r, "GetLayout", "/api/v1/sessions/{sessionID}/preview")
	if !ok {
		return
	}
	defer span.End()
	api.WriteJSONResponse(w, r, http.StatusOK, layout)
}

// PreviewHTML serves the page for in-app display.
func (h *HandlerImpl) PreviewHTML(w http.ResponseWriter, r *http.Request) {
	h.html(w, r, "PreviewHTML", "/api/v1/sessions/{sessionID}/preview.html", false)
}

// ExportHTML serves the standalone page as a download. It carries its own
// print button.
func (h *HandlerImpl) ExportHTML(w http.ResponseWriter, r *http.Request) {
	h.html(w, r, "ExportHTML", "/api/v1/sessions/{sessionID}/export.html", true)
}

func (h *HandlerImpl) html(w http.ResponseWriter, r *http.Request, op, route string, standalone bool) {
	layout, ctx, span, ok := h.layout(w, r, op, route)
	if !ok {
		return
	}
	defer span.End()
	l := h.logger.With(slog.String("handler", op))

	page, err := RenderHTML(layout, HTMLOptions{Standalone: standalone})
	if err != nil {
		l.ErrorContext(ctx, "Failed to render itinerary page", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Render failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to render itinerary")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if standalone {
		w.Header().Set("Content-Disposition", attachment(layout.Header.Title, "html"))
		h.countExport(ctx, "html")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// ExportPDF serves the itinerary as a PDF download.
func (h *HandlerImpl) ExportPDF(w http.ResponseWriter, r *http.Request) {
	layout, ctx, span, ok := h.layout(w, r, "ExportPDF", "/api/v1/sessions/{sessionID}/export.pdf")
	if !ok {
		return
	}
	defer span.End()
	l := h.logger.With(slog.String("handler", "ExportPDF"))

	doc, err := RenderPDF(layout, h.pdf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Render failed")
		if errors.Is(err, types.ErrFontRequired) {
			l.WarnContext(ctx, "PDF export needs a configured font", slog.Any("error", err))
			api.ErrorFromErr(w, r, err)
			return
		}
		l.ErrorContext(ctx, "Failed to render itinerary pdf", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to render itinerary pdf")
		return
	}
	h.countExport(ctx, "pdf")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(layout.Header.Title, "pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *HandlerImpl) countExport(ctx context.Context, format string) {
	metrics.Get().ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

func attachment(title, ext string) string {
	name := unsafeFilename.ReplaceAllString(title, "_")
	if name == "" || name == "_" {
		name = "itinerary"
	}
	return fmt.Sprintf("attachment; filename=\"itinerary.%s\"; filename*=UTF-8''%s.%s", ext, url.PathEscape(name), ext)
}
