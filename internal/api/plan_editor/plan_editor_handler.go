package planEditor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

const multipartMemory = 8 << 20

type HandlerImpl struct {
	service        Service
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandlerImpl(service Service, maxUploadBytes int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// SessionID parses the {sessionID} route parameter.
func SessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid session id", types.ErrValidation)
	}
	return id, nil
}

func dayParam(r *http.Request) (int, error) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 {
		return 0, fmt.Errorf("%w: day must be a positive integer", types.ErrValidation)
	}
	return day, nil
}

func (h *HandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	view := h.service.CreateSession(r.Context())
	api.WriteJSONResponse(w, r, http.StatusCreated, view)
}

func (h *HandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	view, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *HandlerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "session deleted"})
}

// Generate accepts JSON or a multipart form with an optional "reference" file.
func (h *HandlerImpl) Generate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanEditorHandler").Start(r.Context(), "Generate", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/sessions/{sessionID}/generate"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Generate"))

	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	l = l.With(slog.String("session_id", id.String()))

	in, err := h.decodeGenerate(w, r)
	if err != nil {
		l.WarnContext(ctx, "Invalid generate request", slog.Any("error", err))
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("tour.category", in.Category))

	view, err := h.service.Generate(ctx, id, in)
	if err != nil {
		l.ErrorContext(ctx, "Plan generation failed", slog.Any("error", err))
		api.ErrorFromErr(w, r, err)
		return
	}
	l.InfoContext(ctx, "Plan generated", slog.Int("days", len(view.Plan.Days)))
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *HandlerImpl) decodeGenerate(w http.ResponseWriter, r *http.Request) (GenerateInput, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req api.GeneratePlanRequest
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			return GenerateInput{}, fmt.Errorf("%w: %w", types.ErrValidation, err)
		}
		return GenerateInput{Category: req.Category, ProductName: req.ProductName, ExtraText: req.ExtraContent}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return GenerateInput{}, fmt.Errorf("%w: invalid multipart form: %w", types.ErrValidation, err)
	}
	in := GenerateInput{
		Category:    r.FormValue("category"),
		ProductName: r.FormValue("product_name"),
		ExtraText:   r.FormValue("extra_content"),
	}
	file, header, err := r.FormFile("reference")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return GenerateInput{}, fmt.Errorf("%w: invalid reference file: %w", types.ErrValidation, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return GenerateInput{}, fmt.Errorf("%w: failed to read reference file: %w", types.ErrValidation, err)
	}
	in.Reference = &types.ReferenceFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	return in, nil
}

// ApplyCommands applies {"commands": [...]} to the plan as one edit.
func (h *HandlerImpl) ApplyCommands(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanEditorHandler").Start(r.Context(), "ApplyCommands", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/sessions/{sessionID}/plan"),
	))
	defer span.End()

	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	var req api.ApplyCommandsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cmds, err := DecodeCommands(req.Commands)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	view, err := h.service.ApplyCommands(ctx, id, cmds)
	if err != nil {
		h.logger.WarnContext(ctx, "Plan edit rejected", slog.String("session_id", id.String()), slog.Any("error", err))
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *HandlerImpl) RegenerateDayImages(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanEditorHandler").Start(r.Context(), "RegenerateDayImages", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/sessions/{sessionID}/days/{day}/images/regenerate"),
	))
	defer span.End()

	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	day, err := dayParam(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	view, err := h.service.RegenerateDayImages(ctx, id, day)
	if err != nil {
		h.logger.WarnContext(ctx, "Day image regeneration failed",
			slog.String("session_id", id.String()), slog.Int("day", day), slog.Any("error", err))
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// UploadDayImages takes multipart "files" and an optional "replace" flag.
func (h *HandlerImpl) UploadDayImages(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanEditorHandler").Start(r.Context(), "UploadDayImages", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/sessions/{sessionID}/days/{day}/images"),
	))
	defer span.End()

	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	day, err := dayParam(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	replace, _ := strconv.ParseBool(r.FormValue("replace"))

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	files := make([]UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		files = append(files, UploadedFile{Name: fh.Filename, Data: data})
	}

	view, err := h.service.UploadDayImages(ctx, id, day, files, replace)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *HandlerImpl) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

func (h *HandlerImpl) Edit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Edit)
}

func (h *HandlerImpl) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reset)
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (View, error)

func (h *HandlerImpl) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := SessionID(r)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	view, err := fn(r.Context(), id)
	if err != nil {
		api.ErrorFromErr(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}
