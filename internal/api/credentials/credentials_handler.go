package credentials

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/api"
)

type HandlerImpl struct {
	manager Manager
	logger  *slog.Logger
}

func NewHandlerImpl(manager Manager, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		manager: manager,
		logger:  logger,
	}
}

// GetStatus reports whether a credential is selected and confirmed.
func (h *HandlerImpl) GetStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, h.manager.Status())
}

// Select stores a key as pending. It is not usable until Verify succeeds.
func (h *HandlerImpl) Select(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CredentialsHandler").Start(r.Context(), "Select", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/credentials"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "SelectCredential"))

	var req api.SelectCredentialRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid credential request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.manager.Select(req.APIKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Select failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("credential.state", string(status.State)))
	api.WriteJSONResponse(w, r, http.StatusAccepted, status)
}

// Verify runs the follow-up check that moves a pending key to confirmed.
func (h *HandlerImpl) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CredentialsHandler").Start(r.Context(), "Verify", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/credentials/verify"),
	))
	defer span.End()

	status, err := h.manager.Verify(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "Credential verification rejected", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Verify failed")
		api.ErrorFromErr(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Credential confirmed")
	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

func (h *HandlerImpl) Clear(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, h.manager.Clear())
}

// RequireCredential blocks credential-dependent routes until the key is confirmed.
func RequireCredential(manager Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := manager.APIKey(r.Context()); err != nil {
				api.ErrorFromErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
