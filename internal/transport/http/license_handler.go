package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"themekeys/internal/infrastructure"
	"themekeys/internal/license"
	"themekeys/internal/middleware"
	"themekeys/internal/services"
)

// LicenseHandler serves the public activation endpoint.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivateRequest is the wire form of an activation attempt. Storefront theme
// installers post either JSON or a classic form body; both decode into this.
type ActivateRequest struct {
	LicenseKey string `json:"licenseKey" form:"licenseKey"`
	Domain     string `json:"domain" form:"domain"`
	ThemeID    string `json:"themeId,omitempty" form:"themeId"`
}

// ActivationPayload is the activation object embedded in a success response.
type ActivationPayload struct {
	LicenseKey  string    `json:"licenseKey"`
	Domain      string    `json:"domain"`
	ThemeID     string    `json:"themeId,omitempty"`
	ActivatedAt time.Time `json:"activatedAt"`
}

// ActivateResponse is the success-flag envelope of the activation contract.
// Error is a plain string: the storefront installer shows it verbatim.
type ActivateResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Activation *ActivationPayload `json:"activation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Routes returns a chi router for the public license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(h.methodNotAllowed)
	r.Post("/activate", h.Activate)
	return r
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/activate"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &ActivateRequest{}
	if err := render.Decode(r, data); err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "undecodable activation request",
			slog.String("error", err.Error()),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		)
		h.writeFailure(w, r, http.StatusBadRequest, license.ErrMissingFields.Error())
		return
	}

	activation, err := h.service.Activate(ctx, license.ActivationRequest{
		LicenseKey: data.LicenseKey,
		Domain:     data.Domain,
		ThemeID:    data.ThemeID,
	})
	if err != nil {
		h.writeActivationError(w, r, span, err)
		return
	}

	span.SetAttributes(attribute.String("license.domain", activation.Domain))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ActivateResponse{
		Success: true,
		Message: "license activated",
		Activation: &ActivationPayload{
			LicenseKey:  activation.LicenseKey,
			Domain:      activation.Domain,
			ThemeID:     activation.ThemeID,
			ActivatedAt: activation.ActivatedAt,
		},
	})
}

// writeActivationError maps engine errors onto the wire contract. Missing
// fields are the caller's formatting problem and get a 400; the remaining
// business rejections stay at 200 with success=false so installers branch on
// the flag. Anything else is an internal fault whose detail stays in the logs.
func (h *LicenseHandler) writeActivationError(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, license.ErrMissingFields):
		span.SetAttributes(attribute.String("error.type", "missing_fields"))
		h.writeFailure(w, r, http.StatusBadRequest, err.Error())

	case errors.Is(err, license.ErrInvalidDomainFormat),
		errors.Is(err, license.ErrInvalidKeyFormat),
		errors.Is(err, license.ErrKeyNotFound):
		span.SetAttributes(attribute.String("error.type", "rejected"))
		h.writeFailure(w, r, http.StatusOK, err.Error())

	default:
		if _, ok := license.IsConflict(err); ok {
			span.SetAttributes(attribute.String("error.type", "conflict"))
			h.writeFailure(w, r, http.StatusOK, err.Error())
			return
		}
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "activation failed internally",
			slog.String("error", err.Error()),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		)
		h.writeFailure(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *LicenseHandler) writeFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, &ActivateResponse{Success: false, Error: message})
}

// methodNotAllowed keeps the envelope on wrong-method requests instead of
// chi's empty 405.
func (h *LicenseHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusMethodNotAllowed)
	render.JSON(w, r, &ActivateResponse{Success: false, Error: "method not allowed"})
}
