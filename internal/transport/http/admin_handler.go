package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"themekeys/internal/infrastructure"
	"themekeys/internal/license"
	"themekeys/internal/services"
)

// AdminHandler serves the admin key-management surface. Routes mounting this
// handler sit behind the bearer-token middleware; the handler itself does no
// auth.
type AdminHandler struct {
	service  services.LicenseService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service services.LicenseService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "admin")),
		validate: validator.New(),
	}
}

// GenerateRequest is the wire form of a bulk generation request.
type GenerateRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// GenerateResponse reports a completed generation batch. The freshly minted
// keys are returned so the operator can hand them out without a second query.
type GenerateResponse struct {
	Success  bool              `json:"success"`
	Created  int               `json:"created,omitempty"`
	Licenses []license.License `json:"licenses,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ListLicensesResponse wraps the admin license listing.
type ListLicensesResponse struct {
	Success  bool              `json:"success"`
	Licenses []license.License `json:"licenses"`
}

// ListActivationsResponse wraps the admin activation listing.
type ListActivationsResponse struct {
	Success     bool                 `json:"success"`
	Activations []license.Activation `json:"activations"`
}

// Routes returns a chi router for the admin endpoints.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/licenses/generate", h.Generate)
	r.Get("/licenses", h.ListLicenses)
	r.Get("/activations", h.ListActivations)
	return r
}

// Generate handles POST /api/admin/licenses/generate.
func (h *AdminHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("admin-handler")

	ctx, span := tracer.Start(ctx, "admin_handler.generate")
	defer span.End()

	data := &GenerateRequest{}
	if err := render.Decode(r, data); err != nil {
		span.RecordError(err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &GenerateResponse{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.validate.Struct(data); err != nil {
		span.SetAttributes(attribute.String("error.type", "validation"))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &GenerateResponse{
			Success: false,
			Error:   "count must be between 1 and 100",
		})
		return
	}

	batch, err := h.service.Generate(ctx, data.Count)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "generation failed",
			slog.Int("count", data.Count),
			slog.String("error", err.Error()),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, &GenerateResponse{Success: false, Error: "internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("license.generated", len(batch)))
	render.JSON(w, r, &GenerateResponse{
		Success:  true,
		Created:  len(batch),
		Licenses: batch,
	})
}

// ListLicenses handles GET /api/admin/licenses.
func (h *AdminHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	licenses, err := h.service.ListLicenses(ctx)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, &GenerateResponse{Success: false, Error: "internal server error"})
		return
	}
	if licenses == nil {
		licenses = []license.License{}
	}
	render.JSON(w, r, &ListLicensesResponse{Success: true, Licenses: licenses})
}

// ListActivations handles GET /api/admin/activations.
func (h *AdminHandler) ListActivations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activations, err := h.service.ListActiveActivations(ctx)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, &GenerateResponse{Success: false, Error: "internal server error"})
		return
	}
	if activations == nil {
		activations = []license.Activation{}
	}
	render.JSON(w, r, &ListActivationsResponse{Success: true, Activations: activations})
}
