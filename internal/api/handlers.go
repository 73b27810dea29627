package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/schemaservice"
)

// Catalog is the read side of the schema service used by the handlers.
type Catalog interface {
	Summaries() ([]schemaservice.ModelSummary, error)
	Model(name string) (*models.Model, error)
	ValidationSchema(name string) (*generator.ValidationSchema, error)
	Enums() ([]*models.Enum, error)
	LoadedAt() time.Time
}

var _ Catalog = (*schemaservice.Service)(nil)

// Handler holds API route handlers.
type Handler struct {
	catalog Catalog
}

// NewHandler creates a new Handler.
func NewHandler(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// ListModels handles GET /api/models.
//
//	@Summary		List declared models
//	@Tags			models
//	@Produce		json
//	@Success		200		{object}	ModelListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Summaries()
	if err != nil {
		writeFailure(w, "list models failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ModelListResponse{
		Models:   items,
		Total:    len(items),
		LoadedAt: h.catalog.LoadedAt(),
	})
}

// GetModel handles GET /api/models/{name}.
//
//	@Summary		Get a model declaration and its validation schema
//	@Tags			models
//	@Produce		json
//	@Param			name	path		string	true	"Model name"
//	@Success		200		{object}	ModelDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models/{name} [get]
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := h.catalog.Model(name)
	if err != nil {
		writeFailure(w, "get model failed", err)
		return
	}
	vs, err := h.catalog.ValidationSchema(name)
	if err != nil {
		writeFailure(w, "get model failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ModelDetail{Model: m, Schema: vs})
}

// GetValidationSchema handles GET /api/models/{name}/schema. The body is the
// same document the convert command writes.
//
//	@Summary		Get the validation schema of a model
//	@Tags			models
//	@Produce		json
//	@Param			name	path		string	true	"Model name"
//	@Success		200		{object}	generator.ValidationSchema
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models/{name}/schema [get]
func (h *Handler) GetValidationSchema(w http.ResponseWriter, r *http.Request) {
	vs, err := h.catalog.ValidationSchema(chi.URLParam(r, "name"))
	if err != nil {
		writeFailure(w, "get validation schema failed", err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// ListEnums handles GET /api/enums.
//
//	@Summary		List declared enums
//	@Tags			enums
//	@Produce		json
//	@Success		200		{object}	EnumListResponse
//	@Security		BearerAuth
//	@Router			/enums [get]
func (h *Handler) ListEnums(w http.ResponseWriter, r *http.Request) {
	enums, err := h.catalog.Enums()
	if err != nil {
		writeFailure(w, "list enums failed", err)
		return
	}
	writeJSON(w, http.StatusOK, EnumListResponse{Enums: enums})
}
