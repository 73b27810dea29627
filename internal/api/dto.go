package api

import (
	"time"

	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/schemaservice"
)

// ModelSummary is a lightweight item in a model list response (aliased from
// the domain layer).
type ModelSummary = schemaservice.ModelSummary

// ModelListResponse wraps the model catalog.
type ModelListResponse struct {
	Models   []ModelSummary `json:"models" validate:"required"`
	Total    int            `json:"total" example:"3" validate:"required"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// ModelDetail is the full model response: the parsed declaration plus its
// validation schema.
type ModelDetail struct {
	Model  *models.Model               `json:"model" validate:"required"`
	Schema *generator.ValidationSchema `json:"schema" validate:"required"`
}

// EnumListResponse wraps the declared enums.
type EnumListResponse struct {
	Enums []*models.Enum `json:"enums" validate:"required"`
}
