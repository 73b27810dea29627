package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(catalog Catalog, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(catalog)

	r := chi.NewRouter()
	r.Use(NoStore)
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/models", h.ListModels)
	r.Get("/models/{name}", h.GetModel)
	r.Get("/models/{name}/schema", h.GetValidationSchema)
	r.Get("/enums", h.ListEnums)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
