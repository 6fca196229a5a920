package api

import (
	"context"
	"net/http"

	"github.com/okian/scorekeep/internal/domain/model"
)

// CatalogDependencies defines the interface for catalog reads.
type CatalogDependencies interface {
	Catalog(ctx context.Context, query string) []model.GameCatalogEntry
}

// CatalogHandler handles catalog requests.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type catalogResponse struct {
	Games []model.GameCatalogEntry `json:"games"`
	Count int                      `json:"count"`
}

// HandleGetCatalog handles GET /catalog?q= requests. An unavailable catalog
// is served as an empty list.
func (h *CatalogHandler) HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	games := h.deps.Catalog(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, catalogResponse{Games: games, Count: len(games)})
}
