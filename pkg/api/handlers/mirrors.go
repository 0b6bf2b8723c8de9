package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/mirror"
)

// MirrorHandler serves mirror status.
type MirrorHandler struct {
	registry Registry
}

// NewMirrorHandler creates a mirror handler.
func NewMirrorHandler(registry Registry) *MirrorHandler {
	return &MirrorHandler{registry: registry}
}

// List handles GET /api/v1/mirrors.
func (h *MirrorHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.registry.Statuses()))
}

// Get handles GET /api/v1/mirrors/{name}.
func (h *MirrorHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	st, err := h.registry.Status(name)
	if err != nil {
		if errors.Is(err, mirror.ErrMirrorNotFound) {
			NotFound(w, "Mirror not found")
			return
		}
		logger.Error("Failed to get mirror status", logger.KeyMirror, name, logger.KeyError, err)
		InternalServerError(w, "Failed to get mirror status")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(st))
}
