// internal/handler/redirect_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/dealscale/redirect-engine/internal/service"
	"github.com/dealscale/redirect-engine/internal/utils"
)

// RedirectHandler serves GET /api/redirect.
type RedirectHandler struct {
	Resolver *service.ResolverService
}

func NewRedirectHandler(resolver *service.ResolverService) *RedirectHandler {
	return &RedirectHandler{Resolver: resolver}
}

func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := q.Get("to")
	pageID := q.Get("pageId")
	slug := q.Get("slug")
	isFile := q.Get("isFile") == "true"
	referer := r.Header.Get("Referer")

	location, err := h.Resolver.BuildExplicitRedirect(
		r.Context(), to, pageID, slug, q, referer, utils.GetClientIP(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDestination):
			writeError(w, http.StatusBadRequest, "missing 'to'")
		case errors.Is(err, service.ErrInvalidDestination):
			writeError(w, http.StatusBadRequest, "invalid 'to'")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// For file downloads the origin's headers control Content-Disposition;
	// just make sure nothing caches the hop.
	if isFile {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.Header().Set("X-Redirect-Source", service.RedirectSourceFromReferer(referer))
	http.Redirect(w, r, location, http.StatusTemporaryRedirect)
}
