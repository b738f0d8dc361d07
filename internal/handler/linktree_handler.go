// internal/handler/linktree_handler.go
package handler

import (
	"net/http"

	"github.com/dealscale/redirect-engine/internal/service"
	"github.com/dealscale/redirect-engine/internal/utils"
)

// LinkTreeHandler serves the listing endpoint and the click counter.
type LinkTreeHandler struct {
	LinkTree *service.LinkTreeService
	Resolver *service.ResolverService
}

func (h *LinkTreeHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.LinkTree.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

// Click increments the call counter for a record addressed by pageId or
// slug. The increment itself is detached and best-effort.
func (h *LinkTreeHandler) Click(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageID := q.Get("pageId")
	slug := q.Get("slug")

	if pageID == "" && slug != "" {
		rec, err := h.Resolver.ResolveSlug(r.Context(), slug)
		if err == nil {
			pageID = rec.SourcePageID
		}
	}
	if pageID == "" {
		writeError(w, http.StatusBadRequest, "missing pageId/slug")
		return
	}

	h.Resolver.TrackClick(slug, pageID, "", r.Header.Get("Referer"), utils.GetClientIP(r))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pageId": pageID})
}
