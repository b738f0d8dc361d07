// internal/handler/debug_handler.go
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dealscale/redirect-engine/internal/config"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/repository"
	"github.com/dealscale/redirect-engine/internal/service"
)

// Pinger reports cache connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DebugHandler serves the read-only diagnostics report: configuration
// presence, a link-tree sample, and invalid CMS rows. It never mutates
// state.
type DebugHandler struct {
	Cfg      config.Config
	LinkTree *service.LinkTreeService
	Cache    Pinger
}

type linktreePreviewRow struct {
	PageID      string `json:"pageId,omitempty"`
	Slug        string `json:"slug"`
	Destination string `json:"destination"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Pinned      bool   `json:"pinned"`
}

func (h *DebugHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slug := strings.TrimPrefix(strings.ToLower(q.Get("slug")), "/")
	echoTo := q.Get("to")
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > 500 {
				n = 500
			}
			limit = n
		}
	}

	devRedirects := config.ParseDevRedirects(h.Cfg.DevRedirects)
	devKeys := make([]string, 0, len(devRedirects))
	for k := range devRedirects {
		devKeys = append(devKeys, k)
	}

	cacheOK := false
	if h.Cache != nil && h.Cache.Ping(r.Context()) == nil {
		cacheOK = true
	}

	report := map[string]any{
		"ok":  true,
		"now": time.Now().UTC().Format(time.RFC3339),
		"notion": map[string]any{
			"hasKey":         h.Cfg.NotionKey != "",
			"hasRedirectsDb": h.Cfg.NotionRedirectsDB != "",
			"configured":     h.Cfg.NotionKey != "" && h.Cfg.NotionRedirectsDB != "",
		},
		"cache": map[string]any{"reachable": cacheOK},
		"devRedirects": map[string]any{
			"keys": devKeys,
		},
		"echo": map[string]any{"to": echoTo},
	}

	if slug != "" {
		hit := devRedirects[slug]
		report["sampleResolution"] = map[string]any{"slug": slug, "devHit": hit}
	}

	items, err := h.LinkTree.ListItems(r.Context())
	linktree := map[string]any{"ok": err == nil}
	if err != nil {
		linktree["error"] = err.Error()
	} else {
		linktree["count"] = len(items)
		linktree["preview"] = previewRows(items, 5)
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		linktree["items"] = items
	}

	invalids, err := h.LinkTree.InvalidRows(r.Context(), limit)
	if err == nil {
		linktree["invalids"] = invalids
	} else {
		linktree["invalids"] = []repository.TriageRow{}
	}
	report["linktree"] = linktree

	writeJSON(w, http.StatusOK, report)
}

func previewRows(items []*model.CampaignRecord, n int) []linktreePreviewRow {
	if len(items) < n {
		n = len(items)
	}
	rows := make([]linktreePreviewRow, 0, n)
	for _, it := range items[:n] {
		rows = append(rows, linktreePreviewRow{
			PageID:      it.SourcePageID,
			Slug:        it.Slug,
			Destination: it.Destination,
			Title:       it.Title,
			Category:    it.Category,
			Pinned:      it.Pinned,
		})
	}
	return rows
}
