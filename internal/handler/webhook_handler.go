// internal/handler/webhook_handler.go
package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dealscale/redirect-engine/internal/notify"
	"github.com/dealscale/redirect-engine/internal/service"
)

// WebhookHandler serves the CMS change-notification endpoint. The caller
// must present the shared secret; the rate limiter in front of this
// handler caps per-IP call volume.
type WebhookHandler struct {
	Ingest   *service.IngestService
	Notifier *notify.Notifier
	Secret   string
}

type webhookBody struct {
	PageID    string `json:"page_id"`
	PageIDAlt string `json:"pageId"`
	ID        string `json:"id"`
}

func (b webhookBody) pageID() string {
	if b.PageID != "" {
		return b.PageID
	}
	if b.PageIDAlt != "" {
		return b.PageIDAlt
	}
	return b.ID
}

// Alive answers GET probes.
func (h *WebhookHandler) Alive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "notion webhook alive"})
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		body = webhookBody{}
	}
	pageID := body.pageID()
	if pageID == "" {
		writeError(w, http.StatusBadRequest, "missing page_id")
		return
	}

	result, err := h.Ingest.Ingest(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, service.ErrIncompleteRecord) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("❌ webhook ingest failed for page", pageID, ":", err)
		h.Notifier.Alert(err.Error(), pageID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Ignored {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true, "reason": result.Reason})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "slug": result.Slug})
}

// authorized enforces the shared webhook secret whenever one is
// configured. Running without a secret is a development convenience and
// gets a log warning at startup, not a silent bypass here.
func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.Secret == "" {
		return true
	}
	provided := r.Header.Get("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.Secret)) == 1
}
