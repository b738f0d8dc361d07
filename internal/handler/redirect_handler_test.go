package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	appErrors "github.com/dealscale/redirect-engine/internal/errors"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/repository"
	"github.com/dealscale/redirect-engine/internal/service"
)

type stubRecords struct {
	bySlug map[string]*model.CampaignRecord
}

func (s *stubRecords) QueryBySlug(ctx context.Context, slug string) (*model.CampaignRecord, error) {
	if rec, ok := s.bySlug[slug]; ok {
		return rec, nil
	}
	return nil, appErrors.NewRecordNotFound(slug)
}

func (s *stubRecords) FetchRecordByID(ctx context.Context, pageID string) (*model.CampaignRecord, string, error) {
	return nil, "", appErrors.NewRecordNotFound(pageID)
}

func (s *stubRecords) IncrementCallCounter(ctx context.Context, pageID string) {}

func (s *stubRecords) ListLinkTree(ctx context.Context) ([]*model.CampaignRecord, error) {
	return nil, nil
}

func (s *stubRecords) Triage(ctx context.Context, limit int) ([]repository.TriageRow, error) {
	return nil, nil
}

func (s *stubRecords) Configured() bool { return true }

type stubCache struct{}

func (stubCache) Get(ctx context.Context, slug string) (*model.CampaignRecord, error) {
	return nil, nil
}

func (stubCache) Put(ctx context.Context, slug string, rec *model.CampaignRecord) error {
	return nil
}

func (stubCache) DeleteField(ctx context.Context, slug string, fields ...string) error {
	return nil
}

func newTestResolver(records *stubRecords) *service.ResolverService {
	return &service.ResolverService{
		Cache:    stubCache{},
		Records:  records,
		SiteHost: "dealscale.io",
	}
}

func TestRedirectMergesAttribution(t *testing.T) {
	records := &stubRecords{bySlug: map[string]*model.CampaignRecord{
		"promo": {
			Slug:        "promo",
			Destination: "https://dealscale.io/x?utm_source=keep",
			Utm:         &model.UtmParams{Source: "cms", Campaign: "spring"},
		},
	}}
	h := NewRedirectHandler(newTestResolver(records))

	target := "/api/redirect?to=" + url.QueryEscape("https://dealscale.io/x?utm_source=keep") +
		"&slug=promo&utm_campaign=incoming"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.Redirect(rr, req)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	q := loc.Query()
	if got := q.Get("utm_source"); got != "keep" {
		t.Errorf("utm_source = %q, want keep (destination wins)", got)
	}
	if got := q.Get("utm_campaign"); got != "spring" {
		t.Errorf("utm_campaign = %q, want spring (CMS beats inbound)", got)
	}
	for _, key := range []string{"to", "slug", "pageId", "isFile"} {
		if q.Has(key) {
			t.Errorf("internal param %q leaked into Location", key)
		}
	}
	if got := rr.Header().Get("X-Redirect-Source"); got != "Direct" {
		t.Errorf("X-Redirect-Source = %q, want Direct", got)
	}
}

func TestRedirectLinktreeSource(t *testing.T) {
	h := NewRedirectHandler(newTestResolver(&stubRecords{}))

	req := httptest.NewRequest(http.MethodGet, "/api/redirect?to=https://example.com/x", nil)
	req.Header.Set("Referer", "https://dealscale.io/linktree")
	rr := httptest.NewRecorder()
	h.Redirect(rr, req)

	if got := rr.Header().Get("X-Redirect-Source"); got != "Linktree" {
		t.Errorf("X-Redirect-Source = %q, want Linktree", got)
	}
}

func TestRedirectMissingTo(t *testing.T) {
	h := NewRedirectHandler(newTestResolver(&stubRecords{}))

	req := httptest.NewRequest(http.MethodGet, "/api/redirect", nil)
	rr := httptest.NewRecorder()
	h.Redirect(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "missing 'to'" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestRedirectInvalidTo(t *testing.T) {
	h := NewRedirectHandler(newTestResolver(&stubRecords{}))

	req := httptest.NewRequest(http.MethodGet, "/api/redirect?to=%25zz", nil)
	rr := httptest.NewRecorder()
	h.Redirect(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestRedirectFileNoStore(t *testing.T) {
	h := NewRedirectHandler(newTestResolver(&stubRecords{}))

	req := httptest.NewRequest(http.MethodGet, "/api/redirect?to=https://example.com/a.pdf&isFile=true", nil)
	rr := httptest.NewRecorder()
	h.Redirect(rr, req)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}
