package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealscale/redirect-engine/internal/config"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/repository"
	"github.com/dealscale/redirect-engine/internal/service"
)

type linktreeRecords struct {
	stubRecords
	items   []*model.CampaignRecord
	triage  []repository.TriageRow
	listErr error
}

func (s *linktreeRecords) ListLinkTree(ctx context.Context) ([]*model.CampaignRecord, error) {
	return s.items, s.listErr
}

func (s *linktreeRecords) Triage(ctx context.Context, limit int) ([]repository.TriageRow, error) {
	return s.triage, nil
}

func TestLinkTreeList(t *testing.T) {
	records := &linktreeRecords{items: []*model.CampaignRecord{
		{Slug: "promo", Destination: "https://example.com", LinkTreeEnabled: true},
	}}
	h := &LinkTreeHandler{LinkTree: &service.LinkTreeService{Records: records}}

	req := httptest.NewRequest(http.MethodGet, "/api/linktree", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		OK    bool                    `json:"ok"`
		Items []*model.CampaignRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || len(body.Items) != 1 || body.Items[0].Slug != "promo" {
		t.Errorf("body = %+v", body)
	}
}

func TestLinkTreeClickResolvesSlug(t *testing.T) {
	records := &stubRecords{bySlug: map[string]*model.CampaignRecord{
		"promo": {Slug: "promo", Destination: "https://example.com", SourcePageID: "page-1"},
	}}
	h := &LinkTreeHandler{Resolver: newTestResolver(records)}

	req := httptest.NewRequest(http.MethodGet, "/api/linktree/click?slug=promo", nil)
	rr := httptest.NewRecorder()
	h.Click(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["pageId"] != "page-1" {
		t.Errorf("pageId = %v", body["pageId"])
	}
}

func TestLinkTreeClickMissingAddress(t *testing.T) {
	h := &LinkTreeHandler{Resolver: newTestResolver(&stubRecords{})}

	req := httptest.NewRequest(http.MethodGet, "/api/linktree/click", nil)
	rr := httptest.NewRecorder()
	h.Click(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestDebugReport(t *testing.T) {
	records := &linktreeRecords{
		items: []*model.CampaignRecord{
			{Slug: "promo", Destination: "https://example.com", LinkTreeEnabled: true},
		},
		triage: []repository.TriageRow{
			{PageID: "bad-1", Enabled: true, Reasons: []string{"missing destination"}},
			{PageID: "ok-1", Enabled: true, Reasons: []string{}},
		},
	}
	h := &DebugHandler{
		Cfg: config.Config{
			NotionKey:         "k",
			NotionRedirectsDB: "db",
			DevRedirects:      `{"live-demo":"https://app.dealscale.io"}`,
		},
		LinkTree: &service.LinkTreeService{Records: records},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/debug?slug=live-demo", nil)
	rr := httptest.NewRecorder()
	h.Report(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		OK     bool `json:"ok"`
		Notion struct {
			Configured bool `json:"configured"`
		} `json:"notion"`
		Cache struct {
			Reachable bool `json:"reachable"`
		} `json:"cache"`
		SampleResolution struct {
			DevHit string `json:"devHit"`
		} `json:"sampleResolution"`
		Linktree struct {
			Count    int                    `json:"count"`
			Invalids []repository.TriageRow `json:"invalids"`
		} `json:"linktree"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || !body.Notion.Configured {
		t.Errorf("report = %+v", body)
	}
	if body.Cache.Reachable {
		t.Error("no cache wired, reachable must be false")
	}
	if body.SampleResolution.DevHit != "https://app.dealscale.io" {
		t.Errorf("devHit = %q", body.SampleResolution.DevHit)
	}
	if body.Linktree.Count != 1 {
		t.Errorf("count = %d", body.Linktree.Count)
	}
	if len(body.Linktree.Invalids) != 1 || body.Linktree.Invalids[0].PageID != "bad-1" {
		t.Errorf("invalids = %+v", body.Linktree.Invalids)
	}
}
