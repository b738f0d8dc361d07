package repository

import (
	"context"
	"log"
	"strings"

	appErrors "github.com/dealscale/redirect-engine/internal/errors"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/notion"
)

// CallCounterProperty is the Notion number property holding the redirect
// call count.
const CallCounterProperty = "Redirects (Calls)"

type RecordRepositoryInterface interface {
	// QueryBySlug resolves a slug to its record, trying slash and property
	// variants the way editors actually enter them.
	QueryBySlug(ctx context.Context, slug string) (*model.CampaignRecord, error)
	// FetchRecordByID re-reads a single record. The parent database ID is
	// returned alongside so the ingestor can scope-check the page.
	FetchRecordByID(ctx context.Context, pageID string) (*model.CampaignRecord, string, error)
	// IncrementCallCounter is best-effort: failures are logged, never
	// surfaced. The read-modify-write is not atomic; two concurrent
	// increments for the same page can lose one. Counters are directional
	// indicators, not audit counts.
	IncrementCallCounter(ctx context.Context, pageID string)
	// ListLinkTree returns all valid link-tree-enabled records.
	ListLinkTree(ctx context.Context) ([]*model.CampaignRecord, error)
	// Triage returns per-row validity diagnostics for operational review.
	Triage(ctx context.Context, limit int) ([]TriageRow, error)
	Configured() bool
}

// TriageRow is one database row with the reasons it would be excluded from
// serving, if any.
type TriageRow struct {
	PageID      string   `json:"pageId"`
	Title       string   `json:"title,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Destination string   `json:"destination,omitempty"`
	Enabled     bool     `json:"enabled"`
	Reasons     []string `json:"reasons"`
}

type RecordRepository struct {
	Client     *notion.Client
	DatabaseID string
}

var _ RecordRepositoryInterface = (*RecordRepository)(nil)

func (r *RecordRepository) Configured() bool {
	return r.Client.Configured() && r.DatabaseID != ""
}

func (r *RecordRepository) QueryBySlug(ctx context.Context, slug string) (*model.CampaignRecord, error) {
	if !r.Configured() {
		return nil, appErrors.NewRecordNotFound(slug)
	}

	// Editors store slugs with and without a leading slash, in rich_text
	// or title properties. Try each candidate against each filter shape.
	bare := strings.TrimPrefix(slug, "/")
	candidates := []string{bare, "/" + bare}
	filters := []func(s string) map[string]any{
		func(s string) map[string]any {
			return map[string]any{"property": "Slug", "rich_text": map[string]any{"equals": s}}
		},
		func(s string) map[string]any {
			return map[string]any{"property": "Slug", "title": map[string]any{"equals": s}}
		},
		func(s string) map[string]any {
			return map[string]any{"property": "Title", "title": map[string]any{"equals": s}}
		},
	}

	var lastErr error
	for _, s := range candidates {
		for _, build := range filters {
			resp, err := r.Client.QueryDatabase(ctx, r.DatabaseID, notion.QueryRequest{
				PageSize: 1,
				Filter:   build(s),
			})
			if err != nil {
				lastErr = err
				continue
			}
			if len(resp.Results) == 0 {
				continue
			}
			rec := mapPage(&resp.Results[0])
			if rec.Destination == "" {
				continue
			}
			if hasHTTPScheme(rec.Destination) && !isValidAbsoluteHTTPURL(rec.Destination) {
				// Flagged invalid; excluded from serving.
				continue
			}
			return rec, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, appErrors.NewRecordNotFound(slug)
}

func (r *RecordRepository) FetchRecordByID(ctx context.Context, pageID string) (*model.CampaignRecord, string, error) {
	page, err := r.Client.GetPage(ctx, pageID)
	if err != nil {
		return nil, "", err
	}
	return mapPage(page), page.Parent.DatabaseID, nil
}

func (r *RecordRepository) IncrementCallCounter(ctx context.Context, pageID string) {
	if !r.Client.Configured() {
		return
	}
	page, err := r.Client.GetPage(ctx, pageID)
	if err != nil {
		log.Println("⚠️ counter read failed for page", pageID, ":", err)
		return
	}
	prop := page.Properties[CallCounterProperty]
	next := prop.NumberValue() + 1
	if err := r.Client.UpdateNumberProperty(ctx, pageID, CallCounterProperty, next); err != nil {
		log.Println("⚠️ counter write failed for page", pageID, ":", err)
		return
	}
	log.Printf("📈 call counter for page %s -> %.0f\n", pageID, next)
}

func (r *RecordRepository) ListLinkTree(ctx context.Context) ([]*model.CampaignRecord, error) {
	if !r.Configured() {
		return nil, nil
	}
	resp, err := r.Client.QueryDatabase(ctx, r.DatabaseID, notion.QueryRequest{PageSize: 100})
	if err != nil {
		return nil, err
	}

	records := []*model.CampaignRecord{}
	for i := range resp.Results {
		rec := mapPage(&resp.Results[i])
		if !rec.LinkTreeEnabled {
			continue
		}
		if rec.Slug == "" || (rec.Destination == "" && len(rec.Files) == 0) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *RecordRepository) Triage(ctx context.Context, limit int) ([]TriageRow, error) {
	if !r.Configured() {
		return nil, nil
	}
	resp, err := r.Client.QueryDatabase(ctx, r.DatabaseID, notion.QueryRequest{PageSize: 100})
	if err != nil {
		return nil, err
	}

	rows := []TriageRow{}
	for i := range resp.Results {
		page := &resp.Results[i]
		rec := mapPage(page)
		title := plainProp(page, "Title")

		reasons := []string{}
		if rec.Slug == "" && !strings.HasPrefix(title, "/") {
			reasons = append(reasons, "missing slug")
		}
		if rec.Destination == "" {
			reasons = append(reasons, "missing destination")
		} else if hasHTTPScheme(rec.Destination) && !isValidAbsoluteHTTPURL(rec.Destination) {
			reasons = append(reasons, "invalid absolute destination")
		}

		rows = append(rows, TriageRow{
			PageID:      page.ID,
			Title:       title,
			Slug:        rec.Slug,
			Destination: rec.Destination,
			Enabled:     rec.LinkTreeEnabled,
			Reasons:     reasons,
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
