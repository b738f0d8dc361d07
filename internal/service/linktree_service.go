// internal/service/linktree_service.go
package service

import (
	"context"

	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/repository"
)

// LinkTreeService backs the listing endpoint and diagnostics triage.
// Read-only; it never mutates anything.
type LinkTreeService struct {
	Records repository.RecordRepositoryInterface
}

// ListItems returns the valid link-tree-enabled records.
func (s *LinkTreeService) ListItems(ctx context.Context) ([]*model.CampaignRecord, error) {
	return s.Records.ListLinkTree(ctx)
}

// InvalidRows returns enabled records that would be excluded from serving,
// with the reasons, for operational triage.
func (s *LinkTreeService) InvalidRows(ctx context.Context, limit int) ([]repository.TriageRow, error) {
	rows, err := s.Records.Triage(ctx, limit)
	if err != nil {
		return nil, err
	}
	invalid := []repository.TriageRow{}
	for _, row := range rows {
		if row.Enabled && len(row.Reasons) > 0 {
			invalid = append(invalid, row)
		}
	}
	return invalid, nil
}
