// internal/service/ingest_service.go
package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/dealscale/redirect-engine/internal/cache"
	"github.com/dealscale/redirect-engine/internal/queue"
	"github.com/dealscale/redirect-engine/internal/repository"
)

// ErrIncompleteRecord marks a CMS page that cannot be served: no slug or
// no destination after mapping.
var ErrIncompleteRecord = errors.New("missing slug or destination")

// InvalidationTag is the cache tag the rendering layer refetches on.
const InvalidationTag = "link-tree"

// IngestResult reports what one webhook delivery did.
type IngestResult struct {
	Slug    string
	Ignored bool
	Reason  string
}

// IngestService handles CMS change notifications: re-read the record,
// scope-check it, recompute derived fields, persist to the cache, and
// signal invalidation downstream.
type IngestService struct {
	Records    repository.RecordRepositoryInterface
	Cache      CampaignCacheInterface
	Events     queue.EventPublisher
	DatabaseID string
}

func normalizeID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

func (s *IngestService) Ingest(ctx context.Context, pageID string) (*IngestResult, error) {
	rec, parentDB, err := s.Records.FetchRecordByID(ctx, pageID)
	if err != nil {
		return nil, err
	}

	// Pages from unrelated databases are a benign no-op, not an error.
	if s.DatabaseID != "" && parentDB != "" &&
		normalizeID(parentDB) != normalizeID(s.DatabaseID) {
		log.Println("ℹ️ ignoring page", pageID, "from database", parentDB)
		return &IngestResult{Ignored: true, Reason: "different_database"}, nil
	}

	if rec.Slug == "" || rec.Destination == "" {
		return nil, ErrIncompleteRecord
	}

	// Media that disappeared from the record must disappear from the
	// cache too; absence has to be observable.
	stale := []string{}
	if rec.ImageURL == "" {
		stale = append(stale, cache.FieldImageURL)
	}
	if rec.VideoURL == "" {
		stale = append(stale, cache.FieldVideoURL)
	}
	if len(rec.Files) == 0 {
		stale = append(stale, cache.FieldFiles)
	}
	if len(stale) > 0 {
		if err := s.Cache.DeleteField(ctx, rec.Slug, stale...); err != nil {
			log.Println("⚠️ stale field delete failed for slug", rec.Slug, ":", err)
		}
	}

	if err := s.Cache.Put(ctx, rec.Slug, rec); err != nil {
		return nil, err
	}

	if s.Events != nil {
		if err := s.Events.PublishInvalidation(InvalidationTag, rec.Slug); err != nil {
			log.Println("⚠️ invalidation signal failed for slug", rec.Slug, ":", err)
		}
	}

	log.Println("✅ ingested page", pageID, "as slug", rec.Slug)
	return &IngestResult{Slug: rec.Slug}, nil
}
