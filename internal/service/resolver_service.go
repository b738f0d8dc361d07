// internal/service/resolver_service.go
package service

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	"github.com/dealscale/redirect-engine/internal/attribution"
	appErrors "github.com/dealscale/redirect-engine/internal/errors"
	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/queue"
	"github.com/dealscale/redirect-engine/internal/repository"
)

var (
	ErrMissingDestination = errors.New("missing 'to'")
	ErrInvalidDestination = errors.New("invalid 'to'")
)

// CampaignCacheInterface is the slice of the cache layer the services use.
type CampaignCacheInterface interface {
	Get(ctx context.Context, slug string) (*model.CampaignRecord, error)
	Put(ctx context.Context, slug string, rec *model.CampaignRecord) error
	DeleteField(ctx context.Context, slug string, fields ...string) error
}

// ResolverService turns slugs and destination params into final redirect
// URLs: cache first, record store on miss with a read-through fill, then
// the attribution merge. Counter increments and click events are detached
// and never block the response.
type ResolverService struct {
	Cache   CampaignCacheInterface
	Records repository.RecordRepositoryInterface
	Jobs    queue.Queue
	Events  queue.EventPublisher

	AllowIncomingUtm bool
	SiteHost         string
	DevRedirects     map[string]string
}

// RedirectSourceFromReferer tags where the click came from: the internal
// link-tree page or direct traffic.
func RedirectSourceFromReferer(referer string) string {
	if referer == "" {
		return "Direct"
	}
	u, err := url.Parse(referer)
	if err != nil {
		return "Direct"
	}
	if strings.Contains(u.Path, "/linktree") {
		return "Linktree"
	}
	return "Direct"
}

// ResolveSlug looks a slug up in the cache, then the record store,
// filling the cache on miss. Dev redirects are the last resort when the
// record store has nothing.
func (s *ResolverService) ResolveSlug(ctx context.Context, slug string) (*model.CampaignRecord, error) {
	slug = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(slug), "/"))
	if slug == "" {
		return nil, appErrors.NewRecordNotFound(slug)
	}

	if s.Cache != nil {
		rec, err := s.Cache.Get(ctx, slug)
		if err != nil {
			log.Println("⚠️ cache read failed for slug", slug, ":", err)
		} else if rec != nil && rec.Destination != "" {
			return rec, nil
		}
	}

	rec, err := s.Records.QueryBySlug(ctx, slug)
	if err != nil {
		var notFound *appErrors.ErrRecordNotFound
		if !errors.As(err, &notFound) {
			// Transient upstream failure: prefer the dev fallback over a
			// hard error when one exists.
			log.Println("⚠️ record store lookup failed for slug", slug, ":", err)
		}
		if dest, ok := s.DevRedirects[slug]; ok {
			return &model.CampaignRecord{Slug: slug, Destination: dest}, nil
		}
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Put(ctx, slug, rec); err != nil {
			log.Println("⚠️ cache fill failed for slug", slug, ":", err)
		}
	}
	return rec, nil
}

// BuildSlugRedirect resolves a bare slug path to its attributed
// destination. Errors mean the caller should fail open and pass the
// request through.
func (s *ResolverService) BuildSlugRedirect(ctx context.Context, slug string, incoming url.Values, referer, clientIP string) (string, error) {
	rec, err := s.ResolveSlug(ctx, slug)
	if err != nil {
		return "", err
	}

	merged, err := attribution.Merge(attribution.Input{
		Destination:           rec.Destination,
		CmsUtm:                rec.Utm,
		Incoming:              incoming,
		AllowIncomingOverride: s.AllowIncomingUtm,
		SiteHost:              s.SiteHost,
		Slug:                  rec.Slug,
	})
	if err != nil {
		log.Printf("⚠️ skipping redirect for slug %s, destination %q: %v\n", slug, rec.Destination, err)
		return "", err
	}

	s.TrackClick(rec.Slug, rec.SourcePageID, merged, referer, clientIP)
	return merged, nil
}

// BuildExplicitRedirect serves /api/redirect: the destination arrives in
// the query string, optionally with a slug or pageId for attribution and
// counting.
func (s *ResolverService) BuildExplicitRedirect(ctx context.Context, to, pageID, slug string, incoming url.Values, referer, clientIP string) (string, error) {
	if to == "" {
		return "", ErrMissingDestination
	}
	// Only decode encoded relative paths (e.g. %2Fsignup); absolute URLs
	// stay as-is to avoid breaking embedded signatures.
	if strings.HasPrefix(to, "%2F") {
		if decoded, err := url.QueryUnescape(to); err == nil {
			to = decoded
		}
	}

	var cmsUtm *model.UtmParams
	if slug != "" {
		rec, err := s.ResolveSlug(ctx, slug)
		if err == nil {
			cmsUtm = rec.Utm
			if pageID == "" {
				pageID = rec.SourcePageID
			}
		} else {
			var notFound *appErrors.ErrRecordNotFound
			if !errors.As(err, &notFound) {
				log.Println("⚠️ attribution lookup failed for slug", slug, ":", err)
			}
		}
	}

	merged, err := attribution.Merge(attribution.Input{
		Destination:           to,
		CmsUtm:                cmsUtm,
		Incoming:              incoming,
		AllowIncomingOverride: s.AllowIncomingUtm,
		SiteHost:              s.SiteHost,
		Slug:                  strings.TrimPrefix(strings.ToLower(slug), "/"),
	})
	if err != nil {
		return "", ErrInvalidDestination
	}

	s.TrackClick(slug, pageID, merged, referer, clientIP)
	return merged, nil
}

// SubmitCounterIncrement detaches one best-effort call-counter write.
func (s *ResolverService) SubmitCounterIncrement(pageID string) {
	if pageID == "" || s.Jobs == nil {
		return
	}
	if err := s.Jobs.Publish(queue.TopicCounterIncrements, pageID); err != nil {
		log.Println("⚠️ failed to enqueue counter increment:", err)
	}
}

// TrackClick detaches the counter increment and emits a click event to
// the broker. Both paths are best-effort.
func (s *ResolverService) TrackClick(slug, pageID, destination, referer, clientIP string) {
	s.SubmitCounterIncrement(pageID)
	if s.Events == nil {
		return
	}
	ev := model.ClickEvent{
		Slug:           strings.TrimPrefix(strings.ToLower(slug), "/"),
		PageID:         pageID,
		Destination:    destination,
		RedirectSource: RedirectSourceFromReferer(referer),
		Referer:        referer,
		ClientIP:       clientIP,
	}
	if err := s.Events.PublishClick(ev); err != nil {
		log.Println("⚠️ failed to publish click event:", err)
	}
}
