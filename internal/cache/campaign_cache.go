// internal/cache/campaign_cache.go
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dealscale/redirect-engine/internal/model"
)

const keyPrefix = "campaign:"

// Hash field names. utm and files are stored as JSON strings.
const (
	FieldDestination     = "destination"
	FieldUtm             = "utm"
	FieldLinkTreeEnabled = "linkTreeEnabled"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldDetails         = "details"
	FieldIconEmoji       = "iconEmoji"
	FieldImageURL        = "imageUrl"
	FieldCategory        = "category"
	FieldPinned          = "pinned"
	FieldVideoURL        = "videoUrl"
	FieldFiles           = "files"
	FieldPageID          = "pageId"
)

// CampaignCache stores one denormalized record per slug as a Redis hash
// under campaign:<slug>. No TTL is set: the webhook ingestor performs
// explicit invalidation, which is the correctness mechanism.
type CampaignCache struct {
	RDB *redis.Client
}

func NewCampaignCache(rdb *redis.Client) *CampaignCache {
	return &CampaignCache{RDB: rdb}
}

func Key(slug string) string {
	return keyPrefix + strings.TrimPrefix(strings.ToLower(slug), "/")
}

// Get returns the cached record for a slug, or (nil, nil) on miss.
func (c *CampaignCache) Get(ctx context.Context, slug string) (*model.CampaignRecord, error) {
	data, err := c.RDB.HGetAll(ctx, Key(slug)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return fromHash(strings.TrimPrefix(strings.ToLower(slug), "/"), data), nil
}

// Put writes the record's hash entry. Empty fields are dropped from the
// payload; callers that need absence to be observable after an update use
// DeleteField first.
func (c *CampaignCache) Put(ctx context.Context, slug string, rec *model.CampaignRecord) error {
	payload := toHash(rec)
	return c.RDB.HSet(ctx, Key(slug), payload).Err()
}

// DeleteField removes individual hash fields, making absence observable
// rather than leaving stale values behind.
func (c *CampaignCache) DeleteField(ctx context.Context, slug string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return c.RDB.HDel(ctx, Key(slug), fields...).Err()
}

// Slugs lists every cached slug.
func (c *CampaignCache) Slugs(ctx context.Context) ([]string, error) {
	keys, err := c.RDB.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(keys))
	for _, k := range keys {
		slugs = append(slugs, strings.TrimPrefix(k, keyPrefix))
	}
	return slugs, nil
}

// Ping reports cache connectivity for diagnostics.
func (c *CampaignCache) Ping(ctx context.Context) error {
	return c.RDB.Ping(ctx).Err()
}

func toHash(rec *model.CampaignRecord) map[string]string {
	out := map[string]string{}
	set := func(field, val string) {
		if val != "" {
			out[field] = val
		}
	}
	set(FieldDestination, rec.Destination)
	set(FieldTitle, rec.Title)
	set(FieldDescription, rec.Description)
	set(FieldDetails, rec.Details)
	set(FieldIconEmoji, rec.IconEmoji)
	set(FieldImageURL, rec.ImageURL)
	set(FieldCategory, rec.Category)
	set(FieldVideoURL, rec.VideoURL)
	set(FieldPageID, rec.SourcePageID)
	out[FieldLinkTreeEnabled] = strconv.FormatBool(rec.LinkTreeEnabled)
	out[FieldPinned] = strconv.FormatBool(rec.Pinned)
	if rec.Utm != nil {
		if raw, err := json.Marshal(rec.Utm); err == nil {
			out[FieldUtm] = string(raw)
		}
	}
	if len(rec.Files) > 0 {
		if raw, err := json.Marshal(rec.Files); err == nil {
			out[FieldFiles] = string(raw)
		}
	}
	return out
}

func fromHash(slug string, data map[string]string) *model.CampaignRecord {
	rec := &model.CampaignRecord{
		Slug:            slug,
		Destination:     data[FieldDestination],
		Title:           data[FieldTitle],
		Description:     data[FieldDescription],
		Details:         data[FieldDetails],
		IconEmoji:       data[FieldIconEmoji],
		ImageURL:        data[FieldImageURL],
		Category:        data[FieldCategory],
		VideoURL:        data[FieldVideoURL],
		SourcePageID:    data[FieldPageID],
		LinkTreeEnabled: coerceBool(data[FieldLinkTreeEnabled]),
		Pinned:          coerceBool(data[FieldPinned]),
	}
	if raw := data[FieldUtm]; raw != "" {
		var utm model.UtmParams
		if err := json.Unmarshal([]byte(raw), &utm); err == nil && !utm.IsZero() {
			rec.Utm = &utm
		}
	}
	if raw := data[FieldFiles]; raw != "" {
		var files []model.FileMeta
		if err := json.Unmarshal([]byte(raw), &files); err == nil {
			rec.Files = files
		}
	}
	return rec
}

func coerceBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
