package repository

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dealscale/redirect-engine/internal/model"
	"github.com/dealscale/redirect-engine/internal/notion"
)

// mapPage normalizes a Notion page's heterogeneous property shapes into a
// canonical CampaignRecord. Property variants never leak past this file.
func mapPage(page *notion.Page) *model.CampaignRecord {
	props := page.Properties

	rec := &model.CampaignRecord{SourcePageID: page.ID}

	rawSlug := notion.SanitizeText(plainProp(page, "Slug"))
	title := notion.SanitizeText(plainProp(page, "Title"))
	rec.Slug = strings.ToLower(strings.TrimPrefix(rawSlug, "/"))
	// Fallback: a leading-slash title doubles as the slug.
	if rec.Slug == "" && strings.HasPrefix(title, "/") {
		rec.Slug = strings.ToLower(strings.TrimPrefix(strings.Fields(title)[0], "/"))
	}
	rec.Title = title
	if rec.Title == "" {
		rec.Title = rec.Slug
	}

	rec.Destination = destinationFrom(pickProp(props, "Destination"))
	rec.Description = plainProp(page, "Description")
	if rec.Description == "" {
		rec.Description = propText(pickProp(props, "Desc"))
	}
	rec.Details = plainProp(page, "Details")
	if rec.Details == "" {
		rec.Details = propText(pickProp(props, "Detail"))
	}
	rec.Category = selectName(pickProp(props, "Category"))

	if page.Icon != nil {
		rec.IconEmoji = page.Icon.Emoji
	}

	rec.LinkTreeEnabled = linkTreeEnabled(props)
	pinned := pickProp(props, "Pinned")
	rec.Pinned = pinned.Bool()

	rec.Files = filesFrom(props)
	rec.ImageURL = imageFrom(page)
	video := pickProp(props, "Video")
	rec.VideoURL = video.URLValue()
	// Media fallbacks when no explicit image/video property is set.
	if rec.ImageURL == "" {
		rec.ImageURL = firstFileOfKind(rec.Files, "image")
	}
	if rec.VideoURL == "" {
		rec.VideoURL = firstFileOfKind(rec.Files, "video")
	}

	rec.Utm = utmFrom(props)
	counter := pickProp(props, CallCounterProperty)
	rec.CallCount = int(counter.NumberValue())

	return rec
}

// pickProp finds a property by name: exact match first, then
// case-insensitive, then prefix/substring. Editors rename columns; the
// mapper should survive that.
func pickProp(props map[string]notion.Property, aliases ...string) *notion.Property {
	for _, a := range aliases {
		if p, ok := props[a]; ok {
			return &p
		}
	}
	for _, a := range aliases {
		la := strings.ToLower(a)
		for k, p := range props {
			if strings.ToLower(k) == la {
				return &p
			}
		}
	}
	for _, a := range aliases {
		la := strings.ToLower(a)
		for k, p := range props {
			lk := strings.ToLower(k)
			if strings.HasPrefix(lk, la) || strings.Contains(lk, la) {
				return &p
			}
		}
	}
	return nil
}

func plainProp(page *notion.Page, name string) string {
	return propText(pickProp(page.Properties, name))
}

func propText(p *notion.Property) string {
	return strings.TrimSpace(p.PlainText())
}

func selectName(p *notion.Property) string {
	return p.SelectName()
}

var (
	fullURLRe  = regexp.MustCompile(`(?i)https?://\S+`)
	protoRelRe = regexp.MustCompile(`(^|\s)//\S+`)
	bareHostRe = regexp.MustCompile(`(?i)^[a-z0-9.-]+\.[a-z]{2,}(?:/.*)?$`)
)

// destinationFrom extracts a usable destination from a url or rich_text
// property. Rich text may embed the URL inside prose; pull it out.
func destinationFrom(p *notion.Property) string {
	if p == nil {
		return ""
	}
	if p.Type == "url" {
		d := notion.SanitizeText(p.URLValue())
		if strings.EqualFold(d, "none") {
			return ""
		}
		return d
	}
	if p.Type != "rich_text" && p.Type != "title" {
		return ""
	}
	joined := notion.SanitizeText(p.PlainText())
	if joined == "" || strings.EqualFold(joined, "none") {
		return ""
	}
	if m := fullURLRe.FindString(joined); m != "" {
		return m
	}
	if m := protoRelRe.FindString(joined); m != "" {
		return strings.TrimSpace(m)
	}
	if strings.HasPrefix(joined, "/") {
		return joined
	}
	host := strings.Fields(joined)[0]
	if bareHostRe.MatchString(host) {
		return host
	}
	return ""
}

// linkTreeEnabled is derived from an explicit "Link Tree Enabled" property
// (checkbox, select, status or text) or inferred from Type == "LinkTree".
// Both paths must be checked; absence of both yields false.
func linkTreeEnabled(props map[string]notion.Property) bool {
	if p := pickProp(props, "Link Tree Enabled"); p != nil && p.Bool() {
		return true
	}
	typ := pickProp(props, "Type")
	return typ.SelectName() == "LinkTree"
}

func utmFrom(props map[string]notion.Property) *model.UtmParams {
	get := func(aliases ...string) string {
		return strings.TrimSpace(pickProp(props, aliases...).PlainText())
	}

	// A "(Relation)" override column beats its plain counterpart.
	campaign := get("UTM Campaign (Relation)", "utm_campaign_relation")
	if campaign == "" {
		campaign = get("UTM Campaign", "utm_campaign")
	}

	redirectURL := get("RedirectUrl", "Redirect URL", "redirect_url")
	if redirectURL == "" {
		redirectURL = destinationFrom(pickProp(props, "RedirectUrl", "Redirect URL"))
	}

	utm := &model.UtmParams{
		Source:      get("UTM Source", "utm_source"),
		Campaign:    campaign,
		Medium:      get("UTM Medium", "utm_medium"),
		Content:     get("UTM Content", "utm_content"),
		Term:        get("UTM Term", "utm_term"),
		Offer:       get("UTM Offer", "utm_offer"),
		ID:          get("UTM Id", "utm_id"),
		RedirectURL: notion.SanitizeText(redirectURL),
	}
	if utm.IsZero() {
		return nil
	}
	return utm
}

var (
	imageExtRe = regexp.MustCompile(`(?i)^(jpg|jpeg|png|gif|webp|avif|svg)$`)
	videoExtRe = regexp.MustCompile(`(?i)^(mp4|webm|ogg|mov|m4v)$`)
	extRe      = regexp.MustCompile(`(?i)\.([a-z0-9]+)(?:$|\?|#)`)
)

func inferKind(nameOrURL string) (kind, ext string) {
	m := extRe.FindStringSubmatch(nameOrURL)
	if m == nil {
		return "other", ""
	}
	ext = strings.ToLower(m[1])
	switch {
	case imageExtRe.MatchString(ext):
		return "image", ext
	case videoExtRe.MatchString(ext):
		return "video", ext
	}
	return "other", ext
}

func filesFrom(props map[string]notion.Property) []model.FileMeta {
	p := pickProp(props, "Media", "Files", "File")
	if p == nil || p.Type != "files" {
		return nil
	}
	var out []model.FileMeta
	for _, f := range p.Files {
		meta := model.FileMeta{Name: f.Name}
		switch f.Type {
		case "file":
			if f.File == nil {
				continue
			}
			meta.URL = f.File.URL
			meta.Expiry = f.File.ExpiryTime
		case "external":
			if f.External == nil {
				continue
			}
			meta.URL = f.External.URL
		default:
			continue
		}
		meta.Kind, meta.Ext = inferKind(firstNonEmpty(f.Name, meta.URL))
		out = append(out, meta)
	}
	return out
}

func imageFrom(page *notion.Page) string {
	p := pickProp(page.Properties, "Image", "Thumbnail")
	if p != nil {
		switch p.Type {
		case "url":
			if u := p.URLValue(); u != "" {
				return u
			}
		case "rich_text", "title":
			if u := propText(p); u != "" {
				return u
			}
		}
	}
	if page.Cover != nil && page.Cover.External != nil {
		return page.Cover.External.URL
	}
	return ""
}

func firstFileOfKind(files []model.FileMeta, kind string) string {
	for _, f := range files {
		if f.Kind == kind {
			return f.URL
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasHTTPScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func isValidAbsoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
