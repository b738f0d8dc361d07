// Package attribution combines destination-URL query parameters,
// CMS-configured UTM values and inbound request parameters into the final
// redirect URL. Everything here is pure: no I/O, no clocks.
package attribution

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dealscale/redirect-engine/internal/model"
)

// Internal routing parameters, never propagated into the final URL.
var internalParams = map[string]bool{
	"to":     true,
	"pageId": true,
	"slug":   true,
	"isFile": true,
}

var bareHostRe = regexp.MustCompile(`(?i)^[a-z0-9.-]+\.[a-z]{2,}(?:/.*)?$`)

// Normalize coerces protocol-relative (//host/path) and bare-hostname
// (host.tld/path) destinations to https and validates absolute URLs.
// Site-relative paths pass through unchanged. Normalizing an already
// normalized URL is a no-op.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty destination")
	}
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	if strings.HasPrefix(s, "/") {
		return s, nil
	}
	if !hasHTTPScheme(s) {
		if !bareHostRe.MatchString(s) {
			return "", fmt.Errorf("destination %q is neither a path nor a host", raw)
		}
		s = "https://" + s
	}
	if !IsValidAbsoluteHTTPURL(s) {
		return "", fmt.Errorf("invalid absolute URL %q", raw)
	}
	return s, nil
}

// IsValidAbsoluteHTTPURL reports whether s parses as an absolute http(s)
// URL with a non-empty host.
func IsValidAbsoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

func hasHTTPScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// isSigned detects signature-bearing URLs (pre-signed object storage
// links). Appending params to one corrupts the signature.
func isSigned(u *url.URL) bool {
	if strings.HasSuffix(strings.ToLower(u.Hostname()), "amazonaws.com") {
		return true
	}
	for k := range u.Query() {
		if strings.HasPrefix(strings.ToLower(k), "x-amz-") {
			return true
		}
	}
	return false
}

// Input carries everything one merge needs.
type Input struct {
	// Destination is the raw destination URL (pre- or post-normalization).
	Destination string
	// CmsUtm is the UTM set configured on the matched record; nil means
	// the record carried no UTM data at all, which enables default
	// injection.
	CmsUtm *model.UtmParams
	// Incoming holds the inbound request's query parameters.
	Incoming url.Values
	// AllowIncomingOverride lets inbound utm_* values beat CMS values.
	AllowIncomingOverride bool
	// SiteHost is the default utm_source; Slug the default utm_campaign.
	SiteHost string
	Slug     string
}

// Merge applies the attribution precedence rules and returns the final
// URL. Per UTM key, highest wins and stops evaluation:
//
//  1. a utm_* param already on the destination URL is kept verbatim
//  2. an inbound param, when overriding is enabled
//  3. the CMS-configured value
//  4. process defaults, only when no CMS UTM set exists at all
//
// Non-UTM inbound params are appended when the destination lacks them.
// Relative destinations and signed URLs are returned unchanged.
func Merge(in Input) (string, error) {
	dest, err := Normalize(in.Destination)
	if err != nil {
		return "", err
	}
	// Internal paths: resolution is delegated downstream, no mutation.
	if strings.HasPrefix(dest, "/") {
		return dest, nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return "", err
	}
	if isSigned(u) {
		return dest, nil
	}

	q := u.Query()

	setUtm := func(key, val string) {
		if val == "" {
			return
		}
		if q.Get(key) != "" {
			return // rule 1: destination wins, always
		}
		q.Set(key, val)
	}

	// Rule 2: inbound overrides, when enabled. Placeholder junk from
	// templating mistakes ("undefined", "null") is skipped.
	if in.AllowIncomingOverride {
		for key, vals := range in.Incoming {
			if !strings.HasPrefix(key, "utm_") || len(vals) == 0 {
				continue
			}
			v := strings.TrimSpace(vals[0])
			if v == "" || strings.EqualFold(v, "undefined") || strings.EqualFold(v, "null") {
				continue
			}
			setUtm(key, v)
		}
	}

	// Rule 3: CMS-configured values.
	if in.CmsUtm != nil {
		setUtm("utm_source", in.CmsUtm.Source)
		setUtm("utm_campaign", in.CmsUtm.Campaign)
		setUtm("utm_medium", in.CmsUtm.Medium)
		setUtm("utm_content", in.CmsUtm.Content)
		setUtm("utm_term", in.CmsUtm.Term)
		setUtm("utm_offer", in.CmsUtm.Offer)
		setUtm("utm_id", in.CmsUtm.ID)
		setUtm("utm_redirect_url", in.CmsUtm.RedirectURL)
	} else {
		// Rule 4: default injection is all-or-nothing. Only a record with
		// no UTM object at all gets the process defaults.
		setUtm("utm_source", in.SiteHost)
		setUtm("utm_campaign", in.Slug)
	}

	// Rule 5: non-UTM inbound params are carried over, destination first.
	for key, vals := range in.Incoming {
		if strings.HasPrefix(key, "utm_") || internalParams[key] || len(vals) == 0 {
			continue
		}
		if q.Get(key) == "" {
			q.Set(key, vals[0])
		}
	}

	// Rule 6: internal routing params never leak.
	for key := range internalParams {
		q.Del(key)
	}

	embedSecondStage(q)

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// embedSecondStage copies the merged utm_* set into the second-stage
// utm_redirect_url, replacing whatever UTM params it carried, so both
// hops report the same attribution.
func embedSecondStage(q url.Values) {
	raw := q.Get("utm_redirect_url")
	if raw == "" {
		return
	}
	second, err := url.Parse(raw)
	if err != nil || second.Host == "" {
		return
	}
	sq := second.Query()
	for key := range sq {
		if strings.HasPrefix(key, "utm_") {
			sq.Del(key)
		}
	}
	for key, vals := range q {
		if strings.HasPrefix(key, "utm_") && key != "utm_redirect_url" && len(vals) > 0 {
			sq.Set(key, vals[0])
		}
	}
	second.RawQuery = sq.Encode()
	q.Set("utm_redirect_url", second.String())
}
