package attribution

import (
	"net/url"
	"strings"
	"testing"

	"github.com/dealscale/redirect-engine/internal/model"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("result %q did not parse: %v", raw, err)
	}
	return u
}

func TestMergeDestinationUtmNeverOverwritten(t *testing.T) {
	result, err := Merge(Input{
		Destination: "https://example.com/x?utm_source=old",
		CmsUtm:      &model.UtmParams{Source: "new"},
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	if got := q.Get("utm_source"); got != "old" {
		t.Errorf("utm_source = %q, want old", got)
	}
}

func TestMergeDefaultsInjectedWhenNoCmsUtm(t *testing.T) {
	result, err := Merge(Input{
		Destination: "https://example.com/target",
		CmsUtm:      nil,
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	if got := q.Get("utm_source"); got != "dealscale.io" {
		t.Errorf("utm_source = %q, want dealscale.io", got)
	}
	if got := q.Get("utm_campaign"); got != "promo" {
		t.Errorf("utm_campaign = %q, want promo", got)
	}
}

func TestMergeDefaultsAllOrNothing(t *testing.T) {
	// A CMS UTM set with only utm_source must NOT pull in a default
	// utm_campaign.
	result, err := Merge(Input{
		Destination: "https://example.com/target",
		CmsUtm:      &model.UtmParams{Source: "cms"},
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	if got := q.Get("utm_source"); got != "cms" {
		t.Errorf("utm_source = %q, want cms", got)
	}
	if q.Has("utm_campaign") {
		t.Errorf("utm_campaign injected despite CMS UTM object being present: %q", q.Get("utm_campaign"))
	}
}

func TestMergeInternalParamsStripped(t *testing.T) {
	incoming := url.Values{}
	incoming.Set("pageId", "test-page-123")
	incoming.Set("slug", "test-slug")
	incoming.Set("isFile", "true")
	incoming.Set("ref", "newsletter")

	result, err := Merge(Input{
		Destination: "https://example.com/target",
		Incoming:    incoming,
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	for _, key := range []string{"pageId", "slug", "isFile", "to"} {
		if q.Has(key) {
			t.Errorf("internal param %q leaked into final URL", key)
		}
	}
	if got := q.Get("ref"); got != "newsletter" {
		t.Errorf("non-internal incoming param dropped, ref = %q", got)
	}
}

func TestMergeIncomingOverride(t *testing.T) {
	incoming := url.Values{}
	incoming.Set("utm_campaign", "incoming")
	in := Input{
		Destination: "https://example.com/target",
		CmsUtm:      &model.UtmParams{Campaign: "cms"},
		Incoming:    incoming,
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	}

	result, err := Merge(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustParse(t, result).Query().Get("utm_campaign"); got != "cms" {
		t.Errorf("override disabled: utm_campaign = %q, want cms", got)
	}

	in.AllowIncomingOverride = true
	result, err = Merge(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustParse(t, result).Query().Get("utm_campaign"); got != "incoming" {
		t.Errorf("override enabled: utm_campaign = %q, want incoming", got)
	}
}

func TestMergeIncomingPlaceholdersSkipped(t *testing.T) {
	incoming := url.Values{}
	incoming.Set("utm_source", "undefined")
	incoming.Set("utm_campaign", "null")

	result, err := Merge(Input{
		Destination:           "https://example.com/target",
		CmsUtm:                &model.UtmParams{Source: "cms", Campaign: "spring"},
		Incoming:              incoming,
		AllowIncomingOverride: true,
		SiteHost:              "dealscale.io",
		Slug:                  "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	if got := q.Get("utm_source"); got != "cms" {
		t.Errorf("utm_source = %q, want cms", got)
	}
	if got := q.Get("utm_campaign"); got != "spring" {
		t.Errorf("utm_campaign = %q, want spring", got)
	}
}

func TestMergeRelativeDestinationUntouched(t *testing.T) {
	incoming := url.Values{}
	incoming.Set("utm_source", "incoming")

	result, err := Merge(Input{
		Destination:           "/signup",
		Incoming:              incoming,
		AllowIncomingOverride: true,
		SiteHost:              "dealscale.io",
		Slug:                  "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != "/signup" {
		t.Errorf("relative destination mutated: %q", result)
	}
}

func TestMergeSignedURLUntouched(t *testing.T) {
	signed := "https://bucket.s3.us-east-1.amazonaws.com/file.pdf?X-Amz-Signature=abc123&X-Amz-Expires=3600"
	result, err := Merge(Input{
		Destination: signed,
		CmsUtm:      &model.UtmParams{Source: "cms"},
		SiteHost:    "dealscale.io",
		Slug:        "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != signed {
		t.Errorf("signed URL mutated:\n got %q\nwant %q", result, signed)
	}
}

func TestMergeSecondStageEmbedding(t *testing.T) {
	result, err := Merge(Input{
		Destination: "https://example.com/target",
		CmsUtm: &model.UtmParams{
			Source:      "cms",
			Campaign:    "spring",
			RedirectURL: "https://app.example.com/next?utm_source=stale",
		},
		SiteHost: "dealscale.io",
		Slug:     "promo",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := mustParse(t, result).Query()
	second := mustParse(t, q.Get("utm_redirect_url"))
	sq := second.Query()
	if got := sq.Get("utm_source"); got != "cms" {
		t.Errorf("second stage utm_source = %q, want cms", got)
	}
	if got := sq.Get("utm_campaign"); got != "spring" {
		t.Errorf("second stage utm_campaign = %q, want spring", got)
	}
	if strings.Contains(q.Get("utm_redirect_url"), "stale") {
		t.Error("stale UTM left on second-stage URL")
	}
}

func TestNormalizeForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"//example.com/target", "https://example.com/target"},
		{"example.com", "https://example.com"},
		{"example.com/target", "https://example.com/target"},
		{"https://example.com/target", "https://example.com/target"},
		{"/internal/path", "/internal/path"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Errorf("Normalize(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
		// Idempotence: re-normalizing is a no-op.
		again, err := Normalize(got)
		if err != nil || again != got {
			t.Errorf("Normalize(%q) not idempotent: %q, %v", got, again, err)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "x", "https://", "not a url at all"} {
		if got, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q) = %q, want error", in, got)
		}
	}
}
