package config

import (
	"encoding/json"
	"strings"
)

// ParseDevRedirects reads slug→destination fallbacks used when no CMS
// credentials are configured. Priority: JSON object, then "slug=url" CSV,
// then a built-in minimal default for local testing.
func ParseDevRedirects(raw string) map[string]string {
	out := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw != "" {
		var obj map[string]string
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			for k, v := range obj {
				out[strings.ToLower(k)] = v
			}
			return out
		}
		for _, pair := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if ok && strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	out["live-demo"] = "https://app.dealscale.io"
	return out
}
