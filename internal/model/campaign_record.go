// internal/model/campaign_record.go
package model

// UtmParams carries the CMS-configured attribution values for a record.
// Absent and empty string mean the same thing during a merge: not set.
type UtmParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Content  string `json:"utm_content,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Offer    string `json:"utm_offer,omitempty"`
	ID       string `json:"utm_id,omitempty"`
	// Second-stage redirect URL captured as a UTM param.
	RedirectURL string `json:"utm_redirect_url,omitempty"`
}

// IsZero reports whether no UTM value was configured at all. Default
// injection (site host + slug) only happens when this is true.
func (u *UtmParams) IsZero() bool {
	if u == nil {
		return true
	}
	return u.Source == "" && u.Medium == "" && u.Campaign == "" &&
		u.Content == "" && u.Term == "" && u.Offer == "" && u.ID == "" &&
		u.RedirectURL == ""
}

// FileMeta describes one attached file on a record.
type FileMeta struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Kind   string `json:"kind,omitempty"` // image, video, other
	Ext    string `json:"ext,omitempty"`
	Expiry string `json:"expiry,omitempty"`
}

// CampaignRecord is the canonical denormalized redirect entry. Records are
// created and updated only by the webhook ingestor or a cold-start
// read-through fill; the resolver never mutates one.
type CampaignRecord struct {
	Slug            string     `json:"slug"`
	Destination     string     `json:"destination"`
	Utm             *UtmParams `json:"utm,omitempty"`
	LinkTreeEnabled bool       `json:"link_tree_enabled"`
	Pinned          bool       `json:"pinned"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Details         string     `json:"details,omitempty"`
	IconEmoji       string     `json:"icon_emoji,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	VideoURL        string     `json:"video_url,omitempty"`
	Files           []FileMeta `json:"files,omitempty"`
	Category        string     `json:"category,omitempty"`
	SourcePageID    string     `json:"source_page_id,omitempty"`
	CallCount       int        `json:"call_count"`
}
