// internal/model/click_event.go
package model

import "time"

// ClickEvent is one resolved redirect, persisted by the worker for
// directional analytics. Counts here are best-effort, not audit data.
type ClickEvent struct {
	ID             int       `db:"id" json:"id"`
	Slug           string    `db:"slug" json:"slug"`
	PageID         string    `db:"page_id" json:"page_id,omitempty"`
	Destination    string    `db:"destination" json:"destination"`
	RedirectSource string    `db:"redirect_source" json:"redirect_source"` // Linktree or Direct
	Referer        string    `db:"referer" json:"referer,omitempty"`
	ClientIP       string    `db:"client_ip" json:"client_ip,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
