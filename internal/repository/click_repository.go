package repository

import (
	"database/sql"
	"time"

	"github.com/dealscale/redirect-engine/internal/model"
)

type ClickRepositoryInterface interface {
	Create(ev *model.ClickEvent) error
	CountBySlug(slug string) (int, error)
}

type ClickRepository struct {
	DB *sql.DB
}

var _ ClickRepositoryInterface = (*ClickRepository)(nil)

const clickEventsSchema = `
CREATE TABLE IF NOT EXISTS click_events (
    id              SERIAL PRIMARY KEY,
    slug            TEXT NOT NULL,
    page_id         TEXT NOT NULL DEFAULT '',
    destination     TEXT NOT NULL DEFAULT '',
    redirect_source TEXT NOT NULL DEFAULT 'Direct',
    referer         TEXT NOT NULL DEFAULT '',
    client_ip       TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS click_events_slug_idx ON click_events (slug);
`

// EnsureSchema creates the click_events table and its slug index when
// absent, so a fresh deployment needs no manual migration step.
func (r *ClickRepository) EnsureSchema() error {
	_, err := r.DB.Exec(clickEventsSchema)
	return err
}

// Create inserts one click event and fills in the generated ID.
func (r *ClickRepository) Create(ev *model.ClickEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO click_events (slug, page_id, destination, redirect_source, referer, client_ip, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		ev.Slug,
		ev.PageID,
		ev.Destination,
		ev.RedirectSource,
		ev.Referer,
		ev.ClientIP,
		ev.CreatedAt,
	).Scan(&ev.ID)
}

// CountBySlug returns the number of persisted clicks for one slug.
func (r *ClickRepository) CountBySlug(slug string) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM click_events WHERE slug=$1`, slug).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
