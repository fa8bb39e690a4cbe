package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType classifies a scraped page by its role on the site.
type SourceType string

const (
	SourceMainPage  SourceType = "main_page"
	SourceAbout     SourceType = "about"
	SourceHomes     SourceType = "homes"
	SourceAmenities SourceType = "amenities"
	SourceContact   SourceType = "contact"
	SourceBlog      SourceType = "blog"
	SourceOther     SourceType = "other"
)

// Source is one scraped page. Immutable once created; a project owns
// one main page plus zero or more sub-pages.
type Source struct {
	ID          uuid.UUID         `db:"id"           json:"id"`
	ProjectID   uuid.UUID         `db:"project_id"   json:"project_id"`
	Type        SourceType        `db:"type"         json:"type"`
	URL         string            `db:"url"          json:"url"`
	ContentHash string            `db:"content_hash" json:"content_hash"`
	TextExcerpt string            `db:"text_excerpt" json:"text_excerpt"`
	FullContent string            `db:"full_content" json:"full_content"`
	Metadata    map[string]string `db:"metadata"     json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at"   json:"created_at"`
}
