package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the synthesized artifact for one completed analysis.
// Addressed solely by URLToken so it can be shared without authentication;
// effectively immutable once created.
type Report struct {
	ID        uuid.UUID       `db:"id"         json:"id"`
	ProjectID uuid.UUID       `db:"project_id" json:"project_id"`
	URLToken  string          `db:"url_token"  json:"url_token"`
	IsPublic  bool            `db:"is_public"  json:"is_public"`
	Version   int             `db:"version"    json:"version"`
	Data      json.RawMessage `db:"data"       json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
