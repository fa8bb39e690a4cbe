package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusPending   = "pending"
	ProjectStatusScraping  = "scraping"
	ProjectStatusAnalyzing = "analyzing"
	ProjectStatusCompleted = "completed"
	ProjectStatusFailed    = "failed"
)

// Industry selects the prompt override set applied to an analysis.
type Industry string

const (
	IndustryRealEstate  Industry = "real_estate"
	IndustryHospitality Industry = "hospitality"
	IndustrySaaS        Industry = "saas"
	IndustryEcommerce   Industry = "ecommerce"
	IndustryHealthcare  Industry = "healthcare"
	IndustryGeneric     Industry = "generic"
)

// ValidIndustry reports whether s names a known industry.
func ValidIndustry(s string) bool {
	switch Industry(s) {
	case IndustryRealEstate, IndustryHospitality, IndustrySaaS,
		IndustryEcommerce, IndustryHealthcare, IndustryGeneric:
		return true
	}
	return false
}

// Project is one brand analysis request. Status is monotonic
// (pending → scraping → analyzing → completed) except for the terminal
// failed transition, which may occur from any non-terminal state.
type Project struct {
	ID              uuid.UUID `db:"id"               json:"id"`
	URL             string    `db:"url"              json:"url"`
	Industry        Industry  `db:"industry"         json:"industry"`
	Status          string    `db:"status"           json:"status"`
	ProgressMessage string    `db:"progress_message" json:"progress_message"`
	ProgressPercent int       `db:"progress_percent" json:"progress_percent"`
	CreatedBy       string    `db:"created_by"       json:"created_by"`
	Email           string    `db:"email"            json:"email,omitempty"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}

// ProviderState is the derived sub-status of one provider's analysis branch.
type ProviderState string

const (
	ProviderStateWaiting   ProviderState = "waiting"
	ProviderStateRunning   ProviderState = "running"
	ProviderStateCompleted ProviderState = "completed"
	ProviderStateFailed    ProviderState = "failed"
)

// ProgressSnapshot is the live-status view served to polling clients.
// Cached in Redis while an analysis runs; rebuilt from the store otherwise.
type ProgressSnapshot struct {
	ProjectID uuid.UUID                  `json:"project_id"`
	Status    string                     `json:"status"`
	Message   string                     `json:"message"`
	Percent   int                        `json:"percent"`
	Providers map[Provider]ProviderState `json:"providers"`
	UpdatedAt time.Time                  `json:"updated_at"`
}
