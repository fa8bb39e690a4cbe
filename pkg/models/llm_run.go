package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// LlmRun records one call to one LLM provider for one analysis step.
// Append-only; never mutated after creation.
type LlmRun struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	ProjectID   uuid.UUID `db:"project_id"   json:"project_id"`
	Provider    Provider  `db:"provider"     json:"provider"`
	Step        int       `db:"step"         json:"step"`
	Model       string    `db:"model"        json:"model"`
	Temperature float32   `db:"temperature"  json:"temperature"`
	MaxTokens   int       `db:"max_tokens"   json:"max_tokens"`
	RawResponse string    `db:"raw_response" json:"raw_response,omitempty"`
	TokensUsed  int       `db:"tokens_used"  json:"tokens_used"`
	Cost        float64   `db:"cost"         json:"cost"`
	Status      string    `db:"status"       json:"status"`
	Error       *string   `db:"error"        json:"error,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
