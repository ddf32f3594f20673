// Package audit persists one row per chat turn, fed from the turn event stream.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TurnAudit matches the turn_audits table schema.
type TurnAudit struct {
	ID                  uuid.UUID       `json:"id"`
	EventID             string          `json:"event_id"`
	SessionID           string          `json:"session_id"`
	RequestID           string          `json:"request_id,omitempty"`
	UserMessage         string          `json:"user_message"`
	Reply               string          `json:"reply"`
	Outcome             string          `json:"outcome"`
	NoNewInfo           bool            `json:"no_new_info"`
	ClarificationNeeded bool            `json:"clarification_needed"`
	MemoryEntries       int             `json:"memory_entries"`
	DebugInfo           json.RawMessage `json:"debug_info,omitempty"`
	DurationMS          int64           `json:"duration_ms"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	Outcome  string
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

func (p *ListParams) clamp() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}
