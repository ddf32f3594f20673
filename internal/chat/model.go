package chat

import (
	"encoding/json"
	"time"

	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/orchestrator"
)

type ChatRequest struct {
	Message   string `json:"message" validate:"required,notblank,max=16000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// ChatResponse is the result bundle of one turn.
type ChatResponse struct {
	SessionID           string                 `json:"session_id"`
	Reply               string                 `json:"reply"`
	Memory              memory.Memory          `json:"memory"`
	Analysis            json.RawMessage        `json:"analysis"`
	ClarificationNeeded bool                   `json:"clarification_needed"`
	NoNewInfo           bool                   `json:"no_new_info"`
	DebugInfo           orchestrator.DebugInfo `json:"debug_info"`
}

type CreateSessionRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	SessionID           string           `json:"session_id"`
	History             []memory.Message `json:"history"`
	Memory              memory.Memory    `json:"memory"`
	Analysis            json.RawMessage  `json:"analysis"`
	ClarificationNeeded bool             `json:"clarification_needed"`
	UpdatedAt           *time.Time       `json:"updated_at"`
}
