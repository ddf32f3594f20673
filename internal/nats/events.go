package nats

import (
	"time"

	"github.com/aiox-platform/memchat/internal/memory"
)

// FetchTimeout bounds a single batch fetch from a pull consumer.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every event the chat service emits.
const StreamEvents = "MEMCHAT_EVENTS"

// Subject constants.
const (
	SubjectEvents    = "memchat.events.>"
	SubjectTurnEvent = "memchat.events.turn"
)

// Turn outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
)

// PromptPair mirrors the system/user prompts sent for one pipeline step.
type PromptPair struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// TurnEvent is published after every completed chat turn.
type TurnEvent struct {
	ID                  string        `json:"id"`
	SessionID           string        `json:"session_id"`
	RequestID           string        `json:"request_id,omitempty"`
	UserMessage         string        `json:"user_message"`
	Reply               string        `json:"reply"`
	Outcome             string        `json:"outcome"`
	NoNewInfo           bool          `json:"no_new_info"`
	ClarificationNeeded bool          `json:"clarification_needed"`
	MemoryEntries       int           `json:"memory_entries"`
	MemoryPrompt        PromptPair    `json:"memory_update_prompt"`
	ResponsePrompt      PromptPair    `json:"response_generation_prompt"`
	Memory              memory.Memory `json:"memory"`
	DurationMS          int64         `json:"duration_ms"`
	Timestamp           time.Time     `json:"timestamp"`
}
