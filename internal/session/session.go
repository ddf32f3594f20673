// Package session keeps per-conversation history and pipeline state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aiox-platform/memchat/internal/memory"
)

var ErrNotFound = errors.New("session not found")

// State is the pipeline output carried into the next turn. Memory is nil
// until the first turn completes.
type State struct {
	Memory              *memory.Memory  `json:"memory"`
	Analysis            json.RawMessage `json:"analysis"`
	ClarificationNeeded bool            `json:"clarification_needed"`
	NoNewInfo           bool            `json:"no_new_info"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Session is a snapshot; mutating it does not change the store.
type Session struct {
	ID      string
	History []memory.Message
	State   State
}

// PreviousMemory returns the memory to feed the next turn.
func (s *Session) PreviousMemory() memory.Memory {
	if s.State.Memory == nil {
		return memory.Memory{}
	}
	return s.State.Memory.Clone()
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	// GetOrCreate returns the session with id, creating it when missing.
	// An empty id creates a session with a generated id.
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	AppendMessages(ctx context.Context, id string, msgs ...memory.Message) error
	SaveState(ctx context.Context, id string, st State) error
	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error
}

func cloneState(st State) State {
	if st.Memory != nil {
		m := st.Memory.Clone()
		st.Memory = &m
	}
	if st.Analysis != nil {
		st.Analysis = append(json.RawMessage(nil), st.Analysis...)
	}
	return st
}
