package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/memchat/internal/memory"
)

func TestTurnEventRoundTrip(t *testing.T) {
	event := TurnEvent{
		ID:          "evt-1",
		SessionID:   "sess-1",
		UserMessage: "My favorite color is blue",
		Reply:       "Noted!",
		Outcome:     OutcomeOK,
		Memory: memory.Memory{
			Summary:    []memory.SummaryItem{{ID: "s1", Summary: "Likes blue"}},
			RawEntries: []memory.RawMemoryEntry{{ID: "s1", UserQuestion: "My favorite color is blue"}},
		},
		MemoryEntries: 1,
		MemoryPrompt:  PromptPair{System: "sys", User: "usr"},
		Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded TurnEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestTurnEventWireNames(t *testing.T) {
	data, err := json.Marshal(TurnEvent{SessionID: "s"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"session_id", "user_message", "reply", "outcome", "memory_update_prompt", "response_generation_prompt", "timestamp"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "request_id", "empty request id is omitted")
}
