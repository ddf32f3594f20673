package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/aiox-platform/memchat/internal/nats"
)

type fakeInserter struct {
	err   error
	saved []*TurnAudit
}

func (f *fakeInserter) Insert(_ context.Context, a *TurnAudit) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

type acks struct {
	ack, nak, term int
}

func (a *acks) funcs() (func() error, func() error, func() error) {
	return func() error { a.ack++; return nil },
		func() error { a.nak++; return nil },
		func() error { a.term++; return nil }
}

func sampleEvent() inats.TurnEvent {
	return inats.TurnEvent{
		ID:                  "evt-1",
		SessionID:           "sess-1",
		RequestID:           "req-1",
		UserMessage:         "My favorite color is blue",
		Reply:               "Noted!",
		Outcome:             inats.OutcomeOK,
		ClarificationNeeded: true,
		MemoryEntries:       1,
		MemoryPrompt:        inats.PromptPair{System: "update-sys", User: "update-user"},
		ResponsePrompt:      inats.PromptPair{System: "gen-sys", User: "gen-user"},
		DurationMS:          42,
		Timestamp:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFromEvent(t *testing.T) {
	event := sampleEvent()

	a := FromEvent(event)

	assert.NotEqual(t, "", a.ID.String())
	assert.Equal(t, "evt-1", a.EventID)
	assert.Equal(t, "sess-1", a.SessionID)
	assert.Equal(t, "req-1", a.RequestID)
	assert.Equal(t, "Noted!", a.Reply)
	assert.Equal(t, inats.OutcomeOK, a.Outcome)
	assert.True(t, a.ClarificationNeeded)
	assert.Equal(t, 1, a.MemoryEntries)
	assert.Equal(t, int64(42), a.DurationMS)
	assert.Equal(t, event.Timestamp, a.CreatedAt)

	var debug map[string]inats.PromptPair
	require.NoError(t, json.Unmarshal(a.DebugInfo, &debug))
	assert.Equal(t, "update-user", debug["memory_update_prompt"].User)
	assert.Equal(t, "gen-sys", debug["response_generation_prompt"].System)
}

func TestFromEvent_MissingEventIDFallsBackToRowID(t *testing.T) {
	event := sampleEvent()
	event.ID = ""

	a := FromEvent(event)
	assert.Equal(t, a.ID.String(), a.EventID)
}

func TestConsumerHandle_Persists(t *testing.T) {
	repo := &fakeInserter{}
	c := &Consumer{repo: repo}
	var a acks
	ack, nak, term := a.funcs()

	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	c.handle(context.Background(), data, ack, nak, term)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "sess-1", repo.saved[0].SessionID)
	assert.Equal(t, acks{ack: 1}, a)
}

func TestConsumerHandle_BadPayloadIsTerminated(t *testing.T) {
	repo := &fakeInserter{}
	c := &Consumer{repo: repo}
	var a acks
	ack, nak, term := a.funcs()

	c.handle(context.Background(), []byte("not json"), ack, nak, term)

	assert.Empty(t, repo.saved)
	assert.Equal(t, acks{term: 1}, a)
}

func TestConsumerHandle_StoreFailureIsRetried(t *testing.T) {
	repo := &fakeInserter{err: errors.New("db down")}
	c := &Consumer{repo: repo}
	var a acks
	ack, nak, term := a.funcs()

	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	c.handle(context.Background(), data, ack, nak, term)

	assert.Equal(t, acks{nak: 1}, a)
}
