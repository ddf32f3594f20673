package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/memchat/internal/nats"
)

const consumerName = "turn-audit-persister"

type inserter interface {
	Insert(ctx context.Context, a *TurnAudit) error
}

// Consumer listens on the turn event subject and persists audits.
type Consumer struct {
	repo        inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo *Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectTurnEvent)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg.Data(), msg.Ack, msg.Nak, msg.Term)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// handle persists one event. Undecodable payloads are terminated so they
// are never redelivered; storage failures are nak'ed for retry.
func (c *Consumer) handle(ctx context.Context, data []byte, ack, nak, term func() error) {
	var event inats.TurnEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		_ = term()
		return
	}

	if err := c.repo.Insert(ctx, FromEvent(event)); err != nil {
		slog.Error("audit consumer: persisting turn audit", "error", err, "session_id", event.SessionID)
		_ = nak()
		return
	}

	_ = ack()

	slog.Debug("audit consumer: persisted turn",
		"event_id", event.ID,
		"session_id", event.SessionID,
		"outcome", event.Outcome,
	)
}

// FromEvent converts a turn event into its database row.
func FromEvent(event inats.TurnEvent) *TurnAudit {
	a := &TurnAudit{
		ID:                  uuid.New(),
		EventID:             event.ID,
		SessionID:           event.SessionID,
		RequestID:           event.RequestID,
		UserMessage:         event.UserMessage,
		Reply:               event.Reply,
		Outcome:             event.Outcome,
		NoNewInfo:           event.NoNewInfo,
		ClarificationNeeded: event.ClarificationNeeded,
		MemoryEntries:       event.MemoryEntries,
		DurationMS:          event.DurationMS,
		CreatedAt:           event.Timestamp,
	}
	if a.EventID == "" {
		a.EventID = a.ID.String()
	}

	debug := map[string]inats.PromptPair{
		"memory_update_prompt":       event.MemoryPrompt,
		"response_generation_prompt": event.ResponsePrompt,
	}
	if data, err := json.Marshal(debug); err == nil {
		a.DebugInfo = data
	}
	return a
}
