// Package chat runs conversation turns against a session store and the
// memory pipeline, and exposes them over HTTP.
package chat

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/metrics"
	inats "github.com/aiox-platform/memchat/internal/nats"
	"github.com/aiox-platform/memchat/internal/orchestrator"
	"github.com/aiox-platform/memchat/internal/session"
)

var ErrEmptyMessage = errors.New("message is empty")

const lockStripes = 64

// Pipeline runs one turn of the memory pipeline.
type Pipeline interface {
	Process(ctx context.Context, prev memory.Memory, recent, current []memory.Message) (orchestrator.Result, error)
}

// TurnPublisher receives an event for every completed turn.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, event inats.TurnEvent) error
}

// Windows sizes the dialogue slices handed to the two pipeline steps.
type Windows struct {
	Recent  int
	Current int
}

// Turn is the outcome of Send.
type Turn struct {
	SessionID string
	Result    orchestrator.Result
}

type Service struct {
	store     session.Store
	pipeline  Pipeline
	publisher TurnPublisher
	windows   Windows
	locks     [lockStripes]sync.Mutex
	now       func() time.Time
}

// NewService wires a Service. publisher may be nil.
func NewService(store session.Store, pipeline Pipeline, publisher TurnPublisher, windows Windows) *Service {
	if windows.Recent < 1 {
		windows.Recent = 6
	}
	if windows.Current < 1 {
		windows.Current = 2
	}
	return &Service{
		store:     store,
		pipeline:  pipeline,
		publisher: publisher,
		windows:   windows,
		now:       time.Now,
	}
}

// lock serializes turns of one session within this process.
func (s *Service) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// CreateSession returns the id of a new or existing session.
func (s *Service) CreateSession(ctx context.Context, id string) (string, error) {
	sess, err := s.store.GetOrCreate(ctx, id)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return sess.ID, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Send runs one turn. The user message and the reply are stored together
// with the new state only when the pipeline succeeds, so a turn that fails
// with a configuration error leaves the session untouched. An empty
// sessionID starts a new session.
func (s *Service) Send(ctx context.Context, sessionID, message string) (*Turn, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	userMsg := memory.Message{Role: memory.RoleUser, Content: message}
	history := make([]memory.Message, 0, len(sess.History)+1)
	history = append(history, sess.History...)
	history = append(history, userMsg)

	start := s.now()
	res, err := s.pipeline.Process(ctx, sess.PreviousMemory(), tail(history, s.windows.Recent), tail(history, s.windows.Current))
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("processing turn: %w", err)
	}
	elapsed := s.now().Sub(start)

	reply := memory.Message{Role: memory.RoleAssistant, Content: res.Response}
	if err := s.store.AppendMessages(ctx, sess.ID, userMsg, reply); err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("storing messages: %w", err)
	}

	mem := res.UpdatedMemory.Clone()
	state := session.State{
		Memory:              &mem,
		Analysis:            res.Analysis,
		ClarificationNeeded: res.ClarificationNeeded,
		NoNewInfo:           res.NoNewInfo,
		UpdatedAt:           s.now().UTC(),
	}
	if err := s.store.SaveState(ctx, sess.ID, state); err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("saving state: %w", err)
	}

	outcome := inats.OutcomeOK
	if res.Degraded {
		outcome = inats.OutcomeDegraded
	}
	metrics.ChatTurnsTotal.WithLabelValues(outcome).Inc()

	s.publish(ctx, sess.ID, message, res, outcome, elapsed)

	return &Turn{SessionID: sess.ID, Result: res}, nil
}

func (s *Service) publish(ctx context.Context, sessionID, message string, res orchestrator.Result, outcome string, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}
	event := inats.TurnEvent{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		RequestID:           chimw.GetReqID(ctx),
		UserMessage:         message,
		Reply:               res.Response,
		Outcome:             outcome,
		NoNewInfo:           res.NoNewInfo,
		ClarificationNeeded: res.ClarificationNeeded,
		MemoryEntries:       res.UpdatedMemory.Len(),
		MemoryPrompt:        inats.PromptPair(res.DebugInfo.MemoryUpdatePrompt),
		ResponsePrompt:      inats.PromptPair(res.DebugInfo.ResponseGenerationPrompt),
		Memory:              res.UpdatedMemory,
		DurationMS:          elapsed.Milliseconds(),
		Timestamp:           s.now().UTC(),
	}
	if err := s.publisher.PublishTurn(ctx, event); err != nil {
		slog.Warn("publishing turn event", "error", err, "session_id", sessionID)
	}
}

// tail returns the last n messages.
func tail(msgs []memory.Message, n int) []memory.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
