package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/aiox-platform/memchat/internal/memory"
	inats "github.com/aiox-platform/memchat/internal/nats"
	"github.com/aiox-platform/memchat/internal/orchestrator"
)

type pipelineCall struct {
	prev    memory.Memory
	recent  []memory.Message
	current []memory.Message
}

// fakePipeline remembers every message it has seen as a raw entry, so
// memory carry-over between turns is observable.
type fakePipeline struct {
	mu    sync.Mutex
	err   error
	calls []pipelineCall
}

func (p *fakePipeline) Process(_ context.Context, prev memory.Memory, recent, current []memory.Message) (orchestrator.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pipelineCall{
		prev:    prev,
		recent:  append([]memory.Message(nil), recent...),
		current: append([]memory.Message(nil), current...),
	})
	if p.err != nil {
		return orchestrator.Result{}, p.err
	}

	last := current[len(current)-1].Content
	mem := prev.Clone()
	mem.RawEntries = append(mem.RawEntries, memory.RawMemoryEntry{ID: last, UserQuestion: last})
	mem.Summary = append(mem.Summary, memory.SummaryItem{ID: last, Summary: "said " + last})
	return orchestrator.Result{
		UpdatedMemory: mem,
		Response:      "echo: " + last,
		DebugInfo: orchestrator.DebugInfo{
			MemoryUpdatePrompt:       orchestrator.PromptPair{System: "update", User: last},
			ResponseGenerationPrompt: orchestrator.PromptPair{System: "generate", User: last},
		},
	}, nil
}

func (p *fakePipeline) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []inats.TurnEvent
}

func (f *fakePublisher) PublishTurn(_ context.Context, event inats.TurnEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

var errBusDown = errors.New("bus down")
