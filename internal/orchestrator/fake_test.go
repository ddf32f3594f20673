package orchestrator

import (
	"context"
	"sync"

	"github.com/aiox-platform/memchat/internal/llm"
)

type reply struct {
	text  string
	err   error
	panic bool
}

type call struct {
	messages []llm.Message
	opts     llm.Options
}

// scriptedProvider answers calls in order from a fixed list of replies.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

func script(replies ...reply) *scriptedProvider {
	return &scriptedProvider{replies: replies}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (*llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, call{messages: messages, opts: opts})
	if len(p.replies) == 0 {
		panic("scriptedProvider: no reply left")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	if r.panic {
		panic("provider exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Completion{Text: r.text}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
