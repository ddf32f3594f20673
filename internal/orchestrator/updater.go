package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aiox-platform/memchat/internal/extract"
	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/prompt"
)

// UpdateResult is the outcome of the memory update step.
type UpdateResult struct {
	Memory    memory.Memory
	NoNewInfo bool
	Prompt    PromptPair
	// Degraded is set when the memory was replaced by the empty fallback.
	Degraded bool
}

// Updater folds a window of new dialogue into the previous memory.
type Updater struct {
	provider llm.Provider
	opts     llm.Options
}

func NewUpdater(provider llm.Provider, opts llm.Options) *Updater {
	return &Updater{provider: provider, opts: opts}
}

// Update runs one completion and normalizes what comes back. Provider and
// parsing failures degrade to an empty memory with NoNewInfo set; only
// llm.ErrMissingAPIKey and prompt construction errors are returned.
func (u *Updater) Update(ctx context.Context, prev memory.Memory, window []memory.Message) (UpdateResult, error) {
	summary, raw, err := serializeMemory(prev)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("serializing previous memory: %w", err)
	}
	user, err := prompt.MemoryUpdateUser.Render(prompt.Vars{
		prompt.VarPreviousSummary:   summary,
		prompt.VarPreviousRawMemory: raw,
		prompt.VarNewDialogue:       memory.FormatDialogue(window),
	})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("rendering memory update prompt: %w", err)
	}

	res := UpdateResult{Prompt: PromptPair{System: prompt.MemoryUpdateSystem, User: user}}

	text, err := complete(ctx, u.provider, stepUpdate, res.Prompt, u.opts)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return res, err
		}
		slog.Error("memory update failed", "step", stepUpdate, "error", err)
		degraded(stepUpdate, "provider_error")
		return u.empty(res), nil
	}
	slog.Debug("memory update raw output", "step", stepUpdate, "text", text)

	c, ok := extract.Extract(text)
	if !ok {
		slog.Warn("memory update output has no JSON object, using empty memory", "step", stepUpdate)
		degraded(stepUpdate, "no_object")
		return u.empty(res), nil
	}
	if !c.Has("memory_summary") {
		slog.Warn("memory update output lacks memory_summary, using empty memory", "step", stepUpdate)
		degraded(stepUpdate, "missing_memory_summary")
		return u.empty(res), nil
	}

	res.Memory = memory.Normalize(c)
	res.NoNewInfo = truthy(c.Get("no_new_info"))
	return res, nil
}

func (u *Updater) empty(res UpdateResult) UpdateResult {
	res.Memory = memory.Empty()
	res.NoNewInfo = true
	res.Degraded = true
	return res
}
