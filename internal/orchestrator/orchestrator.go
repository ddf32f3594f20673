// Package orchestrator runs the two-step memory pipeline: fold new dialogue
// into memory, then answer the current turn from that memory.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/prompt"
)

const (
	// PipelineApology is the reply of a fully degraded turn.
	PipelineApology = "Sorry, I ran into a technical problem and could not process your request. Please try again later."
	// PromptUnavailable stands in for user prompts in a degraded turn.
	PromptUnavailable = "Error: prompt unavailable"
)

// DebugInfo holds the prompts actually sent for both steps.
type DebugInfo struct {
	MemoryUpdatePrompt       PromptPair `json:"memory_update_prompt"`
	ResponseGenerationPrompt PromptPair `json:"response_generation_prompt"`
}

// Result is everything a caller learns from one turn.
type Result struct {
	UpdatedMemory       memory.Memory   `json:"updated_memory"`
	NoNewInfo           bool            `json:"no_new_info"`
	Response            string          `json:"response"`
	Analysis            json.RawMessage `json:"analysis"`
	ClarificationNeeded bool            `json:"clarification_needed"`
	DebugInfo           DebugInfo       `json:"debug_info"`
	// Degraded reports that at least one step fell back.
	Degraded bool `json:"-"`
}

// Config carries the sampling settings of both steps.
type Config struct {
	MemoryTemperature   float64
	ResponseTemperature float64
	MaxTokens           int
}

type memoryUpdater interface {
	Update(ctx context.Context, prev memory.Memory, window []memory.Message) (UpdateResult, error)
}

type responseGenerator interface {
	Generate(ctx context.Context, mem memory.Memory, window []memory.Message) (GenerateResult, error)
}

// Orchestrator sequences the Updater and the Generator. It holds no
// per-session state and is safe for concurrent use.
type Orchestrator struct {
	updater   memoryUpdater
	generator responseGenerator
}

// New creates an Orchestrator whose two steps share provider.
func New(provider llm.Provider, cfg Config) *Orchestrator {
	return &Orchestrator{
		updater:   NewUpdater(provider, llm.Options{Temperature: cfg.MemoryTemperature, MaxTokens: cfg.MaxTokens}),
		generator: NewGenerator(provider, llm.Options{Temperature: cfg.ResponseTemperature, MaxTokens: cfg.MaxTokens}),
	}
}

// Process runs one turn. recent feeds the memory update and current feeds
// the reply. The returned error is non-nil only for llm.ErrMissingAPIKey;
// every other failure, panics included, yields Degraded().
func (o *Orchestrator) Process(ctx context.Context, prev memory.Memory, recent, current []memory.Message) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic recovered", "step", stepPipeline, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			degraded(stepPipeline, "panic")
			res, err = Degraded(), nil
		}
	}()

	updated, err := o.updater.Update(ctx, prev, recent)
	if err != nil {
		return o.fail(stepUpdate, err)
	}

	generated, err := o.generator.Generate(ctx, updated.Memory, current)
	if err != nil {
		return o.fail(stepGenerate, err)
	}

	return Result{
		UpdatedMemory:       generated.Memory,
		NoNewInfo:           updated.NoNewInfo,
		Response:            generated.Response,
		Analysis:            generated.Analysis,
		ClarificationNeeded: generated.ClarificationNeeded,
		DebugInfo: DebugInfo{
			MemoryUpdatePrompt:       updated.Prompt,
			ResponseGenerationPrompt: generated.Prompt,
		},
		Degraded: updated.Degraded || generated.Degraded,
	}, nil
}

func (o *Orchestrator) fail(step string, err error) (Result, error) {
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return Result{}, err
	}
	slog.Error("pipeline step failed", "step", step, "error", err)
	degraded(stepPipeline, "internal_error")
	return Degraded(), nil
}

// Degraded returns the bundle used when a turn could not run at all.
func Degraded() Result {
	return Result{
		UpdatedMemory:       memory.Empty(),
		NoNewInfo:           true,
		Response:            PipelineApology,
		ClarificationNeeded: true,
		DebugInfo: DebugInfo{
			MemoryUpdatePrompt:       PromptPair{System: prompt.MemoryUpdateSystem, User: PromptUnavailable},
			ResponseGenerationPrompt: PromptPair{System: prompt.ResponseGenerationSystem, User: PromptUnavailable},
		},
		Degraded: true,
	}
}
