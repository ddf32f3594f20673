package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aiox-platform/memchat/internal/extract"
	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/prompt"
)

// GeneratorApology replaces the reply when no usable text came back.
const GeneratorApology = "Sorry, I ran into a technical problem and could not generate a reply. Please try again later."

// GenerateResult is the outcome of the response generation step.
type GenerateResult struct {
	Response            string
	Memory              memory.Memory
	Analysis            json.RawMessage
	ClarificationNeeded bool
	Prompt              PromptPair
	Degraded            bool
}

// Generator answers the current turn from the updated memory.
type Generator struct {
	provider llm.Provider
	opts     llm.Options
}

func NewGenerator(provider llm.Provider, opts llm.Options) *Generator {
	return &Generator{provider: provider, opts: opts}
}

// Generate runs one completion and reads the reply, analysis and any
// further memory changes from it. Like Update it only returns an error for
// a missing API key or a prompt that cannot be built.
func (g *Generator) Generate(ctx context.Context, mem memory.Memory, window []memory.Message) (GenerateResult, error) {
	summary, raw, err := serializeMemory(mem)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("serializing memory: %w", err)
	}
	user, err := prompt.ResponseGenerationUser.Render(prompt.Vars{
		prompt.VarMemorySummary:    summary,
		prompt.VarRawMemoryEntries: raw,
		prompt.VarCurrentDialogue:  memory.FormatDialogue(window),
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("rendering response prompt: %w", err)
	}

	res := GenerateResult{Prompt: PromptPair{System: prompt.ResponseGenerationSystem, User: user}}

	text, err := complete(ctx, g.provider, stepGenerate, res.Prompt, g.opts)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return res, err
		}
		slog.Error("response generation failed", "step", stepGenerate, "error", err)
		degraded(stepGenerate, "provider_error")
		res.Response = GeneratorApology
		res.Memory = memory.Empty()
		res.ClarificationNeeded = true
		res.Degraded = true
		return res, nil
	}

	c, ok := extract.Extract(text)
	if !ok || c.Get("response").Type != gjson.String {
		slog.Warn("response output has no structured reply, returning raw text", "step", stepGenerate)
		degraded(stepGenerate, "raw_text")
		res.Response = nonEmpty(text)
		res.Memory = mem.Clone()
		res.Degraded = true
		return res, nil
	}

	res.Response = nonEmpty(c.Get("response").Str)
	if c.HasMemoryFields() {
		res.Memory = memory.Normalize(c)
	} else {
		res.Memory = memory.Normalize(memory.CandidateFromMemory(mem))
	}
	if a := c.Get("analysis"); truthy(a) {
		res.Analysis = json.RawMessage(a.Raw)
	}
	res.ClarificationNeeded = truthy(c.Get("clarification_needed"))
	return res, nil
}

func nonEmpty(reply string) string {
	if r := strings.TrimSpace(reply); r != "" {
		return r
	}
	return GeneratorApology
}
