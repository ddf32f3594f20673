package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aiox-platform/memchat/internal/llm"
	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/metrics"
)

const (
	stepUpdate   = "memory_update"
	stepGenerate = "response_generation"
	stepPipeline = "pipeline"
)

// PromptPair is the exact system and user prompt sent for one step.
type PromptPair struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// complete issues the single completion call of a step.
func complete(ctx context.Context, p llm.Provider, step string, pair PromptPair, opts llm.Options) (string, error) {
	start := time.Now()
	c, err := p.Complete(ctx, []llm.Message{llm.System(pair.System), llm.User(pair.User)}, opts)
	metrics.CompletionDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())

	if err == nil && c == nil {
		err = errors.New("provider returned no completion")
	}
	if err != nil {
		metrics.CompletionsTotal.WithLabelValues(step, "error").Inc()
		return "", err
	}
	metrics.CompletionsTotal.WithLabelValues(step, "ok").Inc()
	return c.Text, nil
}

func degraded(step, reason string) {
	metrics.DegradationsTotal.WithLabelValues(step, reason).Inc()
}

// serializeList renders a memory list as indented JSON without HTML
// escaping, so the model sees the text exactly as stored.
func serializeList(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// serializeMemory returns the summary list and the raw entry list as text.
func serializeMemory(m memory.Memory) (summary, raw string, err error) {
	m = m.Clone()
	if summary, err = serializeList(m.Summary); err != nil {
		return "", "", err
	}
	if raw, err = serializeList(m.RawEntries); err != nil {
		return "", "", err
	}
	return summary, raw, nil
}

// truthy mirrors how a loosely typed payload is usually read: missing, null,
// false, zero and the empty string all count as absent.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return v.Exists()
	}
}
