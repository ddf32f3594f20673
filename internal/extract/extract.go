// Package extract recovers a JSON object from free-form model output.
package extract

import (
	"regexp"
	"strings"

	"github.com/aiox-platform/memchat/internal/memory"
)

// Strategy proposes substrings of a completion that may hold a JSON object.
// Candidates are tried in the order returned.
type Strategy struct {
	Name       string
	Candidates func(text string) []string
}

var (
	labeledFence = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)```")
	anyFence     = regexp.MustCompile("(?s)```[\\w.+-]*[ \\t]*\\r?\\n?(.*?)```")
	greedyObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// Strategies is the default extraction order. The first candidate that
// parses as a JSON object wins.
var Strategies = []Strategy{
	{Name: "labeled_fence", Candidates: fenced(labeledFence)},
	{Name: "fence", Candidates: fenced(anyFence)},
	{Name: "greedy_object", Candidates: greedy},
	{Name: "outer_braces", Candidates: outerBraces},
}

// Extract returns the first JSON object found in text. The boolean is false
// when no strategy produced one.
func Extract(text string) (memory.Candidate, bool) {
	c, _, ok := Match(text, Strategies...)
	return c, ok
}

// Match runs strategies in order and also reports which one succeeded.
func Match(text string, strategies ...Strategy) (memory.Candidate, string, bool) {
	for _, s := range strategies {
		for _, raw := range s.Candidates(text) {
			if c, ok := memory.ParseCandidate(strings.TrimSpace(raw)); ok {
				return c, s.Name, true
			}
		}
	}
	return memory.Candidate{}, "", false
}

func fenced(re *regexp.Regexp) func(string) []string {
	return func(text string) []string {
		matches := re.FindAllStringSubmatch(text, -1)
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, m[1])
		}
		return out
	}
}

func greedy(text string) []string {
	if m := greedyObject.FindString(text); m != "" {
		return []string{m}
	}
	return nil
}

func outerBraces(text string) []string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}
	return []string{text[start : end+1]}
}
