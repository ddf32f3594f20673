package memory

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	fieldSummary    = "memory_summary"
	fieldRawEntries = "raw_memory_entries"

	// PlaceholderSummary stands in when an entry has no text to summarize.
	PlaceholderSummary = "(no summary generated)"

	questionSnippetLen = 80
	answerSnippetLen   = 100
)

// Normalize reconciles a candidate into a canonical Memory. Raw entries are
// the source of order: summaries are matched to them by position and take
// their ids, so the two lists are aligned however inconsistent the input.
func Normalize(c Candidate) Memory {
	summaries := c.array(fieldSummary)
	rawItems := c.array(fieldRawEntries)

	var entries []RawMemoryEntry
	if len(rawItems) > 0 {
		entries = make([]RawMemoryEntry, 0, len(rawItems))
		for i, item := range rawItems {
			id := text(item, "id")
			if id == "" && i < len(summaries) {
				id = text(summaries[i], "id")
			}
			if id == "" {
				id = fallbackID(i)
			}
			entries = append(entries, RawMemoryEntry{
				ID:              id,
				UserQuestion:    text(item, "user_question"),
				AssistantAnswer: text(item, "assistant_answer"),
				Notes:           text(item, "notes"),
			})
		}
	} else {
		// Summary-only payloads get an empty raw entry per summary.
		entries = make([]RawMemoryEntry, 0, len(summaries))
		for i, item := range summaries {
			id := text(item, "id")
			if id == "" {
				id = fallbackID(i)
			}
			entries = append(entries, RawMemoryEntry{ID: id})
		}
	}

	out := Memory{
		Summary:    make([]SummaryItem, 0, len(entries)),
		RawEntries: entries,
	}
	for i, entry := range entries {
		var summary string
		if i < len(summaries) {
			if s := summaries[i].Get("summary"); s.Type == gjson.String {
				summary = strings.TrimSpace(s.Str)
			}
		}
		if summary == "" {
			summary = SynthesizeSummary(entry)
		}
		out.Summary = append(out.Summary, SummaryItem{ID: entry.ID, Summary: summary})
	}
	return out
}

// SynthesizeSummary builds a short summary from an entry's own text.
func SynthesizeSummary(entry RawMemoryEntry) string {
	answer := entry.AssistantAnswer
	if answer == "" {
		answer = entry.Notes
	}

	var clauses []string
	if q := truncate(entry.UserQuestion, questionSnippetLen); q != "" {
		clauses = append(clauses, "user asked "+q)
	}
	if a := truncate(answer, answerSnippetLen); a != "" {
		clauses = append(clauses, "assistant replied "+a)
	}
	if len(clauses) == 0 {
		return PlaceholderSummary
	}
	return strings.Join(clauses, "; ")
}

func fallbackID(i int) string {
	return fmt.Sprintf("entry-%d", i+1)
}

// truncate cuts s to limit runes and marks the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
