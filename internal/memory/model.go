// Package memory holds the two-list conversation memory and the rules that
// keep its summaries and raw entries aligned.
package memory

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RawMemoryEntry is one verbatim question/answer fact kept long-term.
type RawMemoryEntry struct {
	ID              string `json:"id"`
	UserQuestion    string `json:"user_question"`
	AssistantAnswer string `json:"assistant_answer"`
	Notes           string `json:"notes"`
}

// SummaryItem is the condensed form of exactly one RawMemoryEntry.
type SummaryItem struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// Memory is the structured record carried across turns. Summary[i] always
// describes RawEntries[i] once a Memory has passed through Normalize.
type Memory struct {
	Summary    []SummaryItem    `json:"memory_summary"`
	RawEntries []RawMemoryEntry `json:"raw_memory_entries"`
}

// Empty returns the canonical memory with no entries.
func Empty() Memory {
	return Normalize(Candidate{})
}

// Len returns the number of aligned entries.
func (m Memory) Len() int {
	return len(m.RawEntries)
}

// Clone returns a copy that shares no backing arrays with m. Nil lists
// become empty lists so the copy always serializes as [].
func (m Memory) Clone() Memory {
	out := Memory{
		Summary:    make([]SummaryItem, len(m.Summary)),
		RawEntries: make([]RawMemoryEntry, len(m.RawEntries)),
	}
	copy(out.Summary, m.Summary)
	copy(out.RawEntries, m.RawEntries)
	return out
}
