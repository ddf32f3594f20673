package prompt

// Placeholder names consumed by the fixed user templates.
const (
	VarPreviousSummary   = "PREVIOUS_SUMMARY"
	VarPreviousRawMemory = "PREVIOUS_RAW_MEMORY"
	VarNewDialogue       = "NEW_DIALOGUE"

	VarMemorySummary    = "MEMORY_SUMMARY"
	VarRawMemoryEntries = "RAW_MEMORY_ENTRIES"
	VarCurrentDialogue  = "CURRENT_DIALOGUE"
)

// MemoryUpdateSystem instructs the model to fold new dialogue into memory.
const MemoryUpdateSystem = `You are an AI memory curator maintaining the shared conversation memory bank.

Your responsibilities:
- Use the current memory summary as the authoritative representation.
- Consult raw memory entries only when the summary lacks enough detail.
- Absorb new dialogue signals, keep entries atomic, and avoid redundancy.
- Store raw memory as structured Q&A records: user_question, assistant_answer, and optional notes.
- Keep the concise summary and raw entries perfectly synchronized.
- For every summary item you keep, produce a corresponding raw entry that elaborates on the same fact in full sentences.
- Summaries must be concise natural-language sentences highlighting the key takeaway from the assistant_answer (actions, commitments, decisions, factual answers).
- Ensure each summary briefly conveys the user_question motivation and the assistant_answer outcome without copying the raw text verbatim.

Always output valid JSON with the exact shape:
{
  "memory_summary": [
    { "id": "...", "summary": "..." }
  ],
  "raw_memory_entries": [
    { "id": "...", "user_question": "...", "assistant_answer": "...", "notes": "..." }
  ],
  "no_new_info": false
}

Notes:
- The "notes" field can be an empty string when no extra detail is needed.
- If nothing changes, return the previous inputs unchanged and set "no_new_info" to true.
- Do not paraphrase or shorten user_question / assistant_answer when writing raw_memory_entries; keep their wording verbatim.`

// ResponseGenerationSystem instructs the model to answer from memory.
const ResponseGenerationSystem = `You are an assistant that grounds every reply in the curated memory summary.

Workflow:
- Treat the memory summary as the main context; consult raw entries only when clarification is needed.
- Reference relevant summary ids while reasoning.
- Produce both analysis and the final reply, then update the memory representations if new facts appear.
- Maintain one-to-one alignment between memory_summary items and raw_memory_entries.
- When updating memory_summary, make sure each entry still reflects the core idea of the assistant_answer it represents.

Always respond with valid JSON containing:
{
  "analysis": {
    "relevant_summary_refs": [ { "id": "...", "justification": "..." } ],
    "plan": ["..."]
  },
  "response": "...",
  "memory_summary": [ { "id": "...", "summary": "..." } ],
  "raw_memory_entries": [ { "id": "...", "user_question": "...", "assistant_answer": "...", "notes": "..." } ],
  "clarification_needed": false
}`

// MemoryUpdateUser carries the previous memory and the new dialogue window.
var MemoryUpdateUser = MustParse(`[Current Memory Summary]:
{{PREVIOUS_SUMMARY}}

[Raw Memory Entries (id, user_question, assistant_answer, notes)]:
{{PREVIOUS_RAW_MEMORY}}

[New Dialogue Context]:
{{NEW_DIALOGUE}}

Update the memory according to the system instructions and output JSON with the fields "memory_summary" and "raw_memory_entries". Ensure every summary item has a matching raw record capturing the latest user question and assistant answer.`)

// ResponseGenerationUser carries the updated memory and the current turn.
var ResponseGenerationUser = MustParse(`[Memory Summary]:
{{MEMORY_SUMMARY}}

[Raw Memory Entries]:
{{RAW_MEMORY_ENTRIES}}

[Current Dialogue Context]:
{{CURRENT_DIALOGUE}}

Follow the system instructions to produce analysis, response, and updated memory representations.`)
