package memory

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Candidate is a loosely structured JSON object produced by the model. Its
// fields may be missing, mistyped or misaligned; Normalize is the only way
// to turn one into a Memory.
type Candidate struct {
	obj gjson.Result
}

// ParseCandidate accepts raw text only when it is valid JSON with an object
// at the top level.
func ParseCandidate(raw string) (Candidate, bool) {
	if !gjson.Valid(raw) {
		return Candidate{}, false
	}
	obj := gjson.Parse(raw)
	if !obj.IsObject() {
		return Candidate{}, false
	}
	return Candidate{obj: obj}, true
}

// CandidateFromMemory wraps an existing memory so it can be normalized again.
func CandidateFromMemory(m Memory) Candidate {
	data, err := json.Marshal(m.Clone())
	if err != nil {
		return Candidate{}
	}
	c, _ := ParseCandidate(string(data))
	return c
}

// Has reports whether field is present with a non-null value.
func (c Candidate) Has(field string) bool {
	v := c.obj.Get(field)
	return v.Exists() && v.Type != gjson.Null
}

// Get returns the raw value of a top-level field.
func (c Candidate) Get(field string) gjson.Result {
	return c.obj.Get(field)
}

// Raw returns the JSON text the candidate was parsed from.
func (c Candidate) Raw() string {
	return c.obj.Raw
}

// HasMemoryFields reports whether either memory list key is present.
func (c Candidate) HasMemoryFields() bool {
	return c.Has(fieldSummary) || c.Has(fieldRawEntries)
}

func (c Candidate) array(field string) []gjson.Result {
	v := c.obj.Get(field)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

// text reads a scalar field as text. Strings are taken as-is, other
// non-null values keep their JSON spelling.
func text(item gjson.Result, field string) string {
	v := item.Get(field)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	default:
		return v.Raw
	}
}
