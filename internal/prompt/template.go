// Package prompt holds the fixed instruction prompts and a small
// placeholder template used to fill them.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnterminated    = errors.New("prompt: unterminated placeholder")
	ErrInvalidName     = errors.New("prompt: invalid placeholder name")
	ErrMissingVariable = errors.New("prompt: missing variable")
)

// Vars maps placeholder names to their replacement text.
type Vars map[string]string

type segment struct {
	text        string
	placeholder bool
}

// Template is a prompt split into static text and {{NAME}} placeholders.
// Rendering writes each value once, so values that happen to contain
// placeholder syntax are never expanded again.
type Template struct {
	segments []segment
}

// Parse splits src into segments.
func Parse(src string) (*Template, error) {
	t := &Template{}
	rest := src
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			t.appendText(rest)
			return t, nil
		}
		t.appendText(rest[:open])

		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("%w at offset %d", ErrUnterminated, len(src)-len(rest)+open)
		}
		name := rest[open+2 : open+2+end]
		if !validName(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		t.segments = append(t.segments, segment{text: name, placeholder: true})
		rest = rest[open+2+end+2:]
	}
}

// MustParse is Parse for package-level templates.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Placeholders lists placeholder names in order of first appearance.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range t.segments {
		if s.placeholder && !seen[s.text] {
			seen[s.text] = true
			names = append(names, s.text)
		}
	}
	return names
}

// Render substitutes vars into the template.
func (t *Template) Render(vars Vars) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		v, ok := vars[s.text]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, s.text)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

func (t *Template) appendText(s string) {
	if s == "" {
		return
	}
	t.segments = append(t.segments, segment{text: s})
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
