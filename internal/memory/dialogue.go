package memory

import "strings"

// FormatDialogue renders messages as one "<speaker>: <content>" line each.
// Roles other than user and assistant are printed verbatim.
func FormatDialogue(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(speakerLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func speakerLabel(role Role) string {
	switch role {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return string(role)
	}
}
