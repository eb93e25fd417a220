package rag

import "strings"

// Exchange is one completed conversation turn: what the user asked and
// what the assistant answered.
type Exchange struct {
	User      string
	Assistant string
}

// FormatHistory renders past exchanges in the layout the prompts expect.
// Returns the empty string for an empty history.
func FormatHistory(history []Exchange) string {
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString("Utilisateur: ")
		sb.WriteString(turn.User)
		sb.WriteString("\nAssistant: ")
		sb.WriteString(turn.Assistant)
		sb.WriteString("\n")
	}
	return sb.String()
}
