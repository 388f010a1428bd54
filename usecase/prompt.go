package usecase

import (
	"fmt"
	"strings"

	"github.com/xak1234/Huntley/domain"
)

// PromptBuilder renders the text sent to providers. The transcript is
// rendered in full; nothing is windowed or summarized.
type PromptBuilder struct {
	Name string
}

// Build renders header, persona, every turn of t as "sender: content" and
// the new message, closed by the reply instruction.
func (b PromptBuilder) Build(persona string, t domain.Transcript, userText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an AI assistant defined by the following background:\n", b.Name)
	sb.WriteString(persona)
	sb.WriteString("\nPrevious conversation:\n")
	for i, turn := range t.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(turn.Sender))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	sb.WriteString("\nUser: ")
	sb.WriteString(userText)
	fmt.Fprintf(&sb, "\nRespond as %s:\n", b.Name)
	return sb.String()
}

// SystemReminder is the short persona reminder used by chat-style providers.
func (b PromptBuilder) SystemReminder() string {
	return fmt.Sprintf("You are %s, an AI assistant.", b.Name)
}
