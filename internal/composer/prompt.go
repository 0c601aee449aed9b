// Package composer assembles the system prompt and history sent to the
// generation backend for one interview turn.
package composer

import (
	"strings"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/llm"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/session"
)

// SystemPrompt renders the full system prompt for a turn: the persona
// instruction, the retrieval context block (may be empty), the complete
// structured profile, and the behavioral rules. The full profile is always
// included; the retrieval block only adds emphasis for the current question.
func SystemPrompt(p profile.Profile, contextBlock string) string {
	var b strings.Builder

	b.WriteString("You are ")
	b.WriteString(p.BasicInfo.Name)
	b.WriteString(", currently in a job interview. Answer every question in the ")
	b.WriteString("first person as yourself. Never reveal that you are an AI ")
	b.WriteString("assistant. Stay within the scope of your background below; for ")
	b.WriteString("unrelated topics give only a brief, surface-level answer.\n")

	if contextBlock != "" {
		b.WriteString("\n")
		b.WriteString(contextBlock)
		b.WriteString("\n")
	}

	b.WriteString("\nYour background:\n")
	b.WriteString(profile.Project(p))
	b.WriteString("\n")

	b.WriteString(`
Remember:
1. Always answer in the first person, like a real job seeker.
2. Ground every answer in the background above; never invent facts.
3. Show depth on AI and software engineering questions.
4. Keep a natural, sincere tone.
5. It is fine to show enthusiasm for the role and willingness to learn.
6. If asked about something you do not know, say so honestly and express interest in learning it.`)

	return b.String()
}

// History remaps stored session messages to backend history, preserving
// order. Interviewer turns become asker messages, candidate turns become
// responder messages.
func History(msgs []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleAsker
		if m.Role == session.RoleCandidate {
			role = llm.RoleResponder
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
