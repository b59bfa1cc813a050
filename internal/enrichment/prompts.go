package enrichment

import (
	"fmt"
	"strings"
)

const historyLimit = 10

// HistoryEntry is one prior message in sender order, oldest first.
type HistoryEntry struct {
	FromWorker bool
	Content    string
}

func renderHistory(history []HistoryEntry) string {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	var sb strings.Builder
	for _, entry := range history {
		role := "manager"
		if entry.FromWorker {
			role = "worker"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(entry.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func standardSystemPrompt(sourceLocale, targetLocale, workerProfile, groupProfile string) string {
	return fmt.Sprintf(`You assist managers of a multilingual case-work messaging platform.
Worker profile: %s
Group profile: %s
Translate the latest worker message from locale %q into locale %q and propose up to three reply suggestions in locale %q, ranked best first.
Respond with JSON only: {"translation": "...", "suggestions": ["...", "...", "..."]}`,
		workerProfile, groupProfile, sourceLocale, targetLocale, targetLocale)
}

func greetingSystemPrompt(targetLocale, workerProfile, groupProfile string) string {
	return fmt.Sprintf(`You assist managers of a multilingual case-work messaging platform.
Worker profile: %s
Group profile: %s
No worker message exists yet. Propose up to three opening messages in locale %q, ranked best first.
Respond with JSON only: {"suggestions": ["...", "...", "..."]}`,
		workerProfile, groupProfile, targetLocale)
}

func imageSystemPrompt(targetLocale, workerProfile, groupProfile string) string {
	return fmt.Sprintf(`You assist managers of a multilingual case-work messaging platform.
Worker profile: %s
Group profile: %s
The worker sent an image; its analysis follows. Propose up to three reply suggestions in locale %q that respond to the image, ranked best first.
Respond with JSON only: {"suggestions": ["...", "...", "..."]}`,
		workerProfile, groupProfile, targetLocale)
}

func taggingSystemPrompt(groupProfile string) string {
	return fmt.Sprintf(`You classify case-work conversations for a support platform.
Group profile: %s
Propose up to five short topic tags for the conversation.
Respond with JSON only: {"tags": ["...", "..."]}`, groupProfile)
}

func userPrompt(history []HistoryEntry, content string) string {
	var sb strings.Builder
	if rendered := renderHistory(history); rendered != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(rendered)
		sb.WriteString("\n")
	}
	if content != "" {
		sb.WriteString("Latest message:\n")
		sb.WriteString(content)
	}
	return sb.String()
}
