package context

import "github.com/askai/askai/internal/conversation"

// BuildMessages turns eligible history into chat messages, oldest first, and
// appends latestText as the final user message. Callers pass only eligible
// turns; ineligible ones are skipped here as well.
func BuildMessages(turns []conversation.Turn, latestText string) []Message {
	msgs := make([]Message, 0, 2*len(turns)+1)
	for i := range turns {
		t := &turns[i]
		if !t.Eligible() {
			continue
		}
		msgs = append(msgs, Message{Role: RoleUser, Content: t.UserText})
		if t.AssistantText != "" {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: t.AssistantText})
		}
	}
	return append(msgs, Message{Role: RoleUser, Content: latestText})
}
