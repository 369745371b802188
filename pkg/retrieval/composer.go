package retrieval

// ComposeMessages builds the message sequence for one chat turn: a system
// message holding instructions and the product context, the last window
// history entries in chronological order, then the new user message.
//
// A history entry with an empty role is sent as a user message. The inputs
// are not modified.
func ComposeMessages(context ContextText, instructions string, history []HistoryEntry, newMessage string, window int) []Message {
	if window < 0 {
		window = 0
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: SystemPrompt(instructions, context),
	})
	for _, entry := range history {
		role := Role(entry.Role)
		if role == "" {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: entry.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: newMessage})
	return messages
}

// SystemPrompt joins the answering instructions and the product context.
func SystemPrompt(instructions string, context ContextText) string {
	return instructions + "\n\nProduct Information:\n" + context.String() + "\n"
}
