package domain

// Message is one entry of the on-screen conversation log.
type Message struct {
	Text   string
	IsUser bool
}

// UserMessage returns a user-authored log entry.
func UserMessage(text string) Message {
	return Message{Text: text, IsUser: true}
}

// AIMessage returns a model-authored log entry.
func AIMessage(text string) Message {
	return Message{Text: text}
}
