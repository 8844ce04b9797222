package llm

// Message represents a single message in a chat completion request.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// UserMessage is shorthand for a single "user" message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
