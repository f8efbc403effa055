package chat

// ServerConversation is a conversation as returned by the conversation-fetch
// endpoint, with its messages still in flat row form.
type ServerConversation struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Model     string   `json:"model,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	CreatedAt any      `json:"created_at,omitempty"`
	UpdatedAt any      `json:"updated_at,omitempty"`
	Messages  []RawRow `json:"messages"`
}

// Conversation is a reconciled conversation ready for display or caching.
type Conversation struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Model      string      `json:"model,omitempty"`
	Provider   string      `json:"provider,omitempty"`
	CreatedAt  int64       `json:"createdAt"`
	UpdatedAt  int64       `json:"updatedAt"`
	Messages   []Message   `json:"messages"`
	ToolOutput *ToolOutput `json:"functionCallOutput,omitempty"`
}

// ConversationSummary is an entry of the conversation list endpoint.
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt any    `json:"created_at,omitempty"`
	UpdatedAt any    `json:"updated_at,omitempty"`
}
