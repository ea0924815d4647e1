package openaicompat

import oracle "github.com/oraclelang/oracle"

// BuildBody converts oracle ChatMessages and a model name into an
// OpenAI-format ChatRequest. Options are applied in order, last wins.
func BuildBody(messages []oracle.ChatMessage, model string, opts ...Option) ChatRequest {
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, Message{Role: m.Role, Content: m.Content})
	}
	req := ChatRequest{Model: model, Messages: msgs}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
