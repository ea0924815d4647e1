package openaicompat

import (
	"fmt"

	oracle "github.com/oraclelang/oracle"
)

// ParseResponse converts an OpenAI-format ChatResponse to an oracle
// ChatResponse, reading content and usage from choices[0]. A response
// without choices or with a refusal is an *oracle.ErrLLM.
func ParseResponse(provider string, resp ChatResponse) (oracle.ChatResponse, error) {
	var out oracle.ChatResponse
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return out, &oracle.ErrLLM{Provider: provider, Message: "response has no choices"}
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return out, &oracle.ErrLLM{Provider: provider, Message: fmt.Sprintf("refused: %s", msg.Refusal)}
	}
	out.Content = msg.Content

	if resp.Usage != nil {
		out.Usage = oracle.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out, nil
}
