package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// CountTokens estimates the token count of text for a model. Models without
// a registered tokenizer fall back to cl100k_base, and when no encoding is
// available at all a bytes/4 approximation is used.
func CountTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil || enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// CountHistoryTokens estimates the total token count of a conversation.
func CountHistoryTokens(model string, messages []Message) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(model, m.Content)
	}
	return total
}
