package task

import (
	"codeloop/llm"
)

// History is the conversation transcript sent to the model. It participates
// in checkpointing the same way the recorder and executor do: checkpoint is
// the message count, restore truncates.
type History struct {
	messages []llm.Message
}

// NewHistory creates a transcript seeded with an optional system prompt.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.Add(llm.RoleSystem, systemPrompt)
	}
	return h
}

// Add appends one turn.
func (h *History) Add(role llm.Role, content string) {
	h.messages = append(h.messages, llm.Message{Role: role, Content: content})
}

// Messages returns the transcript in order.
func (h *History) Messages() []llm.Message {
	return h.messages
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.messages)
}

// Checkpoint returns the current message count.
func (h *History) Checkpoint() any {
	return len(h.messages)
}

// RestoreCheckpoint truncates the transcript back to a prior count. nil
// clears it entirely.
func (h *History) RestoreCheckpoint(cp any) {
	if cp == nil {
		h.messages = nil
		return
	}
	n, ok := checkpointLen(cp)
	if !ok {
		return
	}
	if n >= 0 && n < len(h.messages) {
		h.messages = h.messages[:n]
	}
}

// State returns the transcript for persistence.
func (h *History) State() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// RestoreState replaces the transcript.
func (h *History) RestoreState(messages []llm.Message) {
	h.messages = make([]llm.Message, len(messages))
	copy(h.messages, messages)
}

// checkpointLen normalizes a checkpoint that may have crossed JSON.
func checkpointLen(cp any) (int, bool) {
	switch v := cp.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
