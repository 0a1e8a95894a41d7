// Package llm is the model boundary of the task loop: a minimal chat client
// interface, a gollm-backed implementation, a typed error hierarchy, and
// retry with exponential backoff. The task loop depends only on Client;
// everything provider-specific stays behind it.
package llm

import (
	"context"
	"strings"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Reply is the model's answer to a chat request.
type Reply struct {
	Content string `json:"content"`
	// Reasoning carries provider "thinking" output when present. Informational
	// only; it is never parsed for code blocks.
	Reasoning string `json:"reasoning,omitempty"`
}

// Client sends a conversation to a model and returns its reply.
type Client interface {
	Chat(ctx context.Context, messages []Message) (*Reply, error)
}

// SplitHistory separates the leading system messages from the rest. The
// system text becomes the provider's system prompt; everything else is
// flattened into the conversation body.
func SplitHistory(messages []Message) (system string, rest []Message) {
	var sys []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.TrimSpace(strings.Join(sys, "\n")), rest
}
