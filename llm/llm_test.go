package llm

import "testing"

func TestSplitHistory(t *testing.T) {
	system, rest := SplitHistory([]Message{
		{Role: RoleSystem, Content: "you are helpful"},
		{Role: RoleSystem, Content: "reply with code"},
		{Role: RoleUser, Content: "do the thing"},
		{Role: RoleAssistant, Content: "done"},
	})
	if system != "you are helpful\nreply with code" {
		t.Errorf("unexpected system prompt: %q", system)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining messages, got %d", len(rest))
	}
	if rest[0].Role != RoleUser || rest[1].Role != RoleAssistant {
		t.Errorf("unexpected order: %v", rest)
	}
}

func TestSplitHistoryNoSystem(t *testing.T) {
	system, rest := SplitHistory([]Message{{Role: RoleUser, Content: "hi"}})
	if system != "" {
		t.Errorf("expected empty system prompt, got %q", system)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rest))
	}
}

func TestCountTokensFallback(t *testing.T) {
	// Unknown models must still produce a positive estimate for real text.
	n := CountTokens("totally-made-up-model", "some text that has tokens in it")
	if n <= 0 {
		t.Errorf("expected positive estimate, got %d", n)
	}
	if CountTokens("totally-made-up-model", "") != 0 {
		t.Error("empty text should count zero tokens")
	}
}
