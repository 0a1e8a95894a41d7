package task

import (
	"strings"

	"github.com/google/uuid"

	"codeloop/block"
)

// ParseReply scans a model reply for fenced code blocks whose fence tag names
// an executable language. Non-executable fences (json, text, diagrams) and
// narrative text are left alone. Blocks come back in source order.
//
// A fence tag may carry a name attribute ("```python name=fetch"); unnamed
// blocks get a generated name so they can still be versioned and imported.
func ParseReply(reply string) []*block.CodeBlock {
	var blocks []*block.CodeBlock

	lines := strings.Split(reply, "\n")
	for i := 0; i < len(lines); i++ {
		tag, ok := fenceOpen(lines[i])
		if !ok {
			continue
		}
		lang, name, executable := parseFenceTag(tag)

		// Collect until the closing fence; an unterminated fence at EOF is
		// still usable code.
		var body []string
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				break
			}
			body = append(body, lines[j])
		}
		i = j

		if !executable {
			continue
		}
		code := strings.TrimRight(strings.Join(body, "\n"), "\n")
		if strings.TrimSpace(code) == "" {
			continue
		}
		if name == "" {
			name = "block_" + uuid.New().String()[:8]
		}
		blocks = append(blocks, block.New(name, lang, code))
	}

	return blocks
}

// HasCodeBlocks reports whether a reply contains at least one executable
// fenced block.
func HasCodeBlocks(reply string) bool {
	return len(ParseReply(reply)) > 0
}

// fenceOpen returns the fence info string when a line opens a code fence.
func fenceOpen(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "```") {
		return "", false
	}
	tag := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	if tag == "" {
		// A bare fence opens a block too, just not an executable one.
		return "", true
	}
	return tag, true
}

// parseFenceTag splits a fence info string into language and optional name.
func parseFenceTag(tag string) (block.Language, string, bool) {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return "", "", false
	}
	lang, ok := block.ParseLanguage(strings.ToLower(fields[0]))
	if !ok {
		return "", "", false
	}
	name := ""
	for _, f := range fields[1:] {
		if v, found := strings.CutPrefix(f, "name="); found {
			name = v
		}
	}
	return lang, name, true
}
