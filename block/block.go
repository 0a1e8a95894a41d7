// Package block defines code blocks extracted from model replies and the
// versioned store that tracks them across a task.
package block

import (
	"fmt"
	"os"
	"path/filepath"
)

// Language tags the interpreter a code block targets. The set is closed:
// dispatch happens over these values only.
type Language string

const (
	LangPython      Language = "python"
	LangBash        Language = "bash"
	LangPowerShell  Language = "powershell"
	LangAppleScript Language = "applescript"
	LangJavaScript  Language = "javascript"
	LangHTML        Language = "html"
)

// KnownLanguages lists every language a block may declare.
var KnownLanguages = []Language{
	LangPython, LangBash, LangPowerShell, LangAppleScript, LangJavaScript, LangHTML,
}

// aliases maps fence identifiers to canonical languages.
var aliases = map[string]Language{
	"python":      LangPython,
	"py":          LangPython,
	"bash":        LangBash,
	"sh":          LangBash,
	"shell":       LangBash,
	"powershell":  LangPowerShell,
	"applescript": LangAppleScript,
	"javascript":  LangJavaScript,
	"js":          LangJavaScript,
	"node":        LangJavaScript,
	"html":        LangHTML,
}

// ParseLanguage resolves a fence identifier to a Language. ok is false for
// identifiers outside the executable set (e.g. "json", "text").
func ParseLanguage(tag string) (Language, bool) {
	lang, ok := aliases[tag]
	return lang, ok
}

// Ext returns the file extension blocks of this language are saved with.
func (l Language) Ext() string {
	switch l {
	case LangPython:
		return ".py"
	case LangBash:
		return ".sh"
	case LangPowerShell:
		return ".ps1"
	case LangAppleScript:
		return ".applescript"
	case LangJavaScript:
		return ".js"
	case LangHTML:
		return ".html"
	default:
		return ".txt"
	}
}

// CodeBlock is a named, versioned, language-tagged unit of source extracted
// from a model reply. Edits never mutate history in place: a new version is
// appended to the store instead.
type CodeBlock struct {
	Name     string   `json:"name"`
	Language Language `json:"language"`
	Code     string   `json:"code"`
	Version  int      `json:"version"`
	Path     string   `json:"path,omitempty"`
}

// New creates a version-1 code block.
func New(name string, lang Language, code string) *CodeBlock {
	return &CodeBlock{Name: name, Language: lang, Code: code, Version: 1}
}

// AbsPath returns the absolute on-disk path of the block, or "" if it has
// never been saved.
func (b *CodeBlock) AbsPath() string {
	if b.Path == "" {
		return ""
	}
	abs, err := filepath.Abs(b.Path)
	if err != nil {
		return b.Path
	}
	return abs
}

// Save writes the block source under dir and records the path.
func (b *CodeBlock) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save block %s: %w", b.Name, err)
	}
	name := fmt.Sprintf("%s_v%d%s", b.Name, b.Version, b.Language.Ext())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.Code), 0o644); err != nil {
		return fmt.Errorf("save block %s: %w", b.Name, err)
	}
	b.Path = path
	return nil
}

func (b *CodeBlock) String() string {
	return fmt.Sprintf("<block %s v%d %s>", b.Name, b.Version, b.Language)
}
