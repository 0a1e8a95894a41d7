package block

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		tag  string
		want Language
		ok   bool
	}{
		{"python", LangPython, true},
		{"py", LangPython, true},
		{"bash", LangBash, true},
		{"sh", LangBash, true},
		{"shell", LangBash, true},
		{"js", LangJavaScript, true},
		{"node", LangJavaScript, true},
		{"html", LangHTML, true},
		{"applescript", LangAppleScript, true},
		{"json", "", false},
		{"text", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		lang, ok := ParseLanguage(tt.tag)
		assert.Equal(t, tt.ok, ok, "tag %q", tt.tag)
		if tt.ok {
			assert.Equal(t, tt.want, lang, "tag %q", tt.tag)
		}
	}
}

func TestSaveWritesVersionedFile(t *testing.T) {
	dir := t.TempDir()
	b := New("fetch", LangPython, "print(1)")
	require.NoError(t, b.Save(dir))

	want := filepath.Join(dir, "fetch_v1.py")
	assert.Equal(t, want, b.Path)
	raw, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(raw))
	assert.NotEmpty(t, b.AbsPath())
}

func TestAbsPathUnsaved(t *testing.T) {
	b := New("x", LangBash, "true")
	assert.Equal(t, "", b.AbsPath())
}

func TestStoreVersionsByName(t *testing.T) {
	s := NewStore()
	s.Add(New("fetch", LangPython, "v1 code"))
	s.Add(New("parse", LangPython, "parse code"))
	s.Add(New("fetch", LangPython, "v2 code"))

	assert.Equal(t, 2, s.Len())
	require.Len(t, s.History, 3)

	latest := s.Get("fetch")
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "v2 code", latest.Code)

	// History keeps the earlier version intact.
	assert.Equal(t, 1, s.History[0].Version)
	assert.Equal(t, "v1 code", s.History[0].Code)

	assert.Nil(t, s.Get("missing"))
}

func TestStoreSources(t *testing.T) {
	s := NewStore()
	s.Add(New("a", LangPython, "aaa"))
	s.Add(New("a", LangPython, "aaa2"))
	s.Add(New("b", LangPython, "bbb"))

	assert.Equal(t, map[string]string{"a": "aaa2", "b": "bbb"}, s.Sources())
}

func TestStoreReindex(t *testing.T) {
	s := NewStore()
	s.Add(New("a", LangPython, "v1"))
	s.Add(New("a", LangPython, "v2"))

	loaded := &Store{History: s.History}
	loaded.Reindex()
	require.NotNil(t, loaded.Get("a"))
	assert.Equal(t, 2, loaded.Get("a").Version)
	assert.Equal(t, 1, loaded.Len())
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Add(New("a", LangPython, "v1"))
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.History)
}
