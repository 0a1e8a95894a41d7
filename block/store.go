package block

import (
	"log/slog"
)

// Store keeps every version of every block seen during a task. History is
// append-only; the byName index always points at the latest version.
type Store struct {
	History []*CodeBlock `json:"history"`

	byName map[string]*CodeBlock
	log    *slog.Logger
}

// NewStore creates an empty block store.
func NewStore() *Store {
	return &Store{
		byName: make(map[string]*CodeBlock),
		log:    slog.With("component", "blocks"),
	}
}

// Add appends a block. If a block with the same name already exists, the new
// block's version becomes previous+1.
func (s *Store) Add(b *CodeBlock) {
	if s.byName == nil {
		s.byName = make(map[string]*CodeBlock)
	}
	if old, ok := s.byName[b.Name]; ok {
		b.Version = old.Version + 1
		s.logf().Info("block updated", "name", b.Name, "version", b.Version)
	}
	s.byName[b.Name] = b
	s.History = append(s.History, b)
}

// Get returns the latest version of the named block, or nil.
func (s *Store) Get(name string) *CodeBlock {
	if s.byName == nil {
		return nil
	}
	return s.byName[name]
}

// Len returns the number of distinct block names.
func (s *Store) Len() int {
	return len(s.byName)
}

// Sources returns the latest source of every block, keyed by name. Used to
// let later Python blocks import earlier ones.
func (s *Store) Sources() map[string]string {
	srcs := make(map[string]string, len(s.byName))
	for name, b := range s.byName {
		srcs[name] = b.Code
	}
	return srcs
}

// Reindex rebuilds the name index from history, keeping the highest version
// per name. Called after loading persisted state.
func (s *Store) Reindex() {
	s.byName = make(map[string]*CodeBlock, len(s.History))
	for _, b := range s.History {
		s.byName[b.Name] = b
	}
}

// Clear drops all blocks.
func (s *Store) Clear() {
	s.History = nil
	s.byName = make(map[string]*CodeBlock)
}

func (s *Store) logf() *slog.Logger {
	if s.log == nil {
		s.log = slog.With("component", "blocks")
	}
	return s.log
}
