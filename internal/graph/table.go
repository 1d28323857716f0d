package graph

import (
	"fmt"
	"sort"
	"sync"
)

// SymbolTable aggregates symbols from all extractor runs. It is
// append-only: inserts are serialized behind a mutex so extraction can
// run in parallel across files, and once Freeze is called the table is
// treated as immutable and lookups need no locking discipline from
// callers.
type SymbolTable struct {
	mu          sync.RWMutex
	frozen      bool
	byID        map[string]*Symbol
	byQualified map[string][]*Symbol
	byName      map[string][]*Symbol
	order       []*Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byID:        make(map[string]*Symbol),
		byQualified: make(map[string][]*Symbol),
		byName:      make(map[string][]*Symbol),
	}
}

// Add inserts a symbol. Duplicate qualified names are legal (overloads,
// shadowed names); duplicate IDs are not.
func (t *SymbolTable) Add(sym *Symbol) error {
	if sym == nil || sym.ID == "" {
		return fmt.Errorf("symbol table: nil or unidentified symbol")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return fmt.Errorf("symbol table: add %q after freeze", sym.ID)
	}
	if _, exists := t.byID[sym.ID]; exists {
		return fmt.Errorf("symbol table: duplicate id %q", sym.ID)
	}

	t.byID[sym.ID] = sym
	t.order = append(t.order, sym)
	if sym.QualifiedName != "" {
		t.byQualified[sym.QualifiedName] = append(t.byQualified[sym.QualifiedName], sym)
	}
	if sym.Name != "" && sym.Name != sym.QualifiedName {
		t.byName[sym.Name] = append(t.byName[sym.Name], sym)
	}
	return nil
}

// Freeze marks the end of the extraction stage. Further Adds fail.
func (t *SymbolTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Get returns the symbol with the given ID, if present.
func (t *SymbolTable) Get(id string) (*Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[id]
	return s, ok
}

// Lookup returns every candidate whose qualified name or simple name
// matches. Zero candidates means the name is not declared in the
// analyzed file set.
func (t *SymbolTable) Lookup(name string) []*Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if syms, ok := t.byQualified[name]; ok {
		return syms
	}
	return t.byName[name]
}

// Declared reports whether any symbol with the given name exists in the
// analyzed file set. The resolver uses it to distinguish internal from
// external references.
func (t *SymbolTable) Declared(name string) bool {
	return len(t.Lookup(name)) > 0
}

// Symbols returns all symbols ordered by file path, then start line,
// then ID, so downstream stages see a reproducible order regardless of
// extraction concurrency.
func (t *SymbolTable) Symbols() []*Symbol {
	t.mu.RLock()
	out := make([]*Symbol, len(t.order))
	copy(out, t.order)
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of symbols in the table.
func (t *SymbolTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}
