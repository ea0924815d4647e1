// Package glyph holds the read-only table of the 64 hexagrams: names,
// judgments and line statements in King Wen order.
package glyph

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	oracle "github.com/oraclelang/oracle"
)

//go:embed hexagrams.toml
var hexagramsTOML []byte

// Entry is the table row for one hexagram.
type Entry struct {
	Index       int      `toml:"index"`
	Name        string   `toml:"name"`
	Short       string   `toml:"short"`
	Judgment    string   `toml:"judgment"`
	Description string   `toml:"description"`
	Lines       []string `toml:"lines"`
	// Extra is the seventh statement only 乾 (用九) and 坤 (用六) carry.
	Extra string `toml:"extra"`
}

// Table is an immutable lookup of the 64 entries. Safe for concurrent use.
type Table struct {
	entries [65]Entry
}

type document struct {
	Hexagram []Entry `toml:"hexagram"`
}

// Parse decodes and validates a table in the embedded TOML layout.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode hexagram table: %w", err)
	}

	t := &Table{}
	shorts := make(map[string]int, 64)
	for _, e := range doc.Hexagram {
		if e.Index < 1 || e.Index > 64 {
			return nil, fmt.Errorf("hexagram index %d out of range: %w", e.Index, oracle.ErrDataIntegrity)
		}
		if t.entries[e.Index].Index != 0 {
			return nil, fmt.Errorf("hexagram %d listed twice: %w", e.Index, oracle.ErrDataIntegrity)
		}
		if e.Name == "" || e.Short == "" || e.Judgment == "" || e.Description == "" {
			return nil, fmt.Errorf("hexagram %d has empty fields: %w", e.Index, oracle.ErrDataIntegrity)
		}
		if len(e.Lines) != 6 {
			return nil, fmt.Errorf("hexagram %d has %d line statements: %w", e.Index, len(e.Lines), oracle.ErrDataIntegrity)
		}
		for i, l := range e.Lines {
			if l == "" {
				return nil, fmt.Errorf("hexagram %d line %d is empty: %w", e.Index, i+1, oracle.ErrDataIntegrity)
			}
		}
		if prev, dup := shorts[e.Short]; dup {
			return nil, fmt.Errorf("hexagrams %d and %d share short name %q: %w", prev, e.Index, e.Short, oracle.ErrDataIntegrity)
		}
		shorts[e.Short] = e.Index
		t.entries[e.Index] = e
	}
	for n := 1; n <= 64; n++ {
		if t.entries[n].Index == 0 {
			return nil, fmt.Errorf("hexagram %d missing: %w", n, oracle.ErrDataIntegrity)
		}
	}
	return t, nil
}

// Load parses the embedded table.
func Load() (*Table, error) {
	return Parse(hexagramsTOML)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded table, parsed once. It panics if the
// embedded data is corrupt, which is a build defect.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load()
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Entry returns the row for King Wen number index.
func (t *Table) Entry(index int) (Entry, error) {
	if index < 1 || index > 64 {
		return Entry{}, fmt.Errorf("hexagram index %d out of range: %w", index, oracle.ErrDataIntegrity)
	}
	return t.entries[index], nil
}

// Glyph returns the display name and Unicode symbol of a hexagram.
func (t *Table) Glyph(index int) (name, symbol string, err error) {
	e, err := t.Entry(index)
	if err != nil {
		return "", "", err
	}
	h, err := oracle.HexagramByIndex(index)
	if err != nil {
		return "", "", err
	}
	return e.Name, h.Symbol(), nil
}

// LineStatement returns the labelled statement of a line, e.g.
// "初九：潜龙勿用。". Position is 1..6 counted from the bottom.
func (t *Table) LineStatement(index, position int) (string, error) {
	e, err := t.Entry(index)
	if err != nil {
		return "", err
	}
	if position < 1 || position > 6 {
		return "", fmt.Errorf("line position %d out of range: %w", position, oracle.ErrDataIntegrity)
	}
	h, err := oracle.HexagramByIndex(index)
	if err != nil {
		return "", err
	}
	return h.LineLabel(position) + "：" + e.Lines[position-1], nil
}
