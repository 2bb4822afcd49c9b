package tree

import (
	"fmt"
	"sort"
)

// Memory is an in-memory tree of scalar branches.
type Memory struct {
	name  string
	names []string
	cols  map[string][]float64
	n     int
}

// NewMemory returns an empty tree with the given branches.
func NewMemory(name string, branches ...string) *Memory {
	m := &Memory{
		name:  name,
		names: append([]string(nil), branches...),
		cols:  make(map[string][]float64, len(branches)),
	}
	for _, b := range branches {
		m.cols[b] = nil
	}
	return m
}

// Fill appends one event. Branches missing from row are filled with 0 and
// unknown keys are rejected.
func (m *Memory) Fill(row map[string]float64) error {
	for k := range row {
		if _, ok := m.cols[k]; !ok {
			return fmt.Errorf("tree: unknown branch %q in tree %q", k, m.name)
		}
	}
	for _, b := range m.names {
		m.cols[b] = append(m.cols[b], row[b])
	}
	m.n++
	return nil
}

func (m *Memory) Name() string   { return m.name }
func (m *Memory) Entries() int64 { return int64(m.n) }
func (m *Memory) Close() error   { return nil }

func (m *Memory) Branches() map[string]any {
	br := make(map[string]any, len(m.names))
	for _, b := range m.names {
		br[b] = 0.0
	}
	return br
}

func (m *Memory) Loop(fn func(evt Event) error) error {
	evt := make(Event, len(m.names))
	for i := 0; i < m.n; i++ {
		for _, b := range m.names {
			evt[b] = m.cols[b][i]
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
	return nil
}

// MemOpener serves in-memory trees keyed by path. The tree name argument
// of Open must match the stored tree's name.
type MemOpener map[string]*Memory

func (o MemOpener) Open(path, treename string) (Tree, error) {
	m, ok := o[path]
	if !ok {
		return nil, fmt.Errorf("tree: no such file %q: %w", path, ErrIO)
	}
	if m.name != treename {
		return nil, fmt.Errorf("tree: no tree %q in %q: %w", treename, path, ErrIO)
	}
	return m, nil
}

// Paths returns the known paths in sorted order.
func (o MemOpener) Paths() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
