package sample

import (
	"errors"
	"fmt"
	"slices"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
)

type styler interface {
	styleProvider() style.Provider
}

// Merged is a source whose histograms are the bin-by-bin sum of its
// children's. It is styled as one process under its own name.
type Merged struct {
	name     string
	title    string
	kind     Kind
	children []Source
	styles   style.Provider
}

// NewMerged merges children, which must share their kind.
func NewMerged(name, title string, children ...Source) (*Merged, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("sample: merge %q has no children: %w", name, ErrConfig)
	}
	m := &Merged{
		name:     name,
		title:    title,
		kind:     children[0].Kind(),
		children: slices.Clone(children),
		styles:   style.Default(),
	}
	for _, c := range children[1:] {
		if c.Kind() != m.kind {
			return nil, fmt.Errorf("sample: merge %q mixes %q (%v) with %q (%v): %w",
				name, children[0].Name(), m.kind, c.Name(), c.Kind(), ErrConfig)
		}
	}
	if st, ok := children[0].(styler); ok {
		m.styles = st.styleProvider()
	}
	return m, nil
}

func (m *Merged) Name() string                  { return m.name }
func (m *Merged) Kind() Kind                    { return m.kind }
func (m *Merged) Children() []Source            { return slices.Clone(m.children) }
func (m *Merged) styleProvider() style.Provider { return m.styles }

func (m *Merged) Title() string {
	if m.title != "" {
		return m.title
	}
	return m.styles.Label(m.name)
}

func (m *Merged) InChannel(ch string) bool {
	return slices.ContainsFunc(m.children, func(c Source) bool { return c.InChannel(ch) })
}

func (m *Merged) SetLumi(lumi float64) {
	for _, c := range m.children {
		c.SetLumi(lumi)
	}
}

func (m *Merged) Close() error {
	var errs []error
	for _, c := range m.children {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (m *Merged) GetHist(v *Variable, sel *Selection, weights ...string) (*hist.H1, error) {
	hs, err := m.GetHists([]*Variable{v}, sel, weights...)
	if err != nil {
		return nil, err
	}
	return hs[0], nil
}

// GetHists sums the children's histograms. A variable skipped by every
// child is skipped.
func (m *Merged) GetHists(vars []*Variable, sel *Selection, weights ...string) ([]*hist.H1, error) {
	out := make([]*hist.H1, len(vars))
	for _, c := range m.children {
		hs, err := c.GetHists(vars, sel, weights...)
		if err != nil {
			return nil, fmt.Errorf("sample: merge %q: %w", m.name, err)
		}
		for i, h := range hs {
			switch {
			case h == nil:
			case out[i] == nil:
				out[i] = h.Clone()
			default:
				if err := out[i].Add(h); err != nil {
					return nil, fmt.Errorf("sample: merge %q: %w", m.name, err)
				}
			}
		}
	}
	for i, h := range out {
		if h == nil {
			continue
		}
		h.Name = vars[i].HistName(m.name)
		h.Process = m.name
		h.Label = m.Title()
		h.Style = m.styles.Attr(m.name)
	}
	return out, nil
}

func (m *Merged) GetHists2D(pairs []Pair, sel *Selection, weights ...string) ([]*hist.H2, error) {
	out := make([]*hist.H2, len(pairs))
	for _, c := range m.children {
		hs, err := c.GetHists2D(pairs, sel, weights...)
		if err != nil {
			return nil, fmt.Errorf("sample: merge %q: %w", m.name, err)
		}
		for i, h := range hs {
			switch {
			case h == nil:
			case out[i] == nil:
				out[i] = h.Clone()
			default:
				if err := out[i].Add(h); err != nil {
					return nil, fmt.Errorf("sample: merge %q: %w", m.name, err)
				}
			}
		}
	}
	for i, h := range out {
		if h == nil {
			continue
		}
		h.Name = pairs[i].X.HistName(pairs[i].Y.Name() + "_" + m.name)
		h.Process = m.name
		h.Label = m.Title()
	}
	return out, nil
}
