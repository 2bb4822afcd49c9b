package hist

import (
	"cmp"
	"slices"
)

// HistSet is the outcome of drawing one variable for every sample of a
// set: the observed data (nil when there is none), the expected
// backgrounds in stacking order (bottom first), the overlaid signals and,
// per systematic variation tag, the varied backgrounds in the order of Exp.
type HistSet struct {
	Data *H1
	Exp  []*H1
	Sig  []*H1
	Sys  map[string][]*H1
}

// ExpSum returns the sum of the expected histograms, or nil when there are
// none.
func (hs *HistSet) ExpSum() (*H1, error) {
	if len(hs.Exp) == 0 {
		return nil, nil
	}
	sum := hs.Exp[0].Clone()
	sum.Name = UniqueName("stack")
	sum.Process = ""
	sum.Label = "Total"
	for _, h := range hs.Exp[1:] {
		if err := sum.Add(h); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// All returns every histogram of the set: data, expected then signals.
func (hs *HistSet) All() []*H1 {
	var all []*H1
	if hs.Data != nil {
		all = append(all, hs.Data)
	}
	all = append(all, hs.Exp...)
	return append(all, hs.Sig...)
}

// Len returns the number of histograms in the set.
func (hs *HistSet) Len() int { return len(hs.All()) }

// Clone returns a deep copy of the set.
func (hs *HistSet) Clone() *HistSet {
	cp := func(hs []*H1) []*H1 {
		if hs == nil {
			return nil
		}
		out := make([]*H1, len(hs))
		for i, h := range hs {
			out[i] = h.Clone()
		}
		return out
	}
	c := &HistSet{Exp: cp(hs.Exp), Sig: cp(hs.Sig)}
	if hs.Data != nil {
		c.Data = hs.Data.Clone()
	}
	if hs.Sys != nil {
		c.Sys = make(map[string][]*H1, len(hs.Sys))
		for k, v := range hs.Sys {
			c.Sys[k] = cp(v)
		}
	}
	return c
}

// SortExp orders the expected histograms by ascending integral, keeping
// the given order between equal yields.
func (hs *HistSet) SortExp() {
	slices.SortStableFunc(hs.Exp, func(a, b *H1) int {
		return cmp.Compare(a.Integral(), b.Integral())
	})
}

// Find returns the histogram produced by the named process.
func (hs *HistSet) Find(process string) *H1 {
	for _, h := range hs.All() {
		if h.Process == process {
			return h
		}
	}
	return nil
}

// HistSet2D is the two-dimensional counterpart of HistSet.
type HistSet2D struct {
	Data *H2
	Exp  []*H2
	Sig  []*H2
}

// ExpSum returns the sum of the expected histograms, or nil when there are
// none.
func (hs *HistSet2D) ExpSum() (*H2, error) {
	if len(hs.Exp) == 0 {
		return nil, nil
	}
	sum := hs.Exp[0].Clone()
	sum.Name = UniqueName("stack2d")
	for _, h := range hs.Exp[1:] {
		if err := sum.Add(h); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
