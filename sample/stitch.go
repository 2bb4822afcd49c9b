package sample

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// stitching normalises the events of one member of a stitched group by
// the slice they fall in. For slice j the factor is 1000·L/denom[j] with
// denom[j] = N_incl/σ_incl + N_j/σ_j; events outside every slice use the
// inclusive 1000·L·σ_incl/N_incl.
type stitching struct {
	slice  string
	denoms map[int]float64
	incl   float64 // N_incl/σ_incl
}

func (st *stitching) expr(lumi float64) string {
	e := formatFloat(1000 * lumi / st.incl)
	js := slices.Sorted(maps.Keys(st.denoms))
	for i := len(js) - 1; i >= 0; i-- {
		j := js[i]
		e = fmt.Sprintf("(%s==%d ? %s : %s)", st.slice, j, formatFloat(1000*lumi/st.denoms[j]), e)
	}
	return e
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// StitchOption configures SampleSet.Stitch.
type StitchOption func(*stitchConfig)

type stitchConfig struct {
	slice string
	index func(name string) (int, bool)
}

// SliceVar sets the expression selecting the slice an event belongs to.
// It defaults to LHE_Njets.
func SliceVar(expr string) StitchOption {
	return func(c *stitchConfig) { c.slice = expr }
}

// SliceIndex sets how the slice of an exclusive sample is found from its
// name. By default the number before "Jets" is used, as in DY3Jets.
func SliceIndex(fn func(name string) (int, bool)) StitchOption {
	return func(c *stitchConfig) { c.index = fn }
}

var jetsRe = regexp.MustCompile(`(\d+)Jets?`)

func jetIndex(name string) (int, bool) {
	m := jetsRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	j, err := strconv.Atoi(m[1])
	return j, err == nil
}

// Stitch replaces the samples matching pattern, an inclusive sample named
// inclusive and its exclusive slices, by a Merged sample named name in
// which no region of phase space is counted twice. The stitched group
// reproduces the inclusive cross section.
func (ss *SampleSet) Stitch(pattern, inclusive, name, title string, opts ...StitchOption) (*Merged, error) {
	cfg := stitchConfig{slice: "LHE_Njets", index: jetIndex}
	for _, opt := range opts {
		opt(&cfg)
	}
	idx, err := ss.indices(pattern, false)
	if err != nil {
		return nil, err
	}

	var incl *Sample
	type slice struct {
		s *Sample
		j int
	}
	var excl []slice
	for _, i := range idx {
		s, ok := ss.sources[i].(*Sample)
		if !ok || s.kind == Data {
			return nil, fmt.Errorf("sample: cannot stitch %q, not a simulated sample: %w", ss.sources[i].Name(), ErrConfig)
		}
		if s.name == inclusive {
			incl = s
			continue
		}
		j, ok := cfg.index(s.name)
		if !ok {
			return nil, fmt.Errorf("sample: cannot find the slice of %q: %w", s.name, ErrConfig)
		}
		for _, e := range excl {
			if e.j == j {
				return nil, fmt.Errorf("sample: %q and %q are both slice %d: %w", e.s.name, s.name, j, ErrConfig)
			}
		}
		excl = append(excl, slice{s, j})
	}
	if incl == nil {
		return nil, fmt.Errorf("sample: inclusive sample %q not among %q: %w", inclusive, pattern, ErrConfig)
	}

	nincl, err := incl.Generated()
	if err != nil {
		return nil, err
	}
	if nincl == 0 {
		return nil, fmt.Errorf("sample: inclusive sample %q has no events: %w", inclusive, ErrConfig)
	}
	st := &stitching{slice: cfg.slice, denoms: make(map[int]float64), incl: nincl / incl.xsec}
	for _, e := range excl {
		n, err := e.s.Generated()
		if err != nil {
			return nil, err
		}
		st.denoms[e.j] = st.incl + n/e.s.xsec
	}

	children := make([]Source, 0, len(excl)+1)
	c := incl.clone()
	c.stitch = st
	children = append(children, c)
	for _, e := range excl {
		c := e.s.clone()
		c.stitch = st
		children = append(children, c)
	}
	m, err := NewMerged(name, title, children...)
	if err != nil {
		return nil, err
	}
	ss.replace(idx, m)
	incl.Close()

	var parts []string
	for _, e := range excl {
		e.s.Close()
		parts = append(parts, fmt.Sprintf("%s(%s==%d)", e.s.name, cfg.slice, e.j))
	}
	setLogger().Info().Str("name", name).Msgf("SampleSet: stitched %s with %s", inclusive, strings.Join(parts, ", "))
	return m, nil
}
