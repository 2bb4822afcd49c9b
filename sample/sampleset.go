package sample

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setLogger returns the component logger, derived from log.Logger at call time.
func setLogger() *zerolog.Logger {
	l := log.With().Str("component", "SampleSet").Logger()
	return &l
}

// SampleSet is the catalogue of sources drawn together, at one
// luminosity. At most one source is data.
type SampleSet struct {
	lumi       float64
	channel    string
	sources    []Source
	styles     style.Provider
	stackOrder []string
	methods    []string
	variations []variation
}

type variation struct {
	tag, weight string
}

// Result is the histograms of one variable under one selection.
type Result struct {
	Var   *Variable
	Sel   *Selection
	Hists *hist.HistSet
}

// Result2D is the two-dimensional counterpart of Result.
type Result2D struct {
	Pair  Pair
	Sel   *Selection
	Hists *hist.HistSet2D
}

// NewSampleSet returns a set normalising simulation to lumi, in fb^-1.
func NewSampleSet(lumi float64, srcs ...Source) (*SampleSet, error) {
	ss := &SampleSet{lumi: lumi, styles: style.Default()}
	for _, src := range srcs {
		if err := ss.Add(src); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// Add appends src to the set.
func (ss *SampleSet) Add(src Source) error {
	if src.Kind() == Data && ss.Data() != nil {
		return fmt.Errorf("sample: cannot add data %q, set already has %q: %w", src.Name(), ss.Data().Name(), ErrConfig)
	}
	if ss.Get(src.Name()) != nil {
		return fmt.Errorf("sample: duplicate sample %q: %w", src.Name(), ErrConfig)
	}
	src.SetLumi(ss.lumi)
	ss.sources = append(ss.sources, src)
	return nil
}

func (ss *SampleSet) Lumi() float64 { return ss.lumi }

// SetLumi changes the luminosity of the set and of every source.
func (ss *SampleSet) SetLumi(lumi float64) {
	ss.lumi = lumi
	for _, src := range ss.sources {
		src.SetLumi(lumi)
	}
}

// SetChannel restricts draws to the sources taking part in ch.
func (ss *SampleSet) SetChannel(ch string) { ss.channel = ch }

// SetStyles sets the provider styling histograms made by methods.
func (ss *SampleSet) SetStyles(p style.Provider) { ss.styles = p }

// SetStackOrder stacks the named processes in the given order, bottom
// first, followed by the others by ascending yield. Without it every
// process is stacked by ascending yield.
func (ss *SampleSet) SetStackOrder(names ...string) { ss.stackOrder = slices.Clone(names) }

// AddVariation draws the stacked sources once more per call, with weight
// multiplied in, and stores them in HistSet.Sys under tag.
func (ss *SampleSet) AddVariation(tag, weight string) {
	ss.variations = append(ss.variations, variation{tag, weight})
}

// Sources returns the sources in insertion order.
func (ss *SampleSet) Sources() []Source { return slices.Clone(ss.sources) }

// Get returns the source with the given name, or nil.
func (ss *SampleSet) Get(name string) Source {
	for _, src := range ss.sources {
		if src.Name() == name {
			return src
		}
	}
	return nil
}

// Data returns the data source, or nil.
func (ss *SampleSet) Data() Source {
	for _, src := range ss.sources {
		if src.Kind() == Data {
			return src
		}
	}
	return nil
}

func (ss *SampleSet) indices(pattern string, regex bool) ([]int, error) {
	compile := Glob
	if regex {
		compile = Regexp
	}
	m, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, src := range ss.sources {
		if m.Match(src.Name()) {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

func (ss *SampleSet) pick(idx []int) []Source {
	srcs := make([]Source, len(idx))
	for i, j := range idx {
		srcs[i] = ss.sources[j]
	}
	return srcs
}

// Find returns the sources whose name matches the glob pattern.
func (ss *SampleSet) Find(pattern string) ([]Source, error) {
	idx, err := ss.indices(pattern, false)
	if err != nil {
		return nil, err
	}
	return ss.pick(idx), nil
}

// FindRegex returns the sources whose whole name matches the regular
// expression.
func (ss *SampleSet) FindRegex(pattern string) ([]Source, error) {
	idx, err := ss.indices(pattern, true)
	if err != nil {
		return nil, err
	}
	return ss.pick(idx), nil
}

// replace puts src in place of the first of idx and drops the others.
func (ss *SampleSet) replace(idx []int, src Source) {
	src.SetLumi(ss.lumi)
	drop := make(map[int]bool, len(idx))
	for _, i := range idx[1:] {
		drop[i] = true
	}
	out := ss.sources[:0:0]
	for i, s := range ss.sources {
		switch {
		case i == idx[0]:
			out = append(out, src)
		case !drop[i]:
			out = append(out, s)
		}
	}
	ss.sources = out
}

// Join replaces the sources matching the glob pattern by one Merged
// source, placed where the first of them was.
func (ss *SampleSet) Join(pattern, name, title string) (*Merged, error) {
	idx, err := ss.indices(pattern, false)
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("sample: no sample matches %q: %w", pattern, ErrConfig)
	}
	m, err := NewMerged(name, title, ss.pick(idx)...)
	if err != nil {
		return nil, err
	}
	ss.replace(idx, m)
	setLogger().Info().Str("name", name).Msgf("SampleSet: joined %d samples matching %q", len(idx), pattern)
	return m, nil
}

// Part is one piece of a split sample.
type Part struct {
	Name  string
	Title string
	Cut   string
}

// Split replaces the sample called name by one sample per part, each
// reading the same files with the part's cut ANDed on.
func (ss *SampleSet) Split(name string, parts ...Part) ([]*Sample, error) {
	i := slices.IndexFunc(ss.sources, func(src Source) bool { return src.Name() == name })
	if i < 0 {
		return nil, fmt.Errorf("sample: no sample %q to split: %w", name, ErrConfig)
	}
	s, ok := ss.sources[i].(*Sample)
	if !ok {
		return nil, fmt.Errorf("sample: cannot split %q, not a plain sample: %w", name, ErrConfig)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("sample: split of %q without parts: %w", name, ErrConfig)
	}

	subs := make([]*Sample, len(parts))
	srcs := make([]Source, len(parts))
	for j, p := range parts {
		if p.Name != name && ss.Get(p.Name) != nil {
			return nil, fmt.Errorf("sample: split of %q: duplicate sample %q: %w", name, p.Name, ErrConfig)
		}
		c := s.clone()
		c.name, c.title, c.token = p.Name, p.Title, p.Name
		c.cut = JoinCuts(s.cut, p.Cut)
		subs[j], srcs[j] = c, c
	}
	ss.sources = slices.Replace(ss.sources, i, i+1, srcs...)
	s.Close()
	setLogger().Info().Str("name", name).Msgf("SampleSet: split into %d samples", len(parts))
	return subs, nil
}

// active returns the sources drawn in the current channel, data last.
func (ss *SampleSet) active() []Source {
	var srcs []Source
	var data Source
	for _, src := range ss.sources {
		switch {
		case !src.InChannel(ss.channel):
			setLogger().Debug().Str("sample", src.Name()).Str("channel", ss.channel).Msg("SampleSet: not in channel")
		case src.Kind() == Data:
			data = src
		default:
			srcs = append(srcs, src)
		}
	}
	if data != nil {
		srcs = append(srcs, data)
	}
	return srcs
}

// GetHists draws variables for every source and groups the histograms
// per variable. It accepts the arguments of Unpack. Variables skipped
// under the selection are left out of the result.
func (ss *SampleSet) GetHists(args ...any) ([]Result, error) {
	vars, sel, err := Unpack(args...)
	if err != nil {
		return nil, err
	}
	results, err := ss.getHists(vars, sel)
	if err != nil {
		return nil, err
	}
	for _, name := range ss.methods {
		m, err := lookupMethod(name)
		if err != nil {
			return nil, err
		}
		if err := m(ss, sel, results); err != nil {
			return nil, fmt.Errorf("sample: method %s: %w", name, err)
		}
	}
	for _, r := range results {
		ss.order(r.Hists)
	}
	return results, nil
}

func (ss *SampleSet) getHists(vars []*Variable, sel *Selection) ([]Result, error) {
	sets := make([]*hist.HistSet, len(vars))
	for i := range sets {
		sets[i] = &hist.HistSet{}
	}
	for _, src := range ss.active() {
		hs, err := src.GetHists(vars, sel)
		if err != nil {
			return nil, err
		}
		for i, h := range hs {
			if h == nil {
				continue
			}
			switch k := src.Kind(); {
			case k == Data:
				sets[i].Data = h
			case k.Stacked():
				sets[i].Exp = append(sets[i].Exp, h)
			default:
				sets[i].Sig = append(sets[i].Sig, h)
			}
		}
	}
	if err := ss.vary(vars, sel, sets); err != nil {
		return nil, err
	}

	var results []Result
	for i, v := range vars {
		if !v.PlotFor(sel) {
			continue
		}
		results = append(results, Result{Var: v, Sel: sel, Hists: sets[i]})
	}
	return results, nil
}

func (ss *SampleSet) vary(vars []*Variable, sel *Selection, sets []*hist.HistSet) error {
	for _, va := range ss.variations {
		for _, src := range ss.active() {
			if !src.Kind().Stacked() {
				continue
			}
			hs, err := src.GetHists(vars, sel, va.weight)
			if err != nil {
				return fmt.Errorf("sample: variation %s: %w", va.tag, err)
			}
			for i, h := range hs {
				if h == nil {
					continue
				}
				if sets[i].Sys == nil {
					sets[i].Sys = make(map[string][]*hist.H1)
				}
				sets[i].Sys[va.tag] = append(sets[i].Sys[va.tag], h)
			}
		}
	}
	return nil
}

// order sorts the stacked histograms, and their variations alike.
func (ss *SampleSet) order(hs *hist.HistSet) {
	rank := func(h *hist.H1) int {
		if i := slices.Index(ss.stackOrder, h.Process); i >= 0 {
			return i
		}
		return len(ss.stackOrder)
	}
	slices.SortStableFunc(hs.Exp, func(a, b *hist.H1) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return cmp.Compare(a.Integral(), b.Integral())
	})
	pos := make(map[string]int, len(hs.Exp))
	for i, h := range hs.Exp {
		pos[h.Process] = i
	}
	for _, sys := range hs.Sys {
		slices.SortStableFunc(sys, func(a, b *hist.H1) int { return pos[a.Process] - pos[b.Process] })
	}
}

// GetHists2D draws pairs of variables for every source. It accepts the
// arguments of Unpack2D.
func (ss *SampleSet) GetHists2D(args ...any) ([]Result2D, error) {
	pairs, sel, err := Unpack2D(args...)
	if err != nil {
		return nil, err
	}
	sets := make([]*hist.HistSet2D, len(pairs))
	for i := range sets {
		sets[i] = &hist.HistSet2D{}
	}
	for _, src := range ss.active() {
		hs, err := src.GetHists2D(pairs, sel)
		if err != nil {
			return nil, err
		}
		for i, h := range hs {
			if h == nil {
				continue
			}
			switch k := src.Kind(); {
			case k == Data:
				sets[i].Data = h
			case k.Stacked():
				sets[i].Exp = append(sets[i].Exp, h)
			default:
				sets[i].Sig = append(sets[i].Sig, h)
			}
		}
	}
	var results []Result2D
	for i, p := range pairs {
		if !p.X.PlotFor(sel) || !p.Y.PlotFor(sel) {
			continue
		}
		results = append(results, Result2D{Pair: p, Sel: sel, Hists: sets[i]})
	}
	return results, nil
}

// Yield is the integrated yield of one source.
type Yield struct {
	Name  string
	Kind  Kind
	Yield float64
	Error float64
}

var yieldVar = MustVariable("yield", Expr("0.5"), Bins(1, 0, 1), MergeFlows())

// Yields returns the yield of every source under sel, in set order with
// data last.
func (ss *SampleSet) Yields(sel *Selection) ([]Yield, error) {
	var ys []Yield
	for _, src := range ss.active() {
		hs, err := src.GetHists([]*Variable{yieldVar}, sel)
		if err != nil {
			return nil, err
		}
		y := Yield{Name: src.Name(), Kind: src.Kind()}
		if h := hs[0]; h != nil {
			y.Yield, y.Error = h.Integral(), h.IntegralError()
		}
		ys = append(ys, y)
	}
	return ys, nil
}

// Close closes every source.
func (ss *SampleSet) Close() error {
	var errs []error
	for _, src := range ss.sources {
		errs = append(errs, src.Close())
	}
	return errors.Join(errs...)
}
