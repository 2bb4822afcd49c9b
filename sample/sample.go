package sample

import (
	"errors"
	"fmt"
	"slices"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"github.com/decibelcooper/tauplot/tree"
)

// Kind is the role of a sample in a plot.
type Kind int

const (
	// Exp is an expected background, drawn in the stack.
	Exp Kind = iota
	// Data is observed data, drawn as markers and never scaled.
	Data
	// Signal is overlaid on top of the stack.
	Signal
	// ExpSignal is an expected signal, stacked with the backgrounds.
	ExpSignal
)

func (k Kind) String() string {
	switch k {
	case Exp:
		return "exp"
	case Data:
		return "data"
	case Signal:
		return "sig"
	case ExpSignal:
		return "expsig"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stacked reports whether samples of kind k belong to the stack.
func (k Kind) Stacked() bool { return k == Exp || k == ExpSignal }

// Source is a histogram producer held by a SampleSet: a Sample or a
// merge of sources.
type Source interface {
	Name() string
	Title() string
	Kind() Kind

	// InChannel reports whether the source takes part in channel ch.
	InChannel(ch string) bool

	// SetLumi sets the integrated luminosity, in fb^-1, simulated samples
	// are normalised to.
	SetLumi(lumi float64)

	// GetHists draws every variable under sel in one pass over each
	// file. Entries are nil for variables skipped under sel.
	GetHists(vars []*Variable, sel *Selection, weights ...string) ([]*hist.H1, error)
	GetHists2D(pairs []Pair, sel *Selection, weights ...string) ([]*hist.H2, error)

	// Close releases the open files. The source stays usable.
	Close() error
}

// Sample is one dataset: a set of files with a cross section, intrinsic
// weights and a style.
type Sample struct {
	name     string
	title    string
	files    []string
	treename string
	xsec     float64 // pb, -1 for data
	nevents  float64
	weight   string
	cut      string
	channels []string
	kind     Kind
	token    string
	styles   style.Provider
	opener   tree.Opener
	lumi     float64
	stitch   *stitching

	trees map[string]tree.Tree
}

// SampleOption configures a Sample.
type SampleOption func(*Sample) error

// TreeName sets the tree read from every file. It defaults to "Events".
func TreeName(name string) SampleOption {
	return func(s *Sample) error { s.treename = name; return nil }
}

// NEvents sets the number of generated events the cross section is
// normalised to. Without it, the entries of the trees are counted.
func NEvents(n float64) SampleOption {
	return func(s *Sample) error {
		if n < 0 {
			return fmt.Errorf("sample: negative number of events %g: %w", n, ErrConfig)
		}
		s.nevents = n
		return nil
	}
}

// Weight multiplies every event by expr.
func Weight(expr string) SampleOption {
	return func(s *Sample) error { s.weight = JoinWeights(s.weight, expr); return nil }
}

// Weights multiplies every event by the registered weights of keys.
func Weights(keys ...string) SampleOption {
	return func(s *Sample) error {
		for _, key := range keys {
			expr, err := WeightExpr(key)
			if err != nil {
				return err
			}
			s.weight = JoinWeights(s.weight, expr)
		}
		return nil
	}
}

// Cut restricts the sample to events passing expr.
func Cut(expr string) SampleOption {
	return func(s *Sample) error { s.cut = JoinCuts(s.cut, expr); return nil }
}

// Channels limits the sample to the given channels.
func Channels(chs ...string) SampleOption {
	return func(s *Sample) error { s.channels = append(s.channels, chs...); return nil }
}

func AsSignal() SampleOption    { return func(s *Sample) error { s.kind = Signal; return nil } }
func AsExpSignal() SampleOption { return func(s *Sample) error { s.kind = ExpSignal; return nil } }

// StyleToken sets the token looked up in the style provider. It defaults
// to the sample name.
func StyleToken(token string) SampleOption {
	return func(s *Sample) error { s.token = token; return nil }
}

// Styles sets the style provider. It defaults to style.Default().
func Styles(p style.Provider) SampleOption {
	return func(s *Sample) error { s.styles = p; return nil }
}

// Opener sets how files are opened. It defaults to tree.RootOpener.
func Opener(op tree.Opener) SampleOption {
	return func(s *Sample) error { s.opener = op; return nil }
}

// Lumi sets the luminosity before the sample joins a SampleSet.
func Lumi(lumi float64) SampleOption {
	return func(s *Sample) error { s.lumi = lumi; return nil }
}

func newSample(name, title string, files []string, xsec float64, kind Kind, opts []SampleOption) (*Sample, error) {
	s := &Sample{
		name:     name,
		title:    title,
		files:    slices.Clone(files),
		treename: "Events",
		xsec:     xsec,
		kind:     kind,
		token:    name,
		styles:   style.Default(),
		opener:   tree.RootOpener{},
		lumi:     1,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("sample: %q: %w", name, err)
		}
	}
	switch {
	case name == "":
		return nil, fmt.Errorf("sample: sample without name: %w", ErrConfig)
	case len(files) == 0:
		return nil, fmt.Errorf("sample: %q has no files: %w", name, ErrConfig)
	}
	return s, nil
}

// NewSample declares a simulated sample with cross section xsec in pb.
func NewSample(name, title string, files []string, xsec float64, opts ...SampleOption) (*Sample, error) {
	s, err := newSample(name, title, files, xsec, Exp, opts)
	if err != nil {
		return nil, err
	}
	if !(xsec > 0) {
		return nil, fmt.Errorf("sample: %q has cross section %g, want > 0: %w", name, xsec, ErrConfig)
	}
	return s, nil
}

// NewData declares an observed-data sample. Data carries no weights.
func NewData(name, title string, files []string, opts ...SampleOption) (*Sample, error) {
	s, err := newSample(name, title, files, -1, Data, opts)
	if err != nil {
		return nil, err
	}
	switch {
	case s.kind != Data:
		return nil, fmt.Errorf("sample: data sample %q declared as %v: %w", name, s.kind, ErrConfig)
	case s.weight != "":
		return nil, fmt.Errorf("sample: data sample %q has weight %q: %w", name, s.weight, ErrConfig)
	}
	return s, nil
}

func (s *Sample) Name() string       { return s.name }
func (s *Sample) Kind() Kind         { return s.kind }
func (s *Sample) Files() []string    { return slices.Clone(s.files) }
func (s *Sample) Xsec() float64      { return s.xsec }
func (s *Sample) Lumi() float64      { return s.lumi }
func (s *Sample) SetLumi(l float64)  { s.lumi = l }
func (s *Sample) ExtraWeight() string { return s.weight }

// Title returns the legend label: the declared title, or the style
// provider's label for the sample.
func (s *Sample) Title() string {
	if s.title != "" {
		return s.title
	}
	return s.styles.Label(s.token)
}

func (s *Sample) InChannel(ch string) bool {
	return ch == "" || len(s.channels) == 0 || slices.Contains(s.channels, ch)
}

func (s *Sample) styleProvider() style.Provider { return s.styles }

// Generated returns the number of generated events, counting tree
// entries when it was not declared.
func (s *Sample) Generated() (float64, error) {
	if s.nevents > 0 {
		return s.nevents, nil
	}
	var n int64
	for _, f := range s.files {
		t, err := s.tree(f)
		if err != nil {
			return 0, err
		}
		n += t.Entries()
	}
	s.nevents = float64(n)
	return s.nevents, nil
}

// Norm returns the factor applied to histograms of the sample:
// 1000·lumi·xsec/N for simulation, with lumi in fb^-1 and xsec in pb,
// and 1 for data.
func (s *Sample) Norm(lumi float64) (float64, error) {
	if s.kind == Data {
		return 1, nil
	}
	n, err := s.Generated()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		logger().Debug().Str("sample", s.name).Msg("Sample: no generated events, normalising to zero")
		return 0, nil
	}
	return 1000 * lumi * s.xsec / n, nil
}

func (s *Sample) tree(path string) (tree.Tree, error) {
	if t, ok := s.trees[path]; ok {
		return t, nil
	}
	t, err := s.opener.Open(path, s.treename)
	if err != nil {
		return nil, fmt.Errorf("sample: %q: %w", s.name, err)
	}
	if s.trees == nil {
		s.trees = make(map[string]tree.Tree)
	}
	s.trees[path] = t
	return t, nil
}

// Close closes the open trees. They are reopened on the next draw.
func (s *Sample) Close() error {
	var errs []error
	for path, t := range s.trees {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sample: could not close %q: %w", path, err))
		}
	}
	s.trees = nil
	return errors.Join(errs...)
}

func (s *Sample) clone() *Sample {
	c := *s
	c.files = slices.Clone(s.files)
	c.channels = slices.Clone(s.channels)
	c.trees = nil
	return &c
}

// drawWeight composes the per-event weight. Data is never weighted.
func (s *Sample) drawWeight(sel *Selection, extra []string) string {
	if s.kind == Data {
		return ""
	}
	w := JoinWeights(append([]string{s.weight, sel.Weight()}, extra...)...)
	if s.stitch != nil {
		w = JoinWeights(w, s.stitch.expr(s.lumi))
	}
	return w
}

// scale returns the factor applied after drawing. Stitched samples are
// normalised per event instead.
func (s *Sample) scale() (float64, error) {
	if s.stitch != nil {
		return 1, nil
	}
	return s.Norm(s.lumi)
}

// drawFiles runs one draw per file. mk returns fresh targets and a
// function adding what they collected to the totals.
func (s *Sample) drawFiles(sel *Selection, extra []string, mk func() ([]tree.Target, func() error)) (int64, error) {
	req := tree.Request{
		Cut:    JoinCuts(sel.Cut(), s.cut),
		Weight: s.drawWeight(sel, extra),
	}
	var total int64
	for _, f := range s.files {
		t, err := s.tree(f)
		if err != nil {
			return total, err
		}
		var merge func() error
		req.Targets, merge = mk()
		n, err := tree.Draw(t, req)
		if err != nil {
			return total, fmt.Errorf("sample: %q: %w", s.name, err)
		}
		if err := merge(); err != nil {
			return total, fmt.Errorf("sample: %q: %w", s.name, err)
		}
		total += n
	}
	logger().Trace().Str("sample", s.name).Str("cut", req.Cut).Str("weight", req.Weight).
		Int64("selected", total).Msg("Sample: drew")
	if total == 0 {
		logger().Debug().Str("sample", s.name).Str("selection", sel.Name()).Msg("Sample: empty result")
	}
	return total, nil
}

func (s *Sample) decorate(h *hist.H1) {
	h.Process = s.name
	h.Label = s.Title()
	h.Style = s.styles.Attr(s.token)
}

// GetHist draws v under sel. It returns nil when v is not drawn under
// sel.
func (s *Sample) GetHist(v *Variable, sel *Selection, weights ...string) (*hist.H1, error) {
	hs, err := s.GetHists([]*Variable{v}, sel, weights...)
	if err != nil {
		return nil, err
	}
	return hs[0], nil
}

func (s *Sample) GetHists(vars []*Variable, sel *Selection, weights ...string) ([]*hist.H1, error) {
	out := make([]*hist.H1, len(vars))
	for i, v := range vars {
		if !v.PlotFor(sel) {
			logger().Debug().Str("variable", v.Name()).Str("selection", sel.Name()).Msg("Sample: skipping variable")
			continue
		}
		out[i] = hist.NewH1(v.HistName(s.name), v.AxisTitle(sel), v.BinningFor(sel))
		s.decorate(out[i])
	}
	if !slices.ContainsFunc(out, func(h *hist.H1) bool { return h != nil }) {
		return out, nil
	}

	_, err := s.drawFiles(sel, weights, func() ([]tree.Target, func() error) {
		var targets []tree.Target
		parts := make([]*hist.H1, len(out))
		for i, h := range out {
			if h == nil {
				continue
			}
			part := hist.NewH1(h.Name, "", h.Binning())
			parts[i] = part
			targets = append(targets, tree.Target{
				Exprs: []string{vars[i].DrawCmd()},
				Fill:  func(x []float64, w float64) { part.Fill(x[0], w) },
			})
		}
		return targets, func() error {
			for i, part := range parts {
				if part == nil {
					continue
				}
				if err := out[i].Add(part); err != nil {
					return err
				}
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	norm, err := s.scale()
	if err != nil {
		return nil, err
	}
	for i, h := range out {
		if h == nil {
			continue
		}
		h.Scale(norm)
		v := vars[i]
		if v.Flows() {
			h.MergeFlows()
		}
		if s.kind == Data && !sel.unblinded() {
			pred, err := v.BlindFor(sel).Predicate(v.Name())
			if err != nil {
				return nil, err
			}
			if pred != nil {
				n := h.Blind(pred)
				logger().Debug().Str("variable", v.Name()).Int("bins", n).Msg("Sample: blinded")
			}
		}
	}
	return out, nil
}

// GetHist2D draws p under sel, or returns nil when either axis is not
// drawn under sel.
func (s *Sample) GetHist2D(p Pair, sel *Selection, weights ...string) (*hist.H2, error) {
	hs, err := s.GetHists2D([]Pair{p}, sel, weights...)
	if err != nil {
		return nil, err
	}
	return hs[0], nil
}

func (s *Sample) GetHists2D(pairs []Pair, sel *Selection, weights ...string) ([]*hist.H2, error) {
	out := make([]*hist.H2, len(pairs))
	for i, p := range pairs {
		if !p.X.PlotFor(sel) || !p.Y.PlotFor(sel) {
			continue
		}
		out[i] = hist.NewH2(p.X.HistName(p.Y.Name()+"_"+s.name), "", p.X.BinningFor(sel), p.Y.BinningFor(sel))
		out[i].Process = s.name
		out[i].Label = s.Title()
	}
	if !slices.ContainsFunc(out, func(h *hist.H2) bool { return h != nil }) {
		return out, nil
	}

	_, err := s.drawFiles(sel, weights, func() ([]tree.Target, func() error) {
		var targets []tree.Target
		parts := make([]*hist.H2, len(out))
		for i, h := range out {
			if h == nil {
				continue
			}
			part := hist.NewH2(h.Name, "", h.XBinning(), h.YBinning())
			parts[i] = part
			targets = append(targets, tree.Target{
				Exprs: []string{pairs[i].X.DrawCmd(), pairs[i].Y.DrawCmd()},
				Fill:  func(x []float64, w float64) { part.Fill(x[0], x[1], w) },
			})
		}
		return targets, func() error {
			for i, part := range parts {
				if part == nil {
					continue
				}
				if err := out[i].Add(part); err != nil {
					return err
				}
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	norm, err := s.scale()
	if err != nil {
		return nil, err
	}
	for i, h := range out {
		if h == nil {
			continue
		}
		h.Scale(norm)
		p := pairs[i]
		if p.X.Flows() || p.Y.Flows() {
			h.MergeFlows()
		}
		if s.kind == Data && !sel.unblinded() {
			bx, err := p.X.BlindFor(sel).Predicate(p.X.Name())
			if err != nil {
				return nil, err
			}
			by, err := p.Y.BlindFor(sel).Predicate(p.Y.Name())
			if err != nil {
				return nil, err
			}
			h.Blind(bx, by)
		}
	}
	return out, nil
}
