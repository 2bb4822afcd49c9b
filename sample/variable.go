package sample

import (
	"errors"
	"fmt"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/internal/formula"
)

// Blind is a region of a variable whose data bins are hidden: either the
// closed interval [Lo, Hi] or, when Expr is set, the bin centres for which
// Expr is true. Expr may refer to the centre as x or by the variable name.
type Blind struct {
	Lo, Hi float64
	Expr   string
}

// Predicate returns the test applied to bin centres of variable name.
func (b *Blind) Predicate(name string) (func(float64) bool, error) {
	if b == nil {
		return nil, nil
	}
	if b.Expr == "" {
		return hist.Within(b.Lo, b.Hi), nil
	}
	f, err := formula.Compile(b.Expr, map[string]any{"x": 0.0, name: 0.0})
	if err != nil {
		return nil, fmt.Errorf("sample: bad blinding expression %q: %w: %w", b.Expr, ErrConfig, err)
	}
	env := formula.Env{"x": 0.0, name: 0.0}
	return func(x float64) bool {
		env["x"], env[name] = x, x
		ok, err := f.Bool(env)
		return err == nil && ok
	}, nil
}

func (b *Blind) String() string {
	switch {
	case b == nil:
		return "none"
	case b.Expr != "":
		return b.Expr
	}
	return fmt.Sprintf("[%g, %g]", b.Lo, b.Hi)
}

// Variable is a histogram axis: an expression over event records with its
// binning, title and per-selection overrides.
type Variable struct {
	name   string
	expr   string
	units  string
	logx   bool
	logy   bool
	flows  bool
	narrow bool
	only   []string
	veto   []string

	bins   *Context[hist.Binning]
	titles *Context[string]
	blinds *Context[*Blind]
}

// VariableOption configures a Variable.
type VariableOption func(*Variable)

// Bins sets n uniform bins over [lo, hi).
func Bins(n int, lo, hi float64) VariableOption {
	return func(v *Variable) { v.bins.def = hist.Uniform(n, lo, hi) }
}

// Edges sets explicit bin edges.
func Edges(edges ...float64) VariableOption {
	return func(v *Variable) { v.bins.def = hist.Variable(edges...) }
}

// Expr sets the drawn expression. It defaults to the name.
func Expr(expr string) VariableOption {
	return func(v *Variable) { v.expr = expr }
}

func Title(title string) VariableOption {
	return func(v *Variable) { v.titles.def = title }
}

func Units(units string) VariableOption {
	return func(v *Variable) { v.units = units }
}

func LogX() VariableOption { return func(v *Variable) { v.logx = true } }
func LogY() VariableOption { return func(v *Variable) { v.logy = true } }

// Only restricts the variable to selections whose name matches one of
// the glob patterns.
func Only(patterns ...string) VariableOption {
	return func(v *Variable) { v.only = append(v.only, patterns...) }
}

// Veto skips the variable for selections whose name matches one of the
// glob patterns.
func Veto(patterns ...string) VariableOption {
	return func(v *Variable) { v.veto = append(v.veto, patterns...) }
}

// BlindRange hides data bins with centres in [lo, hi].
func BlindRange(lo, hi float64) VariableOption {
	return func(v *Variable) { v.blinds.def = &Blind{Lo: lo, Hi: hi} }
}

// BlindExpr hides data bins with centres satisfying expr, such as
// "m_vis>100".
func BlindExpr(expr string) VariableOption {
	return func(v *Variable) { v.blinds.def = &Blind{Expr: expr} }
}

// CBins overrides the binning with explicit edges for selections matching
// key. Keys are regular expressions searched for in the selection name
// and cut.
func CBins(key string, edges ...float64) VariableOption {
	return func(v *Variable) { v.bins.Set(key, hist.Variable(edges...)) }
}

// CUniform overrides the binning with uniform bins for selections
// matching key.
func CUniform(key string, n int, lo, hi float64) VariableOption {
	return func(v *Variable) { v.bins.Set(key, hist.Uniform(n, lo, hi)) }
}

func CTitle(key, title string) VariableOption {
	return func(v *Variable) { v.titles.Set(key, title) }
}

// CBlind overrides the blinding for selections matching key. A nil Blind
// unblinds.
func CBlind(key string, b *Blind) VariableOption {
	return func(v *Variable) { v.blinds.Set(key, b) }
}

// AllowNarrow permits binning overrides covering less than the default
// range.
func AllowNarrow() VariableOption { return func(v *Variable) { v.narrow = true } }

// MergeFlows folds under- and overflow into the first and last bins.
func MergeFlows() VariableOption { return func(v *Variable) { v.flows = true } }

// NewVariable declares a variable. Binning is mandatory and is checked,
// with every override, before returning.
func NewVariable(name string, opts ...VariableOption) (*Variable, error) {
	v := &Variable{
		name:   name,
		bins:   NewContext(hist.Binning{}, Regex()),
		titles: NewContext(name, Regex()),
		blinds: NewContext[*Blind](nil, Regex()),
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// MustVariable is like NewVariable but panics on error. It is meant for
// package-level declarations.
func MustVariable(name string, opts ...VariableOption) *Variable {
	v, err := NewVariable(name, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Variable) validate() error {
	if v.name == "" {
		return fmt.Errorf("sample: variable without name: %w", ErrConfig)
	}
	base := v.bins.def
	if err := base.Validate(); err != nil {
		return fmt.Errorf("sample: variable %q: %w: %w", v.name, ErrConfig, err)
	}
	var errs []error
	for _, key := range v.bins.keys {
		b := v.bins.vals[key].val
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sample: variable %q override %q: %w: %w", v.name, key, ErrConfig, err))
			continue
		}
		if !v.narrow && !b.Covers(base) {
			errs = append(errs, fmt.Errorf("sample: variable %q override %q %v is narrower than %v: %w",
				v.name, key, b, base, ErrConfig))
		}
	}
	blinds := []*Blind{v.blinds.def}
	for _, key := range v.blinds.keys {
		blinds = append(blinds, v.blinds.vals[key].val)
	}
	for _, b := range blinds {
		if _, err := b.Predicate(v.name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (v *Variable) Name() string  { return v.name }
func (v *Variable) Units() string { return v.units }
func (v *Variable) LogX() bool    { return v.logx }
func (v *Variable) LogY() bool    { return v.logy }
func (v *Variable) Flows() bool   { return v.flows }

// DrawCmd returns the expression handed to the draw engine.
func (v *Variable) DrawCmd() string {
	if v.expr != "" {
		return v.expr
	}
	return v.name
}

// HistName returns a process-wide unique histogram name for v drawn for
// the given tag, usually a sample name.
func (v *Variable) HistName(tag string) string {
	if tag == "" {
		return hist.UniqueName(v.name)
	}
	return hist.UniqueName(v.name + "_" + tag)
}

// resolve looks sel up in ctx by name, then by cut.
func resolve[T any](ctx *Context[T], sel *Selection) T {
	if sel == nil {
		return ctx.def
	}
	for _, key := range []string{sel.Name(), sel.Cut()} {
		if key == "" {
			continue
		}
		if val, ok := ctx.Match(key); ok {
			return val
		}
	}
	return ctx.def
}

// TitleFor returns the axis title under sel, without units.
func (v *Variable) TitleFor(sel *Selection) string { return resolve(v.titles, sel) }

// AxisTitle returns the axis title under sel with units appended.
func (v *Variable) AxisTitle(sel *Selection) string {
	t := v.TitleFor(sel)
	if v.units != "" {
		t += " [" + v.units + "]"
	}
	return t
}

func (v *Variable) BinningFor(sel *Selection) hist.Binning { return resolve(v.bins, sel) }

// BlindFor returns the blinded region under sel, or nil.
func (v *Variable) BlindFor(sel *Selection) *Blind { return resolve(v.blinds, sel) }

// PlotFor reports whether v is drawn under sel: not when sel's name
// matches a Veto pattern, nor when Only patterns are given and none
// matches. Without a selection every variable is drawn.
func (v *Variable) PlotFor(sel *Selection) bool {
	if sel == nil {
		return true
	}
	name := sel.Name()
	if matchAny(v.veto, name) {
		return false
	}
	return len(v.only) == 0 || matchAny(v.only, name)
}

// Pair is a two-dimensional axis: X against Y.
type Pair struct {
	X, Y *Variable
}

func (p Pair) String() string { return p.X.name + ":" + p.Y.name }
