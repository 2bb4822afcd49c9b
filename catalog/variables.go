package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/decibelcooper/tauplot/sample"
	"gopkg.in/yaml.v3"
)

// Ordered is a YAML mapping that keeps the order of its keys. Override
// keys are tried in that order when they are equally specific.
type Ordered[T any] []KeyValue[T]

type KeyValue[T any] struct {
	Key   string
	Value T
}

func (o *Ordered[T]) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v T
		if err := n.Content[i+1].Decode(&v); err != nil {
			return err
		}
		*o = append(*o, KeyValue[T]{Key: n.Content[i].Value, Value: v})
	}
	return nil
}

func (o Ordered[T]) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range o {
		v := &yaml.Node{}
		if err := v.Encode(kv.Value); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Key}, v)
	}
	return n, nil
}

// Binning is either nbins, lo and hi or a list of edges.
type Binning struct {
	NBins int       `yaml:"nbins,omitempty"`
	Lo    float64   `yaml:"lo,omitempty"`
	Hi    float64   `yaml:"hi,omitempty"`
	Edges []float64 `yaml:"edges,omitempty"`
}

func (b Binning) empty() bool { return b.NBins == 0 && len(b.Edges) == 0 }

// Blind is written either as [lo, hi] or as an expression such as
// "m_vis>100". "none" unblinds.
type Blind struct {
	b *sample.Blind
}

func (b *Blind) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if strings.EqualFold(n.Value, "none") {
			b.b = nil
			return nil
		}
		b.b = &sample.Blind{Expr: n.Value}
	case yaml.SequenceNode:
		var r []float64
		if err := n.Decode(&r); err != nil {
			return err
		}
		if len(r) != 2 {
			return fmt.Errorf("line %d: blinding range needs two values, got %d", n.Line, len(r))
		}
		b.b = &sample.Blind{Lo: r[0], Hi: r[1]}
	default:
		return fmt.Errorf("line %d: expected a range or an expression", n.Line)
	}
	return nil
}

func (b Blind) MarshalYAML() (any, error) {
	switch {
	case b.b == nil:
		return "none", nil
	case b.b.Expr != "":
		return b.b.Expr, nil
	}
	return []float64{b.b.Lo, b.b.Hi}, nil
}

// NewBlind wraps a blinded region for use in a Variable.
func NewBlind(b *sample.Blind) *Blind { return &Blind{b: b} }

// Variable declares one histogram axis.
type Variable struct {
	Binning `yaml:",inline"`

	Name  string   `yaml:"name,omitempty"`
	Expr  string   `yaml:"expr,omitempty"`
	Title string   `yaml:"title,omitempty"`
	Units string   `yaml:"units,omitempty"`
	LogX  bool     `yaml:"logx,omitempty"`
	LogY  bool     `yaml:"logy,omitempty"`
	Only  []string `yaml:"only,omitempty"`
	Veto  []string `yaml:"veto,omitempty"`
	Blind *Blind   `yaml:"blind,omitempty"`

	CBins  Ordered[Binning] `yaml:"cbins,omitempty"`
	CTitle Ordered[string]  `yaml:"ctitle,omitempty"`
	CBlind Ordered[Blind]   `yaml:"cblind,omitempty"`

	MergeFlows  bool `yaml:"merge_flows,omitempty"`
	AllowNarrow bool `yaml:"allow_narrow,omitempty"`
}

func (vd Variable) options() []sample.VariableOption {
	var opts []sample.VariableOption
	if vd.Expr != "" {
		opts = append(opts, sample.Expr(vd.Expr))
	}
	if len(vd.Edges) > 0 {
		opts = append(opts, sample.Edges(vd.Edges...))
	} else if vd.NBins != 0 {
		opts = append(opts, sample.Bins(vd.NBins, vd.Lo, vd.Hi))
	}
	if vd.Title != "" {
		opts = append(opts, sample.Title(vd.Title))
	}
	if vd.Units != "" {
		opts = append(opts, sample.Units(vd.Units))
	}
	if vd.LogX {
		opts = append(opts, sample.LogX())
	}
	if vd.LogY {
		opts = append(opts, sample.LogY())
	}
	if len(vd.Only) > 0 {
		opts = append(opts, sample.Only(vd.Only...))
	}
	if len(vd.Veto) > 0 {
		opts = append(opts, sample.Veto(vd.Veto...))
	}
	if vd.Blind != nil && vd.Blind.b != nil {
		if b := vd.Blind.b; b.Expr != "" {
			opts = append(opts, sample.BlindExpr(b.Expr))
		} else {
			opts = append(opts, sample.BlindRange(b.Lo, b.Hi))
		}
	}
	for _, kv := range vd.CBins {
		if len(kv.Value.Edges) > 0 {
			opts = append(opts, sample.CBins(kv.Key, kv.Value.Edges...))
		} else {
			opts = append(opts, sample.CUniform(kv.Key, kv.Value.NBins, kv.Value.Lo, kv.Value.Hi))
		}
	}
	for _, kv := range vd.CTitle {
		opts = append(opts, sample.CTitle(kv.Key, kv.Value))
	}
	for _, kv := range vd.CBlind {
		opts = append(opts, sample.CBlind(kv.Key, kv.Value.b))
	}
	if vd.MergeFlows {
		opts = append(opts, sample.MergeFlows())
	}
	if vd.AllowNarrow {
		opts = append(opts, sample.AllowNarrow())
	}
	return opts
}

// Variables builds every variable. All declaration errors are reported
// together.
func (c *Catalog) Variables() ([]*sample.Variable, error) {
	var (
		vars []*sample.Variable
		errs []error
		seen = map[string]bool{}
	)
	for _, vd := range c.Vars {
		if seen[vd.Name] {
			errs = append(errs, fmt.Errorf("catalog: duplicate variable %q: %w", vd.Name, sample.ErrConfig))
			continue
		}
		seen[vd.Name] = true
		if vd.Binning.empty() {
			errs = append(errs, fmt.Errorf("catalog: variable %q has no binning: %w", vd.Name, sample.ErrConfig))
			continue
		}
		v, err := sample.NewVariable(vd.Name, vd.options()...)
		if err != nil {
			errs = append(errs, fmt.Errorf("catalog: %w", err))
			continue
		}
		vars = append(vars, v)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return vars, nil
}

// Selection declares one named cut.
type Selection struct {
	Name      string `yaml:"name,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Cut       string `yaml:"cut,omitempty"`
	Weight    string `yaml:"weight,omitempty"`
	Tag       string `yaml:"tag,omitempty"`
	Unblinded bool   `yaml:"unblinded,omitempty"`
}

// Selections builds every selection.
func (c *Catalog) Selections() ([]*sample.Selection, error) {
	var sels []*sample.Selection
	seen := map[string]bool{}
	for _, sd := range c.Sels {
		if sd.Name == "" {
			return nil, fmt.Errorf("catalog: selection without name: %w", sample.ErrConfig)
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("catalog: duplicate selection %q: %w", sd.Name, sample.ErrConfig)
		}
		seen[sd.Name] = true
		var opts []sample.SelectionOption
		if sd.Title != "" {
			opts = append(opts, sample.Labeled(sd.Title))
		}
		if sd.Weight != "" {
			opts = append(opts, sample.Weighted(sd.Weight))
		}
		if sd.Tag != "" {
			opts = append(opts, sample.Tagged(sd.Tag))
		}
		if sd.Unblinded {
			opts = append(opts, sample.Unblinded())
		}
		sels = append(sels, sample.NewSelection(sd.Name, sd.Cut, opts...))
	}
	return sels, nil
}

// Pairs resolves the 2-D pairs against vars.
func (c *Catalog) Pairs(vars []*sample.Variable) ([]sample.Pair, error) {
	byName := make(map[string]*sample.Variable, len(vars))
	for _, v := range vars {
		byName[v.Name()] = v
	}
	var pairs []sample.Pair
	for _, p := range c.PairNames {
		xn, yn, ok := strings.Cut(p, ":")
		x, y := byName[strings.TrimSpace(xn)], byName[strings.TrimSpace(yn)]
		if !ok || x == nil || y == nil {
			return nil, fmt.Errorf("catalog: pair %q does not name two variables: %w", p, sample.ErrConfig)
		}
		pairs = append(pairs, sample.Pair{X: x, Y: y})
	}
	return pairs, nil
}
