// Package catalog loads the YAML description of an analysis: the era and
// luminosity, the samples and how they are joined, stitched and split,
// and the variables and selections to plot.
//
// A minimal catalogue:
//
//	era: "2018"
//	lumi: 59.7
//	channel: mt
//	samples:
//	  - {name: data_obs, kind: data, files: [data/*.root]}
//	  - {name: DY, files: [dy.root], xsec: 6077.22, weights: [gen, pu]}
//	variables:
//	  - {name: m_vis, nbins: 40, lo: 0, hi: 200, title: "m_vis", units: GeV}
//	selections:
//	  - {name: os, cut: "q_1*q_2<0"}
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/style"
	"github.com/decibelcooper/tauplot/tree"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "Catalog").Logger()
	return &l
}

// Catalog is a parsed catalogue.
type Catalog struct {
	Era     string  `yaml:"era,omitempty"`
	Lumi    float64 `yaml:"lumi,omitempty"`
	Channel string  `yaml:"channel,omitempty"`
	// Tree is the default tree name of every sample.
	Tree string `yaml:"tree,omitempty"`

	// Weights registers extra weight keys usable by samples.
	Weights Ordered[string] `yaml:"weights,omitempty"`

	Samples    []Sample        `yaml:"samples,omitempty"`
	Join       []Join          `yaml:"join,omitempty"`
	Stitch     []Stitch        `yaml:"stitch,omitempty"`
	Split      []Split         `yaml:"split,omitempty"`
	StackOrder []string        `yaml:"stack_order,omitempty"`
	Methods    []string        `yaml:"methods,omitempty"`
	Variations Ordered[string] `yaml:"variations,omitempty"`

	Vars []Variable  `yaml:"variables,omitempty"`
	Sels []Selection `yaml:"selections,omitempty"`
	// PairNames names 2-D histograms as "x:y" variable pairs.
	PairNames []string `yaml:"pairs,omitempty"`

	// Dir is the directory relative file names are resolved against.
	Dir string `yaml:"-"`
}

// Sample declares one dataset.
type Sample struct {
	Name    string   `yaml:"name,omitempty"`
	Title   string   `yaml:"title,omitempty"`
	Files   []string `yaml:"files,omitempty"`
	Tree    string   `yaml:"tree,omitempty"`
	Xsec    float64  `yaml:"xsec,omitempty"`
	NEvents float64  `yaml:"nevents,omitempty"`
	// Weights are registered weight keys, Weight a free expression.
	Weights  []string `yaml:"weights,omitempty"`
	Weight   string   `yaml:"extraweight,omitempty"`
	Cut      string   `yaml:"cut,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
	Channels []string `yaml:"channels,omitempty"`
	Style    string   `yaml:"style,omitempty"`
}

type Join struct {
	Pattern string `yaml:"pattern,omitempty"`
	Name    string `yaml:"name,omitempty"`
	Title   string `yaml:"title,omitempty"`
}

type Stitch struct {
	Pattern   string `yaml:"pattern,omitempty"`
	Inclusive string `yaml:"inclusive,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Title     string `yaml:"title,omitempty"`
	SliceVar  string `yaml:"slice_var,omitempty"`
}

type Split struct {
	Sample string        `yaml:"sample,omitempty"`
	Parts  []sample.Part `yaml:"parts,omitempty"`
}

// Load reads the catalogue at path. Relative sample files are resolved
// against the directory of path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %w", sample.ErrIO, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: %q: %w", path, err)
	}
	c.Dir = filepath.Dir(path)
	logger().Debug().Str("file", path).Int("samples", len(c.Samples)).Int("variables", len(c.Vars)).
		Msg("Catalog: loaded")
	return c, nil
}

// Parse decodes a catalogue. Unknown fields are errors.
func Parse(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %w", sample.ErrIO, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: %w: %w", sample.ErrConfig, err)
	}
	if c.Lumi < 0 {
		return nil, fmt.Errorf("catalog: negative luminosity %g: %w", c.Lumi, sample.ErrConfig)
	}
	return &c, nil
}

// Option configures Catalog.SampleSet.
type Option func(*buildConfig)

type buildConfig struct {
	opener tree.Opener
	styles style.Provider
}

// Opener sets how sample files are opened. ROOT files are the default.
func Opener(op tree.Opener) Option { return func(c *buildConfig) { c.opener = op } }

// Styles sets the style provider of every sample.
func Styles(p style.Provider) Option { return func(c *buildConfig) { c.styles = p } }

// SampleSet builds the samples and applies the join, stitch and split
// directives in that order.
func (c *Catalog) SampleSet(opts ...Option) (*sample.SampleSet, error) {
	cfg := buildConfig{opener: tree.RootOpener{}, styles: style.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, kv := range c.Weights {
		sample.RegisterWeight(kv.Key, kv.Value)
	}

	ss, err := sample.NewSampleSet(c.Lumi)
	if err != nil {
		return nil, err
	}
	ss.SetChannel(c.Channel)
	ss.SetStyles(cfg.styles)
	for _, sd := range c.Samples {
		s, err := c.sample(sd, cfg)
		if err != nil {
			return nil, err
		}
		if err := ss.Add(s); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	for _, j := range c.Join {
		if _, err := ss.Join(j.Pattern, j.Name, j.Title); err != nil {
			return nil, fmt.Errorf("catalog: join %q: %w", j.Name, err)
		}
	}
	for _, st := range c.Stitch {
		var sopts []sample.StitchOption
		if st.SliceVar != "" {
			sopts = append(sopts, sample.SliceVar(st.SliceVar))
		}
		if _, err := ss.Stitch(st.Pattern, st.Inclusive, st.Name, st.Title, sopts...); err != nil {
			return nil, fmt.Errorf("catalog: stitch %q: %w", st.Name, err)
		}
	}
	for _, sp := range c.Split {
		if _, err := ss.Split(sp.Sample, sp.Parts...); err != nil {
			return nil, fmt.Errorf("catalog: split %q: %w", sp.Sample, err)
		}
	}

	ss.SetStackOrder(c.StackOrder...)
	for _, m := range c.Methods {
		if err := ss.Use(m); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	for _, kv := range c.Variations {
		ss.AddVariation(kv.Key, kv.Value)
	}
	return ss, nil
}

func (c *Catalog) sample(sd Sample, cfg buildConfig) (*sample.Sample, error) {
	files, err := c.files(sd.Files)
	if err != nil {
		return nil, fmt.Errorf("catalog: sample %q: %w", sd.Name, err)
	}
	opts := []sample.SampleOption{sample.Opener(cfg.opener), sample.Styles(cfg.styles)}
	treename := sd.Tree
	if treename == "" {
		treename = c.Tree
	}
	if treename != "" {
		opts = append(opts, sample.TreeName(treename))
	}
	if sd.NEvents != 0 {
		opts = append(opts, sample.NEvents(sd.NEvents))
	}
	if len(sd.Weights) > 0 {
		opts = append(opts, sample.Weights(sd.Weights...))
	}
	if sd.Weight != "" {
		opts = append(opts, sample.Weight(sd.Weight))
	}
	if sd.Cut != "" {
		opts = append(opts, sample.Cut(sd.Cut))
	}
	if len(sd.Channels) > 0 {
		opts = append(opts, sample.Channels(sd.Channels...))
	}
	if sd.Style != "" {
		opts = append(opts, sample.StyleToken(sd.Style))
	}

	switch strings.ToLower(sd.Kind) {
	case "", "exp", "background":
		return sample.NewSample(sd.Name, sd.Title, files, sd.Xsec, opts...)
	case "data":
		return sample.NewData(sd.Name, sd.Title, files, opts...)
	case "signal":
		return sample.NewSample(sd.Name, sd.Title, files, sd.Xsec, append(opts, sample.AsSignal())...)
	case "expsignal":
		return sample.NewSample(sd.Name, sd.Title, files, sd.Xsec, append(opts, sample.AsExpSignal())...)
	}
	return nil, fmt.Errorf("catalog: sample %q has unknown kind %q: %w", sd.Name, sd.Kind, sample.ErrConfig)
}

// files resolves relative names against the catalogue directory and
// expands shell patterns.
func (c *Catalog) files(names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		if c.Dir != "" && !filepath.IsAbs(name) {
			name = filepath.Join(c.Dir, name)
		}
		if !strings.ContainsAny(name, "*?[") {
			out = append(out, name)
			continue
		}
		matches, err := filepath.Glob(name)
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w: %w", name, sample.ErrConfig, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q: %w", name, sample.ErrIO)
		}
		out = append(out, matches...)
	}
	return out, nil
}
