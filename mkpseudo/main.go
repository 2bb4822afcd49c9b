// Command mkpseudo generates a small pseudo analysis: one ROOT tree per
// simulated process, a pseudo-data tree drawn from the same shapes with
// Poisson-fluctuated yields, and the catalogue describing them, ready for
// stackplot.
package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/decibelcooper/tauplot/catalog"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/tree"
)

var branches = []string{"m_vis", "pt_1", "pt_2", "q_1", "q_2", "njets", "idisoweight_2"}

// process describes the shape of one simulated process in the mu tau_h
// final state.
type process struct {
	name   string
	title  string
	kind   string
	yield  float64 // expected events at the nominal luminosity
	mass   float64
	width  float64
	ptRate float64
	os     float64 // opposite-sign probability
	jets   float64 // mean jet multiplicity
}

var processes = []process{
	{name: "DY", title: "Z -> tau tau", yield: 2000, mass: 70, width: 15, ptRate: 1. / 20, os: 0.95, jets: 0.5},
	{name: "TT", title: "t tbar", yield: 600, mass: 110, width: 45, ptRate: 1. / 40, os: 0.75, jets: 2.5},
	{name: "W", title: "W + jets", yield: 800, mass: 90, width: 35, ptRate: 1. / 30, os: 0.7, jets: 1},
	{name: "ggH125", kind: "signal", yield: 40, mass: 105, width: 15, ptRate: 1. / 30, os: 0.95, jets: 0.8},
}

type options struct {
	output  string
	era     string
	lumi    float64
	events  int
	seed    uint64
	verbose int
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "mkpseudo [flags]",
		Short:         "Generate pseudo samples and their catalogue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly})
			if o.verbose > 0 {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return run(o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "pseudo", "output directory")
	f.StringVar(&o.era, "era", "2018", "era written to the catalogue")
	f.Float64Var(&o.lumi, "lumi", 59.7, "integrated luminosity in 1/fb")
	f.IntVarP(&o.events, "events", "n", 5000, "simulated events per process")
	f.Uint64Var(&o.seed, "seed", 1, "random seed")
	f.CountVarP(&o.verbose, "verbose", "v", "increase verbosity")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Msgf("mkpseudo: %+v", err)
		os.Exit(1)
	}
}

// generator draws events of one process.
type generator struct {
	mass, pt, pt2 distuv.Rander
	sign, os      distuv.Bernoulli
	jets          distuv.Poisson
	iso           distuv.Normal
}

func newGenerator(p process, src rand.Source) *generator {
	return &generator{
		mass: distuv.Normal{Mu: p.mass, Sigma: p.width, Src: src},
		pt:   distuv.Exponential{Rate: p.ptRate, Src: src},
		pt2:  distuv.Exponential{Rate: 1. / 25, Src: src},
		sign: distuv.Bernoulli{P: 0.5, Src: src},
		os:   distuv.Bernoulli{P: p.os, Src: src},
		jets: distuv.Poisson{Lambda: p.jets, Src: src},
		iso:  distuv.Normal{Mu: 0.95, Sigma: 0.02, Src: src},
	}
}

func (g *generator) event() map[string]float64 {
	q1 := 1.0
	if g.sign.Rand() == 0 {
		q1 = -1
	}
	q2 := q1
	if g.os.Rand() == 1 {
		q2 = -q1
	}
	return map[string]float64{
		"m_vis":         math.Max(g.mass.Rand(), 1),
		"pt_1":          20 + g.pt.Rand(),
		"pt_2":          30 + g.pt2.Rand(),
		"q_1":           q1,
		"q_2":           q2,
		"njets":         g.jets.Rand(),
		"idisoweight_2": g.iso.Rand(),
	}
}

func run(o *options) error {
	if o.events <= 0 || o.lumi <= 0 {
		return fmt.Errorf("mkpseudo: --events and --lumi must be positive: %w", sample.ErrConfig)
	}
	if err := os.MkdirAll(o.output, 0o755); err != nil {
		return fmt.Errorf("mkpseudo: %w: %w", sample.ErrIO, err)
	}
	src := rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)

	data := tree.NewMemory("Events", branches...)
	c := newCatalog(o)
	for _, p := range processes {
		g := newGenerator(p, src)
		mc := tree.NewMemory("Events", branches...)
		for range o.events {
			if err := mc.Fill(g.event()); err != nil {
				return err
			}
		}
		file := p.name + ".root"
		if err := tree.WriteROOT(filepath.Join(o.output, file), mc); err != nil {
			return err
		}
		// Cross sections in pb give the wanted yield at o.lumi 1/fb; the
		// mean isolation weight is folded in.
		c.Samples = append(c.Samples, catalog.Sample{
			Name:    p.name,
			Title:   p.title,
			Kind:    p.kind,
			Files:   []string{file},
			Xsec:    p.yield / (o.lumi * 1000 * 0.95),
			NEvents: float64(o.events),
			Weights: []string{"tauid"},
		})
		if p.kind == "signal" {
			continue
		}

		n := int(distuv.Poisson{Lambda: p.yield, Src: src}.Rand())
		for range n {
			if err := data.Fill(g.event()); err != nil {
				return err
			}
		}
		log.Debug().Str("process", p.name).Int("data", n).Msg("mkpseudo: generated")
	}
	if err := tree.WriteROOT(filepath.Join(o.output, "data.root"), data); err != nil {
		return err
	}
	c.Samples = append([]catalog.Sample{{Name: "data_obs", Kind: "data", Files: []string{"data.root"}}}, c.Samples...)

	path := filepath.Join(o.output, "mt.yaml")
	if err := writeCatalog(path, c); err != nil {
		return err
	}
	log.Info().Str("catalog", path).Int("samples", len(c.Samples)).Msg("mkpseudo: done")
	return nil
}

func newCatalog(o *options) *catalog.Catalog {
	return &catalog.Catalog{
		Era:        o.era,
		Lumi:       o.lumi,
		Channel:    "mt",
		Tree:       "Events",
		Weights:    catalog.Ordered[string]{{Key: "tauid", Value: "idisoweight_2"}},
		StackOrder: []string{"TT", "W", "DY"},
		Variations: catalog.Ordered[string]{
			{Key: "tauidUp", Value: "1.05"},
			{Key: "tauidDown", Value: "0.95"},
		},
		Vars: []catalog.Variable{
			{
				Name: "m_vis", Title: "m_vis", Units: "GeV",
				Binning: catalog.Binning{NBins: 30, Lo: 0, Hi: 300},
				Blind:   catalog.NewBlind(&sample.Blind{Lo: 90, Hi: 130}),
				CBins: catalog.Ordered[catalog.Binning]{
					{Key: "_1jet$", Value: catalog.Binning{Edges: []float64{0, 40, 60, 80, 100, 120, 150, 200, 300}}},
				},
			},
			{
				Name: "pt_1", Title: "pt_mu", Units: "GeV",
				Binning: catalog.Binning{Edges: []float64{20, 30, 40, 50, 70, 100, 150, 250}},
				LogY:    true, MergeFlows: true,
			},
			{
				Name: "njets", Title: "N_{jets}",
				Binning: catalog.Binning{NBins: 6, Lo: -0.5, Hi: 5.5},
				Veto:    []string{"*_1jet"},
			},
		},
		Sels: []catalog.Selection{
			{Name: "os", Title: "opposite sign", Cut: "q_1*q_2<0"},
			{Name: "ss", Title: "same sign", Cut: "q_1*q_2>0", Unblinded: true},
			{Name: "os_1jet", Title: "opposite sign, >= 1 jet", Cut: "q_1*q_2<0 && njets>=1"},
		},
		PairNames: []string{"m_vis:pt_1"},
	}
}

func writeCatalog(path string, c *catalog.Catalog) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mkpseudo: %w: %w", sample.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("mkpseudo: %w: %w", sample.ErrIO, cerr)
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("mkpseudo: %w: %w", sample.ErrIO, err)
	}
	return enc.Close()
}
