// Command restyle reads back the histograms stored by stackplot in a ROOT
// file and redraws them, either overlaid for a quick shape comparison or
// stacked again with different options.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/tauplot"
	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/stack"
	"github.com/decibelcooper/tauplot/style"
)

type options struct {
	output  string
	title   string
	xtitle  string
	hists   []string
	skip    []string
	signals []string
	stack   bool
	norm    bool
	logy    bool
	verbose int
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "restyle [flags] <histograms.root>",
		Short:         "Redraw histograms stored in a ROOT file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly})
			if o.verbose > 0 {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return run(args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "out.png", "output file")
	f.StringVar(&o.title, "title", "", "plot title")
	f.StringVar(&o.xtitle, "xtitle", "", "x axis title")
	f.StringSliceVar(&o.hists, "hists", nil, "only draw histograms matching these glob patterns")
	f.StringSliceVar(&o.skip, "skip", []string{"total", "*Up", "*Down"}, "skip histograms matching these glob patterns")
	f.StringSliceVar(&o.signals, "signals", []string{"ggH*", "VBF*", "qqH*"}, "histograms drawn as signals with --stack")
	f.BoolVar(&o.stack, "stack", false, "stack the expected processes and draw data on top")
	f.BoolVar(&o.norm, "norm", false, "normalise every histogram to unit area in the overlay")
	f.BoolVar(&o.logy, "logy", false, "logarithmic y axis with --stack")
	f.CountVarP(&o.verbose, "verbose", "v", "increase verbosity")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Msgf("restyle: %+v", err)
		os.Exit(1)
	}
}

func run(path string, o *options) error {
	all, err := hist.ReadFile(path)
	if err != nil {
		return err
	}
	var hs []*hist.H1
	for _, h := range all {
		keep, err := matches(o.hists, h.Name, true)
		if err != nil {
			return err
		}
		drop, err := matches(o.skip, h.Name, false)
		if err != nil {
			return err
		}
		if keep && !drop {
			hs = append(hs, h)
		}
	}
	if len(hs) == 0 {
		return fmt.Errorf("restyle: no histogram to draw in %q: %w", path, sample.ErrConfig)
	}
	log.Debug().Int("histograms", len(hs)).Msg("restyle: read " + path)

	if o.stack {
		return o.restack(hs)
	}
	return o.overlay(hs)
}

func matches(patterns []string, name string, empty bool) (bool, error) {
	if len(patterns) == 0 {
		return empty, nil
	}
	for _, p := range patterns {
		m, err := sample.Glob(p)
		if err != nil {
			return false, err
		}
		if m.Match(name) {
			return true, nil
		}
	}
	return false, nil
}

// overlay draws the shapes of hs on top of each other.
func (o *options) overlay(hs []*hist.H1) error {
	p := hplot.New()
	p.Title.Text = o.title
	p.X.Label.Text = o.xtitle
	p.X.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5, Edges: hs[0].Binning().Edges()}
	p.Y.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5}
	p.Add(plotter.NewGrid())

	styles := style.Default()
	for i, h := range hs {
		hh := h.HBook()
		if in := hh.Integral(); o.norm && in != 0 {
			hh.Scale(1 / in)
		}
		ph := hplot.NewH1D(hh)
		ph.Infos.Style = hplot.HInfoNone
		ph.LineStyle.Width = vg.Points(1.5)
		ph.LineStyle.Color = style.SignalPalette[i%len(style.SignalPalette)]
		if a := styles.Attr(h.Name); a.Line != nil && h.Name != "data_obs" {
			ph.LineStyle.Color = a.Line
			ph.LineStyle.Dashes = a.Dashes
		}
		p.Add(ph)
		p.Legend.Add(styles.Label(h.Name), ph)
	}
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, o.output); err != nil {
		return fmt.Errorf("restyle: %w: %w", hist.ErrIO, err)
	}
	log.Info().Str("file", o.output).Msg("restyle: saved")
	return nil
}

// restack rebuilds the histogram set from the stored names: data_obs is
// the data, names matching --signals are signals and everything else is
// stacked in file order.
func (o *options) restack(hs []*hist.H1) error {
	set := &hist.HistSet{}
	for _, h := range hs {
		sig, err := matches(o.signals, h.Name, false)
		if err != nil {
			return err
		}
		switch {
		case h.Name == "data_obs":
			set.Data = h
			continue
		case sig:
			set.Sig = append(set.Sig, h)
		default:
			set.Exp = append(set.Exp, h)
		}
		h.Process = h.Name
	}

	p := stack.New(o.xtitle, set, stack.NoClone(), stack.CMS("Preliminary"))
	defer p.Close()
	err := p.Draw(stack.DrawOptions{Ratio: set.Data != nil, LogY: o.logy, StatErr: len(set.Exp) > 0})
	if err != nil {
		return err
	}
	if err := p.DrawLegend(stack.LegendOptions{}); err != nil {
		return err
	}
	if o.title != "" {
		if err := p.DrawCornerText(o.title); err != nil {
			return err
		}
	}
	return p.SaveAs(o.output)
}
