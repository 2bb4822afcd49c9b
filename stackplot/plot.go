package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/decibelcooper/tauplot/catalog"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/stack"
)

// channels holds the legend headers of the tau-pair final states.
var channels = map[string]string{
	"mt": "mu tau_h",
	"et": "e tau_h",
	"tt": "tau_h tau_h",
	"em": "e mu",
	"mm": "mu mu",
	"ee": "e e",
}

func run(path string, o *options) error {
	c, err := catalog.Load(path)
	if err != nil {
		return err
	}
	var copts []catalog.Option
	if o.opener != nil {
		copts = append(copts, catalog.Opener(o.opener))
	}
	ss, err := c.SampleSet(copts...)
	if err != nil {
		return err
	}
	defer ss.Close()

	vars, err := o.variables(c)
	if err != nil {
		return err
	}
	sels, err := o.selections(c)
	if err != nil {
		return err
	}
	var pairs []sample.Pair
	if o.expr == "" {
		if pairs, err = c.Pairs(vars); err != nil {
			return err
		}
	}
	if len(vars) == 0 {
		log.Warn().Msg("stackplot: no variable to draw")
		return nil
	}

	var failed []error
	for _, sel := range sels {
		if o.yields {
			if err := logYields(ss, sel); err != nil {
				return err
			}
		}
		results, err := ss.GetHists(vars, sel)
		if err != nil {
			return fmt.Errorf("selection %q: %w", sel.Name(), err)
		}
		for _, r := range results {
			if err := o.plot(c, r); err != nil {
				failed = append(failed, err)
				log.Error().Err(err).Str("variable", r.Var.Name()).Str("selection", sel.Name()).Msg("stackplot: plot failed")
			}
		}
		if len(pairs) == 0 {
			continue
		}
		results2D, err := ss.GetHists2D(pairs, sel)
		if err != nil {
			return fmt.Errorf("selection %q: %w", sel.Name(), err)
		}
		for _, r := range results2D {
			if err := o.plot2D(c, r); err != nil {
				failed = append(failed, err)
			}
		}
	}
	return errors.Join(failed...)
}

func (o *options) plotOptions(c *catalog.Catalog) []stack.Option {
	var opts []stack.Option
	if o.cms != "none" {
		opts = append(opts, stack.CMS(o.cms))
	}
	if c.Era != "" {
		opts = append(opts, stack.Era(c.Era))
	} else if c.Lumi > 0 {
		opts = append(opts, stack.Lumi(c.Lumi, 13))
	}
	return opts
}

func (o *options) plot(c *catalog.Catalog, r sample.Result) error {
	opts := append(o.plotOptions(c), stack.NoClone())
	if r.Var.LogX() {
		opts = append(opts, stack.LogX())
	}
	p := stack.New(r.Var.AxisTitle(r.Sel), r.Hists, opts...)
	defer p.Close()

	err := p.Draw(stack.DrawOptions{
		Ratio:   o.ratio && r.Hists.Data != nil,
		LogY:    o.logy || r.Var.LogY(),
		StatErr: o.statErr,
		NoStack: o.noStack,
	})
	if err != nil {
		return err
	}
	if err := p.DrawLegend(stack.LegendOptions{Pos: o.legend, Header: channels[c.Channel]}); err != nil {
		return err
	}
	if t := r.Sel.Title(); t != "" {
		if err := p.DrawCornerText(t); err != nil {
			return err
		}
	}
	base := stack.OutputPath(o.output, c.Era, c.Channel, r.Var.Name(), r.Sel.Filename(), o.tag)
	return p.SaveAs(base, o.formats...)
}

func (o *options) plot2D(c *catalog.Catalog, r sample.Result2D) error {
	sum, err := r.Hists.ExpSum()
	if err != nil || sum == nil {
		return err
	}
	p := stack.NewPlot2D(r.Pair.X.AxisTitle(r.Sel), r.Pair.Y.AxisTitle(r.Sel), sum, o.plotOptions(c)...)
	defer p.Close()
	if t := r.Sel.Title(); t != "" {
		if err := p.DrawCornerText(t); err != nil {
			return err
		}
	}
	name := r.Pair.X.Name() + "_vs_" + r.Pair.Y.Name()
	return p.SaveAs(stack.OutputPath(o.output, c.Era, c.Channel, name, r.Sel.Filename(), o.tag), o.formats...)
}

func logYields(ss *sample.SampleSet, sel *sample.Selection) error {
	ys, err := ss.Yields(sel)
	if err != nil {
		return fmt.Errorf("yields of %q: %w", sel.Name(), err)
	}
	var (
		b   strings.Builder
		exp float64
	)
	for _, y := range ys {
		fmt.Fprintf(&b, "\n  %-20s %-10v %12.2f +- %.2f", y.Name, y.Kind, y.Yield, y.Error)
		if y.Kind.Stacked() {
			exp += y.Yield
		}
	}
	fmt.Fprintf(&b, "\n  %-20s %-10s %12.2f", "total", "", exp)
	log.Info().Str("selection", sel.Name()).Msg("stackplot: yields" + b.String())
	return nil
}
