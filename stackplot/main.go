// Command stackplot draws every variable of a catalogue under every
// selection as a stack of the expected processes with the observed data
// on top, and writes the plots to
// <output>/<era>/<channel>/<var>-<sel>-<era><tag>.<format>.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/decibelcooper/tauplot"
	"github.com/decibelcooper/tauplot/catalog"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/stack"
	"github.com/decibelcooper/tauplot/tree"
)

type options struct {
	output  string
	formats []string
	tag     string
	vars    []string
	sels    []string

	ratio   bool
	logy    bool
	statErr bool
	noStack bool
	legend  string
	cms     string

	name string
	expr string
	bins tauplot.BinningFlag

	yields  bool
	profile bool
	verbose int

	// opener overrides how sample files are opened.
	opener tree.Opener
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "stackplot [flags] <catalog.yaml>",
		Short: "Draw stacked histograms for every variable and selection of a catalogue",
		Example: `  stackplot -o plots mt.yaml
  stackplot --vars 'm_*' --sels os --formats png,root mt.yaml
  stackplot --expr pt_1 --bins 20:0:200 --logy mt.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), o.verbose)
			if o.profile {
				defer profile.Start(profile.ProfilePath(o.output), profile.Quiet).Stop()
			}
			return run(args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "plots", "output directory")
	f.StringSliceVar(&o.formats, "formats", stack.DefaultFormats, "output formats (png, pdf, svg, eps, root, ...)")
	f.StringVar(&o.tag, "tag", "", "suffix appended to every output file name")
	f.StringSliceVar(&o.vars, "vars", nil, "only draw variables matching these glob patterns")
	f.StringSliceVar(&o.sels, "sels", nil, "only draw selections matching these glob patterns")
	f.BoolVar(&o.ratio, "ratio", true, "draw the data/expectation ratio")
	f.BoolVar(&o.logy, "logy", false, "logarithmic y axis for every variable")
	f.BoolVar(&o.statErr, "staterr", true, "draw the statistical uncertainty of the stack")
	f.BoolVar(&o.noStack, "nostack", false, "overlay the expected processes instead of stacking them")
	f.StringVar(&o.legend, "legend", "auto", "legend position, e.g. TR, TL or auto")
	f.StringVar(&o.cms, "cms", "Preliminary", "text next to the CMS label, \"none\" to drop the label")
	f.StringVar(&o.expr, "expr", "", "draw this expression instead of the catalogue variables")
	f.StringVar(&o.name, "name", "", "variable name used for --expr (default: the expression)")
	f.Var(&o.bins, "bins", "binning of --expr, n:lo:hi or comma separated edges")
	f.BoolVar(&o.yields, "yields", false, "log the yield of every sample per selection")
	f.BoolVar(&o.profile, "profile", false, "write a CPU profile to the output directory")
	f.CountVarP(&o.verbose, "verbose", "v", "increase verbosity (-v debug, -vv trace)")
	return cmd
}

func setupLogging(w io.Writer, verbosity int) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly})
	switch {
	case verbosity >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Msgf("stackplot: %+v", err)
		os.Exit(1)
	}
}

// variables returns the variables to draw: the ad-hoc one of --expr, or
// the catalogue's filtered by --vars.
func (o *options) variables(c *catalog.Catalog) ([]*sample.Variable, error) {
	if o.expr != "" {
		if !o.bins.IsSet() {
			return nil, fmt.Errorf("--expr needs --bins: %w", sample.ErrConfig)
		}
		b, err := o.bins.Binning()
		if err != nil {
			return nil, err
		}
		name := o.name
		if name == "" {
			name = o.expr
		}
		opts := []sample.VariableOption{sample.Expr(o.expr)}
		if lo, hi := b.Range(); b.IsUniform() {
			opts = append(opts, sample.Bins(b.NBins(), lo, hi))
		} else {
			opts = append(opts, sample.Edges(b.Edges()...))
		}
		v, err := sample.NewVariable(name, opts...)
		if err != nil {
			return nil, err
		}
		return []*sample.Variable{v}, nil
	}

	all, err := c.Variables()
	if err != nil {
		return nil, err
	}
	var vars []*sample.Variable
	for _, v := range all {
		ok, err := matches(o.vars, v.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			vars = append(vars, v)
		}
	}
	return vars, nil
}

func (o *options) selections(c *catalog.Catalog) ([]*sample.Selection, error) {
	all, err := c.Selections()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return []*sample.Selection{sample.NewSelection("inclusive", "")}, nil
	}
	var sels []*sample.Selection
	for _, s := range all {
		ok, err := matches(o.sels, s.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			sels = append(sels, s)
		}
	}
	return sels, nil
}

// matches reports whether name matches one of the glob patterns. No
// patterns match everything.
func matches(patterns []string, name string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
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
