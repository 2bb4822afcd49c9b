// Package stack draws stacked background predictions with overlaid
// signals and observed data, comparisons of histogram shapes, and 2-D
// heat maps, and writes them to image and ROOT files.
//
// Coordinates of legends and free text are fractions of the axes area:
// (0, 0) is the bottom-left corner of the data area and (1, 1) its
// top-right corner.
//
// A Plot never fails on its content. Empty inputs, all-zero stacks and
// legends that do not fit are logged as warnings and noted in a corner of
// the canvas, so that a batch of plots always completes.
package stack

import (
	"errors"
	"fmt"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot/vg"
)

var (
	// ErrClosed is returned by every method of a closed Plot.
	ErrClosed = errors.New("stack: plot closed")

	// ErrConfig reports invalid drawing, legend or output options.
	ErrConfig = errors.New("stack: bad option")
)

// logger returns the component logger, derived from log.Logger at call time.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "Plot").Logger()
	return &l
}

type mode int

const (
	stacked mode = iota
	comparison
)

// Plot is one canvas: a main pad with the histograms, optionally a ratio
// pad below it, a legend, header and free text.
type Plot struct {
	mode   mode
	xtitle string
	ytitle string
	hs     *hist.HistSet
	comp   []*hist.H1

	styles style.Provider
	width  vg.Length
	height vg.Length
	cms    string
	lumi   string
	logx   bool

	drawn    bool
	opts     DrawOptions
	sum      *hist.H1
	ylo, yhi float64
	xlo, xhi float64
	tops     []span

	legend *legend
	texts  []textItem
	warns  []string

	closed bool
}

// span is the highest point drawn over one bin, in data coordinates.
type span struct {
	lo, hi, top float64
}

// Option configures a Plot.
type Option func(*config)

type config struct {
	clone  bool
	styles style.Provider
	width  vg.Length
	height vg.Length
	ytitle string
	cms    string
	lumi   string
	logx   bool
}

// NoClone makes the Plot take ownership of the histograms it is given
// instead of copying them.
func NoClone() Option { return func(c *config) { c.clone = false } }

// Styles sets the style provider used for histograms without a style.
func Styles(p style.Provider) Option { return func(c *config) { c.styles = p } }

// Size sets the canvas size.
func Size(w, h vg.Length) Option {
	return func(c *config) { c.width, c.height = w, h }
}

// YTitle sets the y axis title. The default is "Events".
func YTitle(title string) Option { return func(c *config) { c.ytitle = title } }

// CMS sets the left-hand header, e.g. CMS("Preliminary").
func CMS(extra string) Option { return func(c *config) { c.cms = style.CMSText(extra) } }

// Lumi sets the right-hand header from an integrated luminosity in fb^-1
// and a centre-of-mass energy in TeV.
func Lumi(lumi, energy float64) Option {
	return func(c *config) { c.lumi = style.LumiText(lumi, energy) }
}

// Era sets the right-hand header from a known data-taking period.
func Era(name string) Option {
	return func(c *config) {
		if era, ok := style.Eras[name]; ok {
			c.lumi = style.LumiText(era.Lumi, era.Energy)
		} else {
			c.lumi = name
		}
	}
}

// LogX draws the x axis on a logarithmic scale.
func LogX() Option { return func(c *config) { c.logx = true } }

func newConfig(opts []Option) config {
	c := config{
		clone:  true,
		styles: style.Default(),
		width:  6 * vg.Inch,
		height: 5 * vg.Inch,
		ytitle: "Events",
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c config) apply(p *Plot) {
	p.styles = c.styles
	p.width, p.height = c.width, c.height
	p.ytitle = c.ytitle
	p.cms, p.lumi = c.cms, c.lumi
	p.logx = c.logx
}

// New returns a plot stacking hs.Exp, overlaying hs.Sig and showing
// hs.Data as markers. A nil set gives an empty plot.
func New(xtitle string, hs *hist.HistSet, opts ...Option) *Plot {
	c := newConfig(opts)
	p := &Plot{mode: stacked, xtitle: xtitle}
	c.apply(p)
	switch {
	case hs == nil:
		p.hs = &hist.HistSet{}
	case c.clone:
		p.hs = hs.Clone()
	default:
		p.hs = hs
	}
	p.fillStyles(p.hs.All()...)
	return p
}

// NewComparison returns a plot overlaying the shapes of hs. In the ratio
// pad every histogram is divided by the first one.
func NewComparison(xtitle string, hs []*hist.H1, opts ...Option) *Plot {
	c := newConfig(opts)
	p := &Plot{mode: comparison, xtitle: xtitle}
	c.apply(p)
	for i, h := range hs {
		if h == nil {
			continue
		}
		if c.clone {
			h = h.Clone()
		}
		if h.Style.Fill == nil && h.Style.Line == nil {
			h.Style = style.Lined(style.SignalPalette[i%len(style.SignalPalette)])
		}
		switch {
		case h.Label != "":
		case h.Process != "":
			h.Label = c.styles.Label(h.Process)
		default:
			h.Label = h.Name
		}
		p.comp = append(p.comp, h)
	}
	return p
}

func (p *Plot) fillStyles(hs ...*hist.H1) {
	for _, h := range hs {
		token := h.Process
		if token == "" {
			token = h.Name
		}
		if h.Style.Fill == nil && h.Style.Line == nil {
			h.Style = p.styles.Attr(token)
		}
		if h.Label == "" {
			h.Label = p.styles.Label(token)
		}
	}
}

// Hists returns every histogram held by the plot.
func (p *Plot) Hists() []*hist.H1 {
	if p.mode == comparison {
		return p.comp
	}
	return p.hs.All()
}

// warn logs a recoverable plot-time problem and notes it on the canvas.
func (p *Plot) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger().Warn().Str("xtitle", p.xtitle).Msg("Plot: " + msg)
	p.warns = append(p.warns, msg)
}

// Warnings returns the plot-time warnings raised so far.
func (p *Plot) Warnings() []string { return append([]string(nil), p.warns...) }

// Close releases the histograms held by the plot. Closing twice is a
// no-op.
func (p *Plot) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.hs, p.comp, p.sum = nil, nil, nil
	p.legend, p.texts, p.tops = nil, nil, nil
	return nil
}
