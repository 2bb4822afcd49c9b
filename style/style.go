// Package style holds the colour, marker and label conventions of the
// plotting core.
//
// The package-level registry returned by Default is built once and is
// read-only afterwards. Plots and samples take a Provider so that tests can
// inject their own conventions.
package style

import (
	"hash/fnv"
	"image/color"
	"regexp"
	"sync"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Attr is the drawing style attached to a histogram.
type Attr struct {
	Fill       color.Color
	Line       color.Color
	LineWidth  vg.Length
	Dashes     []vg.Length
	Marker     draw.GlyphDrawer
	MarkerSize vg.Length
}

// LineStyle returns the outline style.
func (a Attr) LineStyle() draw.LineStyle {
	return draw.LineStyle{Color: a.Line, Width: a.LineWidth, Dashes: a.Dashes}
}

// GlyphStyle returns the marker style.
func (a Attr) GlyphStyle() draw.GlyphStyle {
	return draw.GlyphStyle{Color: a.Line, Radius: a.MarkerSize, Shape: a.Marker}
}

// Provider maps a style token, usually a sample name, to its drawing style
// and legend label.
type Provider interface {
	Attr(token string) Attr
	Label(token string) string
}

type rule struct {
	re    *regexp.Regexp
	attr  Attr
	label string
}

// Registry is a Provider backed by an ordered list of regular-expression
// rules. The first rule matching a token wins; unmatched tokens get a
// colour from the fallback palette chosen by hashing the token.
type Registry struct {
	rules   []rule
	palette []color.Color
}

// NewRegistry returns an empty registry using the given fallback palette.
func NewRegistry(palette ...color.Color) *Registry {
	if len(palette) == 0 {
		palette = Palette
	}
	return &Registry{palette: palette}
}

// Add appends a rule. Pattern is a regular expression anchored at both
// ends.
func (r *Registry) Add(pattern, label string, attr Attr) *Registry {
	r.rules = append(r.rules, rule{
		re:    regexp.MustCompile("^(?:" + pattern + ")$"),
		attr:  attr,
		label: label,
	})
	return r
}

func (r *Registry) lookup(token string) (rule, bool) {
	for _, ru := range r.rules {
		if ru.re.MatchString(token) {
			return ru, true
		}
	}
	return rule{}, false
}

func (r *Registry) Attr(token string) Attr {
	if ru, ok := r.lookup(token); ok {
		return ru.attr
	}
	h := fnv.New32a()
	h.Write([]byte(token))
	c := r.palette[int(h.Sum32()%uint32(len(r.palette)))]
	return Filled(c)
}

func (r *Registry) Label(token string) string {
	if ru, ok := r.lookup(token); ok && ru.label != "" {
		return ru.label
	}
	return token
}

// Filled is the style of a stacked background.
func Filled(c color.Color) Attr {
	return Attr{Fill: c, Line: color.Black, LineWidth: vg.Points(0.5)}
}

// Lined is the style of an overlaid signal.
func Lined(c color.Color, dashes ...vg.Length) Attr {
	return Attr{Line: c, LineWidth: vg.Points(2), Dashes: dashes}
}

// Markers is the style of observed data.
func Markers(c color.Color) Attr {
	return Attr{
		Line:       c,
		LineWidth:  vg.Points(1),
		Marker:     draw.CircleGlyph{},
		MarkerSize: vg.Points(2.5),
	}
}

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Palette is the fallback colour cycle.
var Palette = []color.Color{
	hex(0x5790fc), hex(0xf89c20), hex(0xe42536), hex(0x964a8b),
	hex(0x9c9ca1), hex(0x7a21dd), hex(0x92dadd), hex(0xa96b59),
}

// SignalPalette is the colour cycle of overlaid signals.
var SignalPalette = []color.Color{
	hex(0xe42536), hex(0x3f90da), hex(0x2ca02c), hex(0xff7f0e),
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry of CMS tau-analysis
// conventions.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry().
			Add(`(?i)data(_obs)?.*|Single.*|Tau_Run.*|EGamma.*`, "Observed", Markers(color.Black)).
			Add(`ZTT|DY.*[Tt]au.*`, `$Z\rightarrow\tau\tau$`, Filled(hex(0xffcc66))).
			Add(`ZLL|ZL|ZJ|DY.*(ll|mumu|ee|[Ll]ep).*`, `$Z\rightarrow\ell\ell$`, Filled(hex(0x4496c8))).
			Add(`DY.*|Z.*Jets.*`, "Drell-Yan", Filled(hex(0xffcc66))).
			Add(`TT.*|[Tt]op.*`, `$t\bar{t}$`, Filled(hex(0x9999cc))).
			Add(`ST.*`, "Single top", Filled(hex(0xcc99ff))).
			Add(`W.*Jets.*|W`, "W + jets", Filled(hex(0xde5a6a))).
			Add(`VV|WW|WZ|ZZ|[Dd]iboson.*`, "Diboson", Filled(hex(0xdea5ec))).
			Add(`QCD.*|[Mm]ultijet.*|[Ff]akes?`, "QCD multijet", Filled(hex(0xffccff))).
			Add(`ggH.*|VBF.*|[Hh]iggs.*`, "H", Lined(hex(0xe42536))).
			Add(`[Ss]ignal.*|LQ.*|Zp.*|VLQ.*`, "Signal", Lined(hex(0x3f90da), vg.Points(5), vg.Points(3)))
	})
	return defaultReg
}
