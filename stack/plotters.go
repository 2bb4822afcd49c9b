package stack

import (
	"image/color"
	"math"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

type thumbnailer interface {
	Thumbnail(c *draw.Canvas)
}

// steps draws per-bin values as a histogram outline, optionally filled
// down to the bottom of the axis.
type steps struct {
	edges  []float64
	values []float64
	attr   style.Attr
	fill   bool
}

func newSteps(h *hist.H1, fill bool) *steps {
	s := &steps{edges: h.Binning().Edges(), attr: h.Style, fill: fill && h.Style.Fill != nil}
	s.values = make([]float64, h.NBins())
	for i := range s.values {
		s.values[i] = h.Content(i + 1)
	}
	return s
}

func (s *steps) Plot(c draw.Canvas, pl *plot.Plot) {
	trX, trY := pl.Transforms(&c)
	y := func(v float64) vg.Length { return trY(clamp(v, pl.Y.Min, pl.Y.Max)) }
	base := y(pl.Y.Min)

	if s.fill {
		for i, v := range s.values {
			if math.IsNaN(v) {
				continue
			}
			x0, x1 := trX(s.edges[i]), trX(s.edges[i+1])
			c.FillPolygon(s.attr.Fill, c.ClipPolygonXY([]vg.Point{
				{X: x0, Y: base}, {X: x1, Y: base}, {X: x1, Y: y(v)}, {X: x0, Y: y(v)},
			}))
		}
	}

	if s.attr.Line == nil || s.attr.LineWidth == 0 {
		return
	}
	var (
		lines [][]vg.Point
		cur   []vg.Point
	)
	for i, v := range s.values {
		x0, x1 := trX(s.edges[i]), trX(s.edges[i+1])
		if math.IsNaN(v) {
			if len(cur) > 0 {
				lines, cur = append(lines, cur), nil
			}
			continue
		}
		if len(cur) == 0 && s.fill {
			cur = append(cur, vg.Point{X: x0, Y: base})
		}
		cur = append(cur, vg.Point{X: x0, Y: y(v)}, vg.Point{X: x1, Y: y(v)})
		if i == len(s.values)-1 && s.fill {
			cur = append(cur, vg.Point{X: x1, Y: base})
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	c.StrokeLines(s.attr.LineStyle(), c.ClipLinesXY(lines...)...)
}

func (s *steps) Thumbnail(c *draw.Canvas) {
	if s.fill {
		pts := []vg.Point{
			{X: c.Min.X, Y: c.Min.Y}, {X: c.Min.X, Y: c.Max.Y},
			{X: c.Max.X, Y: c.Max.Y}, {X: c.Max.X, Y: c.Min.Y},
		}
		c.FillPolygon(s.attr.Fill, c.ClipPolygonY(pts))
		if s.attr.Line != nil {
			c.StrokeLines(s.attr.LineStyle(), append(pts, pts[0]))
		}
		return
	}
	y := c.Center().Y
	c.StrokeLine2(s.attr.LineStyle(), c.Min.X, y, c.Max.X, y)
}

// band draws a hatched area between per-bin lower and upper values.
type band struct {
	edges  []float64
	lo, hi []float64
	color  color.Color
}

var bandColor = color.NRGBA{A: 140}

// statBand returns the band of h ± its statistical error.
func statBand(h *hist.H1) *band {
	b := &band{edges: h.Binning().Edges(), color: bandColor}
	for i := 1; i <= h.NBins(); i++ {
		v, e := h.Content(i), h.Error(i)
		b.lo = append(b.lo, v-e)
		b.hi = append(b.hi, v+e)
	}
	return b
}

// relBand returns the band 1 ± the relative statistical error of h.
func relBand(h *hist.H1) *band {
	b := &band{edges: h.Binning().Edges(), color: bandColor}
	for _, r := range hist.RelativeError(h) {
		b.lo = append(b.lo, 1-r)
		b.hi = append(b.hi, 1+r)
	}
	return b
}

func (b *band) Plot(c draw.Canvas, pl *plot.Plot) {
	trX, trY := pl.Transforms(&c)
	for i := range b.lo {
		if math.IsNaN(b.lo[i]) || math.IsNaN(b.hi[i]) || b.hi[i] <= b.lo[i] {
			continue
		}
		r := vg.Rectangle{
			Min: vg.Point{X: trX(b.edges[i]), Y: trY(clamp(b.lo[i], pl.Y.Min, pl.Y.Max))},
			Max: vg.Point{X: trX(b.edges[i+1]), Y: trY(clamp(b.hi[i], pl.Y.Min, pl.Y.Max))},
		}
		hatch(&c, r, b.color)
	}
}

func (b *band) Thumbnail(c *draw.Canvas) {
	hatch(c, c.Rectangle, b.color)
}

// hatch fills r with diagonal lines.
func hatch(c *draw.Canvas, r vg.Rectangle, clr color.Color) {
	const spacing = vg.Length(4)
	sty := draw.LineStyle{Color: clr, Width: vg.Points(0.5)}
	w, h := r.Max.X-r.Min.X, r.Max.Y-r.Min.Y
	if w <= 0 || h <= 0 {
		return
	}
	// Lines x - y = k, offset from the left edge.
	for k := -h; k < w; k += spacing {
		t0, t1 := max(0, -k), min(h, w-k)
		if t0 >= t1 {
			continue
		}
		c.StrokeLine2(sty, r.Min.X+k+t0, r.Min.Y+t0, r.Min.X+k+t1, r.Min.Y+t1)
	}
}

// markers draws points with asymmetric error bars.
type markers struct {
	pts  []hist.Point
	attr style.Attr
}

func (m *markers) Plot(c draw.Canvas, pl *plot.Plot) {
	trX, trY := pl.Transforms(&c)
	y := func(v float64) vg.Length { return trY(clamp(v, pl.Y.Min, pl.Y.Max)) }
	line := m.attr.LineStyle()
	glyph := m.attr.GlyphStyle()
	if glyph.Shape == nil {
		glyph = style.Markers(m.attr.Line).GlyphStyle()
	}
	for _, pt := range m.pts {
		if pt.Y < pl.Y.Min || pt.Y > pl.Y.Max {
			continue
		}
		x, yc := trX(pt.X), y(pt.Y)
		c.StrokeLines(line, c.ClipLinesXY(
			[]vg.Point{{X: x, Y: y(pt.Y - pt.YLo)}, {X: x, Y: y(pt.Y + pt.YHi)}},
			[]vg.Point{{X: trX(pt.X - pt.XLo), Y: yc}, {X: trX(pt.X + pt.XHi), Y: yc}},
		)...)
		c.DrawGlyph(glyph, vg.Point{X: x, Y: yc})
	}
}

func (m *markers) Thumbnail(c *draw.Canvas) {
	ctr := c.Center()
	c.StrokeLine2(m.attr.LineStyle(), ctr.X, c.Min.Y, ctr.X, c.Max.Y)
	glyph := m.attr.GlyphStyle()
	if glyph.Shape != nil {
		c.DrawGlyphNoClip(glyph, ctr)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
