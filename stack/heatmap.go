package stack

import (
	"image/color"
	"math"

	"github.com/decibelcooper/tauplot"
	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// colorBarWidth is the width taken by the colour bar on the right of a
// heat map, labels included.
const colorBarWidth = vg.Length(70)

// Plot2D draws a two-dimensional histogram as a heat map with a colour
// bar.
type Plot2D struct {
	xtitle, ytitle string
	h              *hist.H2
	cfg            config
	texts          []textItem
	warns          []string
	closed         bool
}

// NewPlot2D returns a heat map of h.
func NewPlot2D(xtitle, ytitle string, h *hist.H2, opts ...Option) *Plot2D {
	c := newConfig(opts)
	if h != nil && c.clone {
		h = h.Clone()
	}
	return &Plot2D{xtitle: xtitle, ytitle: ytitle, h: h, cfg: c}
}

// DrawCornerText adds text inside the top-left corner of the axes.
func (p *Plot2D) DrawCornerText(txt string) error {
	if p.closed {
		return ErrClosed
	}
	p.texts = append(p.texts, textItem{txt, TextOptions{X: 0.04, Y: 0.96, Align: "LT", Size: vg.Points(12), Color: color.White}})
	return nil
}

// SaveAs writes the heat map like Plot.SaveAs; "root" stores the
// histogram.
func (p *Plot2D) SaveAs(fname string, exts ...string) error {
	if p.closed {
		return ErrClosed
	}
	base, fs, err := formats(fname, exts)
	if err != nil {
		return err
	}
	p.warns = nil
	if p.h == nil {
		p.warns = append(p.warns, "nothing to draw")
		logger().Warn().Str("xtitle", p.xtitle).Msg("Plot: nothing to draw")
	}
	return save(base, fs, p.cfg.width, p.cfg.height, p.render, func(path string) error {
		if p.h == nil {
			return nil
		}
		return hist.WriteFile(path, p.h)
	})
}

// Close releases the histogram. Closing twice is a no-op.
func (p *Plot2D) Close() error {
	p.closed = true
	p.h = nil
	return nil
}

// zRange returns the range of the colour scale.
func (p *Plot2D) zRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	nx, ny := p.h.Dims()
	for c := range nx {
		for r := range ny {
			z := p.h.Z(c, r)
			if math.IsNaN(z) {
				continue
			}
			lo, hi = min(lo, z), max(hi, z)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	lo = min(lo, 0)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func (p *Plot2D) render(c draw.Canvas) {
	body := draw.Crop(c, 0, 0, 0, -headerHeight)
	mainC := draw.Crop(body, 0, -colorBarWidth, 0, 0)
	barC := draw.Crop(body, body.Max.X-body.Min.X-colorBarWidth+vg.Points(20), 0, 0, 0)

	pl := plot.New()
	useMathText(pl)
	pl.X.Label.Text = style.Latex(p.xtitle)
	pl.Y.Label.Text = style.Latex(p.ytitle)

	if p.h == nil {
		pl.X.Min, pl.X.Max, pl.Y.Min, pl.Y.Max = 0, 1, 0, 1
		pl.Draw(mainC)
		da := pl.DataCanvas(mainC)
		drawHeader(c, da, p.cfg.cms, p.cfg.lumi)
		drawWarnings(c, p.warns)
		return
	}

	xb, yb := p.h.XBinning(), p.h.YBinning()
	pl.X.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5, Edges: xb.Edges()}
	pl.Y.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5, Edges: yb.Edges()}

	zlo, zhi := p.zRange()
	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(zlo)
	colorMap.SetMax(zhi)
	if xb.IsUniform() && yb.IsUniform() {
		heatMap := plotter.NewHeatMap(p.h, colorMap.Palette(255))
		heatMap.Min = zlo
		heatMap.Max = zhi
		pl.Add(heatMap)
	} else {
		pl.Add(&cells{h: p.h, cmap: colorMap})
	}
	pl.X.Min, pl.X.Max = xb.Range()
	pl.Y.Min, pl.Y.Max = yb.Range()
	pl.Draw(mainC)

	bar := plot.New()
	useMathText(bar)
	bar.Add(&plotter.ColorBar{ColorMap: colorMap, Vertical: true})
	bar.HideX()
	bar.Y.Padding = 0
	bar.Y.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5}
	// Line the bar up with the data area of the heat map.
	da := pl.DataCanvas(mainC)
	barC.Min.Y, barC.Max.Y = da.Min.Y, da.Max.Y
	bar.Draw(barC)

	drawHeader(c, da, p.cfg.cms, p.cfg.lumi)
	for _, t := range p.texts {
		fillText(da, t.text, at(da, t.opts.X, t.opts.Y), t.opts)
	}
	drawWarnings(c, p.warns)
}

// cells draws the bins of a histogram with variable bin widths, which
// plotter.HeatMap cannot represent.
type cells struct {
	h    *hist.H2
	cmap palette.ColorMap
}

func (g *cells) Plot(c draw.Canvas, pl *plot.Plot) {
	trX, trY := pl.Transforms(&c)
	xe, ye := g.h.XBinning().Edges(), g.h.YBinning().Edges()
	for ix := 1; ix < len(xe); ix++ {
		for iy := 1; iy < len(ye); iy++ {
			clr, err := g.cmap.At(g.h.Content(ix, iy))
			if err != nil {
				continue
			}
			x0, x1 := trX(xe[ix-1]), trX(xe[ix])
			y0, y1 := trY(ye[iy-1]), trY(ye[iy])
			c.FillPolygon(clr, c.ClipPolygonXY([]vg.Point{
				{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
			}))
		}
	}
}
