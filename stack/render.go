package stack

import (
	"image/color"

	"github.com/decibelcooper/tauplot"
	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/style"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ratioFraction is the share of the canvas height given to the ratio
// pad.
const ratioFraction = 0.3

// legendEntries lists the legend in drawing order: data, the stack from
// the top down, signals, then the uncertainty band.
func (p *Plot) legendEntries() []entry {
	var es []entry
	if p.mode == comparison {
		for _, h := range p.comp {
			es = append(es, entry{h.Label, newSteps(h, false)})
		}
		return es
	}
	if d := p.hs.Data; d != nil {
		es = append(es, entry{d.Label, &markers{attr: d.Style}})
	}
	for i := len(p.hs.Exp) - 1; i >= 0; i-- {
		h := p.hs.Exp[i]
		es = append(es, entry{h.Label, newSteps(h, !p.opts.NoStack)})
	}
	for _, h := range p.hs.Sig {
		es = append(es, entry{h.Label, newSteps(h, false)})
	}
	if p.opts.StatErr && p.sum != nil {
		es = append(es, entry{"Stat. unc.", &band{color: bandColor}})
	}
	return es
}

// render draws the whole plot on c.
func (p *Plot) render(c draw.Canvas) {
	body := draw.Crop(c, 0, 0, 0, -headerHeight)
	main := body
	pads := []*plot.Plot{p.mainPad()}
	cs := []draw.Canvas{main}
	if p.opts.Ratio && len(p.Hists()) > 0 {
		split := ratioFraction * (body.Max.Y - body.Min.Y)
		main = draw.Crop(body, 0, 0, split, 0)
		low := draw.Crop(body, 0, 0, 0, split-(body.Max.Y-body.Min.Y))
		pads = append(pads, p.ratioPad())
		cs = []draw.Canvas{main, low}
	}
	alignX(pads, cs)
	for i, pl := range pads {
		pl.Draw(cs[i])
	}

	da := pads[0].DataCanvas(cs[0])
	drawHeader(c, da, p.cms, p.lumi)
	p.drawLegend(da)
	for _, t := range p.texts {
		fillText(da, t.text, at(da, t.opts.X, t.opts.Y), t.opts)
	}
	drawWarnings(c, p.warns)
}

func (p *Plot) newPad() *plot.Plot {
	pl := plot.New()
	useMathText(pl)
	pl.X.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5}
	pl.Y.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5}
	if hs := p.Hists(); len(hs) > 0 {
		pl.X.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 5, Edges: hs[0].Binning().Edges()}
	}
	if p.logx {
		tauplot.LogAxis(&pl.X)
	}
	if p.opts.Grid {
		pl.Add(plotter.NewGrid())
	}
	return pl
}

func (p *Plot) mainPad() *plot.Plot {
	pl := p.newPad()
	pl.Y.Label.Text = style.Latex(p.ytitle)
	if p.opts.Ratio && len(p.Hists()) > 0 {
		pl.X.Tick.Marker = tauplot.Unlabeled{Ticker: pl.X.Tick.Marker}
	} else {
		pl.X.Label.Text = style.Latex(p.xtitle)
	}
	if p.opts.LogY {
		tauplot.LogAxis(&pl.Y)
	}

	lines, total := p.shown()
	if total != nil {
		// Cumulative sums drawn from the top of the stack down, each
		// covering the part of the previous one below it.
		cum := total.Clone()
		for i := len(p.hs.Exp) - 1; i >= 0; i-- {
			cum.Style = p.hs.Exp[i].Style
			pl.Add(newSteps(cum, true))
			// Binnings were checked by Draw.
			_ = cum.AddScaled(p.hs.Exp[i], -1)
		}
		if p.opts.StatErr {
			pl.Add(statBand(total))
		}
	}
	for _, h := range lines {
		pl.Add(newSteps(h, false))
	}
	if p.mode == stacked && p.hs.Data != nil {
		pl.Add(&markers{pts: hist.DataPoints(p.hs.Data, false), attr: p.hs.Data.Style})
	}

	pl.X.Min, pl.X.Max = p.xlo, p.xhi
	pl.Y.Min, pl.Y.Max = p.ylo, p.yhi
	return pl
}

func (p *Plot) ratioPad() *plot.Plot {
	pl := p.newPad()
	pl.X.Label.Text = style.Latex(p.xtitle)
	pl.Y.Tick.Marker = tauplot.PreciseTicks{NSuggestedTicks: 3}

	var ref *hist.H1
	if p.mode == comparison {
		ref = p.comp[0]
		pl.Y.Label.Text = "Ratio"
	} else {
		ref = p.sum
		pl.Y.Label.Text = "Obs./Exp."
	}
	if ref != nil {
		pl.Add(relBand(ref))
	}

	one, err := plotter.NewLine(plotter.XYs{{X: p.xlo, Y: 1}, {X: p.xhi, Y: 1}})
	if err == nil {
		one.LineStyle = draw.LineStyle{Color: color.Gray{Y: 80}, Width: vg.Points(1), Dashes: []vg.Length{vg.Points(4), vg.Points(3)}}
		pl.Add(one)
	}

	switch {
	case p.mode == comparison:
		for _, h := range p.comp[1:] {
			attr := style.Markers(h.Style.Line)
			pl.Add(&markers{pts: hist.Ratio(h, ref), attr: attr})
		}
	case ref != nil && p.hs.Data != nil:
		pl.Add(&markers{pts: hist.DataRatio(p.hs.Data, ref), attr: p.hs.Data.Style})
	}

	pl.X.Min, pl.X.Max = p.xlo, p.xhi
	pl.Y.Min, pl.Y.Max = p.opts.RatioRange[0], p.opts.RatioRange[1]
	return pl
}

// alignX crops the canvases so that the data areas of the pads line up
// horizontally.
func alignX(pads []*plot.Plot, cs []draw.Canvas) {
	var left, right vg.Length
	for i, pl := range pads {
		da := pl.DataCanvas(cs[i])
		left = max(left, da.Min.X-cs[i].Min.X)
		right = max(right, cs[i].Max.X-da.Max.X)
	}
	for i, pl := range pads {
		da := pl.DataCanvas(cs[i])
		cs[i] = draw.Crop(cs[i], left-(da.Min.X-cs[i].Min.X), (cs[i].Max.X-da.Max.X)-right, 0, 0)
	}
}

// drawLegend draws the legend into its box, one gonum legend per column.
func (p *Plot) drawLegend(da draw.Canvas) {
	l := p.legend
	if l == nil || (len(l.entries) == 0 && l.opts.Header == "") {
		return
	}
	lo, hi := at(da, l.box.X0, l.box.Y0), at(da, l.box.X1, l.box.Y1)
	rowH := vg.Length(entryHeight) * (da.Max.Y - da.Min.Y)
	top := hi.Y
	if l.opts.Header != "" {
		fillText(da, l.opts.Header, vg.Point{X: lo.X, Y: top}, TextOptions{Align: "LT", Size: vg.Points(11), Color: color.Black})
		top -= rowH
	}

	n := len(l.entries)
	rows := (n + l.ncols - 1) / l.ncols
	colW := (hi.X - lo.X) / vg.Length(l.ncols)
	for col := range l.ncols {
		leg := plot.NewLegend()
		leg.Top, leg.Left = true, true
		leg.TextStyle = textStyle(vg.Points(10))
		leg.ThumbnailWidth = vg.Length(thumbWidth*0.6) * (da.Max.X - da.Min.X)
		leg.Padding = max(0, rowH-leg.TextStyle.FontExtents().Height)
		for _, e := range l.entries[min(col*rows, n):min((col+1)*rows, n)] {
			leg.Add(style.Latex(e.label), e.thumb)
		}
		c := draw.Canvas{Canvas: da.Canvas, Rectangle: vg.Rectangle{
			Min: vg.Point{X: lo.X + vg.Length(col)*colW, Y: lo.Y},
			Max: vg.Point{X: lo.X + vg.Length(col+1)*colW, Y: top},
		}}
		leg.Draw(c)
	}
}
