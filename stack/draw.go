package stack

import (
	"fmt"
	"math"

	"github.com/decibelcooper/tauplot/hist"
)

// DrawOptions control how the histograms of a Plot are drawn.
type DrawOptions struct {
	// Ratio adds a pad below the main one with data over the stack, or
	// every histogram over the first one in a comparison.
	Ratio bool
	LogY  bool

	// RatioRange is the y range of the ratio pad; {0.5, 1.5} when unset.
	RatioRange [2]float64

	// NoStack overlays the expected histograms instead of stacking them.
	NoStack bool

	// StatErr draws the statistical uncertainty of the stack as a
	// hatched band.
	StatErr bool
	Grid    bool

	// Norm scales every histogram of a comparison to unit area.
	Norm bool
}

const (
	// headroom is the fraction of the axis range above the highest bin,
	// as a multiplier on the maximum.
	headroom = 1.25
	// logFloor bounds the y axis of log plots from below.
	logFloor = 1e-3
)

// Draw lays the plot out. It checks that all histograms share a
// binning and computes the axis ranges; rendering happens in SaveAs.
// Calling Draw again replaces the previous options.
func (p *Plot) Draw(opts DrawOptions) error {
	if p.closed {
		return ErrClosed
	}
	if opts.RatioRange == [2]float64{} {
		opts.RatioRange = [2]float64{0.5, 1.5}
	}
	if !(opts.RatioRange[1] > opts.RatioRange[0]) {
		return fmt.Errorf("stack: ratio range %v: %w", opts.RatioRange, ErrConfig)
	}

	all := p.Hists()
	for _, h := range all[min(1, len(all)):] {
		if !h.Binning().Equal(all[0].Binning()) {
			return fmt.Errorf("stack: %q does not share the binning of %q: %w", h.Name, all[0].Name, hist.ErrBinning)
		}
	}

	p.opts = opts
	p.sum = nil
	if p.mode == stacked {
		sum, err := p.hs.ExpSum()
		if err != nil {
			return fmt.Errorf("stack: summing the stack: %w", err)
		}
		p.sum = sum
	} else if opts.Norm {
		for _, h := range p.comp {
			if in := h.Integral(); in != 0 {
				h.Scale(1 / in)
			}
		}
	}

	p.drawn = true
	p.warns = nil
	p.computeRanges()
	if p.legend != nil {
		p.placeLegend()
	}
	return nil
}

func (p *Plot) ensureDrawn() error {
	if p.closed {
		return ErrClosed
	}
	if p.drawn {
		return nil
	}
	return p.Draw(DrawOptions{})
}

// shown returns the histograms drawn in the main pad as separate curves
// and the stack total when there is one.
func (p *Plot) shown() (lines []*hist.H1, total *hist.H1) {
	if p.mode == comparison {
		return p.comp, nil
	}
	if p.opts.NoStack {
		lines = append(lines, p.hs.Exp...)
	} else {
		total = p.sum
	}
	return append(lines, p.hs.Sig...), total
}

func (p *Plot) computeRanges() {
	all := p.Hists()
	if len(all) == 0 {
		p.warn("nothing to draw")
		p.xlo, p.xhi = 0, 1
		p.tops = nil
		p.setY(0, 0, 0)
		return
	}

	b := all[0].Binning()
	edges := b.Edges()
	p.xlo, p.xhi = b.Range()
	if p.logx && p.xlo <= 0 {
		p.warn("log x axis needs a positive range, got [%g, %g]", p.xlo, p.xhi)
		p.logx = false
	}

	p.tops = make([]span, b.NBins())
	for i := range p.tops {
		p.tops[i] = span{lo: edges[i], hi: edges[i+1], top: math.Inf(-1)}
	}
	var (
		lowest  = math.Inf(1)
		minPos  = math.Inf(1)
		highest = math.Inf(-1)
	)
	see := func(i int, v float64) {
		if math.IsNaN(v) {
			return
		}
		p.tops[i].top = max(p.tops[i].top, v)
		lowest = min(lowest, v)
		highest = max(highest, v)
		if v > 0 {
			minPos = min(minPos, v)
		}
	}

	lines, total := p.shown()
	for _, h := range lines {
		for i := range p.tops {
			see(i, h.Content(i+1))
		}
	}
	if total != nil {
		for i := range p.tops {
			v := total.Content(i + 1)
			if p.opts.StatErr {
				v += total.Error(i + 1)
			}
			see(i, v)
		}
		// The bottom of the stack is visible in log plots.
		for _, h := range p.hs.Exp {
			if m := h.MinPositive(); m > 0 {
				minPos = min(minPos, m)
			}
		}
	}
	if p.mode == stacked && p.hs.Data != nil {
		for _, pt := range hist.DataPoints(p.hs.Data, false) {
			if i := b.Find(pt.X) - 1; i >= 0 && i < len(p.tops) {
				see(i, pt.Y+pt.YHi)
			}
		}
	}
	for i := range p.tops {
		if math.IsInf(p.tops[i].top, -1) {
			p.tops[i].top = 0
		}
	}

	if !(highest > 0) {
		p.warn("all histograms are empty")
		p.setY(0, 0, 0)
		return
	}
	p.setY(lowest, minPos, highest)
}

// setY sets the y range from the lowest, smallest positive and highest
// drawn values.
func (p *Plot) setY(lowest, minPos, highest float64) {
	if p.opts.LogY {
		p.ylo = logFloor
		if !math.IsInf(minPos, 1) && minPos > 0 {
			p.ylo = max(logFloor, minPos/10)
		}
		if !(highest > p.ylo) {
			p.yhi = p.ylo * 10
			return
		}
		p.yhi = p.ylo * math.Pow(highest/p.ylo, headroom)
		return
	}
	p.ylo = min(0, lowest*headroom)
	if !(highest > 0) {
		p.yhi = 1
		return
	}
	p.yhi = highest * headroom
}

// YRange returns the y range of the main pad.
func (p *Plot) YRange() (lo, hi float64) { return p.ylo, p.yhi }

// normX maps x to its fraction of the axes width.
func (p *Plot) normX(x float64) float64 {
	if p.logx {
		return math.Log(x/p.xlo) / math.Log(p.xhi/p.xlo)
	}
	return (x - p.xlo) / (p.xhi - p.xlo)
}

// normY maps y to its fraction of the axes height.
func (p *Plot) normY(y float64) float64 {
	if p.opts.LogY {
		if y <= p.ylo {
			return 0
		}
		return math.Log(y/p.ylo) / math.Log(p.yhi/p.ylo)
	}
	return (y - p.ylo) / (p.yhi - p.ylo)
}

// raiseY grows the top of the y range until y sits at fraction f of the
// axes height.
func (p *Plot) raiseY(y, f float64) {
	if y <= 0 || f <= 0 || p.normY(y) <= f {
		return
	}
	if p.opts.LogY {
		p.yhi = p.ylo * math.Pow(y/p.ylo, 1/f)
		return
	}
	p.yhi = p.ylo + (y-p.ylo)/f
}
