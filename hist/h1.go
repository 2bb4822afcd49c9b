// Package hist holds the weighted histograms produced by the draw engine,
// the sets of histograms handed to plots, and their ROOT file
// representation.
//
// Bins are numbered the ROOT way: 1..NBins() are the regular bins, 0 is
// the underflow and NBins()+1 the overflow.
package hist

import (
	"fmt"
	"math"

	"github.com/decibelcooper/tauplot/style"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/plot/vg"
)

// H1 is a one-dimensional histogram keeping the sum of weights and the
// sum of squared weights in every bin.
type H1 struct {
	Name  string
	Title string

	// Process is the name of the sample that produced the histogram,
	// Label its legend entry and Style its drawing style.
	Process string
	Label   string
	Style   style.Attr

	bins    Binning
	sumw    []float64
	sumw2   []float64
	entries int64
}

// NewH1 returns an empty histogram. The binning must be valid.
func NewH1(name, title string, b Binning) *H1 {
	n := b.NBins() + 2
	return &H1{
		Name:  name,
		Title: title,
		bins:  Binning{edges: b.Edges(), uniform: b.uniform},
		sumw:  make([]float64, n),
		sumw2: make([]float64, n),
	}
}

func (h *H1) Binning() Binning { return h.bins }
func (h *H1) NBins() int       { return h.bins.NBins() }
func (h *H1) Entries() int64   { return h.entries }

// Fill adds weight w at x. NaN values are dropped.
func (h *H1) Fill(x, w float64) {
	i := h.bins.Find(x)
	if i < 0 {
		return
	}
	h.sumw[i] += w
	h.sumw2[i] += w * w
	h.entries++
}

func (h *H1) Content(i int) float64 { return h.sumw[i] }
func (h *H1) SumW2(i int) float64   { return h.sumw2[i] }
func (h *H1) Error(i int) float64   { return math.Sqrt(h.sumw2[i]) }

func (h *H1) SetContent(i int, v float64) { h.sumw[i] = v }
func (h *H1) SetError(i int, e float64)   { h.sumw2[i] = e * e }

func (h *H1) LowEdge(i int) float64 { return h.bins.edges[i-1] }
func (h *H1) Width(i int) float64   { return h.bins.edges[i] - h.bins.edges[i-1] }
func (h *H1) Center(i int) float64  { return 0.5 * (h.bins.edges[i-1] + h.bins.edges[i]) }

// Integral returns the sum of the regular bins.
func (h *H1) Integral() float64 {
	var s float64
	for i := 1; i <= h.NBins(); i++ {
		s += h.sumw[i]
	}
	return s
}

// IntegralError returns the statistical error of Integral.
func (h *H1) IntegralError() float64 {
	var s float64
	for i := 1; i <= h.NBins(); i++ {
		s += h.sumw2[i]
	}
	return math.Sqrt(s)
}

// Scale multiplies every bin, flows included, by f.
func (h *H1) Scale(f float64) {
	for i := range h.sumw {
		h.sumw[i] *= f
		h.sumw2[i] *= f * f
	}
}

// Add adds o bin by bin.
func (h *H1) Add(o *H1) error { return h.AddScaled(o, 1) }

// AddScaled adds c·o bin by bin. Both histograms must share their binning.
func (h *H1) AddScaled(o *H1, c float64) error {
	if !h.bins.Equal(o.bins) {
		return fmt.Errorf("%w: cannot add %q %v to %q %v", ErrBinning, o.Name, o.bins, h.Name, h.bins)
	}
	for i := range h.sumw {
		h.sumw[i] += c * o.sumw[i]
		h.sumw2[i] += c * c * o.sumw2[i]
	}
	h.entries += o.entries
	return nil
}

// Clone returns a deep copy with the same name.
func (h *H1) Clone() *H1 {
	c := *h
	c.bins = Binning{edges: h.bins.Edges(), uniform: h.bins.uniform}
	c.sumw = append([]float64(nil), h.sumw...)
	c.sumw2 = append([]float64(nil), h.sumw2...)
	c.Style.Dashes = append([]vg.Length(nil), h.Style.Dashes...)
	return &c
}

// Reset zeroes every bin.
func (h *H1) Reset() {
	clear(h.sumw)
	clear(h.sumw2)
	h.entries = 0
}

// MergeFlows moves the underflow into the first bin and the overflow into
// the last one.
func (h *H1) MergeFlows() {
	n := h.NBins()
	h.sumw[1] += h.sumw[0]
	h.sumw2[1] += h.sumw2[0]
	h.sumw[n] += h.sumw[n+1]
	h.sumw2[n] += h.sumw2[n+1]
	h.sumw[0], h.sumw2[0] = 0, 0
	h.sumw[n+1], h.sumw2[n+1] = 0, 0
}

// Blind zeroes the content and error of the regular bins whose centre
// satisfies blind, and returns how many were zeroed.
func (h *H1) Blind(blind func(center float64) bool) int {
	var n int
	for i := 1; i <= h.NBins(); i++ {
		if blind(h.Center(i)) {
			h.sumw[i], h.sumw2[i] = 0, 0
			n++
		}
	}
	return n
}

// Within returns a predicate for Blind selecting centres in [lo, hi].
func Within(lo, hi float64) func(float64) bool {
	return func(x float64) bool { return x >= lo && x <= hi }
}

// Max returns the largest regular-bin content, with its error added when
// withErr is set.
func (h *H1) Max(withErr bool) float64 {
	m := math.Inf(-1)
	for i := 1; i <= h.NBins(); i++ {
		v := h.sumw[i]
		if withErr {
			v += h.Error(i)
		}
		m = math.Max(m, v)
	}
	return m
}

// MinPositive returns the smallest positive regular-bin content, or 0
// when there is none.
func (h *H1) MinPositive() float64 {
	m := math.Inf(1)
	for i := 1; i <= h.NBins(); i++ {
		if v := h.sumw[i]; v > 0 && v < m {
			m = v
		}
	}
	if math.IsInf(m, 1) {
		return 0
	}
	return m
}

// HBook converts h to a go-hep histogram, carrying weights and flows.
func (h *H1) HBook() *hbook.H1D {
	hb := hbook.NewH1DFromEdges(h.bins.Edges())
	hb.Annotation()["name"] = h.Name
	hb.Annotation()["title"] = h.Title
	n := h.NBins()
	for i := 1; i <= n; i++ {
		d := &hb.Binning.Bins[i-1].Dist
		d.Dist.SumW = h.sumw[i]
		d.Dist.SumW2 = h.sumw2[i]
		d.Stats.SumWX = h.sumw[i] * h.Center(i)
		d.Stats.SumWX2 = h.sumw[i] * h.Center(i) * h.Center(i)
		if h.sumw[i] != 0 {
			d.Dist.N = 1
		}
	}
	for j, i := range []int{0, n + 1} {
		d := &hb.Binning.Outflows[j]
		d.Dist.SumW = h.sumw[i]
		d.Dist.SumW2 = h.sumw2[i]
		if h.sumw[i] != 0 {
			d.Dist.N = 1
		}
	}
	for _, b := range hb.Binning.Bins {
		addDist(&hb.Binning.Dist, b.Dist)
	}
	if h.entries > 0 {
		hb.Binning.Dist.Dist.N = h.entries
	}
	return hb
}

func addDist(dst *hbook.Dist1D, src hbook.Dist1D) {
	dst.Dist.N += src.Dist.N
	dst.Dist.SumW += src.Dist.SumW
	dst.Dist.SumW2 += src.Dist.SumW2
	dst.Stats.SumWX += src.Stats.SumWX
	dst.Stats.SumWX2 += src.Stats.SumWX2
}

// FromHBook converts a go-hep histogram.
func FromHBook(hb *hbook.H1D) *H1 {
	bins := hb.Binning.Bins
	edges := make([]float64, 0, len(bins)+1)
	for _, b := range bins {
		edges = append(edges, b.Range.Min)
	}
	if len(bins) > 0 {
		edges = append(edges, bins[len(bins)-1].Range.Max)
	}
	h := NewH1(hb.Name(), hb.Title(), Variable(edges...))
	for i, b := range bins {
		h.sumw[i+1] = b.Dist.Dist.SumW
		h.sumw2[i+1] = b.Dist.Dist.SumW2
	}
	n := len(bins)
	for j, i := range []int{0, n + 1} {
		h.sumw[i] = hb.Binning.Outflows[j].Dist.SumW
		h.sumw2[i] = hb.Binning.Outflows[j].Dist.SumW2
	}
	h.entries = hb.Entries()
	return h
}
