package hist

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
)

// H2 is a two-dimensional histogram. It implements plotter.GridXYZ over
// its regular bins, so it can be handed directly to a heat map.
type H2 struct {
	Name    string
	Title   string
	Process string
	Label   string

	xbins, ybins Binning
	// (nx+2)*(ny+2) cells, x running fastest, flows included.
	sumw, sumw2 []float64
	entries     int64
}

func NewH2(name, title string, xb, yb Binning) *H2 {
	n := (xb.NBins() + 2) * (yb.NBins() + 2)
	return &H2{
		Name:  name,
		Title: title,
		xbins: Binning{edges: xb.Edges(), uniform: xb.uniform},
		ybins: Binning{edges: yb.Edges(), uniform: yb.uniform},
		sumw:  make([]float64, n),
		sumw2: make([]float64, n),
	}
}

func (h *H2) XBinning() Binning { return h.xbins }
func (h *H2) YBinning() Binning { return h.ybins }
func (h *H2) Entries() int64    { return h.entries }

func (h *H2) idx(ix, iy int) int { return iy*(h.xbins.NBins()+2) + ix }

func (h *H2) Fill(x, y, w float64) {
	ix, iy := h.xbins.Find(x), h.ybins.Find(y)
	if ix < 0 || iy < 0 {
		return
	}
	i := h.idx(ix, iy)
	h.sumw[i] += w
	h.sumw2[i] += w * w
	h.entries++
}

func (h *H2) Content(ix, iy int) float64 { return h.sumw[h.idx(ix, iy)] }
func (h *H2) Error(ix, iy int) float64   { return math.Sqrt(h.sumw2[h.idx(ix, iy)]) }

func (h *H2) SetContent(ix, iy int, v float64) { h.sumw[h.idx(ix, iy)] = v }

func (h *H2) Integral() float64 {
	var s float64
	for iy := 1; iy <= h.ybins.NBins(); iy++ {
		for ix := 1; ix <= h.xbins.NBins(); ix++ {
			s += h.Content(ix, iy)
		}
	}
	return s
}

func (h *H2) Scale(f float64) {
	for i := range h.sumw {
		h.sumw[i] *= f
		h.sumw2[i] *= f * f
	}
}

func (h *H2) Add(o *H2) error {
	if !h.xbins.Equal(o.xbins) || !h.ybins.Equal(o.ybins) {
		return fmt.Errorf("%w: cannot add %q to %q", ErrBinning, o.Name, h.Name)
	}
	for i := range h.sumw {
		h.sumw[i] += o.sumw[i]
		h.sumw2[i] += o.sumw2[i]
	}
	h.entries += o.entries
	return nil
}

func (h *H2) Clone() *H2 {
	c := *h
	c.sumw = append([]float64(nil), h.sumw...)
	c.sumw2 = append([]float64(nil), h.sumw2...)
	return &c
}

// MergeFlows folds the flow rows and columns into the outermost regular
// bins.
func (h *H2) MergeFlows() {
	nx, ny := h.xbins.NBins(), h.ybins.NBins()
	clamp := func(i, n int) int { return min(max(i, 1), n) }
	for iy := 0; iy <= ny+1; iy++ {
		for ix := 0; ix <= nx+1; ix++ {
			jx, jy := clamp(ix, nx), clamp(iy, ny)
			if jx == ix && jy == iy {
				continue
			}
			src, dst := h.idx(ix, iy), h.idx(jx, jy)
			h.sumw[dst] += h.sumw[src]
			h.sumw2[dst] += h.sumw2[src]
			h.sumw[src], h.sumw2[src] = 0, 0
		}
	}
}

// Blind zeroes the regular bins whose centre (x, y) satisfies both
// predicates. A nil predicate selects its whole axis.
func (h *H2) Blind(bx, by func(float64) bool) int {
	if bx == nil && by == nil {
		return 0
	}
	all := func(float64) bool { return true }
	if bx == nil {
		bx = all
	}
	if by == nil {
		by = all
	}
	var n int
	for iy := 1; iy <= h.ybins.NBins(); iy++ {
		if !by(h.Y(iy - 1)) {
			continue
		}
		for ix := 1; ix <= h.xbins.NBins(); ix++ {
			if bx(h.X(ix - 1)) {
				i := h.idx(ix, iy)
				h.sumw[i], h.sumw2[i] = 0, 0
				n++
			}
		}
	}
	return n
}

// Dims, Z, X and Y implement plotter.GridXYZ with 0-based indices over
// the regular bins.
func (h *H2) Dims() (c, r int) { return h.xbins.NBins(), h.ybins.NBins() }
func (h *H2) Z(c, r int) float64 { return h.Content(c+1, r+1) }
func (h *H2) X(c int) float64 {
	return 0.5 * (h.xbins.edges[c] + h.xbins.edges[c+1])
}
func (h *H2) Y(r int) float64 {
	return 0.5 * (h.ybins.edges[r] + h.ybins.edges[r+1])
}

// HBook converts the regular bins to a go-hep histogram. Contents are
// preserved; per-bin errors are not.
func (h *H2) HBook() *hbook.H2D {
	hb := hbook.NewH2DFromEdges(h.xbins.Edges(), h.ybins.Edges())
	hb.Annotation()["name"] = h.Name
	hb.Annotation()["title"] = h.Title
	nx, ny := h.Dims()
	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			if z := h.Z(c, r); z != 0 {
				hb.Fill(h.X(c), h.Y(r), z)
			}
		}
	}
	return hb
}
