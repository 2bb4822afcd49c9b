package hist

import (
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinning(t *testing.T) {
	b := Uniform(4, 0, 200)
	require.NoError(t, b.Validate())
	assert.Equal(t, 4, b.NBins())
	assert.Equal(t, []float64{0, 50, 100, 150, 200}, b.Edges())
	assert.Equal(t, "(4, 0, 200)", b.String())

	assert.Equal(t, 0, b.Find(-1))
	assert.Equal(t, 1, b.Find(0))
	assert.Equal(t, 1, b.Find(49.9))
	assert.Equal(t, 2, b.Find(50))
	assert.Equal(t, 4, b.Find(199))
	assert.Equal(t, 5, b.Find(200))
	assert.Equal(t, -1, b.Find(math.NaN()))

	v := Variable(0, 50, 100, 150, 200)
	assert.True(t, b.Equal(v))
	assert.Equal(t, "[0, 50, 100, 150, 200]", v.String())
	assert.True(t, Uniform(10, -10, 300).Covers(b))
	assert.False(t, Uniform(2, 0, 100).Covers(b))

	for _, bad := range []Binning{Variable(1), Variable(0, 1, 1), Variable(2, 1), Uniform(0, 0, 1)} {
		assert.True(t, errors.Is(bad.Validate(), ErrBinning), bad.String())
	}
}

func TestH1Fill(t *testing.T) {
	h := NewH1("h", "", Uniform(4, 0, 4))
	h.Fill(-1, 2)
	h.Fill(0.5, 1)
	h.Fill(0.5, 3)
	h.Fill(3.5, 1)
	h.Fill(10, 5)
	h.Fill(math.NaN(), 1)

	assert.Equal(t, int64(5), h.Entries())
	assert.Equal(t, 2.0, h.Content(0))
	assert.Equal(t, 4.0, h.Content(1))
	assert.Equal(t, math.Sqrt(10), h.Error(1))
	assert.Equal(t, 5.0, h.Content(5))
	assert.Equal(t, 5.0, h.Integral())
	assert.Equal(t, 0.5, h.Center(1))
	assert.Equal(t, 1.0, h.Width(4))
	assert.Equal(t, 3.0, h.LowEdge(4))
	assert.Equal(t, 4.0, h.Max(false))
	assert.Equal(t, 4.0+math.Sqrt(10), h.Max(true))
	assert.Equal(t, 1.0, h.MinPositive())

	h.MergeFlows()
	assert.Equal(t, 6.0, h.Content(1))
	assert.Equal(t, 14.0, h.SumW2(1))
	assert.Equal(t, 6.0, h.Content(4))
	assert.Zero(t, h.Content(0))
	assert.Zero(t, h.Content(5))
	assert.Equal(t, 12.0, h.Integral())
}

func TestH1Arithmetic(t *testing.T) {
	a := NewH1("a", "", Uniform(2, 0, 2))
	a.Fill(0.5, 2)
	b := a.Clone()
	b.Name = "b"
	b.Fill(1.5, 1)

	require.NoError(t, a.Add(b))
	assert.Equal(t, 4.0, a.Content(1))
	assert.Equal(t, 8.0, a.SumW2(1))
	assert.Equal(t, 1.0, a.Content(2))
	assert.Equal(t, 2.0, b.Content(1), "clone shares no storage")

	a.Scale(0.5)
	assert.Equal(t, 2.0, a.Content(1))
	assert.Equal(t, 2.0, a.SumW2(1))

	require.NoError(t, a.AddScaled(b, -1))
	assert.Equal(t, 0.0, a.Content(1))

	err := a.Add(NewH1("c", "", Uniform(3, 0, 2)))
	assert.True(t, errors.Is(err, ErrBinning))

	a.Reset()
	assert.Zero(t, a.Integral())
	assert.Zero(t, a.Entries())
	assert.Zero(t, a.MinPositive())
}

func TestH1Blind(t *testing.T) {
	h := NewH1("h", "", Uniform(10, 0, 100))
	for i := 0; i < 10; i++ {
		h.Fill(float64(10*i+5), 1)
	}
	// centres 65, 75 and 85 lie in [60, 85]
	n := h.Blind(Within(60, 85))
	assert.Equal(t, 3, n)
	for i := 1; i <= 10; i++ {
		blinded := i >= 7 && i <= 9
		assert.Equal(t, blinded, h.Content(i) == 0, "bin %d", i)
		assert.Equal(t, blinded, h.Error(i) == 0, "bin %d", i)
	}
}

func TestH2(t *testing.T) {
	h := NewH2("h2", "", Uniform(4, 0, 4), Uniform(2, 0, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			h.Fill(float64(x)+0.5, float64(y)+0.5, 1)
		}
	}
	h.Fill(-1, 0.5, 1)
	h.Fill(2.5, 5, 1)

	c, r := h.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 8.0, h.Integral())
	assert.Equal(t, 2.5, h.X(2))
	assert.Equal(t, 1.5, h.Y(1))
	assert.Equal(t, 1.0, h.Z(0, 0))

	m := h.Clone()
	m.MergeFlows()
	assert.Equal(t, 10.0, m.Integral())
	assert.Equal(t, 2.0, m.Z(0, 0))
	assert.Equal(t, 2.0, m.Z(2, 1))
	assert.Equal(t, 8.0, h.Integral())

	// x in [1, 2] and y in [0, 1]: centres (1.5, 0.5) only.
	n := h.Blind(Within(1, 2), Within(0, 1))
	assert.Equal(t, 1, n)
	assert.Zero(t, h.Z(1, 0))
	assert.Equal(t, 1.0, h.Z(1, 1))

	// no y interval: whole y axis at x centre 3.5
	n = h.Blind(Within(3, 4), nil)
	assert.Equal(t, 2, n)
	assert.Equal(t, 5.0, h.Integral())

	assert.Zero(t, h.Blind(nil, nil))
	assert.True(t, errors.Is(h.Add(NewH2("x", "", Uniform(4, 0, 4), Uniform(3, 0, 2))), ErrBinning))
}

func TestUniqueName(t *testing.T) {
	a, b := UniqueName("h"), UniqueName("h")
	assert.NotEqual(t, a, b)
	na, err := strconv.Atoi(strings.TrimPrefix(a, "h_"))
	require.NoError(t, err)
	nb, err := strconv.Atoi(strings.TrimPrefix(b, "h_"))
	require.NoError(t, err)
	assert.Greater(t, nb, na)
}

func TestPoissonInterval(t *testing.T) {
	lo, hi := PoissonInterval(0)
	assert.Zero(t, lo)
	assert.InDelta(t, 1.841, hi, 1e-3)

	lo, hi = PoissonInterval(1)
	assert.InDelta(t, 0.1727, lo, 1e-3)
	assert.InDelta(t, 3.2995, hi, 1e-3)

	// large counts approach sqrt(n)
	lo, hi = PoissonInterval(10000)
	assert.InDelta(t, 100, 10000-lo, 1)
	assert.InDelta(t, 100, hi-10000, 1)
}

func TestRatios(t *testing.T) {
	data := NewH1("data", "", Uniform(3, 0, 3))
	pred := NewH1("pred", "", Uniform(3, 0, 3))
	data.Fill(0.5, 4)
	data.Fill(1.5, 1)
	pred.Fill(0.5, 2)
	pred.Fill(2.5, 1)

	pts := DataRatio(data, pred)
	require.Len(t, pts, 1, "bins with empty prediction or no data are left out")
	assert.Equal(t, 2.0, pts[0].Y)
	assert.Equal(t, 0.5, pts[0].XLo)
	lo, hi := PoissonInterval(4)
	assert.InDelta(t, (4-lo)/2, pts[0].YLo, 1e-12)
	assert.InDelta(t, (hi-4)/2, pts[0].YHi, 1e-12)

	pts = Ratio(data, pred)
	require.Len(t, pts, 2)
	assert.Equal(t, 2.0, pts[0].Y)
	// relative errors 4/4 and 2/2 in quadrature
	assert.InDelta(t, 2*math.Sqrt2, pts[0].YLo, 1e-12)
	assert.Equal(t, 0.0, pts[1].Y)

	dp := DataPoints(data, false)
	assert.Len(t, dp, 2)
	assert.Len(t, DataPoints(data, true), 3)

	rel := RelativeError(pred)
	assert.Equal(t, 1.0, rel[0])
	assert.True(t, math.IsNaN(rel[1]))
}

func histSet() *HistSet {
	mk := func(process string, x, w float64) *H1 {
		h := NewH1(UniqueName(process), "m_vis", Uniform(4, 0, 200))
		h.Process = process
		h.Label = process
		h.Fill(x, w)
		return h
	}
	return &HistSet{
		Data: mk("data", 60, 7),
		Exp:  []*H1{mk("DY", 60, 5), mk("TT", 110, 2)},
		Sig:  []*H1{mk("ggH", 60, 0.5)},
		Sys:  map[string][]*H1{"JESUp": {mk("DY", 60, 5.5), mk("TT", 110, 2.2)}},
	}
}

func TestHistSet(t *testing.T) {
	hs := histSet()
	assert.Equal(t, 4, hs.Len())
	assert.Same(t, hs.Data, hs.All()[0])

	sum, err := hs.ExpSum()
	require.NoError(t, err)
	assert.Equal(t, 7.0, sum.Integral())
	assert.Equal(t, 5.0, hs.Exp[0].Integral(), "inputs untouched")

	hs.SortExp()
	assert.Equal(t, "TT", hs.Exp[0].Process)

	c := hs.Clone()
	c.Exp[0].Scale(2)
	assert.Equal(t, 2.0, hs.Exp[0].Integral())
	assert.Equal(t, "ggH", hs.Find("ggH").Process)
	assert.Nil(t, hs.Find("W"))

	empty, err := (&HistSet{}).ExpSum()
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestROOTRoundTrip(t *testing.T) {
	hs := histSet()
	hs.Exp[0].Fill(-10, 3)
	hs.Exp[0].Fill(500, 1)
	fname := filepath.Join(t.TempDir(), "m_vis.root")
	require.NoError(t, hs.WriteFile(fname))

	got, err := ReadFile(fname)
	require.NoError(t, err)

	want, err := hs.Named()
	require.NoError(t, err)
	require.Len(t, got, len(want))

	byName := map[string]*H1{}
	for _, h := range got {
		byName[h.Name] = h
	}
	for _, w := range want {
		g, ok := byName[w.Name]
		require.True(t, ok, w.Name)
		assert.True(t, g.Binning().Equal(w.Binning()), w.Name)
		for i := 0; i <= w.NBins()+1; i++ {
			assert.InDelta(t, w.Content(i), g.Content(i), 1e-12, "%s bin %d", w.Name, i)
			assert.InDelta(t, w.Error(i), g.Error(i), 1e-12, "%s bin %d", w.Name, i)
		}
	}
	assert.Contains(t, byName, "data_obs")
	assert.Contains(t, byName, "total")
	assert.Contains(t, byName, "DY_JESUp")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.root"))
	assert.True(t, errors.Is(err, ErrIO))
}

func TestWriteFileDuplicate(t *testing.T) {
	h := NewH1("same", "", Uniform(1, 0, 1))
	fname := filepath.Join(t.TempDir(), "dup.root")
	err := WriteFile(fname, h, h.Clone())
	assert.True(t, errors.Is(err, ErrIO))
	assert.NoFileExists(t, fname)
}
