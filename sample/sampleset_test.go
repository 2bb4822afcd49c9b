package sample

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// gaussian fills n events whose m_vis follow the quantiles of a normal
// distribution, so that the shape is smooth without randomness.
func gaussian(t *testing.T, n int, mu, sigma float64) *tree.Memory {
	t.Helper()
	g := distuv.Normal{Mu: mu, Sigma: sigma}
	m := tree.NewMemory("Events", tauBranches...)
	for i := 0; i < n; i++ {
		require.NoError(t, m.Fill(map[string]float64{
			"m_vis": g.Quantile((float64(i) + 0.5) / float64(n)),
			"pt_1":  40, "q_1": 1, "q_2": -1, "genWeight": 1,
		}))
	}
	return m
}

func TestSampleSetPseudoData(t *testing.T) {
	src := rand.NewPCG(1, 2)
	data := tree.NewMemory("Events", tauBranches...)
	for _, c := range []struct{ yield, mu, sigma float64 }{
		{1000, 50, 10},
		{150, 80, 15},
	} {
		n := int(distuv.Poisson{Lambda: c.yield, Src: src}.Rand())
		g := distuv.Normal{Mu: c.mu, Sigma: c.sigma, Src: src}
		for i := 0; i < n; i++ {
			require.NoError(t, data.Fill(map[string]float64{"m_vis": g.Rand(), "q_1": 1, "q_2": -1}))
		}
	}
	op := tree.MemOpener{
		"dy.root":   gaussian(t, 10000, 50, 10),
		"tt.root":   gaussian(t, 10000, 80, 15),
		"data.root": data,
	}

	dy, err := NewSample("DY", "", []string{"dy.root"}, 1.0, Opener(op))
	require.NoError(t, err)
	tt, err := NewSample("TT", "", []string{"tt.root"}, 0.15, Opener(op))
	require.NoError(t, err)
	obs, err := NewData("data_obs", "", []string{"data.root"}, Opener(op))
	require.NoError(t, err)

	ss, err := NewSampleSet(1, obs, dy, tt)
	require.NoError(t, err)
	defer ss.Close()

	results, err := ss.GetHists("m_vis", 40, 0, 200, NewSelection("os", "q_1*q_2<0"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	hs := results[0].Hists
	require.NotNil(t, hs.Data)
	require.Len(t, hs.Exp, 2)
	assert.Equal(t, "TT", hs.Exp[0].Process, "smallest yield at the bottom")

	stack, err := hs.ExpSum()
	require.NoError(t, err)
	assert.InDelta(t, 1150, stack.Integral(), 1)
	for i := 1; i <= stack.NBins(); i++ {
		pred := stack.Content(i)
		tol := 5 * math.Sqrt(max(pred, 1))
		assert.InDelta(t, pred, hs.Data.Content(i), tol, "bin %d", i)
	}
}

func TestSampleSetStitch(t *testing.T) {
	const lumi = 59.7
	branches := []string{"m_vis", "LHE_Njets"}
	fill := func(m *tree.Memory, j, n int) {
		for k := 0; k < n; k++ {
			require.NoError(t, m.Fill(map[string]float64{
				"m_vis":     25 + 50*float64((k+j)%4),
				"LHE_Njets": float64(j),
			}))
		}
	}

	incl := tree.NewMemory("Events", branches...)
	op := tree.MemOpener{"dyjets.root": incl}
	xsec := []float64{1: 0.4, 2: 0.3, 3: 0.2, 4: 0.1}
	for j, n := range []int{1: 16000, 2: 12000, 3: 8000, 4: 4000} {
		fill(incl, j, n)
	}
	files := []string{"", "dy1jets.root", "dy2jets.root", "dy3jets.root", "dy4jets.root"}
	for j := 1; j <= 4; j++ {
		m := tree.NewMemory("Events", branches...)
		fill(m, j, 10000)
		op[files[j]] = m
	}

	inclusive := func() *Sample {
		s, err := NewSample("DYJets", "", []string{"dyjets.root"}, 1.0, Opener(op))
		require.NoError(t, err)
		return s
	}
	ref, err := NewSampleSet(lumi, inclusive())
	require.NoError(t, err)

	ss, err := NewSampleSet(lumi, inclusive())
	require.NoError(t, err)
	for j := 1; j <= 4; j++ {
		name := "DY" + formatFloat(float64(j)) + "Jets"
		s, err := NewSample(name, "", []string{files[j]}, xsec[j], Opener(op))
		require.NoError(t, err)
		require.NoError(t, ss.Add(s))
	}

	m, err := ss.Stitch("DY*", "DYJets", "DY", "Drell-Yan")
	require.NoError(t, err)
	assert.Len(t, m.Children(), 5)
	require.Len(t, ss.Sources(), 1)
	assert.Equal(t, "DY", ss.Sources()[0].Name())

	sel := NewSelection("inclusive", "")
	want, err := ref.GetHists(mvis4(), sel)
	require.NoError(t, err)
	got, err := ss.GetHists(mvis4(), sel)
	require.NoError(t, err)

	w, g := want[0].Hists.Exp[0], got[0].Hists.Exp[0]
	assert.Equal(t, "DY", g.Process)
	for i := 1; i <= 4; i++ {
		require.NotZero(t, w.Content(i))
		assert.InEpsilon(t, w.Content(i), g.Content(i), 1e-6, "bin %d", i)
	}
	assert.InEpsilon(t, 1000*lumi*1.0, g.Integral(), 1e-6)

	// Each slice reproduces its share of the inclusive cross section.
	for j := 1; j <= 4; j++ {
		y, err := m.GetHist(MustVariable("m_vis", Bins(4, 0, 200), MergeFlows()), NewSelection("slice", "LHE_Njets=="+formatFloat(float64(j))))
		require.NoError(t, err)
		assert.InEpsilon(t, 1000*lumi*xsec[j], y.Integral(), 1e-6, "slice %d", j)
	}
}

func TestSampleSetStitchErrors(t *testing.T) {
	op := tree.MemOpener{"dy.root": events(t, tauBranches, osEvent(25))}
	mk := func(name string) *Sample {
		s, err := NewSample(name, "", []string{"dy.root"}, 1, Opener(op))
		require.NoError(t, err)
		return s
	}

	ss, err := NewSampleSet(1, mk("DY1Jets"), mk("DY2Jets"))
	require.NoError(t, err)
	_, err = ss.Stitch("DY*", "DYJets", "DY", "")
	assert.True(t, errors.Is(err, ErrConfig))

	ss, err = NewSampleSet(1, mk("DYJets"), mk("DY1Jets"), mk("DY1JetsExt"))
	require.NoError(t, err)
	_, err = ss.Stitch("DY*", "DYJets", "DY", "")
	assert.True(t, errors.Is(err, ErrConfig), "duplicate slice")

	ss, err = NewSampleSet(1, mk("DYJets"), mk("DYlow"))
	require.NoError(t, err)
	_, err = ss.Stitch("DY*", "DYJets", "DY", "")
	assert.True(t, errors.Is(err, ErrConfig), "no slice index")
}

// qcdSet has a DY sample normalised to one and data with an excess of
// same-sign events at low mass.
func qcdSet(t *testing.T) *SampleSet {
	t.Helper()
	var mc, obs []map[string]float64
	mc = append(mc, repeat(10, ssEvent(25))...)
	mc = append(mc, repeat(10, ssEvent(75))...)
	mc = append(mc, repeat(100, osEvent(125))...)
	obs = append(obs, repeat(30, ssEvent(25))...)
	obs = append(obs, repeat(5, ssEvent(75))...)
	obs = append(obs, repeat(50, osEvent(125))...)
	op := tree.MemOpener{
		"dy.root":   events(t, tauBranches, mc...),
		"data.root": events(t, tauBranches, obs...),
	}

	dy, err := NewSample("DY", "", []string{"dy.root"}, 1, NEvents(1000), Opener(op))
	require.NoError(t, err)
	d, err := NewData("data_obs", "", []string{"data.root"}, Opener(op))
	require.NoError(t, err)
	ss, err := NewSampleSet(1, dy, d)
	require.NoError(t, err)
	return ss
}

func TestSampleSetQCD(t *testing.T) {
	ss := qcdSet(t)
	require.NoError(t, ss.Use("QCD_OSSS"))
	require.NoError(t, ss.Use("QCD_OSSS"))

	results, err := ss.GetHists(mvis4(), NewSelection("os", "q_1*q_2<0"))
	require.NoError(t, err)
	hs := results[0].Hists
	require.Len(t, hs.Exp, 2)

	qcd := hs.Exp[0]
	assert.Equal(t, "QCD", qcd.Process)
	assert.Equal(t, "QCD multijet", qcd.Label)
	assert.Equal(t, []float64{20, 0, 0, 0}, contents(qcd.Content, 4))
	assert.Equal(t, "DY", hs.Exp[1].Process)
	assert.Equal(t, 100.0, hs.Exp[1].Integral())
	assert.Equal(t, 50.0, hs.Data.Integral())

	_, err = ss.GetHists(mvis4(), NewSelection("inclusive", ""))
	assert.True(t, errors.Is(err, ErrConfig))

	assert.True(t, errors.Is(ss.Use("ABCD"), ErrConfig))
}

func TestSampleSetRegisterMethod(t *testing.T) {
	RegisterMethod("double", func(_ *SampleSet, _ *Selection, results []Result) error {
		for _, r := range results {
			for _, h := range r.Hists.Exp {
				h.Scale(2)
			}
		}
		return nil
	})
	ss := qcdSet(t)
	require.NoError(t, ss.Use("double"))
	results, err := ss.GetHists(mvis4(), NewSelection("os", "q_1*q_2<0"))
	require.NoError(t, err)
	assert.Equal(t, 200.0, results[0].Hists.Exp[0].Integral())
}

func newSet(t *testing.T) *SampleSet {
	t.Helper()
	op := tree.MemOpener{
		"dy1.root":  events(t, tauBranches, osEvent(25), osEvent(25), osEvent(75)),
		"dy2.root":  events(t, tauBranches, osEvent(75), osEvent(125)),
		"tt.root":   events(t, tauBranches, osEvent(125), osEvent(175), osEvent(175), osEvent(175), osEvent(175)),
		"h.root":    events(t, tauBranches, osEvent(125)),
		"data.root": events(t, tauBranches, osEvent(25), osEvent(75)),
	}
	mk := func(name, file string, opts ...SampleOption) *Sample {
		s, err := NewSample(name, "", []string{file}, 1, append(opts, NEvents(1000), Opener(op))...)
		require.NoError(t, err)
		return s
	}
	d, err := NewData("data_obs", "", []string{"data.root"}, Opener(op))
	require.NoError(t, err)
	ss, err := NewSampleSet(1, d, mk("DY1", "dy1.root"), mk("DY2", "dy2.root"), mk("TT", "tt.root"), mk("ggH125", "h.root", AsSignal()))
	require.NoError(t, err)
	return ss
}

func TestSampleSetGetHists(t *testing.T) {
	ss := newSet(t)
	sel := NewSelection("os", "q_1*q_2<0")
	pt := MustVariable("pt_1", Bins(10, 0, 100), Veto("os"))

	results, err := ss.GetHists(mvis4(), pt, sel)
	require.NoError(t, err)
	require.Len(t, results, 1, "pt_1 is vetoed")
	hs := results[0].Hists
	assert.Same(t, sel, results[0].Sel)
	assert.Equal(t, 2.0, hs.Data.Integral())
	require.Len(t, hs.Sig, 1)
	assert.Equal(t, "ggH125", hs.Sig[0].Process)

	var order []string
	for _, h := range hs.Exp {
		order = append(order, h.Process)
	}
	assert.Equal(t, []string{"DY2", "DY1", "TT"}, order)

	// The stack is the merge of every expected source.
	merged, err := NewMerged("bkg", "", ss.Get("DY1"), ss.Get("DY2"), ss.Get("TT"))
	require.NoError(t, err)
	want, err := merged.GetHist(mvis4(), sel)
	require.NoError(t, err)
	got, err := hs.ExpSum()
	require.NoError(t, err)
	assert.Equal(t, contents(want.Content, 4), contents(got.Content, 4))

	ss.SetStackOrder("TT")
	results, err = ss.GetHists(mvis4(), sel)
	require.NoError(t, err)
	assert.Equal(t, "TT", results[0].Hists.Exp[0].Process)
}

func TestSampleSetJoin(t *testing.T) {
	ss := newSet(t)
	sel := NewSelection("os", "q_1*q_2<0")

	before, err := ss.GetHists(mvis4(), sel)
	require.NoError(t, err)
	sumBefore, err := before[0].Hists.ExpSum()
	require.NoError(t, err)

	m, err := ss.Join("DY*", "DY", "Drell-Yan")
	require.NoError(t, err)
	assert.Len(t, m.Children(), 2)
	assert.Nil(t, ss.Get("DY1"))
	assert.Equal(t, "Drell-Yan", m.Title())

	after, err := ss.GetHists(mvis4(), sel)
	require.NoError(t, err)
	require.Len(t, after[0].Hists.Exp, 2)
	sumAfter, err := after[0].Hists.ExpSum()
	require.NoError(t, err)
	assert.Equal(t, contents(sumBefore.Content, 4), contents(sumAfter.Content, 4))

	dy := after[0].Hists.Find("DY")
	require.NotNil(t, dy)
	assert.Equal(t, []float64{2, 2, 1, 0}, contents(dy.Content, 4))

	_, err = ss.Join("W*", "W", "")
	assert.True(t, errors.Is(err, ErrConfig))
	_, err = ss.Join("*", "all", "")
	assert.True(t, errors.Is(err, ErrConfig), "data and simulation do not mix")
}

func TestSampleSetFind(t *testing.T) {
	ss := newSet(t)

	srcs, err := ss.Find("DY?")
	require.NoError(t, err)
	assert.Len(t, srcs, 2)

	srcs, err = ss.FindRegex("DY1|TT")
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "DY1", srcs[0].Name())

	srcs, err = ss.FindRegex("DY")
	require.NoError(t, err)
	assert.Empty(t, srcs, "regular expressions match whole names")

	assert.Equal(t, "data_obs", ss.Data().Name())
}

func TestSampleSetAdd(t *testing.T) {
	ss := newSet(t)
	op := tree.MemOpener{}
	d, err := NewData("data_2", "", []string{"x.root"}, Opener(op))
	require.NoError(t, err)
	assert.True(t, errors.Is(ss.Add(d), ErrConfig))

	dup, err := NewSample("TT", "", []string{"x.root"}, 1, Opener(op))
	require.NoError(t, err)
	assert.True(t, errors.Is(ss.Add(dup), ErrConfig))

	ss.SetLumi(59.7)
	assert.Equal(t, 59.7, ss.Get("TT").(*Sample).Lumi())
}

func TestSampleSetSplit(t *testing.T) {
	ss := newSet(t)
	sel := NewSelection("os", "q_1*q_2<0")

	parts, err := ss.Split("TT",
		Part{Name: "TTlow", Title: "low", Cut: "m_vis<150"},
		Part{Name: "TThigh", Title: "high", Cut: "m_vis>=150"},
	)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Nil(t, ss.Get("TT"))

	results, err := ss.GetHists(mvis4(), sel)
	require.NoError(t, err)
	hs := results[0].Hists
	assert.Equal(t, 1.0, hs.Find("TTlow").Integral())
	assert.Equal(t, 4.0, hs.Find("TThigh").Integral())
	assert.Equal(t, "high", hs.Find("TThigh").Label)

	_, err = ss.Split("nope", Part{Name: "a"})
	assert.True(t, errors.Is(err, ErrConfig))
	_, err = ss.Split("DY1", Part{Name: "DY2"})
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestSampleSetChannel(t *testing.T) {
	op := tree.MemOpener{"dy.root": events(t, tauBranches, osEvent(25))}
	mt, err := NewSample("Wmt", "", []string{"dy.root"}, 1, NEvents(1000), Channels("mt"), Opener(op))
	require.NoError(t, err)
	all, err := NewSample("DY", "", []string{"dy.root"}, 1, NEvents(1000), Opener(op))
	require.NoError(t, err)
	ss, err := NewSampleSet(1, mt, all)
	require.NoError(t, err)

	ss.SetChannel("tt")
	results, err := ss.GetHists(mvis4(), NewSelection("os", ""))
	require.NoError(t, err)
	require.Len(t, results[0].Hists.Exp, 1)
	assert.Equal(t, "DY", results[0].Hists.Exp[0].Process)

	ss.SetChannel("mt")
	results, err = ss.GetHists(mvis4(), NewSelection("os", ""))
	require.NoError(t, err)
	assert.Len(t, results[0].Hists.Exp, 2)
}

func TestSampleSetVariations(t *testing.T) {
	ss := newSet(t)
	ss.AddVariation("x2", "2")

	results, err := ss.GetHists(mvis4(), NewSelection("os", ""))
	require.NoError(t, err)
	hs := results[0].Hists
	sys := hs.Sys["x2"]
	require.Len(t, sys, len(hs.Exp))
	for i, h := range hs.Exp {
		assert.Equal(t, h.Process, sys[i].Process)
		assert.Equal(t, 2*h.Integral(), sys[i].Integral())
	}
}

func TestSampleSetYields(t *testing.T) {
	ss := newSet(t)
	ys, err := ss.Yields(NewSelection("low", "m_vis<100"))
	require.NoError(t, err)

	var names []string
	got := make(map[string]float64)
	for _, y := range ys {
		names = append(names, y.Name)
		got[y.Name] = y.Yield
	}
	assert.Equal(t, []string{"DY1", "DY2", "TT", "ggH125", "data_obs"}, names)
	assert.Equal(t, map[string]float64{"DY1": 3, "DY2": 1, "TT": 0, "ggH125": 0, "data_obs": 2}, got)
	assert.InDelta(t, math.Sqrt(3), ys[0].Error, 1e-12)
	assert.Equal(t, Data, ys[4].Kind)
}

func TestSampleSetGetHists2D(t *testing.T) {
	ss := newSet(t)
	mvis := MustVariable("m_vis", Bins(4, 0, 200))
	pt := MustVariable("pt_1", Bins(5, 0, 100))
	sel := NewSelection("os", "q_1*q_2<0")

	for _, arg := range []any{Pair{mvis, pt}, [2]*Variable{mvis, pt}, []any{mvis, pt}} {
		results, err := ss.GetHists2D(arg, sel)
		require.NoError(t, err)
		require.Len(t, results, 1)
		hs := results[0].Hists
		require.NotNil(t, hs.Data)
		assert.Equal(t, 4, hs.Data.XBinning().NBins())
		assert.Equal(t, 5, hs.Data.YBinning().NBins())
		assert.Equal(t, 1.0, hs.Data.Content(1, 3))

		sum, err := hs.ExpSum()
		require.NoError(t, err)
		assert.Equal(t, 10.0, sum.Integral())
		assert.Len(t, hs.Sig, 1)
	}
}

func TestResultHistSetWrite(t *testing.T) {
	ss := newSet(t)
	results, err := ss.GetHists(mvis4(), NewSelection("os", ""))
	require.NoError(t, err)

	path := t.TempDir() + "/m_vis-os.root"
	require.NoError(t, results[0].Hists.WriteFile(path))
	hs, err := hist.ReadFile(path)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, h := range hs {
		names[h.Name] = true
	}
	for _, want := range []string{"data_obs", "DY1", "DY2", "TT", "ggH125", "total"} {
		assert.True(t, names[want], want)
	}
}
