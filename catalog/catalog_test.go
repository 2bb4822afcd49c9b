package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const mutau = `
era: "2018"
lumi: 1
channel: mt
tree: Events
weights:
  tauid: idisoweight_2
samples:
  - name: data_obs
    kind: data
    files: [data.root]
  - name: DY
    title: Drell-Yan
    files: [dy.root]
    xsec: 1
    nevents: 1000
  - name: TTToSemiLeptonic
    files: [tt.root]
    xsec: 2
    nevents: 1000
    weights: [tauid]
  - name: TTTo2L2Nu
    files: [tt.root]
    xsec: 1
    nevents: 1000
  - name: ggH125
    kind: signal
    files: [dy.root]
    xsec: 0.1
    nevents: 1000
    channels: [et]
join:
  - {pattern: "TTTo*", name: TT, title: "t tbar"}
stack_order: [TT, DY]
variations:
  tauidUp: "1.1"
variables:
  - name: m_vis
    nbins: 4
    lo: 0
    hi: 200
    units: GeV
    blind: [100, 150]
    cbins:
      "njets>=1": {edges: [0, 50, 100, 200]}
      "pt_1": {nbins: 8, lo: 0, hi: 200}
    ctitle:
      "os": "m_vis^{OS}"
    cblind:
      "ss": none
  - name: pt_1
    edges: [0, 30, 60, 200]
    veto: ["ss*"]
    blind: "pt_1>100"
    merge_flows: true
selections:
  - {name: os, title: "opposite sign", cut: "q_1*q_2<0"}
  - {name: ss, cut: "q_1*q_2>0", unblinded: true, tag: _ss}
pairs: ["m_vis:pt_1"]
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(mutau))
	require.NoError(t, err)
	assert.Equal(t, "2018", c.Era)
	assert.Equal(t, "mt", c.Channel)
	require.Len(t, c.Samples, 5)
	assert.Equal(t, []string{"tauid"}, c.Samples[2].Weights)
	assert.Equal(t, "signal", c.Samples[4].Kind)

	require.Len(t, c.Vars, 2)
	m := c.Vars[0]
	assert.Equal(t, 4, m.NBins)
	require.Len(t, m.CBins, 2)
	assert.Equal(t, "njets>=1", m.CBins[0].Key)
	assert.Equal(t, []float64{0, 50, 100, 200}, m.CBins[0].Value.Edges)
	assert.Equal(t, "pt_1", m.CBins[1].Key)
	assert.Equal(t, 100.0, m.Blind.b.Lo)
	assert.Nil(t, m.CBlind[0].Value.b)
	assert.Equal(t, "pt_1>100", c.Vars[1].Blind.b.Expr)
	assert.Equal(t, Ordered[string]{{Key: "tauidUp", Value: "1.1"}}, c.Variations)
}

func TestMarshal(t *testing.T) {
	c, err := Parse(strings.NewReader(mutau))
	require.NoError(t, err)
	raw, err := yaml.Marshal(c)
	require.NoError(t, err)

	back, err := Parse(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, c.Vars[0].CBins, back.Vars[0].CBins)
	assert.Equal(t, c.Vars[0].Blind, back.Vars[0].Blind)
	assert.Nil(t, back.Vars[0].CBlind[0].Value.b)
	assert.Equal(t, c.Vars[1].Blind, back.Vars[1].Blind)
	assert.Equal(t, c.Weights, back.Weights)
	assert.Equal(t, c.Samples, back.Samples)
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field": "lumis: 3\n",
		"bad blind":     "variables: [{name: x, nbins: 1, lo: 0, hi: 1, blind: [1, 2, 3]}]\n",
		"bad cbins":     "variables: [{name: x, nbins: 1, lo: 0, hi: 1, cbins: [1]}]\n",
		"negative lumi": "lumi: -1\n",
	} {
		_, err := Parse(strings.NewReader(doc))
		assert.True(t, errors.Is(err, sample.ErrConfig), name)
	}

	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Samples)
}

func TestVariables(t *testing.T) {
	c, err := Parse(strings.NewReader(mutau))
	require.NoError(t, err)
	vars, err := c.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 2)

	opp := sample.NewSelection("os", "q_1*q_2<0")
	jets := sample.NewSelection("os_1jet", "njets>=1")
	assert.Equal(t, 4, vars[0].BinningFor(opp).NBins())
	assert.Equal(t, 3, vars[0].BinningFor(jets).NBins())
	assert.Equal(t, "m_vis^{OS}", vars[0].TitleFor(opp))
	assert.NotNil(t, vars[0].BlindFor(opp))
	assert.Nil(t, vars[0].BlindFor(sample.NewSelection("ss", "q_1*q_2>0")))
	assert.True(t, vars[1].Flows())
	assert.False(t, vars[1].PlotFor(sample.NewSelection("ss_loose", "")))

	pairs, err := c.Pairs(vars)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "m_vis:pt_1", pairs[0].String())

	c.PairNames = []string{"m_vis:eta_1"}
	_, err = c.Pairs(vars)
	assert.True(t, errors.Is(err, sample.ErrConfig))

	c.Vars = append(c.Vars,
		Variable{Name: "m_vis", Binning: Binning{NBins: 1, Lo: 0, Hi: 1}},
		Variable{Name: "eta_1"},
		Variable{Name: "m_sv", Binning: Binning{NBins: 10, Lo: 0, Hi: 300},
			CBins: Ordered[Binning]{{Key: "os", Value: Binning{NBins: 5, Lo: 50, Hi: 300}}}},
	)
	_, err = c.Variables()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sample.ErrConfig))
	assert.Contains(t, err.Error(), `duplicate variable "m_vis"`)
	assert.Contains(t, err.Error(), `"eta_1" has no binning`)
	assert.Contains(t, err.Error(), "narrower")

	c.Vars[4].AllowNarrow = true
	c.Vars = append(c.Vars[:2], c.Vars[4])
	_, err = c.Variables()
	assert.NoError(t, err)
}

func TestSelections(t *testing.T) {
	c, err := Parse(strings.NewReader(mutau))
	require.NoError(t, err)
	sels, err := c.Selections()
	require.NoError(t, err)
	require.Len(t, sels, 2)
	assert.Equal(t, "opposite sign", sels[0].Title())
	assert.Equal(t, "q_1*q_2<0", sels[0].Cut())

	c.Sels = append(c.Sels, Selection{Name: "os"})
	_, err = c.Selections()
	assert.True(t, errors.Is(err, sample.ErrConfig))
}

func events(t *testing.T, n int, mvis float64) *tree.Memory {
	t.Helper()
	m := tree.NewMemory("Events", "m_vis", "pt_1", "q_1", "q_2", "njets", "idisoweight_2")
	for range n {
		require.NoError(t, m.Fill(map[string]float64{
			"m_vis": mvis, "pt_1": 40, "q_1": 1, "q_2": -1, "idisoweight_2": 0.5,
		}))
	}
	return m
}

func TestSampleSet(t *testing.T) {
	c, err := Parse(strings.NewReader(mutau))
	require.NoError(t, err)
	op := tree.MemOpener{
		"data.root": events(t, 30, 75),
		"dy.root":   events(t, 20, 75),
		"tt.root":   events(t, 10, 25),
	}
	ss, err := c.SampleSet(Opener(op))
	require.NoError(t, err)
	defer ss.Close()

	var names []string
	for _, src := range ss.Sources() {
		names = append(names, src.Name())
	}
	assert.Equal(t, []string{"data_obs", "DY", "TT", "ggH125"}, names)

	vars, err := c.Variables()
	require.NoError(t, err)
	sels, err := c.Selections()
	require.NoError(t, err)

	results, err := ss.GetHists(vars[0], sels[0])
	require.NoError(t, err)
	require.Len(t, results, 1)
	hs := results[0].Hists
	require.NotNil(t, hs.Data)
	assert.InDelta(t, 30, hs.Data.Integral(), 1e-9)
	require.Len(t, hs.Exp, 2)
	assert.Equal(t, "TT", hs.Exp[0].Process)
	// 10 events at 2 pb with a 0.5 weight plus 10 events at 1 pb.
	assert.InDelta(t, 20, hs.Exp[0].Integral(), 1e-9)
	assert.InDelta(t, 20, hs.Exp[1].Integral(), 1e-9)
	assert.Empty(t, hs.Sig, "signal is not in the mt channel")
	assert.Contains(t, hs.Sys, "tauidUp")
}

func TestSampleSetErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown weight": "samples: [{name: DY, files: [dy.root], xsec: 1, weights: [nope]}]\n",
		"unknown kind":   "samples: [{name: DY, files: [dy.root], xsec: 1, kind: mc}]\n",
		"no xsec":        "samples: [{name: DY, files: [dy.root]}]\n",
		"bad join":       "samples: [{name: DY, files: [dy.root], xsec: 1}]\njoin: [{pattern: 'W*', name: W}]\n",
		"bad method":     "samples: [{name: DY, files: [dy.root], xsec: 1}]\nmethods: [ABCD]\n",
	} {
		c, err := Parse(strings.NewReader(doc))
		require.NoError(t, err, name)
		_, err = c.SampleSet(Opener(tree.MemOpener{}))
		assert.True(t, errors.Is(err, sample.ErrConfig), name)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	for _, f := range []string{"data/a.root", "data/b.root", "dy.root"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	doc := `
lumi: 59.7
samples:
  - {name: data_obs, kind: data, files: ["data/*.root"]}
  - {name: DY, files: [dy.root, /abs/dy.root], xsec: 1}
`
	path := filepath.Join(dir, "mt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir)

	files, err := c.files(c.Samples[0].Files)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "data/a.root"), filepath.Join(dir, "data/b.root")}, files)
	files, err = c.files(c.Samples[1].Files)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "dy.root"), "/abs/dy.root"}, files)

	_, err = c.files([]string{"mc/*.root"})
	assert.True(t, errors.Is(err, sample.ErrIO))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, sample.ErrIO))
}
