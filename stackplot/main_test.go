package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/tree"
)

const mutau = `
era: "2018"
lumi: 1
channel: mt
samples:
  - {name: data_obs, kind: data, files: [data.root]}
  - {name: DY, files: [dy.root], xsec: 1, nevents: 1000}
  - {name: TT, files: [tt.root], xsec: 1, nevents: 1000}
variables:
  - {name: m_vis, nbins: 4, lo: 0, hi: 200, units: GeV}
  - {name: pt_1, edges: [0, 30, 60, 200], only: [os]}
selections:
  - {name: os, title: "opposite sign", cut: "q_1*q_2<0"}
  - {name: ss, cut: "q_1*q_2>0"}
pairs: ["m_vis:pt_1"]
`

func writeTree(t *testing.T, path string, n int, mvis float64) {
	t.Helper()
	m := tree.NewMemory("Events", "m_vis", "pt_1", "q_1", "q_2")
	for i := range n {
		q := -1.0
		if i%4 == 0 {
			q = 1
		}
		require.NoError(t, m.Fill(map[string]float64{"m_vis": mvis, "pt_1": 45, "q_1": 1, "q_2": q}))
	}
	require.NoError(t, tree.WriteROOT(path, m))
}

func setup(t *testing.T) (dir, cat string) {
	dir = t.TempDir()
	writeTree(t, filepath.Join(dir, "data.root"), 40, 75)
	writeTree(t, filepath.Join(dir, "dy.root"), 30, 75)
	writeTree(t, filepath.Join(dir, "tt.root"), 10, 125)
	cat = filepath.Join(dir, "mt.yaml")
	require.NoError(t, os.WriteFile(cat, []byte(mutau), 0o644))
	return dir, cat
}

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestStackplot(t *testing.T) {
	dir, cat := setup(t)
	out := filepath.Join(dir, "plots")
	require.NoError(t, execute("-o", out, "--formats", "png,root", "--yields", "--tag", "_v1", cat))

	base := filepath.Join(out, "2018", "mt")
	for _, f := range []string{
		"m_vis-os-2018_v1.png", "m_vis-os-2018_v1.root",
		"m_vis-ss-2018_v1.png",
		"pt_1-os-2018_v1.png",
		"m_vis_vs_pt_1-os-2018_v1.png",
	} {
		assert.FileExists(t, filepath.Join(base, f))
	}
	assert.NoFileExists(t, filepath.Join(base, "pt_1-ss-2018_v1.png"))

	hs, err := hist.ReadFile(filepath.Join(base, "m_vis-os-2018_v1.root"))
	require.NoError(t, err)
	byName := map[string]*hist.H1{}
	for _, h := range hs {
		byName[h.Name] = h
	}
	require.Contains(t, byName, "data_obs")
	require.Contains(t, byName, "total")
	assert.InDelta(t, 30, byName["data_obs"].Integral(), 1e-9)
	// Both processes weigh one per event: 22 DY and 7 TT events pass.
	assert.InDelta(t, 29, byName["total"].Integral(), 1e-9)
}

func TestStackplotExpr(t *testing.T) {
	dir, cat := setup(t)
	out := filepath.Join(dir, "plots")
	require.NoError(t, execute("-o", out, "--formats", "png", "--sels", "o*",
		"--expr", "m_vis/2", "--name", "half_mvis", "--bins", "0,25,50,100", "--logy", cat))
	assert.FileExists(t, filepath.Join(out, "2018", "mt", "half_mvis-os-2018.png"))
	assert.NoFileExists(t, filepath.Join(out, "2018", "mt", "half_mvis-ss-2018.png"))

	err := execute("-o", out, "--expr", "m_vis", cat)
	assert.True(t, errors.Is(err, sample.ErrConfig))
	assert.Error(t, execute("-o", out, "--expr", "m_vis", "--bins", "0:0:1", cat))
	assert.Error(t, execute("-o", out, "--formats", "bmp", cat))
	assert.Error(t, execute(filepath.Join(dir, "missing.yaml")))
	assert.Error(t, execute())
}
