package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/tauplot/catalog"
	"github.com/decibelcooper/tauplot/sample"
	"github.com/decibelcooper/tauplot/tree"
)

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func entries(t *testing.T, path string) int64 {
	t.Helper()
	tr, err := tree.RootOpener{}.Open(path, "Events")
	require.NoError(t, err)
	defer tr.Close()
	return tr.Entries()
}

func TestMkpseudo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute("-o", dir, "-n", "300", "--seed", "7"))

	for _, f := range []string{"DY.root", "TT.root", "W.root", "ggH125.root"} {
		assert.Equal(t, int64(300), entries(t, filepath.Join(dir, f)), f)
	}
	// About 3400 pseudo-data events are expected.
	n := entries(t, filepath.Join(dir, "data.root"))
	assert.InDelta(t, 3400, n, 300)

	c, err := catalog.Load(filepath.Join(dir, "mt.yaml"))
	require.NoError(t, err)
	require.Len(t, c.Samples, 5)
	assert.Equal(t, "data_obs", c.Samples[0].Name)
	vars, err := c.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 3)
	assert.NotNil(t, vars[0].BlindFor(sample.NewSelection("os", "q_1*q_2<0")))
	assert.Equal(t, 8, vars[0].BinningFor(sample.NewSelection("os_1jet", "")).NBins())
	sels, err := c.Selections()
	require.NoError(t, err)

	ss, err := c.SampleSet()
	require.NoError(t, err)
	defer ss.Close()
	results, err := ss.GetHists(vars[1], sels[0])
	require.NoError(t, err)
	require.Len(t, results, 1)
	hs := results[0].Hists
	require.Len(t, hs.Exp, 3)
	assert.Equal(t, "TT", hs.Exp[0].Process)
	require.Len(t, hs.Sig, 1)
	exp, err := hs.ExpSum()
	require.NoError(t, err)
	// Roughly 85% of the 3400 expected events are opposite sign.
	assert.InEpsilon(t, 0.85*3400, exp.Integral(), 0.15)
	assert.InEpsilon(t, exp.Integral(), hs.Data.Integral(), 0.15)
	assert.Len(t, hs.Sys["tauidUp"], 3)
}

func TestMkpseudoSeed(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, execute("-o", a, "-n", "50", "--seed", "3"))
	require.NoError(t, execute("-o", b, "-n", "50", "--seed", "3"))
	assert.Equal(t, entries(t, filepath.Join(a, "data.root")), entries(t, filepath.Join(b, "data.root")))

	ya, err := os.ReadFile(filepath.Join(a, "mt.yaml"))
	require.NoError(t, err)
	yb, err := os.ReadFile(filepath.Join(b, "mt.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(ya), string(yb))
}

func TestMkpseudoErrors(t *testing.T) {
	err := execute("-o", t.TempDir(), "-n", "0")
	assert.True(t, errors.Is(err, sample.ErrConfig))
	assert.Error(t, execute("extra"))
}
