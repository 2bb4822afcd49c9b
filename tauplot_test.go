package tauplot

import (
	"errors"
	"testing"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"
)

func labeled(ticks []plot.Tick) []float64 {
	var vs []float64
	for _, t := range ticks {
		if t.Label != "" {
			vs = append(vs, t.Value)
		}
	}
	return vs
}

func TestPreciseTicks(t *testing.T) {
	ticks := PreciseTicks{NSuggestedTicks: 5}.Ticks(0, 200)
	assert.Equal(t, []float64{0, 50, 100, 150, 200}, labeled(ticks))
	for _, tk := range ticks {
		assert.GreaterOrEqual(t, tk.Value, 0.0)
		assert.LessOrEqual(t, tk.Value, 200.0)
	}

	ticks = PreciseTicks{NSuggestedTicks: 5}.Ticks(0, 0.3)
	for _, tk := range ticks {
		if tk.Label != "" {
			assert.LessOrEqual(t, len(tk.Label), 4, tk.Label)
		}
	}

	assert.Len(t, PreciseTicks{}.Ticks(1, 1), 1)
}

func TestPreciseTicksEdges(t *testing.T) {
	edges := []float64{0, 30, 50, 70, 90, 120, 200}
	ticks := PreciseTicks{NSuggestedTicks: 5, Edges: edges}.Ticks(0, 200)

	var minor []float64
	for _, tk := range ticks {
		if tk.IsMinor() {
			minor = append(minor, tk.Value)
		}
	}
	assert.Equal(t, []float64{30, 70, 90, 120}, minor)

	many := hist.Uniform(100, 0, 200).Edges()
	ticks = PreciseTicks{NSuggestedTicks: 5, Edges: many}.Ticks(0, 200)
	assert.Less(t, len(ticks), 50)
}

func TestUnlabeled(t *testing.T) {
	for _, tk := range (Unlabeled{PreciseTicks{}}).Ticks(0, 10) {
		assert.Empty(t, tk.Label)
	}
}

func TestLogAxis(t *testing.T) {
	p := plot.New()
	LogAxis(&p.Y)
	assert.IsType(t, plot.LogScale{}, p.Y.Scale)
	assert.NotEmpty(t, p.Y.Tick.Marker.Ticks(0.1, 1000))
}

func TestBinningFlag(t *testing.T) {
	var f BinningFlag
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&f, "bins", "binning")

	_, err := f.Binning()
	assert.True(t, errors.Is(err, hist.ErrBinning))
	assert.False(t, f.IsSet())

	require.NoError(t, fs.Parse([]string{"--bins", "40:0:200"}))
	b, err := f.Binning()
	require.NoError(t, err)
	assert.Equal(t, 40, b.NBins())
	assert.True(t, b.IsUniform())
	assert.Equal(t, "40:0:200", f.String())
	assert.Equal(t, "binning", f.Type())

	var g BinningFlag
	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&g, "bins", "binning")
	require.NoError(t, fs.Parse([]string{"--bins", "0,30,50", "--bins", "70, 200"}))
	b, err = g.Binning()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 30, 50, 70, 200}, b.Edges())
	assert.Equal(t, "0,30,50,70,200", g.String())

	for _, bad := range []string{"x:0:1", "10:0", "0:0:1", "1,a"} {
		var h BinningFlag
		assert.Error(t, h.Set(bad), bad)
	}

	var dec BinningFlag
	require.NoError(t, dec.Set("0,20,10"))
	_, err = dec.Binning()
	assert.True(t, errors.Is(err, hist.ErrBinning))
}
