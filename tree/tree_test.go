package tree

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory("Events", "m_vis", "pt_1", "njets", "genWeight")
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Fill(map[string]float64{
			"m_vis":     float64(10 * i),
			"pt_1":      float64(20 + 5*i),
			"njets":     float64(i % 3),
			"genWeight": 0.5,
		}))
	}
	return m
}

func TestDraw(t *testing.T) {
	m := fixture(t)

	var sum1, sumw1 float64
	var pairs [][2]float64
	n, err := Draw(m, Request{
		Cut:    "pt_1>30 && njets>=1",
		Weight: "genWeight",
		Targets: []Target{
			{Exprs: []string{"m_vis"}, Fill: func(v []float64, w float64) {
				sum1 += v[0]
				sumw1 += w
			}},
			{Exprs: []string{"m_vis", "pt_1"}, Fill: func(v []float64, w float64) {
				pairs = append(pairs, [2]float64{v[0], v[1]})
			}},
		},
	})
	require.NoError(t, err)

	// pt_1>30 keeps i>=3; njets>=1 drops i=3,6,9.
	assert.Equal(t, int64(4), n)
	assert.Equal(t, 40.0+50+70+80, sum1)
	assert.Equal(t, 2.0, sumw1)
	require.Len(t, pairs, 4)
	assert.Equal(t, [2]float64{40, 40}, pairs[0])
}

func TestDrawUnknownBranch(t *testing.T) {
	_, err := Draw(fixture(t), Request{
		Targets: []Target{{Exprs: []string{"nope"}, Fill: func([]float64, float64) {}}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDraw))
}

func TestDrawEmptyTree(t *testing.T) {
	m := NewMemory("Events", "x")
	filled := false
	n, err := Draw(m, Request{Targets: []Target{{Exprs: []string{"x"}, Fill: func([]float64, float64) { filled = true }}}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, filled)
}

func TestMemOpener(t *testing.T) {
	op := MemOpener{"dy.root": fixture(t)}
	_, err := op.Open("missing.root", "Events")
	assert.True(t, errors.Is(err, ErrIO))
	_, err = op.Open("dy.root", "tree")
	assert.True(t, errors.Is(err, ErrIO))
	tr, err := op.Open("dy.root", "Events")
	require.NoError(t, err)
	assert.Equal(t, int64(10), tr.Entries())
}

func TestFillUnknownBranch(t *testing.T) {
	m := NewMemory("Events", "x")
	assert.Error(t, m.Fill(map[string]float64{"y": 1}))
}

func TestROOTRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "dy.root")
	require.NoError(t, WriteROOT(fname, fixture(t)))

	tr, err := RootOpener{}.Open(fname, "Events")
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, int64(10), tr.Entries())
	assert.Contains(t, tr.Branches(), "m_vis")

	var total float64
	n, err := Draw(tr, Request{
		Cut: "njets==0",
		Targets: []Target{{Exprs: []string{"m_vis"}, Fill: func(v []float64, w float64) {
			total += v[0] * w
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, 0.0+30+60+90, total)

	_, err = RootOpener{}.Open(filepath.Join(t.TempDir(), "missing.root"), "Events")
	assert.True(t, errors.Is(err, ErrIO))
}
