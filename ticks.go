// Package tauplot holds the axis and command-line helpers shared by the
// plotting packages and tools of the tau-lepton plotting core.
package tauplot

import (
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks is an axis ticker whose labels carry exactly the precision
// of the tick spacing.
//
// When Edges is set and the axis shows at most MaxEdges of them, the minor
// ticks are placed on the bin edges instead of a regular subdivision, so
// variable-width binnings can be read off the axis.
type PreciseTicks struct {
	NSuggestedTicks int
	Edges           []float64
	MaxEdges        int
}

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if t.NSuggestedTicks < 2 {
		t.NSuggestedTicks = 4
	}
	if t.MaxEdges == 0 {
		t.MaxEdges = 40
	}
	if !(max > min) {
		return []plot.Tick{{Value: min, Label: formatFloatTick(min)}}
	}

	tens := math.Pow10(int(math.Floor(math.Log10(max - min))))
	n := (max - min) / tens
	for n < float64(t.NSuggestedTicks)-1 {
		tens /= 10
		n = (max - min) / tens
	}

	majorMult := int(n / float64(t.NSuggestedTicks-1))
	switch majorMult {
	case 0:
		majorMult = 1
	case 7:
		majorMult = 6
	case 9:
		majorMult = 8
	}
	majorDelta := float64(majorMult) * tens
	prec := max0(-int(math.Floor(math.Log10(majorDelta))))

	var ticks []plot.Tick
	for val := math.Ceil(min/majorDelta) * majorDelta; val <= max+majorDelta*1e-9; val += majorDelta {
		v := round(val, prec)
		ticks = append(ticks, plot.Tick{Value: v, Label: formatFloatTick(v)})
	}
	major := func(v float64) bool {
		return slices.ContainsFunc(ticks, func(t plot.Tick) bool {
			return math.Abs(t.Value-v) <= majorDelta*1e-9
		})
	}

	if edges := inRange(t.Edges, min, max); len(edges) > 0 && len(edges) <= t.MaxEdges {
		for _, e := range edges {
			if !major(e) {
				ticks = append(ticks, plot.Tick{Value: e})
			}
		}
		return ticks
	}

	minorDelta := majorDelta / 2
	switch majorMult {
	case 3, 6:
		minorDelta = majorDelta / 3
	case 5:
		minorDelta = majorDelta / 5
	}
	for val := math.Ceil(min/minorDelta) * minorDelta; val <= max; val += minorDelta {
		v := round(val, prec+1)
		if !major(v) {
			ticks = append(ticks, plot.Tick{Value: v})
		}
	}
	return ticks
}

func inRange(edges []float64, min, max float64) []float64 {
	var out []float64
	for _, e := range edges {
		if e >= min && e <= max {
			out = append(out, e)
		}
	}
	return out
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// LogAxis switches a to a logarithmic scale with decade labels.
func LogAxis(a *plot.Axis) {
	a.Scale = plot.LogScale{}
	a.Tick.Marker = plot.LogTicks{Prec: -1}
}

// Unlabeled drops the labels of the ticks of another ticker. It is used
// for the x axis of a main pad that shares it with a ratio pad below.
type Unlabeled struct {
	plot.Ticker
}

func (t Unlabeled) Ticks(min, max float64) []plot.Tick {
	ticks := t.Ticker.Ticks(min, max)
	for i := range ticks {
		ticks[i].Label = ""
	}
	return ticks
}

func round(x float64, prec int) float64 {
	if x == 0 {
		// Make sure zero is returned
		// without the negative bit set.
		return 0
	}
	if prec >= 0 && x == math.Trunc(x) {
		return x
	}
	pow := math.Pow10(prec)
	intermed := x * pow
	if math.IsInf(intermed, 0) {
		return x
	}
	if x < 0 {
		x = math.Ceil(intermed - 0.5)
	} else {
		x = math.Floor(intermed + 0.5)
	}
	if x == 0 {
		return 0
	}
	return x / pow
}

func formatFloatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
