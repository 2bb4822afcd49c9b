package hist

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrBinning reports malformed or incompatible bin edges.
var ErrBinning = errors.New("hist: bad binning")

// Binning is a sequence of strictly increasing bin edges.
type Binning struct {
	edges   []float64
	uniform bool
}

// Uniform returns n equal-width bins spanning [lo, hi).
func Uniform(n int, lo, hi float64) Binning {
	edges := make([]float64, n+1)
	if n > 0 {
		w := (hi - lo) / float64(n)
		for i := range edges {
			edges[i] = lo + float64(i)*w
		}
		edges[n] = hi
	}
	return Binning{edges: edges, uniform: true}
}

// Variable returns bins with explicit edges.
func Variable(edges ...float64) Binning {
	return Binning{edges: append([]float64(nil), edges...)}
}

// Validate reports whether the edges describe at least one bin and are
// strictly increasing.
func (b Binning) Validate() error {
	if len(b.edges) < 2 {
		return fmt.Errorf("%w: need at least two edges, got %d", ErrBinning, len(b.edges))
	}
	for i := 1; i < len(b.edges); i++ {
		if math.IsNaN(b.edges[i]) || !(b.edges[i] > b.edges[i-1]) {
			return fmt.Errorf("%w: edges not increasing at %d (%g, %g)", ErrBinning, i, b.edges[i-1], b.edges[i])
		}
	}
	return nil
}

func (b Binning) NBins() int {
	if len(b.edges) < 2 {
		return 0
	}
	return len(b.edges) - 1
}

// Edges returns a copy of the bin edges.
func (b Binning) Edges() []float64 { return append([]float64(nil), b.edges...) }

func (b Binning) Range() (lo, hi float64) {
	if len(b.edges) == 0 {
		return 0, 0
	}
	return b.edges[0], b.edges[len(b.edges)-1]
}

func (b Binning) IsUniform() bool { return b.uniform }

// Find returns the bin holding x: 0 for underflow, NBins()+1 for overflow
// and -1 for NaN.
func (b Binning) Find(x float64) int {
	n := b.NBins()
	switch {
	case math.IsNaN(x):
		return -1
	case n == 0:
		return -1
	case x < b.edges[0]:
		return 0
	case x >= b.edges[n]:
		return n + 1
	}
	return sort.Search(n+1, func(i int) bool { return b.edges[i] > x })
}

// Equal reports whether both binnings have the same edges, up to rounding.
func (b Binning) Equal(o Binning) bool {
	if len(b.edges) != len(o.edges) {
		return false
	}
	for i, e := range b.edges {
		if math.Abs(e-o.edges[i]) > 1e-9*(1+math.Abs(e)) {
			return false
		}
	}
	return true
}

// Covers reports whether b spans at least the range of o.
func (b Binning) Covers(o Binning) bool {
	lo, hi := b.Range()
	olo, ohi := o.Range()
	return lo <= olo && hi >= ohi
}

func (b Binning) String() string {
	if b.uniform && len(b.edges) > 1 {
		lo, hi := b.Range()
		return fmt.Sprintf("(%d, %g, %g)", b.NBins(), lo, hi)
	}
	s := make([]string, len(b.edges))
	for i, e := range b.edges {
		s[i] = strconv.FormatFloat(e, 'g', -1, 64)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
