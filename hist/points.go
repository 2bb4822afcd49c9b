package hist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Point is one marker with asymmetric error bars. XLo/XHi and YLo/YHi are
// distances from (X, Y).
type Point struct {
	X, Y     float64
	XLo, XHi float64
	YLo, YHi float64
}

// oneSigma is the coverage of a ±1σ Gaussian interval.
const oneSigma = 0.682689492137086

// PoissonInterval returns the Garwood central confidence interval at 68%
// coverage for an observed count n. Non-integer counts are used as is.
func PoissonInterval(n float64) (lo, hi float64) {
	alpha := 1 - oneSigma
	if n > 0 {
		lo = 0.5 * distuv.ChiSquared{K: 2 * n}.Quantile(alpha/2)
	}
	hi = 0.5 * distuv.ChiSquared{K: 2 * (n + 1)}.Quantile(1-alpha/2)
	return lo, hi
}

// DataPoints returns the markers of observed data with Poisson errors.
// Empty bins are skipped unless keepZero is set.
func DataPoints(h *H1, keepZero bool) []Point {
	var pts []Point
	for i := 1; i <= h.NBins(); i++ {
		n := h.Content(i)
		if n <= 0 && !keepZero {
			continue
		}
		lo, hi := PoissonInterval(math.Max(n, 0))
		pts = append(pts, Point{
			X: h.Center(i), Y: n,
			XLo: h.Center(i) - h.LowEdge(i), XHi: h.LowEdge(i) + h.Width(i) - h.Center(i),
			YLo: n - lo, YHi: hi - n,
		})
	}
	return pts
}

// DataRatio divides observed data by a prediction. Errors are the Poisson
// errors of the data scaled by the prediction. Bins with no prediction or
// no data are left out.
func DataRatio(data, pred *H1) []Point {
	var pts []Point
	for i := 1; i <= data.NBins(); i++ {
		n, d := data.Content(i), pred.Content(i)
		if d == 0 || n <= 0 {
			continue
		}
		lo, hi := PoissonInterval(n)
		pts = append(pts, Point{
			X: data.Center(i), Y: n / d,
			XLo: data.Center(i) - data.LowEdge(i), XHi: data.LowEdge(i) + data.Width(i) - data.Center(i),
			YLo: (n - lo) / d, YHi: (hi - n) / d,
		})
	}
	return pts
}

// Ratio divides num by den with uncorrelated Gaussian errors. Bins with an
// empty denominator are left out.
func Ratio(num, den *H1) []Point {
	var pts []Point
	for i := 1; i <= num.NBins(); i++ {
		a, b := num.Content(i), den.Content(i)
		if b == 0 {
			continue
		}
		r := a / b
		var e float64
		if a != 0 {
			e = math.Abs(r) * math.Hypot(num.Error(i)/a, den.Error(i)/b)
		} else {
			e = num.Error(i) / math.Abs(b)
		}
		pts = append(pts, Point{
			X: num.Center(i), Y: r,
			XLo: num.Center(i) - num.LowEdge(i), XHi: num.LowEdge(i) + num.Width(i) - num.Center(i),
			YLo: e, YHi: e,
		})
	}
	return pts
}

// RelativeError returns, per regular bin, the relative statistical error
// of h, or NaN where h is empty. It draws the band around 1 in a ratio
// panel.
func RelativeError(h *H1) []float64 {
	rel := make([]float64, h.NBins())
	for i := range rel {
		if c := h.Content(i + 1); c != 0 {
			rel[i] = h.Error(i+1) / math.Abs(c)
		} else {
			rel[i] = math.NaN()
		}
	}
	return rel
}
