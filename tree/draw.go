package tree

import (
	"fmt"

	"github.com/decibelcooper/tauplot/internal/formula"
)

// Target receives the values of one set of expressions for every selected
// event. One expression fills a 1-D histogram, two fill a 2-D one.
type Target struct {
	Exprs []string
	Fill  func(vals []float64, w float64)
}

// Request is a weighted draw of several targets in a single pass over a
// tree.
type Request struct {
	Cut     string
	Weight  string
	Targets []Target
}

// Draw runs req over t and returns the number of selected events.
func Draw(t Tree, req Request) (int64, error) {
	br := t.Branches()
	cut, err := formula.Compile(req.Cut, br)
	if err != nil {
		return 0, fmt.Errorf("tree: bad selection in %q: %w: %w", t.Name(), ErrDraw, err)
	}
	wgt, err := formula.Compile(req.Weight, br)
	if err != nil {
		return 0, fmt.Errorf("tree: bad weight in %q: %w: %w", t.Name(), ErrDraw, err)
	}

	type target struct {
		fs   []*formula.Formula
		vals []float64
		fill func([]float64, float64)
	}
	targets := make([]target, len(req.Targets))
	for i, tgt := range req.Targets {
		if len(tgt.Exprs) == 0 {
			return 0, fmt.Errorf("tree: target %d has no expression: %w", i, ErrDraw)
		}
		targets[i].fill = tgt.Fill
		targets[i].vals = make([]float64, len(tgt.Exprs))
		for _, src := range tgt.Exprs {
			f, err := formula.Compile(src, br)
			if err != nil {
				return 0, fmt.Errorf("tree: bad expression in %q: %w: %w", t.Name(), ErrDraw, err)
			}
			targets[i].fs = append(targets[i].fs, f)
		}
	}

	var n int64
	err = t.Loop(func(evt Event) error {
		pass, err := cut.Bool(evt)
		if err != nil {
			return err
		}
		if !pass {
			return nil
		}
		w, err := wgt.Eval(evt)
		if err != nil {
			return err
		}
		n++
		for i := range targets {
			tgt := &targets[i]
			for j, f := range tgt.fs {
				tgt.vals[j], err = f.Eval(evt)
				if err != nil {
					return err
				}
			}
			tgt.fill(tgt.vals, w)
		}
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("tree: draw failed on %q: %w: %w", t.Name(), ErrDraw, err)
	}
	logger().Trace().Str("tree", t.Name()).Int64("selected", n).Msg("Tree: drew")
	return n, nil
}
