package sample

import (
	"fmt"
)

// Unpack turns the loose arguments accepted by SampleSet.GetHists into
// variables and a selection. Variables are given as *Variable,
// []*Variable, the positional tuple name, nbins, lo, hi, the pair name,
// []float64 edges, or those tuples packed in []any and [][]any. A
// trailing *Selection or string is the selection; a string is taken as
// a cut named after itself.
func Unpack(args ...any) ([]*Variable, *Selection, error) {
	args, sel := trailingSelection(args)
	vars, err := unpackVars(args)
	if err != nil {
		return nil, nil, err
	}
	if len(vars) == 0 {
		return nil, nil, fmt.Errorf("sample: no variable to draw: %w", ErrConfig)
	}
	return vars, sel, nil
}

// Unpack2D is Unpack for pairs of variables. Pairs are given as Pair,
// []Pair, [2]*Variable, [][2]*Variable or []any holding two variable
// tuples. The first member is always the x axis.
func Unpack2D(args ...any) ([]Pair, *Selection, error) {
	args, sel := trailingSelection(args)
	var pairs []Pair
	for _, a := range args {
		switch a := a.(type) {
		case Pair:
			pairs = append(pairs, a)
		case []Pair:
			pairs = append(pairs, a...)
		case [2]*Variable:
			pairs = append(pairs, Pair{a[0], a[1]})
		case [][2]*Variable:
			for _, p := range a {
				pairs = append(pairs, Pair{p[0], p[1]})
			}
		case []any:
			if len(a) != 2 {
				return nil, nil, fmt.Errorf("sample: a pair needs two variables, got %d: %w", len(a), ErrConfig)
			}
			var p [2]*Variable
			for i, axis := range a {
				vs, err := unpackVars([]any{axis})
				if err != nil {
					return nil, nil, err
				}
				if len(vs) != 1 {
					return nil, nil, fmt.Errorf("sample: axis %d of a pair is %d variables: %w", i, len(vs), ErrConfig)
				}
				p[i] = vs[0]
			}
			pairs = append(pairs, Pair{p[0], p[1]})
		default:
			return nil, nil, fmt.Errorf("sample: cannot unpack %T as a pair of variables: %w", a, ErrConfig)
		}
	}
	for _, p := range pairs {
		if p.X == nil || p.Y == nil {
			return nil, nil, fmt.Errorf("sample: incomplete pair of variables: %w", ErrConfig)
		}
	}
	if len(pairs) == 0 {
		return nil, nil, fmt.Errorf("sample: no pair of variables to draw: %w", ErrConfig)
	}
	return pairs, sel, nil
}

func trailingSelection(args []any) ([]any, *Selection) {
	if len(args) == 0 {
		return args, nil
	}
	switch last := args[len(args)-1].(type) {
	case *Selection:
		return args[:len(args)-1], last
	case string:
		return args[:len(args)-1], NewSelection(last, last)
	}
	return args, nil
}

func unpackVars(args []any) ([]*Variable, error) {
	var vars []*Variable
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case *Variable:
			vars = append(vars, a)
		case []*Variable:
			vars = append(vars, a...)
		case []any:
			vs, err := unpackVars(a)
			if err != nil {
				return nil, err
			}
			vars = append(vars, vs...)
		case [][]any:
			for _, tuple := range a {
				vs, err := unpackVars(tuple)
				if err != nil {
					return nil, err
				}
				vars = append(vars, vs...)
			}
		case string:
			v, n, err := positional(a, args[i+1:])
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
			i += n
		default:
			return nil, fmt.Errorf("sample: cannot unpack %T as a variable: %w", a, ErrConfig)
		}
	}
	return vars, nil
}

// positional reads the binning following a variable name and returns how
// many arguments it used.
func positional(name string, rest []any) (*Variable, int, error) {
	if len(rest) >= 1 {
		if edges, ok := rest[0].([]float64); ok {
			v, err := NewVariable(name, Edges(edges...))
			return v, 1, err
		}
	}
	if len(rest) < 3 {
		return nil, 0, fmt.Errorf("sample: variable %q needs nbins, lo, hi or edges: %w", name, ErrConfig)
	}
	n, ok := rest[0].(int)
	if !ok {
		return nil, 0, fmt.Errorf("sample: variable %q: nbins is %T, want int: %w", name, rest[0], ErrConfig)
	}
	lo, ok1 := number(rest[1])
	hi, ok2 := number(rest[2])
	if !ok1 || !ok2 {
		return nil, 0, fmt.Errorf("sample: variable %q: bad range (%v, %v): %w", name, rest[1], rest[2], ErrConfig)
	}
	v, err := NewVariable(name, Bins(n, lo, hi))
	return v, 3, err
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
