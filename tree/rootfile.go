package tree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// RootOpener opens trees stored in ROOT files.
type RootOpener struct{}

func (RootOpener) Open(path, treename string) (Tree, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tree: could not open %q: %w: %w", path, ErrIO, err)
	}
	obj, err := f.Get(treename)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tree: could not find %q in %q: %w: %w", treename, path, ErrIO, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("tree: %q in %q is a %T, not a tree: %w", treename, path, obj, ErrIO)
	}

	rt := &rootTree{f: f, t: t, path: path}
	for _, rv := range rtree.NewReadVars(t) {
		switch rv.Value.(type) {
		case *float32, *float64,
			*int8, *int16, *int32, *int64,
			*uint8, *uint16, *uint32, *uint64,
			*bool:
			rt.vars = append(rt.vars, rv)
			rt.protos = append(rt.protos, 0.0)
		case *[]float32, *[]float64, *[]int32, *[]int64, *[]bool:
			rt.vars = append(rt.vars, rv)
			rt.protos = append(rt.protos, []float64(nil))
		default:
			logger().Debug().Str("branch", rv.Name).Msgf("Tree: skipping branch of type %T", rv.Value)
		}
	}
	return rt, nil
}

type rootTree struct {
	f      *riofs.File
	t      rtree.Tree
	path   string
	vars   []rtree.ReadVar
	protos []any
}

func (t *rootTree) Name() string   { return t.t.Name() }
func (t *rootTree) Entries() int64 { return t.t.Entries() }

func (t *rootTree) Branches() map[string]any {
	br := make(map[string]any, len(t.vars))
	for i, rv := range t.vars {
		br[rv.Name] = t.protos[i]
	}
	return br
}

func (t *rootTree) Loop(fn func(evt Event) error) error {
	r, err := rtree.NewReader(t.t, t.vars)
	if err != nil {
		return fmt.Errorf("tree: could not create reader for %q: %w: %w", t.path, ErrIO, err)
	}
	defer r.Close()

	evt := make(Event, len(t.vars))
	err = r.Read(func(ctx rtree.RCtx) error {
		for _, rv := range t.vars {
			evt[rv.Name] = convert(rv.Value)
		}
		return fn(evt)
	})
	if err != nil {
		return fmt.Errorf("tree: could not read %q: %w", t.path, err)
	}
	return nil
}

func (t *rootTree) Close() error {
	return t.f.Close()
}

func convert(v any) any {
	switch v := v.(type) {
	case *float64:
		return *v
	case *float32:
		return float64(*v)
	case *int8:
		return float64(*v)
	case *int16:
		return float64(*v)
	case *int32:
		return float64(*v)
	case *int64:
		return float64(*v)
	case *uint8:
		return float64(*v)
	case *uint16:
		return float64(*v)
	case *uint32:
		return float64(*v)
	case *uint64:
		return float64(*v)
	case *bool:
		if *v {
			return 1.0
		}
		return 0.0
	case *[]float64:
		return *v
	case *[]float32:
		out := make([]float64, len(*v))
		for i, x := range *v {
			out[i] = float64(x)
		}
		return out
	case *[]int32:
		out := make([]float64, len(*v))
		for i, x := range *v {
			out[i] = float64(x)
		}
		return out
	case *[]int64:
		out := make([]float64, len(*v))
		for i, x := range *v {
			out[i] = float64(x)
		}
		return out
	case *[]bool:
		out := make([]float64, len(*v))
		for i, x := range *v {
			if x {
				out[i] = 1
			}
		}
		return out
	}
	return nil
}

// WriteROOT writes the scalar branches of t to a new ROOT file. The file is
// written next to path and renamed into place once complete.
func WriteROOT(path string, t Tree) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tree-*.root")
	if err != nil {
		return fmt.Errorf("tree: could not create temporary file: %w: %w", ErrIO, err)
	}
	tmpname := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpname)
		}
	}()

	f, err := groot.Create(tmpname)
	if err != nil {
		return fmt.Errorf("tree: could not create %q: %w: %w", path, ErrIO, err)
	}
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
	}()

	var names []string
	for name, proto := range t.Branches() {
		if _, ok := proto.(float64); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	vals := make([]float64, len(names))
	wvars := make([]rtree.WriteVar, len(names))
	for i, name := range names {
		wvars[i] = rtree.WriteVar{Name: name, Value: &vals[i]}
	}
	w, err := rtree.NewWriter(f, t.Name(), wvars)
	if err != nil {
		return fmt.Errorf("tree: could not create tree writer: %w", err)
	}

	err = t.Loop(func(evt Event) error {
		for i, name := range names {
			vals[i], _ = evt[name].(float64)
		}
		_, err := w.Write()
		return err
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("tree: could not write %q: %w", path, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("tree: could not close tree writer: %w", err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return fmt.Errorf("tree: could not close %q: %w", path, err)
	}
	if err = os.Rename(tmpname, path); err != nil {
		return fmt.Errorf("tree: could not rename %q: %w: %w", path, ErrIO, err)
	}
	logger().Debug().Str("file", path).Int64("entries", t.Entries()).Msg("Tree: wrote tree")
	return nil
}
