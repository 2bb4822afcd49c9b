package hist

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/root"
)

// ErrIO reports histogram files that cannot be written or read.
var ErrIO = errors.New("hist: io error")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "Hist").Logger()
	return &l
}

// Object is anything that can be stored in a ROOT file by WriteFile.
type Object interface {
	rootObject() (name string, obj root.Object)
}

func (h *H1) rootObject() (string, root.Object) { return h.Name, rhist.NewH1DFrom(h.HBook()) }
func (h *H2) rootObject() (string, root.Object) { return h.Name, rhist.NewH2DFrom(h.HBook()) }

// WriteFile stores objs in a new ROOT file under their names. The file is
// written next to path and renamed into place once complete, so readers
// never see a partial file.
func WriteFile(path string, objs ...Object) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hist-*.root")
	if err != nil {
		return fmt.Errorf("hist: could not create temporary file: %w: %w", ErrIO, err)
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
		return fmt.Errorf("hist: could not create %q: %w: %w", path, ErrIO, err)
	}
	seen := make(map[string]bool, len(objs))
	for _, o := range objs {
		name, obj := o.rootObject()
		if seen[name] {
			f.Close()
			return fmt.Errorf("hist: duplicate key %q in %q: %w", name, path, ErrIO)
		}
		seen[name] = true
		if err := f.Put(name, obj); err != nil {
			f.Close()
			return fmt.Errorf("hist: could not write %q to %q: %w: %w", name, path, ErrIO, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("hist: could not close %q: %w: %w", path, ErrIO, err)
	}
	if err := os.Rename(tmpname, path); err != nil {
		return fmt.Errorf("hist: could not move %q into place: %w: %w", path, ErrIO, err)
	}
	logger().Debug().Str("file", path).Int("objects", len(objs)).Msg("Hist: wrote")
	return nil
}

type rootH1 interface {
	Name() string
	Title() string
	NbinsX() int
	XBinLowEdge(i int) float64
	XBinWidth(i int) float64
	XBinContent(i int) float64
	XBinError(i int) float64
}

// ReadFile returns the one-dimensional histograms stored at the top level
// of a ROOT file, in key order. Other objects are skipped.
func ReadFile(path string) ([]*H1, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hist: could not open %q: %w: %w", path, ErrIO, err)
	}
	defer f.Close()

	var hs []*H1
	for _, k := range f.Keys() {
		obj, err := f.Get(k.Name())
		if err != nil {
			return nil, fmt.Errorf("hist: could not read %q from %q: %w: %w", k.Name(), path, ErrIO, err)
		}
		rh, ok := obj.(rootH1)
		if !ok {
			logger().Debug().Str("key", k.Name()).Msgf("Hist: skipping %T", obj)
			continue
		}
		hs = append(hs, fromROOT(rh))
	}
	return hs, nil
}

func fromROOT(rh rootH1) *H1 {
	n := rh.NbinsX()
	edges := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		edges[i-1] = rh.XBinLowEdge(i)
	}
	edges[n] = rh.XBinLowEdge(n) + rh.XBinWidth(n)
	h := NewH1(rh.Name(), rh.Title(), Variable(edges...))
	for i := 0; i <= n+1; i++ {
		h.SetContent(i, rh.XBinContent(i))
		h.SetError(i, rh.XBinError(i))
	}
	return h
}

// Named returns the histograms of hs under the names downstream tools
// expect: data_obs for the data, the sample name for every process,
// the sample name and tag for every variation, and total for the sum of
// expected histograms.
func (hs *HistSet) Named() ([]*H1, error) {
	var out []*H1
	add := func(h *H1, name string) {
		c := h.Clone()
		c.Name = name
		out = append(out, c)
	}
	if hs.Data != nil {
		add(hs.Data, "data_obs")
	}
	for _, h := range hs.Exp {
		add(h, keyName(h))
	}
	for _, h := range hs.Sig {
		add(h, keyName(h))
	}
	tags := slices.Sorted(maps.Keys(hs.Sys))
	for _, tag := range tags {
		for _, h := range hs.Sys[tag] {
			add(h, keyName(h)+"_"+tag)
		}
	}
	sum, err := hs.ExpSum()
	if err != nil {
		return nil, err
	}
	if sum != nil {
		add(sum, "total")
	}
	return out, nil
}

// WriteFile stores the set as returned by Named.
func (hs *HistSet) WriteFile(path string) error {
	named, err := hs.Named()
	if err != nil {
		return err
	}
	objs := make([]Object, len(named))
	for i, h := range named {
		objs[i] = h
	}
	return WriteFile(path, objs...)
}

func keyName(h *H1) string {
	if h.Process != "" {
		return h.Process
	}
	return h.Name
}
