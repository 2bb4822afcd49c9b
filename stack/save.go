package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/decibelcooper/tauplot/hist"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultFormats are written by SaveAs when neither the file name nor the
// caller names a format.
var DefaultFormats = []string{"png", "pdf"}

var knownFormats = []string{"png", "pdf", "svg", "eps", "jpg", "jpeg", "tif", "tiff", "tex", "root"}

// OutputPath returns the path, without extension, under which the plot
// of a variable in a selection is stored:
// dir/era/channel/var-sel-era<tag>.
func OutputPath(dir, era, channel, varname, sel, tag string) string {
	return filepath.Join(dir, era, channel, fmt.Sprintf("%s-%s-%s%s", varname, sel, era, tag))
}

// splitFormat cuts a known format extension off fname.
func splitFormat(fname string) (base, format string) {
	ext := filepath.Ext(fname)
	if f := strings.ToLower(strings.TrimPrefix(ext, ".")); slices.Contains(knownFormats, f) {
		return strings.TrimSuffix(fname, ext), f
	}
	return fname, ""
}

// formats resolves the output formats of a SaveAs call.
func formats(fname string, exts []string) (base string, fs []string, err error) {
	base, f := splitFormat(fname)
	switch {
	case len(exts) > 0:
		for _, e := range exts {
			e = strings.ToLower(strings.TrimPrefix(e, "."))
			if !slices.Contains(knownFormats, e) {
				return "", nil, fmt.Errorf("stack: output format %q: %w", e, ErrConfig)
			}
			if !slices.Contains(fs, e) {
				fs = append(fs, e)
			}
		}
	case f != "":
		fs = []string{f}
	default:
		fs = DefaultFormats
	}
	return base, fs, nil
}

// SaveAs renders the plot and writes it in every requested format. The
// formats come from exts, or from the extension of fname, or are
// DefaultFormats. "root" stores the histograms instead of the picture.
// Files are written next to their destination and renamed into place.
func (p *Plot) SaveAs(fname string, exts ...string) error {
	if err := p.ensureDrawn(); err != nil {
		return err
	}
	base, fs, err := formats(fname, exts)
	if err != nil {
		return err
	}
	return save(base, fs, p.width, p.height, p.render, p.writeROOT)
}

func (p *Plot) writeROOT(path string) error {
	if p.mode == stacked {
		return p.hs.WriteFile(path)
	}
	objs := make([]hist.Object, len(p.comp))
	for i, h := range p.comp {
		objs[i] = h
	}
	return hist.WriteFile(path, objs...)
}

func save(base string, fs []string, w, h vg.Length, render func(draw.Canvas), root func(string) error) error {
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("stack: could not create output directory: %w: %w", hist.ErrIO, err)
	}
	for _, f := range fs {
		path := base + "." + f
		var err error
		if f == "root" {
			err = root(path)
		} else {
			err = writeImage(path, f, w, h, render)
		}
		if err != nil {
			return err
		}
		logger().Info().Str("file", path).Msg("Plot: saved")
	}
	return nil
}

func writeImage(path, format string, w, h vg.Length, render func(draw.Canvas)) (err error) {
	cw, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return fmt.Errorf("stack: %q: %w: %w", path, ErrConfig, err)
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("stack: rendering %q: %v", path, r)
			}
		}()
		render(draw.New(cw))
	}()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".plot-*."+format)
	if err != nil {
		return fmt.Errorf("stack: could not create temporary file: %w: %w", hist.ErrIO, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err = cw.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("stack: could not write %q: %w: %w", path, hist.ErrIO, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("stack: could not close %q: %w: %w", path, hist.ErrIO, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("stack: could not move %q into place: %w: %w", path, hist.ErrIO, err)
	}
	return nil
}
