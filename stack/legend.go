package stack

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LegendOptions control the legend of a Plot.
type LegendOptions struct {
	// Pos is a position code of one vertical letter (T, M, B) and one
	// horizontal letter (L, C, R) in any order, e.g. "TR" or "LB". A
	// doubled letter doubles the margin on that axis ("TTRR"). "auto"
	// or an empty code places the legend in the corner that keeps the
	// largest distance to the histograms.
	Pos    string
	Header string
	// NCols is the number of columns; 0 picks one from the number of
	// entries. Columns are dropped while the legend is wider than the
	// axes.
	NCols int
}

// Box is a rectangle in fractions of the axes area.
type Box struct {
	X0, Y0, X1, Y1 float64
}

func (b Box) W() float64 { return b.X1 - b.X0 }
func (b Box) H() float64 { return b.Y1 - b.Y0 }

const (
	legendMargin = 0.03
	entryHeight  = 0.055
	thumbWidth   = 0.07
	charWidth    = 0.016
	maxWidth     = 1 - 2*legendMargin
)

type entry struct {
	label string
	thumb thumbnailer
}

type legend struct {
	opts    LegendOptions
	entries []entry
	ncols   int
	box     Box
	pos     string
}

// DrawLegend adds a legend to the plot. Draw is called with default
// options first if it has not been called yet.
func (p *Plot) DrawLegend(opts LegendOptions) error {
	if err := p.ensureDrawn(); err != nil {
		return err
	}
	if _, _, _, _, err := parsePos(opts.Pos); err != nil {
		return err
	}
	if opts.NCols < 0 {
		return fmt.Errorf("stack: %d legend columns: %w", opts.NCols, ErrConfig)
	}
	p.legend = &legend{opts: opts}
	p.placeLegend()
	return nil
}

// LegendBox returns the position of the legend and whether there is one.
func (p *Plot) LegendBox() (Box, bool) {
	if p.legend == nil {
		return Box{}, false
	}
	return p.legend.box, true
}

func (p *Plot) placeLegend() {
	l := p.legend
	l.entries = p.legendEntries()
	if len(l.entries) == 0 && l.opts.Header == "" {
		l.box = Box{}
		return
	}

	w, h := l.size()
	if w > maxWidth || h > 1-2*legendMargin {
		p.warn("legend of %d entries does not fit the axes", len(l.entries))
	}

	if auto(l.opts.Pos) {
		best, clear := "", math.Inf(-1)
		for _, pos := range []string{"TR", "TL", "BR", "BL"} {
			b := boxAt(pos, w, h)
			if c := p.clearance(b); c > clear {
				best, clear = pos, c
			}
		}
		l.pos = best
	} else {
		l.pos = l.opts.Pos
	}
	l.box = boxAt(l.pos, w, h)

	// Raise the y range until nothing drawn reaches into a legend at the
	// top.
	v, _, _, _, _ := parsePos(l.pos)
	if y, ok := p.highestUnder(l.box); ok && v == 'T' && p.normY(y) > l.box.Y0 {
		if l.box.Y0 < 0.1 {
			p.warn("legend too tall to clear the histograms")
			return
		}
		p.raiseY(y, l.box.Y0)
	}
}

// size picks the number of columns and returns the legend size.
func (l *legend) size() (w, h float64) {
	n := len(l.entries)
	ncols := l.opts.NCols
	if ncols == 0 {
		switch {
		case n <= 4:
			ncols = 1
		case n <= 8:
			ncols = 2
		default:
			ncols = 3
		}
	}
	ncols = max(1, min(ncols, n))

	var chars int
	for _, e := range l.entries {
		chars = max(chars, visibleLen(e.label))
	}
	colW := thumbWidth + charWidth*float64(chars)
	for ncols > 1 && float64(ncols)*colW > maxWidth {
		ncols--
	}
	l.ncols = ncols

	rows := (n + ncols - 1) / ncols
	if l.opts.Header != "" {
		rows++
		colW = max(colW, charWidth*float64(visibleLen(l.opts.Header))/float64(ncols))
	}
	return float64(ncols) * colW, float64(rows) * entryHeight
}

// auto reports whether pos asks for automatic placement.
func auto(pos string) bool {
	return pos == "" || strings.EqualFold(pos, "auto")
}

// parsePos splits a position code into its vertical and horizontal
// letters and their margins.
func parsePos(pos string) (v, h byte, vm, hm float64, err error) {
	if auto(pos) {
		return 'T', 'R', legendMargin, legendMargin, nil
	}
	var nv, nh int
	for _, r := range strings.ToUpper(pos) {
		switch r {
		case 'T', 'M', 'B':
			if nv > 0 && byte(r) != v {
				return 0, 0, 0, 0, fmt.Errorf("stack: legend position %q: %w", pos, ErrConfig)
			}
			v = byte(r)
			nv++
		case 'L', 'C', 'R':
			if nh > 0 && byte(r) != h {
				return 0, 0, 0, 0, fmt.Errorf("stack: legend position %q: %w", pos, ErrConfig)
			}
			h = byte(r)
			nh++
		default:
			return 0, 0, 0, 0, fmt.Errorf("stack: legend position %q: %w", pos, ErrConfig)
		}
	}
	if nv == 0 {
		v, nv = 'T', 1
	}
	if nh == 0 {
		h, nh = 'R', 1
	}
	if nv > 2 || nh > 2 {
		return 0, 0, 0, 0, fmt.Errorf("stack: legend position %q: %w", pos, ErrConfig)
	}
	return v, h, legendMargin * float64(nv), legendMargin * float64(nh), nil
}

// boxAt places a w×h legend at a validated position code.
func boxAt(pos string, w, h float64) Box {
	v, hz, vm, hm, _ := parsePos(pos)
	var b Box
	switch hz {
	case 'L':
		b.X0 = hm
	case 'C':
		b.X0 = (1 - w) / 2
	default:
		b.X0 = 1 - hm - w
	}
	switch v {
	case 'B':
		b.Y0 = vm
	case 'M':
		b.Y0 = (1 - h) / 2
	default:
		b.Y0 = 1 - vm - h
	}
	b.X1, b.Y1 = b.X0+w, b.Y0+h
	return b
}

// clearance is the vertical distance between the bottom of b and the
// highest point drawn under it. Negative values are overlaps.
func (p *Plot) clearance(b Box) float64 {
	y, ok := p.highestUnder(b)
	if !ok {
		return b.Y0
	}
	return b.Y0 - p.normY(y)
}

// highestUnder returns the highest value drawn in the x range of b.
func (p *Plot) highestUnder(b Box) (float64, bool) {
	var (
		top   float64
		found bool
	)
	for _, s := range p.tops {
		if p.normX(s.lo) < b.X1 && p.normX(s.hi) > b.X0 {
			if !found || s.top > top {
				top, found = s.top, true
			}
		}
	}
	return top, found
}

// visibleLen estimates the printed width of a label in characters:
// LaTeX commands count as one character and markup as none.
func visibleLen(s string) int {
	n := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\\' || r == '#':
			j := i + size
			for j < len(s) && unicode.IsLetter(rune(s[j])) {
				j++
			}
			if j == i+size && j < len(s) {
				j++
			}
			i = j
			n++
			continue
		case r == '$' || r == '{' || r == '}' || r == '_' || r == '^':
		default:
			n++
		}
		i += size
	}
	return n
}
