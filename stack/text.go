package stack

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/decibelcooper/tauplot/style"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	xfont "golang.org/x/image/font"
)

// mathText renders LaTeX and falls back to plain text for strings the
// LaTeX parser rejects.
type mathText struct {
	text.Latex
	plain text.Plain
}

var handler = mathText{
	Latex: text.Latex{Fonts: font.DefaultCache},
	plain: text.Plain{Fonts: font.DefaultCache},
}

func (h mathText) parses(txt string, fnt font.Font) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	h.Latex.Box(txt, fnt)
	return true
}

func (h mathText) Box(txt string, fnt font.Font) (width, height, depth vg.Length) {
	if !h.parses(txt, fnt) {
		return h.plain.Box(txt, fnt)
	}
	return h.Latex.Box(txt, fnt)
}

func (h mathText) Draw(c vg.Canvas, txt string, sty text.Style, pt vg.Point) {
	if h.parses(txt, sty.Font) && h.drawLatex(c, txt, sty, pt) {
		return
	}
	h.plain.Draw(c, txt, sty, pt)
}

func (h mathText) drawLatex(c vg.Canvas, txt string, sty text.Style, pt vg.Point) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	h.Latex.Draw(c, txt, sty, pt)
	return true
}

func textStyle(size vg.Length) text.Style {
	return text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, size),
		Handler: handler,
	}
}

// useMathText sets the text handler and font sizes of every text of pl.
func useMathText(pl *plot.Plot) {
	pl.TextHandler = handler
	pl.Title.TextStyle.Handler = handler
	for _, a := range []*plot.Axis{&pl.X, &pl.Y} {
		a.Label.TextStyle.Handler = handler
		a.Label.TextStyle.Font.Size = vg.Points(14)
		a.Tick.Label.Handler = handler
		a.Tick.Label.Font.Size = vg.Points(11)
	}
	pl.X.Label.Position = draw.PosRight
	pl.Y.Label.Position = draw.PosTop
	pl.Legend.TextStyle.Handler = handler
}

// TextOptions place free text on a Plot.
type TextOptions struct {
	// X and Y anchor the text in fractions of the axes area.
	X, Y float64
	// Align is "L", "C" or "R" for the horizontal alignment and may add
	// "T" or "B" for the vertical one. The default is "LT".
	Align string
	Size  vg.Length
	Color color.Color
}

type textItem struct {
	text string
	opts TextOptions
}

// DrawText adds free text to the axes. The text may use the label
// shorthand of package style, such as m_vis or tau_h, and span several
// lines.
func (p *Plot) DrawText(txt string, opts TextOptions) error {
	if p.closed {
		return ErrClosed
	}
	if strings.Trim(strings.ToUpper(opts.Align), "LCRTB") != "" {
		return fmt.Errorf("stack: text alignment %q: %w", opts.Align, ErrConfig)
	}
	if opts.Size == 0 {
		opts.Size = vg.Points(12)
	}
	if opts.Color == nil {
		opts.Color = color.Black
	}
	p.texts = append(p.texts, textItem{text: txt, opts: opts})
	return nil
}

// DrawCornerText adds text inside a corner of the axes: "TL" (the
// default), "TR", "BL" or "BR".
func (p *Plot) DrawCornerText(txt string, corner ...string) error {
	pos := "TL"
	if len(corner) > 0 {
		pos = strings.ToUpper(corner[0])
	}
	opts := TextOptions{X: 0.04, Y: 0.96, Align: "LT"}
	switch pos {
	case "TL":
	case "TR":
		opts.X, opts.Align = 0.96, "RT"
	case "BL":
		opts.Y, opts.Align = 0.04, "LB"
	case "BR":
		opts.X, opts.Y, opts.Align = 0.96, 0.04, "RB"
	default:
		return fmt.Errorf("stack: corner %q: %w", pos, ErrConfig)
	}
	return p.DrawText(txt, opts)
}

// fillText draws possibly multi-line text anchored at pt.
func fillText(c draw.Canvas, txt string, pt vg.Point, opts TextOptions) {
	sty := textStyle(opts.Size)
	sty.Color = opts.Color
	align := strings.ToUpper(opts.Align)
	switch {
	case strings.Contains(align, "R"):
		sty.XAlign = text.XRight
	case strings.Contains(align, "C"):
		sty.XAlign = text.XCenter
	}
	lines := strings.Split(txt, "\n")
	lineH := sty.Font.Size * 1.3
	if strings.Contains(align, "B") {
		pt.Y += lineH * vg.Length(len(lines)-1)
		sty.YAlign = text.YBottom
	} else {
		sty.YAlign = text.YTop
	}
	for _, line := range lines {
		c.FillText(sty, pt, style.Latex(line))
		pt.Y -= lineH
	}
}

// at returns the point at fractions (fx, fy) of a canvas.
func at(c draw.Canvas, fx, fy float64) vg.Point {
	return vg.Point{
		X: c.Min.X + vg.Length(fx)*(c.Max.X-c.Min.X),
		Y: c.Min.Y + vg.Length(fy)*(c.Max.Y-c.Min.Y),
	}
}

const headerHeight = vg.Length(18)

// drawHeader writes the experiment and luminosity labels above the axes.
func drawHeader(c, da draw.Canvas, cms, lumi string) {
	y := da.Max.Y + vg.Points(4)
	if cms != "" {
		sty := textStyle(vg.Points(14))
		sty.Font.Weight = xfont.WeightBold
		sty.Handler = handler.plain
		sty.YAlign = text.YBottom
		c.FillText(sty, vg.Point{X: da.Min.X, Y: y}, cms)
	}
	if lumi != "" {
		sty := textStyle(vg.Points(12))
		sty.XAlign = text.XRight
		sty.YAlign = text.YBottom
		c.FillText(sty, vg.Point{X: da.Max.X, Y: y}, lumi)
	}
}

// drawWarnings notes plot-time warnings in the bottom-right corner of
// the canvas.
func drawWarnings(c draw.Canvas, warns []string) {
	sty := textStyle(vg.Points(8))
	sty.Color = color.RGBA{R: 200, A: 255}
	sty.XAlign = text.XRight
	pt := vg.Point{X: c.Max.X - vg.Points(2), Y: c.Min.Y + vg.Points(2)}
	for i := len(warns) - 1; i >= 0; i-- {
		c.FillText(sty, pt, "Warning: "+warns[i])
		pt.Y += vg.Points(10)
	}
}
