package style

import (
	"regexp"
	"strings"
)

// Labels and axis titles are written in a small shorthand:
//
//	m_vis     -> m_{vis}
//	tau_h     -> \tau_{h}
//	pt_1      -> p_{T}^{1}
//	met       -> p_{T}^{miss}
//	m_tautau  -> m_{\tau\tau}
//	->        -> \rightarrow
//
// Text already enclosed in $...$ is taken as LaTeX math and left alone.

var (
	shorthand = regexp.MustCompile(`->|[A-Za-z]+(?:[_^](?:\{[^{}]*\}|[A-Za-z0-9]+))*`)
	script    = regexp.MustCompile(`([_^])(\{[^{}]*\}|[A-Za-z0-9]+)`)
	leptons   = regexp.MustCompile(`^(?:tau|mu|nu|ell)+$`)
	lepton    = regexp.MustCompile(`tau|mu|nu|ell`)
)

var greek = map[string]bool{
	"tau": true, "mu": true, "nu": true, "eta": true, "phi": true,
	"theta": true, "alpha": true, "beta": true, "gamma": true,
	"delta": true, "Delta": true, "sigma": true, "chi": true, "pi": true,
	"ell": true, "Phi": true,
}

type dialect struct {
	cmd  string
	math func(string) string
}

var (
	latexDialect = dialect{
		cmd:  `\`,
		math: func(s string) string { return "$" + s + "$" },
	}
	tlatexDialect = dialect{
		cmd:  "#",
		math: func(s string) string { return s },
	}
)

// Latex translates a label to the LaTeX text dialect used when rendering
// plots.
func Latex(s string) string {
	return translate(s, latexDialect)
}

// TLatex translates a label to ROOT's TLatex markup, used for titles of
// histograms written to ROOT files.
func TLatex(s string) string {
	return translate(s, tlatexDialect)
}

func translate(s string, d dialect) string {
	var out strings.Builder
	for i, seg := range strings.Split(s, "$") {
		if i%2 == 1 {
			if d.cmd == `\` {
				out.WriteString("$" + seg + "$")
			} else {
				out.WriteString(strings.ReplaceAll(seg, `\`, d.cmd))
			}
			continue
		}
		out.WriteString(shorthand.ReplaceAllStringFunc(seg, func(tok string) string {
			return word(tok, d)
		}))
	}
	return out.String()
}

func word(tok string, d dialect) string {
	if tok == "->" {
		return d.math(d.cmd + "rightarrow")
	}
	base := tok
	if i := strings.IndexAny(tok, "_^"); i >= 0 {
		base = tok[:i]
	}
	scripts := script.FindAllStringSubmatch(tok[len(base):], -1)

	var math string
	switch {
	case base == "pt" || base == "pT" || base == "PT":
		math = "p_{T}"
		for _, sc := range scripts {
			math += "^{" + scriptText(sc[2], d) + "}"
		}
		return d.math(math)
	case strings.EqualFold(base, "met"):
		return d.math("p_{T}^{miss}")
	case greek[base]:
		math = d.cmd + base
	case len(scripts) > 0:
		math = base
	default:
		return tok
	}
	for _, sc := range scripts {
		math += sc[1] + "{" + scriptText(sc[2], d) + "}"
	}
	return d.math(math)
}

func scriptText(s string, d dialect) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if greek[s] {
		return d.cmd + s
	}
	if leptons.MatchString(s) {
		return lepton.ReplaceAllStringFunc(s, func(g string) string { return d.cmd + g })
	}
	return s
}
