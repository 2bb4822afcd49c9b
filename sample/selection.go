package sample

import (
	"regexp"
	"slices"
	"strings"
)

// Selection is a named cut with an optional weight. An empty cut selects
// every event and an empty weight is a unit weight.
type Selection struct {
	name   string
	title  string
	cut    string
	weight string
	tag    string

	unblind bool
}

// SelectionOption configures a Selection.
type SelectionOption func(*Selection)

// Weighted multiplies the events passing the selection by w.
func Weighted(w string) SelectionOption {
	return func(s *Selection) { s.weight = JoinWeights(s.weight, w) }
}

// Labeled sets the human-readable title.
func Labeled(title string) SelectionOption {
	return func(s *Selection) { s.title = title }
}

// Unblinded disables the blinding of data drawn under the selection.
func Unblinded() SelectionOption {
	return func(s *Selection) { s.unblind = true }
}

// Tagged sets the filename-safe handle.
func Tagged(tag string) SelectionOption {
	return func(s *Selection) { s.tag = tag }
}

func NewSelection(name, cut string, opts ...SelectionOption) *Selection {
	s := &Selection{name: name, cut: JoinCuts(cut)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Selection) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Selection) Title() string {
	switch {
	case s == nil:
		return ""
	case s.title != "":
		return s.title
	}
	return s.name
}

func (s *Selection) Cut() string {
	if s == nil {
		return ""
	}
	return s.cut
}

func (s *Selection) Weight() string {
	if s == nil {
		return ""
	}
	return s.weight
}

func (s *Selection) String() string { return s.Cut() }

func (s *Selection) unblinded() bool { return s != nil && s.unblind }

// And returns the conjunction of s and others: cuts are ANDed and weights
// multiplied.
func (s *Selection) And(others ...*Selection) *Selection {
	all := append([]*Selection{s}, others...)
	var names, titles, cuts, weights, tags []string
	var unblind bool
	for _, o := range all {
		if o == nil {
			continue
		}
		unblind = unblind || o.unblind
		names = appendNonEmpty(names, o.name)
		if o.title != "" {
			titles = append(titles, o.title)
		}
		cuts = append(cuts, o.cut)
		weights = append(weights, o.weight)
		tags = appendNonEmpty(tags, o.tag)
	}
	return &Selection{
		name:   strings.Join(names, "+"),
		title:  strings.Join(titles, ", "),
		cut:    JoinCuts(cuts...),
		weight: JoinWeights(weights...),
		tag:    strings.Join(tags, "_"),

		unblind: unblind,
	}
}

func appendNonEmpty(ss []string, s string) []string {
	if s == "" || slices.Contains(ss, s) {
		return ss
	}
	return append(ss, s)
}

// DrawCmd returns the weighted draw expression (cut)*(weight) with the
// selection weight and the extra weights multiplied in.
func (s *Selection) DrawCmd(weight ...string) string {
	w := JoinWeights(append([]string{s.Weight()}, weight...)...)
	cut := s.Cut()
	switch {
	case cut == "" && w == "":
		return "1"
	case cut == "":
		return w
	case w == "":
		return "(" + cut + ")"
	}
	return "(" + cut + ")*" + w
}

// Key is the canonical form of the selection: cut terms and weight
// factors sorted. Selections with equal keys select and weight events
// identically.
func (s *Selection) Key() string {
	terms := splitTop(s.Cut(), "&&")
	slices.Sort(terms)
	terms = slices.Compact(terms)
	factors := splitTop(s.Weight(), "*")
	slices.Sort(factors)
	return strings.Join(terms, " && ") + " | " + strings.Join(factors, "*")
}

var (
	fileOps = strings.NewReplacer(
		">=", "geq", "<=", "leq", "==", "eq", "!=", "neq",
		">", "gt", "<", "lt", "&&", "_", "||", "_or_", "!", "not",
	)
	fileJunk = regexp.MustCompile(`[^A-Za-z0-9.\-]+`)
)

// Filename returns a handle for the selection usable in file names: the
// tag when set, otherwise the sanitised name.
func (s *Selection) Filename() string {
	switch {
	case s == nil:
		return ""
	case s.tag != "":
		return s.tag
	}
	name := fileOps.Replace(s.Name())
	return strings.Trim(fileJunk.ReplaceAllString(name, "_"), "_")
}

// JoinCuts ANDs cut expressions. Empty and trivially true cuts are
// dropped, as are repeated terms.
func JoinCuts(cuts ...string) string {
	var terms []string
	for _, c := range cuts {
		c = strings.TrimSpace(c)
		switch c {
		case "", "1", "true":
			continue
		}
		if hasTop(c, "||") || hasTop(c, "?") {
			terms = appendNonEmpty(terms, "("+c+")")
			continue
		}
		for _, t := range splitTop(c, "&&") {
			terms = appendNonEmpty(terms, t)
		}
	}
	return strings.Join(terms, " && ")
}

// JoinWeights multiplies weight expressions. Empty and unit factors are
// dropped; compound factors are parenthesised.
func JoinWeights(weights ...string) string {
	var factors []string
	for _, w := range weights {
		for _, f := range splitTop(w, "*") {
			switch f {
			case "1", "1.0", "1.":
				continue
			}
			if strings.ContainsAny(f, "+-<>=!&|?:") && !wrapped(f) {
				f = "(" + f + ")"
			}
			factors = append(factors, f)
		}
	}
	return strings.Join(factors, "*")
}

// splitTop splits s on sep outside parentheses and brackets, trimming the
// parts and dropping empty ones.
func splitTop(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(s[i:], sep) {
				parts = appendTrimmed(parts, s[start:i])
				i += len(sep) - 1
				start = i + 1
			}
		}
	}
	return appendTrimmed(parts, s[start:])
}

func appendTrimmed(parts []string, p string) []string {
	if p = strings.TrimSpace(p); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func hasTop(s, sep string) bool { return len(splitTop(s, sep)) > 1 }

// wrapped reports whether s is enclosed in a single pair of parentheses.
func wrapped(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
