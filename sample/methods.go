package sample

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Method post-processes the results of SampleSet.GetHists, typically to
// add a data-driven background estimate.
type Method func(ss *SampleSet, sel *Selection, results []Result) error

var methods = struct {
	sync.RWMutex
	m map[string]Method
}{
	m: map[string]Method{
		"QCD_OSSS": QCDOSSS(1.0),
	},
}

// RegisterMethod makes m available to SampleSet.Use under name.
func RegisterMethod(name string, m Method) {
	methods.Lock()
	defer methods.Unlock()
	methods.m[name] = m
}

func lookupMethod(name string) (Method, error) {
	methods.RLock()
	defer methods.RUnlock()
	m, ok := methods.m[name]
	if !ok {
		return nil, fmt.Errorf("sample: unknown method %q (known: %v): %w",
			name, slices.Sorted(maps.Keys(methods.m)), ErrConfig)
	}
	return m, nil
}

// Use applies the registered method name to every GetHists call.
func (ss *SampleSet) Use(name string) error {
	if _, err := lookupMethod(name); err != nil {
		return err
	}
	if !slices.Contains(ss.methods, name) {
		ss.methods = append(ss.methods, name)
	}
	return nil
}

// OSCut is the opposite-sign requirement rewritten by QCDOSSS.
const OSCut = "q_1*q_2<0"

// QCDOSSS estimates the multijet background from the same-sign region:
// the opposite-sign charge requirement of the selection is flipped, the
// stacked simulation is subtracted from data there, negative bins are
// clipped and the difference is scaled by the OS/SS factor.
func QCDOSSS(factor float64) Method {
	return func(ss *SampleSet, sel *Selection, results []Result) error {
		if !strings.Contains(sel.Cut(), OSCut) {
			return fmt.Errorf("selection %q lacks %q: %w", sel.Name(), OSCut, ErrConfig)
		}
		same := &Selection{
			name:    sel.name,
			title:   sel.title,
			cut:     strings.ReplaceAll(sel.cut, OSCut, "q_1*q_2>0"),
			weight:  sel.weight,
			tag:     sel.tag,
			unblind: true,
		}
		vars := make([]*Variable, len(results))
		for i, r := range results {
			vars[i] = r.Var
		}
		ssres, err := ss.getHists(vars, same)
		if err != nil {
			return err
		}
		for i, r := range ssres {
			if r.Hists.Data == nil {
				logger().Warn().Str("variable", r.Var.Name()).Msg("Sample: no data for the QCD estimate")
				continue
			}
			qcd := r.Hists.Data.Clone()
			for _, h := range r.Hists.Exp {
				if err := qcd.AddScaled(h, -1); err != nil {
					return err
				}
			}
			for b := 0; b <= qcd.NBins()+1; b++ {
				if qcd.Content(b) < 0 {
					qcd.SetContent(b, 0)
				}
			}
			qcd.Scale(factor)
			qcd.Name = r.Var.HistName("QCD")
			qcd.Process = "QCD"
			qcd.Label = ss.styles.Label("QCD")
			qcd.Style = ss.styles.Attr("QCD")
			results[i].Hists.Exp = append(results[i].Hists.Exp, qcd)
		}
		return nil
	}
}
