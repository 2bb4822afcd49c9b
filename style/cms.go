package style

import (
	"fmt"
	"strconv"
	"strings"
)

// Era describes a data-taking period.
type Era struct {
	Name   string
	Lumi   float64 // fb^-1
	Energy float64 // TeV
}

// Eras are the known data-taking periods.
var Eras = map[string]Era{
	"2016":           {Name: "2016", Lumi: 36.3, Energy: 13},
	"UL2016":         {Name: "UL2016", Lumi: 36.3, Energy: 13},
	"UL2016_preVFP":  {Name: "UL2016_preVFP", Lumi: 19.5, Energy: 13},
	"UL2016_postVFP": {Name: "UL2016_postVFP", Lumi: 16.8, Energy: 13},
	"2017":           {Name: "2017", Lumi: 41.5, Energy: 13},
	"UL2017":         {Name: "UL2017", Lumi: 41.5, Energy: 13},
	"2018":           {Name: "2018", Lumi: 59.7, Energy: 13},
	"UL2018":         {Name: "UL2018", Lumi: 59.7, Energy: 13},
	"Run2":           {Name: "Run2", Lumi: 138, Energy: 13},
	"2022":           {Name: "2022", Lumi: 34.7, Energy: 13.6},
	"2023":           {Name: "2023", Lumi: 27.2, Energy: 13.6},
}

// LumiText returns the right-hand header of a CMS plot, such as
// 59.7 fb^-1 (13 TeV), with the unit in LaTeX math.
func LumiText(lumi, energy float64) string {
	var parts []string
	if lumi > 0 {
		parts = append(parts, fmt.Sprintf("%s $\\mathrm{fb}^{-1}$", trimFloat(lumi)))
	}
	if energy > 0 {
		parts = append(parts, fmt.Sprintf("(%s TeV)", trimFloat(energy)))
	}
	return strings.Join(parts, " ")
}

// CMSText returns the left-hand header, "CMS" followed by an optional
// qualifier such as "Preliminary".
func CMSText(extra string) string {
	if extra == "" {
		return "CMS"
	}
	return "CMS " + extra
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
