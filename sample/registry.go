package sample

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

var weights = struct {
	sync.RWMutex
	exprs map[string]string
}{
	exprs: map[string]string{
		"useT1": "ttptweight_runI",
		"toppt": "ttptweight",
		"zpt":   "zptweight",
		"pu":    "puweight",
		"gen":   "genWeight",
		"btag":  "btagweight",
		"trig":  "trigweight",
		"id":    "idisoweight",
	},
}

// RegisterWeight makes key usable as a sample weight identifier,
// resolving to the weight expression expr.
func RegisterWeight(key, expr string) {
	weights.Lock()
	defer weights.Unlock()
	weights.exprs[key] = expr
}

// WeightExpr returns the expression registered for key.
func WeightExpr(key string) (string, error) {
	weights.RLock()
	defer weights.RUnlock()
	expr, ok := weights.exprs[key]
	if !ok {
		return "", fmt.Errorf("sample: unknown weight %q (known: %v): %w", key, weightKeys(), ErrConfig)
	}
	return expr, nil
}

func weightKeys() []string {
	return slices.Sorted(maps.Keys(weights.exprs))
}
