package tauplot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/decibelcooper/tauplot/hist"
	"github.com/spf13/pflag"
)

// BinningFlag is a binning given on the command line, either as
// "n:lo:hi" for n uniform bins or as comma separated bin edges. Edges may
// be spread over repeated flags; the first use replaces the default.
type BinningFlag struct {
	uniform *hist.Binning
	edges   []float64
	beenSet bool
}

var _ pflag.Value = (*BinningFlag)(nil)

func (f *BinningFlag) Set(valueStr string) error {
	if !f.beenSet {
		f.beenSet = true
		f.uniform = nil
		f.edges = nil
	}

	if parts := strings.Split(valueStr, ":"); len(parts) > 1 {
		if len(parts) != 3 || len(f.edges) > 0 {
			return fmt.Errorf("binning %q: want n:lo:hi", valueStr)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return fmt.Errorf("binning %q: %w", valueStr, err)
		}
		if n < 1 {
			return fmt.Errorf("binning %q: %w: need at least one bin", valueStr, hist.ErrBinning)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("binning %q: %w", valueStr, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return fmt.Errorf("binning %q: %w", valueStr, err)
		}
		b := hist.Uniform(n, lo, hi)
		f.uniform = &b
		return nil
	}

	if f.uniform != nil {
		return fmt.Errorf("binning %q: edges given after n:lo:hi", valueStr)
	}
	for _, s := range strings.Split(valueStr, ",") {
		value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("binning %q: %w", valueStr, err)
		}
		f.edges = append(f.edges, value)
	}
	return nil
}

func (f *BinningFlag) String() string {
	switch {
	case f.uniform != nil:
		lo, hi := f.uniform.Range()
		return fmt.Sprintf("%d:%g:%g", f.uniform.NBins(), lo, hi)
	case len(f.edges) > 0:
		s := make([]string, len(f.edges))
		for i, e := range f.edges {
			s[i] = strconv.FormatFloat(e, 'g', -1, 64)
		}
		return strings.Join(s, ",")
	}
	return ""
}

func (f *BinningFlag) Type() string { return "binning" }

// IsSet reports whether the flag was given.
func (f *BinningFlag) IsSet() bool { return f.beenSet }

// Binning returns the validated binning.
func (f *BinningFlag) Binning() (hist.Binning, error) {
	var b hist.Binning
	switch {
	case f.uniform != nil:
		b = *f.uniform
	case len(f.edges) > 0:
		b = hist.Variable(f.edges...)
	default:
		return b, fmt.Errorf("binning not set: %w", hist.ErrBinning)
	}
	if err := b.Validate(); err != nil {
		return b, err
	}
	return b, nil
}
