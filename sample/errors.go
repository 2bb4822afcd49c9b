// Package sample is the declarative model of the plotting core: variables,
// selections, samples and sets of samples, and the orchestration that
// turns them into normalised histograms.
package sample

import (
	"errors"

	"github.com/decibelcooper/tauplot/tree"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrConfig reports malformed Variable, Selection or Sample
	// declarations. It is returned eagerly by constructors.
	ErrConfig = errors.New("config error")

	// ErrIO and ErrDraw are the tree errors, re-exported so callers need
	// not import package tree to test for them.
	ErrIO   = tree.ErrIO
	ErrDraw = tree.ErrDraw
)

// logger returns the component logger, derived from log.Logger at call time.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "Sample").Logger()
	return &l
}
