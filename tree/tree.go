// Package tree provides access to flat event trees and the weighted draw
// engine that turns them into histograms.
package tree

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrIO reports missing input files and unreadable trees.
	ErrIO = errors.New("io error")

	// ErrDraw reports backend draw failures such as unknown branches.
	ErrDraw = errors.New("draw error")
)

// logger returns the component logger, derived from log.Logger at call time.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "Tree").Logger()
	return &l
}

// Event is one event record, keyed by branch name. Scalar branches are
// stored as float64 and vector branches as []float64.
type Event = map[string]any

// Tree is a readable table of event records.
type Tree interface {
	Name() string
	Entries() int64

	// Branches returns a prototype value per branch, either float64 or
	// []float64, used to type-check formulas before the event loop.
	Branches() map[string]any

	// Loop calls fn once per event, in file order. The Event is reused
	// between calls.
	Loop(fn func(evt Event) error) error

	Close() error
}

// Opener locates a file and opens one of its trees.
type Opener interface {
	Open(path, treename string) (Tree, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path, treename string) (Tree, error)

func (f OpenerFunc) Open(path, treename string) (Tree, error) { return f(path, treename) }
