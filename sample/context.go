package sample

import (
	"maps"
	"regexp"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func ctxLogger() *zerolog.Logger {
	l := log.With().Str("component", "Context").Logger()
	return &l
}

type ctxEntry[T any] struct {
	val T
	sub *Context[T]
}

// Context maps selection names or patterns to per-selection overrides of
// a value. Values may themselves be Contexts, resolved with the next key.
type Context[T any] struct {
	def   T
	regex bool
	keys  []string
	vals  map[string]ctxEntry[T]
	res   map[string]*regexp.Regexp
}

// ContextOption configures a Context.
type ContextOption func(*contextConfig)

type contextConfig struct {
	regex bool
}

// Regex makes keys match as regular expressions searched for in the
// looked-up string, rather than by equality only.
func Regex() ContextOption {
	return func(c *contextConfig) { c.regex = true }
}

// NewContext returns an empty Context resolving to def.
func NewContext[T any](def T, opts ...ContextOption) *Context[T] {
	var cfg contextConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Context[T]{
		def:   def,
		regex: cfg.regex,
		vals:  make(map[string]ctxEntry[T]),
		res:   make(map[string]*regexp.Regexp),
	}
}

func (c *Context[T]) Default() T { return c.def }
func (c *Context[T]) Len() int   { return len(c.keys) }

// Keys returns the keys in insertion order.
func (c *Context[T]) Keys() []string { return slices.Clone(c.keys) }

// Set maps key to v, replacing any previous value while keeping the key's
// original position.
func (c *Context[T]) Set(key string, v T) *Context[T] {
	c.put(key, ctxEntry[T]{val: v})
	return c
}

// SetContext maps key to a nested Context.
func (c *Context[T]) SetContext(key string, sub *Context[T]) *Context[T] {
	c.put(key, ctxEntry[T]{sub: sub})
	return c
}

func (c *Context[T]) put(key string, e ctxEntry[T]) {
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = e
	if c.regex {
		re, err := regexp.Compile(key)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(key))
		}
		c.res[key] = re
	}
}

// Get resolves keys left to right. The first key selects an entry of c;
// a nested Context is resolved with the remaining keys. When the first key
// matches nothing and more keys remain, they are tried against c in turn.
// Unmatched lookups give the default.
//
// In regex mode, candidate keys are tried longest first, and keys of equal
// length in insertion order. A key matches when it equals the looked-up
// string or its pattern is found in it.
//
// Get returns false only when c has no entries.
func (c *Context[T]) Get(keys ...string) (T, bool) {
	if len(c.keys) == 0 {
		var zero T
		return zero, false
	}
	if len(keys) == 0 {
		ctxLogger().Warn().Msg("Context: lookup without keys, using default")
		return c.def, true
	}
	v, _ := c.get(keys)
	return v, true
}

// Match is like Get but reports whether some key matched.
func (c *Context[T]) Match(keys ...string) (T, bool) {
	if len(keys) == 0 {
		return c.def, false
	}
	return c.get(keys)
}

func (c *Context[T]) get(keys []string) (T, bool) {
	e, ok := c.lookup(keys[0])
	switch {
	case !ok && len(keys) > 1:
		return c.get(keys[1:])
	case !ok:
		return c.def, false
	case e.sub != nil && len(keys) > 1:
		v, _ := e.sub.get(keys[1:])
		return v, true
	case e.sub != nil:
		return e.sub.def, true
	}
	return e.val, true
}

func (c *Context[T]) lookup(key string) (ctxEntry[T], bool) {
	if !c.regex {
		e, ok := c.vals[key]
		return e, ok
	}
	for _, k := range c.byLength() {
		if k == key || c.res[k].MatchString(key) {
			return c.vals[k], true
		}
	}
	return ctxEntry[T]{}, false
}

func (c *Context[T]) byLength() []string {
	keys := slices.Clone(c.keys)
	slices.SortStableFunc(keys, func(a, b string) int { return len(b) - len(a) })
	return keys
}

// Clone returns a copy of c sharing its values and nested Contexts.
func (c *Context[T]) Clone() *Context[T] {
	return &Context[T]{
		def:   c.def,
		regex: c.regex,
		keys:  slices.Clone(c.keys),
		vals:  maps.Clone(c.vals),
		res:   maps.Clone(c.res),
	}
}
