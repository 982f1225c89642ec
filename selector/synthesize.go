// Package selector synthesizes a CSS selector that uniquely identifies one
// node of a host tree within its scoping root (the nearest shadow root or
// the document).
//
// The search prefers short, stable selectors built from ids, data
// attributes, names and classes, and falls back to positional
// (:nth-child) or ancestor-qualified selectors only when needed:
//
//	direct traits  →  ancestor disambiguation (≤ 2 levels)  →  path walk
//
// The package never parses or matches selectors itself: the host supplies a
// Tree and a Matcher (see package dom for an HTML implementation).
// A run is single-threaded and synchronous.
package selector

import (
	"log/slog"
	"strings"
)

// Options customises one synthesis run. The zero value uses the defaults.
type Options struct {
	// SelectorTypes is the category precedence. Entries "data-<key>" and
	// "attribute:<name>" probe one attribute; those names are then left out
	// of the generic attributes/data-attributes categories.
	SelectorTypes []Category

	// AttributesToIgnore is skipped by the generic attribute categories.
	// nil means DefaultAttributesToIgnore; an empty non-nil slice ignores
	// nothing.
	AttributesToIgnore []string

	Filter Filter

	// Caller-owned caches for amortised reuse across runs. The caller alone
	// invalidates them when the tree changes.
	SelectorCache *SelectorCache
	UniqueCache   *UniqueCache
	TraitCache    *TraitCache

	// Escape turns a raw string into a CSS identifier. Default: Escape.
	// A custom Escape bypasses TraitCache.
	Escape func(string) string

	Logger *slog.Logger
}

// SelectorCache maps a node to its best-known direct selector.
type SelectorCache struct {
	m map[NodeID]string
}

// NewSelectorCache returns an empty cache.
func NewSelectorCache() *SelectorCache {
	return &SelectorCache{m: make(map[NodeID]string)}
}

// Get returns the cached selector for n.
func (c *SelectorCache) Get(n NodeID) (string, bool) {
	s, ok := c.m[n]
	return s, ok
}

// Set records the selector for n.
func (c *SelectorCache) Set(n NodeID, sel string) { c.m[n] = sel }

// Delete forgets n.
func (c *SelectorCache) Delete(n NodeID) { delete(c.m, n) }

// Reset drops all entries.
func (c *SelectorCache) Reset() { clear(c.m) }

// Len reports the number of cached entries.
func (c *SelectorCache) Len() int { return len(c.m) }

// Strategy tells which stage produced a Result.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyAncestor Strategy = "ancestor"
	StrategyPath     Strategy = "path"
	// StrategyExhausted marks a best-effort selector that did not verify as
	// unique: the full walked path, possibly containing "*" segments.
	StrategyExhausted Strategy = "exhausted"
)

// Result is the outcome of Synthesize. Unique is true only when the oracle
// verified the selector against the node's scoping root.
type Result struct {
	Selector string   `json:"selector"`
	Strategy Strategy `json:"strategy"`
	Unique   bool     `json:"unique"`
}

// Candidate is a selector with its score.
type Candidate struct {
	Selector string  `json:"selector"`
	Score    float64 `json:"score"`
}

type run struct {
	host   Host
	opts   Options
	x      *extractor
	oracle *oracle
	ignore ignoreSet
	logger *slog.Logger
}

func newRun(h Host, opts Options) *run {
	if opts.SelectorTypes == nil {
		opts.SelectorTypes = DefaultSelectorTypes
	}
	if opts.AttributesToIgnore == nil {
		opts.AttributesToIgnore = DefaultAttributesToIgnore
	}
	// Cached fragments are rendered with the default escape; a custom one
	// gets a run-local cache.
	customEscape := opts.Escape != nil
	if !customEscape {
		opts.Escape = Escape
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	uniq := opts.UniqueCache
	if uniq == nil {
		uniq = NewUniqueCache()
	}
	traits := opts.TraitCache
	if traits == nil || customEscape {
		traits = NewTraitCache()
	}

	ignore := append([]string(nil), opts.AttributesToIgnore...)
	for _, c := range opts.SelectorTypes {
		if name, ok := c.probe(); ok {
			ignore = append(ignore, name)
		}
	}

	return &run{
		host:   h,
		opts:   opts,
		x:      &extractor{tree: h, filter: opts.Filter, escape: opts.Escape, cache: traits},
		oracle: &oracle{host: h, cache: uniq, logger: opts.Logger},
		ignore: newIgnoreSet(ignore),
		logger: opts.Logger,
	}
}

// Synthesize returns a selector for n. Under normal operation it is unique
// within n's scoping root; on exhaustion it returns the walked path with
// Strategy StrategyExhausted and Unique false.
func Synthesize(h Host, n NodeID, opts Options) Result {
	r := newRun(h, opts)
	if !h.IsElement(n) {
		return Result{Selector: "*", Strategy: StrategyExhausted}
	}

	direct := r.directSelector(n)
	if resolvable(direct) {
		if r.oracle.isUnique(n, direct) {
			r.logger.Debug("selector: direct accepted", "node", n, "selector", direct)
			return Result{Selector: direct, Strategy: StrategyDirect, Unique: true}
		}
		if found := r.disambiguate(n, direct, 0, 1); len(found) > 0 {
			r.logger.Debug("selector: ancestor resolved", "node", n, "direct", direct, "selector", found[0])
			return Result{Selector: found[0], Strategy: StrategyAncestor, Unique: true}
		}
	}
	return r.walk(n)
}

// Selector is Synthesize reduced to its string.
func Selector(h Host, n NodeID, opts Options) string {
	return Synthesize(h, n, opts).Selector
}

// Candidates returns up to limit unique selectors for n, best score first.
// It collects from the ancestor disambiguator instead of stopping at the
// first hit, and falls back to the path walk when that finds nothing.
func Candidates(h Host, n NodeID, limit int, opts Options) []Candidate {
	if limit <= 0 || !h.IsElement(n) {
		return nil
	}
	r := newRun(h, opts)

	var found []string
	if direct := r.directSelector(n); resolvable(direct) {
		found = r.disambiguate(n, direct, 0, limit)
	}
	if len(found) == 0 {
		if res := r.walk(n); res.Unique {
			found = []string{res.Selector}
		}
	}

	out := make([]Candidate, 0, len(found))
	for _, s := range rank(found) {
		out = append(out, Candidate{Selector: s, Score: Score(s)})
	}
	return out
}

// resolvable is false for the wildcard and for purely positional selectors,
// which skip straight to the path walk.
func resolvable(direct string) bool {
	return direct != "*" && !strings.HasPrefix(direct, ":nth-child")
}

// walk climbs from n toward the document, prepending each level's direct
// selector, and returns the best unique candidate found at the first level
// that yields one. Shadow roots are crossed through their host.
func (r *run) walk(n NodeID) Result {
	var path []string
	for cur := n; ; {
		sel := r.cachedDirect(cur)
		path = append([]string{sel}, path...)

		var candidates []string
		if cur == n && r.oracle.isUnique(n, sel) {
			candidates = append(candidates, sel)
		}
		if len(path) > 1 {
			if full := strings.Join(path, " > "); r.oracle.isUnique(n, full) {
				candidates = append(candidates, full)
			}
		}
		if len(candidates) > 0 {
			best := rank(candidates)[0]
			r.logger.Debug("selector: path resolved", "node", n, "levels", len(path), "selector", best)
			return Result{Selector: best, Strategy: StrategyPath, Unique: true}
		}

		next, ok := r.host.ParentElement(cur)
		if !ok {
			next, ok = r.host.ShadowHost(r.host.RootNode(cur))
		}
		if !ok {
			break
		}
		cur = next
	}

	sel := strings.Join(path, " > ")
	r.logger.Debug("selector: exhausted", "node", n, "selector", sel)
	return Result{Selector: sel, Strategy: StrategyExhausted}
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }
