package selector

import (
	"slices"
	"strconv"
	"strings"
)

// TraitCache memoises filter-less trait extraction per node, rendered with
// the default Escape. Runs with a Filter or a custom Escape do not use it.
// It never invalidates itself: callers sharing one across runs must Forget
// nodes whose attributes changed.
type TraitCache struct {
	entries map[traitKey]traitEntry
}

type traitKey struct {
	node     NodeID
	category Category
	ignore   string
}

type traitEntry struct {
	one  string
	ok   bool
	many []string
}

// NewTraitCache returns an empty cache.
func NewTraitCache() *TraitCache {
	return &TraitCache{entries: make(map[traitKey]traitEntry)}
}

// Forget drops every entry recorded for n.
func (c *TraitCache) Forget(n NodeID) {
	for k := range c.entries {
		if k.node == n {
			delete(c.entries, k)
		}
	}
}

// Reset drops all entries.
func (c *TraitCache) Reset() { clear(c.entries) }

// Len reports the number of cached entries.
func (c *TraitCache) Len() int { return len(c.entries) }

// ignoreSet is a set of attribute names plus a stable fingerprint used as
// part of the cache key.
type ignoreSet struct {
	names map[string]bool
	key   string
}

func newIgnoreSet(names []string) ignoreSet {
	set := ignoreSet{names: make(map[string]bool, len(names))}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, n := range sorted {
		set.names[n] = true
	}
	set.key = strings.Join(sorted, ",")
	return set
}

// extractor computes per-node trait tokens, already rendered as selector
// fragments. Any call made with a filter bypasses the cache.
type extractor struct {
	tree   Tree
	filter Filter
	escape func(string) string
	cache  *TraitCache
}

func (x *extractor) cached() bool { return x.filter == nil && x.cache != nil }

func (x *extractor) scalar(n NodeID, c Category, compute func() (string, bool)) (string, bool) {
	if !x.cached() {
		return compute()
	}
	k := traitKey{node: n, category: c}
	if e, ok := x.cache.entries[k]; ok {
		return e.one, e.ok
	}
	v, ok := compute()
	x.cache.entries[k] = traitEntry{one: v, ok: ok}
	return v, ok
}

func (x *extractor) list(n NodeID, c Category, ignore string, compute func() []string) []string {
	if !x.cached() {
		return compute()
	}
	k := traitKey{node: n, category: c, ignore: ignore}
	if e, ok := x.cache.entries[k]; ok {
		return e.many
	}
	v := compute()
	x.cache.entries[k] = traitEntry{many: v}
	return v
}

func (x *extractor) id(n NodeID) (string, bool) {
	return x.scalar(n, CategoryID, func() (string, bool) {
		v, ok := attrValue(x.tree, n, "id")
		if !ok || v == "" || !x.filter.allows(attrTrait("id", v)) {
			return "", false
		}
		return "#" + x.escape(v), true
	})
}

func (x *extractor) name(n NodeID) (string, bool) {
	return x.scalar(n, CategoryName, func() (string, bool) {
		v, ok := attrValue(x.tree, n, "name")
		if !ok || v == "" || !x.filter.allows(attrTrait("name", v)) {
			return "", false
		}
		return attrSelector(x.escape, "name", v), true
	})
}

// tag falls back to the node-kind name when the tag identity is unreadable
// and gives up when that is unreadable too.
func (x *extractor) tag(n NodeID) (string, bool) {
	return x.scalar(n, CategoryTag, func() (string, bool) {
		name, ok := x.tree.TagName(n)
		if !ok || name == "" {
			if name, ok = x.tree.NodeName(n); !ok || name == "" {
				return "", false
			}
		}
		tag := strings.ReplaceAll(strings.ToLower(name), ":", `\:`)
		if !x.filter.allows(Trait{Type: TraitTag, Key: "tag", Value: tag}) {
			return "", false
		}
		return tag, true
	})
}

// nthChild counts element siblings only.
func (x *extractor) nthChild(n NodeID) (string, bool) {
	return x.scalar(n, CategoryNthChild, func() (string, bool) {
		parent, ok := x.tree.ParentNode(n)
		if !ok {
			return "", false
		}
		count := 0
		for _, c := range x.tree.ChildNodes(parent) {
			if !x.tree.IsElement(c) {
				continue
			}
			count++
			if c != n {
				continue
			}
			ord := strconv.Itoa(count)
			if !x.filter.allows(Trait{Type: TraitNthChild, Key: "nth-child", Value: ord}) {
				return "", false
			}
			return ":nth-child(" + ord + ")", true
		}
		return "", false
	})
}

func (x *extractor) classes(n NodeID) []string {
	return x.list(n, CategoryClass, "", func() []string {
		var out []string
		for _, c := range x.tree.ClassList(n) {
			if c == "" || !x.filter.allows(Trait{Type: TraitClass, Key: "class", Value: c}) {
				continue
			}
			out = append(out, "."+x.escape(c))
		}
		return out
	})
}

func (x *extractor) attributes(n NodeID, ignore ignoreSet) []string {
	return x.list(n, CategoryAttributes, ignore.key, func() []string {
		var out []string
		for _, a := range x.tree.Attrs(n) {
			if ignore.names[a.Name] || !x.filter.allows(attrTrait(a.Name, a.Value)) {
				continue
			}
			out = append(out, attrSelector(x.escape, a.Name, a.Value))
		}
		return out
	})
}

func (x *extractor) dataAttributes(n NodeID, ignore ignoreSet) []string {
	return x.list(n, CategoryDataAttributes, ignore.key, func() []string {
		var out []string
		for _, a := range x.tree.Attrs(n) {
			if !strings.HasPrefix(a.Name, "data-") || ignore.names[a.Name] {
				continue
			}
			if !x.filter.allows(attrTrait(a.Name, a.Value)) {
				continue
			}
			out = append(out, attrSelector(x.escape, a.Name, a.Value))
		}
		return out
	})
}

// attribute looks up one attribute by exact name.
func (x *extractor) attribute(n NodeID, name string) (string, bool) {
	return x.scalar(n, AttributeCategory(name), func() (string, bool) {
		v, ok := attrValue(x.tree, n, name)
		if !ok || !x.filter.allows(attrTrait(name, v)) {
			return "", false
		}
		return attrSelector(x.escape, name, v), true
	})
}
