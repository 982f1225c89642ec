package selector

import "log/slog"

// UniqueCache memoises oracle answers. For each (scoping root, selector) it
// keeps the single node the selector matched, or NoNode, so one cache serves
// any target in that root. Callers sharing it across runs own invalidation.
type UniqueCache struct {
	m map[uniqueKey]NodeID
}

type uniqueKey struct {
	root     NodeID
	selector string
}

// NewUniqueCache returns an empty cache.
func NewUniqueCache() *UniqueCache {
	return &UniqueCache{m: make(map[uniqueKey]NodeID)}
}

// Reset drops all entries.
func (c *UniqueCache) Reset() { clear(c.m) }

// Len reports the number of cached entries.
func (c *UniqueCache) Len() int { return len(c.m) }

type oracle struct {
	host   Host
	cache  *UniqueCache
	logger *slog.Logger
}

// isUnique reports whether selector, evaluated against n's scoping root,
// matches exactly n. Matcher failures count as "not unique".
func (o *oracle) isUnique(n NodeID, selector string) bool {
	if selector == "" {
		return false
	}
	root := o.host.RootNode(n)
	key := uniqueKey{root: root, selector: selector}
	if o.cache != nil {
		if only, ok := o.cache.m[key]; ok {
			return only == n
		}
	}
	only := NoNode
	matches, err := o.host.QuerySelectorAll(root, selector)
	switch {
	case err != nil:
		o.logger.Debug("selector: match failed", "selector", selector, "error", err)
	case len(matches) == 1:
		only = matches[0]
	}
	if o.cache != nil {
		o.cache.m[key] = only
	}
	return only == n
}

// siblingUnique restricts the search to n's parent node. It is the cheap
// local accept/reject step used by the direct resolver.
func (o *oracle) siblingUnique(n NodeID, selector string) bool {
	parent, ok := o.host.ParentNode(n)
	if !ok || selector == "" {
		return false
	}
	matches, err := o.host.QuerySelectorAll(parent, selector)
	if err != nil {
		o.logger.Debug("selector: sibling match failed", "selector", selector, "error", err)
		return false
	}
	return len(matches) == 1 && matches[0] == n
}

// IsUnique reports whether selector matches exactly n within n's scoping
// root. It is the check callers use to re-verify a best-effort result.
func IsUnique(h Host, n NodeID, selector string) bool {
	o := oracle{host: h, logger: discardLogger()}
	return o.isUnique(n, selector)
}
