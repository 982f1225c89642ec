package selector

import (
	"slices"
	"strings"
)

// maxAncestorDepth bounds how many ancestor levels disambiguate climbs.
const maxAncestorDepth = 2

// snapshot is the full trait picture of one node, compared across every
// node a direct selector matched. Empty strings mean "absent".
type snapshot struct {
	id, name, tag, nth        string
	classes, attributes, data []string
}

func (r *run) snapshot(n NodeID) snapshot {
	var s snapshot
	s.id, _ = r.x.id(n)
	s.name, _ = r.x.name(n)
	s.tag, _ = r.x.tag(n)
	s.nth, _ = r.x.nthChild(n)
	s.classes = r.x.classes(n)
	s.attributes = r.x.attributes(n, r.ignore)
	s.data = r.x.dataAttributes(n, r.ignore)
	return s
}

// discriminating returns the target's tokens that are not shared by every
// other node. A list token qualifies when at least one other node lacks it;
// a scalar qualifies when no other node has the same value.
func discriminating(target snapshot, others []snapshot) []string {
	var tokens []string
	seen := make(map[string]bool)
	add := func(tok string) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	scalar := func(get func(snapshot) string) {
		v := get(target)
		if v == "" {
			return
		}
		for _, o := range others {
			if get(o) == v {
				return
			}
		}
		add(v)
	}
	list := func(get func(snapshot) []string) {
		for _, tok := range get(target) {
			if tok == "" {
				continue
			}
			for _, o := range others {
				if !slices.Contains(get(o), tok) {
					add(tok)
					break
				}
			}
		}
	}

	scalar(func(s snapshot) string { return s.id })
	list(func(s snapshot) []string { return s.classes })
	list(func(s snapshot) []string { return s.attributes })
	scalar(func(s snapshot) string { return s.name })
	scalar(func(s snapshot) string { return s.tag })
	scalar(func(s snapshot) string { return s.nth })
	list(func(s snapshot) []string { return s.data })
	return tokens
}

// compound appends token to base. A type selector token has to lead the
// compound, and cannot join a base that already names a type.
func compound(base, token string) (string, bool) {
	if !isTypeSelector(token) {
		return base + token, true
	}
	if isTypeSelector(base) {
		return "", false
	}
	return token + base, true
}

func isTypeSelector(s string) bool {
	return s != "" && !strings.ContainsRune("#.[:", rune(s[0]))
}

// disambiguate resolves a direct selector that matches several nodes in
// n's scope. It appends discriminating tokens first, then qualifies with
// up to maxAncestorDepth ancestor selectors via child and descendant
// combinators. It stops once limit unique selectors have been collected.
func (r *run) disambiguate(n NodeID, direct string, depth, limit int) []string {
	if depth > maxAncestorDepth || direct == "" || limit <= 0 {
		return nil
	}

	matches, err := r.host.QuerySelectorAll(r.host.RootNode(n), direct)
	if err != nil {
		r.logger.Debug("selector: ancestor query failed", "selector", direct, "error", err)
		return nil
	}
	if len(matches) == 1 && matches[0] == n {
		return []string{direct}
	}

	var target *snapshot
	others := make([]snapshot, 0, len(matches))
	for _, m := range matches {
		s := r.snapshot(m)
		if m == n {
			target = &s
			continue
		}
		others = append(others, s)
	}
	if target == nil {
		return nil
	}
	tokens := rank(discriminating(*target, others))

	var found []string
	seen := make(map[string]bool)
	// try records sel when unique and reports whether the limit is reached.
	try := func(sel string) bool {
		if !seen[sel] {
			seen[sel] = true
			if r.oracle.isUnique(n, sel) {
				found = append(found, sel)
			}
		}
		return len(found) >= limit
	}

	for _, tok := range tokens {
		if sel, ok := compound(direct, tok); ok && try(sel) {
			return found
		}
	}

	parent, ok := r.host.ParentElement(n)
	if !ok || depth >= maxAncestorDepth {
		return found
	}
	seed, ok := r.x.tag(parent)
	if !ok {
		return found
	}

	for _, ps := range r.disambiguate(parent, seed, depth+1, limit) {
		if ps == "" || ps == "*" {
			continue
		}
		for _, tok := range tokens {
			if sel, ok := compound(direct, tok); ok && try(ps+" > "+sel) {
				return found
			}
		}
		if try(ps + " > " + direct) {
			return found
		}
		for _, tok := range tokens {
			if sel, ok := compound(direct, tok); ok && try(ps+" "+sel) {
				return found
			}
		}
	}
	return found
}
