package selector

// directSelector returns the best selector built from n's own traits that
// is unique among its siblings, or "*" when no category yields one.
func (r *run) directSelector(n NodeID) string {
	tag, _ := r.x.tag(n)
	var candidates []string

	for _, cat := range r.opts.SelectorTypes {
		kind := cat
		var probed string
		if name, ok := cat.probe(); ok {
			sel, found := r.x.attribute(n, name)
			if !found {
				continue
			}
			probed, kind = sel, categoryAttribute
		}

		switch kind {
		case categoryAttribute:
			if r.oracle.siblingUnique(n, probed) {
				candidates = append(candidates, probed)
			}
		case CategoryID, CategoryName, CategoryTag:
			sel, ok := r.scalarTrait(n, kind)
			if ok && r.oracle.siblingUnique(n, sel) {
				candidates = append(candidates, sel)
			}
		case CategoryClass, CategoryAttributes, CategoryDataAttributes:
			tokens := r.listTrait(n, kind)
			if len(tokens) == 0 {
				continue
			}
			if sel, ok := r.uniqueCombination(n, tokens, tag); ok {
				candidates = append(candidates, sel)
			}
		case CategoryNthChild:
			if sel, ok := r.x.nthChild(n); ok {
				candidates = append(candidates, sel)
			}
		default:
			r.logger.Debug("selector: unknown category", "category", string(cat))
		}
	}

	if len(candidates) == 0 {
		return "*"
	}
	return rank(candidates)[0]
}

func (r *run) scalarTrait(n NodeID, c Category) (string, bool) {
	switch c {
	case CategoryID:
		return r.x.id(n)
	case CategoryName:
		return r.x.name(n)
	case CategoryTag:
		return r.x.tag(n)
	}
	return "", false
}

func (r *run) listTrait(n NodeID, c Category) []string {
	switch c {
	case CategoryClass:
		return r.x.classes(n)
	case CategoryAttributes:
		return r.x.attributes(n, r.ignore)
	case CategoryDataAttributes:
		return r.x.dataAttributes(n, r.ignore)
	}
	return nil
}

// cachedDirect consults and fills the caller's per-node selector cache.
func (r *run) cachedDirect(n NodeID) string {
	if r.opts.SelectorCache != nil {
		if sel, ok := r.opts.SelectorCache.Get(n); ok {
			return sel
		}
	}
	sel := r.directSelector(n)
	if r.opts.SelectorCache != nil {
		r.opts.SelectorCache.Set(n, sel)
	}
	return sel
}
