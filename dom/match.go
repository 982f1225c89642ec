package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/uniqsel/selector"
)

func (d *Document) compile(sel string) (cascadia.Selector, error) {
	if c, ok := d.compiled[sel]; ok {
		return c.sel, c.err
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		err = fmt.Errorf("dom: compile %q: %w", sel, err)
	}
	d.compiled[sel] = compiledSelector{sel: s, err: err}
	return s, err
}

// QuerySelectorAll returns the elements under scope (scope excluded)
// matching sel, in document order. Nested shadow roots are separate scopes
// and are not entered.
func (d *Document) QuerySelectorAll(scope selector.NodeID, sel string) ([]selector.NodeID, error) {
	n := d.Node(scope)
	if n == nil {
		return nil, fmt.Errorf("dom: unknown scope %d", scope)
	}
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	return d.collect(n, s), nil
}

// Query runs sel against the document scope.
func (d *Document) Query(sel string) ([]selector.NodeID, error) {
	return d.QuerySelectorAll(d.Root(), sel)
}

// FindAll matches sel against every element of every scope, shadow roots
// included, in document order. It is how callers locate targets living
// inside shadow trees. Combinators never cross a scope boundary.
func (d *Document) FindAll(sel string) ([]selector.NodeID, error) {
	s, err := d.compile(sel)
	if err != nil {
		return nil, err
	}
	var out []selector.NodeID
	for i, n := range d.nodes {
		if isElement(n) && s.Match(n) {
			out = append(out, selector.NodeID(i))
		}
	}
	return out, nil
}

// Find is FindAll narrowed to exactly one element.
func (d *Document) Find(sel string) (selector.NodeID, error) {
	ids, err := d.FindAll(sel)
	if err != nil {
		return selector.NoNode, err
	}
	switch len(ids) {
	case 0:
		return selector.NoNode, fmt.Errorf("%w: %s", ErrNoMatch, sel)
	case 1:
		return ids[0], nil
	default:
		return selector.NoNode, fmt.Errorf("%w: %s (%d)", ErrAmbiguousTarget, sel, len(ids))
	}
}

// collect walks the light tree under scope. Shadow roots are detached, so
// nested scopes are never entered.
func (d *Document) collect(scope *html.Node, s cascadia.Selector) []selector.NodeID {
	var out []selector.NodeID
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c) && s.Match(c) {
				out = append(out, d.index[c])
			}
			walk(c)
		}
	}
	walk(scope)
	return out
}
