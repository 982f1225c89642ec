package dom

import (
	"strings"

	"github.com/hazyhaar/uniqsel/selector"
)

// TagName returns the lower-case tag. x/net/html always has it; an element
// with an empty Data is reported unreadable.
func (d *Document) TagName(id selector.NodeID) (string, bool) {
	n := d.Node(id)
	if !isElement(n) || n.Data == "" {
		return "", false
	}
	return n.Data, true
}

// NodeName returns the tag as known to the atom table.
func (d *Document) NodeName(id selector.NodeID) (string, bool) {
	n := d.Node(id)
	if !isElement(n) || n.DataAtom == 0 {
		return "", false
	}
	return n.DataAtom.String(), true
}

// Attrs returns the element's attributes in source order. Namespaced
// attributes are reported as "ns:key".
func (d *Document) Attrs(id selector.NodeID) []selector.Attr {
	n := d.Node(id)
	if !isElement(n) {
		return nil
	}
	out := make([]selector.Attr, 0, len(n.Attr))
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, selector.Attr{Name: name, Value: a.Val})
	}
	return out
}

// ClassList splits the class attribute on whitespace, dropping duplicates.
func (d *Document) ClassList(id selector.NodeID) []string {
	n := d.Node(id)
	if !isElement(n) || !hasAttr(n, "class") {
		return nil
	}
	fields := strings.Fields(getAttr(n, "class"))
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func (d *Document) IsElement(id selector.NodeID) bool { return isElement(d.Node(id)) }

// ParentNode is empty for the document and for shadow roots.
func (d *Document) ParentNode(id selector.NodeID) (selector.NodeID, bool) {
	n := d.Node(id)
	if n == nil {
		return selector.NoNode, false
	}
	return d.id(n.Parent)
}

// ParentElement is empty for the children of a shadow root and for the
// document element.
func (d *Document) ParentElement(id selector.NodeID) (selector.NodeID, bool) {
	n := d.Node(id)
	if n == nil || !isElement(n.Parent) {
		return selector.NoNode, false
	}
	return d.id(n.Parent)
}

func (d *Document) ChildNodes(id selector.NodeID) []selector.NodeID {
	n := d.Node(id)
	if n == nil {
		return nil
	}
	var out []selector.NodeID
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cid, ok := d.id(c); ok {
			out = append(out, cid)
		}
	}
	return out
}

// RootNode returns the nearest enclosing shadow root, or the top of the
// tree. Shadow roots are detached, so both are simply the topmost parent.
func (d *Document) RootNode(id selector.NodeID) selector.NodeID {
	n := d.Node(id)
	if n == nil {
		return selector.NoNode
	}
	for n.Parent != nil {
		n = n.Parent
	}
	root, _ := d.id(n)
	return root
}

func (d *Document) ShadowHost(root selector.NodeID) (selector.NodeID, bool) {
	host, ok := d.hosts[d.Node(root)]
	if !ok {
		return selector.NoNode, false
	}
	return d.id(host)
}

// ShadowRoot returns the shadow root attached to host.
func (d *Document) ShadowRoot(host selector.NodeID) (selector.NodeID, bool) {
	root, ok := d.shadows[d.Node(host)]
	if !ok {
		return selector.NoNode, false
	}
	return d.id(root)
}

// ShadowRoots returns every shadow root in document order.
func (d *Document) ShadowRoots() []selector.NodeID {
	var out []selector.NodeID
	for i, n := range d.nodes {
		if d.isShadowRoot(n) {
			out = append(out, selector.NodeID(i))
		}
	}
	return out
}
