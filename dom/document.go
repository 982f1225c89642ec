// CLAUDE:SUMMARY HTML host for the selector synthesizer — x/net/html tree indexed into a NodeID arena, declarative shadow roots, cascadia matching.
// Package dom adapts a parsed HTML document to the selector package.
//
// Every node of the tree gets a stable selector.NodeID in document order
// (the document itself is 0). Shadow scoping uses declarative shadow DOM:
// a <template shadowrootmode="open|closed"> whose parent is an element is
// a shadow root. New lifts each one out of the host's child list into a
// detached fragment (an html.DocumentNode) that keeps the template's
// position in the ID order. The host's light children then count
// siblings the way a browser does, and no combinator can walk from
// shadow content into the host's ancestors.
//
// A Document is not safe for concurrent use.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/uniqsel/selector"
)

var (
	// ErrNoMatch is returned when a target query matches nothing.
	ErrNoMatch = errors.New("dom: query matched no element")
	// ErrAmbiguousTarget is returned when a target query matches several elements.
	ErrAmbiguousTarget = errors.New("dom: query matched more than one element")
)

// Document is an indexed HTML tree.
type Document struct {
	root     *html.Node
	nodes    []*html.Node
	index    map[*html.Node]selector.NodeID
	hosts    map[*html.Node]*html.Node // shadow root -> host
	shadows  map[*html.Node]*html.Node // host -> shadow root
	compiled map[string]compiledSelector
}

type compiledSelector struct {
	sel cascadia.Selector
	err error
}

var _ selector.Host = (*Document)(nil)

// Parse parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root), nil
}

// ParseBytes parses an HTML document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New indexes an already parsed tree rooted at root. It takes ownership of
// the tree: declarative shadow roots are detached from their hosts.
func New(root *html.Node) *Document {
	d := &Document{
		root:     root,
		index:    make(map[*html.Node]selector.NodeID),
		hosts:    make(map[*html.Node]*html.Node),
		shadows:  make(map[*html.Node]*html.Node),
		compiled: make(map[string]compiledSelector),
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		d.index[n] = selector.NodeID(len(d.nodes))
		d.nodes = append(d.nodes, n)
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if isShadowTemplate(c) && d.shadows[n] == nil {
				c = d.detachShadow(c)
			}
			walk(c)
			c = next
		}
	}
	walk(root)
	return d
}

// detachShadow removes tmpl from its host and moves its content under a
// fresh fragment node, which becomes the shadow root. A host keeps its
// first declarative shadow root; later ones stay plain templates.
func (d *Document) detachShadow(tmpl *html.Node) *html.Node {
	host := tmpl.Parent
	host.RemoveChild(tmpl)
	frag := &html.Node{Type: html.DocumentNode}
	for c := tmpl.FirstChild; c != nil; {
		next := c.NextSibling
		tmpl.RemoveChild(c)
		frag.AppendChild(c)
		c = next
	}
	d.hosts[frag] = host
	d.shadows[host] = frag
	return frag
}

// Root returns the document node.
func (d *Document) Root() selector.NodeID { return 0 }

// Len reports how many nodes are indexed.
func (d *Document) Len() int { return len(d.nodes) }

// Node returns the html.Node behind id, or nil.
func (d *Document) Node(id selector.NodeID) *html.Node {
	if id < 0 || int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// ID returns the handle of n.
func (d *Document) ID(n *html.Node) (selector.NodeID, bool) {
	id, ok := d.index[n]
	return id, ok
}

func (d *Document) id(n *html.Node) (selector.NodeID, bool) {
	if n == nil {
		return selector.NoNode, false
	}
	return d.ID(n)
}

// Elements returns every element, across all scopes, in document order.
func (d *Document) Elements() []selector.NodeID {
	var out []selector.NodeID
	for i, n := range d.nodes {
		if isElement(n) {
			out = append(out, selector.NodeID(i))
		}
	}
	return out
}

// ElementAt returns the i-th element (0-based) in document order.
func (d *Document) ElementAt(i int) (selector.NodeID, error) {
	els := d.Elements()
	if i < 0 || i >= len(els) {
		return selector.NoNode, fmt.Errorf("dom: element index %d out of range (%d elements)", i, len(els))
	}
	return els[i], nil
}

// Render serialises the subtree of id back to HTML.
func (d *Document) Render(id selector.NodeID) string {
	n := d.Node(id)
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// isShadowTemplate reports whether n, as parsed, declares a shadow root.
func isShadowTemplate(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Template {
		return false
	}
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return false
	}
	return hasAttr(n, "shadowrootmode") || hasAttr(n, "shadowroot")
}

func (d *Document) isShadowRoot(n *html.Node) bool {
	_, ok := d.hosts[n]
	return ok
}

func isElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// getAttr returns the value of an attribute on a node.
func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasAttr checks if a node has a specific attribute.
func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
