package selector

// NodeID is an arena handle for a node owned by the host tree. The
// synthesizer only ever reads through it.
type NodeID int

// NoNode marks the absence of a node.
const NoNode NodeID = -1

// Attr is one attribute of an element. An empty Value means the attribute
// is present without a value.
type Attr struct {
	Name  string
	Value string
}

// Tree is the read-only tree/attribute accessor the synthesizer consumes.
type Tree interface {
	// TagName returns the element's tag identity. ok is false when the tag
	// cannot be read as text.
	TagName(n NodeID) (tag string, ok bool)
	// NodeName returns the node-kind name, consulted when TagName is
	// unreadable.
	NodeName(n NodeID) (name string, ok bool)
	Attrs(n NodeID) []Attr
	ClassList(n NodeID) []string
	IsElement(n NodeID) bool
	// ParentNode returns any parent, including a document or shadow root.
	ParentNode(n NodeID) (NodeID, bool)
	// ParentElement returns the parent only when it is an element.
	ParentElement(n NodeID) (NodeID, bool)
	// ChildNodes returns every child, element or not, in order.
	ChildNodes(n NodeID) []NodeID
	// RootNode returns the scoping root of n: the nearest enclosing shadow
	// root, else the owning document.
	RootNode(n NodeID) NodeID
	// ShadowHost returns the element hosting a shadow root.
	ShadowHost(root NodeID) (NodeID, bool)
}

// Matcher evaluates a selector against the descendants of scope.
// A syntax failure is reported as an error.
type Matcher interface {
	QuerySelectorAll(scope NodeID, selector string) ([]NodeID, error)
}

// Host bundles the two capabilities a synthesis run needs.
type Host interface {
	Tree
	Matcher
}

func attrValue(t Tree, n NodeID, name string) (string, bool) {
	for _, a := range t.Attrs(n) {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
