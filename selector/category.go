package selector

import "strings"

// Category names a trait source in the precedence list handed to the
// resolver.
type Category string

const (
	CategoryDataAttributes Category = "data-attributes"
	CategoryID             Category = "id"
	CategoryName           Category = "name"
	CategoryClass          Category = "class"
	CategoryTag            Category = "tag"
	CategoryNthChild       Category = "nth-child"
	CategoryAttributes     Category = "attributes"

	// categoryAttribute is what a successful single-attribute probe turns into.
	categoryAttribute Category = "attribute"
)

const attributePrefix = "attribute:"

// DefaultSelectorTypes is the category precedence used when none is given.
var DefaultSelectorTypes = []Category{
	CategoryDataAttributes,
	CategoryID,
	CategoryName,
	CategoryClass,
	CategoryTag,
	CategoryNthChild,
}

// DefaultAttributesToIgnore lists attributes the generic attribute
// categories skip when none are given.
var DefaultAttributesToIgnore = []string{"id", "class", "length"}

// AttributeCategory returns the single-attribute probe category for name
// ("attribute:<name>").
func AttributeCategory(name string) Category {
	return Category(attributePrefix + name)
}

// probe reports the attribute a single-attribute category looks up:
// "data-<key>" or "attribute:<name>".
func (c Category) probe() (string, bool) {
	s := string(c)
	if name, ok := strings.CutPrefix(s, attributePrefix); ok && name != "" {
		return name, true
	}
	if c != CategoryDataAttributes && strings.HasPrefix(s, "data-") && len(s) > len("data-") {
		return s, true
	}
	return "", false
}

// ParseCategories converts configuration strings to categories.
func ParseCategories(names []string) []Category {
	out := make([]Category, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, Category(n))
		}
	}
	return out
}
