package selector

import (
	"regexp"
	"slices"
	"strings"
)

// TraitType is the kind of identifying fact a Trait carries.
type TraitType string

const (
	TraitID            TraitType = "id"
	TraitName          TraitType = "name"
	TraitTag           TraitType = "tag"
	TraitClass         TraitType = "class"
	TraitAttribute     TraitType = "attribute"
	TraitDataAttribute TraitType = "data-attribute"
	TraitNthChild      TraitType = "nth-child"
)

// Trait is one identifying fact about a node. For nth-child the Value is the
// 1-based ordinal in decimal.
type Trait struct {
	Type  TraitType
	Key   string
	Value string
}

// attrTrait types an attribute the same way whichever category surfaces it,
// so a filter verdict on e.g. data-id holds for data-attributes, attributes
// and single-attribute probes alike.
func attrTrait(name, value string) Trait {
	switch {
	case name == "id":
		return Trait{Type: TraitID, Key: name, Value: value}
	case name == "name":
		return Trait{Type: TraitName, Key: name, Value: value}
	case strings.HasPrefix(name, "data-"):
		return Trait{Type: TraitDataAttribute, Key: name, Value: value}
	}
	return Trait{Type: TraitAttribute, Key: name, Value: value}
}

// Verdict is a filter's answer. NoOpinion is treated as Allow.
type Verdict int

const (
	NoOpinion Verdict = iota
	Allow
	Deny
)

// Filter vetoes traits before they are used to build selectors.
type Filter func(Trait) Verdict

func (f Filter) allows(t Trait) bool {
	if f == nil {
		return true
	}
	return f(t) != Deny
}

// Chain combines filters: any Deny wins, then any Allow, else NoOpinion.
func Chain(filters ...Filter) Filter {
	return func(t Trait) Verdict {
		v := NoOpinion
		for _, f := range filters {
			if f == nil {
				continue
			}
			switch f(t) {
			case Deny:
				return Deny
			case Allow:
				v = Allow
			}
		}
		return v
	}
}

// DenyAttributes rejects every trait read from one of the named attributes.
func DenyAttributes(names ...string) Filter {
	return func(t Trait) Verdict {
		switch t.Type {
		case TraitTag, TraitClass, TraitNthChild:
			return NoOpinion
		}
		if slices.Contains(names, t.Key) {
			return Deny
		}
		return NoOpinion
	}
}

// DenyClasses rejects class tokens matching any of the patterns. Useful for
// generated class names (css-modules hashes, utility frameworks).
func DenyClasses(patterns ...*regexp.Regexp) Filter {
	return func(t Trait) Verdict {
		if t.Type != TraitClass {
			return NoOpinion
		}
		for _, re := range patterns {
			if re.MatchString(t.Value) {
				return Deny
			}
		}
		return NoOpinion
	}
}

// DenyPositional rejects nth-child traits entirely.
func DenyPositional() Filter {
	return func(t Trait) Verdict {
		if t.Type == TraitNthChild {
			return Deny
		}
		return NoOpinion
	}
}
