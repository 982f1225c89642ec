package selector

import (
	"fmt"
	"strings"
)

// Escape serialises s as a CSS identifier, following the CSSOM CSS.escape
// algorithm: leading digits and control characters become hex escapes,
// other non-identifier ASCII is backslash-escaped.
func Escape(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case (r >= 0x01 && r <= 0x1f) || r == 0x7f,
			i == 0 && isDigit(r),
			i == 1 && isDigit(r) && runes[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' || isDigit(r) || isLetter(r):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// quoteValue renders v as a double-quoted CSS string.
func quoteValue(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for _, r := range v {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == 0:
			b.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// attrSelector renders [name="value"], or [name] when value is empty.
func attrSelector(escape func(string) string, name, value string) string {
	if value == "" {
		return "[" + escape(name) + "]"
	}
	return "[" + escape(name) + "=" + quoteValue(value) + "]"
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
