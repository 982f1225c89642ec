package selector

import "strings"

// maxCombination bounds the number of tokens joined in one candidate.
const maxCombination = 3

// combinations returns the concatenation of every 1..k sized combination of
// items, smallest first, each in original item order.
func combinations(items []string, k int) []string {
	var out []string
	buf := make([]string, 0, k)
	var pick func(start, size int)
	pick = func(start, size int) {
		if len(buf) == size {
			out = append(out, strings.Join(buf, ""))
			return
		}
		for i := start; i <= len(items)-(size-len(buf)); i++ {
			buf = append(buf, items[i])
			pick(i+1, size)
			buf = buf[:len(buf)-1]
		}
	}
	for size := 1; size <= k && size <= len(items); size++ {
		pick(0, size)
	}
	return out
}

// uniqueCombination returns the first token combination that is unique
// among n's siblings, retrying every combination qualified with tag when
// the bare ones are exhausted.
func (r *run) uniqueCombination(n NodeID, tokens []string, tag string) (string, bool) {
	combos := combinations(tokens, maxCombination)
	for _, c := range combos {
		if r.oracle.siblingUnique(n, c) {
			return c, true
		}
	}
	if tag == "" {
		return "", false
	}
	for _, c := range combos {
		if r.oracle.siblingUnique(n, tag+c) {
			return tag + c, true
		}
	}
	return "", false
}
