package selector

import (
	"cmp"
	"slices"
	"strings"
)

// Score ranks a candidate selector; higher is better. It never decides
// correctness. Leading syntax earns a bonus (id > data-id > data-* > name >
// other attribute > class > bare tag), positional selectors lose 5 points
// and every 10 characters cost one.
func Score(selector string) float64 {
	if selector == "" {
		return 0
	}
	score := 1.0
	if strings.Contains(selector, ":nth-child") {
		score -= 5
	}
	switch {
	case strings.HasPrefix(selector, "#"):
		score += 100
	case strings.HasPrefix(selector, "[data-id"):
		score += 90
	case strings.HasPrefix(selector, "[data-"):
		score += 80
	case strings.HasPrefix(selector, "[name"):
		score += 70
	case strings.HasPrefix(selector, "["):
		score += 60
	case strings.HasPrefix(selector, "."):
		score += 50
	case isBareTag(selector):
		score += 30
	}
	return score - float64(len(selector))/10
}

func isBareTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// rank orders selectors by descending score; ties keep generation order.
func rank(selectors []string) []string {
	out := slices.Clone(selectors)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(Score(b), Score(a))
	})
	return out
}
