package fetch

import (
	"bytes"

	"golang.org/x/net/html"
)

// IsSufficient reports whether a static HTML body carries enough visible
// text to be used without a browser: at least 256 bytes, 200 non-blank text
// characters, a text/markup ratio of 10%, and no known SPA mount point.
func IsSufficient(body []byte) bool {
	if len(body) < 256 {
		return false
	}

	text, markup := measure(body)
	if text+markup == 0 || float64(text)/float64(text+markup) < 0.10 {
		return false
	}
	if text < 200 {
		return false
	}

	lower := bytes.ToLower(body)
	for _, ind := range spaIndicators {
		if bytes.Contains(lower, []byte(ind)) {
			return false
		}
	}
	return true
}

var spaIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// measure counts visible non-blank text bytes against everything else.
// Script and style bodies count as markup.
func measure(body []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(body))
	hidden := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return text, markup
		}
		raw := len(z.Raw())
		switch tt {
		case html.TextToken:
			if hidden > 0 {
				markup += raw
				continue
			}
			for _, c := range z.Text() {
				if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
					text++
				}
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenText(name) {
				hidden++
			}
			markup += raw
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenText(name) && hidden > 0 {
				hidden--
			}
			markup += raw
		default:
			markup += raw
		}
	}
}

func isHiddenText(tag []byte) bool {
	return string(tag) == "script" || string(tag) == "style"
}
