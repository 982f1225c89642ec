package selector_test

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/hazyhaar/uniqsel/dom"
	"github.com/hazyhaar/uniqsel/selector"
)

func page(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString("<!DOCTYPE html><html><head></head><body>" + body + "</body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func target(t *testing.T, doc *dom.Document, query string) selector.NodeID {
	t.Helper()
	n, err := doc.Find(query)
	if err != nil {
		t.Fatalf("find %q: %v", query, err)
	}
	return n
}

// assertResolves checks that sel matches exactly n in n's scope.
func assertResolves(t *testing.T, doc *dom.Document, n selector.NodeID, sel string) {
	t.Helper()
	got, err := doc.QuerySelectorAll(doc.RootNode(n), sel)
	if err != nil {
		t.Fatalf("query %q: %v", sel, err)
	}
	if len(got) != 1 || got[0] != n {
		t.Errorf("selector %q matched %v, want only %d", sel, got, n)
	}
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		target   string
		types    []selector.Category
		want     string
		strategy selector.Strategy
	}{
		{
			name:     "id",
			body:     `<div id="so" class="test3"></div>`,
			target:   "#so",
			want:     "#so",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "id needing escape",
			body:     `<div id="123"></div>`,
			target:   "div",
			want:     `#\31 23`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "class",
			body:     `<div class="test2"></div>`,
			target:   ".test2",
			want:     ".test2",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "class needing escape",
			body:     `<div class="@test test2"></div>`,
			target:   ".test2",
			want:     `.\@test`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "identical siblings fall back to path",
			body:     `<div class="test2"></div><div class="test2"></div>`,
			target:   "div:first-child",
			want:     "body > :nth-child(1)",
			strategy: selector.StrategyPath,
		},
		{
			name:     "class combination",
			body:     `<div class="test2 ca cb cc cd cx"></div><div class="test2 ca cb cc cd ce"></div><div class="test2 ca cb cc cd ce"></div><div class="test2 ca cb cd ce cf cx"></div>`,
			target:   "div:first-child",
			want:     ".cc.cx",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "class list with newlines",
			body:     "<div class=\"test2\n ca\n cb\n cc\n cd\n cx\"></div><div class=\"test2 ca cb cc cd ce\"></div><div class=\"test2 ca cb cd ce cf cx\"></div>",
			target:   "div:first-child",
			want:     ".cc.cx",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "name attribute",
			body:     `<div name="so" class="test3"></div>`,
			target:   "div",
			want:     `[name="so"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "empty name falls through",
			body:     `<div name="" class="test3"></div>`,
			target:   "div",
			want:     ".test3",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "data attribute probe",
			body:     `<div data-foo="so" class="test6"></div>`,
			target:   "div",
			types:    []selector.Category{"data-foo"},
			want:     `[data-foo="so"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "data attribute probe with spaces",
			body:     `<div data-foo-bar="button 123" class="test6"></div>`,
			target:   "div",
			types:    []selector.Category{"data-foo-bar"},
			want:     `[data-foo-bar="button 123"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "valueless data attribute probe",
			body:     `<div data-foo class="test7"></div>`,
			target:   "div",
			types:    []selector.Category{"data-foo"},
			want:     `[data-foo]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "generic attributes",
			body:     `<div class="test5" test="5"></div>`,
			target:   "div",
			types:    []selector.Category{selector.CategoryAttributes},
			want:     `[test="5"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "attribute probe",
			body:     `<a href="/x">x</a><a href="/y">y</a>`,
			target:   `a[href="/y"]`,
			types:    []selector.Category{selector.AttributeCategory("href")},
			want:     `[href="/y"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "data-id beats class",
			body:     `<div data-id="map" class="test3 other-class"></div>`,
			target:   "div",
			want:     `[data-id="map"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "nested data-id",
			body:     `<div class="outer"><div class="inner"><span data-id="map">Map</span></div></div>`,
			target:   "span",
			want:     `[data-id="map"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "several data attributes",
			body:     `<div data-testid="container"><span data-testid="label" data-custom="xyz">Label</span></div>`,
			target:   "span",
			want:     `[data-testid="label"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "bare tag",
			body:     `<div class="test2"><span></span></div><div class="test2"></div>`,
			target:   "span",
			want:     "span",
			strategy: selector.StrategyDirect,
		},
		{
			name:     "discriminating attribute over position",
			body:     `<button class="btn" type="submit">Go</button><button class="btn" type="reset">No</button>`,
			target:   `[type="submit"]`,
			types:    []selector.Category{selector.CategoryAttributes, selector.CategoryNthChild},
			want:     `[type="submit"]`,
			strategy: selector.StrategyDirect,
		},
		{
			name:     "duplicate data-id resolved by parent",
			body:     `<div class="level1"><div class="level2"><div data-sidebar="menu-button"><span data-id="map">A</span><span data-id="map">B</span></div></div></div>`,
			target:   `span:first-child`,
			want:     `[data-sidebar="menu-button"] > :nth-child(1)`,
			strategy: selector.StrategyPath,
		},
		{
			name: "ancestor attribute",
			body: `<nav><ul>` +
				`<li><a data-sidebar="menu-button" href="/user/test"><svg></svg><span class="target-element">User</span></a></li>` +
				`<li><a data-sidebar="menu-button" href="/map"><svg></svg><span class="target-element">Map</span></a></li>` +
				`</ul></nav>`,
			target:   `a[href="/map"] span`,
			want:     `a[href="/map"] > .target-element`,
			strategy: selector.StrategyAncestor,
		},
		{
			name: "adjacent items",
			body: `<ul>` +
				`<li data-item="1"><a href="#1"><span>One</span></a></li>` +
				`<li data-item="2"><a href="#2"><span>Two</span></a></li>` +
				`<li data-item="3"><a href="#3"><span>Three</span></a></li>` +
				`</ul>`,
			target:   `a[href="#1"] span`,
			want:     `a[href="#1"] > span`,
			strategy: selector.StrategyAncestor,
		},
		{
			name:     "parent position",
			body:     `<div><span></span></div><div><span></span></div>`,
			target:   `div:first-child span`,
			want:     `div:nth-child(1) > span`,
			strategy: selector.StrategyAncestor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := page(t, tt.body)
			n := target(t, doc, tt.target)
			got := selector.Synthesize(doc, n, selector.Options{SelectorTypes: tt.types})
			if got.Selector != tt.want {
				t.Errorf("selector = %q, want %q", got.Selector, tt.want)
			}
			if got.Strategy != tt.strategy {
				t.Errorf("strategy = %q, want %q", got.Strategy, tt.strategy)
			}
			if !got.Unique {
				t.Error("result not marked unique")
			}
			assertResolves(t, doc, n, got.Selector)
		})
	}
}

func TestSynthesizeProbeLeavesGenericCategory(t *testing.T) {
	doc := page(t, `<div data-foo="a" data-bar="b"></div><div data-foo="a" data-bar="c"></div>`)
	n := target(t, doc, `[data-bar="b"]`)
	got := selector.Selector(doc, n, selector.Options{
		SelectorTypes: []selector.Category{"data-foo", selector.CategoryDataAttributes},
	})
	if got != `[data-bar="b"]` {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeFilterVeto(t *testing.T) {
	doc := page(t, `<div id="so" data-id="k" class="test3"></div>`)
	n := target(t, doc, "div")
	got := selector.Selector(doc, n, selector.Options{Filter: selector.DenyAttributes("id", "data-id")})
	if got != ".test3" {
		t.Errorf("got %q, want .test3", got)
	}
}

func TestSynthesizeFilterVetoesEveryUse(t *testing.T) {
	doc := page(t, `<p class="a b"></p><p class="a"></p>`)
	n := target(t, doc, "p.b")
	res := selector.Synthesize(doc, n, selector.Options{
		Filter: selector.DenyClasses(regexp.MustCompile(`^b$`)),
	})
	if strings.Contains(res.Selector, ".b") {
		t.Errorf("vetoed class used: %q", res.Selector)
	}
	if !res.Unique {
		t.Fatalf("expected a unique selector, got %+v", res)
	}
	assertResolves(t, doc, n, res.Selector)
}

func TestSynthesizeExhausted(t *testing.T) {
	doc := page(t, `<p class="a"></p><p class="a"></p>`)
	n := target(t, doc, "p:first-child")
	res := selector.Synthesize(doc, n, selector.Options{
		SelectorTypes: []selector.Category{selector.CategoryClass},
	})
	want := selector.Result{Selector: "* > * > *", Strategy: selector.StrategyExhausted}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
	if selector.IsUnique(doc, n, res.Selector) {
		t.Error("exhausted result should not verify")
	}
}

func TestSynthesizeNonElement(t *testing.T) {
	doc := page(t, `<p>x</p>`)
	res := selector.Synthesize(doc, doc.Root(), selector.Options{})
	if res.Selector != "*" || res.Strategy != selector.StrategyExhausted || res.Unique {
		t.Errorf("got %+v", res)
	}
}

func TestSynthesizeShadowScope(t *testing.T) {
	doc := page(t, `<div class="card"><span class="title">Outer</span></div>`+
		`<x-card><template shadowrootmode="open"><div class="card"><span class="title">Inner</span></div></template></x-card>`)

	spans, err := doc.FindAll(".title")
	if err != nil || len(spans) != 2 {
		t.Fatalf("FindAll: %v %v", spans, err)
	}
	for _, n := range spans {
		res := selector.Synthesize(doc, n, selector.Options{})
		if res.Selector != ".title" || !res.Unique {
			t.Errorf("node %d: got %+v, want unique .title", n, res)
		}
		assertResolves(t, doc, n, res.Selector)
	}
}

func TestSynthesizeShadowRootsAreSeparateScopes(t *testing.T) {
	doc := page(t, `<x-a><template shadowrootmode="open"><i></i></template></x-a>`+
		`<x-a><template shadowrootmode="open"><i></i></template></x-a>`)
	is, err := doc.FindAll("i")
	if err != nil || len(is) != 2 {
		t.Fatalf("FindAll: %v %v", is, err)
	}
	for _, n := range is {
		res := selector.Synthesize(doc, n, selector.Options{})
		if res.Selector != "i" || !res.Unique {
			t.Errorf("got %+v", res)
		}
	}
}

func TestSynthesizeShadowHostLightChildren(t *testing.T) {
	doc := page(t, `<x-card><template shadowrootmode="open"><slot></slot></template>`+
		`<span class="a"></span><span class="a"></span></x-card><x-card></x-card>`)
	spans, err := doc.FindAll("span")
	if err != nil || len(spans) != 2 {
		t.Fatalf("FindAll: %v %v", spans, err)
	}
	want := []string{
		"body > :nth-child(1) > :nth-child(1)",
		"body > :nth-child(1) > :nth-child(2)",
	}
	for i, n := range spans {
		res := selector.Synthesize(doc, n, selector.Options{})
		if res.Selector != want[i] || res.Strategy != selector.StrategyPath || !res.Unique {
			t.Errorf("span %d: got %+v, want unique path %q", i, res, want[i])
		}
		assertResolves(t, doc, n, res.Selector)
	}
}

func TestSynthesizeWalkCrossesShadowHost(t *testing.T) {
	doc := page(t, `<x-w id="w"><template shadowrootmode="open"><p></p><p></p></template></x-w>`)
	ps, err := doc.FindAll("p")
	if err != nil || len(ps) != 2 {
		t.Fatalf("FindAll: %v %v", ps, err)
	}
	host := target(t, doc, "#w")

	res := selector.Synthesize(doc, ps[1], selector.Options{Filter: selector.DenyPositional()})
	if res.Strategy != selector.StrategyExhausted || res.Unique {
		t.Fatalf("got %+v, want exhausted", res)
	}
	segs := strings.Split(res.Selector, " > ")
	if len(segs) != 4 || segs[3] != "*" {
		t.Fatalf("selector %q: want html, body, host and the wildcard", res.Selector)
	}
	hosts, err := doc.Query(segs[2])
	if err != nil || len(hosts) != 1 || hosts[0] != host {
		t.Errorf("segment %q matched %v, want the host %d", segs[2], hosts, host)
	}
	if selector.IsUnique(doc, ps[1], res.Selector) {
		t.Error("crossed path reported unique inside the shadow scope")
	}
}

func TestSynthesizeAncestorDepthCap(t *testing.T) {
	// Only the third ancestor level (the section id) tells the spans apart.
	doc := page(t, `<section id="s1"><div><p><span class="x"></span></p></div></section>`+
		`<section id="s2"><div><p><span class="x"></span></p></div></section>`)
	n := target(t, doc, "#s1 span")

	res := selector.Synthesize(doc, n, selector.Options{})
	if res.Strategy != selector.StrategyPath || !res.Unique {
		t.Fatalf("got %+v, want the path walk to answer", res)
	}
	if res.Selector != "#s1 > div > p > .x" {
		t.Errorf("selector = %q", res.Selector)
	}
	assertResolves(t, doc, n, res.Selector)

	got := selector.Candidates(doc, n, 5, selector.Options{})
	if len(got) != 1 || got[0].Selector != res.Selector {
		t.Errorf("candidates = %+v, want only the path result", got)
	}
}

// brokenMatcher rejects every attribute selector as a syntax error.
type brokenMatcher struct{ *dom.Document }

func (b brokenMatcher) QuerySelectorAll(scope selector.NodeID, sel string) ([]selector.NodeID, error) {
	if strings.Contains(sel, "[") {
		return nil, errors.New("syntax error")
	}
	return b.Document.QuerySelectorAll(scope, sel)
}

func TestSynthesizeMatcherErrors(t *testing.T) {
	doc := page(t, `<div data-id="x" class="c"></div>`)
	n := target(t, doc, "div")
	got := selector.Selector(brokenMatcher{doc}, n, selector.Options{})
	if got != ".c" {
		t.Errorf("got %q, want .c", got)
	}
}

// tagless hides tag names, optionally keeping the node-kind name.
type tagless struct {
	*dom.Document
	nodeName bool
}

func (t tagless) TagName(selector.NodeID) (string, bool) { return "", false }

func (t tagless) NodeName(n selector.NodeID) (string, bool) {
	if !t.nodeName {
		return "", false
	}
	return t.Document.NodeName(n)
}

func TestSynthesizeUnreadableTag(t *testing.T) {
	doc := page(t, `<section></section>`)
	n := target(t, doc, "section")

	res := selector.Synthesize(tagless{Document: doc}, n, selector.Options{})
	if strings.Contains(res.Selector, "section") {
		t.Errorf("tag used despite being unreadable: %q", res.Selector)
	}
	if !res.Unique {
		t.Fatalf("got %+v", res)
	}
	assertResolves(t, doc, n, res.Selector)

	got := selector.Selector(tagless{Document: doc, nodeName: true}, n, selector.Options{})
	if got != "section" {
		t.Errorf("node name fallback: got %q", got)
	}
}

func TestCandidates(t *testing.T) {
	doc := page(t, `<nav><ul>`+
		`<li><a data-sidebar="menu-button" href="/user/test"><svg></svg><span class="target-element">User</span></a></li>`+
		`<li><a data-sidebar="menu-button" href="/map"><svg></svg><span class="target-element">Map</span></a></li>`+
		`</ul></nav>`)
	n := target(t, doc, `a[href="/map"] span`)

	got := selector.Candidates(doc, n, 3, selector.Options{})
	if len(got) != 3 {
		t.Fatalf("got %d candidates: %+v", len(got), got)
	}
	for i, c := range got {
		assertResolves(t, doc, n, c.Selector)
		if c.Score != selector.Score(c.Selector) {
			t.Errorf("candidate %q score %v", c.Selector, c.Score)
		}
		if i > 0 && got[i-1].Score < c.Score {
			t.Errorf("candidates out of order: %+v", got)
		}
	}

	if got := selector.Candidates(doc, n, 0, selector.Options{}); got != nil {
		t.Errorf("limit 0: got %+v", got)
	}
}

func TestCandidatesFallsBackToPath(t *testing.T) {
	doc := page(t, `<div class="x"></div><div class="x"></div>`)
	n := target(t, doc, "div:first-child")
	got := selector.Candidates(doc, n, 5, selector.Options{})
	if len(got) != 1 || got[0].Selector != "body > :nth-child(1)" {
		t.Errorf("got %+v", got)
	}
}

const mixedPage = `<header id="top"><h1 class="title">Shop</h1><nav>` +
	`<a href="/" class="nav-link active">Home</a><a href="/cart" class="nav-link">Cart</a></nav></header>` +
	`<main><ul class="products">` +
	`<li class="product" data-sku="a1"><h2>Alpha</h2><button class="buy">Buy</button></li>` +
	`<li class="product" data-sku="b2"><h2>Beta</h2><button class="buy">Buy</button></li>` +
	`<li class="product"><h2>Gamma</h2><button class="buy" disabled>Buy</button></li>` +
	`</ul><form name="search"><input name="q"><input type="submit"></form></main>` +
	`<x-widget><template shadowrootmode="open"><p class="note">a</p><p class="note">b</p></template></x-widget>` +
	`<footer><p>one</p><p>two</p></footer>`

func TestSynthesizeEveryElement(t *testing.T) {
	doc := page(t, mixedPage)
	for _, n := range doc.Elements() {
		res := selector.Synthesize(doc, n, selector.Options{})
		if !res.Unique {
			if res.Strategy != selector.StrategyExhausted {
				t.Errorf("node %d: non-unique result with strategy %q", n, res.Strategy)
			}
			continue
		}
		assertResolves(t, doc, n, res.Selector)
	}
}

func TestSharedCachesAgree(t *testing.T) {
	doc := page(t, mixedPage)
	shared := selector.Options{
		SelectorCache: selector.NewSelectorCache(),
		UniqueCache:   selector.NewUniqueCache(),
		TraitCache:    selector.NewTraitCache(),
	}
	for _, n := range doc.Elements() {
		cold := selector.Synthesize(doc, n, selector.Options{})
		warm := selector.Synthesize(doc, n, shared)
		if cold != warm {
			t.Errorf("node %d: cold %+v, warm %+v", n, cold, warm)
		}
	}
	if shared.UniqueCache.Len() == 0 || shared.TraitCache.Len() == 0 {
		t.Error("caches were not filled")
	}

	shared.UniqueCache.Reset()
	shared.TraitCache.Reset()
	shared.SelectorCache.Reset()
	if shared.UniqueCache.Len()+shared.TraitCache.Len()+shared.SelectorCache.Len() != 0 {
		t.Error("reset left entries behind")
	}
}

func TestTraitCacheBypassedWithFilter(t *testing.T) {
	doc := page(t, `<div id="so" class="c"></div>`)
	n := target(t, doc, "div")
	cache := selector.NewTraitCache()

	if got := selector.Selector(doc, n, selector.Options{TraitCache: cache}); got != "#so" {
		t.Fatalf("got %q", got)
	}
	filtered := selector.Selector(doc, n, selector.Options{
		TraitCache: cache,
		Filter:     selector.DenyAttributes("id"),
	})
	if filtered != ".c" {
		t.Errorf("filtered run reused unfiltered traits: %q", filtered)
	}

	cache.Forget(n)
	if cache.Len() != 0 {
		t.Errorf("Forget left %d entries", cache.Len())
	}
}

func TestCustomEscape(t *testing.T) {
	doc := page(t, `<div id="plain"></div>`)
	n := target(t, doc, "div")
	calls := 0
	esc := func(s string) string {
		calls++
		return selector.Escape(s)
	}
	if got := selector.Selector(doc, n, selector.Options{Escape: esc}); got != "#plain" {
		t.Errorf("got %q", got)
	}
	if calls == 0 {
		t.Error("custom escape not used")
	}
}

func TestTraitCacheBypassedWithCustomEscape(t *testing.T) {
	doc := page(t, `<div id="so"></div>`)
	n := target(t, doc, "div")
	cache := selector.NewTraitCache()
	hexEscape := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			fmt.Fprintf(&b, "\\%x ", r)
		}
		return b.String()
	}

	if got := selector.Selector(doc, n, selector.Options{TraitCache: cache}); got != "#so" {
		t.Fatalf("default escape: got %q", got)
	}
	custom := selector.Selector(doc, n, selector.Options{TraitCache: cache, Escape: hexEscape})
	if custom != `#\73 \6f ` {
		t.Errorf("custom escape reused cached fragments: %q", custom)
	}
	assertResolves(t, doc, n, custom)
	if got := selector.Selector(doc, n, selector.Options{TraitCache: cache}); got != "#so" {
		t.Errorf("custom run leaked into the shared cache: %q", got)
	}
}
