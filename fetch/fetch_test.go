package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var (
	staticPage = "<!DOCTYPE html><html><head><title>t</title></head><body><main><p>" +
		strings.Repeat("lorem ipsum dolor sit amet ", 20) +
		"</p></main></body></html>"
	shellPage = `<!DOCTYPE html><html><head><script src="/app.js"></script>` +
		strings.Repeat(`<link rel="preload" href="/chunk.js">`, 10) +
		`</head><body><div id="root"></div></body></html>`
	renderedPage = `<!DOCTYPE html><html><body><div id="root"><x-app><template shadowrootmode="open"><p class="hello">hi</p></template></x-app></div></body></html>`
)

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

type fakeRenderer struct {
	body  string
	err   error
	calls int
}

func (f *fakeRenderer) Render(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIsSufficient(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"static article", staticPage, true},
		{"spa shell", shellPage, false},
		{"too short", "<p>hi</p>", false},
		{"script heavy", "<html><body><p>short</p><script>" + strings.Repeat("var a = 1;", 200) + "</script></body></html>", false},
		{"mount point with text", strings.Replace(staticPage, "<main>", `<div id="app"></div><main>`, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSufficient([]byte(tt.body)); got != tt.want {
				t.Errorf("IsSufficient = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeasureSkipsScript(t *testing.T) {
	text, markup := measure([]byte("<p>ab c</p><script>xyz()</script><style>p{}</style>"))
	if text != 3 {
		t.Errorf("text = %d, want 3", text)
	}
	if markup == 0 {
		t.Error("markup not counted")
	}
}

func TestFetch(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		io.WriteString(w, staticPage)
	}))
	defer srv.Close()

	f := NewFetcher(WithUserAgent("uniqsel-test"), WithLogger(quietLogger()))
	p, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if ua != "uniqsel-test" {
		t.Errorf("User-Agent = %q", ua)
	}
	if string(p.HTML) != staticPage || !p.Sufficient || p.Rendered || p.StatusCode != 200 {
		t.Errorf("page = %+v", p)
	}

	doc, err := p.Document()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Find("main p"); err != nil {
		t.Errorf("parsed page: %v", err)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "nope")
	f := NewFetcher(WithLogger(quietLogger()))
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchMaxBody(t *testing.T) {
	srv := serve(t, http.StatusOK, staticPage)
	f := NewFetcher(WithMaxBody(64), WithLogger(quietLogger()))
	p, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.HTML) != 64 {
		t.Errorf("body length = %d, want 64", len(p.HTML))
	}
}

func TestLoaderStaticPage(t *testing.T) {
	srv := serve(t, http.StatusOK, staticPage)
	r := &fakeRenderer{body: renderedPage}
	l := NewLoader(NewFetcher(WithLogger(quietLogger())), r, quietLogger())

	p, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if p.Rendered || r.calls != 0 {
		t.Errorf("static page escalated: rendered=%v calls=%d", p.Rendered, r.calls)
	}
}

func TestLoaderEscalates(t *testing.T) {
	srv := serve(t, http.StatusOK, shellPage)
	r := &fakeRenderer{body: renderedPage}
	l := NewLoader(NewFetcher(WithLogger(quietLogger())), r, quietLogger())

	p, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Rendered || string(p.HTML) != renderedPage || p.StatusCode != 200 {
		t.Fatalf("page = %+v", p)
	}

	doc, err := p.Document()
	if err != nil {
		t.Fatal(err)
	}
	hello, err := doc.Find(".hello")
	if err != nil {
		t.Fatal(err)
	}
	if doc.RootNode(hello) == doc.Root() {
		t.Error("rendered shadow content not scoped to its shadow root")
	}
}

func TestLoaderRenderFailureKeepsStatic(t *testing.T) {
	srv := serve(t, http.StatusOK, shellPage)
	r := &fakeRenderer{err: errors.New("no chrome")}
	l := NewLoader(NewFetcher(WithLogger(quietLogger())), r, quietLogger())

	p, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if p.Rendered || string(p.HTML) != shellPage {
		t.Errorf("page = %+v", p)
	}
}

func TestLoaderHTTPFailure(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, "")

	l := NewLoader(NewFetcher(WithLogger(quietLogger())), nil, quietLogger())
	if _, err := l.Load(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error without renderer")
	}

	r := &fakeRenderer{body: renderedPage}
	l = NewLoader(NewFetcher(WithLogger(quietLogger())), r, quietLogger())
	p, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Rendered {
		t.Error("expected render fallback")
	}
}

func TestShouldBlock(t *testing.T) {
	block := map[string]bool{"images": true, "fonts": true}
	for resType, want := range map[string]bool{
		"Image":      true,
		"Font":       true,
		"Stylesheet": false,
		"Document":   false,
	} {
		if got := shouldBlock(block, resType); got != want {
			t.Errorf("shouldBlock(%q) = %v, want %v", resType, got, want)
		}
	}
}
