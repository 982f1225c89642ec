// CLAUDE:SUMMARY CLI entry point for uniqsel — one-shot selector synthesis, registry verification, HTTP and MCP serving.
// Command uniqsel computes short unique CSS selectors for elements of HTML pages.
//
// Usage:
//
//	uniqsel -html page.html -target 'a.buy'          # one selector, JSON on stdout
//	uniqsel -url https://example.com -index 42       # locate by document order
//	uniqsel -html - -target '#x' -candidates 5       # ranked alternatives, HTML on stdin
//	uniqsel -html page.html -all                     # selector for every element
//	uniqsel -url https://example.com -target h1 -record
//	uniqsel -verify sel_0192...                      # re-check a stored selector
//	uniqsel -list                                    # stored selectors
//	uniqsel -serve                                   # HTTP API
//	uniqsel -mcp                                     # MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/uniqsel/dom"
	"github.com/hazyhaar/uniqsel/fetch"
	"github.com/hazyhaar/uniqsel/internal/config"
	"github.com/hazyhaar/uniqsel/registry"
	"github.com/hazyhaar/uniqsel/selector"
	"github.com/hazyhaar/uniqsel/server"
)

type flags struct {
	config     string
	html       string
	url        string
	target     string
	index      int
	all        bool
	candidates int
	record     bool
	verify     string
	list       bool
	db         string
	serve      bool
	mcp        bool
	render     bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "path to uniqsel.yaml config file")
	flag.StringVar(&f.html, "html", "", "HTML file to read (- for stdin)")
	flag.StringVar(&f.url, "url", "", "page URL to fetch")
	flag.StringVar(&f.target, "target", "", "CSS query matching exactly one element")
	flag.IntVar(&f.index, "index", -1, "0-based element index in document order")
	flag.BoolVar(&f.all, "all", false, "print a selector for every element")
	flag.IntVar(&f.candidates, "candidates", 0, "list up to N ranked unique selectors")
	flag.BoolVar(&f.record, "record", false, "store the selector in the registry")
	flag.StringVar(&f.verify, "verify", "", "re-evaluate the stored selector with this ID")
	flag.BoolVar(&f.list, "list", false, "list stored selectors (filtered by -url)")
	flag.StringVar(&f.db, "db", "", "registry database path (overrides config)")
	flag.BoolVar(&f.serve, "serve", false, "serve the HTTP API")
	flag.BoolVar(&f.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.BoolVar(&f.render, "render", false, "enable the Chrome fallback for pages that need rendering")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, f); err != nil {
		logger.Error("uniqsel: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, f flags) error {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.LoadFile(f.config); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if f.db != "" {
		cfg.DBPath = f.db
	}
	if f.render {
		cfg.Browser.Enabled = true
	}

	opts, err := cfg.Synth.Options()
	if err != nil {
		return err
	}
	opts.Logger = logger

	loader, closeBrowser := newLoader(cfg, logger)
	defer closeBrowser()

	needsRegistry := f.serve || f.mcp || f.record || f.verify != "" || f.list
	if !needsRegistry {
		if f.html == "" && f.url == "" {
			fmt.Fprintln(os.Stderr, "usage: uniqsel (-html <file|-> | -url <url>) (-target <css> | -index <n> | -all) [-candidates N] [-record]")
			fmt.Fprintln(os.Stderr, "       uniqsel -verify <id> | -list | -serve | -mcp")
			os.Exit(2)
		}
		return runOneShot(ctx, loader, opts, f)
	}

	reg, err := registry.New(&registry.Config{
		DBPath:        cfg.DBPath,
		MaxCandidates: cfg.Synth.MaxCandidates,
		Options:       opts,
	}, loader, logger)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	switch {
	case f.serve:
		return server.New(reg, logger, server.WithMaxBody(cfg.HTTP.MaxBody)).ListenAndServe(ctx, cfg.HTTP.Addr)
	case f.mcp:
		srv := mcp.NewServer(&mcp.Implementation{Name: "uniqsel", Version: "1.0.0"}, nil)
		reg.RegisterMCP(srv)
		logger.Info("uniqsel: mcp on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	case f.verify != "":
		src, err := source(f)
		if err != nil {
			return err
		}
		v, err := reg.Verify(ctx, &registry.VerifyRequest{ID: f.verify, Source: src})
		if err != nil {
			return err
		}
		return printJSON(v)
	case f.list:
		recs, err := reg.List(ctx, &registry.ListRequest{URL: f.url})
		if err != nil {
			return err
		}
		return printJSON(recs)
	}

	src, err := source(f)
	if err != nil {
		return err
	}
	resp, err := reg.Synthesize(ctx, &registry.SynthesizeRequest{Source: src, Target: target(f), Record: true})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

// runOneShot synthesizes without touching the registry database.
func runOneShot(ctx context.Context, loader *fetch.Loader, opts selector.Options, f flags) error {
	doc, err := loadDocument(ctx, loader, f)
	if err != nil {
		return err
	}

	opts.SelectorCache = selector.NewSelectorCache()
	opts.UniqueCache = selector.NewUniqueCache()
	opts.TraitCache = selector.NewTraitCache()

	if f.all {
		type line struct {
			Index int `json:"index"`
			selector.Result
		}
		enc := json.NewEncoder(os.Stdout)
		for i, n := range doc.Elements() {
			if err := enc.Encode(line{Index: i, Result: selector.Synthesize(doc, n, opts)}); err != nil {
				return err
			}
		}
		return nil
	}

	n, err := locate(doc, f)
	if err != nil {
		return err
	}
	if f.candidates > 0 {
		return printJSON(selector.Candidates(doc, n, f.candidates, opts))
	}
	return printJSON(selector.Synthesize(doc, n, opts))
}

func newLoader(cfg *config.Config, logger *slog.Logger) (*fetch.Loader, func()) {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithMaxBody(cfg.Fetch.MaxBody),
		fetch.WithLogger(logger),
	}
	if cfg.Fetch.BlockPrivate {
		opts = append(opts, fetch.WithURLGuard())
	}
	fetcher := fetch.NewFetcher(opts...)
	if !cfg.Browser.Enabled {
		return fetch.NewLoader(fetcher, nil, logger), func() {}
	}
	b := fetch.NewBrowser(fetch.BrowserConfig{
		RemoteURL:        cfg.Browser.Remote,
		Timeout:          cfg.Browser.Timeout,
		Wait:             cfg.Browser.Wait,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	return fetch.NewLoader(fetcher, b, logger), func() {
		if err := b.Close(); err != nil {
			logger.Warn("uniqsel: browser close", "error", err)
		}
	}
}

func loadDocument(ctx context.Context, loader *fetch.Loader, f flags) (*dom.Document, error) {
	if f.html != "" {
		data, err := readHTML(f.html)
		if err != nil {
			return nil, err
		}
		return dom.ParseBytes(data)
	}
	page, err := loader.Load(ctx, f.url)
	if err != nil {
		return nil, err
	}
	return page.Document()
}

func locate(doc *dom.Document, f flags) (selector.NodeID, error) {
	switch {
	case f.target != "":
		return doc.Find(f.target)
	case f.index >= 0:
		return doc.ElementAt(f.index)
	}
	return selector.NoNode, errors.New("-target or -index required")
}

func source(f flags) (registry.Source, error) {
	src := registry.Source{URL: f.url}
	if f.html != "" {
		data, err := readHTML(f.html)
		if err != nil {
			return src, err
		}
		src.HTML = string(data)
	}
	return src, nil
}

func target(f flags) registry.Target {
	t := registry.Target{Query: f.target}
	if f.target == "" && f.index >= 0 {
		idx := f.index
		t.Index = &idx
	}
	return t
}

func readHTML(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
