// CLAUDE:SUMMARY Registry orchestrator — acquire a document, locate the target, synthesize/rank selectors, record them and verify them later.
// Package registry records synthesized selectors and re-verifies them.
//
// Flows:
//
//	Synthesize: document (inline HTML or URL) + target → selector, optionally recorded
//	Candidates: same input → ranked list of unique selectors
//	Verify:     stored selector + fresh document → unique | ambiguous | missing | invalid,
//	            folded into the record's stability
//
// Usage:
//
//	r, err := registry.New(cfg, loader, logger)
//	defer r.Close()
//	r.RegisterMCP(mcpServer)
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hazyhaar/uniqsel/dom"
	"github.com/hazyhaar/uniqsel/fetch"
	"github.com/hazyhaar/uniqsel/idgen"
	"github.com/hazyhaar/uniqsel/registry/internal/store"
	"github.com/hazyhaar/uniqsel/selector"
)

var (
	newSelectorID     = idgen.Prefixed("sel_", idgen.UUIDv7())
	newVerificationID = idgen.Prefixed("ver_", idgen.UUIDv7())
)

// Registry is the main orchestrator.
type Registry struct {
	store  *store.Store
	loader *fetch.Loader
	logger *slog.Logger
	config *Config
}

// New creates a Registry. It opens the SQLite database and initialises the
// schema. A nil loader restricts callers to inline HTML.
func New(cfg *Config, loader *fetch.Loader, logger *slog.Logger) (*Registry, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &Registry{
		store:  s,
		loader: loader,
		logger: logger,
		config: cfg,
	}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.store.Close()
}

// Store returns the underlying store for direct access (testing, admin).
func (r *Registry) Store() *store.Store {
	return r.store
}

// --- Synthesis ---

// Synthesize computes the selector of the requested node and records it
// when asked to.
func (r *Registry) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	doc, url, err := r.document(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	n, err := locate(doc, req.Target)
	if err != nil {
		return nil, err
	}

	opts := r.options()
	res := selector.Synthesize(doc, n, opts)
	out := &SynthesizeResponse{
		Result:  res,
		Scope:   scopeOf(doc, n, opts),
		Score:   selector.Score(res.Selector),
		Element: snippet(doc.Render(n)),
	}
	if !res.Unique {
		r.logger.Warn("registry: selector not unique", "url", url, "target", req.Target.String(), "selector", res.Selector)
	}

	if req.Record {
		rec := &Record{
			ID:       newSelectorID(),
			URL:      url,
			Target:   req.Target.String(),
			Scope:    out.Scope,
			Selector: res.Selector,
			Strategy: string(res.Strategy),
			Unique:   res.Unique,
			Score:    out.Score,
		}
		if err := r.store.InsertRecord(ctx, rec); err != nil {
			return nil, err
		}
		out.ID = rec.ID
		r.logger.Info("registry: selector recorded",
			"id", rec.ID, "url", url, "selector", rec.Selector, "strategy", rec.Strategy)
	}
	return out, nil
}

// Candidates returns ranked unique selectors for the requested node.
func (r *Registry) Candidates(ctx context.Context, req *CandidatesRequest) (*CandidatesResponse, error) {
	doc, _, err := r.document(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	n, err := locate(doc, req.Target)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 || limit > r.config.MaxCandidates {
		limit = r.config.MaxCandidates
	}
	opts := r.options()
	cands := selector.Candidates(doc, n, limit, opts)
	if cands == nil {
		cands = []selector.Candidate{}
	}
	return &CandidatesResponse{
		Candidates: cands,
		Scope:      scopeOf(doc, n, opts),
		Element:    snippet(doc.Render(n)),
	}, nil
}

// --- Records ---

// Get returns a record and its recent verifications, or nil when absent.
func (r *Registry) Get(ctx context.Context, id string) (*RecordDetail, error) {
	rec, err := r.store.GetRecord(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	history, err := r.store.ListVerifications(ctx, id, 20)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*Verification{}
	}
	return &RecordDetail{Record: rec, Verifications: history}, nil
}

// List returns stored selectors, newest first.
func (r *Registry) List(ctx context.Context, req *ListRequest) ([]*Record, error) {
	recs, err := r.store.ListRecords(ctx, req.URL, req.Limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*Record{}
	}
	return recs, nil
}

// Delete removes a stored selector.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.store.DeleteRecord(ctx, id)
}

// --- helpers ---

// options returns the configured synthesis options with fresh caches: one
// request shares caches across its runs, never across documents.
func (r *Registry) options() selector.Options {
	o := r.config.Options
	o.SelectorCache = selector.NewSelectorCache()
	o.UniqueCache = selector.NewUniqueCache()
	o.TraitCache = selector.NewTraitCache()
	if o.Logger == nil {
		o.Logger = r.logger
	}
	return o
}

// document parses inline HTML, or loads src.URL.
func (r *Registry) document(ctx context.Context, src Source) (*dom.Document, string, error) {
	if src.HTML != "" {
		doc, err := dom.ParseString(src.HTML)
		return doc, src.URL, err
	}
	if src.URL == "" {
		return nil, "", fmt.Errorf("%w: html or url required", ErrInvalidRequest)
	}
	if r.loader == nil {
		return nil, "", fmt.Errorf("%w: url loading disabled, send html", ErrInvalidRequest)
	}
	page, err := r.loader.Load(ctx, src.URL)
	if errors.Is(err, fetch.ErrUnsafeURL) {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	doc, err := page.Document()
	return doc, src.URL, err
}

// locate resolves the target to exactly one element.
func locate(doc *dom.Document, t Target) (selector.NodeID, error) {
	switch {
	case t.Query != "":
		n, err := doc.Find(t.Query)
		if err != nil {
			return selector.NoNode, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return n, nil
	case t.Index != nil:
		n, err := doc.ElementAt(*t.Index)
		if err != nil {
			return selector.NoNode, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return n, nil
	}
	return selector.NoNode, fmt.Errorf("%w: target or index required", ErrInvalidRequest)
}

const maxSnippet = 200

func snippet(s string) string {
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
