// CLAUDE:SUMMARY Headless Chrome renderer (Rod + stealth) serialising the live DOM with open shadow roots as declarative templates.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the headless renderer.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Timeout bounds navigation plus load. Default: 30s.
	Timeout time.Duration

	// Wait is an extra settle delay after the load event, for client-side
	// rendering. Default: 0.
	Wait time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser renders pages in headless Chrome. Chrome is started on first use
// and shared by every Render call.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

var _ Renderer = (*Browser)(nil)

// NewBrowser creates a Browser. It does not start Chrome.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("fetch: browser is closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("fetch: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.cfg.Logger.Info("fetch: launched local chrome", "url", wsURL)
	} else {
		b.cfg.Logger.Info("fetch: connecting to remote chrome", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("fetch: connect chrome: %w", err)
	}
	b.browser = rb
	return rb, nil
}

// Render navigates to pageURL in a stealth tab and returns the serialised DOM.
func (b *Browser) Render(ctx context.Context, pageURL string) ([]byte, error) {
	rb, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(rb)
	if err != nil {
		return nil, fmt.Errorf("fetch: create tab: %w", err)
	}
	defer page.Close()

	if len(b.cfg.ResourceBlocking) > 0 {
		router := blockResources(page, b.cfg.ResourceBlocking)
		defer router.Stop()
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("fetch: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("fetch: wait load timeout", "url", pageURL, "error", err)
	}

	if b.cfg.Wait > 0 {
		t := time.NewTimer(b.cfg.Wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	res, err := page.Context(ctx).Eval(serializeJS)
	if err != nil {
		return nil, fmt.Errorf("fetch: serialise DOM: %w", err)
	}
	out := res.Value.Str()
	b.cfg.Logger.Debug("fetch: rendered", "url", pageURL, "size", len(out))
	return []byte(out), nil
}

// Close shuts down Chrome, or disconnects from a remote instance.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch = nil
	}
	return err
}

// serializeJS returns the document as HTML. Open shadow roots are emitted
// as <template shadowrootmode="open"> via Element.getHTML when the browser
// supports it.
const serializeJS = `() => {
	const el = document.documentElement;
	const doctype = '<!DOCTYPE html>';
	if (typeof el.getHTML !== 'function') {
		return doctype + el.outerHTML;
	}
	const roots = [];
	const collect = (root) => {
		for (const n of root.querySelectorAll('*')) {
			if (n.shadowRoot) {
				roots.push(n.shadowRoot);
				collect(n.shadowRoot);
			}
		}
	};
	collect(document);
	const esc = (v) => v.replace(/&/g, '&amp;').replace(/"/g, '&quot;');
	const attrs = Array.from(el.attributes).map((a) => ' ' + a.name + '="' + esc(a.value) + '"').join('');
	return doctype + '<html' + attrs + '>' +
		el.getHTML({serializableShadowRoots: true, shadowRoots: roots}) + '</html>';
}`

// blockResources fails requests whose resource type is listed.
func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	block := make(map[string]bool, len(types))
	for _, t := range types {
		block[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(block, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(block map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "image":
		return block["images"]
	case "font":
		return block["fonts"]
	case "media":
		return block["media"]
	case "stylesheet":
		return block["stylesheets"]
	default:
		return block[lower]
	}
}
