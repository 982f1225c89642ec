package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/uniqsel/selector"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uniqsel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DBPath != "uniqsel.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.HTTP.Addr != ":8087" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Synth.MaxCandidates != 5 {
		t.Errorf("MaxCandidates = %d", cfg.Synth.MaxCandidates)
	}
	if cfg.Fetch.Timeout != 30*time.Second || cfg.Browser.Wait != 2*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.Fetch.Timeout, cfg.Browser.Wait)
	}
	if cfg.Browser.Enabled {
		t.Error("browser enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/sel.db
http:
  addr: "127.0.0.1:9000"
synth:
  selector_types: [id, "data-testid", class, tag, nth-child]
  deny_attributes: [data-reactid]
  deny_class_patterns: ["^css-[a-z0-9]+$"]
  max_candidates: 3
fetch:
  timeout: 5s
  block_private: true
browser:
  enabled: true
  remote: ws://chrome:9222
  resource_blocking: [image, font]
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/sel.db" || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Synth.MaxCandidates != 3 || cfg.Fetch.Timeout != 5*time.Second || !cfg.Fetch.BlockPrivate {
		t.Errorf("synth/fetch = %+v / %+v", cfg.Synth, cfg.Fetch)
	}
	if !cfg.Browser.Enabled || cfg.Browser.Remote != "ws://chrome:9222" || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	// Unset values still get defaults.
	if cfg.Browser.Wait != 2*time.Second {
		t.Errorf("Browser.Wait = %v", cfg.Browser.Wait)
	}

	o, err := cfg.Synth.Options()
	if err != nil {
		t.Fatal(err)
	}
	if len(o.SelectorTypes) != 5 || o.SelectorTypes[1] != "data-testid" {
		t.Errorf("SelectorTypes = %v", o.SelectorTypes)
	}
	if o.Filter == nil {
		t.Fatal("filter not built")
	}
	deny := []selector.Trait{
		{Type: selector.TraitDataAttribute, Key: "data-reactid", Value: "1"},
		{Type: selector.TraitClass, Key: "class", Value: "css-1x2y"},
	}
	for _, tr := range deny {
		if o.Filter(tr) != selector.Deny {
			t.Errorf("%+v not denied", tr)
		}
	}
	if v := o.Filter(selector.Trait{Type: selector.TraitClass, Key: "class", Value: "btn"}); v == selector.Deny {
		t.Error("plain class denied")
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"yaml", "synth: [", "config: parse"},
		{"category", "synth:\n  selector_types: [id, colour]\n", `unknown selector type "colour"`},
		{"pattern", "synth:\n  deny_class_patterns: [\"(\"]\n", "deny_class_patterns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestSynthOptions(t *testing.T) {
	o, err := SynthConfig{}.Options()
	if err != nil {
		t.Fatal(err)
	}
	if o.SelectorTypes != nil || o.AttributesToIgnore != nil || o.Filter != nil {
		t.Errorf("empty config produced %+v", o)
	}

	o, err = SynthConfig{AttributesToIgnore: []string{}, DenyPositional: true}.Options()
	if err != nil {
		t.Fatal(err)
	}
	if o.AttributesToIgnore == nil {
		t.Error("explicit empty ignore list lost")
	}
	if o.Filter(selector.Trait{Type: selector.TraitNthChild, Value: "2"}) != selector.Deny {
		t.Error("positional not denied")
	}

	for _, c := range []string{"attribute:href", "data-id", "attributes"} {
		if _, err := (SynthConfig{SelectorTypes: []string{c}}).Options(); err != nil {
			t.Errorf("%s: %v", c, err)
		}
	}
	for _, c := range []string{"attribute:", "data-"} {
		if _, err := (SynthConfig{SelectorTypes: []string{c}}).Options(); err == nil {
			t.Errorf("%s accepted", c)
		}
	}
}
