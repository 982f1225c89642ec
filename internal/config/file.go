// CLAUDE:SUMMARY Defines uniqsel config structs and parses YAML configuration files with defaults.
// Package config handles uniqsel configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/uniqsel/selector"
)

// Config is the top-level uniqsel configuration.
type Config struct {
	DBPath  string        `yaml:"db_path"`
	HTTP    HTTPConfig    `yaml:"http"`
	Synth   SynthConfig   `yaml:"synth"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Browser BrowserConfig `yaml:"browser"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"`
}

// SynthConfig controls selector synthesis.
type SynthConfig struct {
	SelectorTypes      []string `yaml:"selector_types"`
	AttributesToIgnore []string `yaml:"attributes_to_ignore"`
	DenyAttributes     []string `yaml:"deny_attributes"`
	DenyClassPatterns  []string `yaml:"deny_class_patterns"` // regexps
	DenyPositional     bool     `yaml:"deny_positional"`
	MaxCandidates      int      `yaml:"max_candidates"`
}

// FetchConfig controls static page retrieval.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBody   int64         `yaml:"max_body"`
	// BlockPrivate rejects URLs that resolve to private or loopback
	// addresses. Turn it on when the HTTP or MCP API is exposed.
	BlockPrivate bool `yaml:"block_private"`
}

// BrowserConfig controls the Chrome fallback for pages that need rendering.
type BrowserConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Remote           string        `yaml:"remote"`
	Timeout          time.Duration `yaml:"timeout"`
	Wait             time.Duration `yaml:"wait"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if _, err := cfg.Synth.Options(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "uniqsel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8087"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 16 << 20
	}
	if c.Synth.MaxCandidates <= 0 {
		c.Synth.MaxCandidates = 5
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBody <= 0 {
		c.Fetch.MaxBody = 10 << 20
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Browser.Wait <= 0 {
		c.Browser.Wait = 2 * time.Second
	}
}

// Options converts the synthesis settings to selector options. Unknown
// categories and malformed class patterns are errors.
func (s SynthConfig) Options() (selector.Options, error) {
	var o selector.Options

	if len(s.SelectorTypes) > 0 {
		cats := selector.ParseCategories(s.SelectorTypes)
		for _, c := range cats {
			if !knownCategory(c) {
				return o, fmt.Errorf("config: unknown selector type %q", c)
			}
		}
		o.SelectorTypes = cats
	}
	if s.AttributesToIgnore != nil {
		o.AttributesToIgnore = s.AttributesToIgnore
	}

	var filters []selector.Filter
	if len(s.DenyAttributes) > 0 {
		filters = append(filters, selector.DenyAttributes(s.DenyAttributes...))
	}
	if len(s.DenyClassPatterns) > 0 {
		res := make([]*regexp.Regexp, 0, len(s.DenyClassPatterns))
		for _, p := range s.DenyClassPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return o, fmt.Errorf("config: deny_class_patterns: %w", err)
			}
			res = append(res, re)
		}
		filters = append(filters, selector.DenyClasses(res...))
	}
	if s.DenyPositional {
		filters = append(filters, selector.DenyPositional())
	}
	switch len(filters) {
	case 0:
	case 1:
		o.Filter = filters[0]
	default:
		o.Filter = selector.Chain(filters...)
	}
	return o, nil
}

func knownCategory(c selector.Category) bool {
	switch c {
	case selector.CategoryDataAttributes, selector.CategoryID, selector.CategoryName,
		selector.CategoryClass, selector.CategoryTag, selector.CategoryNthChild,
		selector.CategoryAttributes:
		return true
	}
	s := string(c)
	if name, ok := strings.CutPrefix(s, "attribute:"); ok {
		return name != ""
	}
	return strings.HasPrefix(s, "data-") && len(s) > len("data-")
}
