// CLAUDE:SUMMARY Configuration struct and defaults for the selector registry — DB path, synthesis options, candidate limit.
package registry

import "github.com/hazyhaar/uniqsel/selector"

// Config holds the registry configuration.
type Config struct {
	DBPath string `json:"db_path" yaml:"db_path"`

	// MaxCandidates caps Candidates requests that do not set a limit.
	// Default: 5
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// Options is handed to every synthesis run. Caches are per request and
	// must be left nil here.
	Options selector.Options `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "uniqsel.db"
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 5
	}
}
