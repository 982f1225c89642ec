// CLAUDE:SUMMARY Re-exports store types and declares the request/response shapes shared by HTTP and MCP.
package registry

import (
	"errors"
	"strconv"

	"github.com/hazyhaar/uniqsel/registry/internal/store"
	"github.com/hazyhaar/uniqsel/selector"
)

// Re-exported types from internal/store for use by cmd/ and external callers.
type (
	Record       = store.Record
	Verification = store.Verification
)

var (
	// ErrInvalidRequest wraps every validation failure.
	ErrInvalidRequest = errors.New("registry: invalid request")
	// ErrNotFound is returned when a selector ID is unknown.
	ErrNotFound = errors.New("registry: selector not found")
	// ErrFetch wraps failures to load a page by URL.
	ErrFetch = errors.New("registry: fetch failed")
)

// Verification outcomes.
const (
	OutcomeUnique    = "unique"
	OutcomeAmbiguous = "ambiguous"
	OutcomeMissing   = "missing"
	OutcomeInvalid   = "invalid"
)

// Source names the document to work on: inline HTML wins over URL.
type Source struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Target locates the node: a CSS query matching exactly one element across
// all scopes, or a 0-based element index in document order.
type Target struct {
	Query string `json:"target,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// SynthesizeRequest asks for the selector of one node.
type SynthesizeRequest struct {
	Source
	Target
	// Record stores the result in the registry.
	Record bool `json:"record,omitempty"`
}

// SynthesizeResponse is the result for one node.
type SynthesizeResponse struct {
	ID string `json:"id,omitempty"`
	selector.Result
	// Scope names the shadow host chain the selector is relative to; empty
	// for the document.
	Scope   string  `json:"scope,omitempty"`
	Score   float64 `json:"score"`
	Element string  `json:"element"`
}

// CandidatesRequest asks for up to Limit ranked unique selectors.
type CandidatesRequest struct {
	Source
	Target
	Limit int `json:"limit,omitempty"`
}

// CandidatesResponse lists ranked selectors.
type CandidatesResponse struct {
	Candidates []selector.Candidate `json:"candidates"`
	Scope      string               `json:"scope,omitempty"`
	Element    string               `json:"element"`
}

// VerifyRequest re-evaluates a stored selector. An empty Source reuses the
// record's URL.
type VerifyRequest struct {
	ID string `json:"id"`
	Source
}

// ListRequest filters stored selectors.
type ListRequest struct {
	URL   string `json:"url,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// GetRequest fetches one stored selector with its recent verifications.
type GetRequest struct {
	ID string `json:"id"`
}

// RecordDetail is a record with its verification history.
type RecordDetail struct {
	*Record
	Verifications []*Verification `json:"verifications"`
}

func (t Target) String() string {
	if t.Query != "" {
		return t.Query
	}
	if t.Index != nil {
		return "index:" + strconv.Itoa(*t.Index)
	}
	return ""
}
