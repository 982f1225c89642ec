package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/uniqsel/dom"
	"github.com/hazyhaar/uniqsel/selector"
)

// Verify re-evaluates a stored selector against a fresh document and folds
// the outcome into the record's stability.
func (r *Registry) Verify(ctx context.Context, req *VerifyRequest) (*Verification, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id required", ErrInvalidRequest)
	}
	rec, err := r.store.GetRecord(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.ID)
	}

	src := req.Source
	if src.HTML == "" && src.URL == "" {
		src.URL = rec.URL
	}
	doc, _, err := r.document(ctx, src)
	if err != nil {
		return nil, err
	}

	v := evaluate(doc, rec.Selector, rec.Scope)
	v.ID = newVerificationID()
	v.SelectorID = rec.ID
	if err := r.store.RecordVerification(ctx, v); err != nil {
		return nil, err
	}

	log := r.logger.Info
	if v.Outcome != OutcomeUnique {
		log = r.logger.Warn
	}
	log("registry: selector verified",
		"id", rec.ID, "selector", rec.Selector, "outcome", v.Outcome, "matches", v.Matches)
	return v, nil
}

// evaluate counts the elements sel matches in the scope the record was
// taken from: the document, or the shadow roots reached by following the
// stored host chain. A scope whose hosts are gone yields no match.
func evaluate(doc *dom.Document, sel, scope string) *Verification {
	roots, err := resolveScope(doc, scope)
	if err != nil {
		return &Verification{Outcome: OutcomeInvalid, Message: err.Error()}
	}
	matches := 0
	for _, root := range roots {
		ids, err := doc.QuerySelectorAll(root, sel)
		if err != nil {
			return &Verification{Outcome: OutcomeInvalid, Message: err.Error()}
		}
		matches += len(ids)
	}

	v := &Verification{Matches: matches}
	switch matches {
	case 0:
		v.Outcome = OutcomeMissing
		if len(roots) == 0 {
			v.Message = "scope host not found: " + scope
		}
	case 1:
		v.Outcome = OutcomeUnique
	default:
		v.Outcome = OutcomeAmbiguous
	}
	return v
}

// scopeSep joins the host selectors of a scope chain, outermost first.
const scopeSep = " >>> "

// scopeOf describes n's scoping root as the chain of shadow hosts leading
// to it, each host named by its own synthesized selector.
func scopeOf(doc *dom.Document, n selector.NodeID, opts selector.Options) string {
	var hosts []string
	for root := doc.RootNode(n); root != doc.Root(); {
		host, ok := doc.ShadowHost(root)
		if !ok {
			break
		}
		hosts = append([]string{selector.Selector(doc, host, opts)}, hosts...)
		root = doc.RootNode(host)
	}
	return strings.Join(hosts, scopeSep)
}

// resolveScope follows a host chain from the document down to the shadow
// roots it names.
func resolveScope(doc *dom.Document, scope string) ([]selector.NodeID, error) {
	roots := []selector.NodeID{doc.Root()}
	if scope == "" {
		return roots, nil
	}
	for _, hostSel := range strings.Split(scope, scopeSep) {
		var next []selector.NodeID
		for _, root := range roots {
			hosts, err := doc.QuerySelectorAll(root, hostSel)
			if err != nil {
				return nil, err
			}
			for _, h := range hosts {
				if sr, ok := doc.ShadowRoot(h); ok {
					next = append(next, sr)
				}
			}
		}
		roots = next
	}
	return roots, nil
}
