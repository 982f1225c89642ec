package registry

import (
	"context"
	"fmt"

	"github.com/hazyhaar/uniqsel/kit"
)

// Endpoints exposes each operation as a kit.Endpoint. Every endpoint takes
// a pointer to its request type.
type Endpoints struct {
	Synthesize kit.Endpoint
	Candidates kit.Endpoint
	Verify     kit.Endpoint
	List       kit.Endpoint
	Get        kit.Endpoint
}

// Endpoints builds the logged endpoint set shared by HTTP and MCP.
func (r *Registry) Endpoints() Endpoints {
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Logging(r.logger, op)(ep)
	}
	return Endpoints{
		Synthesize: wrap("synthesize", func(ctx context.Context, req any) (any, error) {
			return r.Synthesize(ctx, req.(*SynthesizeRequest))
		}),
		Candidates: wrap("candidates", func(ctx context.Context, req any) (any, error) {
			return r.Candidates(ctx, req.(*CandidatesRequest))
		}),
		Verify: wrap("verify", func(ctx context.Context, req any) (any, error) {
			return r.Verify(ctx, req.(*VerifyRequest))
		}),
		List: wrap("list", func(ctx context.Context, req any) (any, error) {
			return r.List(ctx, req.(*ListRequest))
		}),
		Get: wrap("get", func(ctx context.Context, req any) (any, error) {
			id := req.(*GetRequest).ID
			if id == "" {
				return nil, fmt.Errorf("%w: id required", ErrInvalidRequest)
			}
			d, err := r.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if d == nil {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return d, nil
		}),
	}
}
