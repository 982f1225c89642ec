// CLAUDE:SUMMARY Registers the registry MCP tools — synthesize, candidates, verify, list and get stored selectors.
package registry

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/uniqsel/kit"
)

// RegisterMCP registers the registry tools on an MCP server.
func (r *Registry) RegisterMCP(srv *mcp.Server) {
	eps := r.Endpoints()

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "uniqsel_synthesize",
		Description: "Compute a short CSS selector that uniquely identifies one element of an HTML page. Locate the element with a CSS query or a document-order index.",
		InputSchema: inputSchema(withTarget(withSource(map[string]any{
			"record": map[string]any{"type": "boolean", "description": "Store the selector in the registry"},
		})), nil),
	}, eps.Synthesize, kit.DecodeJSON[SynthesizeRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "uniqsel_candidates",
		Description: "List several unique CSS selectors for one element, best score first.",
		InputSchema: inputSchema(withTarget(withSource(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max candidates (default from config)"},
		})), nil),
	}, eps.Candidates, kit.DecodeJSON[CandidatesRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "uniqsel_verify",
		Description: "Re-evaluate a stored selector against a fresh copy of its page. Outcome: unique, ambiguous, missing or invalid.",
		InputSchema: inputSchema(withSource(map[string]any{
			"id": map[string]any{"type": "string", "description": "Stored selector ID"},
		}), []string{"id"}),
	}, eps.Verify, kit.DecodeJSON[VerifyRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "uniqsel_list_selectors",
		Description: "List stored selectors, newest first, optionally for one URL.",
		InputSchema: inputSchema(map[string]any{
			"url":   map[string]any{"type": "string", "description": "Only selectors recorded for this URL"},
			"limit": map[string]any{"type": "integer", "description": "Max results"},
		}, nil),
	}, eps.List, kit.DecodeJSON[ListRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "uniqsel_get_selector",
		Description: "Get a stored selector with its recent verifications.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Stored selector ID"},
		}, []string{"id"}),
	}, eps.Get, kit.DecodeJSON[GetRequest]())
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func withSource(props map[string]any) map[string]any {
	props["url"] = map[string]any{"type": "string", "description": "Page URL (fetched, rendered in Chrome when needed)"}
	props["html"] = map[string]any{"type": "string", "description": "Inline HTML document; takes precedence over url"}
	return props
}

func withTarget(props map[string]any) map[string]any {
	props["target"] = map[string]any{"type": "string", "description": "CSS query matching exactly one element (shadow roots included)"}
	props["index"] = map[string]any{"type": "integer", "description": "0-based element index in document order"}
	return props
}
