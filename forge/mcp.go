package forge

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/locforge/kit"
)

// RegisterMCP registers the locforge tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	ep := s.endpoints()

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_infer",
		Description: "Infer stable element locators and candidate test flows from raw HTML.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "Rendered page HTML"},
			"url":  map[string]any{"type": "string", "description": "Source URL, used for page naming"},
		}, []string{"html"}),
	}, ep.infer, kit.DecodeArgs[inferRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_analyze",
		Description: "Render one or more URLs and infer locators and tests for each. With a name, the pages are saved as a new framework.",
		InputSchema: inputSchema(map[string]any{
			"urls":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Absolute http(s) URLs"},
			"name":   map[string]any{"type": "string", "description": "Optional: save as a framework with this name"},
			"config": projectConfigSchema,
		}, []string{"urls"}),
	}, ep.analyze, kit.DecodeArgs[analyzeRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_save_framework",
		Description: "Save a framework (pages and tests) under a unique name.",
		InputSchema: inputSchema(map[string]any{
			"name":   map[string]any{"type": "string", "description": "Unique framework name"},
			"config": projectConfigSchema,
			"pages":  map[string]any{"type": "array", "description": "Page definitions: {name, elements[{name, locatorKind, locatorValue, description}]}"},
			"tests":  map[string]any{"type": "array", "description": "Test cases: {id, name, page, steps[{action, target, value}]}"},
		}, []string{"name"}),
	}, ep.saveFramework, kit.DecodeArgs[Project]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_list_frameworks",
		Description: "List saved frameworks, most recently updated first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.listFrameworks, kit.DecodeArgs[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_get_framework",
		Description: "Get a saved framework by id.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Framework id"},
		}, []string{"id"}),
	}, ep.getFramework, kit.DecodeArgs[idRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_delete_framework",
		Description: "Delete a saved framework by id.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Framework id"},
		}, []string{"id"}),
	}, ep.deleteFramework, kit.DecodeArgs[idRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "locforge_generate",
		Description: "Generate a Go Playwright test suite (page objects, tests, go.mod) for a saved framework or an inline project.",
		InputSchema: inputSchema(map[string]any{
			"id":      map[string]any{"type": "string", "description": "Saved framework id"},
			"project": map[string]any{"type": "object", "description": "Inline project, used instead of id"},
		}, nil),
	}, ep.generate, kit.DecodeArgs[generateRequest]())
}

var projectConfigSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"base_url":  map[string]any{"type": "string"},
		"language":  map[string]any{"type": "string", "enum": []any{"go"}},
		"framework": map[string]any{"type": "string", "enum": []any{"playwright"}},
		"package":   map[string]any{"type": "string", "description": "Go module path of the generated suite"},
	},
}

// inputSchema builds a JSON Schema object with type "object".
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
