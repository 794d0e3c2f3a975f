package client

import (
	"context"
	"encoding/json"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
	"github.com/tidalhq/mcpwire/pkg/protocol"
)

// Typed wrappers over Call for the fixed MCP method namespace. Capability
// payloads are passed through opaquely; the client never interprets tool
// schemas or resource contents. Cursors are equally opaque: the ListXxx
// helpers walk every page, the ListXxxPage variants expose one page at a
// time.

// ListTools fetches the complete remote tool catalog, following pagination
// cursors until exhausted.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	var tools []protocol.Tool
	cursor := ""
	for {
		page, err := c.ListToolsPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		tools = append(tools, page.Tools...)
		if page.NextCursor == "" || page.NextCursor == cursor {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// ListToolsPage fetches one page of the tool catalog. An empty cursor
// requests the first page.
func (c *Client) ListToolsPage(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	var out protocol.ListToolsResult
	if err := c.callInto(ctx, protocol.MethodListTools, listParams(cursor), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CallTool invokes a named tool with arbitrary arguments.
func (c *Client) CallTool(ctx context.Context, name string, args any) (*protocol.CallToolResult, error) {
	var out protocol.CallToolResult
	err := c.callInto(ctx, protocol.MethodCallTool, protocol.CallToolParams{Name: name, Arguments: args}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResources fetches the complete remote resource catalog.
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	var resources []protocol.Resource
	cursor := ""
	for {
		page, err := c.ListResourcesPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		resources = append(resources, page.Resources...)
		if page.NextCursor == "" || page.NextCursor == cursor {
			return resources, nil
		}
		cursor = page.NextCursor
	}
}

// ListResourcesPage fetches one page of the resource catalog.
func (c *Client) ListResourcesPage(ctx context.Context, cursor string) (*protocol.ListResourcesResult, error) {
	var out protocol.ListResourcesResult
	if err := c.callInto(ctx, protocol.MethodListResources, listParams(cursor), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadResource reads one resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	var out protocol.ReadResourceResult
	err := c.callInto(ctx, protocol.MethodReadResource, protocol.ReadResourceParams{URI: uri}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPrompts fetches the complete remote prompt catalog.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	var prompts []protocol.Prompt
	cursor := ""
	for {
		page, err := c.ListPromptsPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, page.Prompts...)
		if page.NextCursor == "" || page.NextCursor == cursor {
			return prompts, nil
		}
		cursor = page.NextCursor
	}
}

// ListPromptsPage fetches one page of the prompt catalog.
func (c *Client) ListPromptsPage(ctx context.Context, cursor string) (*protocol.ListPromptsResult, error) {
	var out protocol.ListPromptsResult
	if err := c.callInto(ctx, protocol.MethodListPrompts, listParams(cursor), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrompt renders a named prompt template.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	var out protocol.GetPromptResult
	err := c.callInto(ctx, protocol.MethodGetPrompt, protocol.GetPromptParams{Name: name, Arguments: args}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks connection liveness with a correlated round trip.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.MethodPing, nil)
	return err
}

// Capability kinds accepted by ListCapability.
const (
	CapabilityTools     = "tools"
	CapabilityResources = "resources"
	CapabilityPrompts   = "prompts"
)

// ListCapability lists one capability catalog by kind and returns the raw
// first-page result, for callers that dispatch on kind dynamically. The
// typed ListXxx helpers are preferred.
func (c *Client) ListCapability(ctx context.Context, kind string) (json.RawMessage, error) {
	switch kind {
	case CapabilityTools:
		return c.Call(ctx, protocol.MethodListTools, nil)
	case CapabilityResources:
		return c.Call(ctx, protocol.MethodListResources, nil)
	case CapabilityPrompts:
		return c.Call(ctx, protocol.MethodListPrompts, nil)
	default:
		return nil, mcperrors.New(mcperrors.CodeInvalidParams,
			"unknown capability kind: "+kind,
			mcperrors.CategoryProtocol, mcperrors.SeverityError)
	}
}

func listParams(cursor string) any {
	if cursor == "" {
		return nil
	}
	return protocol.ListParams{Cursor: cursor}
}

func (c *Client) callInto(ctx context.Context, method string, params, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return mcperrors.MalformedEnvelope("invalid "+method+" result", err)
	}
	return nil
}
