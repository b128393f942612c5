// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the tutorial pages to LLM tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/content"
)

// PageFormatURI is the resource URI of PageFormatGuide.
const PageFormatURI = "tutordocs://page-format"

const searchLimit = 20

// Server wraps the MCP server with page tools.
type Server struct {
	mcp *server.MCPServer
	svc *content.Service
}

// New creates a new MCP server with all page tools registered.
func New(svc *content.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tutordocs",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List every tutorial page in navigation order, one \"key<TAB>title\" per line."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the raw Markdown of a tutorial page."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Page key, e.g. step-1")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through page titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("update_page",
		mcp.WithDescription("Create or replace a tutorial page and return its rendered HTML. "+
			"Read the format guide first via get_page_format or the "+PageFormatURI+" resource."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Page key, e.g. step-1")),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Full Markdown content of the page")),
	), s.updatePage)

	s.mcp.AddTool(mcp.NewTool("get_page_format",
		mcp.WithDescription("Returns the tutorial page format guide."),
	), s.getPageFormat)

	s.mcp.AddResource(
		mcp.NewResource(PageFormatURI, "Tutorial Page Format",
			mcp.WithResourceDescription("How tutorial pages are named and structured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listPages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(pages))
	for i, p := range pages {
		lines[i] = p.Key + "\t" + p.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Read(ctx, key)
	if err != nil {
		return toolError(key, err), nil
	}
	return mcp.NewToolResultText(page.Markdown), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, searchLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no pages found"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Write(ctx, key, markdown)
	if err != nil {
		return toolError(key, err), nil
	}
	return mcp.NewToolResultText(page.HTML), nil
}

func (s *Server) getPageFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatGuide), nil
}

func (s *Server) readPageFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PageFormatURI,
			MIMEType: "text/markdown",
			Text:     PageFormatGuide,
		},
	}, nil
}

func toolError(key string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("page not found: %s", key))
	case errors.Is(err, apperr.ErrValidation):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", key, err))
	}
}
