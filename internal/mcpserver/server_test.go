package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/storage"
	"github.com/starford/tutordocs/internal/testutil"
)

func testServer(t *testing.T) (*Server, *content.Service, storage.Provider) {
	t.Helper()
	svc, store, _ := testutil.TestService(t)
	return New(svc, "test"), svc, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "update_page":
		result, err = srv.updatePage(ctx, req)
	case "get_page_format":
		result, err = srv.getPageFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestUpdateAndReadPage(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "update_page", map[string]any{
		"key":      "index",
		"markdown": "# Hi",
	})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}
	if got := resultText(r); got != "<h1>Hi</h1>\n" {
		t.Errorf("update result = %q", got)
	}

	r = callTool(t, srv, "read_page", map[string]any{"key": "index"})
	if got := resultText(r); got != "# Hi" {
		t.Errorf("read result = %q", got)
	}
}

func TestUpdatePage_Invalid(t *testing.T) {
	srv, _, store := testServer(t)

	r := callTool(t, srv, "update_page", map[string]any{"key": "../x", "markdown": "# x"})
	if !r.IsError {
		t.Error("expected error for invalid key")
	}
	r = callTool(t, srv, "update_page", map[string]any{"key": "index", "markdown": "  "})
	if !r.IsError {
		t.Error("expected error for blank markdown")
	}
	r = callTool(t, srv, "update_page", map[string]any{"key": "index"})
	if !r.IsError {
		t.Error("expected error for missing markdown")
	}
	if metas, _ := store.List(); len(metas) != 0 {
		t.Errorf("nothing should be written, got %d pages", len(metas))
	}
}

func TestListPages(t *testing.T) {
	srv, svc, _ := testServer(t)
	if _, err := svc.EnsureSeeded(context.Background()); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_pages", map[string]any{})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != len(content.SeedOrder) {
		t.Fatalf("lines = %d, want %d", len(lines), len(content.SeedOrder))
	}
	if !strings.HasPrefix(lines[0], "index\t") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[len(lines)-1], "penutup\t") {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestReadPageMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_page", map[string]any{"key": "nope"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
	if !strings.Contains(resultText(r), "page not found: nope") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestSearchPages(t *testing.T) {
	srv, _, _ := testServer(t)
	_ = callTool(t, srv, "update_page", map[string]any{
		"key":      "step-6",
		"markdown": "# Deploy\n\nGitHub Pages uniquetoken",
	})

	r := callTool(t, srv, "search_pages", map[string]any{"query": "uniquetoken"})
	if !strings.Contains(resultText(r), `"key": "step-6"`) {
		t.Errorf("search result = %q", resultText(r))
	}

	r = callTool(t, srv, "search_pages", map[string]any{"query": "absent"})
	if resultText(r) != "no pages found" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestPageFormat(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_page_format", map[string]any{})
	if resultText(r) != PageFormatGuide {
		t.Error("tool should return the format guide")
	}

	contents, err := srv.readPageFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != PageFormatURI || tc.Text != PageFormatGuide {
		t.Errorf("unexpected resource contents: %+v", contents)
	}
}
