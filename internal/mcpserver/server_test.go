package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/testutil"
)

type fakeTLDs map[string]bool

func (f fakeTLDs) IsValidTLD(_ context.Context, domain string) bool {
	labels := strings.Split(domain, ".")
	return f[labels[len(labels)-1]]
}

func testServer(t *testing.T) *Server {
	t.Helper()
	tlds := fakeTLDs{"com": true}
	rc := content.NewRenderContext(tlds, content.WithLogger(testutil.QuietLogger()))
	svc := noteservice.NewService(testutil.TestDB(t), rc, noteservice.WithLogger(testutil.QuietLogger()))
	return New(svc, tlds)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"render_content":      srv.renderContent,
		"scrub_content":       srv.scrubContent,
		"create_note":         srv.createNote,
		"read_note":           srv.readNote,
		"list_notes":          srv.listNotes,
		"search_notes":        srv.searchNotes,
		"check_tld":           srv.checkTLD,
		"get_markup_contract": srv.getMarkupContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestRenderContent(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "render_content", map[string]any{"content": "Buy milk #groceries at example.com"})
	if r.IsError {
		t.Fatalf("render error: %s", resultText(r))
	}
	var out content.Rendered
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Hashtags) != 1 || out.Hashtags[0] != "groceries" {
		t.Errorf("hashtags = %v", out.Hashtags)
	}
	if !strings.Contains(out.HTML, `href="http://example.com"`) {
		t.Errorf("html = %q", out.HTML)
	}
}

func TestRenderContent_Scrub(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "render_content", map[string]any{"content": "<i>x</i>", "scrub": true})
	var out content.Rendered
	_ = json.Unmarshal([]byte(resultText(r)), &out)
	if out.HTML != "<p><em>x</em></p>" {
		t.Errorf("html = %q", out.HTML)
	}
}

func TestScrubContent(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "scrub_content", map[string]any{"content": "<div>one</div><div>two</div>"})
	if got := resultText(r); got != "one\n\ntwo" {
		t.Errorf("scrub = %q", got)
	}
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{"title": "Test", "content": "Hello #world"})
	if r.IsError {
		t.Fatalf("create error: %s", resultText(r))
	}
	var created noteservice.NoteDetail
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}

	r = callTool(t, srv, "read_note", map[string]any{"guid": created.GUID})
	var got noteservice.NoteDetail
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Title != "Test" || got.Source != "Hello #world" || len(got.Hashtags) != 1 {
		t.Errorf("read = %+v", got)
	}

	r = callTool(t, srv, "list_notes", map[string]any{"tag": "world"})
	if !strings.Contains(resultText(r), created.GUID) {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestCreateNote_Empty(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{})
	if !r.IsError {
		t.Error("expected error for empty note")
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"guid": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"title": "Find", "content": "needle in a haystack"})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "needle"})
	if !strings.Contains(resultText(r), `"title": "Find"`) {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestCheckTLD(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "check_tld", map[string]any{"domain": "Example.COM"})
	if !strings.Contains(resultText(r), `"valid": true`) {
		t.Errorf("check_tld = %q", resultText(r))
	}
	r = callTool(t, srv, "check_tld", map[string]any{"domain": "example.zzz"})
	if !strings.Contains(resultText(r), `"valid": false`) {
		t.Errorf("check_tld = %q", resultText(r))
	}
}

func TestMarkupContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_markup_contract", nil)
	if !strings.Contains(resultText(r), "Hashtags") {
		t.Error("contract missing hashtag section")
	}
}
