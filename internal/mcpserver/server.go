// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Jotter tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/noteservice"
)

const markupFormatURI = "jotter://markup-format"

// Server wraps the MCP server with Jotter tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *noteservice.Service
	tlds content.TLDChecker
}

// New creates a new MCP server with all Jotter tools registered.
func New(svc *noteservice.Service, tlds content.TLDChecker) *Server {
	s := &Server{svc: svc, tlds: tlds}

	s.mcp = server.NewMCPServer(
		"Jotter",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("render_content",
		mcp.WithDescription("Render note content to plain text and sanitized HTML. "+
			"Returns hashtags and footnotes found in the content."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Canonical note content, or raw editor HTML with scrub=true")),
		mcp.WithBoolean("scrub", mcp.Description("Convert editor HTML to canonical content first")),
		mcp.WithBoolean("validate_links_strictly", mcp.Description("Confirm each link over the network before linking it")),
		mcp.WithBoolean("show_link_host", mcp.Description("Append the host after links whose text hides it")),
	), s.renderContent)

	s.mcp.AddTool(mcp.NewTool("scrub_content",
		mcp.WithDescription("Convert editor HTML into canonical note content."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw editor markup")),
	), s.scrubContent)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Content MUST follow the Jotter markup dialect. "+
			"Read the contract first via the get_markup_contract tool or the "+markupFormatURI+" resource."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note content in the Jotter markup dialect")),
		mcp.WithString("tags", mcp.Description("Comma or pipe separated tag list")),
		mcp.WithString("type", mcp.Description("Note type (default general)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its rendered text and HTML."),
		mcp.WithString("guid", mcp.Required(), mcp.Description("Note GUID")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest first, optionally filtered by tag or hashtag."),
		mcp.WithString("tag", mcp.Description("Optional tag or hashtag filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, text and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("check_tld",
		mcp.WithDescription("Check whether a domain ends in a known top-level domain."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name or bare TLD")),
	), s.checkTLD)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the Jotter markup dialect contract. "+
			"Call this before creating notes to ensure correct structure."),
	), s.getMarkupContract)

	// Resource: markup dialect contract.
	s.mcp.AddResource(
		mcp.NewResource(markupFormatURI, "Markup Format Contract",
			mcp.WithResourceDescription("Markup dialect accepted in note content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkupFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) renderContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Render(ctx, raw, req.GetBool("scrub", false), content.Options{
		ValidateLinksStrictly: req.GetBool("validate_links_strictly", false),
		ShowLinkHost:          req.GetBool("show_link_host", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out), nil
}

func (s *Server) scrubContent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content.Scrub(raw)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.CreateNote(ctx, noteservice.NoteInput{
		Title:   req.GetString("title", ""),
		Type:    req.GetString("type", ""),
		Content: req.GetString("content", ""),
		Tags:    req.GetString("tags", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guid, err := req.RequireString("guid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, guid)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", guid)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx, index.ListQuery{Tag: req.GetString("tag", "")})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.GUID + "\t" + it.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) checkTLD(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	valid := s.tlds != nil && s.tlds.IsValidTLD(ctx, domain)
	return jsonResult(map[string]any{"domain": domain, "valid": valid}), nil
}

func (s *Server) getMarkupContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupContract), nil
}

func (s *Server) readMarkupFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      markupFormatURI,
			MIMEType: "text/markdown",
			Text:     MarkupContract,
		},
	}, nil
}
