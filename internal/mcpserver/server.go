// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the chapter catalog and the sealing tool over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/novelcipher/internal/apperr"
	"github.com/starford/novelcipher/internal/chapter"
)

// FormatResourceURI is the URI of the chapter format resource.
const FormatResourceURI = "novelcipher://chapter-format"

// Server wraps the MCP server with chapter tools.
type Server struct {
	mcp *server.MCPServer
	svc *chapter.Service
}

// New creates a new MCP server with all chapter tools registered.
func New(svc *chapter.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"NovelCipher",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_chapters",
		mcp.WithDescription("List chapters ordered by number."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listChapters)

	s.mcp.AddTool(mcp.NewTool("get_chapter",
		mcp.WithDescription("Get a chapter's metadata and sealed payload. "+
			"The body is returned encrypted; it is never decrypted on the server."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Chapter number")),
	), s.getChapter)

	s.mcp.AddTool(mcp.NewTool("search_chapters",
		mcp.WithDescription("Search chapter titles and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchChapters)

	s.mcp.AddTool(mcp.NewTool("get_chapter_contract",
		mcp.WithDescription("Returns the chapter file format contract. "+
			"Call this before sealing chapters."),
	), s.getChapterContract)

	s.mcp.AddTool(mcp.NewTool("seal_chapter",
		mcp.WithDescription("Encrypt plaintext and store it as a chapter, replacing any chapter "+
			"with the same number. Paragraphs are separated by a blank line. Read the contract "+
			"first via get_chapter_contract or the "+FormatResourceURI+" resource."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Chapter number (1 or more)")),
		mcp.WithString("title", mcp.Description("Chapter title (default \"Chapter N\")")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Plaintext chapter body")),
	), s.sealChapter)

	s.mcp.AddResource(
		mcp.NewResource(FormatResourceURI, "Chapter Format Contract",
			mcp.WithResourceDescription("File format of sealed chapters in the vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("chapter not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func requireNumber(req mcp.CallToolRequest) (int, error) {
	n := int(req.GetFloat("number", 0))
	if n < 1 {
		return 0, fmt.Errorf("number must be a positive integer")
	}
	return n, nil
}

func (s *Server) listChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 50))
	offset := int(req.GetFloat("offset", 0))
	items, total, err := s.svc.ListChapters(ctx, limit, offset)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"chapters": items, "total": total}), nil
}

func (s *Server) getChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := requireNumber(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetChapter(ctx, n)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d), nil
}

func (s *Server) searchChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) sealChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := requireNumber(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Seal(ctx, chapter.Draft{
		Number: n,
		Title:  req.GetString("title", ""),
		Tags:   splitTags(req.GetString("tags", "")),
	}, text)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("sealed: chapter %d at %s", d.Number, d.Path)), nil
}

func (s *Server) getChapterContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ChapterFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatResourceURI,
			MIMEType: "text/markdown",
			Text:     ChapterFormatContract,
		},
	}, nil
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
