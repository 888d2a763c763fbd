package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// Server is the MCP server for the knowledge base.
// It exposes tools, resources, and prompts so AI agents can read and edit pages.
type Server struct {
	mcp     *server.MCPServer
	emitter service.EventEmitter
	kb      service.Remote
	log     zerolog.Logger

	// persistMu serializes position passes, like the editor does.
	persistMu sync.Mutex

	mu sync.Mutex
	// Active page context (set by set_active_page tool)
	activePageID domain.ID
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter service.EventEmitter
	KB      service.Remote
	Log     zerolog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	s := &Server{
		emitter: deps.Emitter,
		kb:      deps.KB,
		log:     deps.Log,
	}

	s.mcp = server.NewMCPServer(
		"blocknotes-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// emitBlocksChanged notifies listeners that blocks have changed on a page.
func (s *Server) emitBlocksChanged(ctx context.Context, pageID domain.ID) {
	s.emitter.Emit(ctx, service.EventBlocksChanged, map[string]string{"pageId": pageID.String()})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) setActivePage(id domain.ID) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

// resolvePageID returns the pageId from tool args or falls back to activePageID.
func (s *Server) resolvePageID(req mcp.CallToolRequest) (domain.ID, error) {
	if pid := req.GetString("pageId", ""); pid != "" {
		return domain.ID(pid), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activePageID.IsZero() {
		return s.activePageID, nil
	}
	return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

// pageBlock loads the page a tool addresses and the block blockId within it.
// The REST API has no single-block read, so blocks are always found through
// their page.
func (s *Server) pageBlock(ctx context.Context, req mcp.CallToolRequest) (*domain.Page, int, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, -1, err
	}
	blockID := domain.ID(req.GetString("blockId", ""))
	if blockID.IsZero() {
		return nil, -1, fmt.Errorf("blockId is required")
	}
	page, err := s.kb.GetPage(ctx, pageID)
	if err != nil {
		return nil, -1, fmt.Errorf("get page: %w", err)
	}
	for i, b := range page.Blocks {
		if b.ID == blockID {
			return page, i, nil
		}
	}
	return nil, -1, fmt.Errorf("block %s not found on page %s", blockID, pageID)
}
