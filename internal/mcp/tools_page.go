package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"blocknotes/internal/domain"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the page tree. Without parentId the root pages are listed, each with its sub-pages."),
		mcp.WithString("parentId", mcp.Description("Only list pages under this page (optional)")),
	), s.handleListPages)

	// ── get_page ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Read a page and its blocks in order"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetPage)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new page, optionally under a parent page. The new page becomes the active page."),
		mcp.WithString("title", mcp.Description("Title of the new page (defaults to Untitled)")),
		mcp.WithString("icon", mcp.Description("Emoji icon (optional)")),
		mcp.WithString("parentId", mcp.Description("Parent page ID (optional, root when omitted)")),
	), s.handleCreatePage)

	// ── rename_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_page",
		mcp.WithDescription("Change the title and/or icon of a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("title", mcp.Description("New title (optional)")),
		mcp.WithString("icon", mcp.Description("New emoji icon (optional)")),
	), s.handleRenamePage)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page with all its blocks and sub-pages."),
		mcp.WithString("pageId", mcp.Description("Page ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)
}

func boolPtr(v bool) *bool { return &v }

// pageSummary is a page without its blocks, as listed in the tree.
type pageSummary struct {
	ID       domain.ID     `json:"id"`
	Title    string        `json:"title"`
	Icon     string        `json:"icon"`
	Children []pageSummary `json:"children,omitempty"`
}

func summarizePages(pages []domain.Page) []pageSummary {
	out := make([]pageSummary, len(pages))
	for i, p := range pages {
		out[i] = pageSummary{
			ID:       p.ID,
			Title:    p.DisplayTitle(),
			Icon:     p.DisplayIcon(),
			Children: summarizePages(p.Children),
		}
	}
	return out
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parent *domain.ID
	if pid := req.GetString("parentId", ""); pid != "" {
		id := domain.ID(pid)
		parent = &id
	}
	pages, err := s.kb.ListPages(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(summarizePages(pages))
}

// pageDetail is a page with its block summaries.
type pageDetail struct {
	ID       domain.ID      `json:"id"`
	Title    string         `json:"title"`
	Icon     string         `json:"icon"`
	ParentID *domain.ID     `json:"parentId,omitempty"`
	Blocks   []blockSummary `json:"blocks"`
}

func detailOf(p *domain.Page) pageDetail {
	blocks := sortedBlocks(p.Blocks)
	d := pageDetail{
		ID:       p.ID,
		Title:    p.DisplayTitle(),
		Icon:     p.DisplayIcon(),
		ParentID: p.ParentID,
		Blocks:   make([]blockSummary, len(blocks)),
	}
	for i, b := range blocks {
		d.Blocks[i] = summarizeBlock(b)
	}
	return d
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	page, err := s.kb.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return jsonResult(detailOf(page))
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := domain.PageInput{Title: req.GetString("title", "")}
	if icon := req.GetString("icon", ""); icon != "" {
		in.Icon = &icon
	}
	if pid := req.GetString("parentId", ""); pid != "" {
		parent := domain.ID(pid)
		in.ParentID = &parent
	}
	page, err := s.kb.CreatePage(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Auto-set as active page
	s.setActivePage(page.ID)
	return jsonResult(detailOf(page))
}

func (s *Server) handleRenamePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	var patch domain.PagePatch
	if title := req.GetString("title", ""); title != "" {
		patch.Title = &title
	}
	if icon := req.GetString("icon", ""); icon != "" {
		patch.Icon = &icon
	}
	if patch.Title == nil && patch.Icon == nil {
		return nil, fmt.Errorf("title or icon is required")
	}
	page, err := s.kb.UpdatePage(ctx, pageID, patch)
	if err != nil {
		return nil, fmt.Errorf("rename page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s is now %s %s", page.ID, page.DisplayIcon(), page.DisplayTitle())), nil
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := domain.ID(req.GetString("pageId", ""))
	if pageID.IsZero() {
		return nil, fmt.Errorf("pageId is required")
	}
	if err := s.kb.DeletePage(ctx, pageID); err != nil {
		return nil, fmt.Errorf("delete page: %w", err)
	}
	s.mu.Lock()
	if s.activePageID == pageID {
		s.activePageID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Page %s deleted", pageID)), nil
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	s.setActivePage(domain.ID(pageID))
	return textResult(fmt.Sprintf("Active page set to %s", pageID)), nil
}
