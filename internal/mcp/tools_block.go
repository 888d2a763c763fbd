package mcpserver

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"blocknotes/internal/domain"
)

func (s *Server) registerBlockTools() {
	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a new block on a page. It is appended unless an index is given. A page block also creates the sub-page it links to."),
		mcp.WithString("type",
			mcp.Description("Block type: text, heading1, heading2, heading3, bulleted_list, numbered_list, to_do, code, quote, callout, toggle, page"),
		),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("content", mcp.Description("Initial content (optional)")),
		mcp.WithNumber("index", mcp.Description("Zero-based index to insert at (optional, appends when omitted)")),
	), s.handleCreateBlock)

	// ── update_block_content ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_content",
		mcp.WithDescription("Replace the content of a block. For to_do blocks pass the text only; the checkbox state is kept."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New content"), mcp.Required()),
	), s.handleUpdateBlockContent)

	// ── set_block_type ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_block_type",
		mcp.WithDescription("Change the type of a block. Switching to page creates the linked sub-page first."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("type", mcp.Description("New block type"), mcp.Required()),
	), s.handleSetBlockType)

	// ── set_todo_checked ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_todo_checked",
		mcp.WithDescription("Tick or untick a to_do block"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithBoolean("checked", mcp.Description("Checked state"), mcp.Required()),
	), s.handleSetTodoChecked)

	// ── add_toggle_child ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_toggle_child",
		mcp.WithDescription("Append a nested block inside a toggle. Nested blocks cannot be toggles or pages."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Toggle block ID"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Nested block type (default text)")),
		mcp.WithString("content", mcp.Description("Content of the nested block")),
	), s.handleAddToggleChild)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a new index on its page. Every block is renumbered 0..n-1."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Zero-based target index"), mcp.Required()),
	), s.handleMoveBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)
}

// ── Summaries ──────────────────────────────────────────────

type blockSummary struct {
	ID       domain.ID        `json:"id"`
	Type     domain.BlockType `json:"type"`
	Position int              `json:"position"`
	Content  string           `json:"content"`
	Checked  *bool            `json:"checked,omitempty"`
	Emoji    string           `json:"emoji,omitempty"`
	LinkedID domain.ID        `json:"linkedPageId,omitempty"`
	// Collapsed and Children are only set for toggles.
	Collapsed *bool          `json:"collapsed,omitempty"`
	Children  []childSummary `json:"children,omitempty"`
}

type childSummary struct {
	ID      domain.ID           `json:"id"`
	Type    domain.SubBlockType `json:"type"`
	Content string              `json:"content"`
}

func summarizeBlock(b domain.Block) blockSummary {
	sum := blockSummary{ID: b.ID, Type: b.Type, Position: b.Position, Content: b.Content}
	switch b.Type {
	case domain.BlockTypeTodo:
		checked, text := domain.ParseTodo(b.Content)
		sum.Checked, sum.Content = &checked, text
	case domain.BlockTypeCallout:
		sum.Emoji = b.Props.Callout().Emoji
	case domain.BlockTypePage:
		link, _ := b.Props.PageLink()
		sum.LinkedID, sum.Emoji = link.PageID, link.Emoji
	case domain.BlockTypeToggle:
		tog := b.Props.Toggle()
		sum.Collapsed = &tog.Collapsed
		children := domain.CloneSubBlocks(tog.Children)
		domain.SortSubBlocks(children)
		for _, c := range children {
			sum.Children = append(sum.Children, childSummary{ID: c.ID, Type: c.Type, Content: c.Content})
		}
	}
	return sum
}

func sortedBlocks(in []domain.Block) []domain.Block {
	out := append([]domain.Block(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	blockType := domain.BlockType(req.GetString("type", string(domain.BlockTypeText)))
	if !blockType.Valid() {
		return nil, fmt.Errorf("unknown block type %q", blockType)
	}

	page, err := s.kb.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	blocks := sortedBlocks(page.Blocks)
	index := int(req.GetFloat("index", float64(len(blocks))))
	index = max(0, min(index, len(blocks)))

	in := domain.BlockInput{Type: blockType, Content: req.GetString("content", ""), Position: index}
	if blockType == domain.BlockTypeTodo {
		checked, text := domain.ParseTodo(in.Content)
		in.Content = domain.FormatTodo(checked, text)
	}
	if blockType == domain.BlockTypePage {
		linked, err := s.createSubPage(ctx, pageID, in.Content)
		if err != nil {
			return nil, err
		}
		in.Props = domain.Props{PageID: linked.ID, Emoji: linked.DisplayIcon()}
	}

	block, err := s.kb.CreateBlock(ctx, pageID, in)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	if err := s.persistOrder(ctx, slices.Insert(blocks, index, *block)); err != nil {
		return nil, err
	}

	s.emitBlocksChanged(ctx, pageID)
	return jsonResult(summarizeBlock(*block))
}

// createSubPage creates the page a page block links to, as a child of the
// page holding the block.
func (s *Server) createSubPage(ctx context.Context, parent domain.ID, title string) (*domain.Page, error) {
	if title == "" {
		title = domain.DefaultPageTitle
	}
	page, err := s.kb.CreatePage(ctx, domain.PageInput{
		Title:    title,
		Icon:     domain.StringPtr(domain.PageLinkDefaultEmoji),
		ParentID: &parent,
	})
	if err != nil {
		return nil, fmt.Errorf("create linked page: %w", err)
	}
	return page, nil
}

func (s *Server) handleUpdateBlockContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, i, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	block := page.Blocks[i]

	content := req.GetString("content", "")
	if block.Type == domain.BlockTypeTodo {
		checked, _ := domain.ParseTodo(block.Content)
		content = domain.FormatTodo(checked, content)
	}
	if _, err := s.kb.UpdateBlock(ctx, block.ID, domain.BlockPatch{Content: &content}); err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}

	s.emitBlocksChanged(ctx, page.ID)
	return textResult(fmt.Sprintf("Block %s content updated", block.ID)), nil
}

func (s *Server) handleSetBlockType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, i, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	block := page.Blocks[i]
	blockType := domain.BlockType(req.GetString("type", ""))
	if !blockType.Valid() {
		return nil, fmt.Errorf("unknown block type %q", blockType)
	}

	patch := domain.BlockPatch{Type: &blockType}
	if _, linked := block.Props.PageLink(); blockType == domain.BlockTypePage && !linked {
		sub, err := s.createSubPage(ctx, page.ID, "")
		if err != nil {
			return nil, err
		}
		props := block.Props.Clone()
		props.PageID = sub.ID
		if props.Emoji == "" {
			props.Emoji = domain.PageLinkDefaultEmoji
		}
		patch.Props = &props
	}
	updated, err := s.kb.UpdateBlock(ctx, block.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("set block type: %w", err)
	}

	s.emitBlocksChanged(ctx, page.ID)
	return jsonResult(summarizeBlock(*updated))
}

func (s *Server) handleSetTodoChecked(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, i, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	block := page.Blocks[i]
	if block.Type != domain.BlockTypeTodo {
		return nil, fmt.Errorf("block %s is a %s, not a to_do", block.ID, block.Type)
	}

	_, text := domain.ParseTodo(block.Content)
	content := domain.FormatTodo(req.GetBool("checked", false), text)
	if _, err := s.kb.UpdateBlock(ctx, block.ID, domain.BlockPatch{Content: &content}); err != nil {
		return nil, fmt.Errorf("set checked: %w", err)
	}

	s.emitBlocksChanged(ctx, page.ID)
	return textResult(fmt.Sprintf("Block %s is now %q", block.ID, content)), nil
}

func (s *Server) handleAddToggleChild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, i, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	block := page.Blocks[i]
	if block.Type != domain.BlockTypeToggle {
		return nil, fmt.Errorf("block %s is a %s, not a toggle", block.ID, block.Type)
	}
	childType, ok := domain.SubBlockTypeOf(domain.BlockType(req.GetString("type", string(domain.BlockTypeText))))
	if !ok {
		return nil, fmt.Errorf("toggles cannot nest %q blocks", req.GetString("type", ""))
	}

	props := block.Props.Clone()
	children := domain.CloneSubBlocks(props.Children)
	domain.SortSubBlocks(children)
	children = append(children, domain.SubBlock{
		ID:      domain.ID(uuid.New().String()),
		Type:    childType,
		Content: req.GetString("content", ""),
	})
	for j := range children {
		children[j].Position = j
	}
	props.Children = children

	updated, err := s.kb.UpdateBlock(ctx, block.ID, domain.BlockPatch{Props: &props})
	if err != nil {
		return nil, fmt.Errorf("add toggle child: %w", err)
	}

	s.emitBlocksChanged(ctx, page.ID)
	return jsonResult(summarizeBlock(*updated))
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, from, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	blocks := sortedBlocks(page.Blocks)
	for j, b := range blocks {
		if b.ID == page.Blocks[from].ID {
			from = j
		}
	}
	to := int(req.GetFloat("index", float64(from)))
	to = max(0, min(to, len(blocks)-1))

	moved := blocks[from]
	blocks = slices.Insert(slices.Delete(blocks, from, from+1), to, moved)
	if err := s.persistOrder(ctx, blocks); err != nil {
		return nil, err
	}

	s.emitBlocksChanged(ctx, page.ID)
	return textResult(fmt.Sprintf("Block %s moved to index %d", moved.ID, to)), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, i, err := s.pageBlock(ctx, req)
	if err != nil {
		return nil, err
	}
	block := page.Blocks[i]

	if err := s.kb.DeleteBlock(ctx, block.ID); err != nil {
		return nil, fmt.Errorf("delete block: %w", err)
	}

	s.emitBlocksChanged(ctx, page.ID)
	return textResult(fmt.Sprintf("Block %s deleted", block.ID)), nil
}

// persistOrder renumbers blocks to their slice index and writes the
// positions that changed, one awaited update at a time.
func (s *Server) persistOrder(ctx context.Context, blocks []domain.Block) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	for i, b := range blocks {
		if b.Position == i {
			continue
		}
		if _, err := s.kb.UpdateBlock(ctx, b.ID, domain.PositionPatch(i)); err != nil {
			return fmt.Errorf("move block %s to %d: %w", b.ID, i, err)
		}
	}
	return nil
}
