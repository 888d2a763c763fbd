package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"blocknotes/internal/domain"
)

const (
	pagesURI      = "kb://pages"
	pageURIPrefix = "kb://page/"
)

func (s *Server) registerResources() {
	// ── kb://pages ─────────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"Page Tree",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── kb://page/{pageId} ─────────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}",
			"Page with Blocks",
		),
		s.handlePageResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.kb.ListPages(ctx, nil)
	if err != nil {
		return nil, err
	}
	return jsonResource(pagesURI, summarizePages(pages))
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := pageIDFromURI(uri)
	if pageID.IsZero() {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}
	page, err := s.kb.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, detailOf(page))
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// pageIDFromURI extracts the page ID from "kb://page/{id}".
func pageIDFromURI(uri string) domain.ID {
	id, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return domain.ID(id)
}
