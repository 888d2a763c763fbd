package service

import (
	"fmt"

	"github.com/google/uuid"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Page Service: the page tree of the reference server
// ─────────────────────────────────────────────────────────────

// PageService manages pages and assembles the shapes the REST contract
// returns: listings carry their subtree, a single page carries its blocks.
type PageService struct {
	store  domain.PageStore
	blocks *BlockService
}

// NewPageService creates a PageService.
func NewPageService(store domain.PageStore, blocks *BlockService) *PageService {
	return &PageService{store: store, blocks: blocks}
}

// ListPages returns the pages under parentID (root when nil or "0") with
// their children filled recursively.
func (s *PageService) ListPages(parentID *domain.ID) ([]domain.Page, error) {
	pages, err := s.store.ListPages(rootless(parentID))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for i := range pages {
		if err := s.fillChildren(&pages[i], 0); err != nil {
			return nil, err
		}
	}
	return pages, nil
}

// maxTreeDepth stops a corrupted parent chain from recursing forever.
const maxTreeDepth = 64

func (s *PageService) fillChildren(p *domain.Page, depth int) error {
	if depth >= maxTreeDepth {
		return nil
	}
	id := p.ID
	children, err := s.store.ListPages(&id)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", p.ID, err)
	}
	for i := range children {
		if err := s.fillChildren(&children[i], depth+1); err != nil {
			return err
		}
	}
	p.Children = children
	return nil
}

// GetPage returns a page with its blocks sorted by position.
func (s *PageService) GetPage(id domain.ID) (*domain.Page, error) {
	page, err := s.store.GetPage(id)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListBlocks(id)
	if err != nil {
		return nil, fmt.Errorf("get page blocks: %w", err)
	}
	page.Blocks = blocks
	return page, nil
}

// CreatePage creates a page at the end of its siblings.
func (s *PageService) CreatePage(in domain.PageInput) (*domain.Page, error) {
	parent := rootless(in.ParentID)
	if parent != nil {
		if _, err := s.store.GetPage(*parent); err != nil {
			return nil, err
		}
	}
	siblings, err := s.store.ListPages(parent)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p := &domain.Page{
		ID:       domain.ID(uuid.New().String()),
		Title:    in.Title,
		Icon:     in.Icon,
		ParentID: parent,
		Position: len(siblings),
	}
	if p.Title == "" {
		p.Title = domain.DefaultPageTitle
	}
	if err := s.store.CreatePage(p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, nil
}

// UpdatePage renames, re-icons or moves a page. Moving a page under
// itself or one of its descendants is rejected.
func (s *PageService) UpdatePage(id domain.ID, patch domain.PagePatch) (*domain.Page, error) {
	p, err := s.store.GetPage(id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Icon != nil {
		p.Icon = patch.Icon
	}
	if patch.ParentID != nil {
		parent := rootless(patch.ParentID)
		if parent != nil {
			if err := s.checkMove(id, *parent); err != nil {
				return nil, err
			}
		}
		p.ParentID = parent
	}
	if err := s.store.UpdatePage(p); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return p, nil
}

func (s *PageService) checkMove(id, parent domain.ID) error {
	for depth, cur := 0, parent; depth < maxTreeDepth; depth++ {
		if cur == id {
			return fmt.Errorf("move page under itself: %w", ErrInvalidInput)
		}
		p, err := s.store.GetPage(cur)
		if err != nil {
			return err
		}
		if p.ParentID == nil {
			return nil
		}
		cur = *p.ParentID
	}
	return nil
}

// DeletePage removes a page, its blocks and its subpages.
func (s *PageService) DeletePage(id domain.ID) error {
	return s.store.DeletePage(id)
}

// rootless maps the legacy root markers "" and "0" to nil.
func rootless(id *domain.ID) *domain.ID {
	if id == nil || id.IsZero() || *id == "0" {
		return nil
	}
	v := *id
	return &v
}
