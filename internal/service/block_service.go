package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blocknotes/internal/domain"
)

// ErrInvalidInput marks a request the store will not accept.
var ErrInvalidInput = errors.New("invalid input")

// ─────────────────────────────────────────────────────────────
// Block Service: server-side block records
// ─────────────────────────────────────────────────────────────

// BlockService manages the lifecycle of stored blocks for the reference
// server. Records come back normalized: props are never null.
type BlockService struct {
	store domain.BlockStore
	pages domain.PageStore
}

// NewBlockService creates a BlockService.
func NewBlockService(store domain.BlockStore, pages domain.PageStore) *BlockService {
	return &BlockService{store: store, pages: pages}
}

// CreateBlock adds a block to an existing page.
func (s *BlockService) CreateBlock(pageID domain.ID, in domain.BlockInput) (*domain.Block, error) {
	if _, err := s.pages.GetPage(pageID); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = domain.BlockTypeText
	}
	b := domain.NormalizeBlock(domain.Block{
		ID:       domain.ID(uuid.New().String()),
		PageID:   pageID,
		Type:     in.Type,
		Content:  in.Content,
		Position: in.Position,
		Props:    in.Props,
	})
	if err := s.store.CreateBlock(&b); err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return &b, nil
}

// GetBlock returns a block by ID.
func (s *BlockService) GetBlock(id domain.ID) (*domain.Block, error) {
	return s.store.GetBlock(id)
}

// ListBlocks returns the blocks of a page ordered by position.
func (s *BlockService) ListBlocks(pageID domain.ID) ([]domain.Block, error) {
	blocks, err := s.store.ListBlocks(pageID)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeBlocks(blocks), nil
}

// UpdateBlock applies the set fields of patch. Props are replaced whole,
// never merged: the client always sends the full bag.
func (s *BlockService) UpdateBlock(id domain.ID, patch domain.BlockPatch) (*domain.Block, error) {
	b, err := s.store.GetBlock(id)
	if err != nil {
		return nil, err
	}
	if patch.Type != nil && *patch.Type == "" {
		return nil, fmt.Errorf("update block: empty type: %w", ErrInvalidInput)
	}
	patch.Apply(b)
	nb := domain.NormalizeBlock(*b)
	if err := s.store.UpdateBlock(&nb); err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}
	return &nb, nil
}

// DeleteBlock removes a block.
func (s *BlockService) DeleteBlock(id domain.ID) error {
	return s.store.DeleteBlock(id)
}
