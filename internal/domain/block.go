package domain

import "encoding/json"

type BlockType string

const (
	BlockTypeText         BlockType = "text"
	BlockTypeHeading1     BlockType = "heading1"
	BlockTypeHeading2     BlockType = "heading2"
	BlockTypeHeading3     BlockType = "heading3"
	BlockTypeBulletedList BlockType = "bulleted_list"
	BlockTypeNumberedList BlockType = "numbered_list"
	BlockTypeTodo         BlockType = "to_do"
	BlockTypeCode         BlockType = "code"
	BlockTypeQuote        BlockType = "quote"
	BlockTypeCallout      BlockType = "callout"
	BlockTypeToggle       BlockType = "toggle"
	BlockTypePage         BlockType = "page"
)

// BlockTypes lists every block type in type-menu order.
var BlockTypes = []BlockType{
	BlockTypeText,
	BlockTypeHeading1,
	BlockTypeHeading2,
	BlockTypeHeading3,
	BlockTypeBulletedList,
	BlockTypeNumberedList,
	BlockTypeTodo,
	BlockTypeCode,
	BlockTypeQuote,
	BlockTypeCallout,
	BlockTypeToggle,
	BlockTypePage,
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	for _, bt := range BlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// IsList reports whether blocks of this type render as a static list when idle.
func (t BlockType) IsList() bool {
	return t == BlockTypeBulletedList || t == BlockTypeNumberedList
}

// HeadingLevel returns 1-3 for heading types and 0 otherwise.
func (t BlockType) HeadingLevel() int {
	switch t {
	case BlockTypeHeading1:
		return 1
	case BlockTypeHeading2:
		return 2
	case BlockTypeHeading3:
		return 3
	}
	return 0
}

// Block is one content unit on a page.
type Block struct {
	ID       ID        `json:"id"`
	PageID   ID        `json:"page_id,omitempty"`
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`
	Position int       `json:"position"`
	Props    Props     `json:"props"`
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	b.Props = b.Props.Clone()
	return b
}

// UnmarshalJSON accepts legacy records: null content becomes "" and
// malformed props become empty props.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       ID              `json:"id"`
		PageID   ID              `json:"page_id"`
		Type     BlockType       `json:"type"`
		Content  *string         `json:"content"`
		Position int             `json:"position"`
		Props    json.RawMessage `json:"props"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{
		ID:       raw.ID,
		PageID:   raw.PageID,
		Type:     raw.Type,
		Position: raw.Position,
		Props:    ParseProps(raw.Props),
	}
	if raw.Content != nil {
		b.Content = *raw.Content
	}
	if b.Type == "" {
		b.Type = BlockTypeText
	}
	return nil
}

// NormalizeBlock makes a remote record safe for local mutation: props is
// never nil-mapped and content is never missing. It is idempotent.
func NormalizeBlock(b Block) Block {
	b = b.Clone()
	if b.Type == "" {
		b.Type = BlockTypeText
	}
	if b.Props.Extra == nil {
		b.Props.Extra = map[string]json.RawMessage{}
	}
	b.Props.Children, _ = EnsureChildIDs(b.ID, b.Props.Children)
	return b
}

// NormalizeBlocks applies NormalizeBlock to every element.
func NormalizeBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = NormalizeBlock(b)
	}
	return out
}

// BlockInput is the body of a create-block request.
type BlockInput struct {
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`
	Props    Props     `json:"props"`
	Position int       `json:"position"`
}

// BlockPatch is the body of an update-block request. Nil fields are not sent.
type BlockPatch struct {
	Type     *BlockType `json:"type,omitempty"`
	Content  *string    `json:"content,omitempty"`
	Props    *Props     `json:"props,omitempty"`
	Position *int       `json:"position,omitempty"`
}

// Apply copies the set fields of p onto b.
func (p BlockPatch) Apply(b *Block) {
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Props != nil {
		b.Props = p.Props.Clone()
	}
	if p.Position != nil {
		b.Position = *p.Position
	}
}

// PositionPatch builds a patch that only moves a block.
func PositionPatch(pos int) BlockPatch {
	return BlockPatch{Position: &pos}
}

type BlockStore interface {
	CreateBlock(b *Block) error
	GetBlock(id ID) (*Block, error)
	ListBlocks(pageID ID) ([]Block, error)
	UpdateBlock(b *Block) error
	DeleteBlock(id ID) error
	DeleteBlocksByPage(pageID ID) error
}
