package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// SubBlockType is the type of a block nested inside a toggle. It cannot be
// a toggle or a page, so toggles nest exactly one level deep.
type SubBlockType string

const (
	SubBlockText         SubBlockType = "text"
	SubBlockHeading1     SubBlockType = "heading1"
	SubBlockHeading2     SubBlockType = "heading2"
	SubBlockHeading3     SubBlockType = "heading3"
	SubBlockBulletedList SubBlockType = "bulleted_list"
	SubBlockNumberedList SubBlockType = "numbered_list"
	SubBlockTodo         SubBlockType = "to_do"
	SubBlockCode         SubBlockType = "code"
	SubBlockQuote        SubBlockType = "quote"
	SubBlockCallout      SubBlockType = "callout"
)

// SubBlockTypes lists the nested types in menu order.
var SubBlockTypes = []SubBlockType{
	SubBlockText,
	SubBlockHeading1,
	SubBlockHeading2,
	SubBlockHeading3,
	SubBlockBulletedList,
	SubBlockNumberedList,
	SubBlockTodo,
	SubBlockCode,
	SubBlockQuote,
	SubBlockCallout,
}

func (t SubBlockType) Valid() bool {
	for _, st := range SubBlockTypes {
		if st == t {
			return true
		}
	}
	return false
}

// BlockType widens t to the top-level enum, for rendering.
func (t SubBlockType) BlockType() BlockType { return BlockType(t) }

// SubBlockTypeOf narrows a block type. ok is false for toggle and page.
func SubBlockTypeOf(t BlockType) (SubBlockType, bool) {
	st := SubBlockType(t)
	return st, st.Valid()
}

// SubProps is the props bag of a nested block: colours, callout emoji and
// passthrough keys. It has no room for children or page links.
type SubProps struct {
	Style
	Emoji string
	Extra map[string]json.RawMessage
}

func (p *SubProps) UnmarshalJSON(data []byte) error {
	full := ParseProps(data)
	*p = SubProps{Style: full.Style, Emoji: full.Emoji, Extra: full.Extra}
	// Keys that only make sense on top-level blocks are kept verbatim.
	if !full.PageID.IsZero() {
		raw, _ := json.Marshal(full.PageID)
		p.Extra[propPageID] = raw
	}
	if full.Collapsed != nil {
		raw, _ := json.Marshal(*full.Collapsed)
		p.Extra[propCollapsed] = raw
	}
	return nil
}

func (p SubProps) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	p.Style.put(out)
	putString(out, propEmoji, p.Emoji)
	return json.Marshal(out)
}

func (p SubProps) Clone() SubProps {
	c := p
	c.Extra = cloneRaw(p.Extra)
	return c
}

func (p SubProps) Equal(o SubProps) bool {
	a, errA := json.Marshal(p)
	b, errB := json.Marshal(o)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// SubBlock is a block embedded in a toggle's props. It is never stored as
// its own remote record; it travels inside the parent's props on every write.
type SubBlock struct {
	ID       ID           `json:"id"`
	Type     SubBlockType `json:"type"`
	Content  string       `json:"content"`
	Position int          `json:"position"`
	Props    SubProps     `json:"props"`
}

func (s *SubBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       ID              `json:"id"`
		Type     string          `json:"type"`
		Content  *string         `json:"content"`
		Position int             `json:"position"`
		Props    json.RawMessage `json:"props"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SubBlock{ID: raw.ID, Type: SubBlockType(raw.Type), Position: raw.Position}
	if !s.Type.Valid() {
		s.Type = SubBlockText
	}
	if raw.Content != nil {
		s.Content = *raw.Content
	}
	return s.Props.UnmarshalJSON(raw.Props)
}

func (s SubBlock) Clone() SubBlock {
	s.Props = s.Props.Clone()
	return s
}

// Equal compares every field, props deeply.
func (s SubBlock) Equal(o SubBlock) bool {
	return s.ID == o.ID && s.Type == o.Type && s.Content == o.Content &&
		s.Position == o.Position && s.Props.Equal(o.Props)
}

func CloneSubBlocks(in []SubBlock) []SubBlock {
	if in == nil {
		return nil
	}
	out := make([]SubBlock, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// SortSubBlocks orders children by position, stable for ties.
func SortSubBlocks(children []SubBlock) {
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Position < children[j].Position
	})
}

// childIDSpace namespaces the ids derived for children stored without one.
var childIDSpace = uuid.MustParse("6f1c2b8e-4d3a-5e7f-9a0b-1c2d3e4f5a6b")

// EnsureChildIDs gives every child of parent a non-empty id that is unique
// within the list. Missing or repeated ids are replaced with an id derived
// from the parent and the slot, so the same stored data always repairs to
// the same ids. The input is never modified: when a repair is needed a
// cloned slice is returned and changed is true.
func EnsureChildIDs(parent ID, children []SubBlock) (out []SubBlock, changed bool) {
	seen := make(map[ID]bool, len(children))
	for i, c := range children {
		if !c.ID.IsZero() && !seen[c.ID] {
			seen[c.ID] = true
			continue
		}
		if !changed {
			out, changed = CloneSubBlocks(children), true
		}
		id := ID(uuid.NewSHA1(childIDSpace, []byte(parent.String()+"/"+strconv.Itoa(i))).String())
		if seen[id] {
			id = ID(uuid.NewString())
		}
		seen[id] = true
		out[i].ID = id
	}
	if !changed {
		return children, false
	}
	return out, true
}

// parseSubBlocks decodes a children array, skipping malformed entries.
// A non-array value yields nil, i.e. "no children array".
func parseSubBlocks(data json.RawMessage) []SubBlock {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]SubBlock, 0, len(items))
	for _, item := range items {
		var s SubBlock
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
