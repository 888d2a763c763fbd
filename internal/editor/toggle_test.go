package editor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
)

func toggleBlock(id domain.ID, pos int, content string, collapsed bool, children ...domain.SubBlock) domain.Block {
	props := domain.Props{Collapsed: domain.BoolPtr(collapsed), Children: children}
	if children == nil {
		props.Children = []domain.SubBlock{}
	}
	return domain.Block{ID: id, Type: domain.BlockTypeToggle, Content: content, Position: pos, Props: props}
}

func child(id domain.ID, pos int, content string) domain.SubBlock {
	return domain.SubBlock{ID: id, Type: domain.SubBlockText, Content: content, Position: pos}
}

func childIDs(children []domain.SubBlock) []domain.ID {
	ids := make([]domain.ID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids
}

func TestToggle_LegacyContentMigratesOnce(t *testing.T) {
	legacy := domain.Block{ID: "g1", Type: domain.BlockTypeToggle, Content: "Title\nline two\nline three", Props: domain.Props{}}
	h := newHarness(t, legacy)

	v := h.view("g1")
	assert.Equal(t, "Title", v.Content)
	require.NotNil(t, v.Toggle)
	assert.True(t, v.Toggle.Collapsed)

	h.clock.Advance(quiet)
	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	stored := h.backend.block("g1")
	assert.Equal(t, "Title", stored.Content)
	require.Len(t, stored.Props.Children, 1)
	assert.Equal(t, "line two\nline three", stored.Props.Children[0].Content)
	assert.Equal(t, 0, stored.Props.Children[0].Position)
	assert.False(t, stored.Props.Children[0].ID.IsZero())

	_, err := h.ed.Refresh(context.Background())
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	assert.Len(t, h.backend.Updates(), 1)
}

func TestToggle_LegacyTrailingNewlineYieldsEmptyChildren(t *testing.T) {
	legacy := domain.Block{ID: "g1", Type: domain.BlockTypeToggle, Content: "Only\n", Props: domain.Props{}}
	h := newHarness(t, legacy)

	h.clock.Advance(quiet)
	stored := h.backend.block("g1")
	assert.Equal(t, "Only", stored.Content)
	assert.NotNil(t, stored.Props.Children)
	assert.Empty(t, stored.Props.Children)
}

func TestToggle_SingleLineLegacyIsLeftAlone(t *testing.T) {
	legacy := domain.Block{ID: "g1", Type: domain.BlockTypeToggle, Content: "Just a title", Props: domain.Props{}}
	h := newHarness(t, legacy)

	h.clock.Advance(time.Second)
	assert.Empty(t, h.backend.Updates())
	assert.Equal(t, "Just a title", h.view("g1").Content)
}

func TestToggle_ExpandSeedsOneChildPerExpansion(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", true))

	require.NoError(t, h.ed.SetCollapsed("g1", false))
	v := h.view("g1")
	require.Len(t, v.Toggle.Children, 1)
	seed := v.Toggle.Children[0].Ref
	assert.Equal(t, "", v.Toggle.Children[0].Content)

	// Deleting the seed does not immediately reseed within the same expansion.
	require.NoError(t, h.ed.Delete(context.Background(), seed))
	assert.Empty(t, h.view("g1").Toggle.Children)

	require.NoError(t, h.ed.SetCollapsed("g1", true))
	require.NoError(t, h.ed.SetCollapsed("g1", false))
	assert.Len(t, h.view("g1").Toggle.Children, 1)

	h.clock.Advance(quiet)
	require.Len(t, h.backend.Updates(), 1)
	stored := h.backend.block("g1")
	assert.False(t, stored.Props.Toggle().Collapsed)
	assert.Len(t, stored.Props.Children, 1)
}

func TestToggle_ExpandedWithoutChildrenSeedsOnLoad(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false))
	assert.Len(t, h.view("g1").Toggle.Children, 1)
}

func TestToggle_ChildEditFoldsThenParentWrites(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false, child("c1", 0, "one"), child("c2", 1, "two")))

	require.NoError(t, h.ed.EditContent(editor.Nested("g1", "c1"), "uno"))
	cv := h.view("g1").Toggle.Children[0]
	assert.True(t, cv.Unsaved)
	assert.False(t, h.view("g1").Unsaved, "nothing folded yet")

	h.clock.Advance(childQuiet - time.Millisecond)
	assert.False(t, h.view("g1").Unsaved)
	h.clock.Advance(time.Millisecond)
	assert.True(t, h.view("g1").Unsaved, "child folded into the parent draft")

	h.clock.Advance(quiet - time.Millisecond)
	assert.Empty(t, h.backend.Updates())
	h.clock.Advance(time.Millisecond)

	updates := h.backend.Updates()
	require.Len(t, updates, 1, "children are written through the parent only")
	assert.Equal(t, domain.ID("g1"), updates[0].ID)
	children := updates[0].Patch.Props.Children
	require.Len(t, children, 2)
	assert.Equal(t, "uno", children[0].Content)
	assert.Equal(t, "two", children[1].Content)
	assert.False(t, h.view("g1").Toggle.Children[0].Unsaved)
}

func TestToggle_NestedReorderIsOneParentWrite(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false,
		child("c1", 0, "a"), child("c2", 1, "b"), child("c3", 2, "c")))

	payload, err := h.ed.DragStart(editor.Nested("g1", "c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", payload)
	h.ed.DragOver(editor.Nested("g1", "c3"))
	assert.True(t, h.view("g1").Toggle.Children[2].DragOver)
	assert.False(t, h.ed.View().Drag.Active(), "nested drags do not touch the page list")

	require.NoError(t, h.ed.Drop(context.Background(), editor.Nested("g1", "c3")))
	h.clock.Advance(quiet)

	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	children := updates[0].Patch.Props.Children
	assert.Equal(t, []domain.ID{"c2", "c1", "c3"}, childIDs(children))
	for i, c := range children {
		assert.Equal(t, i, c.Position)
	}
}

func TestToggle_ChildStructure(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false, child("c1", 0, "a")))
	ctx := context.Background()

	next, err := h.ed.InsertBelow(ctx, editor.Nested("g1", "c1"))
	require.NoError(t, err)
	assert.True(t, next.IsChild())
	assert.True(t, h.view("g1").Toggle.Children[1].Focused)

	dup, err := h.ed.Duplicate(ctx, editor.Nested("g1", "c1"))
	require.NoError(t, err)
	assert.NotEqual(t, domain.ID("c1"), dup.Child)

	children := h.view("g1").Toggle.Children
	require.Len(t, children, 3)
	assert.Equal(t, "a", children[1].Content)
	assert.Equal(t, dup, children[1].Ref)

	require.NoError(t, h.ed.SetType(ctx, editor.Nested("g1", "c1"), domain.BlockTypeQuote))
	assert.ErrorIs(t, h.ed.SetType(ctx, editor.Nested("g1", "c1"), domain.BlockTypeToggle), editor.ErrTypeNotAllowed)
	assert.ErrorIs(t, h.ed.SetType(ctx, editor.Nested("g1", "c1"), domain.BlockTypePage), editor.ErrTypeNotAllowed)

	h.clock.Advance(time.Second)
	stored := h.backend.block("g1").Props.Children
	require.Len(t, stored, 3)
	assert.Equal(t, domain.SubBlockQuote, stored[0].Type)
	assert.Empty(t, h.backend.creates, "children never become remote blocks")
}

func TestToggle_TypeSwitchKeepsChildren(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false, child("c1", 0, "a")))
	ctx := context.Background()

	require.NoError(t, h.ed.EditContent(editor.Nested("g1", "c1"), "edited"))
	require.NoError(t, h.ed.SetType(ctx, editor.Top("g1"), domain.BlockTypeText))
	assert.Nil(t, h.view("g1").Toggle)

	h.clock.Advance(time.Second)
	stored := h.backend.block("g1")
	assert.Equal(t, domain.BlockTypeText, stored.Type)
	require.Len(t, stored.Props.Children, 1)
	assert.Equal(t, "edited", stored.Props.Children[0].Content)

	require.NoError(t, h.ed.SetType(ctx, editor.Top("g1"), domain.BlockTypeToggle))
	v := h.view("g1")
	require.NotNil(t, v.Toggle)
	require.Len(t, v.Toggle.Children, 1)
	assert.Equal(t, "edited", v.Toggle.Children[0].Content)
}

func TestToggle_ChildrenWithoutIDsEditOnTheirOwn(t *testing.T) {
	h := newHarness(t, toggleBlock("g1", 0, "T", false,
		child("", 0, "a"), child("", 1, "b"), child("d", 2, "c"), child("d", 3, "dup")))
	assert.Empty(t, h.backend.Updates(), "repairing ids on load is not an edit")

	v := h.view("g1")
	require.Len(t, v.Toggle.Children, 4)
	seen := map[domain.ID]bool{}
	for _, cv := range v.Toggle.Children {
		require.True(t, cv.Ref.IsChild(), "child %q addresses its parent", cv.Content)
		assert.False(t, seen[cv.Ref.Child])
		seen[cv.Ref.Child] = true
	}

	require.NoError(t, h.ed.EditContent(v.Toggle.Children[1].Ref, "edited b"))
	require.NoError(t, h.ed.EditContent(v.Toggle.Children[3].Ref, "edited dup"))
	h.clock.Advance(time.Second)

	stored := h.backend.block("g1")
	assert.Equal(t, "T", stored.Content)
	require.Len(t, stored.Props.Children, 4)
	contents := make([]string, 4)
	for i, c := range stored.Props.Children {
		assert.False(t, c.ID.IsZero())
		contents[i] = c.Content
	}
	assert.Equal(t, []string{"a", "edited b", "c", "edited dup"}, contents)
	assert.Equal(t, domain.ID("d"), stored.Props.Children[2].ID)
}
