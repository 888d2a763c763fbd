package editor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
	"blocknotes/internal/service"
)

func TestPageLink_CreatesChildPageThenFlipsType(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "Ideas"))
	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "Ideas!"))

	require.NoError(t, h.ed.SetType(context.Background(), editor.Top("b1"), domain.BlockTypePage))

	require.Len(t, h.backend.newPage, 1)
	in := h.backend.newPage[0]
	assert.Equal(t, domain.DefaultPageTitle, in.Title)
	require.NotNil(t, in.Icon)
	assert.Equal(t, domain.PageLinkDefaultEmoji, *in.Icon)
	require.NotNil(t, in.ParentID)
	assert.Equal(t, domain.ID("p1"), *in.ParentID)

	updates := h.backend.Updates()
	require.Len(t, updates, 1, "type, content and link travel in one update")
	assert.Equal(t, domain.BlockTypePage, *updates[0].Patch.Type)
	assert.Equal(t, "Ideas!", *updates[0].Patch.Content)
	assert.Equal(t, domain.ID("page-1"), updates[0].Patch.Props.PageID)

	v := h.view("b1")
	assert.Equal(t, editor.RenderPageLink, v.Kind)
	require.NotNil(t, v.Link)
	assert.Equal(t, domain.ID("page-1"), v.Link.PageID)
	assert.Equal(t, domain.DefaultPageTitle, v.Link.Title)
	assert.True(t, v.Link.Resolved)
	assert.False(t, v.Unsaved)

	h.clock.Advance(time.Second)
	assert.Len(t, h.backend.Updates(), 1, "the cancelled debounce never fires")
}

func TestPageLink_CreateFailureLeavesTypeAlone(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "Ideas"))
	h.backend.set(func(f *fakeBackend) { f.failCreatePage = errors.New("Failed to create page") })
	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "Ideas?"))

	err := h.ed.SetType(context.Background(), editor.Top("b1"), domain.BlockTypePage)
	require.Error(t, err)

	v := h.view("b1")
	assert.Equal(t, domain.BlockTypeText, v.Type)
	assert.Empty(t, h.backend.Updates())

	// The pending edit is still written through the normal path.
	h.clock.Advance(quiet)
	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, domain.BlockTypeText, *updates[0].Patch.Type)
	assert.Equal(t, "Ideas?", *updates[0].Patch.Content)
}

func TestPageLink_UpdateFailureLeavesTypeAlone(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "Ideas"))
	h.backend.set(func(f *fakeBackend) { f.failUpdate = errors.New("Failed to save") })

	err := h.ed.SetType(context.Background(), editor.Top("b1"), domain.BlockTypePage)
	require.Error(t, err)

	assert.Len(t, h.backend.newPage, 1)
	assert.Equal(t, domain.BlockTypeText, h.view("b1").Type)
}

func TestPageLink_EditsDuringCreationSurvive(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "Ideas"))
	gate, started := make(chan struct{}), make(chan struct{})
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = gate, started })
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- h.ed.SetType(ctx, editor.Top("b1"), domain.BlockTypePage) }()
	<-started

	assert.ErrorIs(t, h.ed.SetType(ctx, editor.Top("b1"), domain.BlockTypePage), editor.ErrLinkInProgress)

	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "Ideas, later"))
	h.clock.Advance(quiet)
	assert.Empty(t, h.backend.Updates(), "block writes wait for the link")

	gate <- struct{}{}
	require.NoError(t, <-errc)
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = nil, nil })

	v := h.view("b1")
	assert.Equal(t, domain.BlockTypePage, v.Type)
	assert.Equal(t, "Ideas, later", v.Content)
	assert.True(t, v.Unsaved)

	h.clock.Advance(quiet)
	updates := h.backend.Updates()
	require.Len(t, updates, 2)
	last := updates[1].Patch
	assert.Equal(t, domain.BlockTypePage, *last.Type)
	assert.Equal(t, "Ideas, later", *last.Content)
	assert.Equal(t, domain.ID("page-1"), last.Props.PageID)
}

func TestPageLink_FlushWaitsForCreation(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "Ideas"))
	gate, started := make(chan struct{}), make(chan struct{})
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = gate, started })
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- h.ed.SetType(ctx, editor.Top("b1"), domain.BlockTypePage) }()
	<-started
	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "Ideas, later"))

	flushed := make(chan error, 1)
	go func() { flushed <- h.ed.Flush(ctx) }()

	gate <- struct{}{}
	require.NoError(t, <-errc)
	<-started
	gate <- struct{}{}
	require.NoError(t, <-flushed)

	updates := h.backend.Updates()
	require.Len(t, updates, 2)
	last := updates[1].Patch
	assert.Equal(t, "Ideas, later", *last.Content)
	assert.Equal(t, domain.ID("page-1"), last.Props.PageID)
	assert.False(t, h.view("b1").Unsaved)
}

func TestPageLink_AlreadyLinkedJustSwitchesType(t *testing.T) {
	linked := domain.Block{ID: "b1", Type: domain.BlockTypeText, Content: "x", Props: domain.Props{PageID: "p7"}}
	h := newHarness(t, linked)

	require.NoError(t, h.ed.SetType(context.Background(), editor.Top("b1"), domain.BlockTypePage))
	assert.Empty(t, h.backend.newPage)
	assert.Equal(t, editor.RenderPageLink, h.view("b1").Kind)
}

func TestResolveLinks_CachesTitlesAndFallsBack(t *testing.T) {
	known := domain.Block{ID: "l1", Type: domain.BlockTypePage, Position: 0, Props: domain.Props{PageID: "p2"}}
	missing := domain.Block{ID: "l2", Type: domain.BlockTypePage, Position: 1, Props: domain.Props{PageID: "p3"}}
	h := newHarness(t, known, missing)
	h.backend.set(func(f *fakeBackend) {
		f.pages["p2"] = &domain.Page{ID: "p2", Title: "Roadmap", Icon: domain.StringPtr("🗺️")}
	})

	before := h.view("l1")
	require.NotNil(t, before.Link)
	assert.Equal(t, domain.DefaultPageTitle, before.Link.Title)
	assert.False(t, before.Link.Resolved)

	h.ed.ResolveLinks(context.Background())

	v := h.view("l1")
	assert.Equal(t, "Roadmap", v.Link.Title)
	assert.Equal(t, "🗺️", v.Link.Icon)
	assert.True(t, v.Link.Resolved)

	v = h.view("l2")
	assert.Equal(t, domain.DefaultPageTitle, v.Link.Title)
	assert.Equal(t, domain.PageLinkDefaultEmoji, v.Link.Icon)
	assert.False(t, v.Link.Resolved)

	assert.Equal(t, 2, h.events.Count(service.EventLinkResolved))
	h.ed.ResolveLinks(context.Background())
	assert.Equal(t, 2, h.events.Count(service.EventLinkResolved), "resolved once per page")
}
