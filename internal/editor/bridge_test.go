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

func TestBridge_RapidEditsCoalesce(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "hello"))
	ref := editor.Top("b1")

	require.NoError(t, h.ed.EditContent(ref, "h"))
	h.clock.Advance(200 * time.Millisecond)
	require.NoError(t, h.ed.EditContent(ref, "hi"))
	h.clock.Advance(200 * time.Millisecond)
	require.NoError(t, h.ed.EditContent(ref, "hi there"))

	h.clock.Advance(quiet - time.Millisecond)
	assert.Empty(t, h.backend.Updates(), "quiet period restarts on every edit")
	assert.True(t, h.view("b1").Unsaved)

	h.clock.Advance(time.Millisecond)
	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Patch.Content)
	assert.Equal(t, "hi there", *updates[0].Patch.Content)

	v := h.view("b1")
	assert.False(t, v.Unsaved)
	assert.Equal(t, "hi there", v.Content)
	assert.Equal(t, 1, h.events.Count(service.EventBlocksChanged))
}

func TestBridge_RevertCancelsPendingWrite(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "hello"))
	ref := editor.Top("b1")

	require.NoError(t, h.ed.EditContent(ref, "hello!"))
	h.clock.Advance(100 * time.Millisecond)
	require.NoError(t, h.ed.EditContent(ref, "hello"))

	h.clock.Advance(time.Second)
	assert.Empty(t, h.backend.Updates())
	assert.Zero(t, h.clock.Scheduled())
	assert.False(t, h.view("b1").Unsaved)
}

func TestBridge_LoadDoesNotWrite(t *testing.T) {
	legacy := domain.Block{ID: "b1", Content: "", Position: 0}
	h := newHarness(t, legacy, textBlock("b2", 1, "x"))

	v := h.view("b1")
	assert.Equal(t, domain.BlockTypeText, v.Type)
	assert.False(t, v.Unsaved)

	h.clock.Advance(time.Second)
	assert.Empty(t, h.backend.Updates())
}

func TestBridge_FailureKeepsDraftAndFlushRetries(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "hello"))
	h.backend.set(func(f *fakeBackend) { f.failUpdate = errors.New("Failed to save") })

	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "hello world"))
	h.clock.Advance(quiet)

	require.Len(t, h.backend.Updates(), 1)
	v := h.view("b1")
	assert.Equal(t, "hello world", v.Content, "draft survives a failed save")
	assert.Equal(t, "Failed to save", v.SaveError)
	assert.True(t, v.Unsaved)

	require.Equal(t, 1, h.events.Count(service.EventBlockSaveFail))
	for _, ev := range h.events.Snapshot() {
		if ev.Event == service.EventBlockSaveFail {
			assert.Equal(t, editor.SaveFailure{BlockID: "b1", Message: "Failed to save"}, ev.Data)
		}
	}

	h.backend.set(func(f *fakeBackend) { f.failUpdate = nil })
	require.NoError(t, h.ed.Flush(context.Background()))

	require.Len(t, h.backend.Updates(), 2)
	assert.Equal(t, "hello world", h.backend.block("b1").Content)
	v = h.view("b1")
	assert.Empty(t, v.SaveError)
	assert.False(t, v.Unsaved)
}

func TestBridge_EditDuringWriteIsDeferred(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, ""))
	gate, started := make(chan struct{}), make(chan struct{})
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = gate, started })
	ref := editor.Top("b1")

	require.NoError(t, h.ed.EditContent(ref, "a"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.clock.Advance(quiet)
	}()
	<-started

	// The second quiet period elapses while the first write is held.
	require.NoError(t, h.ed.EditContent(ref, "ab"))
	h.clock.Advance(quiet)

	gate <- struct{}{}
	<-done
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = nil, nil })

	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "a", *updates[0].Patch.Content)
	assert.Equal(t, "ab", h.view("b1").Content, "reply of an older write must not clobber newer edits")

	h.clock.Advance(quiet)
	updates = h.backend.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "ab", *updates[1].Patch.Content)
	assert.Equal(t, 1, h.backend.maxActive)
	assert.False(t, h.view("b1").Unsaved)
}

func TestBridge_CloseFlushes(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "hello"))
	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "bye"))

	require.NoError(t, h.ed.Close(context.Background()))

	require.Len(t, h.backend.Updates(), 1)
	assert.Equal(t, "bye", h.backend.block("b1").Content)
	assert.Zero(t, h.clock.Scheduled())
	assert.Empty(t, h.ed.View().Blocks)
	assert.Equal(t, domain.ID(""), h.ed.PageID())

	assert.ErrorIs(t, h.ed.EditContent(editor.Top("b1"), "x"), editor.ErrNotOpen)
}

func TestBridge_CloseWaitsForRunningWrite(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, ""))
	gate, started := make(chan struct{}), make(chan struct{})
	h.backend.set(func(f *fakeBackend) { f.gate, f.started = gate, started })
	ref := editor.Top("b1")

	require.NoError(t, h.ed.EditContent(ref, "a"))
	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		h.clock.Advance(quiet)
	}()
	<-started

	// Edited while "a" is on the wire, then closed before its timer runs.
	require.NoError(t, h.ed.EditContent(ref, "ab"))
	closed := make(chan error, 1)
	go func() { closed <- h.ed.Close(context.Background()) }()

	gate <- struct{}{}
	<-advanced
	<-started
	gate <- struct{}{}
	require.NoError(t, <-closed)

	updates := h.backend.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "a", *updates[0].Patch.Content)
	assert.Equal(t, "ab", *updates[1].Patch.Content)
	assert.Equal(t, "ab", h.backend.block("b1").Content)
	assert.Equal(t, 1, h.backend.maxActive)
	assert.Zero(t, h.clock.Scheduled())
}

func TestBridge_RefreshKeepsDirtyDrafts(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "one"), textBlock("b2", 1, "two"))
	require.NoError(t, h.ed.EditContent(editor.Top("b1"), "local"))

	h.backend.set(func(f *fakeBackend) {
		f.blocks["b1"].Content = "server"
		f.blocks["b2"].Content = "server two"
	})
	_, err := h.ed.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "local", h.view("b1").Content)
	assert.Equal(t, "server two", h.view("b2").Content)

	h.clock.Advance(quiet)
	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ID("b1"), updates[0].ID)
	assert.Equal(t, "local", *updates[0].Patch.Content)
}

func TestBridge_ColorsRememberLastPick(t *testing.T) {
	h := newHarness(t, textBlock("b1", 0, "x"))
	ref := editor.Top("b1")

	require.NoError(t, h.ed.SetTextColor(ref, "#f00"))
	require.NoError(t, h.ed.SetBgColor(ref, "#0f0"))
	require.NoError(t, h.ed.SetTextColor(ref, ""))
	require.NoError(t, h.ed.SetBgColor(ref, ""))
	assert.Empty(t, h.view("b1").TextColor)

	require.NoError(t, h.ed.ApplyLastColor(ref))
	v := h.view("b1")
	assert.Equal(t, "#f00", v.TextColor)
	assert.Equal(t, "#0f0", v.BgColor)

	h.clock.Advance(quiet)
	props := h.backend.block("b1").Props
	assert.Equal(t, "#f00", props.LastText)
	assert.Equal(t, "#0f0", props.LastBg)
}

func TestEditor_RenamePageEmits(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ed.RenamePage(context.Background(), "Journal"))
	require.NoError(t, h.ed.SetPageIcon(context.Background(), "📓"))

	page := h.ed.View().Page
	assert.Equal(t, "Journal", page.Title)
	assert.Equal(t, "📓", page.DisplayIcon())
	assert.Equal(t, 2, h.events.Count(service.EventPageChanged))
}

func TestBridge_PageBlockFieldCanBeCleared(t *testing.T) {
	linked := domain.Block{ID: "l1", Type: domain.BlockTypePage, Content: "Roadmap", Props: domain.Props{
		Style:  domain.Style{TextColor: "#f00", LastText: "#f00"},
		PageID: "px",
		Emoji:  "📄",
	}}
	h := newHarness(t, linked)

	require.NoError(t, h.ed.SetTextColor(editor.Top("l1"), ""))
	h.clock.Advance(quiet)

	updates := h.backend.Updates()
	require.Len(t, updates, 1)
	sent := updates[0].Patch.Props
	assert.Equal(t, "", sent.TextColor)
	assert.Equal(t, domain.ID("px"), sent.PageID)
	stored := h.backend.block("l1")
	assert.Equal(t, "", stored.Props.TextColor)
	assert.Equal(t, "#f00", stored.Props.LastText)
	assert.False(t, h.view("l1").Unsaved)
}
