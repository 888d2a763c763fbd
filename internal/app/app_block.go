package app

import (
	"fmt"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
)

// ============================================================
// Blocks
// ============================================================
//
// Every mutating binding returns the fresh PageView so the frontend can
// re-render from a single source of truth.

func (a *App) viewAfter(err error) (editor.PageView, error) {
	if err != nil {
		return editor.PageView{}, err
	}
	return a.editor.View(), nil
}

// ── Content ────────────────────────────────────────────────

func (a *App) EditContent(ref editor.Ref, content string) (editor.PageView, error) {
	return a.viewAfter(a.editor.EditContent(ref, content))
}

func (a *App) SetTodoText(ref editor.Ref, text string) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetTodoText(ref, text))
}

func (a *App) SetChecked(ref editor.Ref, checked bool) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetChecked(ref, checked))
}

func (a *App) SetTextColor(ref editor.Ref, color string) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetTextColor(ref, color))
}

func (a *App) SetBgColor(ref editor.Ref, color string) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetBgColor(ref, color))
}

func (a *App) ApplyLastColor(ref editor.Ref) (editor.PageView, error) {
	return a.viewAfter(a.editor.ApplyLastColor(ref))
}

func (a *App) SetEmoji(ref editor.Ref, emoji string) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetEmoji(ref, emoji))
}

func (a *App) SetBlockType(ref editor.Ref, blockType string) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetType(a.ctx, ref, domain.BlockType(blockType)))
}

func (a *App) SetCollapsed(blockID string, collapsed bool) (editor.PageView, error) {
	return a.viewAfter(a.editor.SetCollapsed(domain.ID(blockID), collapsed))
}

func (a *App) FocusBlock(ref editor.Ref) editor.PageView {
	a.editor.Focus(ref)
	return a.editor.View()
}

func (a *App) BlurBlock(ref editor.Ref) editor.PageView {
	a.editor.Blur(ref)
	return a.editor.View()
}

// KeyDown runs the keyboard machine; the frontend suppresses the default
// action when the result is handled.
func (a *App) KeyDown(ref editor.Ref, key editor.Key) (editor.KeyResult, error) {
	return a.editor.KeyDown(a.ctx, ref, key)
}

// ── Structure ──────────────────────────────────────────────

func (a *App) InsertBlockBelow(ref editor.Ref) (editor.Ref, error) {
	return a.editor.InsertBelow(a.ctx, ref)
}

func (a *App) AppendBlock() (editor.Ref, error) {
	return a.editor.Append(a.ctx)
}

func (a *App) DuplicateBlock(ref editor.Ref) (editor.Ref, error) {
	return a.editor.Duplicate(a.ctx, ref)
}

func (a *App) DeleteBlock(ref editor.Ref) (editor.PageView, error) {
	return a.viewAfter(a.editor.Delete(a.ctx, ref))
}

// ── Overlays ───────────────────────────────────────────────

func (a *App) OpenOverlay(ref editor.Ref, kind string) (editor.PageView, error) {
	o, ok := editor.ParseOverlay(kind)
	if !ok {
		return editor.PageView{}, fmt.Errorf("unknown overlay %q", kind)
	}
	return a.viewAfter(a.editor.OpenOverlay(ref, o))
}

func (a *App) DismissOverlays() editor.PageView {
	a.editor.DismissOverlays()
	return a.editor.View()
}

func (a *App) TypeMenu(ref editor.Ref) []domain.BlockType {
	return a.editor.TypeMenu(ref)
}

// ── Drag and drop ──────────────────────────────────────────

// DragStart returns the payload the frontend puts on the drag transfer.
func (a *App) DragStart(ref editor.Ref) (string, error) {
	return a.editor.DragStart(ref)
}

func (a *App) DragOver(ref editor.Ref) editor.PageView {
	a.editor.DragOver(ref)
	return a.editor.View()
}

func (a *App) DragEnd() editor.PageView {
	a.editor.DragEnd()
	return a.editor.View()
}

func (a *App) Drop(target editor.Ref) (editor.PageView, error) {
	return a.viewAfter(a.editor.Drop(a.ctx, target))
}
