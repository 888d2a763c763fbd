package app

// ─────────────────────────────────────────────────────────────
// Page Handlers: the page tree and the page open in the editor
// ─────────────────────────────────────────────────────────────

import (
	"context"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
	"blocknotes/internal/service"
)

// ── Page tree ──────────────────────────────────────────────

// ListPages returns the root pages, or the pages under parentID.
func (a *App) ListPages(parentID string) ([]domain.Page, error) {
	var parent *domain.ID
	if parentID != "" {
		id := domain.ID(parentID)
		parent = &id
	}
	return a.kb.ListPages(a.ctx, parent)
}

// CreatePage creates a page under parentID (root when empty).
func (a *App) CreatePage(title, parentID string) (*domain.Page, error) {
	in := domain.PageInput{Title: title}
	if parentID != "" {
		id := domain.ID(parentID)
		in.ParentID = &id
	}
	return a.kb.CreatePage(a.ctx, in)
}

// DeletePage removes a page. Deleting the open page closes it first.
func (a *App) DeletePage(id string) error {
	if a.editor.PageID() == domain.ID(id) {
		a.cancelResolve()
		if err := a.editor.Close(a.ctx); err != nil {
			a.log.Warn().Err(err).Str("pageId", id).Msg("flush before delete failed")
		}
	}
	return a.kb.DeletePage(a.ctx, domain.ID(id))
}

// ── Open page ──────────────────────────────────────────────

// OpenPage loads a page into the editor. Titles of linked pages are
// resolved in the background and arrive as block:link-resolved events.
func (a *App) OpenPage(id string) (editor.PageView, error) {
	a.cancelResolve()
	view, err := a.editor.Open(a.ctx, domain.ID(id))
	if err != nil {
		a.log.Error().Err(err).Str("pageId", id).Msg("open page failed")
		a.Emit(a.ctx, service.EventPageError, map[string]string{"pageId": id, "message": err.Error()})
		return editor.PageView{}, err
	}

	a.resolveInBackground()
	return view, nil
}

// ClosePage flushes pending edits and closes the open page.
func (a *App) ClosePage() error {
	a.cancelResolve()
	return a.editor.Close(a.ctx)
}

// RefreshPage refetches the open page, keeping unsaved drafts. Links new
// to the page are resolved in the background like on open.
func (a *App) RefreshPage() (editor.PageView, error) {
	view, err := a.editor.Refresh(a.ctx)
	if err != nil {
		return view, err
	}
	a.resolveInBackground()
	return view, nil
}

// FlushPage writes every dirty block now.
func (a *App) FlushPage() error {
	return a.editor.Flush(a.ctx)
}

// PageView returns the current render model.
func (a *App) PageView() editor.PageView {
	return a.editor.View()
}

// RenamePage sets the open page's title.
func (a *App) RenamePage(title string) (editor.PageView, error) {
	if err := a.editor.RenamePage(a.ctx, title); err != nil {
		return editor.PageView{}, err
	}
	return a.editor.View(), nil
}

// SetPageIcon sets the open page's icon.
func (a *App) SetPageIcon(icon string) (editor.PageView, error) {
	if err := a.editor.SetPageIcon(a.ctx, icon); err != nil {
		return editor.PageView{}, err
	}
	return a.editor.View(), nil
}

// resolveInBackground starts title resolution for the open page's links,
// replacing any resolution still running.
func (a *App) resolveInBackground() {
	ctx, cancel := context.WithCancel(a.ctx)
	a.resolveMu.Lock()
	if a.resolving != nil {
		a.resolving()
	}
	a.resolving = cancel
	a.resolveMu.Unlock()
	go a.editor.ResolveLinks(ctx)
}

func (a *App) cancelResolve() {
	a.resolveMu.Lock()
	defer a.resolveMu.Unlock()
	if a.resolving != nil {
		a.resolving()
		a.resolving = nil
	}
}
