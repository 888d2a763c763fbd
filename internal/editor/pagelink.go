package editor

import (
	"context"
	"fmt"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Page links: creation flow and title resolution
// ─────────────────────────────────────────────────────────────

// LinkView is the resolved display of a linked page.
type LinkView struct {
	PageID   domain.ID `json:"pageId"`
	Title    string    `json:"title"`
	Icon     string    `json:"icon"`
	Resolved bool      `json:"resolved"`
}

// createLinkedPage creates a child page of the open page and turns block
// id into a link to it, in one update. The block's type stays unchanged
// until both calls succeed.
func (e *Editor) createLinkedPage(ctx context.Context, id domain.ID) error {
	job := id.String()
	if !e.linking.TryLock(job) {
		return ErrLinkInProgress
	}
	defer e.linking.Unlock(job)

	e.mu.Lock()
	bs := e.index[id]
	if !e.open || bs == nil {
		e.mu.Unlock()
		return ErrUnknownBlock
	}
	gen := e.gen
	parent := e.page.ID
	// A pending debounce would race the link write with stale props.
	e.timers.Cancel(blockKey(id))
	rev := bs.rev
	content := bs.draft.Content
	props := bs.draft.Props.Clone()
	e.mu.Unlock()

	page, err := e.backend.CreatePage(ctx, domain.PageInput{
		Title:    domain.DefaultPageTitle,
		Icon:     domain.StringPtr(domain.PageLinkDefaultEmoji),
		ParentID: &parent,
	})
	if err != nil {
		e.log.Error().Err(err).Str("blockId", id.String()).Msg("create linked page failed")
		e.rearm(id, gen)
		return fmt.Errorf("create linked page: %w", err)
	}

	props.PageID = page.ID
	if props.Emoji == "" {
		props.Emoji = domain.PageLinkDefaultEmoji
	}
	t := domain.BlockTypePage
	res, err := e.backend.UpdateBlock(ctx, id, domain.BlockPatch{Type: &t, Content: &content, Props: &props})
	if err != nil {
		e.log.Error().Err(err).Str("blockId", id.String()).Str("pageId", page.ID.String()).Msg("link block to page failed")
		e.rearm(id, gen)
		return fmt.Errorf("link block to page: %w", err)
	}

	e.mu.Lock()
	if bs := e.liveLocked(id, gen); bs != nil {
		rec := domain.NormalizeBlock(*res)
		unchanged := bs.rev == rev
		e.reconcileLocked(bs, rec, unchanged)
		if !unchanged {
			bs.draft.Type = rec.Type
			bs.draft.Props = bs.draft.Props.KeepLink(rec.Props)
		}
		e.detachToggleLocked(bs)
		e.links[page.ID] = LinkView{PageID: page.ID, Title: page.DisplayTitle(), Icon: page.DisplayIcon(), Resolved: true}
		bs.deferred = false
		e.armLocked(bs)
	}
	e.mu.Unlock()

	e.emitter.Emit(e.ctx, service.EventBlocksChanged, id)
	return nil
}

// rearm restarts the debounce of a block whose draft is still dirty.
func (e *Editor) rearm(id domain.ID, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bs := e.liveLocked(id, gen); bs != nil {
		bs.deferred = false
		e.armLocked(bs)
	}
}

// ResolveLinks fetches the title and icon of every linked page not yet in
// the cache. Failures resolve to the fallback display and are not
// returned. Results for a page that was closed meanwhile are dropped.
func (e *Editor) ResolveLinks(ctx context.Context) {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return
	}
	gen := e.gen
	var pending []domain.ID
	seen := make(map[domain.ID]bool)
	for _, bs := range e.blocks {
		if bs.draft.Type != domain.BlockTypePage {
			continue
		}
		link, linked := bs.draft.Props.PageLink()
		if !linked || seen[link.PageID] {
			continue
		}
		seen[link.PageID] = true
		if _, ok := e.links[link.PageID]; !ok {
			pending = append(pending, link.PageID)
		}
	}
	e.mu.Unlock()

	for _, pageID := range pending {
		view := LinkView{PageID: pageID, Title: domain.DefaultPageTitle, Icon: domain.PageLinkDefaultEmoji}
		page, err := e.backend.GetPage(ctx, pageID)
		if err != nil {
			e.log.Debug().Err(err).Str("pageId", pageID.String()).Msg("link title unavailable")
		} else {
			view = LinkView{PageID: pageID, Title: page.DisplayTitle(), Icon: page.DisplayIcon(), Resolved: true}
		}

		e.mu.Lock()
		if !e.open || e.gen != gen {
			e.mu.Unlock()
			return
		}
		e.links[pageID] = view
		e.mu.Unlock()
		e.emitter.Emit(e.ctx, service.EventLinkResolved, view)
	}
}
