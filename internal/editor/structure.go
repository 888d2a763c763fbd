package editor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Structural operations: insert, duplicate, delete
// ─────────────────────────────────────────────────────────────

// InsertBelow creates an empty text block (or child) right after ref and
// focuses it.
func (e *Editor) InsertBelow(ctx context.Context, ref Ref) (Ref, error) {
	e.mu.Lock()
	if ref.IsChild() {
		defer e.mu.Unlock()
		return e.insertChildBelowLocked(ref.Block, ref.Child)
	}
	bs, err := e.blockLocked(ref.Block)
	if err != nil {
		e.mu.Unlock()
		return Ref{}, err
	}
	in := domain.BlockInput{Type: domain.BlockTypeText, Position: bs.remote.Position + 1}
	e.mu.Unlock()
	return e.createBlock(ctx, ref.Block, in)
}

// Append creates an empty text block at the end of the page. It is also
// how the first block of an empty page is made.
func (e *Editor) Append(ctx context.Context) (Ref, error) {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return Ref{}, ErrNotOpen
	}
	in := domain.BlockInput{Type: domain.BlockTypeText}
	if n := len(e.blocks); n > 0 {
		in.Position = e.blocks[n-1].remote.Position + 1
	}
	e.mu.Unlock()
	return e.createBlock(ctx, "", in)
}

// Duplicate copies ref's current draft right below it. A duplicated toggle
// gets fresh ids for its children.
func (e *Editor) Duplicate(ctx context.Context, ref Ref) (Ref, error) {
	e.mu.Lock()
	if ref.IsChild() {
		defer e.mu.Unlock()
		return e.duplicateChildLocked(ref.Block, ref.Child)
	}
	bs, err := e.blockLocked(ref.Block)
	if err != nil {
		e.mu.Unlock()
		return Ref{}, err
	}
	if bs.toggle != nil {
		e.foldChildrenLocked(bs)
	}
	d := bs.draft.clone()
	if d.Props.Children != nil {
		for i := range d.Props.Children {
			d.Props.Children[i].ID = domain.ID(uuid.New().String())
		}
	}
	in := domain.BlockInput{Type: d.Type, Content: d.Content, Props: d.Props, Position: bs.remote.Position + 1}
	e.mu.Unlock()
	return e.createBlock(ctx, ref.Block, in)
}

// Delete removes a block remotely, then locally. A child is removed from
// its toggle and written through the parent.
func (e *Editor) Delete(ctx context.Context, ref Ref) error {
	e.mu.Lock()
	if ref.IsChild() {
		defer e.mu.Unlock()
		return e.deleteChildLocked(ref.Block, ref.Child)
	}
	if _, err := e.blockLocked(ref.Block); err != nil {
		e.mu.Unlock()
		return err
	}
	gen := e.gen
	e.mu.Unlock()

	if err := e.backend.DeleteBlock(ctx, ref.Block); err != nil {
		e.log.Error().Err(err).Str("blockId", ref.Block.String()).Msg("delete block failed")
		return fmt.Errorf("delete block: %w", err)
	}

	e.mu.Lock()
	if bs := e.liveLocked(ref.Block, gen); bs != nil {
		e.removeLocked(bs)
	}
	e.mu.Unlock()
	e.emitter.Emit(e.ctx, service.EventBlocksChanged, ref.Block)
	return nil
}

func (e *Editor) blockLocked(id domain.ID) (*blockState, error) {
	if !e.open {
		return nil, ErrNotOpen
	}
	bs := e.index[id]
	if bs == nil {
		return nil, ErrUnknownBlock
	}
	return bs, nil
}

// createBlock creates a block remotely and mounts it after the block
// after (at the end when after is empty). Blocks below are renumbered so
// the new block sits exactly where it was inserted.
func (e *Editor) createBlock(ctx context.Context, after domain.ID, in domain.BlockInput) (Ref, error) {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return Ref{}, ErrNotOpen
	}
	pageID, gen := e.page.ID, e.gen
	e.mu.Unlock()

	created, err := e.backend.CreateBlock(ctx, pageID, in)
	if err != nil {
		e.log.Error().Err(err).Str("pageId", pageID.String()).Msg("create block failed")
		return Ref{}, fmt.Errorf("create block: %w", err)
	}
	ref := Top(created.ID)

	e.mu.Lock()
	if !e.open || e.gen != gen {
		e.mu.Unlock()
		return ref, nil
	}
	b := domain.NormalizeBlock(*created)
	if b.PageID.IsZero() {
		b.PageID = pageID
	}
	at := len(e.blocks)
	if !after.IsZero() {
		if i := e.indexOfLocked(after); i >= 0 {
			at = i + 1
		}
	}
	e.insertAtLocked(at, e.mountLocked(b))
	e.focused = ref
	moves := e.renumberLocked()
	e.mu.Unlock()

	e.emitter.Emit(e.ctx, service.EventBlocksChanged, created.ID)
	if err := e.persistPositions(ctx, moves); err != nil {
		return ref, err
	}
	return ref, nil
}
