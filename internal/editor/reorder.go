package editor

import (
	"context"
	"fmt"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Reorder / drag protocol
// ─────────────────────────────────────────────────────────────

// DragState is the drag in progress over one list.
type DragState struct {
	DraggingID domain.ID `json:"draggingId,omitempty"`
	OverID     domain.ID `json:"overId,omitempty"`
}

// Active reports whether a drag is in progress.
func (s DragState) Active() bool { return !s.DraggingID.IsZero() }

// Reorder returns a copy of items with the element at from moved onto to:
// the source is removed and reinserted at to-1 when it came from above the
// target, at to otherwise. Out-of-range or equal indices return an
// unchanged copy.
func Reorder[T any](items []T, from, to int) []T {
	out := append([]T(nil), items...)
	if from == to || from < 0 || to < 0 || from >= len(out) || to >= len(out) {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	if from < to {
		to--
	}
	out = append(out, moved)
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

// DragStart begins dragging ref and returns the payload to attach to the
// platform drag event.
func (e *Editor) DragStart(ref Ref) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ref.IsChild() {
		bs, err := e.toggleOfLocked(ref.Block)
		if err != nil {
			return "", err
		}
		if _, cs := bs.toggle.find(ref.Child); cs == nil {
			return "", ErrUnknownBlock
		}
		bs.toggle.drag = DragState{DraggingID: ref.Child}
		return ref.Child.String(), nil
	}
	if _, err := e.blockLocked(ref.Block); err != nil {
		return "", err
	}
	e.drag = DragState{DraggingID: ref.Block}
	return ref.Block.String(), nil
}

// DragOver highlights ref as the drop target. It does nothing unless a
// drag is in progress in the same list.
func (e *Editor) DragOver(ref Ref) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ref.IsChild() {
		if bs := e.index[ref.Block]; bs != nil && bs.toggle != nil && bs.toggle.drag.Active() {
			bs.toggle.drag.OverID = ref.Child
		}
		return
	}
	if e.drag.Active() {
		e.drag.OverID = ref.Block
	}
}

// DragEnd clears every drag state, whether or not a drop happened.
func (e *Editor) DragEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag = DragState{}
	for _, bs := range e.blocks {
		if bs.toggle != nil {
			bs.toggle.drag = DragState{}
		}
	}
}

// Drop moves the dragged item onto ref. Top-level blocks are renumbered
// and every position is written sequentially, in order; toggle children
// are folded into the parent and written by its debounce.
func (e *Editor) Drop(ctx context.Context, target Ref) error {
	e.mu.Lock()
	if target.IsChild() {
		defer e.mu.Unlock()
		return e.dropChildLocked(target)
	}
	if !e.open {
		e.mu.Unlock()
		return ErrNotOpen
	}
	source := e.drag.DraggingID
	e.drag = DragState{}
	from, to := e.indexOfLocked(source), e.indexOfLocked(target.Block)
	if from < 0 || to < 0 || from == to {
		e.mu.Unlock()
		return nil
	}
	e.blocks = Reorder(e.blocks, from, to)
	moves := e.renumberAllLocked()
	e.mu.Unlock()

	if err := e.persistPositions(ctx, moves); err != nil {
		return err
	}
	e.emitter.Emit(e.ctx, service.EventBlocksChanged, source)
	return nil
}

func (e *Editor) dropChildLocked(target Ref) error {
	bs, err := e.toggleOfLocked(target.Block)
	if err != nil {
		return err
	}
	ts := bs.toggle
	source := ts.drag.DraggingID
	ts.drag = DragState{}
	from, _ := ts.find(source)
	to, _ := ts.find(target.Child)
	if from < 0 || to < 0 || from == to {
		return nil
	}
	e.setChildrenLocked(bs, Reorder(e.foldedChildren(bs), from, to))
	return nil
}

// ── position persistence ───────────────────────────────────

type positionMove struct {
	id  domain.ID
	pos int
}

// renumberLocked assigns dense positions and returns the blocks whose
// position changed.
func (e *Editor) renumberLocked() []positionMove {
	var moves []positionMove
	for i, bs := range e.blocks {
		if bs.remote.Position != i {
			bs.remote.Position = i
			moves = append(moves, positionMove{id: bs.remote.ID, pos: i})
		}
	}
	return moves
}

// renumberAllLocked assigns dense positions and returns every block.
func (e *Editor) renumberAllLocked() []positionMove {
	moves := make([]positionMove, len(e.blocks))
	for i, bs := range e.blocks {
		bs.remote.Position = i
		moves[i] = positionMove{id: bs.remote.ID, pos: i}
	}
	return moves
}

// persistPositions writes moves one at a time, awaiting each, so the
// server never sees two position writes of one pass race. The first
// failure stops the pass.
func (e *Editor) persistPositions(ctx context.Context, moves []positionMove) error {
	if len(moves) == 0 {
		return nil
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	for _, m := range moves {
		if _, err := e.backend.UpdateBlock(ctx, m.id, domain.PositionPatch(m.pos)); err != nil {
			e.log.Error().Err(err).Str("blockId", m.id.String()).Int("position", m.pos).Msg("persist position failed")
			return fmt.Errorf("persist position of %s: %w", m.id, err)
		}
	}
	return nil
}
