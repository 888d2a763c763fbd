package editor

import (
	"context"
	"errors"
	"fmt"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Debounced persistence bridge
// ─────────────────────────────────────────────────────────────

// draft is the locally edited part of a block or child.
type draft struct {
	Type    domain.BlockType
	Content string
	Props   domain.Props
}

func draftOf(b domain.Block) draft {
	return draft{Type: b.Type, Content: b.Content, Props: b.Props.Clone()}
}

func (d draft) clone() draft {
	d.Props = d.Props.Clone()
	return d
}

func (d draft) equal(b domain.Block) bool {
	return d.Type == b.Type && d.Content == b.Content && d.Props.Equal(b.Props)
}

// blockState is one mounted top-level block.
type blockState struct {
	// remote is the last record confirmed by the server. Its Position is
	// the local ordering key.
	remote domain.Block
	draft  draft
	// rev counts local edits; a write remembers the rev it dispatched.
	rev      uint64
	inFlight bool
	// done is closed when the running write returns.
	done chan struct{}
	// deferred is set when the timer fired while a write was running.
	deferred bool
	saveErr  error
	toggle   *toggleState
}

func (bs *blockState) dirty() bool {
	return bs.inFlight || !bs.draft.equal(bs.remote)
}

func blockKey(id domain.ID) string { return "block:" + id.String() }

func (e *Editor) mountLocked(b domain.Block) *blockState {
	b = withChildIDs(b)
	bs := &blockState{remote: b, draft: draftOf(b)}
	if b.Type == domain.BlockTypeToggle {
		e.initToggleLocked(bs)
	}
	return bs
}

func (e *Editor) unmountLocked(bs *blockState) {
	id := bs.remote.ID
	e.timers.Cancel(blockKey(id))
	e.timers.CancelPrefix(childKeyPrefix(id))
	if e.index[id] == bs {
		delete(e.index, id)
	}
	if e.focused.Block == id {
		e.focused = Ref{}
	}
	if e.overlay.ref.Block == id {
		e.overlay = overlayState{}
	}
	if e.drag.DraggingID == id || e.drag.OverID == id {
		e.drag = DragState{}
	}
}

// liveLocked returns the mounted state for id if the page generation is
// still gen; async completions use it before touching state.
func (e *Editor) liveLocked(id domain.ID, gen uint64) *blockState {
	if !e.open || e.gen != gen {
		return nil
	}
	return e.index[id]
}

// touchLocked runs after every local edit of bs: a draft that differs from
// the remote record re-arms the quiet period, an equal one cancels it.
func (e *Editor) touchLocked(bs *blockState) {
	bs.rev++
	e.armLocked(bs)
}

func (e *Editor) armLocked(bs *blockState) {
	id := bs.remote.ID
	if bs.draft.equal(bs.remote) {
		e.timers.Cancel(blockKey(id))
		return
	}
	gen := e.gen
	e.timers.Schedule(blockKey(id), e.opts.BlockDebounce, func() { e.fire(id, gen) })
}

func (e *Editor) fire(id domain.ID, gen uint64) {
	e.mu.Lock()
	bs := e.liveLocked(id, gen)
	if bs == nil {
		e.mu.Unlock()
		return
	}
	job, ok := e.beginWriteLocked(bs)
	e.mu.Unlock()
	if ok {
		_ = e.runWrite(e.ctx, job)
	}
}

type writeJob struct {
	bs    *blockState
	id    domain.ID
	gen   uint64
	rev   uint64
	patch domain.BlockPatch
}

// beginWriteLocked claims the single write slot of bs. A block with a
// write or a page-link creation already running is deferred instead.
func (e *Editor) beginWriteLocked(bs *blockState) (writeJob, bool) {
	id := bs.remote.ID
	if bs.inFlight || e.linking.Running(id.String()) {
		bs.deferred = true
		return writeJob{}, false
	}
	if bs.draft.equal(bs.remote) {
		return writeJob{}, false
	}

	d := bs.draft.clone()
	props := d.Props
	// A linked page block may have gained its page_id from the link flow
	// after this draft was taken; never send a bag without it.
	if d.Type == domain.BlockTypePage && !bs.remote.Props.PageID.IsZero() {
		props = d.Props.KeepLink(bs.remote.Props)
	}
	bs.inFlight = true
	bs.done = make(chan struct{})
	bs.deferred = false
	return writeJob{
		bs:  bs,
		id:  id,
		gen: e.gen,
		rev: bs.rev,
		patch: domain.BlockPatch{
			Type:    &d.Type,
			Content: &d.Content,
			Props:   &props,
		},
	}, true
}

// runWrite performs one update and reconciles the result.
func (e *Editor) runWrite(ctx context.Context, job writeJob) error {
	res, err := e.backend.UpdateBlock(ctx, job.id, job.patch)

	e.mu.Lock()
	bs := job.bs
	bs.inFlight = false
	close(bs.done)
	if e.liveLocked(job.id, job.gen) != bs {
		e.mu.Unlock()
		return err
	}
	if err != nil {
		bs.saveErr = err
		if bs.deferred {
			bs.deferred = false
			e.armLocked(bs)
		}
		e.mu.Unlock()
		e.log.Warn().Err(err).Str("blockId", job.id.String()).Msg("block save failed")
		e.emitter.Emit(e.ctx, service.EventBlockSaveFail, SaveFailure{BlockID: job.id, Message: err.Error()})
		return fmt.Errorf("save block %s: %w", job.id, err)
	}

	e.reconcileLocked(bs, domain.NormalizeBlock(*res), bs.rev == job.rev)
	bs.deferred = false
	e.armLocked(bs)
	e.mu.Unlock()

	e.emitter.Emit(e.ctx, service.EventBlocksChanged, job.id)
	return nil
}

// reconcileLocked adopts a server record. The draft is reset to it only
// when no edit happened since the write was dispatched.
func (e *Editor) reconcileLocked(bs *blockState, rec domain.Block, resetDraft bool) {
	if rec.PageID.IsZero() {
		rec.PageID = bs.remote.PageID
	}
	rec.Position = bs.remote.Position
	bs.remote = rec
	bs.saveErr = nil
	if resetDraft {
		bs.draft = draftOf(rec)
		e.adoptChildrenLocked(bs)
	}
}

// SaveFailure is the payload of a block:save-failed event.
type SaveFailure struct {
	BlockID domain.ID `json:"blockId"`
	Message string    `json:"message"`
}

// Flush writes every dirty block now instead of waiting for its timer,
// folding pending child edits into their toggles first. Blocks whose last
// write failed are retried once. A write already running or a page link
// being created is waited for, and whatever was edited behind it is
// written afterwards, so nothing dirty is left when Flush returns nil.
func (e *Editor) Flush(ctx context.Context) error {
	var errs []error
	tried := make(map[*blockState]uint64)
	for {
		e.mu.Lock()
		if !e.open {
			e.mu.Unlock()
			break
		}
		for _, bs := range e.blocks {
			if bs.toggle != nil {
				e.foldChildrenLocked(bs)
			}
		}
		var (
			jobs    []writeJob
			waits   []chan struct{}
			linking bool
		)
		for _, bs := range e.blocks {
			id := bs.remote.ID
			e.timers.Cancel(blockKey(id))
			switch {
			case bs.inFlight:
				waits = append(waits, bs.done)
			case e.linking.Running(id.String()):
				linking = true
			default:
				if rev, ok := tried[bs]; ok && rev == bs.rev {
					continue
				}
				if job, ok := e.beginWriteLocked(bs); ok {
					tried[bs] = job.rev
					jobs = append(jobs, job)
				}
			}
		}
		e.mu.Unlock()

		if len(jobs) == 0 && len(waits) == 0 && !linking {
			break
		}
		for _, job := range jobs {
			if err := e.runWrite(ctx, job); err != nil {
				errs = append(errs, err)
			}
		}
		for _, done := range waits {
			select {
			case <-done:
			case <-ctx.Done():
				return errors.Join(append(errs, ctx.Err())...)
			}
		}
		if linking {
			if err := e.linking.WaitAll(ctx); err != nil {
				return errors.Join(append(errs, err)...)
			}
		}
	}
	return errors.Join(errs...)
}
