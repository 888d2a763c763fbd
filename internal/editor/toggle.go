package editor

import (
	"strings"

	"github.com/google/uuid"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Toggle sub-editor
// ─────────────────────────────────────────────────────────────

// toggleState is the private sub-editor of one toggle block. The children
// themselves live in the parent's draft props; each childState carries the
// child's own draft and debounce.
type toggleState struct {
	children []*childState
	drag     DragState
	// migrated guards the legacy content migration, once per instance.
	migrated bool
	// seeded guards the expansion invariant; collapsing resets it.
	seeded bool
}

type childState struct {
	// remote is the value currently folded into the parent's props.
	remote domain.SubBlock
	draft  draft
}

func (cs *childState) id() domain.ID { return cs.remote.ID }

func (cs *childState) clean() bool {
	return subOf(cs.remote.ID, cs.remote.Position, cs.draft).Equal(cs.remote)
}

func childDraftOf(s domain.SubBlock) draft {
	return draft{
		Type:    s.Type.BlockType(),
		Content: s.Content,
		Props:   domain.Props{Style: s.Props.Style, Emoji: s.Props.Emoji, Extra: s.Props.Clone().Extra},
	}
}

func subOf(id domain.ID, pos int, d draft) domain.SubBlock {
	st, ok := domain.SubBlockTypeOf(d.Type)
	if !ok {
		st = domain.SubBlockText
	}
	extra := d.Props.Clone().Extra
	return domain.SubBlock{
		ID:       id,
		Type:     st,
		Content:  d.Content,
		Position: pos,
		Props:    domain.SubProps{Style: d.Props.Style, Emoji: d.Props.Emoji, Extra: extra},
	}
}

func newChild(t domain.SubBlockType, content string) domain.SubBlock {
	return domain.SubBlock{
		ID:      domain.ID(uuid.New().String()),
		Type:    t,
		Content: content,
	}
}

func childKeyPrefix(parent domain.ID) string { return "child:" + parent.String() + "/" }

func childKey(parent, child domain.ID) string { return childKeyPrefix(parent) + child.String() }

func (ts *toggleState) find(id domain.ID) (int, *childState) {
	for i, cs := range ts.children {
		if cs.id() == id {
			return i, cs
		}
	}
	return -1, nil
}

// initToggleLocked attaches a sub-editor to a toggle block, migrating
// legacy multi-line content and applying the expansion invariant.
func (e *Editor) initToggleLocked(bs *blockState) {
	if bs.toggle == nil {
		bs.toggle = &toggleState{}
	}
	ts := bs.toggle
	e.adoptChildrenLocked(bs)

	if !ts.migrated {
		ts.migrated = true
		if bs.draft.Props.Children == nil {
			if first, rest, ok := strings.Cut(bs.draft.Content, "\n"); ok {
				bs.draft.Content = first
				var children []domain.SubBlock
				if rest != "" {
					children = append(children, newChild(domain.SubBlockText, rest))
				}
				e.setChildrenLocked(bs, children)
			}
		}
	}
	e.ensureExpandedLocked(bs)
}

// detachToggleLocked drops the sub-editor when a block stops being a
// toggle. Pending child edits are folded first so nothing is lost.
func (e *Editor) detachToggleLocked(bs *blockState) {
	if bs.toggle == nil {
		return
	}
	e.foldChildrenLocked(bs)
	e.timers.CancelPrefix(childKeyPrefix(bs.remote.ID))
	bs.toggle = nil
}

// ensureExpandedLocked creates one empty child when the toggle is expanded
// and has none, at most once per expansion.
func (e *Editor) ensureExpandedLocked(bs *blockState) {
	ts := bs.toggle
	if ts == nil {
		return
	}
	tog := bs.draft.Props.Toggle()
	if tog.Collapsed {
		ts.seeded = false
		return
	}
	if len(tog.Children) > 0 || ts.seeded {
		return
	}
	ts.seeded = true
	e.setChildrenLocked(bs, []domain.SubBlock{newChild(domain.SubBlockText, "")})
}

// adoptChildrenLocked rebuilds child states from the parent's draft props.
// Children with unfolded edits keep their drafts.
func (e *Editor) adoptChildrenLocked(bs *blockState) {
	ts := bs.toggle
	if ts == nil {
		return
	}
	list, changed := domain.EnsureChildIDs(bs.remote.ID, bs.draft.Props.Children)
	if changed {
		bs.draft.Props.Children = list
	}
	list = domain.CloneSubBlocks(list)
	domain.SortSubBlocks(list)

	prev := make(map[domain.ID]*childState, len(ts.children))
	for _, cs := range ts.children {
		prev[cs.id()] = cs
	}
	next := make([]*childState, 0, len(list))
	for _, s := range list {
		if cs, ok := prev[s.ID]; ok {
			delete(prev, s.ID)
			wasClean := cs.clean()
			cs.remote = s
			if wasClean {
				cs.draft = childDraftOf(s)
			}
			next = append(next, cs)
			continue
		}
		next = append(next, &childState{remote: s, draft: childDraftOf(s)})
	}
	for id := range prev {
		e.timers.Cancel(childKey(bs.remote.ID, id))
	}
	ts.children = next
}

// setChildrenLocked is the single entry point for structural changes:
// it renumbers list to 0..n-1, stores it in the parent's draft props and
// lets the parent's own debounce write it.
func (e *Editor) setChildrenLocked(bs *blockState, list []domain.SubBlock) {
	out := make([]domain.SubBlock, len(list))
	for i, s := range list {
		s = s.Clone()
		s.Position = i
		out[i] = s
	}
	bs.draft.Props.Children = out
	e.adoptChildrenLocked(bs)
	e.touchLocked(bs)
}

// currentChildren returns the folded children, substituting the drafts of
// the children in fold.
func (ts *toggleState) currentChildren(fold func(cs *childState) bool) []domain.SubBlock {
	out := make([]domain.SubBlock, 0, len(ts.children))
	for _, cs := range ts.children {
		if fold(cs) {
			out = append(out, subOf(cs.id(), cs.remote.Position, cs.draft))
		} else {
			out = append(out, cs.remote.Clone())
		}
	}
	return out
}

// foldChildrenLocked writes every pending child draft into the parent.
func (e *Editor) foldChildrenLocked(bs *blockState) {
	ts := bs.toggle
	if ts == nil {
		return
	}
	dirty := false
	for _, cs := range ts.children {
		e.timers.Cancel(childKey(bs.remote.ID, cs.id()))
		if !cs.clean() {
			dirty = true
		}
	}
	if dirty {
		e.setChildrenLocked(bs, ts.currentChildren(func(*childState) bool { return true }))
	}
}

// touchChildLocked arms the child's own quiet period.
func (e *Editor) touchChildLocked(bs *blockState, cs *childState) {
	parent, child := bs.remote.ID, cs.id()
	key := childKey(parent, child)
	if cs.clean() {
		e.timers.Cancel(key)
		return
	}
	gen := e.gen
	e.timers.Schedule(key, e.opts.ChildDebounce, func() { e.fireChild(parent, child, gen) })
}

// fireChild folds one child's draft into the parent. No network call is
// made here; the parent's debounce does the write.
func (e *Editor) fireChild(parent, child domain.ID, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bs := e.liveLocked(parent, gen)
	if bs == nil || bs.toggle == nil {
		return
	}
	_, cs := bs.toggle.find(child)
	if cs == nil || cs.clean() {
		return
	}
	e.setChildrenLocked(bs, bs.toggle.currentChildren(func(c *childState) bool { return c == cs }))
}

// ── child structure ────────────────────────────────────────

func (e *Editor) toggleOfLocked(parent domain.ID) (*blockState, error) {
	if !e.open {
		return nil, ErrNotOpen
	}
	bs := e.index[parent]
	if bs == nil || bs.toggle == nil {
		return nil, ErrUnknownBlock
	}
	return bs, nil
}

// foldedChildren folds every pending draft and returns the children with
// their timers cancelled.
func (e *Editor) foldedChildren(bs *blockState) []domain.SubBlock {
	for _, cs := range bs.toggle.children {
		e.timers.Cancel(childKey(bs.remote.ID, cs.id()))
	}
	return bs.toggle.currentChildren(func(*childState) bool { return true })
}

func (e *Editor) insertChildLocked(parent, after domain.ID, s domain.SubBlock) (Ref, error) {
	bs, err := e.toggleOfLocked(parent)
	if err != nil {
		return Ref{}, err
	}
	i, cs := bs.toggle.find(after)
	if cs == nil {
		return Ref{}, ErrUnknownBlock
	}
	list := e.foldedChildren(bs)
	list = append(list, domain.SubBlock{})
	copy(list[i+2:], list[i+1:])
	list[i+1] = s
	e.setChildrenLocked(bs, list)
	ref := Nested(parent, s.ID)
	e.focused = ref
	return ref, nil
}

func (e *Editor) insertChildBelowLocked(parent, after domain.ID) (Ref, error) {
	return e.insertChildLocked(parent, after, newChild(domain.SubBlockText, ""))
}

func (e *Editor) duplicateChildLocked(parent, id domain.ID) (Ref, error) {
	bs, err := e.toggleOfLocked(parent)
	if err != nil {
		return Ref{}, err
	}
	_, cs := bs.toggle.find(id)
	if cs == nil {
		return Ref{}, ErrUnknownBlock
	}
	dup := subOf(domain.ID(uuid.New().String()), 0, cs.draft)
	return e.insertChildLocked(parent, id, dup)
}

func (e *Editor) deleteChildLocked(parent, id domain.ID) error {
	bs, err := e.toggleOfLocked(parent)
	if err != nil {
		return err
	}
	i, cs := bs.toggle.find(id)
	if cs == nil {
		return ErrUnknownBlock
	}
	list := e.foldedChildren(bs)
	list = append(list[:i], list[i+1:]...)
	e.setChildrenLocked(bs, list)
	if e.focused == Nested(parent, id) {
		e.focused = Ref{}
	}
	if e.overlay.ref == Nested(parent, id) {
		e.overlay = overlayState{}
	}
	e.ensureExpandedLocked(bs)
	return nil
}

// SetCollapsed expands or collapses a toggle.
func (e *Editor) SetCollapsed(id domain.ID, collapsed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	bs, err := e.toggleOfLocked(id)
	if err != nil {
		return err
	}
	bs.draft.Props.Collapsed = domain.BoolPtr(collapsed)
	e.touchLocked(bs)
	e.ensureExpandedLocked(bs)
	return nil
}

// withChildIDs repairs children stored without a usable id, so every nested
// draft is addressable on its own.
func withChildIDs(b domain.Block) domain.Block {
	if children, changed := domain.EnsureChildIDs(b.ID, b.Props.Children); changed {
		b.Props = b.Props.Clone()
		b.Props.Children = children
	}
	return b
}
