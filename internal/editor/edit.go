package editor

import (
	"context"
	"fmt"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Local edits: every mutation lands in a draft and arms a timer
// ─────────────────────────────────────────────────────────────

// editLocked applies fn to the draft ref points at and re-arms the right
// debounce: the block's for top-level refs, the child's for nested ones.
func (e *Editor) editLocked(ref Ref, fn func(d *draft)) error {
	if !e.open {
		return ErrNotOpen
	}
	bs := e.index[ref.Block]
	if bs == nil {
		return ErrUnknownBlock
	}
	if !ref.IsChild() {
		fn(&bs.draft)
		e.touchLocked(bs)
		return nil
	}
	if bs.toggle == nil {
		return ErrUnknownBlock
	}
	_, cs := bs.toggle.find(ref.Child)
	if cs == nil {
		return ErrUnknownBlock
	}
	fn(&cs.draft)
	e.touchChildLocked(bs, cs)
	return nil
}

func (e *Editor) edit(ref Ref, fn func(d *draft)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editLocked(ref, fn)
}

// EditContent replaces the raw content of a block or child.
func (e *Editor) EditContent(ref Ref, content string) error {
	return e.edit(ref, func(d *draft) { d.Content = content })
}

// SetTodoText replaces the text of a to_do, keeping its checked marker.
func (e *Editor) SetTodoText(ref Ref, text string) error {
	return e.edit(ref, func(d *draft) {
		checked, _ := domain.ParseTodo(d.Content)
		d.Content = domain.FormatTodo(checked, text)
	})
}

// SetChecked ticks or unticks a to_do.
func (e *Editor) SetChecked(ref Ref, checked bool) error {
	return e.edit(ref, func(d *draft) {
		_, text := domain.ParseTodo(d.Content)
		d.Content = domain.FormatTodo(checked, text)
	})
}

// SetTextColor sets the text colour; a non-empty colour is remembered for
// ApplyLastColor.
func (e *Editor) SetTextColor(ref Ref, color string) error {
	return e.edit(ref, func(d *draft) {
		d.Props.TextColor = color
		if color != "" {
			d.Props.LastText = color
		}
	})
}

// SetBgColor sets the background colour, remembering it like SetTextColor.
func (e *Editor) SetBgColor(ref Ref, color string) error {
	return e.edit(ref, func(d *draft) {
		d.Props.BgColor = color
		if color != "" {
			d.Props.LastBg = color
		}
	})
}

// ApplyLastColor re-applies the most recently picked colour pair.
func (e *Editor) ApplyLastColor(ref Ref) error {
	return e.edit(ref, func(d *draft) {
		d.Props.TextColor = d.Props.LastText
		d.Props.BgColor = d.Props.LastBg
	})
}

// SetEmoji sets a callout's glyph and closes the picker.
func (e *Editor) SetEmoji(ref Ref, emoji string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editLocked(ref, func(d *draft) { d.Props.Emoji = emoji }); err != nil {
		return err
	}
	e.dismissLocked()
	return nil
}

// SetType changes a block's type. Choosing page on a block that links no
// page yet runs the page-link flow, which is synchronous: the type only
// flips once the linked page exists.
func (e *Editor) SetType(ctx context.Context, ref Ref, t domain.BlockType) error {
	if !t.Valid() {
		return fmt.Errorf("set type %q: %w", t, ErrTypeNotAllowed)
	}
	e.mu.Lock()
	if ref.IsChild() {
		defer e.mu.Unlock()
		if _, ok := domain.SubBlockTypeOf(t); !ok {
			return fmt.Errorf("set child type %q: %w", t, ErrTypeNotAllowed)
		}
		if err := e.editLocked(ref, func(d *draft) { retype(d, t) }); err != nil {
			return err
		}
		e.dismissLocked()
		return nil
	}

	if !e.open {
		e.mu.Unlock()
		return ErrNotOpen
	}
	bs := e.index[ref.Block]
	if bs == nil {
		e.mu.Unlock()
		return ErrUnknownBlock
	}
	e.dismissLocked()
	if _, linked := bs.draft.Props.PageLink(); t == domain.BlockTypePage && !linked {
		e.mu.Unlock()
		return e.createLinkedPage(ctx, ref.Block)
	}
	defer e.mu.Unlock()

	retype(&bs.draft, t)
	switch {
	case t == domain.BlockTypeToggle && bs.toggle == nil:
		e.initToggleLocked(bs)
	case t != domain.BlockTypeToggle && bs.toggle != nil:
		e.detachToggleLocked(bs)
	}
	e.touchLocked(bs)
	return nil
}

// retype switches d to t. A block turned into a to_do starts unchecked.
func retype(d *draft, t domain.BlockType) {
	d.Type = t
	if t == domain.BlockTypeTodo {
		d.Content = domain.AsTodo(d.Content)
	}
}

// ── focus ──────────────────────────────────────────────────

// Focus marks ref as the active text surface.
func (e *Editor) Focus(ref Ref) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = ref
}

// Blur clears focus if ref holds it.
func (e *Editor) Blur(ref Ref) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.focused == ref {
		e.focused = Ref{}
	}
}
