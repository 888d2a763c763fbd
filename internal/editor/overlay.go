package editor

import "blocknotes/internal/domain"

// Overlay is the one popup a block may show at a time.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayTypeMenu
	OverlayHandleMenu
	OverlayEmojiPicker
	OverlayColorSubmenu
)

var overlayNames = map[Overlay]string{
	OverlayNone:         "none",
	OverlayTypeMenu:     "type_menu",
	OverlayHandleMenu:   "handle_menu",
	OverlayEmojiPicker:  "emoji_picker",
	OverlayColorSubmenu: "color_submenu",
}

func (o Overlay) String() string {
	if s, ok := overlayNames[o]; ok {
		return s
	}
	return "unknown"
}

func (o Overlay) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ParseOverlay maps a name such as "type_menu" back to its Overlay.
func ParseOverlay(name string) (Overlay, bool) {
	for o, n := range overlayNames {
		if n == name {
			return o, true
		}
	}
	return OverlayNone, false
}

type overlayState struct {
	ref  Ref
	kind Overlay
}

// OpenOverlay shows kind on ref, replacing any overlay open anywhere on
// the page. The emoji picker only exists on callouts.
func (e *Editor) OpenOverlay(ref Ref, kind Overlay) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.draftLocked(ref)
	if err != nil {
		return err
	}
	if kind == OverlayEmojiPicker && d.Type != domain.BlockTypeCallout {
		return ErrTypeNotAllowed
	}
	if kind == OverlayNone {
		e.dismissLocked()
		return nil
	}
	e.overlay = overlayState{ref: ref, kind: kind}
	return nil
}

// DismissOverlays closes whatever overlay is open. It is the single
// dismissal rule: outside clicks, Escape and completed picks all land here.
func (e *Editor) DismissOverlays() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dismissLocked()
}

func (e *Editor) dismissLocked() {
	e.overlay = overlayState{}
}

// TypeMenu lists the types offered for ref: every type at top level, the
// nestable ones inside a toggle.
func (e *Editor) TypeMenu(ref Ref) []domain.BlockType {
	if !ref.IsChild() {
		return append([]domain.BlockType(nil), domain.BlockTypes...)
	}
	out := make([]domain.BlockType, len(domain.SubBlockTypes))
	for i, t := range domain.SubBlockTypes {
		out[i] = t.BlockType()
	}
	return out
}

// draftLocked returns a copy of the draft ref points at.
func (e *Editor) draftLocked(ref Ref) (draft, error) {
	if !e.open {
		return draft{}, ErrNotOpen
	}
	bs := e.index[ref.Block]
	if bs == nil {
		return draft{}, ErrUnknownBlock
	}
	if !ref.IsChild() {
		return bs.draft, nil
	}
	if bs.toggle == nil {
		return draft{}, ErrUnknownBlock
	}
	_, cs := bs.toggle.find(ref.Child)
	if cs == nil {
		return draft{}, ErrUnknownBlock
	}
	return cs.draft, nil
}
