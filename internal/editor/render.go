package editor

import (
	"strings"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Type dispatch: the render model of each block type
// ─────────────────────────────────────────────────────────────

// RenderKind is the capability a block renders with.
type RenderKind string

const (
	RenderText        RenderKind = "text"
	RenderCheckbox    RenderKind = "checkbox"
	RenderStaticList  RenderKind = "static_list"
	RenderCallout     RenderKind = "callout"
	RenderCollapsible RenderKind = "collapsible"
	RenderPageLink    RenderKind = "page_link"
	RenderPlaceholder RenderKind = "page_placeholder"
)

// BlockView is everything a frontend needs to draw one block or child.
type BlockView struct {
	Ref      Ref              `json:"ref"`
	Type     domain.BlockType `json:"type"`
	Position int              `json:"position"`
	Kind     RenderKind       `json:"kind"`
	// Content is the raw draft; Text is what the text surface edits.
	Content      string `json:"content"`
	Text         string `json:"text"`
	HeadingLevel int    `json:"headingLevel,omitempty"`
	Checked      bool   `json:"checked,omitempty"`
	// ListItems is set for a static list: one item per content line.
	ListItems    []string `json:"listItems,omitempty"`
	Ordered      bool     `json:"ordered,omitempty"`
	Multiline    bool     `json:"multiline,omitempty"`
	EnterInserts bool     `json:"enterInserts"`
	TextColor    string   `json:"textColor,omitempty"`
	BgColor      string   `json:"bgColor,omitempty"`

	Callout *domain.CalloutProps `json:"callout,omitempty"`
	Link    *LinkView            `json:"link,omitempty"`
	Toggle  *ToggleView          `json:"toggle,omitempty"`

	Focused   bool    `json:"focused"`
	Overlay   Overlay `json:"overlay"`
	Dragging  bool    `json:"dragging,omitempty"`
	DragOver  bool    `json:"dragOver,omitempty"`
	Unsaved   bool    `json:"unsaved"`
	SaveError string  `json:"saveError,omitempty"`
}

// ToggleView is the container part of a toggle block.
type ToggleView struct {
	Collapsed bool        `json:"collapsed"`
	Children  []BlockView `json:"children"`
}

// PageView is the render model of the open page.
type PageView struct {
	Page   domain.Page `json:"page"`
	Blocks []BlockView `json:"blocks"`
	Drag   DragState   `json:"drag"`
}

// renderer is the per-type behaviour behind a BlockView.
type renderer interface {
	render(v *BlockView, d draft, focused bool)
	enterInserts() bool
}

type textRenderer struct{}

func (textRenderer) render(v *BlockView, d draft, _ bool) {
	v.Kind = RenderText
	v.HeadingLevel = d.Type.HeadingLevel()
}

func (textRenderer) enterInserts() bool { return true }

// literalRenderer is code and quote: Enter is a newline.
type literalRenderer struct{}

func (literalRenderer) render(v *BlockView, _ draft, _ bool) {
	v.Kind = RenderText
	v.Multiline = true
}

func (literalRenderer) enterInserts() bool { return false }

type listRenderer struct{ ordered bool }

func (r listRenderer) render(v *BlockView, d draft, focused bool) {
	v.Kind = RenderText
	v.Ordered = r.ordered
	if focused || d.Content == "" {
		return
	}
	v.Kind = RenderStaticList
	v.ListItems = strings.Split(d.Content, "\n")
}

func (listRenderer) enterInserts() bool { return true }

type todoRenderer struct{}

func (todoRenderer) render(v *BlockView, d draft, _ bool) {
	v.Kind = RenderCheckbox
	v.Checked, v.Text = domain.ParseTodo(d.Content)
}

func (todoRenderer) enterInserts() bool { return true }

type calloutRenderer struct{}

func (calloutRenderer) render(v *BlockView, d draft, _ bool) {
	c := d.Props.Callout()
	v.Kind = RenderCallout
	v.Multiline = true
	v.Callout = &c
	v.TextColor, v.BgColor = c.TextColor, c.BgColor
}

func (calloutRenderer) enterInserts() bool { return false }

// toggleRenderer only draws the header; children are filled by the
// editor since they carry their own state.
type toggleRenderer struct{}

func (toggleRenderer) render(v *BlockView, d draft, _ bool) {
	v.Kind = RenderCollapsible
	v.Toggle = &ToggleView{Collapsed: d.Props.Toggle().Collapsed}
}

func (toggleRenderer) enterInserts() bool { return true }

type pageRenderer struct{}

func (pageRenderer) render(v *BlockView, d draft, _ bool) {
	link, linked := d.Props.PageLink()
	if !linked {
		v.Kind = RenderPlaceholder
		return
	}
	v.Kind = RenderPageLink
	v.Link = &LinkView{PageID: link.PageID, Title: domain.DefaultPageTitle, Icon: link.Emoji}
}

func (pageRenderer) enterInserts() bool { return true }

var renderers = map[domain.BlockType]renderer{
	domain.BlockTypeText:         textRenderer{},
	domain.BlockTypeHeading1:     textRenderer{},
	domain.BlockTypeHeading2:     textRenderer{},
	domain.BlockTypeHeading3:     textRenderer{},
	domain.BlockTypeBulletedList: listRenderer{},
	domain.BlockTypeNumberedList: listRenderer{ordered: true},
	domain.BlockTypeTodo:         todoRenderer{},
	domain.BlockTypeCode:         literalRenderer{},
	domain.BlockTypeQuote:        literalRenderer{},
	domain.BlockTypeCallout:      calloutRenderer{},
	domain.BlockTypeToggle:       toggleRenderer{},
	domain.BlockTypePage:         pageRenderer{},
}

// rendererFor falls back to plain text for unknown legacy types.
func rendererFor(t domain.BlockType) renderer {
	if r, ok := renderers[t]; ok {
		return r
	}
	return textRenderer{}
}

// ── view assembly ──────────────────────────────────────────

func (e *Editor) viewLocked() PageView {
	pv := PageView{Page: e.page, Blocks: make([]BlockView, 0, len(e.blocks)), Drag: e.drag}
	if !e.open {
		return PageView{Blocks: []BlockView{}}
	}
	for _, bs := range e.blocks {
		pv.Blocks = append(pv.Blocks, e.blockViewLocked(bs))
	}
	return pv
}

func (e *Editor) baseView(ref Ref, pos int, d draft) BlockView {
	v := BlockView{
		Ref:       ref,
		Type:      d.Type,
		Position:  pos,
		Content:   d.Content,
		Text:      d.Content,
		TextColor: d.Props.TextColor,
		BgColor:   d.Props.BgColor,
		Focused:   e.focused == ref,
	}
	if e.overlay.ref == ref {
		v.Overlay = e.overlay.kind
	}
	r := rendererFor(d.Type)
	r.render(&v, d, v.Focused)
	v.EnterInserts = r.enterInserts()
	return v
}

func (e *Editor) blockViewLocked(bs *blockState) BlockView {
	ref := Top(bs.remote.ID)
	v := e.baseView(ref, bs.remote.Position, bs.draft)
	v.Dragging = e.drag.DraggingID == ref.Block
	v.DragOver = e.drag.Active() && e.drag.OverID == ref.Block
	v.Unsaved = bs.dirty()
	if bs.saveErr != nil {
		v.SaveError = bs.saveErr.Error()
	}
	if v.Link != nil {
		if cached, ok := e.links[v.Link.PageID]; ok {
			v.Link.Title = cached.Title
			v.Link.Resolved = cached.Resolved
			if cached.Resolved {
				v.Link.Icon = cached.Icon
			}
		}
	}
	if v.Toggle != nil && bs.toggle != nil {
		ts := bs.toggle
		v.Toggle.Children = make([]BlockView, 0, len(ts.children))
		for _, cs := range ts.children {
			cref := Nested(ref.Block, cs.id())
			cv := e.baseView(cref, cs.remote.Position, cs.draft)
			cv.Dragging = ts.drag.DraggingID == cs.id()
			cv.DragOver = ts.drag.Active() && ts.drag.OverID == cs.id()
			cv.Unsaved = !cs.clean()
			v.Toggle.Children = append(v.Toggle.Children, cv)
		}
	}
	return v
}
