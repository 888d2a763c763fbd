package domain

import (
	"bytes"
	"encoding/json"
)

// Wire names of the props bag.
const (
	propTextColor = "text_color"
	propBgColor   = "bg_color"
	propLastText  = "_last_text"
	propLastBg    = "_last_bg"
	propEmoji     = "emoji"
	propPageID    = "page_id"
	propCollapsed = "collapsed"
	propChildren  = "children"
)

// Style is the colour part of the props bag, shared by every block type.
// LastText and LastBg remember the most recently picked colours.
type Style struct {
	TextColor string
	BgColor   string
	LastText  string
	LastBg    string
}

// Props is the type-specific metadata of a block. Only the accessor that
// matches the block's type (Callout, PageLink, Toggle) should be read; the
// fields of other variants are carried untouched so a type switch back and
// forth loses nothing. Keys this package does not know are kept in Extra.
type Props struct {
	Style
	Emoji     string
	PageID    ID
	Collapsed *bool
	// Children is nil when the record has no children array at all, which
	// is how legacy toggles are recognised.
	Children []SubBlock
	Extra    map[string]json.RawMessage
}

// ParseProps decodes a props bag leniently. Anything that is not a JSON
// object (null, array, scalar, garbage) yields empty props.
func ParseProps(data []byte) Props {
	fields := parseObject(data)
	p := Props{Extra: map[string]json.RawMessage{}}
	for k, v := range fields {
		switch k {
		case propTextColor, propBgColor, propLastText, propLastBg, propEmoji:
			s, ok := decodeString(v)
			if !ok {
				p.Extra[k] = v
				continue
			}
			p.setString(k, s)
		case propPageID:
			var id ID
			if err := json.Unmarshal(v, &id); err != nil {
				p.Extra[k] = v
				continue
			}
			p.PageID = id
		case propCollapsed:
			var b bool
			if err := json.Unmarshal(v, &b); err != nil {
				p.Extra[k] = v
				continue
			}
			p.Collapsed = &b
		case propChildren:
			p.Children = parseSubBlocks(v)
		default:
			p.Extra[k] = v
		}
	}
	return p
}

func (p *Props) setString(key, s string) {
	switch key {
	case propTextColor:
		p.TextColor = s
	case propBgColor:
		p.BgColor = s
	case propLastText:
		p.LastText = s
	case propLastBg:
		p.LastBg = s
	case propEmoji:
		p.Emoji = s
	}
}

func (p *Props) UnmarshalJSON(data []byte) error {
	*p = ParseProps(data)
	return nil
}

func (p Props) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+8)
	for k, v := range p.Extra {
		out[k] = v
	}
	p.Style.put(out)
	putString(out, propEmoji, p.Emoji)
	if !p.PageID.IsZero() {
		out[propPageID] = p.PageID
	}
	if p.Collapsed != nil {
		out[propCollapsed] = *p.Collapsed
	}
	if p.Children != nil {
		out[propChildren] = p.Children
	}
	return json.Marshal(out)
}

// Clone returns a deep copy.
func (p Props) Clone() Props {
	c := p
	if p.Collapsed != nil {
		v := *p.Collapsed
		c.Collapsed = &v
	}
	if p.Children != nil {
		c.Children = CloneSubBlocks(p.Children)
	}
	c.Extra = cloneRaw(p.Extra)
	return c
}

// Equal reports deep equality of the serialized bags.
func (p Props) Equal(o Props) bool {
	a, errA := json.Marshal(p)
	b, errB := json.Marshal(o)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// KeepLink returns p with the link fields of remote filled in where p
// lacks them: the page id, the link emoji and unknown keys. Every other
// field is taken from p as is, so a cleared colour stays cleared.
func (p Props) KeepLink(remote Props) Props {
	m := p.Clone()
	if m.PageID.IsZero() {
		m.PageID = remote.PageID
	}
	if m.Emoji == "" {
		m.Emoji = remote.Emoji
	}
	if m.Extra == nil {
		m.Extra = map[string]json.RawMessage{}
	}
	for k, v := range remote.Extra {
		if _, ok := m.Extra[k]; !ok {
			m.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return m
}

// ── Variants ───────────────────────────────────────────────

// Default callout colours. They deliberately differ from the generic
// palette so an uncoloured callout is still recognisable.
const (
	CalloutDefaultEmoji     = "💡"
	CalloutDefaultTextColor = "#e9e3d4"
	CalloutDefaultBgColor   = "#3b3323"
	PageLinkDefaultEmoji    = "📄"
)

// CalloutEmojis is the fixed picker offered by callout blocks.
var CalloutEmojis = [20]string{
	"💡", "📌", "⚠️", "❗", "❓", "✅", "❌", "🔥", "⭐", "📝",
	"📎", "🔔", "💬", "🚀", "🎯", "🧠", "📣", "🛠️", "🔒", "ℹ️",
}

type CalloutProps struct {
	Emoji     string
	TextColor string
	BgColor   string
}

// Callout returns the callout view of the bag with defaults applied.
func (p Props) Callout() CalloutProps {
	c := CalloutProps{Emoji: p.Emoji, TextColor: p.TextColor, BgColor: p.BgColor}
	if c.Emoji == "" {
		c.Emoji = CalloutDefaultEmoji
	}
	if c.TextColor == "" {
		c.TextColor = CalloutDefaultTextColor
	}
	if c.BgColor == "" {
		c.BgColor = CalloutDefaultBgColor
	}
	return c
}

type PageLinkProps struct {
	PageID ID
	Emoji  string
}

// PageLink returns the page-reference view of the bag. Linked reports
// whether the block points at an existing page.
func (p Props) PageLink() (link PageLinkProps, linked bool) {
	link = PageLinkProps{PageID: p.PageID, Emoji: p.Emoji}
	if link.Emoji == "" {
		link.Emoji = PageLinkDefaultEmoji
	}
	return link, !p.PageID.IsZero()
}

type ToggleProps struct {
	Collapsed bool
	Children  []SubBlock
	// Legacy is true when the record carries no children array.
	Legacy bool
}

// Toggle returns the collapsible-container view. A missing collapsed flag
// means collapsed.
func (p Props) Toggle() ToggleProps {
	t := ToggleProps{Collapsed: true, Children: p.Children, Legacy: p.Children == nil}
	if p.Collapsed != nil {
		t.Collapsed = *p.Collapsed
	}
	return t
}

// ── helpers ────────────────────────────────────────────────

func (s Style) put(out map[string]any) {
	putString(out, propTextColor, s.TextColor)
	putString(out, propBgColor, s.BgColor)
	putString(out, propLastText, s.LastText)
	putString(out, propLastBg, s.LastBg)
}

func putString(out map[string]any, key, v string) {
	if v != "" {
		out[key] = v
	}
}

func parseObject(data []byte) map[string]json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func decodeString(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
