package domain

// DefaultPageTitle is used when a page is created without a title.
const DefaultPageTitle = "Untitled"

// Page is a node of the page tree. Blocks is only filled by a single-page
// fetch and Children only by a listing.
type Page struct {
	ID       ID      `json:"id"`
	Title    string  `json:"title"`
	Icon     *string `json:"icon"`
	ParentID *ID     `json:"parent_id"`
	Position int     `json:"position"`
	Blocks   []Block `json:"blocks,omitempty"`
	Children []Page  `json:"children,omitempty"`
}

// DisplayTitle falls back to the default title for blank pages.
func (p Page) DisplayTitle() string {
	if p.Title == "" {
		return DefaultPageTitle
	}
	return p.Title
}

// DisplayIcon falls back to the page-link glyph.
func (p Page) DisplayIcon() string {
	if p.Icon == nil || *p.Icon == "" {
		return PageLinkDefaultEmoji
	}
	return *p.Icon
}

// PageInput is the body of a create-page request.
type PageInput struct {
	Title    string  `json:"title"`
	Icon     *string `json:"icon"`
	ParentID *ID     `json:"parent_id"`
}

// PagePatch is the body of an update-page request. Nil fields are not sent.
type PagePatch struct {
	Title    *string `json:"title,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	ParentID *ID     `json:"parent_id,omitempty"`
}

type PageStore interface {
	CreatePage(p *Page) error
	GetPage(id ID) (*Page, error)
	ListPages(parentID *ID) ([]Page, error)
	UpdatePage(p *Page) error
	DeletePage(id ID) error
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
