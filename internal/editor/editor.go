// Package editor is the headless block editor: it owns the in-memory
// block list of one open page, keeps every block's local draft converging
// with the remote store through debounced writes, and implements reorder,
// toggle nesting and the page-link flow. Rendering is left to the caller,
// which reads views and feeds input events back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

var (
	ErrNotOpen        = errors.New("no page open")
	ErrUnknownBlock   = errors.New("unknown block")
	ErrTypeNotAllowed = errors.New("block type not allowed here")
	ErrLinkInProgress = errors.New("page link creation already running")
)

// Backend is the remote store as the editor sees it. *service.KBService
// implements it.
type Backend interface {
	GetPage(ctx context.Context, id domain.ID) (*domain.Page, error)
	CreatePage(ctx context.Context, in domain.PageInput) (*domain.Page, error)
	UpdatePage(ctx context.Context, id domain.ID, patch domain.PagePatch) (*domain.Page, error)
	CreateBlock(ctx context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error)
	UpdateBlock(ctx context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error)
	DeleteBlock(ctx context.Context, id domain.ID) error
}

// Quiet periods used when Options leaves them zero.
const (
	DefaultBlockDebounce = 500 * time.Millisecond
	DefaultChildDebounce = 400 * time.Millisecond
)

// Options configures an Editor.
type Options struct {
	BlockDebounce time.Duration
	ChildDebounce time.Duration
	// Scheduler drives the debounce timers. Defaults to the wall clock.
	Scheduler Scheduler
	// Context is used for writes fired by timers. Defaults to Background.
	Context context.Context
	Log     zerolog.Logger
}

// Ref addresses a top-level block, or a nested child when Child is set.
type Ref struct {
	Block domain.ID `json:"block"`
	Child domain.ID `json:"child,omitempty"`
}

// Top addresses a top-level block.
func Top(id domain.ID) Ref { return Ref{Block: id} }

// Nested addresses a child of a toggle.
func Nested(parent, child domain.ID) Ref { return Ref{Block: parent, Child: child} }

// IsChild reports whether r addresses a nested child.
func (r Ref) IsChild() bool { return !r.Child.IsZero() }

// ─────────────────────────────────────────────────────────────
// Editor
// ─────────────────────────────────────────────────────────────

// Editor is the single owner of one page's block list. All methods are
// safe for concurrent use; network calls never run under the lock.
type Editor struct {
	mu      sync.Mutex
	backend Backend
	emitter service.EventEmitter
	log     zerolog.Logger
	opts    Options
	ctx     context.Context
	timers  *Debouncer

	// linking keeps one page-link creation per block in flight.
	linking service.RunningGuard
	// persistMu serializes sequential position writes.
	persistMu sync.Mutex

	open    bool
	gen     uint64
	page    domain.Page
	blocks  []*blockState
	index   map[domain.ID]*blockState
	links   map[domain.ID]LinkView
	focused Ref
	overlay overlayState
	drag    DragState
}

// New creates an Editor with no page open.
func New(backend Backend, emitter service.EventEmitter, opts Options) *Editor {
	if opts.BlockDebounce <= 0 {
		opts.BlockDebounce = DefaultBlockDebounce
	}
	if opts.ChildDebounce <= 0 {
		opts.ChildDebounce = DefaultChildDebounce
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	return &Editor{
		backend: backend,
		emitter: emitter,
		log:     opts.Log,
		opts:    opts,
		ctx:     opts.Context,
		timers:  NewDebouncer(opts.Scheduler),
		index:   make(map[domain.ID]*blockState),
		links:   make(map[domain.ID]LinkView),
	}
}

// Open flushes whatever page was open, loads pageID and mounts its blocks.
func (e *Editor) Open(ctx context.Context, pageID domain.ID) (PageView, error) {
	if err := e.Close(ctx); err != nil {
		e.log.Warn().Err(err).Msg("flush before open failed")
	}
	page, err := e.backend.GetPage(ctx, pageID)
	if err != nil {
		return PageView{}, fmt.Errorf("open page: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.open = true
	e.page = *page
	e.page.Blocks = nil
	e.page.Children = nil
	e.blocks = nil
	e.index = make(map[domain.ID]*blockState)
	e.links = make(map[domain.ID]LinkView)
	e.focused = Ref{}
	e.overlay = overlayState{}
	e.drag = DragState{}
	for _, b := range sortedBlocks(page.Blocks) {
		e.appendLocked(e.mountLocked(b))
	}
	e.log.Debug().Str("pageId", pageID.String()).Int("blocks", len(e.blocks)).Msg("page opened")
	return e.viewLocked(), nil
}

// Close flushes dirty blocks, cancels every timer and forgets the page.
// Closing an editor with no page open is a no-op.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	open := e.open
	e.mu.Unlock()
	if !open {
		return nil
	}

	err := e.Flush(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.timers.CancelAll()
	e.open = false
	e.gen++
	e.blocks = nil
	e.index = make(map[domain.ID]*blockState)
	e.focused = Ref{}
	e.overlay = overlayState{}
	e.drag = DragState{}
	return err
}

// Refresh refetches the open page and swaps in its block list. Blocks whose
// identity (id and linked page) is unchanged keep their local state.
func (e *Editor) Refresh(ctx context.Context) (PageView, error) {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return PageView{}, ErrNotOpen
	}
	pageID, gen := e.page.ID, e.gen
	e.mu.Unlock()

	page, err := e.backend.GetPage(ctx, pageID)
	if err != nil {
		return PageView{}, fmt.Errorf("refresh page: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open || e.gen != gen {
		return PageView{}, ErrNotOpen
	}
	e.page.Title, e.page.Icon, e.page.ParentID = page.Title, page.Icon, page.ParentID
	e.swapLocked(page.Blocks)
	return e.viewLocked(), nil
}

// View returns the render model of the open page.
func (e *Editor) View() PageView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// PageID returns the open page, or "" when none is open.
func (e *Editor) PageID() domain.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return ""
	}
	return e.page.ID
}

// ── page metadata ──────────────────────────────────────────

// RenamePage sets the open page's title.
func (e *Editor) RenamePage(ctx context.Context, title string) error {
	return e.patchPage(ctx, domain.PagePatch{Title: &title})
}

// SetPageIcon sets the open page's icon.
func (e *Editor) SetPageIcon(ctx context.Context, icon string) error {
	return e.patchPage(ctx, domain.PagePatch{Icon: &icon})
}

func (e *Editor) patchPage(ctx context.Context, patch domain.PagePatch) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return ErrNotOpen
	}
	pageID, gen := e.page.ID, e.gen
	e.mu.Unlock()

	page, err := e.backend.UpdatePage(ctx, pageID, patch)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}

	e.mu.Lock()
	if e.open && e.gen == gen {
		e.page.Title, e.page.Icon = page.Title, page.Icon
	}
	e.mu.Unlock()
	e.emitter.Emit(e.ctx, service.EventPageChanged, pageID)
	return nil
}

// ── block list ─────────────────────────────────────────────

func sortedBlocks(in []domain.Block) []domain.Block {
	out := domain.NormalizeBlocks(in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (e *Editor) appendLocked(bs *blockState) {
	e.blocks = append(e.blocks, bs)
	e.index[bs.remote.ID] = bs
}

func (e *Editor) insertAtLocked(i int, bs *blockState) {
	if i < 0 || i > len(e.blocks) {
		i = len(e.blocks)
	}
	e.blocks = append(e.blocks, nil)
	copy(e.blocks[i+1:], e.blocks[i:])
	e.blocks[i] = bs
	e.index[bs.remote.ID] = bs
}

func (e *Editor) indexOfLocked(id domain.ID) int {
	for i, bs := range e.blocks {
		if bs.remote.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) removeLocked(bs *blockState) {
	if i := e.indexOfLocked(bs.remote.ID); i >= 0 {
		e.blocks = append(e.blocks[:i], e.blocks[i+1:]...)
	}
	e.unmountLocked(bs)
}

// swapLocked replaces the block list with a fresh server listing. The swap
// key is the block id plus its linked page, so a block whose link target
// changed is remounted from scratch.
func (e *Editor) swapLocked(incoming []domain.Block) {
	next := make([]*blockState, 0, len(incoming))
	seen := make(map[domain.ID]bool, len(incoming))
	for _, b := range sortedBlocks(incoming) {
		b = withChildIDs(b)
		seen[b.ID] = true
		old := e.index[b.ID]
		if old != nil && swapKey(old.remote) == swapKey(b) {
			clean := !old.inFlight && old.draft.equal(old.remote)
			old.remote = b
			if clean {
				old.draft = draftOf(b)
				e.adoptChildrenLocked(old)
			} else {
				e.touchLocked(old)
			}
			next = append(next, old)
			continue
		}
		if old != nil {
			e.unmountLocked(old)
		}
		next = append(next, e.mountLocked(b))
	}
	for id, bs := range e.index {
		if !seen[id] {
			e.unmountLocked(bs)
		}
	}
	e.blocks = nil
	for _, bs := range next {
		e.appendLocked(bs)
	}
}

func swapKey(b domain.Block) string {
	return b.ID.String() + "|" + b.Props.PageID.String()
}
