package editor_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
	"blocknotes/internal/service"
)

// fakeBackend is an in-memory remote store that records every call.
type fakeBackend struct {
	mu      sync.Mutex
	seq     int
	pages   map[domain.ID]*domain.Page
	blocks  map[domain.ID]*domain.Block
	updates []updateCall
	creates []domain.BlockInput
	newPage []domain.PageInput
	deleted []domain.ID

	active    int
	maxActive int

	failUpdate     error
	failCreatePage error
	failGetPage    map[domain.ID]error

	// gate, when set, holds every UpdateBlock until a value is received;
	// started is signalled as each held call begins.
	gate    chan struct{}
	started chan struct{}
}

type updateCall struct {
	ID    domain.ID
	Patch domain.BlockPatch
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages:       make(map[domain.ID]*domain.Page),
		blocks:      make(map[domain.ID]*domain.Block),
		failGetPage: make(map[domain.ID]error),
	}
}

func (f *fakeBackend) addPage(id domain.ID, title string, blocks ...domain.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[id] = &domain.Page{ID: id, Title: title}
	for i := range blocks {
		b := blocks[i]
		b.PageID = id
		f.blocks[b.ID] = &b
	}
}

func (f *fakeBackend) GetPage(_ context.Context, id domain.ID) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failGetPage[id]; err != nil {
		return nil, err
	}
	p, ok := f.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: not found", id)
	}
	out := *p
	for _, b := range f.blocks {
		if b.PageID == id {
			out.Blocks = append(out.Blocks, b.Clone())
		}
	}
	sort.SliceStable(out.Blocks, func(i, j int) bool { return out.Blocks[i].Position < out.Blocks[j].Position })
	return &out, nil
}

func (f *fakeBackend) CreatePage(_ context.Context, in domain.PageInput) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newPage = append(f.newPage, in)
	if f.failCreatePage != nil {
		return nil, f.failCreatePage
	}
	f.seq++
	p := &domain.Page{ID: domain.ID(fmt.Sprintf("page-%d", f.seq)), Title: in.Title, Icon: in.Icon, ParentID: in.ParentID}
	f.pages[p.ID] = p
	out := *p
	return &out, nil
}

func (f *fakeBackend) UpdatePage(_ context.Context, id domain.ID, patch domain.PagePatch) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: not found", id)
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Icon != nil {
		p.Icon = patch.Icon
	}
	out := *p
	return &out, nil
}

func (f *fakeBackend) CreateBlock(_ context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, in)
	f.seq++
	b := &domain.Block{
		ID:       domain.ID(fmt.Sprintf("new-%d", f.seq)),
		PageID:   pageID,
		Type:     in.Type,
		Content:  in.Content,
		Position: in.Position,
		Props:    in.Props.Clone(),
	}
	f.blocks[b.ID] = b
	out := b.Clone()
	return &out, nil
}

func (f *fakeBackend) UpdateBlock(_ context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error) {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	f.updates = append(f.updates, updateCall{ID: id, Patch: patch})
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	b, ok := f.blocks[id]
	if !ok {
		return nil, fmt.Errorf("block %s: not found", id)
	}
	patch.Apply(b)
	out := b.Clone()
	return &out, nil
}

func (f *fakeBackend) DeleteBlock(_ context.Context, id domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.blocks, id)
	return nil
}

func (f *fakeBackend) Updates() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

func (f *fakeBackend) block(id domain.ID) domain.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[id].Clone()
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// ── harness ────────────────────────────────────────────────

type harness struct {
	t       *testing.T
	backend *fakeBackend
	clock   *editor.ManualScheduler
	events  *service.MockEmitter
	ed      *editor.Editor
}

const (
	quiet      = 500 * time.Millisecond
	childQuiet = 400 * time.Millisecond
)

func newHarness(t *testing.T, blocks ...domain.Block) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		backend: newFakeBackend(),
		clock:   &editor.ManualScheduler{},
		events:  &service.MockEmitter{},
	}
	h.backend.addPage("p1", "Notes", blocks...)
	h.ed = editor.New(h.backend, h.events, editor.Options{
		BlockDebounce: quiet,
		ChildDebounce: childQuiet,
		Scheduler:     h.clock,
		Log:           zerolog.Nop(),
	})
	_, err := h.ed.Open(context.Background(), "p1")
	require.NoError(t, err)
	return h
}

func (h *harness) view(id domain.ID) editor.BlockView {
	h.t.Helper()
	for _, v := range h.ed.View().Blocks {
		if v.Ref.Block == id {
			return v
		}
	}
	h.t.Fatalf("block %s not in view", id)
	return editor.BlockView{}
}

func (h *harness) order() []domain.ID {
	var ids []domain.ID
	for _, v := range h.ed.View().Blocks {
		ids = append(ids, v.Ref.Block)
	}
	return ids
}

func textBlock(id domain.ID, pos int, content string) domain.Block {
	return domain.Block{ID: id, Type: domain.BlockTypeText, Content: content, Position: pos, Props: domain.Props{}}
}
