package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blocknotes/internal/domain"
	"blocknotes/internal/editor"
	"blocknotes/internal/service"
)

// pageSource is where the watcher reads the open page from.
type pageSource interface {
	GetPage(ctx context.Context, id domain.ID) (*domain.Page, error)
}

// openPage is the editor as the watcher sees it.
type openPage interface {
	PageID() domain.ID
	Refresh(ctx context.Context) (editor.PageView, error)
	ResolveLinks(ctx context.Context)
}

// pageWatcher polls the remote store for changes to the open page,
// detecting external modifications (e.g. from the MCP standalone process)
// and swapping them into the editor so the frontend auto-refreshes.
type pageWatcher struct {
	source   pageSource
	editor   openPage
	emitter  service.EventEmitter
	interval time.Duration
	log      zerolog.Logger

	mu sync.Mutex
	// Active page tracking
	pageID      domain.ID
	fingerprint string
	stopCh      chan struct{}
	done        chan struct{}
}

func newPageWatcher(source pageSource, ed openPage, emitter service.EventEmitter, interval time.Duration, log zerolog.Logger) *pageWatcher {
	return &pageWatcher{source: source, editor: ed, emitter: emitter, interval: interval, log: log}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *pageWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it to exit.
func (w *pageWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *pageWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// check fetches the open page and refreshes the editor when its
// fingerprint moved since the last poll, then resolves the titles of links
// that arrived with the change. The first poll of a page only records the
// fingerprint.
func (w *pageWatcher) check(ctx context.Context) bool {
	pageID := w.editor.PageID()
	if pageID.IsZero() {
		w.reset("")
		return false
	}

	page, err := w.source.GetPage(ctx, pageID)
	if err != nil {
		w.log.Debug().Err(err).Str("pageId", pageID.String()).Msg("poll failed")
		return false
	}
	fp, err := fingerprint(page)
	if err != nil {
		return false
	}

	w.mu.Lock()
	changed := w.pageID == pageID && w.fingerprint != fp
	w.pageID, w.fingerprint = pageID, fp
	w.mu.Unlock()
	if !changed {
		return false
	}

	if _, err := w.editor.Refresh(ctx); err != nil {
		w.log.Warn().Err(err).Str("pageId", pageID.String()).Msg("refresh after external change failed")
		return false
	}
	w.log.Debug().Str("pageId", pageID.String()).Msg("page changed remotely")
	w.emitter.Emit(ctx, service.EventBlocksChanged, map[string]string{"pageId": pageID.String()})
	// Blocks linked remotely carry a page id but no title yet.
	w.editor.ResolveLinks(ctx)
	return true
}

func (w *pageWatcher) reset(pageID domain.ID) {
	w.mu.Lock()
	w.pageID, w.fingerprint = pageID, ""
	w.mu.Unlock()
}

// fingerprint covers the page header and every block field a remote
// writer can touch.
func fingerprint(p *domain.Page) (string, error) {
	data, err := json.Marshal(struct {
		Title  string         `json:"title"`
		Icon   *string        `json:"icon"`
		Blocks []domain.Block `json:"blocks"`
	}{p.Title, p.Icon, p.Blocks})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
