package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"blocknotes/internal/client"
	"blocknotes/internal/config"
	"blocknotes/internal/credentials"
	"blocknotes/internal/editor"
	"blocknotes/internal/logging"
	"blocknotes/internal/service"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg config.Config
	log zerolog.Logger

	kb      *service.KBService
	editor  *editor.Editor
	tokens  client.TokenSource
	closer  io.Closer
	watcher *pageWatcher

	// resolving cancels the link resolution of the previously opened page.
	resolveMu sync.Mutex
	resolving context.CancelFunc
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.cfg = config.Load()
	a.log = logging.Component(logging.New(os.Stderr, a.cfg.LogLevel), "app")

	kb, tokens, closer, err := newRemote(a.cfg, a.log, func(signedIn bool) {
		a.Emit(ctx, service.EventSessionChanged, map[string]bool{"signedIn": signedIn})
	})
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to set up credentials: %v", err)
		return
	}
	a.kb, a.tokens, a.closer = kb, tokens, closer

	a.editor = editor.New(kb, a, editor.Options{
		BlockDebounce: a.cfg.BlockDebounce,
		ChildDebounce: a.cfg.ChildDebounce,
		Context:       ctx,
		Log:           logging.Component(a.log, "editor"),
	})

	// Edits made elsewhere (the MCP server, another window) show up here.
	a.watcher = newPageWatcher(kb, a.editor, a, 2*time.Second, logging.Component(a.log, "watcher"))
	a.watcher.Start(ctx)
}

// Shutdown is called when the app is closing. Pending drafts are flushed
// before the window goes away.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.cancelResolve()
	if a.editor != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.editor.Close(flushCtx); err != nil {
			a.log.Error().Err(err).Msg("flush on shutdown failed")
		}
		cancel()
	}
	if a.closer != nil {
		a.closer.Close()
	}
}

// Emit forwards an event to the frontend. It makes App the editor's
// service.EventEmitter.
func (a *App) Emit(ctx context.Context, event string, data any) {
	if ctx == nil {
		ctx = a.ctx
	}
	wailsRuntime.EventsEmit(ctx, event, data)
}

// SignedIn reports whether a token is available.
func (a *App) SignedIn() bool {
	return a.tokens != nil && a.tokens.Token() != ""
}

// ── wiring ─────────────────────────────────────────────────

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newRemote builds the client stack shared by the window and the
// standalone MCP server. A token in the environment wins over the token
// store, which is then never read.
func newRemote(cfg config.Config, log zerolog.Logger, onChange credentials.ChangedHandler) (*service.KBService, client.TokenSource, io.Closer, error) {
	var (
		tokens client.TokenSource
		closer io.Closer = nopCloser{}
	)
	switch {
	case cfg.Token != "":
		tokens = client.StaticToken(cfg.Token)
	case cfg.TokenStore == "keychain":
		kc := credentials.NewKeychainSource(cfg.KeychainAccount, time.Minute, logging.Component(log, "credentials"))
		tokens, closer = kc, kc
	default:
		fs, err := credentials.NewFileSource(cfg.TokenFile, logging.Component(log, "credentials"), onChange)
		if err != nil {
			return nil, nil, nil, err
		}
		tokens, closer = fs, fs
	}

	c := client.New(cfg.APIURL, tokens, client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	kb := service.NewKBService(c, service.RetryPolicy{
		Attempts: uint(cfg.RetryAttempts),
		Delay:    cfg.RetryDelay,
	}, logging.Component(log, "kb"))
	return kb, tokens, closer, nil
}
