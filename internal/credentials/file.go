// Package credentials supplies the bearer token used by the API client.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ChangedHandler is called after the token file was re-read.
// signedIn is false when the file is gone or empty.
type ChangedHandler func(signedIn bool)

// FileSource reads the token from a file and keeps it current: a sign-in
// or sign-out that rewrites the file is picked up without a restart.
type FileSource struct {
	path     string
	log      zerolog.Logger
	onChange ChangedHandler

	mu      sync.RWMutex
	token   string
	watcher *fsnotify.Watcher
}

// NewFileSource loads path once and starts watching its directory.
// A missing file is not an error: the source simply has no token yet.
func NewFileSource(path string, log zerolog.Logger, onChange ChangedHandler) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}
	s := &FileSource{path: absPath, log: log, onChange: onChange}
	s.reload()

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// fsnotify watches directories; editors replace files by rename.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch token dir: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop()
	return s, nil
}

// Token returns the current credential, "" when signed out.
func (s *FileSource) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Close stops the watcher.
func (s *FileSource) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *FileSource) reload() bool {
	data, err := os.ReadFile(s.path)
	token := ""
	switch {
	case err == nil:
		token = strings.TrimSpace(string(data))
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.log.Warn().Err(err).Str("path", s.path).Msg("read token file")
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()
	return changed
}

func (s *FileSource) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			absPath, _ := filepath.Abs(event.Name)
			if absPath != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if s.reload() {
				signedIn := s.Token() != ""
				s.log.Info().Bool("signedIn", signedIn).Msg("token file changed")
				if s.onChange != nil {
					s.onChange(signedIn)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("token watcher error")
		}
	}
}
