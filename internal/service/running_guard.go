package service

import (
	"context"
	"sync"
)

// RunningGuard keys long-running operations by name so at most one per key
// runs at a time. The editor uses it for page-link creation, keyed by
// block id; writes to a block are held back while its key is taken.
// The zero value is ready to use.
type RunningGuard struct {
	mu      sync.Mutex
	running map[string]chan struct{}
}

// TryLock takes key. It reports false if key is already taken.
func (g *RunningGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; ok {
		return false
	}
	if g.running == nil {
		g.running = make(map[string]chan struct{})
	}
	g.running[key] = make(chan struct{})
	return true
}

func (g *RunningGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// Unlock releases key and wakes its waiters. Releasing a free key does
// nothing.
func (g *RunningGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if done, ok := g.running[key]; ok {
		delete(g.running, key)
		close(done)
	}
}

// WaitAll waits until every key taken at the time of the call is released.
// Keys taken later are not waited for.
func (g *RunningGuard) WaitAll(ctx context.Context) error {
	g.mu.Lock()
	pending := make([]chan struct{}, 0, len(g.running))
	for _, done := range g.running {
		pending = append(pending, done)
	}
	g.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
