package scopelock

import (
	"context"
	"sync"
)

// Local locks scopes within one process. It serves the embedded backends,
// where a single process owns the store.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{slots: map[string]*slot{}}
}

func (l *Local) WithScope(ctx context.Context, sessionID int, docID string, fn func(ctx context.Context) error) error {
	key := Key(sessionID, docID)

	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		s.waiters--
		if s.waiters == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
	}()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.ch }()

	return fn(ctx)
}
