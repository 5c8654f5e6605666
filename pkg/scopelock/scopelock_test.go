package scopelock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDB struct {
	mu       sync.Mutex
	holder   string
	released []string
}

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	if sql == renewSQL {
		if db.holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	if db.holder != "" && db.holder != token {
		return fakeRow{err: pgx.ErrNoRows}
	}
	db.holder = token
	return fakeRow{key: key}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if sql == releaseSQL && db.holder == args[1].(string) {
		db.holder = ""
		db.released = append(db.released, args[0].(string))
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func TestKey(t *testing.T) {
	if got := Key(7, "doc-A"); got != "naf:7:doc-A" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsNormalize(t *testing.T) {
	cases := []struct {
		name      string
		in        Options
		wantTTL   time.Duration
		wantRenew time.Duration
	}{
		{"defaults", Options{}, 5 * time.Minute, 150 * time.Second},
		{"renew beyond ttl", Options{TTL: 10 * time.Second, RenewEvery: time.Minute}, 10 * time.Second, 5 * time.Second},
		{"short ttl", Options{TTL: time.Second}, time.Second, time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.in
			ms := o.normalize()
			if o.TTL != tc.wantTTL || ms != tc.wantTTL.Milliseconds() {
				t.Fatalf("ttl = %v (%dms), want %v", o.TTL, ms, tc.wantTTL)
			}
			if o.RenewEvery != tc.wantRenew {
				t.Fatalf("renew = %v, want %v", o.RenewEvery, tc.wantRenew)
			}
			if o.WaitInterval != 250*time.Millisecond {
				t.Fatalf("wait interval = %v", o.WaitInterval)
			}
		})
	}
}

func TestAcquireBusyWithoutWait(t *testing.T) {
	db := &fakeDB{holder: "someone-else"}
	c := New(db, Options{})
	_, err := c.Acquire(context.Background(), Key(1, "d"), Options{})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestWithScopeReleases(t *testing.T) {
	db := &fakeDB{}
	c := New(db, Options{TTL: time.Minute})
	called := false
	err := c.WithScope(context.Background(), 7, "doc-A", func(ctx context.Context) error {
		called = true
		if ctx.Err() != nil {
			t.Fatalf("lease context already done: %v", ctx.Err())
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithScope = %v, called = %v", err, called)
	}
	if len(db.released) != 1 || db.released[0] != "naf:7:doc-A" {
		t.Fatalf("unexpected releases %v", db.released)
	}
}

func TestLocalSerializesSameScope(t *testing.T) {
	l := NewLocal()
	var active, peak int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithScope(context.Background(), 1, "d", func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("expected at most one holder, saw %d", peak)
	}
	if len(l.slots) != 0 {
		t.Fatalf("expected slots to be cleaned up, got %d", len(l.slots))
	}
}

func TestLocalHonorsContext(t *testing.T) {
	l := NewLocal()
	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = l.WithScope(context.Background(), 1, "d", func(context.Context) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.WithScope(ctx, 1, "d", func(context.Context) error { return nil })
	close(hold)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
