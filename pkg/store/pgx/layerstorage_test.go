package pgx

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type fakeConn struct {
	execs   []execCall
	execErr error
	rows    map[string][]byte
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execs = append(c.execs, execCall{sql: sql, args: args})
	if c.execErr != nil {
		return pgconn.CommandTag{}, c.execErr
	}
	if len(args) == 5 {
		c.rows[fmt.Sprint(args[:4]...)] = args[4].([]byte)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (c *fakeConn) Query(context.Context, string, ...any) (pgxv5.Rows, error) {
	return nil, errors.New("not supported")
}

func (c *fakeConn) QueryRow(_ context.Context, _ string, args ...any) pgxv5.Row {
	return fakeRow{payload: c.rows[fmt.Sprint(args...)]}
}

func (c *fakeConn) Begin(context.Context) (pgxv5.Tx, error) {
	return &fakeTx{conn: c}, nil
}

type fakeRow struct {
	payload []byte
}

func (r fakeRow) Scan(dest ...any) error {
	if r.payload == nil {
		return pgxv5.ErrNoRows
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

type fakeTx struct {
	pgxv5.Tx
	conn      *fakeConn
	committed bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.conn.Exec(ctx, sql, args...)
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error { return nil }

func newFake() *fakeConn {
	return &fakeConn{rows: map[string][]byte{}}
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	conn := newFake()
	s := NewLayerDBStorageWithConnection(conn)
	scope := layer.DocumentScope(7, "doc-A").WithParagraph(1).WithSentence(2)

	if err := s.Upsert(ctx, "terms", scope, []byte(`{"annotations":[]}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(conn.execs) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(conn.execs))
	}
	call := conn.execs[0]
	if !strings.Contains(call.sql, `"naf_terms"`) || !strings.Contains(call.sql, "ON CONFLICT") {
		t.Fatalf("unexpected sql %q", call.sql)
	}
	if !reflect.DeepEqual(call.args[:4], []any{7, "doc-A", 1, 2}) {
		t.Fatalf("unexpected args %v", call.args[:4])
	}

	got, found, err := s.Get(ctx, "terms", scope)
	if err != nil || !found || string(got) != `{"annotations":[]}` {
		t.Fatalf("get = %q, %v, %v", got, found, err)
	}
	_, found, err = s.Get(ctx, "terms", layer.DocumentScope(7, "doc-A"))
	if err != nil || found {
		t.Fatalf("expected not found, got %v, %v", found, err)
	}
}

func TestDocumentScopeStoresNoPart(t *testing.T) {
	conn := newFake()
	s := NewLayerDBStorageWithConnection(conn, WithTablePrefix("t_"))
	if err := s.Insert(context.Background(), "raw", layer.DocumentScope(1, "d"), []byte(`{}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	call := conn.execs[0]
	if strings.Contains(call.sql, "ON CONFLICT") || !strings.Contains(call.sql, `"t_raw"`) {
		t.Fatalf("unexpected sql %q", call.sql)
	}
	if call.args[2] != store.NoPart || call.args[3] != store.NoPart {
		t.Fatalf("expected absent parts as %d, got %v", store.NoPart, call.args[2:4])
	}
}

func TestInsertDuplicateIsWriteFailed(t *testing.T) {
	conn := newFake()
	conn.execErr = &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	s := NewLayerDBStorageWithConnection(conn)
	err := s.Insert(context.Background(), "raw", layer.DocumentScope(1, "d"), []byte(`{}`))
	if !errors.Is(err, layer.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
}

func TestUnknownCollection(t *testing.T) {
	conn := newFake()
	s := NewLayerDBStorageWithConnection(conn)
	err := s.Upsert(context.Background(), "tokens", layer.DocumentScope(1, "d"), nil)
	if !errors.Is(err, layer.ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer, got %v", err)
	}
	if len(conn.execs) != 0 {
		t.Fatalf("expected no statement, got %d", len(conn.execs))
	}
}

func TestEnsureIndexesLocksAndCreatesEveryTable(t *testing.T) {
	conn := newFake()
	s := NewLayerDBStorageWithConnection(conn)
	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !strings.Contains(conn.execs[0].sql, "pg_advisory_xact_lock") {
		t.Fatalf("expected advisory lock first, got %q", conn.execs[0].sql)
	}
	want := 1 + 2*len(store.Collections())
	if len(conn.execs) != want {
		t.Fatalf("expected %d statements, got %d", want, len(conn.execs))
	}
	if !strings.Contains(conn.execs[len(conn.execs)-1].sql, `"naf_causalrelations_sentence_idx"`) {
		t.Fatalf("unexpected last statement %q", conn.execs[len(conn.execs)-1].sql)
	}
}

func TestBuildWhere(t *testing.T) {
	para, sent := 2, 5
	cases := []struct {
		name  string
		f     store.Filter
		where string
		args  []any
	}{
		{"document", store.DocumentFilter(1, "d"), "session_id = $1 AND doc_id = $2", []any{1, "d"}},
		{"paragraph", store.Filter{SessionID: 1, DocID: "d", Paragraph: &para}, "session_id = $1 AND doc_id = $2 AND paragraph = $3", []any{1, "d", 2}},
		{"sentence", store.Filter{SessionID: 1, DocID: "d", Sentence: &sent}, "session_id = $1 AND doc_id = $2 AND sentence = $3", []any{1, "d", 5}},
		{"both", store.Filter{SessionID: 1, DocID: "d", Paragraph: &para, Sentence: &sent}, "session_id = $1 AND doc_id = $2 AND paragraph = $3 AND sentence = $4", []any{1, "d", 2, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildWhere(tc.f)
			if where != tc.where {
				t.Fatalf("where = %q, want %q", where, tc.where)
			}
			if !reflect.DeepEqual(args, tc.args) {
				t.Fatalf("args = %v, want %v", args, tc.args)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		write bool
		want  error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, layer.ErrWriteFailed},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true, layer.ErrStoreUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true, layer.ErrStoreUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, false, layer.ErrStoreUnavailable},
		{"other write", &pgconn.PgError{Code: "22P02"}, true, layer.ErrWriteFailed},
		{"other read", &pgconn.PgError{Code: "22P02"}, false, layer.ErrStoreUnavailable},
		{"plain write", errors.New("boom"), true, layer.ErrWriteFailed},
		{"canceled", context.Canceled, true, context.Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err, tc.write); !errors.Is(got, tc.want) {
				t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
	if classify(nil, true) != nil {
		t.Fatal("expected nil for nil error")
	}
}
