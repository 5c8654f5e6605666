package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// LayerDBStorage implements store.LayerStore on PostgreSQL. Every collection
// is a table keyed by (session_id, doc_id, paragraph, sentence); absent
// paragraph and sentence are stored as -1.
type LayerDBStorage struct {
	conn        pgxIConn
	tablePrefix string
}

var _ store.LayerStore = (*LayerDBStorage)(nil)

type LayerDBStorageOption func(*LayerDBStorage)

// WithTablePrefix sets the prefix of every table name. Defaults to "naf_".
func WithTablePrefix(prefix string) LayerDBStorageOption {
	return func(s *LayerDBStorage) {
		s.tablePrefix = prefix
	}
}

// NewLayerDBStorageWithConnection creates a LayerDBStorage using an existing
// connection or pool.
func NewLayerDBStorageWithConnection(conn pgxIConn, opts ...LayerDBStorageOption) *LayerDBStorage {
	s := &LayerDBStorage{
		conn:        conn,
		tablePrefix: "naf_",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *LayerDBStorage) table(collection string) (string, error) {
	if err := store.CheckCollection(collection); err != nil {
		return "", err
	}
	return pgxv5.Identifier{s.tablePrefix + strings.ToLower(collection)}.Sanitize(), nil
}

func (s *LayerDBStorage) Upsert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	return s.write(ctx, upsertSQL, collection, scope, payload)
}

func (s *LayerDBStorage) Insert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	return s.write(ctx, insertSQL, collection, scope, payload)
}

func (s *LayerDBStorage) write(ctx context.Context, query, collection string, scope layer.Scope, payload []byte) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, fmt.Sprintf(query, table),
		scope.SessionID, scope.DocID, store.PartValue(scope.Paragraph), store.PartValue(scope.Sentence), payload)
	if err != nil {
		return classify(err, true)
	}
	logger.Debug("[Store][pgx] Wrote record", "collection", collection, "scope", scope.String(), "bytes", len(payload))
	return nil
}

func (s *LayerDBStorage) Get(ctx context.Context, collection string, scope layer.Scope) ([]byte, bool, error) {
	table, err := s.table(collection)
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = s.conn.QueryRow(ctx, fmt.Sprintf(getSQL, table),
		scope.SessionID, scope.DocID, store.PartValue(scope.Paragraph), store.PartValue(scope.Sentence)).Scan(&payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err, false)
	}
	return payload, true, nil
}

func (s *LayerDBStorage) Find(ctx context.Context, collection string, f store.Filter, fn func(store.Entry) error) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}
	where, args := buildWhere(f)
	rows, err := s.conn.Query(ctx, fmt.Sprintf(findSQL, table, where), args...)
	if err != nil {
		return classify(err, false)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			session        int64
			doc            string
			para, sentence int32
			payload        []byte
		)
		if err := rows.Scan(&session, &doc, &para, &sentence, &payload); err != nil {
			return classify(err, false)
		}
		e := store.Entry{
			Scope: layer.Scope{
				SessionID: int(session),
				DocID:     doc,
				Paragraph: store.PartPtr(int(para)),
				Sentence:  store.PartPtr(int(sentence)),
			},
			Payload: payload,
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return classify(err, false)
	}
	return nil
}

func (s *LayerDBStorage) Remove(ctx context.Context, collection string, f store.Filter) (int64, error) {
	table, err := s.table(collection)
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(f)
	tag, err := s.conn.Exec(ctx, fmt.Sprintf(removeSQL, table, where), args...)
	if err != nil {
		return 0, classify(err, true)
	}
	return tag.RowsAffected(), nil
}

func (s *LayerDBStorage) Close() error {
	if c, ok := s.conn.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

// buildWhere renders the filter as a WHERE clause body with positional
// arguments.
func buildWhere(f store.Filter) (string, []any) {
	clauses := []string{"session_id = $1", "doc_id = $2"}
	args := []any{f.SessionID, f.DocID}
	if f.Paragraph != nil {
		args = append(args, *f.Paragraph)
		clauses = append(clauses, fmt.Sprintf("paragraph = $%d", len(args)))
	}
	if f.Sentence != nil {
		args = append(args, *f.Sentence)
		clauses = append(clauses, fmt.Sprintf("sentence = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

const upsertSQL = `
INSERT INTO %s (session_id, doc_id, paragraph, sentence, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (session_id, doc_id, paragraph, sentence) DO UPDATE
SET payload    = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at;
`

const insertSQL = `
INSERT INTO %s (session_id, doc_id, paragraph, sentence, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, now());
`

const getSQL = `
SELECT payload FROM %s
WHERE session_id = $1 AND doc_id = $2 AND paragraph = $3 AND sentence = $4;
`

const findSQL = `
SELECT session_id, doc_id, paragraph, sentence, payload FROM %s
WHERE %s
ORDER BY paragraph, sentence;
`

const removeSQL = `
DELETE FROM %s
WHERE %s;
`
