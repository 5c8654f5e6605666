package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
)

// schemaLockKey serializes schema changes between processes.
const schemaLockKey int64 = 0x6e6166 // "naf"

// EnsureIndexes creates every table with its composite key and sentence
// index. It runs in one transaction holding an advisory lock, so concurrent
// callers wait for each other and then find everything in place.
func (s *LayerDBStorage) EnsureIndexes(ctx context.Context) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return classify(err, false)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
		return classify(err, false)
	}
	for _, c := range store.Collections() {
		for _, stmt := range s.schemaStatements(c) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create %s: %w", c, classify(err, true))
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(err, true)
	}
	logger.Debug("[Store][pgx] Schema ready", "tables", len(store.Collections()))
	return nil
}

func (s *LayerDBStorage) schemaStatements(collection string) []string {
	name := s.tablePrefix + strings.ToLower(collection)
	table := pgxv5.Identifier{name}.Sanitize()
	index := pgxv5.Identifier{name + "_sentence_idx"}.Sanitize()
	return []string{
		fmt.Sprintf(createTableSQL, table),
		fmt.Sprintf(createSentenceIndexSQL, index, table),
	}
}

// Drop removes every table.
func (s *LayerDBStorage) Drop(ctx context.Context) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return classify(err, false)
	}
	defer tx.Rollback(ctx)

	for _, c := range store.Collections() {
		table, err := s.table(c)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return classify(err, true)
		}
	}
	return classify(tx.Commit(ctx), true)
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    session_id BIGINT      NOT NULL,
    doc_id     TEXT        NOT NULL,
    paragraph  INTEGER     NOT NULL DEFAULT -1,
    sentence   INTEGER     NOT NULL DEFAULT -1,
    payload    JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, doc_id, paragraph, sentence)
);
`

const createSentenceIndexSQL = `
CREATE INDEX IF NOT EXISTS %s ON %s (session_id, doc_id, sentence);
`
