// Package bolt is an embedded LayerStore on a single bbolt file. Each
// collection is a bucket; keys sort by session, document, paragraph and
// sentence so document, paragraph and sentence reads are prefix scans.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

// entryVersion is the version of the value envelope.
const entryVersion = 1

type entry struct {
	Version   uint32 `msgpack:"version"`
	UpdatedAt int64  `msgpack:"updated_at"`
	Payload   []byte `msgpack:"payload"`
}

type Store struct {
	db   *bolt.DB
	path string
}

var _ store.LayerStore = (*Store)(nil)

type Option func(*bolt.Options)

// WithTimeout bounds how long Open waits for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(o *bolt.Options) {
		o.Timeout = d
	}
}

// Open opens or creates the database file at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %v", layer.ErrStoreUnavailable, path, err)
	}
	bo := &bolt.Options{Timeout: 5 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(bo)
		}
	}
	db, err := bolt.Open(path, 0o600, bo)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt at %s: %v", layer.ErrStoreUnavailable, path, err)
	}
	logger.Debug("[Store][bolt] Opened database", "path", path)
	return &Store{db: db, path: path}, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, c := range store.Collections() {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return fmt.Errorf("create bucket %q: %w", c, err)
			}
		}
		return nil
	})
	return classify(err, false)
}

func (s *Store) Upsert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	return s.put(ctx, collection, scope, payload, false)
}

func (s *Store) Insert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	return s.put(ctx, collection, scope, payload, true)
}

var errExists = errors.New("scope already holds a record")

func (s *Store) put(ctx context.Context, collection string, scope layer.Scope, payload []byte, exclusive bool) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	k, err := encodeKey(scope)
	if err != nil {
		return err
	}
	v, err := msgpack.Marshal(entry{Version: entryVersion, UpdatedAt: time.Now().UnixMilli(), Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", layer.ErrWriteFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		if exclusive && b.Get(k) != nil {
			return errExists
		}
		return b.Put(k, v)
	})
	if errors.Is(err, errExists) {
		return fmt.Errorf("%w: %s already holds a record for %s", layer.ErrWriteFailed, collection, scope)
	}
	return classify(err, true)
}

func (s *Store) Get(ctx context.Context, collection string, scope layer.Scope) ([]byte, bool, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, false, err
	}
	k, err := encodeKey(scope)
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	var found bool
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		v := b.Get(k)
		if v == nil {
			return nil
		}
		e, err := decodeEntry(v)
		if err != nil {
			return err
		}
		payload, found = e.Payload, true
		return nil
	})
	if err != nil {
		return nil, false, classify(err, false)
	}
	return payload, found, nil
}

func (s *Store) Find(ctx context.Context, collection string, f store.Filter, fn func(store.Entry) error) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	prefix, err := filterPrefix(f)
	if err != nil {
		return err
	}

	// collect first so fn never runs inside the read transaction
	var entries []store.Entry
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			scope, err := decodeKey(k)
			if err != nil {
				return err
			}
			if !f.Match(scope) {
				continue
			}
			e, err := decodeEntry(v)
			if err != nil {
				return err
			}
			entries = append(entries, store.Entry{Scope: scope, Payload: e.Payload})
		}
		return nil
	})
	if err != nil {
		return classify(err, false)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, collection string, f store.Filter) (int64, error) {
	if err := store.CheckCollection(collection); err != nil {
		return 0, err
	}
	prefix, err := filterPrefix(f)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		var doomed [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			scope, err := decodeKey(k)
			if err != nil {
				return err
			}
			if f.Match(scope) {
				doomed = append(doomed, bytes.Clone(k))
			}
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, classify(err, true)
	}
	return n, nil
}

func (s *Store) Drop(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, c := range store.Collections() {
			if err := tx.DeleteBucket([]byte(c)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
		}
		return nil
	})
	return classify(err, true)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

func decodeEntry(v []byte) (entry, error) {
	var e entry
	if err := msgpack.Unmarshal(v, &e); err != nil {
		return entry{}, fmt.Errorf("%w: decode entry: %v", layer.ErrMalformedRecord, err)
	}
	if e.Version > entryVersion {
		return entry{}, fmt.Errorf("%w: entry version %d", layer.ErrMalformedRecord, e.Version)
	}
	return e, nil
}

func classify(err error, write bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, layer.ErrMalformedRecord), errors.Is(err, layer.ErrWriteFailed):
		return err
	case errors.Is(err, bolt.ErrDatabaseNotOpen), errors.Is(err, bolt.ErrTimeout):
		return fmt.Errorf("%w: %v", layer.ErrStoreUnavailable, err)
	case write:
		return fmt.Errorf("%w: %v", layer.ErrWriteFailed, err)
	default:
		return fmt.Errorf("%w: %v", layer.ErrStoreUnavailable, err)
	}
}

// Keys: 8 byte session, document id, 0x00, 8 byte paragraph, 8 byte
// sentence. Integers are big endian with the sign bit flipped so -1 (absent)
// sorts before every present value.

func putInt(buf []byte, v int) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(int64(v))^(1<<63))
}

func getInt(b []byte) int {
	return int(int64(binary.BigEndian.Uint64(b) ^ (1 << 63)))
}

func docPrefix(session int, doc string) ([]byte, error) {
	if strings.IndexByte(doc, 0) >= 0 {
		return nil, fmt.Errorf("%w: document id contains a NUL byte", layer.ErrMalformedRecord)
	}
	buf := make([]byte, 0, 8+len(doc)+1+16)
	buf = putInt(buf, session)
	buf = append(buf, doc...)
	return append(buf, 0), nil
}

func encodeKey(s layer.Scope) ([]byte, error) {
	buf, err := docPrefix(s.SessionID, s.DocID)
	if err != nil {
		return nil, err
	}
	buf = putInt(buf, store.PartValue(s.Paragraph))
	return putInt(buf, store.PartValue(s.Sentence)), nil
}

func decodeKey(k []byte) (layer.Scope, error) {
	if len(k) < 8+1+16 {
		return layer.Scope{}, fmt.Errorf("%w: short key", layer.ErrMalformedRecord)
	}
	end := len(k) - 16
	if k[end-1] != 0 {
		return layer.Scope{}, fmt.Errorf("%w: bad key separator", layer.ErrMalformedRecord)
	}
	return layer.Scope{
		SessionID: getInt(k[:8]),
		DocID:     string(k[8 : end-1]),
		Paragraph: store.PartPtr(getInt(k[end : end+8])),
		Sentence:  store.PartPtr(getInt(k[end+8:])),
	}, nil
}

func filterPrefix(f store.Filter) ([]byte, error) {
	buf, err := docPrefix(f.SessionID, f.DocID)
	if err != nil {
		return nil, err
	}
	if f.Paragraph != nil {
		buf = putInt(buf, *f.Paragraph)
		if f.Sentence != nil {
			buf = putInt(buf, *f.Sentence)
		}
	}
	return buf, nil
}
