// Package memory is a LayerStore kept in process memory, for tests and
// local runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
)

type key struct {
	session   int
	doc       string
	paragraph int
	sentence  int
}

func keyOf(s layer.Scope) key {
	return key{s.SessionID, s.DocID, store.PartValue(s.Paragraph), store.PartValue(s.Sentence)}
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[key][]byte
	closed      bool
}

var _ store.LayerStore = (*Store)(nil)

func New() *Store {
	return &Store{collections: map[string]map[key][]byte{}}
}

func (s *Store) check(collection string) error {
	if s.closed {
		return fmt.Errorf("%w: store closed", layer.ErrStoreUnavailable)
	}
	return store.CheckCollection(collection)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", layer.ErrStoreUnavailable)
	}
	for _, c := range store.Collections() {
		if _, ok := s.collections[c]; !ok {
			s.collections[c] = map[key][]byte{}
		}
	}
	return nil
}

func (s *Store) bucket(collection string) map[key][]byte {
	b, ok := s.collections[collection]
	if !ok {
		b = map[key][]byte{}
		s.collections[collection] = b
	}
	return b
}

func (s *Store) Upsert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(collection); err != nil {
		return err
	}
	s.bucket(collection)[keyOf(scope)] = slices.Clone(payload)
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(collection); err != nil {
		return err
	}
	b := s.bucket(collection)
	k := keyOf(scope)
	if _, ok := b[k]; ok {
		return fmt.Errorf("%w: %s already holds a record for %s", layer.ErrWriteFailed, collection, scope)
	}
	b[k] = slices.Clone(payload)
	return nil
}

func (s *Store) Get(ctx context.Context, collection string, scope layer.Scope) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(collection); err != nil {
		return nil, false, err
	}
	p, ok := s.collections[collection][keyOf(scope)]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(p), true, nil
}

func (s *Store) Find(ctx context.Context, collection string, f store.Filter, fn func(store.Entry) error) error {
	s.mu.RLock()
	if err := s.check(collection); err != nil {
		s.mu.RUnlock()
		return err
	}
	var entries []store.Entry
	for k, p := range s.collections[collection] {
		scope := layer.Scope{
			SessionID: k.session,
			DocID:     k.doc,
			Paragraph: store.PartPtr(k.paragraph),
			Sentence:  store.PartPtr(k.sentence),
		}
		if f.Match(scope) {
			entries = append(entries, store.Entry{Scope: scope, Payload: slices.Clone(p)})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b store.Entry) int {
		return store.CompareScopes(a.Scope, b.Scope)
	})
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(collection); err != nil {
		return 0, err
	}
	var n int64
	for k := range s.collections[collection] {
		scope := layer.Scope{SessionID: k.session, DocID: k.doc, Paragraph: store.PartPtr(k.paragraph), Sentence: store.PartPtr(k.sentence)}
		if f.Match(scope) {
			delete(s.collections[collection], k)
			n++
		}
	}
	return n, nil
}

func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", layer.ErrStoreUnavailable)
	}
	s.collections = map[string]map[key][]byte{}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
