package testutil

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/starford/schemafill/internal/backfill"
)

// ErrInjected is returned by MemStore operations configured to fail.
var ErrInjected = errors.New("injected failure")

// MemStore is an in-memory backfill.Store for tests. Collections keep
// insertion order.
type MemStore struct {
	mu          sync.Mutex
	collections map[string][]backfill.Document

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error
	// FailApplyAt makes the n-th Apply call (1-based) fail.
	FailApplyAt int

	opened  int
	closed  int
	applies int
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string][]backfill.Document)}
}

// Insert adds documents to coll, creating it if needed.
func (s *MemStore) Insert(coll string, docs ...backfill.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[coll]; !ok {
		s.collections[coll] = nil
	}
	for _, d := range docs {
		s.collections[coll] = append(s.collections[coll], maps.Clone(d))
	}
}

// Docs returns copies of every document in coll.
func (s *MemStore) Docs(coll string) []backfill.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backfill.Document, 0, len(s.collections[coll]))
	for _, d := range s.collections[coll] {
		out = append(out, maps.Clone(d))
	}
	return out
}

// Opened returns how many connections were opened.
func (s *MemStore) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed returns how many connections were closed.
func (s *MemStore) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Applies returns how many Apply calls were made.
func (s *MemStore) Applies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applies
}

// Connect implements backfill.Store.
func (s *MemStore) Connect(ctx context.Context) (backfill.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConnectErr != nil {
		return nil, s.ConnectErr
	}
	s.opened++
	return &memConn{s: s}, nil
}

type memConn struct {
	s *MemStore
}

func (c *memConn) Probe(_ context.Context, collection string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.collections[collection]; !ok {
		return fmt.Errorf("ns not found: %s", collection)
	}
	return nil
}

func (c *memConn) Scan(ctx context.Context, collection string, fn func(backfill.Document) error) error {
	snapshot := c.s.Docs(collection)
	for _, d := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *memConn) Apply(_ context.Context, collection string, updates []backfill.Update) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.applies++
	if c.s.FailApplyAt > 0 && c.s.applies == c.s.FailApplyAt {
		return 0, ErrInjected
	}

	var modified int64
	docs := c.s.collections[collection]
	for _, u := range updates {
		for _, d := range docs {
			if !reflect.DeepEqual(d[backfill.IDField], u.ID) {
				continue
			}
			changed := false
			for k, v := range u.Set {
				if cur, ok := d[k]; ok && reflect.DeepEqual(cur, v) {
					continue
				}
				d[k] = v
				changed = true
			}
			if changed {
				modified++
			}
			break
		}
	}
	return modified, nil
}

func (c *memConn) Close(context.Context) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.closed++
	return nil
}
