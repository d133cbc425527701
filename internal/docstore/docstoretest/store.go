// Package docstoretest provides an in-memory docstore.Store for tests. Writes
// are delivered to watches synchronously, before the write call returns.
package docstoretest

import (
	"chatapp-client/internal/docstore"
	"context"
	"sort"
	"strings"
	"sync"
)

const (
	OpGet    = "get"
	OpSet    = "set"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
)

type failure struct {
	op     string
	prefix string
	err    error
}

type watch struct {
	query  docstore.Query
	fn     docstore.Listener
	active bool
	// serializes deliveries to fn
	deliver sync.Mutex
}

type Store struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	watches  []*watch
	failures []failure
	opened   map[string]int
	closed   map[string]int
	ops      []string
}

func New() *Store {
	return &Store{
		docs:   make(map[string]map[string]any),
		opened: make(map[string]int),
		closed: make(map[string]int),
	}
}

// FailOn makes every op on a path starting with prefix return err.
func (s *Store) FailOn(op string, prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, prefix: prefix, err: err})
}

// ClearFailures drops everything registered with FailOn.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

func (s *Store) failure(op string, path string) error {
	for _, f := range s.failures {
		if f.op == op && strings.HasPrefix(path, f.prefix) {
			return f.err
		}
	}
	return nil
}

// Ops lists "op path" for every call made so far, in order.
func (s *Store) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// WatchesOpened counts Watch calls on a collection path.
func (s *Store) WatchesOpened(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[path]
}

// WatchesClosed counts unsubscribes of watches on a collection path.
func (s *Store) WatchesClosed(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[path]
}

// ActiveQueries returns the queries of watches still open on path.
func (s *Store) ActiveQueries(path string) []docstore.Query {
	s.mu.Lock()
	defer s.mu.Unlock()

	var queries []docstore.Query
	for _, w := range s.watches {
		if w.active && w.query.Path == path {
			queries = append(queries, w.query)
		}
	}
	return queries
}

// ActiveWatches counts every open watch.
func (s *Store) ActiveWatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, w := range s.watches {
		if w.active {
			count++
		}
	}
	return count
}

func (s *Store) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[strings.Trim(path, "/")]
	return ok
}

func (s *Store) Get(_ context.Context, path string) (docstore.Document, error) {
	path = strings.Trim(path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, OpGet+" "+path)

	if err := s.failure(OpGet, path); err != nil {
		return docstore.Document{}, err
	}

	data, ok := s.docs[path]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: docstore.ID(path), Data: clone(data)}, nil
}

func (s *Store) Set(_ context.Context, path string, data map[string]any) error {
	path = strings.Trim(path, "/")

	s.mu.Lock()
	s.ops = append(s.ops, OpSet+" "+path)
	if err := s.failure(OpSet, path); err != nil {
		s.mu.Unlock()
		return err
	}
	s.docs[path] = clone(data)
	s.mu.Unlock()

	s.notify(docstore.Parent(path))
	return nil
}

func (s *Store) Update(_ context.Context, path string, fields map[string]any) error {
	path = strings.Trim(path, "/")

	s.mu.Lock()
	s.ops = append(s.ops, OpUpdate+" "+path)
	if err := s.failure(OpUpdate, path); err != nil {
		s.mu.Unlock()
		return err
	}
	data, ok := s.docs[path]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	for k, v := range clone(fields) {
		data[k] = v
	}
	s.mu.Unlock()

	s.notify(docstore.Parent(path))
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	path = strings.Trim(path, "/")

	s.mu.Lock()
	s.ops = append(s.ops, OpDelete+" "+path)
	if err := s.failure(OpDelete, path); err != nil {
		s.mu.Unlock()
		return err
	}
	_, existed := s.docs[path]
	delete(s.docs, path)
	s.mu.Unlock()

	if existed {
		s.notify(docstore.Parent(path))
	}
	return nil
}

func (s *Store) List(_ context.Context, q docstore.Query) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, OpList+" "+q.Path)

	if err := s.failure(OpList, q.Path); err != nil {
		return nil, err
	}
	return s.list(q), nil
}

// list expects s.mu to be held.
func (s *Store) list(q docstore.Query) []docstore.Document {
	collection := strings.Trim(q.Path, "/")

	docs := []docstore.Document{}
	for path, data := range s.docs {
		if docstore.Parent(path) != collection {
			continue
		}
		id := docstore.ID(path)
		if len(q.IDs) > 0 && !contains(q.IDs, id) {
			continue
		}
		docs = append(docs, docstore.Document{ID: id, Data: clone(data)})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (s *Store) Watch(q docstore.Query, fn docstore.Listener) docstore.Unsubscribe {
	w := &watch{query: q, fn: fn, active: true}

	s.mu.Lock()
	s.watches = append(s.watches, w)
	s.opened[q.Path]++
	s.mu.Unlock()

	s.deliver(w)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			w.active = false
			s.closed[q.Path]++
		})
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	var targets []*watch
	for _, w := range s.watches {
		if w.active && strings.Trim(w.query.Path, "/") == collection {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		s.deliver(w)
	}
}

func (s *Store) deliver(w *watch) {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	s.mu.Lock()
	if !w.active {
		s.mu.Unlock()
		return
	}
	docs := s.list(w.query)
	s.mu.Unlock()

	w.fn(docs, nil)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func clone(data map[string]any) map[string]any {
	copied, err := docstore.Encode(data)
	if err != nil || copied == nil {
		return map[string]any{}
	}
	return copied
}
