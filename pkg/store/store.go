// Package store provides the in-memory word store held by the wordtally server.
//
// The store maps a word to an opaque byte value (the word's decimal count,
// written by clients). Every operation takes one mutex for its whole
// duration; there is no striping, eviction, expiration or persistence.
// A compound read-modify-write issued by a client as a Get followed by a Set
// is therefore not atomic: only each individual call is.
//
// Example usage:
//
//	s := store.New()
//	if err := s.Set("cat", []byte("1")); err != nil {
//		log.Fatal(err)
//	}
//	value, ok := s.Get("cat")
//
// Entries live in a patricia trie, which shares storage between words with
// common prefixes and can be walked for reporting.
package store

import (
	"errors"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"
)

// ErrEmptyKey is returned by Set for the empty key.
var ErrEmptyKey = errors.New("store: empty key")

// Store is a mutex-guarded word -> value map. The zero value is not usable;
// create stores with New.
type Store struct {
	trie *patricia.Trie // word -> []byte
	mu   sync.Mutex     // guards trie and size
	size int
}

// New creates an empty Store.
func New() *Store {
	return &Store{trie: patricia.NewTrie()}
}

// Get returns a copy of the value stored for key and whether it was present.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.trie.Get(patricia.Prefix(key))
	if item == nil {
		return nil, false
	}
	value, ok := item.([]byte)
	if !ok {
		return nil, false
	}
	return clone(value), true
}

// Set stores a copy of value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := patricia.Prefix(key)
	if s.trie.Get(prefix) == nil {
		s.size++
	}
	s.trie.Set(prefix, clone(value))
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Walk calls fn for every entry while holding the lock. fn must not call back into the store. Returning an error from fn
// stops the walk and the error is returned.
func (s *Store) Walk(fn func(key string, value []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		value, _ := item.([]byte)
		return fn(string(prefix), value)
	})
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
