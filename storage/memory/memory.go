// Package memory provides an in-process object store for tests and local
// development. It implements storage.Verifier and storage.Presigner.
package memory

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/xraph/reel/storage"
)

// Compile-time interface checks.
var (
	_ storage.Verifier  = (*Store)(nil)
	_ storage.Presigner = (*Store)(nil)
)

type object struct {
	size        int64
	contentType string
}

// Store holds object sizes keyed by storage key. Content is not retained.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
	headErr error
}

// New returns an empty store. baseURL prefixes issued upload URLs.
func New(baseURL string) *Store {
	return &Store{
		objects: make(map[string]object),
		baseURL: baseURL,
	}
}

// Put records an object of the given size.
func (s *Store) Put(key string, size int64, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{size: size, contentType: contentType}
}

// Delete removes an object.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

// FailHead makes every subsequent Head call return err. Pass nil to clear.
func (s *Store) FailHead(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headErr = err
}

// Head implements storage.Verifier.
func (s *Store) Head(_ context.Context, key string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.headErr != nil {
		return nil, s.headErr
	}
	o, ok := s.objects[key]
	if !ok {
		return &storage.Object{Key: key}, nil
	}
	return &storage.Object{Key: key, Exists: true, SizeBytes: o.size, ContentType: o.contentType}, nil
}

// PresignPut implements storage.Presigner. The URL is not signed.
func (s *Store) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (*storage.Upload, error) {
	expires := time.Now().Add(ttl).UTC()
	q := url.Values{}
	q.Set("expires", expires.Format(time.RFC3339))

	return &storage.Upload{
		URL:         s.baseURL + "/" + key + "?" + q.Encode(),
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   expires,
	}, nil
}
