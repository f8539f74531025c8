// Package storage provides object storage implementations for document artifacts.
package storage

import (
	"context"
	"errors"
	"strings"
	"sync"

	billingapp "github.com/campusbill/backend/internal/application/billing"
)

// StubArtifactStorage is an in-memory implementation of ArtifactStore.
// Use this for development until a real storage backend (S3, RustFS, etc.)
// is configured.
type StubArtifactStorage struct {
	// Bucket is the bucket name used in generated references.
	// Defaults to "campusbill-dev" if not set.
	Bucket string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewStubArtifactStorage creates a new StubArtifactStorage
func NewStubArtifactStorage() *StubArtifactStorage {
	return &StubArtifactStorage{
		Bucket:  "campusbill-dev",
		objects: make(map[string][]byte),
	}
}

// Ensure StubArtifactStorage implements ArtifactStore
var _ billingapp.ArtifactStore = (*StubArtifactStorage)(nil)

// Put stores the document in memory and returns its canonical reference.
func (s *StubArtifactStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return "s3://" + s.Bucket + "/" + key, nil
}

// Delete removes a stored document. Deleting a missing key succeeds.
func (s *StubArtifactStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// KeyFromRef extracts the object key from a canonical reference.
func (s *StubArtifactStorage) KeyFromRef(ref string) (string, bool) {
	prefix := "s3://" + s.Bucket + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// Get returns a stored document. Intended for tests and development tooling.
func (s *StubArtifactStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}
