package storage

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryStorage keeps objects in a map. It exists for tests and local
// experiments; completion semantics mirror the MinIO implementation.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailPut, when set, makes every upload complete with this error.
	FailPut error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) OpenStream(ctx context.Context, key, contentType string) (*UploadStream, error) {
	if key == "" {
		return nil, &ProviderError{Op: "open", Key: key, Err: errors.New("empty object key")}
	}

	return newUploadStream(func(r io.Reader) (*UploadResult, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ProviderError{Op: "put", Key: key, Err: err}
		}
		if s.FailPut != nil {
			return nil, &ProviderError{Op: "put", Key: key, Retryable: true, Err: s.FailPut}
		}
		s.mu.Lock()
		s.objects[key] = data
		s.mu.Unlock()
		return &UploadResult{
			Size:   int64(len(data)),
			URL:    s.PublicURL(key),
			Key:    key,
			Format: contentType,
		}, nil
	}), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) PublicURL(key string) string {
	return "memory://" + key
}

func (s *MemoryStorage) Provider() string { return "memory" }

// Object returns a stored object's bytes.
func (s *MemoryStorage) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

// Len reports how many objects are stored.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
