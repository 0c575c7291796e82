// Package audio holds narrated audio in memory behind opaque handles
// and plays it back through an external player.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/clauseguard/internal/cache"
	"github.com/ppiankov/clauseguard/internal/model"
)

// ErrReleased is returned when a handle has been released
var ErrReleased = errors.New("audio handle released")

// Store registers audio payloads under handles. Bytes never expire on their
// own; Release or ReleaseAll frees them.
type Store struct {
	blobs cache.Cache
	log   *slog.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewStore creates a store over the given blob cache
func NewStore(blobs cache.Cache, log *slog.Logger) *Store {
	return &Store{
		blobs: blobs,
		log:   log,
		live:  make(map[string]struct{}),
	}
}

// Put registers data and returns a handle describing it
func (s *Store) Put(data []byte, contentType, filename string) (*model.AudioArtifact, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}

	handle := uuid.NewString()
	if err := s.blobs.Set(cache.BlobKey(handle), data, cache.NoExpiration); err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	s.mu.Lock()
	s.live[handle] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("audio handle created", "handle", handle, "bytes", len(data), "content_type", contentType)

	return &model.AudioArtifact{
		Handle:      handle,
		ContentType: contentType,
		Size:        int64(len(data)),
		Filename:    filename,
		ReceivedAt:  time.Now().UTC(),
	}, nil
}

// Open returns the bytes behind a handle
func (s *Store) Open(handle string) ([]byte, error) {
	s.mu.Lock()
	_, ok := s.live[handle]
	s.mu.Unlock()
	if !ok {
		return nil, ErrReleased
	}

	data, found := s.blobs.Get(cache.BlobKey(handle))
	if !found {
		// Evicted behind our back (e.g. the cache was flushed)
		s.forget(handle)
		return nil, ErrReleased
	}
	return data, nil
}

// Release frees the bytes behind a handle. Releasing twice is harmless.
func (s *Store) Release(handle string) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	_, ok := s.live[handle]
	delete(s.live, handle)
	s.mu.Unlock()
	if !ok {
		return
	}

	_ = s.blobs.Delete(cache.BlobKey(handle))
	s.log.Debug("audio handle released", "handle", handle)
}

// Live returns the number of unreleased handles
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ReleaseAll frees every handle (process teardown)
func (s *Store) ReleaseAll() {
	s.mu.Lock()
	handles := make([]string, 0, len(s.live))
	for h := range s.live {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.Release(h)
	}
}

func (s *Store) forget(handle string) {
	s.mu.Lock()
	delete(s.live, handle)
	s.mu.Unlock()
}
