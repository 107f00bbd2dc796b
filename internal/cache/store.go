package cache

import (
	"fmt"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PosterStore holds thumbnails keyed by movie ID. Implementations must be
// safe for concurrent use.
type PosterStore interface {
	Get(movieID int) (image.Image, bool)
	Add(movieID int, img image.Image)
	Len() int
}

// MapStore is an unbounded, growth-only store. Entries are never evicted.
type MapStore struct {
	mu     sync.RWMutex
	memory map[int]image.Image
}

func NewMapStore() *MapStore {
	return &MapStore{
		memory: make(map[int]image.Image),
	}
}

func (s *MapStore) Get(movieID int) (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.memory[movieID]
	return img, ok
}

func (s *MapStore) Add(movieID int, img image.Image) {
	s.mu.Lock()
	s.memory[movieID] = img
	s.mu.Unlock()
}

func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}

// LRUStore keeps at most capacity thumbnails, evicting the least recently used.
type LRUStore struct {
	cache *lru.Cache[int, image.Image]
}

func NewLRUStore(capacity int) (*LRUStore, error) {
	c, err := lru.New[int, image.Image](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create poster LRU (capacity %d): %w", capacity, err)
	}
	return &LRUStore{cache: c}, nil
}

func (s *LRUStore) Get(movieID int) (image.Image, bool) {
	return s.cache.Get(movieID)
}

func (s *LRUStore) Add(movieID int, img image.Image) {
	s.cache.Add(movieID, img)
}

func (s *LRUStore) Len() int {
	return s.cache.Len()
}

// NewStore returns an LRUStore when capacity is positive and a MapStore otherwise.
func NewStore(capacity int) (PosterStore, error) {
	if capacity <= 0 {
		return NewMapStore(), nil
	}
	return NewLRUStore(capacity)
}
