// Package prefs persists the little local state that survives a restart:
// the session token and the preferred watch-list ordering.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spiecc/animetrack/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketPrefs = []byte("prefs")

// Fixed key names
const (
	KeyToken          = "token"
	KeyWatchListOrder = "watch_list_order"
)

// Store implements domain.Preferences using BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory copy for hot-path reads (promoted on access)
	cache map[string][]byte
}

var _ domain.Preferences = (*Store)(nil)

// Open opens (or creates) the bolt file at path.
// An empty path gives a memory-only store that forgets everything on exit.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Store) get(key string) ([]byte, bool) {
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return data, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return data, true
}

func (s *Store) set(key string, data []byte) error {
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte(key), data)
	})
}

func (s *Store) delete(key string) error {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// === Session token ===

func (s *Store) Token() (string, bool) {
	data, ok := s.get(KeyToken)
	if !ok || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (s *Store) SaveToken(token string) error {
	return s.set(KeyToken, []byte(token))
}

func (s *Store) ClearToken() error {
	return s.delete(KeyToken)
}

// === Watch-list ordering ===

// WatchListOrder returns the saved title order, nil if none or unreadable
func (s *Store) WatchListOrder() []string {
	data, ok := s.get(KeyWatchListOrder)
	if !ok {
		return nil
	}
	var titles []string
	if err := json.Unmarshal(data, &titles); err != nil {
		return nil
	}
	return titles
}

func (s *Store) SaveWatchListOrder(titles []string) error {
	if titles == nil {
		titles = []string{}
	}
	data, err := json.Marshal(titles)
	if err != nil {
		return err
	}
	return s.set(KeyWatchListOrder, data)
}
