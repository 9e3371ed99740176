// Package cache stores LLM responses keyed by request digest with TTL and
// a bounded entry count.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/content-machine/core/internal/models"
	"gorm.io/gorm"
)

// Store is a TTL response cache backed by the shared database.
type Store struct {
	db         *gorm.DB
	ttl        time.Duration
	maxEntries int

	mu     sync.Mutex
	hits   int64
	misses int64

	now func() time.Time
}

// NewStore creates a cache store. ttlSeconds bounds entry age, maxEntries
// bounds table size.
func NewStore(db *gorm.DB, ttlSeconds, maxEntries int) *Store {
	return &Store{
		db:         db,
		ttl:        time.Duration(ttlSeconds) * time.Second,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key. Expired or corrupt entries are
// deleted and reported absent. The TTL is never refreshed on read.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	var entry models.CacheEntryModel
	err := s.db.Where("cache_key = ?", key).First(&entry).Error
	if err != nil {
		s.recordMiss()
		return nil, false
	}

	if !entry.ExpiresAt.After(s.now()) {
		s.db.Where("cache_key = ?", key).Delete(&models.CacheEntryModel{})
		s.recordMiss()
		return nil, false
	}

	if !json.Valid([]byte(entry.Value)) {
		s.db.Where("cache_key = ?", key).Delete(&models.CacheEntryModel{})
		s.recordMiss()
		return nil, false
	}

	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
	return json.RawMessage(entry.Value), true
}

// Set upserts a value under key, then evicts the oldest-created entries
// beyond the configured maximum.
func (s *Store) Set(key string, value json.RawMessage) error {
	entry := models.CacheEntryModel{
		CacheKey:  key,
		Value:     string(value),
		ExpiresAt: s.now().Add(s.ttl),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cache_key = ?", key).Delete(&models.CacheEntryModel{}).Error; err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return s.enforceMaxEntries()
}

func (s *Store) enforceMaxEntries() error {
	var count int64
	if err := s.db.Model(&models.CacheEntryModel{}).Count(&count).Error; err != nil {
		return fmt.Errorf("cache count: %w", err)
	}
	excess := count - int64(s.maxEntries)
	if excess <= 0 {
		return nil
	}

	var victims []models.CacheEntryModel
	if err := s.db.Order("created_at asc").Limit(int(excess)).Find(&victims).Error; err != nil {
		return fmt.Errorf("cache evict scan: %w", err)
	}
	ids := make([]string, 0, len(victims))
	for _, v := range victims {
		ids = append(ids, v.ID)
	}
	if err := s.db.Where("id IN ?", ids).Delete(&models.CacheEntryModel{}).Error; err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

// Stats returns hit and miss counters for this process.
func (s *Store) Stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func (s *Store) recordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}
