package cache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/content-machine/core/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheEntryModel{}))
	return db
}

func TestGetMissThenHit(t *testing.T) {
	store := NewStore(newTestDB(t), 60, 100)

	_, ok := store.Get("k1")
	assert.False(t, ok)

	require.NoError(t, store.Set("k1", json.RawMessage(`{"a":1}`)))

	value, ok := store.Get("k1")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(value))

	hits, misses := store.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestSetOverwrites(t *testing.T) {
	store := NewStore(newTestDB(t), 60, 100)

	require.NoError(t, store.Set("k", json.RawMessage(`{"v":1}`)))
	require.NoError(t, store.Set("k", json.RawMessage(`{"v":2}`)))

	value, ok := store.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(value))
}

func TestExpiredEntryDeletedOnRead(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, 60, 100)

	require.NoError(t, store.Set("k", json.RawMessage(`{"v":1}`)))

	// jump past the TTL
	store.now = func() time.Time { return time.Now().Add(61 * time.Second) }

	_, ok := store.Get("k")
	assert.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntryModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCorruptEntryDeletedOnRead(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, 60, 100)

	entry := models.CacheEntryModel{
		CacheKey:  "bad",
		Value:     "{not json",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&entry).Error)

	_, ok := store.Get("bad")
	assert.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntryModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestEvictionDropsOldestCreated(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, 3600, 3)

	base := time.Now().Add(-time.Hour)
	for i, key := range []string{"a", "b", "c"} {
		entry := models.CacheEntryModel{
			CacheKey:  key,
			Value:     `{"ok":true}`,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(&entry).Error)
	}

	require.NoError(t, store.Set("d", json.RawMessage(`{"ok":true}`)))

	var count int64
	require.NoError(t, db.Model(&models.CacheEntryModel{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	_, ok := store.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = store.Get("d")
	assert.True(t, ok)
}

func TestReadDoesNotRefreshTTL(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, 60, 100)
	require.NoError(t, store.Set("k", json.RawMessage(`{"v":1}`)))

	var before models.CacheEntryModel
	require.NoError(t, db.Where("cache_key = ?", "k").First(&before).Error)

	_, ok := store.Get("k")
	require.True(t, ok)

	var after models.CacheEntryModel
	require.NoError(t, db.Where("cache_key = ?", "k").First(&after).Error)
	assert.Equal(t, before.ExpiresAt.UTC(), after.ExpiresAt.UTC())
}
