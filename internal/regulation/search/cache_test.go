// internal/regulation/search/cache_test.go
package search

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"regsearch/internal/common/logger"
	"regsearch/internal/models"
)

var cacheLoc = models.Locality{Address: "西新宿2-8-1", Prefecture: "東京都", City: "新宿区"}

func newMiniredisCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return NewCache(client, ttl, logger.NewTestLogger(t)), mini
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newMiniredisCache(t, time.Hour)
	ctx := context.Background()

	_, ok := cache.Get(ctx, CategoryUrbanPlanning, cacheLoc)
	assert.False(t, ok)

	stored := &models.WebSearchResult{
		Query:     "query",
		Results:   "用途地域：商業地域",
		Sources:   []string{"https://example.jp/a"},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	cache.Set(ctx, CategoryUrbanPlanning, cacheLoc, stored)

	got, ok := cache.Get(ctx, CategoryUrbanPlanning, cacheLoc)
	assert.True(t, ok)
	assert.Equal(t, stored.Results, got.Results)
	assert.Equal(t, stored.Sources, got.Sources)

	// Category is part of the key.
	_, ok = cache.Get(ctx, CategorySunlight, cacheLoc)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	cache, mini := newMiniredisCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, CategorySunlight, cacheLoc, &models.WebSearchResult{Results: "日影規制あり"})

	_, ok := cache.Get(ctx, CategorySunlight, cacheLoc)
	assert.True(t, ok)

	mini.FastForward(2 * time.Minute)

	_, ok = cache.Get(ctx, CategorySunlight, cacheLoc)
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mini := newMiniredisCache(t, time.Hour)

	assert.NoError(t, mini.Set(cacheKey(CategoryUrbanPlanning, cacheLoc), "not json"))

	_, ok := cache.Get(context.Background(), CategoryUrbanPlanning, cacheLoc)
	assert.False(t, ok)
}

func TestCache_NilIsDisabled(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok := cache.Get(ctx, CategoryUrbanPlanning, cacheLoc)
	assert.False(t, ok)

	// Must not panic.
	cache.Set(ctx, CategoryUrbanPlanning, cacheLoc, &models.WebSearchResult{})

	assert.Nil(t, NewCache(nil, time.Hour, logger.NewNoOpLogger()))
}

func TestCache_WriteFailureIsIgnored(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	result := &models.WebSearchResult{Query: "q", Results: "text", Sources: []string{}}
	data, _ := json.Marshal(result)
	mock.ExpectSet(cacheKey(CategoryUrbanPlanning, cacheLoc), data, time.Hour).
		SetErr(assert.AnError)

	// Logged and swallowed.
	cache.Set(ctx, CategoryUrbanPlanning, cacheLoc, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
