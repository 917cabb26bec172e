package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartSnapshot struct {
	Token string `json:"token"`
	Items int    `json:"items"`
}

func setup(t *testing.T) (cache.Cache, redismock.ClientMock, *config.CacheConfig) {
	t.Helper()

	client, mock := redismock.NewClientMock()
	cfg := &config.CacheConfig{
		DefaultTTL: 10 * time.Minute,
	}

	return cache.NewRedisCache(client, cfg), mock, cfg
}

func TestGet(t *testing.T) {
	ctx := t.Context()
	testKey := cache.Key(cache.CartKeyPrefix, "tok-1")
	testValue := cartSnapshot{Token: "tok-1", Items: 2}
	jsonData, err := json.Marshal(testValue)
	require.NoError(t, err)

	t.Run("Success - Key Found", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)

		var result cartSnapshot

		mock.ExpectGet(testKey).SetVal(string(jsonData))

		// Act
		found, err := redisCache.Get(ctx, testKey, &result)

		// Assert
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, testValue, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Cache Miss", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)

		var result cartSnapshot

		mock.ExpectGet(testKey).SetErr(redis.Nil)

		// Act
		found, err := redisCache.Get(ctx, testKey, &result)

		// Assert
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Redis Error", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)

		var result cartSnapshot

		expectedErr := errors.New("redis connection error")
		mock.ExpectGet(testKey).SetErr(expectedErr)

		// Act
		found, err := redisCache.Get(ctx, testKey, &result)

		// Assert
		require.Error(t, err)
		assert.False(t, found)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), fmt.Sprintf("failed to get key %s from redis", testKey))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Unmarshal Error", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)

		var result cartSnapshot

		mock.ExpectGet(testKey).SetVal(`{"token": "tok-1", "items": "two"}`)

		// Act
		found, err := redisCache.Get(ctx, testKey, &result)

		// Assert
		require.Error(t, err)
		assert.False(t, found)

		var jsonErr *json.UnmarshalTypeError

		assert.ErrorAs(t, err, &jsonErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSet(t *testing.T) {
	ctx := t.Context()
	testKey := cache.Key(cache.OrderKeyPrefix, "ORD-1")
	testValue := cartSnapshot{Token: "tok-1", Items: 1}
	jsonData, err := json.Marshal(testValue)
	require.NoError(t, err)

	t.Run("Success - With Specific TTL", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		mock.ExpectSet(testKey, jsonData, 5*time.Minute).SetVal("OK")

		require.NoError(t, redisCache.Set(ctx, testKey, testValue, 5*time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - With Default TTL", func(t *testing.T) {
		redisCache, mock, cfg := setup(t)
		mock.ExpectSet(testKey, jsonData, cfg.DefaultTTL).SetVal("OK")

		require.NoError(t, redisCache.Set(ctx, testKey, testValue, 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Marshal Error", func(t *testing.T) {
		redisCache, mock, _ := setup(t)

		err := redisCache.Set(ctx, testKey, make(chan int), time.Minute)

		require.Error(t, err)

		var jsonErr *json.UnsupportedTypeError

		assert.ErrorAs(t, err, &jsonErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Redis Error", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		expectedErr := errors.New("redis SET failed")
		mock.ExpectSet(testKey, jsonData, time.Minute).SetErr(expectedErr)

		err := redisCache.Set(ctx, testKey, testValue, time.Minute)

		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	ctx := t.Context()
	source := cache.Key(cache.CartKeyPrefix, "guest")
	destination := cache.Key(cache.CartKeyPrefix, "user")

	t.Run("Success - Multiple Keys", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		mock.ExpectDel(source, destination).SetVal(2)

		require.NoError(t, redisCache.Delete(ctx, source, destination))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - No Keys", func(t *testing.T) {
		redisCache, mock, _ := setup(t)

		require.NoError(t, redisCache.Delete(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Redis Error", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		expectedErr := errors.New("redis DEL failed")
		mock.ExpectDel(source).SetErr(expectedErr)

		err := redisCache.Delete(ctx, source)

		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrLoad(t *testing.T) {
	ctx := t.Context()
	key := cache.Key(cache.CartKeyPrefix, "tok-1")
	value := cartSnapshot{Token: "tok-1", Items: 3}
	jsonData, err := json.Marshal(value)
	require.NoError(t, err)

	t.Run("Success - Hit Skips Loader", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)
		mock.ExpectGet(key).SetVal(string(jsonData))

		// Act
		got, err := cache.GetOrLoad(ctx, cache.NewLoader(redisCache), key, time.Minute, func(context.Context) (cartSnapshot, error) {
			t.Fatal("loader must not run on a hit")

			return cartSnapshot{}, nil
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, value, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Miss Loads And Stores", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)
		mock.ExpectGet(key).SetErr(redis.Nil)
		mock.ExpectSet(key, jsonData, time.Minute).SetVal("OK")

		// Act
		got, err := cache.GetOrLoad(ctx, cache.NewLoader(redisCache), key, time.Minute, func(context.Context) (cartSnapshot, error) {
			return value, nil
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, value, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Redis Down Falls Through To Loader", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))
		mock.ExpectSet(key, jsonData, time.Minute).SetErr(errors.New("connection refused"))

		got, err := cache.GetOrLoad(ctx, cache.NewLoader(redisCache), key, time.Minute, func(context.Context) (cartSnapshot, error) {
			return value, nil
		})

		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("Failure - Loader Error Not Cached", func(t *testing.T) {
		redisCache, mock, _ := setup(t)
		loadErr := errors.New("cart not found")
		mock.ExpectGet(key).SetErr(redis.Nil)

		_, err := cache.GetOrLoad(ctx, cache.NewLoader(redisCache), key, time.Minute, func(context.Context) (*cartSnapshot, error) {
			return nil, loadErr
		})

		require.ErrorIs(t, err, loadErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoaderInvalidation(t *testing.T) {
	ctx := t.Context()
	key := cache.Key(cache.CartKeyPrefix, "tok-1")
	stale := cartSnapshot{Token: "tok-1", Items: 1}
	staleJSON, err := json.Marshal(stale)
	require.NoError(t, err)

	t.Run("Success - Delete During Load Drops The Loaded Value", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)
		loader := cache.NewLoader(redisCache)
		mock.ExpectGet(key).SetErr(redis.Nil)
		mock.ExpectDel(key).SetVal(0)
		mock.ExpectSet(key, staleJSON, time.Minute).SetVal("OK")
		mock.ExpectDel(key).SetVal(1)

		// Act
		got, err := cache.GetOrLoad(ctx, loader, key, time.Minute, func(ctx context.Context) (cartSnapshot, error) {
			// a mutation commits and invalidates after the row was read
			require.NoError(t, loader.Delete(ctx, key))

			return stale, nil
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, stale, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Delete After Load Leaves Nothing Pending", func(t *testing.T) {
		// Arrange
		redisCache, mock, _ := setup(t)
		loader := cache.NewLoader(redisCache)
		mock.ExpectGet(key).SetErr(redis.Nil)
		mock.ExpectSet(key, staleJSON, time.Minute).SetVal("OK")
		mock.ExpectDel(key).SetVal(1)
		mock.ExpectGet(key).SetErr(redis.Nil)
		mock.ExpectSet(key, staleJSON, time.Minute).SetVal("OK")

		load := func(context.Context) (cartSnapshot, error) { return stale, nil }

		// Act
		_, err := cache.GetOrLoad(ctx, loader, key, time.Minute, load)
		require.NoError(t, err)
		require.NoError(t, loader.Delete(ctx, key))
		_, err = cache.GetOrLoad(ctx, loader, key, time.Minute, load)

		// Assert
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrapping A Loader Reuses It", func(t *testing.T) {
		loader := cache.NewLoader(cache.NewNoopCache())

		assert.Same(t, loader, cache.NewLoader(loader))
	})
}

func TestNoopCache(t *testing.T) {
	c := cache.NewNoopCache()

	var v cartSnapshot

	found, err := c.Get(t.Context(), "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Set(t.Context(), "k", v, time.Minute))
	assert.NoError(t, c.Delete(t.Context(), "k", "j"))
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "cart:3f1c", cache.Key(cache.CartKeyPrefix, "3f1c"))
	assert.Equal(t, "order:ORD-1", cache.Key(cache.OrderKeyPrefix, "ORD-1"))
	assert.Equal(t, "prefix:", cache.Key("prefix", ""))
}
