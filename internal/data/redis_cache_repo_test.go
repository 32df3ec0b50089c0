package data

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	key := "geo:ip:203.0.113.7"
	require.NoError(t, repo.Set(ctx, key, []byte(`{"Country":"Ghana"}`), 5*time.Minute))

	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Country":"Ghana"}`, string(got))

	ttl := client.TTL(ctx, key).Val()
	assert.True(t, ttl > 0 && ttl <= 5*time.Minute)

	missing, err := repo.Get(ctx, "geo:ip:missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := repo.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, repo.Health(ctx))
}

func TestRedisCacheRepo_SetIfNotExists_SingleWinner(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	const key = "teardown:session-abc"
	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.SetIfNotExists(ctx, key, []byte("1"), 10*time.Second)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())

	ttl := client.TTL(ctx, key).Val()
	assert.True(t, ttl > 0 && ttl <= 10*time.Second)
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", nil, 0))
	_, err := repo.Get(ctx, "")
	assert.Error(t, err)
	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)
	_, err = repo.SetIfNotExists(ctx, "", nil, time.Second)
	assert.Error(t, err)
}
