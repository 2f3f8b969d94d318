package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct {
	Ideas int64 `json:"ideas"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestRemember_CachesUntilTTL(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (counters, error) {
		calls++
		return counters{Ideas: int64(calls)}, nil
	}

	got, err := Remember(ctx, AdminStatsKey, AdminStatsTTL, load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Ideas)

	got, err = Remember(ctx, AdminStatsKey, AdminStatsTTL, load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Ideas)
	assert.Equal(t, 1, calls)

	mr.FastForward(AdminStatsTTL + time.Second)
	got, err = Remember(ctx, AdminStatsKey, AdminStatsTTL, load)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Ideas)
}

func TestRemember_InvalidateAndErrors(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	_, err := Remember(ctx, AdminStatsKey, AdminStatsTTL, func(context.Context) (counters, error) {
		return counters{Ideas: 3}, nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists(AdminStatsKey))

	InvalidateAdminStats(ctx)
	assert.False(t, mr.Exists(AdminStatsKey))

	loadErr := errors.New("db down")
	_, err = Remember(ctx, AdminStatsKey, AdminStatsTTL, func(context.Context) (counters, error) {
		return counters{}, loadErr
	})
	assert.ErrorIs(t, err, loadErr)
	assert.False(t, mr.Exists(AdminStatsKey))
}

func TestRemember_WithoutRedis(t *testing.T) {
	SetClient(nil)
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Remember(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	assert.Nil(t, InitRedis(context.Background(), ""))
	assert.Nil(t, InitRedis(context.Background(), "redis://%zz"))

	c := InitRedis(context.Background(), "redis://"+mr.Addr())
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())
}
