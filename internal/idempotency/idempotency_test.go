package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Hour), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	rec, err := s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = s.Begin(ctx, "u1:k1")
	assert.ErrorIs(t, err, ErrInFlight)

	body := json.RawMessage(`{"order_id":"o1"}`)
	require.NoError(t, s.Complete(ctx, "u1:k1", Record{Status: 201, Body: body}))

	rec, err = s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 201, rec.Status)
	assert.JSONEq(t, string(body), string(rec.Body))
}

func TestRedisStore_AbortReleasesKey(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Abort(ctx, "k"))

	rec, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStore_RecordsExpire(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "k", Record{Status: 201, Body: json.RawMessage(`{}`)}))

	mr.FastForward(2 * time.Hour)

	rec, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
