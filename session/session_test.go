package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	id, err := s.Create(ctx, "u_1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u_1", sess.UserID)
	assert.Greater(t, sess.ExpiresAt, sess.IssuedAt)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)

	id, err := s.Create(ctx, "u_1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeUserEndsAllSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	a, err := s.Create(ctx, "u_1")
	require.NoError(t, err)
	b, err := s.Create(ctx, "u_1")
	require.NoError(t, err)
	keep, err := s.Create(ctx, "u_2")
	require.NoError(t, err)

	require.NoError(t, s.RevokeUser(ctx, "u_1"))

	for _, id := range []string{a, b} {
		_, err := s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = s.Get(ctx, keep)
	assert.NoError(t, err)
}
