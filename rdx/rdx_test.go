package rdx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockAcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	l := NewLocker(client, "lock:")
	l.newToken = func() string { return "tok-1" }

	mock.ExpectSetNX("lock:autoassign", "tok-1", 50*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"lock:autoassign"}, "tok-1").SetVal(int64(1))

	release, err := l.TryLock(context.Background(), "autoassign", 50*time.Second)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryLockHeldElsewhere(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewLocker(client, "lock:")
	l.newToken = func() string { return "tok-2" }

	mock.ExpectSetNX("lock:reminder", "tok-2", time.Minute).SetVal(false)

	release, err := l.TryLock(context.Background(), "reminder", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryLockError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewLocker(client, "lock:")
	l.newToken = func() string { return "tok-3" }

	mock.ExpectSetNX("lock:reminder", "tok-3", time.Minute).SetErr(errors.New("connection refused"))

	_, err := l.TryLock(context.Background(), "reminder", time.Minute)
	assert.Error(t, err)
}

func TestCacheRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewCache(client, "analytics:")

	mock.ExpectSet("analytics:dashboard", []byte(`{"events":3}`), time.Minute).SetVal("OK")
	mock.ExpectGet("analytics:dashboard").SetVal(`{"events":3}`)
	mock.ExpectGet("analytics:missing").RedisNil()

	require.NoError(t, c.SetJSON(context.Background(), "dashboard", map[string]int{"events": 3}, time.Minute))

	var got map[string]int
	found, err := c.GetJSON(context.Background(), "dashboard", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got["events"])

	found, err = c.GetJSON(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	found, err := c.GetJSON(context.Background(), "x", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(context.Background(), "x", 1, time.Second))
	assert.NoError(t, c.Invalidate(context.Background(), "x"))
}

func TestRevocations(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRevocations(client, "revoked:")

	mock.ExpectSet("revoked:jti-1", "1", time.Hour).SetVal("OK")
	mock.ExpectExists("revoked:jti-1").SetVal(1)
	mock.ExpectExists("revoked:jti-2").SetVal(0)

	require.NoError(t, r.Revoke(context.Background(), "jti-1", time.Hour))
	revoked, err := r.Revoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.Revoked(context.Background(), "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.NoError(t, r.Revoke(context.Background(), "jti-3", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
