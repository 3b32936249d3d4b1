package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "expired", now.Add(-time.Minute)))

	ok, err := s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.IsRevoked(ctx, "expired")
	assert.False(t, ok)
	ok, _ = s.IsRevoked(ctx, "unknown")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = s.IsRevoked(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, s.Revoke(ctx, "b", now.Add(time.Hour)))
	assert.NotContains(t, s.revoked, "a")
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
