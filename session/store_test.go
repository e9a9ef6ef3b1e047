package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID := uuid.New()
	token := uuid.New().String()

	require.NoError(t, s.Set(ctx, token, userID, time.Hour))

	got, err := s.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestUnknownToken(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := uuid.New().String()
	require.NoError(t, s.Set(ctx, token, uuid.New(), time.Hour))
	require.NoError(t, s.Delete(ctx, token))

	_, err := s.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	// Deleting again is fine.
	assert.NoError(t, s.Delete(ctx, token))
}

func TestExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping expiry wait in short mode")
	}

	s := newTestStore(t)
	ctx := context.Background()

	token := uuid.New().String()
	require.NoError(t, s.Set(ctx, token, uuid.New(), time.Second))

	// Badger tracks expiry at second granularity.
	time.Sleep(2100 * time.Millisecond)

	_, err := s.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession, "expired token must read as absent")
}

func TestAlive(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.Alive())

	require.NoError(t, s.Close())
	assert.False(t, s.Alive())
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	require.NoError(t, err)

	userID := uuid.New()
	token := uuid.New().String()
	require.NoError(t, s.Set(ctx, token, userID, time.Hour))
	require.NoError(t, s.Close())

	s, err = NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
