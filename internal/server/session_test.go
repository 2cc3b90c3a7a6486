package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_OpenGetRemove(t *testing.T) {
	r := NewSessionRegistry(0)

	s, err := r.Open()
	require.NoError(t, err)
	assert.Len(t, s.ID, 32)

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	r.Remove(s.ID)
	_, ok = r.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	select {
	case <-s.Done():
	default:
		t.Fatal("removed session should be closed")
	}

	// Removing twice is harmless.
	r.Remove(s.ID)
}

func TestSessionRegistry_UniqueIDs(t *testing.T) {
	r := NewSessionRegistry(0)
	seen := make(map[string]bool)
	for range 50 {
		s, err := r.Open()
		require.NoError(t, err)
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
	assert.Equal(t, 50, r.Len())
}

func TestSessionRegistry_Limit(t *testing.T) {
	r := NewSessionRegistry(2)

	first, err := r.Open()
	require.NoError(t, err)
	_, err = r.Open()
	require.NoError(t, err)

	_, err = r.Open()
	assert.ErrorIs(t, err, ErrTooManySessions)

	r.Remove(first.ID)
	_, err = r.Open()
	assert.NoError(t, err)
}

func TestSessionRegistry_CloseAll(t *testing.T) {
	r := NewSessionRegistry(0)
	a, _ := r.Open()
	b, _ := r.Open()

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	for _, s := range []*Session{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatalf("session %s not closed", s.ID)
		}
	}
}

func TestSession_Send(t *testing.T) {
	r := NewSessionRegistry(0)
	s, err := r.Open()
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []byte("one")))
	assert.Equal(t, []byte("one"), <-s.Outbound())

	r.Remove(s.ID)
	assert.ErrorIs(t, s.Send(context.Background(), []byte("two")), ErrSessionClosed)
}

func TestSession_SendRespectsContext(t *testing.T) {
	r := NewSessionRegistry(0)
	s, err := r.Open()
	require.NoError(t, err)

	for range outboundBuffer {
		require.NoError(t, s.Send(context.Background(), []byte("x")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Send(ctx, []byte("overflow")), context.DeadlineExceeded)
}

func TestSession_Initialized(t *testing.T) {
	s, err := NewSessionRegistry(0).Open()
	require.NoError(t, err)
	assert.False(t, s.Initialized())
	s.MarkInitialized()
	assert.True(t, s.Initialized())
}
