package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief/internal/store"
)

func TestKeyLayout(t *testing.T) {
	s := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "", "tablet-7")
	defer s.Close()

	assert.Equal(t, "relief:shared:donations", s.Key(store.KeyDonations, true))
	assert.Equal(t, "relief:device:tablet-7:user_votes", s.Key(store.KeyUserVotes, false))

	custom := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "camp", "x")
	defer custom.Close()
	assert.Equal(t, "camp:shared:proposals", custom.Key(store.KeyProposals, true))
}

func TestUnreachableServerReturnsErrors(t *testing.T) {
	s := NewWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}), "", "d")
	defer s.Close()

	ctx := context.Background()
	_, found, err := s.Get(ctx, store.KeyDonations, true)
	require.Error(t, err)
	assert.False(t, found)

	require.Error(t, s.Set(ctx, store.KeyDonations, "[]", true))
	require.Error(t, s.Ping(ctx))
}
