package connect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubepost/internal/config"
)

func TestClientPool(t *testing.T) {
	pool, err := NewClientPool([]config.OAuthClient{
		{ClientID: "a", ClientSecret: "sa"},
		{ClientID: "b", ClientSecret: "sb"},
		{ClientID: "a", ClientSecret: "dup"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	got, ok := pool.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "sb", got.ClientSecret)

	_, ok = pool.Lookup("c")
	assert.False(t, ok)
}

func TestClientPool_PickCoversEveryIdentity(t *testing.T) {
	pool, err := NewClientPool([]config.OAuthClient{
		{ClientID: "a", ClientSecret: "s"},
		{ClientID: "b", ClientSecret: "s"},
		{ClientID: "c", ClientSecret: "s"},
	})
	require.NoError(t, err)

	next := 0
	pool.intn = func(n int) int {
		i := next % n
		next++
		return i
	}
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[pool.Pick().ClientID] = true
	}
	assert.Len(t, seen, 3)
}

func TestClientPool_Empty(t *testing.T) {
	_, err := NewClientPool(nil)
	assert.Error(t, err)
}
