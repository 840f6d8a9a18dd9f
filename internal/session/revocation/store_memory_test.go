package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orynlabs/oryn-auth/internal/session/revocation"
)

func TestMemoryListRevokeAndLookup(t *testing.T) {
	ctx := context.Background()
	list := revocation.NewMemoryList()

	revoked, err := list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "abc", time.Minute))

	revoked, err = list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "other")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryListEntriesExpire(t *testing.T) {
	ctx := context.Background()
	list := revocation.NewMemoryList()

	require.NoError(t, list.Revoke(ctx, "abc", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	revoked, err := list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryListIgnoresEmptyAndExpiredInput(t *testing.T) {
	ctx := context.Background()
	list := revocation.NewMemoryList()

	require.NoError(t, list.Revoke(ctx, "", time.Minute))
	require.NoError(t, list.Revoke(ctx, "abc", -time.Minute))

	revoked, err := list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.False(t, revoked)
}
