package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsherd/nfsherd/pkg/relation"
)

func TestPeerResolver(t *testing.T) {
	ctx := context.Background()
	store := relation.NewMemory()
	require.NoError(t, store.SetPeer(ctx, "h1", "10.0.0.1"))

	res := NewPeerResolver(store)

	addr, err := res.ResolveAddress(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", addr)

	// Unknown hosts resolve to an empty address, not an error.
	addr, err = res.ResolveAddress(ctx, "h9")
	require.NoError(t, err)
	assert.Empty(t, addr)
}

func TestRosterIsStableAndCopied(t *testing.T) {
	r := Roster{"h1", "h2", "h3"}

	hosts, err := r.Hosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2", "h3"}, hosts)

	// Mutating the returned slice must not touch the roster.
	hosts[0] = "mutated"
	again, err := r.Hosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2", "h3"}, again)
}
