package partition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRegistry_SetAndClear(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRegistry()

	require.NoError(t, r.SetPartition(ctx, "p1", "match-1"))
	require.NoError(t, r.SetPartition(ctx, "p2", "match-1"))
	assert.Equal(t, "match-1", r.PartitionOf("p1"))
	assert.Equal(t, []string{"p1", "p2"}, r.Members("match-1"))

	require.NoError(t, r.SetPartition(ctx, "p1", SharedWorld))
	assert.Equal(t, SharedWorld, r.PartitionOf("p1"))
	assert.Equal(t, []string{"p2"}, r.Members("match-1"))
}
