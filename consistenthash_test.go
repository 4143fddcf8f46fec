package reactor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistentHashEmptyRing(t *testing.T) {
	ch := NewConsistentHash(10)
	_, err := ch.GetNode("anything")
	assert.ErrorIs(t, err, ErrRingEmpty)
}

func TestConsistentHashStableForSameKey(t *testing.T) {
	ch := NewConsistentHash(50)
	for i := 0; i < 5; i++ {
		ch.AddNode(fmt.Sprintf("node%d", i))
	}

	first, err := ch.GetNode("10.0.0.1:54321")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		got, err := ch.GetNode("10.0.0.1:54321")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestConsistentHashDistributesAcrossNodes(t *testing.T) {
	ch := NewConsistentHash(100)
	for i := 0; i < 4; i++ {
		ch.AddNode(fmt.Sprintf("node%d", i))
	}

	seen := make(map[string]int)
	for i := 0; i < 1000; i++ {
		node, err := ch.GetNode(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		seen[node]++
	}

	assert.Len(t, seen, 4)
	for node, count := range seen {
		assert.Greaterf(t, count, 0, "node %s received no keys", node)
	}
}

func TestConsistentHashRemoveNode(t *testing.T) {
	ch := NewConsistentHash(50)
	ch.AddNode("a")
	ch.AddNode("b")

	before := make(map[string]string)
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i)
		node, err := ch.GetNode(key)
		require.NoError(t, err)
		before[key] = node
	}

	ch.RemoveNode("b")

	for key, node := range before {
		got, err := ch.GetNode(key)
		require.NoError(t, err)
		if node == "a" {
			assert.Equal(t, "a", got, "keys owned by the untouched node must not move")
		} else {
			assert.Equal(t, "a", got, "keys owned by the removed node must fail over to the survivor")
		}
	}
}
