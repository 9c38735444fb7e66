package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
)

func TestUpdateAndPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json.gz")

	s, err := Load(path, 3)
	require.NoError(t, err)

	a := addr.New("203.0.113.1", 8333, 0)
	n := node.New(a, 0, 3)
	require.NoError(t, s.UpdateAndPersist([]*node.Node{n}, nil))

	reloaded, err := Load(path, 3)
	require.NoError(t, err)
	nodes := reloaded.GetReachableNodes(3)
	require.Len(t, nodes, 1)
	require.Equal(t, a.Key(), nodes[0].Address.Key())
	require.Equal(t, 100, nodes[0].SeedDistance)
}

func TestRetryBudgetExhaustionRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json.gz")
	s, err := Load(path, 2)
	require.NoError(t, err)

	a := addr.New("203.0.113.2", 8333, 0)
	n := node.New(a, 0, 3)
	require.NoError(t, s.UpdateAndPersist([]*node.Node{n}, nil)) // retries_left = 2

	require.NoError(t, s.UpdateAndPersist(nil, []*node.Node{n})) // retries_left = 1
	require.Len(t, s.GetReachableNodes(3), 1)

	require.NoError(t, s.UpdateAndPersist(nil, []*node.Node{n})) // retries_left = 0, removed
	require.Empty(t, s.GetReachableNodes(3))
}

func TestReachableResetsRetryBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json.gz")
	s, err := Load(path, 2)
	require.NoError(t, err)

	a := addr.New("203.0.113.3", 8333, 0)
	n := node.New(a, 0, 3)
	require.NoError(t, s.UpdateAndPersist([]*node.Node{n}, nil))
	require.NoError(t, s.UpdateAndPersist(nil, []*node.Node{n})) // retries_left = 1
	require.NoError(t, s.UpdateAndPersist([]*node.Node{n}, nil)) // reachable again: reset to 2

	require.NoError(t, s.UpdateAndPersist(nil, []*node.Node{n})) // retries_left = 1
	require.Len(t, s.GetReachableNodes(3), 1)
}

func TestLoadMissingFileReturnsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json.gz")
	s, err := Load(path, 3)
	require.NoError(t, err)
	require.Empty(t, s.GetReachableNodes(3))
}
