package frontier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
)

func TestInitPopulatesPending(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{
		"seed1": {addr.New("203.0.113.1", 8333, 0), addr.New("203.0.113.2", 8333, 0)},
	}, 3)

	counts := f.Snapshot()
	require.Equal(t, 2, counts.Pending)
	require.Equal(t, map[string]int{"seed1": 2}, f.SeedCounts())
}

func TestGetNodeMovesToProcessing(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0)}}, 3)

	n := f.GetNode()
	require.NotNil(t, n)
	counts := f.Snapshot()
	require.Equal(t, 0, counts.Pending)
	require.Equal(t, 1, counts.Processing)
}

func TestSetReachableUnreachable(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0), addr.New("203.0.113.2", 8333, 0)}}, 3)

	n1 := f.GetNode()
	n2 := f.GetNode()
	f.SetReachable(n1)
	f.SetUnreachable(n2)

	counts := f.Snapshot()
	require.Equal(t, 1, counts.Reachable)
	require.Equal(t, 1, counts.Unreachable)
	require.Equal(t, 0, counts.Processing)
}

func TestRetryOrTerminalRetriesUntilExhausted(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0)}}, 2)

	n := f.GetNode()
	n.Stats.HandshakeAttempts = 1
	f.RetryOrTerminal(n)
	require.Equal(t, 1, f.Snapshot().Pending)

	n2 := f.GetNode()
	require.Same(t, n, n2)
	n2.Stats.HandshakeAttempts = 2
	f.RetryOrTerminal(n2)

	counts := f.Snapshot()
	require.Equal(t, 0, counts.Pending)
	require.Equal(t, 1, counts.Unreachable)
}

func TestRetryOrTerminalReachableOnExhaustionPolicy(t *testing.T) {
	f := New(48*time.Hour, ReachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0)}}, 0)

	n := f.GetNode()
	f.RetryOrTerminal(n)

	require.Equal(t, 1, f.Snapshot().Reachable)
}

func TestAddPeersDeduplicatesAndFiltersStale(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0)}}, 3)
	src := f.GetNode()

	now := time.Now().Unix()
	advertised := map[string]addr.Address{
		addr.New("203.0.113.1", 8333, 0).Key(): addr.New("203.0.113.1", 8333, now), // already known (src itself)
		addr.New("203.0.113.2", 8333, 0).Key(): addr.New("203.0.113.2", 8333, now-60),
		addr.New("203.0.113.3", 8333, 0).Key(): addr.New("203.0.113.3", 8333, now-200000), // stale
	}

	inserted := f.AddPeers(src, advertised, 1, 3)
	require.Equal(t, 1, inserted)
	require.Equal(t, 1, f.Snapshot().Next)
}

func TestNodesLeftWavePromotion(t *testing.T) {
	old := pollInterval
	pollInterval = time.Millisecond
	defer func() { pollInterval = old }()

	f := New(48*time.Hour, UnreachableOnExhaustion)
	f.Init(map[string][]addr.Address{"seed1": {addr.New("203.0.113.1", 8333, 0)}}, 3)

	n := f.GetNode()
	f.AddPeers(n, map[string]addr.Address{
		addr.New("203.0.113.2", 8333, 0).Key(): addr.New("203.0.113.2", 8333, time.Now().Unix()),
	}, 1, 3)
	f.SetReachable(n)

	require.True(t, f.NodesLeft()) // promotes next -> pending
	require.Equal(t, 1, f.Snapshot().Pending)

	n2 := f.GetNode()
	f.SetReachable(n2)
	require.False(t, f.NodesLeft()) // all sets empty now
}

func TestKnownPreventsDuplicateInsertion(t *testing.T) {
	f := New(48*time.Hour, UnreachableOnExhaustion)
	a := addr.New("203.0.113.9", 8333, 0)
	f.Init(map[string][]addr.Address{"seed1": {a}}, 3)
	n := f.GetNode()

	inserted := f.AddPeers(n, map[string]addr.Address{a.Key(): a}, 1, 3)
	require.Equal(t, 0, inserted)
}
