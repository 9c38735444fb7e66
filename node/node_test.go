package node

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
)

func TestAttemptsRemaining(t *testing.T) {
	n := New(addr.New("203.0.113.1", 8333, 0), 0, 3)
	require.True(t, n.AttemptsRemaining())
	n.Stats.HandshakeAttempts = 3
	require.False(t, n.AttemptsRemaining())
}

func TestRecordAdvertisedByType(t *testing.T) {
	var s Stats
	s.RecordAdvertised(addr.TypeIPv4)
	s.RecordAdvertised(addr.TypeOnionV3)
	s.RecordAdvertised(addr.TypeOnionV3)
	require.Equal(t, 1, s.AdvertisedAddrsIPv4)
	require.Equal(t, 2, s.AdvertisedAddrsOnionV3)
}
