package output

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
)

func TestWriteReachableNodesCSVSortedByHandshakeTimestamp(t *testing.T) {
	n1 := node.New(addr.New("203.0.113.1", 8333, 0), 0, 3)
	n1.Stats.HandshakeTimestamp = 200
	n1.Stats.UserAgent = "/Second/"

	n2 := node.New(addr.New("203.0.113.2", 8333, 0), 0, 3)
	n2.Stats.HandshakeTimestamp = 100
	n2.Stats.UserAgent = "/First/"

	var buf bytes.Buffer
	require.NoError(t, WriteReachableNodesCSV(&buf, []*node.Node{n1, n2}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 rows

	uaCol := -1
	for i, h := range rows[0] {
		if h == "user_agent" {
			uaCol = i
		}
	}
	require.GreaterOrEqual(t, uaCol, 0)
	require.Equal(t, "/First/", rows[1][uaCol])
	require.Equal(t, "/Second/", rows[2][uaCol])
}

func TestWriteCrawlerStatsJSON(t *testing.T) {
	var buf bytes.Buffer
	stats := CrawlerStats{
		Settings:      map[string]interface{}{"num_workers": 32},
		StartedAt:     1700000000,
		RuntimeSeconds: 12.5,
		Counts:        SetCounts{Reachable: 3, Unreachable: 1},
		PerSeedCounts: map[string]int{"seed.bitcoin.sipa.be": 10},
	}
	require.NoError(t, WriteCrawlerStatsJSON(&buf, stats))
	require.Contains(t, buf.String(), "\"num_workers\": 32")
}
